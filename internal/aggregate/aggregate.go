// Package aggregate combines per-facility series into fleet and regional
// series.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
)

// Mode selects how weighted values at one timestamp are combined.
type Mode string

const (
	// WeightedMean divides the weighted sum by the weights of the facilities
	// present at that timestamp.
	WeightedMean Mode = "weighted_mean"
	// WeightedSum adds weight * value. Unit weights give a plain total.
	WeightedSum Mode = "weighted_sum"
)

// Weighting pairs a combination mode with a per-facility weight. A nil Weight
// means every facility weighs 1.
type Weighting struct {
	Mode   Mode
	Weight func(facilityID string) float64
}

func (w Weighting) weight(id string) float64 {
	if w.Weight == nil {
		return 1
	}
	return w.Weight(id)
}

// FleetPoint is one combined value and the number of facilities behind it.
type FleetPoint struct {
	Time         time.Time `json:"time"`
	Value        float64   `json:"value"`
	Contributing int       `json:"contributing"`
}

// FleetSeries is the combined series for a group of facilities.
type FleetSeries struct {
	Group  string       `json:"group,omitempty"`
	Metric string       `json:"metric"`
	Unit   string       `json:"unit,omitempty"`
	Mode   Mode         `json:"mode"`
	Points []FleetPoint `json:"points"`
}

// Series drops the contribution counts, yielding a plain series keyed by group.
func (f FleetSeries) Series() domain.Series {
	points := make([]domain.Point, len(f.Points))
	for i, p := range f.Points {
		points[i] = domain.Point{Time: p.Time, Value: p.Value}
	}
	return domain.Series{FacilityID: f.Group, Metric: f.Metric, Unit: f.Unit, Points: points}
}

// Total sums the point values.
func (f FleetSeries) Total() float64 {
	var t float64
	for _, p := range f.Points {
		t += p.Value
	}
	return t
}

type accumulator struct {
	sum     float64
	weights float64
	n       int
}

// Aggregate combines series that share a metric. Facilities may cover
// different timestamps; each output point counts the facilities present.
// A series that repeats a timestamp is rejected with ErrInvalidInput.
// Output is ordered by time.
func Aggregate(series []domain.Series, w Weighting) (FleetSeries, error) {
	if len(series) == 0 {
		return FleetSeries{}, fmt.Errorf("%w: no facility series to aggregate", domain.ErrEmptyInput)
	}
	switch w.Mode {
	case WeightedMean, WeightedSum:
	default:
		return FleetSeries{}, fmt.Errorf("%w: aggregation mode %q", domain.ErrInvalidInput, w.Mode)
	}

	metric, unit := series[0].Metric, series[0].Unit
	acc := make(map[int64]*accumulator)
	times := make(map[int64]time.Time)
	for _, s := range series {
		if s.Metric != metric {
			return FleetSeries{}, fmt.Errorf("%w: cannot combine %s with %s", domain.ErrInvalidInput, s.Metric, metric)
		}
		wt := w.weight(s.FacilityID)
		if wt < 0 || math.IsNaN(wt) || math.IsInf(wt, 0) {
			return FleetSeries{}, fmt.Errorf("%w: facility %s weight %g", domain.ErrInvalidInput, s.FacilityID, wt)
		}
		seen := make(map[int64]struct{}, len(s.Points))
		for _, p := range s.Points {
			k := p.Time.UnixNano()
			if _, dup := seen[k]; dup {
				return FleetSeries{}, fmt.Errorf("%w: facility %s repeats timestamp %s",
					domain.ErrInvalidInput, s.FacilityID, p.Time.Format(time.RFC3339))
			}
			seen[k] = struct{}{}
			a, ok := acc[k]
			if !ok {
				a = &accumulator{}
				acc[k] = a
				times[k] = p.Time
			}
			a.sum += wt * p.Value
			a.weights += wt
			a.n++
		}
	}

	keys := make([]int64, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := FleetSeries{Metric: metric, Unit: unit, Mode: w.Mode, Points: make([]FleetPoint, 0, len(keys))}
	for _, k := range keys {
		a := acc[k]
		v := a.sum
		if w.Mode == WeightedMean {
			if a.weights == 0 {
				return FleetSeries{}, fmt.Errorf("%w: zero total weight at %s", domain.ErrInvalidInput, times[k].Format(time.RFC3339))
			}
			v = a.sum / a.weights
		}
		out.Points = append(out.Points, FleetPoint{Time: times[k], Value: v, Contributing: a.n})
	}
	return out, nil
}

// AggregateBy groups series by the label group returns for each facility and
// aggregates each group. Facilities with an empty label are skipped.
func AggregateBy(series []domain.Series, w Weighting, group func(facilityID string) string) (map[string]FleetSeries, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no facility series to group", domain.ErrEmptyInput)
	}
	groups := make(map[string][]domain.Series)
	for _, s := range series {
		if g := group(s.FacilityID); g != "" {
			groups[g] = append(groups[g], s)
		}
	}
	out := make(map[string]FleetSeries, len(groups))
	for g, members := range groups {
		fs, err := Aggregate(members, w)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", g, err)
		}
		fs.Group = g
		out[g] = fs
	}
	return out, nil
}
