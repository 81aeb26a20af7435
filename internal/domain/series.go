package domain

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Point is a single timestamped value.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series is an ordered sequence of points for one facility and metric.
// Points are kept in chronological order by every producer in this module.
type Series struct {
	FacilityID string  `json:"facility_id,omitempty"`
	Metric     string  `json:"metric"`
	Unit       string  `json:"unit,omitempty"`
	Points     []Point `json:"points"`
}

// TimeRange is an inclusive [Start, End] window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the inclusive window.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Points) }

// Values returns the point values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// WithPoints returns a copy of the series header carrying the given points.
func (s Series) WithPoints(points []Point) Series {
	return Series{FacilityID: s.FacilityID, Metric: s.Metric, Unit: s.Unit, Points: points}
}

// Within returns the points that fall inside the inclusive window.
func (s Series) Within(r TimeRange) Series {
	points := make([]Point, 0, len(s.Points))
	for _, p := range s.Points {
		if r.Contains(p.Time) {
			points = append(points, p)
		}
	}
	return s.WithPoints(points)
}

// Map applies fn to every value, stopping at the first error.
func (s Series) Map(metric, unit string, fn func(float64) (float64, error)) (Series, error) {
	points := make([]Point, len(s.Points))
	for i, p := range s.Points {
		v, err := fn(p.Value)
		if err != nil {
			return Series{}, fmt.Errorf("%s at %s: %w", metric, p.Time.Format(time.RFC3339), err)
		}
		points[i] = Point{Time: p.Time, Value: v}
	}
	return Series{FacilityID: s.FacilityID, Metric: metric, Unit: unit, Points: points}, nil
}

// Zip combines two series point by point. Both must share the same timestamps.
func Zip(a, b Series, metric, unit string, fn func(x, y float64) (float64, error)) (Series, error) {
	if len(a.Points) != len(b.Points) {
		return Series{}, fmt.Errorf("%w: %s has %d points, %s has %d", ErrInvalidInput, a.Metric, len(a.Points), b.Metric, len(b.Points))
	}
	points := make([]Point, len(a.Points))
	for i := range a.Points {
		if !a.Points[i].Time.Equal(b.Points[i].Time) {
			return Series{}, fmt.Errorf("%w: %s and %s misaligned at index %d", ErrInvalidInput, a.Metric, b.Metric, i)
		}
		v, err := fn(a.Points[i].Value, b.Points[i].Value)
		if err != nil {
			return Series{}, fmt.Errorf("%s at %s: %w", metric, a.Points[i].Time.Format(time.RFC3339), err)
		}
		points[i] = Point{Time: a.Points[i].Time, Value: v}
	}
	return Series{FacilityID: a.FacilityID, Metric: metric, Unit: unit, Points: points}, nil
}

// Reducer collapses the samples of one calendar day into a single value.
type Reducer func(values []float64) float64

// DailyMean averages a day's samples.
func DailyMean(values []float64) float64 { return stat.Mean(values, nil) }

// DailySum adds a day's samples.
func DailySum(values []float64) float64 { return floats.Sum(values) }

// ResampleDaily groups points by calendar date in each timestamp's own location
// and reduces each group. Output timestamps are local midnight. Days without
// observations produce no point.
func ResampleDaily(s Series, reduce Reducer) Series {
	out := s.WithPoints(make([]Point, 0, len(s.Points)/24+1))
	var (
		day    time.Time
		bucket []float64
	)
	flush := func() {
		if len(bucket) > 0 {
			out.Points = append(out.Points, Point{Time: day, Value: reduce(bucket)})
		}
		bucket = bucket[:0]
	}
	for _, p := range s.Points {
		d := StartOfDay(p.Time)
		if !d.Equal(day) {
			flush()
			day = d
		}
		bucket = append(bucket, p.Value)
	}
	flush()
	return out
}

// StartOfDay truncates t to midnight in t's own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
