// Package climatology builds calendar-bucketed baselines from historical
// series and scores event windows against them.
package climatology

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
)

// DefaultMinSamples flags buckets drawn from fewer values than a typical
// 10-year daily record would supply.
const DefaultMinSamples = 10

// Options controls baseline construction.
type Options struct {
	Bucket     Policy
	Window     YearWindow
	MinSamples int
}

// BucketStats is the empirical distribution of one bucket.
type BucketStats struct {
	Key   BucketKey `json:"key"`
	Count int       `json:"count"`
	Mean  float64   `json:"mean"`
	// Std is the population standard deviation.
	Std           float64   `json:"std"`
	Samples       []float64 `json:"samples,omitempty"`
	LowConfidence bool      `json:"low_confidence"`
}

// Baseline is a per-bucket climatology for one facility and metric.
type Baseline struct {
	FacilityID string                    `json:"facility_id,omitempty"`
	Metric     string                    `json:"metric"`
	Unit       string                    `json:"unit,omitempty"`
	Policy     Policy                    `json:"policy"`
	Window     YearWindow                `json:"window"`
	MinSamples int                       `json:"min_samples"`
	Buckets    map[BucketKey]BucketStats `json:"buckets"`
}

// BuildBaseline pools the historical values that fall inside the year window
// by bucket. Buckets with fewer than MinSamples values are kept and flagged
// low confidence.
func BuildBaseline(historical domain.Series, opts Options) (*Baseline, error) {
	if opts.Bucket == "" {
		opts.Bucket = PolicyDayOfYear
	}
	bucket, err := opts.Bucket.Func()
	if err != nil {
		return nil, err
	}
	if opts.Window.End < opts.Window.Start {
		return nil, fmt.Errorf("%w: baseline window %d-%d", domain.ErrInvalidInput, opts.Window.Start, opts.Window.End)
	}
	if opts.MinSamples < 0 {
		return nil, fmt.Errorf("%w: min samples %d", domain.ErrInvalidInput, opts.MinSamples)
	}

	pooled := make(map[BucketKey][]float64)
	for _, p := range historical.Points {
		if !opts.Window.Contains(p.Time.Year()) {
			continue
		}
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return nil, fmt.Errorf("%w: non-finite %s value at %s", domain.ErrInvalidInput, historical.Metric, p.Time)
		}
		k := bucket(p.Time)
		pooled[k] = append(pooled[k], p.Value)
	}
	if len(pooled) == 0 {
		return nil, fmt.Errorf("%w: no %s samples for %s in %d-%d", domain.ErrInsufficientData,
			historical.Metric, historical.FacilityID, opts.Window.Start, opts.Window.End)
	}

	b := &Baseline{
		FacilityID: historical.FacilityID,
		Metric:     historical.Metric,
		Unit:       historical.Unit,
		Policy:     opts.Bucket,
		Window:     opts.Window,
		MinSamples: opts.MinSamples,
		Buckets:    make(map[BucketKey]BucketStats, len(pooled)),
	}
	for k, values := range pooled {
		sort.Float64s(values)
		mean, std := stat.PopMeanStdDev(values, nil)
		b.Buckets[k] = BucketStats{
			Key:           k,
			Count:         len(values),
			Mean:          mean,
			Std:           std,
			Samples:       values,
			LowConfidence: len(values) < opts.MinSamples,
		}
	}
	return b, nil
}

// Keys returns the populated bucket keys in order.
func (b *Baseline) Keys() []BucketKey {
	keys := make([]BucketKey, 0, len(b.Buckets))
	for k := range b.Buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// LowConfidenceCount returns how many buckets fell below MinSamples.
func (b *Baseline) LowConfidenceCount() int {
	n := 0
	for _, s := range b.Buckets {
		if s.LowConfidence {
			n++
		}
	}
	return n
}

// PercentileRank returns the fraction of the bucket's samples at or below v.
func (s BucketStats) PercentileRank(v float64) float64 {
	if len(s.Samples) == 0 {
		return 0
	}
	return stat.CDF(v, stat.Empirical, s.Samples, nil)
}
