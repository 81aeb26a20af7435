package climatology

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
)

// minStd is the smallest baseline spread for which a standardized anomaly is
// reported.
const minStd = 1e-9

// ComparisonPoint scores one event value against its bucket.
type ComparisonPoint struct {
	Time         time.Time `json:"time"`
	Value        float64   `json:"value"`
	Bucket       BucketKey `json:"bucket"`
	BaselineMean float64   `json:"baseline_mean"`
	BaselineStd  float64   `json:"baseline_std"`
	Anomaly      float64   `json:"anomaly"`
	// StandardizedAnomaly is nil when the bucket has no spread.
	StandardizedAnomaly *float64 `json:"standardized_anomaly"`
	PercentileRank      float64  `json:"percentile_rank"`
	SampleCount         int      `json:"sample_count"`
	LowConfidence       bool     `json:"low_confidence"`
}

// Summary condenses an event comparison.
type Summary struct {
	Points        int     `json:"points"`
	MeanValue     float64 `json:"mean_value"`
	TotalValue    float64 `json:"total_value"`
	MeanAnomaly   float64 `json:"mean_anomaly"`
	PeakAnomaly   float64 `json:"peak_anomaly"`
	MinPercentile float64 `json:"min_percentile"`
	MaxPercentile float64 `json:"max_percentile"`
	LowConfidence bool    `json:"low_confidence"`
}

// EventComparison ties an event series to its baseline.
type EventComparison struct {
	FacilityID string            `json:"facility_id,omitempty"`
	Metric     string            `json:"metric"`
	Unit       string            `json:"unit,omitempty"`
	Policy     Policy            `json:"policy"`
	Window     YearWindow        `json:"baseline_window"`
	Points     []ComparisonPoint `json:"points"`
	Summary    Summary           `json:"summary"`
}

// Compare scores every event value against the baseline bucket chosen by the
// baseline's own policy. An event timestamp whose bucket the baseline lacks
// fails with ErrBucketMismatch.
func Compare(event domain.Series, b *Baseline) (EventComparison, error) {
	if b == nil {
		return EventComparison{}, fmt.Errorf("%w: nil baseline", domain.ErrInvalidInput)
	}
	if event.Metric != "" && b.Metric != "" && event.Metric != b.Metric {
		return EventComparison{}, fmt.Errorf("%w: event metric %s against %s baseline", domain.ErrInvalidInput, event.Metric, b.Metric)
	}
	if event.Len() == 0 {
		return EventComparison{}, fmt.Errorf("%w: no %s event values for %s", domain.ErrEmptyRange, event.Metric, event.FacilityID)
	}
	bucket, err := b.Policy.Func()
	if err != nil {
		return EventComparison{}, err
	}

	cmp := EventComparison{
		FacilityID: event.FacilityID,
		Metric:     event.Metric,
		Unit:       event.Unit,
		Policy:     b.Policy,
		Window:     b.Window,
		Points:     make([]ComparisonPoint, 0, event.Len()),
	}
	for _, p := range event.Points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return EventComparison{}, fmt.Errorf("%w: non-finite %s value at %s", domain.ErrInvalidInput, event.Metric, p.Time)
		}
		k := bucket(p.Time)
		stats, ok := b.Buckets[k]
		if !ok {
			return EventComparison{}, fmt.Errorf("%w: %s bucket %d (%s) has no %s baseline", domain.ErrBucketMismatch,
				b.Policy, k, p.Time.Format(time.DateOnly), b.Metric)
		}
		anomaly := p.Value - stats.Mean
		cp := ComparisonPoint{
			Time:           p.Time,
			Value:          p.Value,
			Bucket:         k,
			BaselineMean:   stats.Mean,
			BaselineStd:    stats.Std,
			Anomaly:        anomaly,
			PercentileRank: stats.PercentileRank(p.Value),
			SampleCount:    stats.Count,
			LowConfidence:  stats.LowConfidence,
		}
		if stats.Std >= minStd {
			z := anomaly / stats.Std
			cp.StandardizedAnomaly = &z
		}
		cmp.Points = append(cmp.Points, cp)
	}
	cmp.Summary = summarize(cmp.Points)
	return cmp, nil
}

func summarize(points []ComparisonPoint) Summary {
	s := Summary{
		Points:        len(points),
		MinPercentile: math.Inf(1),
		MaxPercentile: math.Inf(-1),
	}
	var anomalies float64
	for _, p := range points {
		s.TotalValue += p.Value
		anomalies += p.Anomaly
		if math.Abs(p.Anomaly) > math.Abs(s.PeakAnomaly) {
			s.PeakAnomaly = p.Anomaly
		}
		s.MinPercentile = math.Min(s.MinPercentile, p.PercentileRank)
		s.MaxPercentile = math.Max(s.MaxPercentile, p.PercentileRank)
		s.LowConfidence = s.LowConfidence || p.LowConfidence
	}
	n := float64(len(points))
	s.MeanValue = s.TotalValue / n
	s.MeanAnomaly = anomalies / n
	return s
}
