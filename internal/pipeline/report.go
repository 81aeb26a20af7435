package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/storm-energy-impact/internal/aggregate"
	"github.com/couchcryptid/storm-energy-impact/internal/climatology"
	"github.com/couchcryptid/storm-energy-impact/internal/domain"
)

// Analysis stages reported on facility failures.
const (
	StageValidate = "validate"
	StageSample   = "sample"
	StageDerive   = "derive"
	StageBaseline = "baseline"
	StageCompare  = "compare"
)

// Report is the outcome of one analysis run.
type Report struct {
	RunID       uuid.UUID         `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Event       EventInfo         `json:"event"`
	Facilities  []FacilityResult  `json:"facilities"`
	Fleet       []FleetResult     `json:"fleet"`
	Regions     []RegionResult    `json:"regions"`
	Failures    []FacilityFailure `json:"failures"`
}

// EventInfo describes what was analyzed.
type EventInfo struct {
	Name     string                 `json:"name"`
	Window   domain.TimeRange       `json:"window"`
	Baseline climatology.YearWindow `json:"baseline"`
	Bucket   climatology.Policy     `json:"bucket_policy"`
}

// FacilityResult holds every metric scored for one facility.
type FacilityResult struct {
	FacilityID string              `json:"facility_id"`
	Name       string              `json:"name"`
	Kind       domain.FacilityKind `json:"kind"`
	Region     string              `json:"region,omitempty"`
	Place      string              `json:"place,omitempty"`
	Cell       domain.Cell         `json:"cell"`
	Metrics    []MetricResult      `json:"metrics"`
}

// MetricResult is one metric's event comparison.
type MetricResult struct {
	Metric               string                      `json:"metric"`
	Unit                 string                      `json:"unit,omitempty"`
	BaselineBuckets      int                         `json:"baseline_buckets"`
	LowConfidenceBuckets int                         `json:"low_confidence_buckets"`
	Comparison           climatology.EventComparison `json:"comparison"`
}

// FleetResult is a fleet-wide series over the event with its own baseline
// comparison. Error is set when the fleet baseline could not be built.
type FleetResult struct {
	Metric     string                       `json:"metric"`
	Unit       string                       `json:"unit,omitempty"`
	Mode       aggregate.Mode               `json:"mode"`
	Facilities int                          `json:"facilities"`
	Event      aggregate.FleetSeries        `json:"event"`
	Comparison *climatology.EventComparison `json:"comparison,omitempty"`
	Error      string                       `json:"error,omitempty"`
}

// RegionResult is a regional total over the event window.
type RegionResult struct {
	Region     string                `json:"region"`
	Metric     string                `json:"metric"`
	Unit       string                `json:"unit,omitempty"`
	Facilities int                   `json:"facilities"`
	Event      aggregate.FleetSeries `json:"event"`
	Total      float64               `json:"total"`
	Peak       float64               `json:"peak"`
}

// FacilityFailure records a facility dropped from the run.
type FacilityFailure struct {
	FacilityID string              `json:"facility_id"`
	Kind       domain.FacilityKind `json:"kind,omitempty"`
	Stage      string              `json:"stage"`
	Metric     string              `json:"metric,omitempty"`
	Window     domain.TimeRange    `json:"window"`
	Reason     string              `json:"reason"`
	Error      string              `json:"error"`
}

// Records is the number of publishable records in the report.
func (r *Report) Records() int {
	return len(r.Facilities) + len(r.Fleet) + len(r.Regions) + len(r.Failures)
}

// FleetMetric returns the fleet result for metric.
func (r *Report) FleetMetric(metric string) (FleetResult, bool) {
	for _, f := range r.Fleet {
		if f.Metric == metric {
			return f, true
		}
	}
	return FleetResult{}, false
}

// stageError tags an analysis error with the stage that produced it.
type stageError struct {
	stage  string
	metric string
	err    error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func atStage(stage, metric string, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{stage: stage, metric: metric, err: err}
}
