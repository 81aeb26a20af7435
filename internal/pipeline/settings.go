package pipeline

import (
	"time"

	"github.com/couchcryptid/storm-energy-impact/internal/climatology"
	"github.com/couchcryptid/storm-energy-impact/internal/config"
	"github.com/couchcryptid/storm-energy-impact/internal/domain"
	"github.com/couchcryptid/storm-energy-impact/internal/powercurve"
)

// DegreeDayMethod selects how hourly temperatures become daily heating demand.
type DegreeDayMethod string

const (
	DailyMean DegreeDayMethod = "daily-mean"
	HourlySum DegreeDayMethod = "hourly-sum"
)

// Settings controls one analysis run.
type Settings struct {
	EventName string
	Event     domain.TimeRange

	Baseline   climatology.YearWindow
	Bucket     climatology.Policy
	MinSamples int
	Smoothing  int

	HDDBase        float64
	DegreeDay      DegreeDayMethod
	AirDensity     bool
	SolarTempCoeff float64
	Curves         powercurve.Catalog

	Workers        int
	PublishRetries int
	RetryBackoff   time.Duration
}

// SettingsFromConfig maps service configuration onto analysis settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		EventName:      cfg.EventName,
		Event:          cfg.EventRange(),
		Baseline:       climatology.YearWindow{Start: cfg.BaselineStartYear, End: cfg.BaselineEndYear},
		Bucket:         climatology.Policy(cfg.BucketPolicy),
		MinSamples:     cfg.MinBucketSamples,
		Smoothing:      cfg.SmoothingWindow,
		HDDBase:        cfg.HDDBaseTemp,
		DegreeDay:      DegreeDayMethod(cfg.DegreeDayMethod),
		AirDensity:     cfg.AirDensityCorrection,
		SolarTempCoeff: cfg.SolarTempCoeff,
		Curves:         powercurve.DefaultCatalog(),
		Workers:        cfg.Workers,
		PublishRetries: cfg.PublishMaxRetries,
		RetryBackoff:   200 * time.Millisecond,
	}
}

func (s Settings) withDefaults() Settings {
	if s.Bucket == "" {
		s.Bucket = climatology.PolicyDayOfYear
	}
	if s.Smoothing < 1 {
		s.Smoothing = 1
	}
	if s.DegreeDay == "" {
		s.DegreeDay = DailyMean
	}
	if s.Curves == nil {
		s.Curves = powercurve.DefaultCatalog()
	}
	if s.Workers < 1 {
		s.Workers = 1
	}
	if s.RetryBackoff <= 0 {
		s.RetryBackoff = 200 * time.Millisecond
	}
	return s
}

// span covers both the baseline years and the event so each facility is
// sampled once.
func (s Settings) span() domain.TimeRange {
	r := s.Baseline.Range(s.Event.Start.Location())
	if s.Event.Start.Before(r.Start) {
		r.Start = s.Event.Start
	}
	if s.Event.End.After(r.End) {
		r.End = s.Event.End
	}
	return r
}
