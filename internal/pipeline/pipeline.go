package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
	"github.com/couchcryptid/storm-energy-impact/internal/observability"
)

// Publisher delivers a finished report downstream.
type Publisher interface {
	Publish(ctx context.Context, report *Report) error
}

// Pipeline runs the impact analysis for a fixed set of facilities against one
// gridded dataset and publishes the resulting report.
type Pipeline struct {
	ds         domain.Dataset
	facilities []domain.Facility
	settings   Settings
	publisher  Publisher
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
	latest     atomic.Pointer[Report]
}

// New creates a Pipeline. A nil publisher keeps reports local.
func New(ds domain.Dataset, facilities []domain.Facility, settings Settings, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		ds:         ds,
		facilities: facilities,
		settings:   settings.withDefaults(),
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once a report has been produced.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("impact analysis has not completed yet")
	}
	return nil
}

// Latest returns the most recent report, or nil before the first run completes.
func (p *Pipeline) Latest() *Report {
	return p.latest.Load()
}

// Run analyzes every facility, stores the report, and publishes it. The report
// is returned even when publishing fails.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report, err := p.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	p.latest.Store(report)
	p.ready.Store(true)

	if p.publisher == nil {
		return report, nil
	}
	if err := p.publish(ctx, report); err != nil {
		return report, err
	}
	return report, nil
}

// Analyze scores every facility and builds the fleet and regional rollups.
// A facility that fails is recorded in the report and does not abort the run.
func (p *Pipeline) Analyze(ctx context.Context) (*Report, error) {
	start := time.Now()
	p.metrics.AnalysisRunning.Set(1)
	defer p.metrics.AnalysisRunning.Set(0)

	p.logger.Info("impact analysis started",
		"event", p.settings.EventName,
		"facilities", len(p.facilities),
		"baseline_start", p.settings.Baseline.Start,
		"baseline_end", p.settings.Baseline.End,
		"bucket_policy", p.settings.Bucket,
		"workers", p.settings.Workers,
	)

	outputs := make([]facilityOutput, len(p.facilities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.settings.Workers)
	for i, f := range p.facilities {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outputs[i] = p.analyzeFacility(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze facilities: %w", err)
	}

	report := &Report{
		RunID:       uuid.New(),
		GeneratedAt: domain.Now(),
		Event: EventInfo{
			Name:     p.settings.EventName,
			Window:   p.settings.Event,
			Baseline: p.settings.Baseline,
			Bucket:   p.settings.Bucket,
		},
		Facilities: []FacilityResult{},
		Failures:   []FacilityFailure{},
	}
	var ok []facilityOutput
	for _, out := range outputs {
		if out.failure != nil {
			report.Failures = append(report.Failures, *out.failure)
			continue
		}
		report.Facilities = append(report.Facilities, out.result)
		ok = append(ok, out)
	}
	report.Fleet = p.fleet(ok)
	report.Regions = p.regions(ok)

	elapsed := time.Since(start)
	p.metrics.AnalysisDuration.Observe(elapsed.Seconds())
	p.logger.Info("impact analysis finished",
		"run_id", report.RunID,
		"analyzed", len(report.Facilities),
		"failed", len(report.Failures),
		"fleet_metrics", len(report.Fleet),
		"regions", len(report.Regions),
		"duration", elapsed,
	)
	return report, nil
}

// publish delivers the report with exponential backoff, doubling from the
// configured delay up to 5s.
func (p *Pipeline) publish(ctx context.Context, report *Report) error {
	backoff := p.settings.RetryBackoff
	maxBackoff := 5 * time.Second

	var err error
	for attempt := 0; attempt <= p.settings.PublishRetries; attempt++ {
		if err = p.publisher.Publish(ctx, report); err == nil {
			p.metrics.RecordsPublished.Add(float64(report.Records()))
			p.logger.Info("report published", "run_id", report.RunID, "records", report.Records(), "attempt", attempt+1)
			return nil
		}
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish report failed", "error", err, "run_id", report.RunID, "attempt", attempt+1)

		if attempt == p.settings.PublishRetries || !sharedretry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = sharedretry.NextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("publish report %s: %w", report.RunID, err)
}
