package pipeline

import (
	"errors"
	"time"

	"github.com/couchcryptid/storm-energy-impact/internal/climatology"
	"github.com/couchcryptid/storm-energy-impact/internal/degreeday"
	"github.com/couchcryptid/storm-energy-impact/internal/domain"
	"github.com/couchcryptid/storm-energy-impact/internal/powercurve"
	"github.com/couchcryptid/storm-energy-impact/internal/sampler"
)

// facilityOutput carries one facility's result plus the unsmoothed daily
// series the fleet rollups are built from.
type facilityOutput struct {
	facility domain.Facility
	result   FacilityResult
	daily    map[string]domain.Series
	failure  *FacilityFailure
}

func (p *Pipeline) analyzeFacility(f domain.Facility) facilityOutput {
	start := time.Now()
	out := facilityOutput{facility: f}

	daily, cell, err := p.derive(f)
	if err == nil {
		out.result = FacilityResult{
			FacilityID: f.ID,
			Name:       f.Name,
			Kind:       f.Kind,
			Region:     f.Region,
			Place:      f.Place,
			Cell:       cell,
		}
		for _, s := range daily {
			var mr MetricResult
			mr, err = p.score(s)
			if err != nil {
				break
			}
			out.result.Metrics = append(out.result.Metrics, mr)
		}
	}
	if err != nil {
		out.failure = p.failure(f, err)
		return out
	}

	out.daily = make(map[string]domain.Series, len(daily))
	for _, s := range daily {
		out.daily[s.Metric] = s
	}
	p.metrics.FacilitiesAnalyzed.WithLabelValues(string(f.Kind)).Inc()
	p.metrics.FacilityDuration.WithLabelValues(string(f.Kind)).Observe(time.Since(start).Seconds())
	return out
}

func (p *Pipeline) failure(f domain.Facility, err error) *FacilityFailure {
	stage, metric := StageDerive, ""
	var se *stageError
	if errors.As(err, &se) {
		stage, metric = se.stage, se.metric
	}
	window := p.settings.span()
	if stage == StageCompare {
		window = p.settings.Event
	}
	ff := &FacilityFailure{
		FacilityID: f.ID,
		Kind:       f.Kind,
		Stage:      stage,
		Metric:     metric,
		Window:     window,
		Reason:     domain.ErrorKind(err),
		Error:      err.Error(),
	}
	p.metrics.FacilityFailures.WithLabelValues(ff.Stage, ff.Reason).Inc()
	p.logger.Warn("facility analysis failed, skipping",
		"facility", f.ID,
		"kind", f.Kind,
		"stage", ff.Stage,
		"metric", ff.Metric,
		"reason", ff.Reason,
		"error", err,
	)
	return ff
}

// derive samples the facility's cell and returns its daily metric series.
func (p *Pipeline) derive(f domain.Facility) ([]domain.Series, domain.Cell, error) {
	if err := f.Validate(); err != nil {
		return nil, domain.Cell{}, atStage(StageValidate, "", err)
	}
	cell, err := sampler.Locate(p.ds, f.Coordinates.Lat, f.Coordinates.Lon)
	if err != nil {
		return nil, domain.Cell{}, atStage(StageSample, "", err)
	}

	var daily []domain.Series
	switch f.Kind {
	case domain.KindLoad:
		daily, err = p.deriveLoad(f)
	case domain.KindWind:
		daily, err = p.deriveWind(f)
	case domain.KindSolar:
		daily, err = p.deriveSolar(f)
	}
	return daily, cell, err
}

func (p *Pipeline) sample(f domain.Facility, v domain.Variable) (domain.Series, error) {
	s, err := sampler.Sample(p.ds, v, f.Coordinates.Lat, f.Coordinates.Lon, p.settings.span())
	if err != nil {
		return domain.Series{}, atStage(StageSample, string(v), err)
	}
	s.FacilityID = f.ID
	p.metrics.SamplesExtracted.Add(float64(s.Len()))
	return s, nil
}

func (p *Pipeline) deriveLoad(f domain.Facility) ([]domain.Series, error) {
	t2, err := p.sample(f, domain.VarTemperature2m)
	if err != nil {
		return nil, err
	}
	celsius, err := degreeday.CelsiusFromKelvin(t2)
	if err != nil {
		return nil, atStage(StageDerive, degreeday.MetricHDD, err)
	}

	base := p.settings.HDDBase
	if f.Load.BaseTemperature != nil {
		base = *f.Load.BaseTemperature
	}
	var demand domain.Series
	if p.settings.DegreeDay == HourlySum {
		demand, err = degreeday.HeatingDegreeHours(celsius, base)
	} else {
		demand, err = degreeday.HeatingDegreeDays(celsius, base)
	}
	if err != nil {
		return nil, atStage(StageDerive, degreeday.MetricHDD, err)
	}
	return []domain.Series{demand}, nil
}

func (p *Pipeline) deriveWind(f domain.Facility) ([]domain.Series, error) {
	u, v := domain.VarWindU100, domain.VarWindV100
	if !p.ds.Has(u) || !p.ds.Has(v) {
		u, v = domain.VarWindU10, domain.VarWindV10
	}
	speed, err := sampler.SampleWindSpeed(p.ds, u, v, f.Coordinates.Lat, f.Coordinates.Lon, p.settings.span())
	if err != nil {
		return nil, atStage(StageSample, string(u), err)
	}
	speed.FacilityID = f.ID
	p.metrics.SamplesExtracted.Add(float64(2 * speed.Len()))

	curve, err := p.settings.Curves.Lookup(f.Wind.CurveID)
	if err != nil {
		return nil, atStage(StageDerive, powercurve.MetricWindCF, err)
	}
	cf, err := powercurve.WindCapacityFactor(speed, curve)
	if err != nil {
		return nil, atStage(StageDerive, powercurve.MetricWindCF, err)
	}

	if p.settings.AirDensity && p.ds.Has(domain.VarSurfacePressure) && p.ds.Has(domain.VarTemperature2m) {
		sp, err := p.sample(f, domain.VarSurfacePressure)
		if err != nil {
			return nil, err
		}
		t2, err := p.sample(f, domain.VarTemperature2m)
		if err != nil {
			return nil, err
		}
		if cf, err = powercurve.AirDensityCorrection(cf, sp, t2); err != nil {
			return nil, atStage(StageDerive, powercurve.MetricWindCF, err)
		}
	}
	return p.dailyWithProduction(cf, f.Wind.CapacityMW)
}

func (p *Pipeline) deriveSolar(f domain.Facility) ([]domain.Series, error) {
	ssrd, err := p.sample(f, domain.VarSolarRadiation)
	if err != nil {
		return nil, err
	}
	irradiance, err := powercurve.IrradianceFromAccumulated(ssrd, p.step())
	if err != nil {
		return nil, atStage(StageDerive, powercurve.MetricSolarCF, err)
	}
	cf, err := powercurve.SolarCapacityFactor(irradiance, f.Solar.Panel)
	if err != nil {
		return nil, atStage(StageDerive, powercurve.MetricSolarCF, err)
	}

	coeff := p.settings.SolarTempCoeff
	if f.Solar.Panel.TempCoefficient != nil {
		coeff = *f.Solar.Panel.TempCoefficient
	}
	if coeff != 0 && p.ds.Has(domain.VarTemperature2m) {
		t2, err := p.sample(f, domain.VarTemperature2m)
		if err != nil {
			return nil, err
		}
		celsius, err := degreeday.CelsiusFromKelvin(t2)
		if err != nil {
			return nil, atStage(StageDerive, powercurve.MetricSolarCF, err)
		}
		if cf, err = powercurve.TemperatureDerate(cf, celsius, coeff); err != nil {
			return nil, atStage(StageDerive, powercurve.MetricSolarCF, err)
		}
	}
	return p.dailyWithProduction(cf, f.Solar.CapacityMW)
}

// dailyWithProduction averages an hourly capacity factor series per day and
// adds the matching MW series.
func (p *Pipeline) dailyWithProduction(cf domain.Series, capacityMW float64) ([]domain.Series, error) {
	if cf.Len() == 0 {
		return nil, atStage(StageDerive, cf.Metric, domain.ErrInsufficientData)
	}
	daily := domain.ResampleDaily(cf, domain.DailyMean)
	mw, err := powercurve.Production(daily, capacityMW)
	if err != nil {
		return nil, atStage(StageDerive, daily.Metric, err)
	}
	return []domain.Series{daily, mw}, nil
}

// step is the grid's native time step, used as the ssrd accumulation period.
func (p *Pipeline) step() time.Duration {
	times := p.ds.Times()
	if len(times) < 2 {
		return time.Hour
	}
	return times[1].Sub(times[0])
}

// score smooths a daily series, builds its baseline, and compares the event.
func (p *Pipeline) score(s domain.Series) (MetricResult, error) {
	cmp, b, err := p.compare(s)
	if err != nil {
		return MetricResult{}, err
	}
	low := b.LowConfidenceCount()
	p.metrics.LowConfidence.Add(float64(low))
	return MetricResult{
		Metric:               s.Metric,
		Unit:                 s.Unit,
		BaselineBuckets:      len(b.Buckets),
		LowConfidenceBuckets: low,
		Comparison:           cmp,
	}, nil
}

func (p *Pipeline) compare(s domain.Series) (climatology.EventComparison, *climatology.Baseline, error) {
	smoothed := s
	if p.settings.Smoothing > 1 {
		var err error
		if smoothed, err = climatology.RollingMean(s, p.settings.Smoothing); err != nil {
			return climatology.EventComparison{}, nil, atStage(StageBaseline, s.Metric, err)
		}
	}
	b, err := climatology.BuildBaseline(smoothed, climatology.Options{
		Bucket:     p.settings.Bucket,
		Window:     p.settings.Baseline,
		MinSamples: p.settings.MinSamples,
	})
	if err != nil {
		return climatology.EventComparison{}, nil, atStage(StageBaseline, s.Metric, err)
	}
	cmp, err := climatology.Compare(smoothed.Within(p.settings.Event), b)
	if err != nil {
		return climatology.EventComparison{}, nil, atStage(StageCompare, s.Metric, err)
	}
	return cmp, b, nil
}
