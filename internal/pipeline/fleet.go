package pipeline

import (
	"math"
	"sort"

	"github.com/couchcryptid/storm-energy-impact/internal/aggregate"
	"github.com/couchcryptid/storm-energy-impact/internal/degreeday"
	"github.com/couchcryptid/storm-energy-impact/internal/domain"
	"github.com/couchcryptid/storm-energy-impact/internal/powercurve"
)

// fleetSpec says how one metric combines across facilities. Derived specs
// aggregate another metric's series and rename the result.
type fleetSpec struct {
	metric string
	source string
	unit   string
	mode   aggregate.Mode
	weight bool
}

func (p *Pipeline) demandMetric() string {
	if p.settings.DegreeDay == HourlySum {
		return degreeday.MetricHDH
	}
	return degreeday.MetricHDD
}

func (p *Pipeline) fleetSpecs() []fleetSpec {
	return []fleetSpec{
		{metric: p.demandMetric(), mode: aggregate.WeightedSum},
		{metric: powercurve.MetricWindCF, mode: aggregate.WeightedMean, weight: true},
		{metric: powercurve.MetricWindMW, source: powercurve.MetricWindCF, unit: powercurve.UnitMW, mode: aggregate.WeightedSum, weight: true},
		{metric: powercurve.MetricSolarCF, mode: aggregate.WeightedMean, weight: true},
		{metric: powercurve.MetricSolarMW, source: powercurve.MetricSolarCF, unit: powercurve.UnitMW, mode: aggregate.WeightedSum, weight: true},
	}
}

func weights(outputs []facilityOutput) func(string) float64 {
	w := make(map[string]float64, len(outputs))
	for _, out := range outputs {
		w[out.facility.ID] = out.facility.Weight()
	}
	return func(id string) float64 { return w[id] }
}

func collect(outputs []facilityOutput, metric string) []domain.Series {
	var series []domain.Series
	for _, out := range outputs {
		if s, ok := out.daily[metric]; ok {
			series = append(series, s)
		}
	}
	return series
}

// fleet builds one result per metric with at least one contributing facility.
func (p *Pipeline) fleet(outputs []facilityOutput) []FleetResult {
	results := []FleetResult{}
	for _, spec := range p.fleetSpecs() {
		source := spec.source
		if source == "" {
			source = spec.metric
		}
		series := collect(outputs, source)
		if len(series) == 0 {
			continue
		}

		w := aggregate.Weighting{Mode: spec.mode}
		if spec.weight {
			w.Weight = weights(outputs)
		}
		fs, err := aggregate.Aggregate(series, w)
		if err != nil {
			p.logger.Warn("fleet aggregation failed", "metric", spec.metric, "error", err)
			results = append(results, FleetResult{Metric: spec.metric, Mode: spec.mode, Facilities: len(series), Error: err.Error()})
			continue
		}
		fs.Group = "fleet"
		fs.Metric = spec.metric
		if spec.unit != "" {
			fs.Unit = spec.unit
		}

		res := FleetResult{
			Metric:     spec.metric,
			Unit:       fs.Unit,
			Mode:       spec.mode,
			Facilities: len(series),
			Event:      eventOnly(fs, p.settings.Event),
		}
		if cmp, _, err := p.compare(fs.Series()); err != nil {
			p.logger.Warn("fleet comparison failed", "metric", spec.metric, "reason", domain.ErrorKind(err), "error", err)
			res.Error = err.Error()
		} else {
			res.Comparison = &cmp
		}
		results = append(results, res)
	}
	return results
}

// regions totals demand and production per facility region over the event.
func (p *Pipeline) regions(outputs []facilityOutput) []RegionResult {
	region := make(map[string]string, len(outputs))
	for _, out := range outputs {
		region[out.facility.ID] = out.facility.Region
	}
	group := func(id string) string { return region[id] }

	results := []RegionResult{}
	for _, metric := range []string{p.demandMetric(), powercurve.MetricWindMW, powercurve.MetricSolarMW} {
		var series []domain.Series
		for _, s := range collect(outputs, metric) {
			if ev := s.Within(p.settings.Event); ev.Len() > 0 {
				series = append(series, ev)
			}
		}
		if len(series) == 0 {
			continue
		}
		groups, err := aggregate.AggregateBy(series, aggregate.Weighting{Mode: aggregate.WeightedSum}, group)
		if err != nil {
			p.logger.Warn("regional rollup failed", "metric", metric, "error", err)
			continue
		}
		members := make(map[string]int)
		for _, s := range series {
			members[region[s.FacilityID]]++
		}
		for name, fs := range groups {
			results = append(results, RegionResult{
				Region:     name,
				Metric:     metric,
				Unit:       fs.Unit,
				Facilities: members[name],
				Event:      fs,
				Total:      fs.Total(),
				Peak:       peak(fs),
			})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Metric != results[j].Metric {
			return results[i].Metric < results[j].Metric
		}
		return results[i].Region < results[j].Region
	})
	return results
}

func eventOnly(fs aggregate.FleetSeries, r domain.TimeRange) aggregate.FleetSeries {
	out := fs
	out.Points = make([]aggregate.FleetPoint, 0, len(fs.Points))
	for _, pt := range fs.Points {
		if r.Contains(pt.Time) {
			out.Points = append(out.Points, pt)
		}
	}
	return out
}

func peak(fs aggregate.FleetSeries) float64 {
	m := math.Inf(-1)
	for _, pt := range fs.Points {
		m = math.Max(m, pt.Value)
	}
	if math.IsInf(m, -1) {
		return 0
	}
	return m
}
