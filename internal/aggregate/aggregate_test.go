package aggregate

import (
	"testing"
	"time"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2021, time.February, 15, 0, 0, 0, 0, time.UTC)

func at(days int) time.Time { return day.AddDate(0, 0, days) }

func series(id, metric string, values map[int]float64) domain.Series {
	s := domain.Series{FacilityID: id, Metric: metric, Unit: "1"}
	for d := -5; d <= 5; d++ {
		if v, ok := values[d]; ok {
			s.Points = append(s.Points, domain.Point{Time: at(d), Value: v})
		}
	}
	return s
}

func capacity(weights map[string]float64) func(string) float64 {
	return func(id string) float64 { return weights[id] }
}

func TestAggregate_WeightedMean(t *testing.T) {
	in := []domain.Series{
		series("F1", "wind_cf", map[int]float64{0: 10}),
		series("F2", "wind_cf", map[int]float64{0: 4}),
	}
	out, err := Aggregate(in, Weighting{Mode: WeightedMean, Weight: capacity(map[string]float64{"F1": 2, "F2": 1})})
	require.NoError(t, err)

	require.Len(t, out.Points, 1)
	assert.InDelta(t, 8.0, out.Points[0].Value, 1e-9)
	assert.Equal(t, 2, out.Points[0].Contributing)
	assert.Equal(t, "wind_cf", out.Metric)
	assert.Equal(t, WeightedMean, out.Mode)
}

func TestAggregate_WeightedSum(t *testing.T) {
	in := []domain.Series{
		series("houston", "hdd", map[int]float64{0: 20, 1: 15}),
		series("dallas", "hdd", map[int]float64{0: 25, 1: 18}),
	}
	out, err := Aggregate(in, Weighting{Mode: WeightedSum})
	require.NoError(t, err)
	assert.Equal(t, []float64{45, 33}, out.Series().Values())
	assert.InDelta(t, 78.0, out.Total(), 1e-9)
}

func TestAggregate_PartialParticipation(t *testing.T) {
	in := []domain.Series{
		series("F1", "solar_cf", map[int]float64{-1: 0.2, 0: 0.4}),
		series("F2", "solar_cf", map[int]float64{0: 0.6, 1: 0.8}),
	}
	out, err := Aggregate(in, Weighting{Mode: WeightedMean})
	require.NoError(t, err)

	require.Len(t, out.Points, 3)
	assert.Equal(t, at(-1), out.Points[0].Time)
	assert.Equal(t, at(1), out.Points[2].Time)
	assert.Equal(t, []int{1, 2, 1}, []int{out.Points[0].Contributing, out.Points[1].Contributing, out.Points[2].Contributing})
	assert.InDelta(t, 0.2, out.Points[0].Value, 1e-9)
	assert.InDelta(t, 0.5, out.Points[1].Value, 1e-9)
	assert.InDelta(t, 0.8, out.Points[2].Value, 1e-9)
}

func TestAggregate_Errors(t *testing.T) {
	_, err := Aggregate(nil, Weighting{Mode: WeightedSum})
	require.ErrorIs(t, err, domain.ErrEmptyInput)

	mixed := []domain.Series{
		series("F1", "wind_cf", map[int]float64{0: 1}),
		series("F2", "hdd", map[int]float64{0: 1}),
	}
	_, err = Aggregate(mixed, Weighting{Mode: WeightedSum})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	one := []domain.Series{series("F1", "wind_cf", map[int]float64{0: 1})}
	_, err = Aggregate(one, Weighting{Mode: WeightedMean, Weight: func(string) float64 { return -1 }})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Aggregate(one, Weighting{Mode: WeightedMean, Weight: func(string) float64 { return 0 }})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Aggregate(one, Weighting{Mode: "median"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAggregate_RepeatedTimestamp(t *testing.T) {
	f1 := series("F1", "wind_cf", map[int]float64{0: 0.5})
	f1.Points = append(f1.Points, domain.Point{Time: at(0), Value: 0.9})
	in := []domain.Series{f1, series("F2", "wind_cf", map[int]float64{0: 0.3})}

	_, err := Aggregate(in, Weighting{Mode: WeightedMean})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "F1")

	_, err = AggregateBy(in, Weighting{Mode: WeightedSum}, func(string) string { return "ERCOT" })
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAggregateBy(t *testing.T) {
	in := []domain.Series{
		series("austin", "hdd", map[int]float64{0: 10}),
		series("san-antonio", "hdd", map[int]float64{0: 8}),
		series("el-paso", "hdd", map[int]float64{0: 12}),
		series("unassigned", "hdd", map[int]float64{0: 99}),
	}
	regions := map[string]string{"austin": "ERCOT-South", "san-antonio": "ERCOT-South", "el-paso": "WECC"}

	out, err := AggregateBy(in, Weighting{Mode: WeightedSum}, func(id string) string { return regions[id] })
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "ERCOT-South", out["ERCOT-South"].Group)
	assert.InDelta(t, 18.0, out["ERCOT-South"].Points[0].Value, 1e-9)
	assert.Equal(t, 2, out["ERCOT-South"].Points[0].Contributing)
	assert.InDelta(t, 12.0, out["WECC"].Points[0].Value, 1e-9)

	_, err = AggregateBy(nil, Weighting{Mode: WeightedSum}, func(string) string { return "x" })
	require.ErrorIs(t, err, domain.ErrEmptyInput)
}
