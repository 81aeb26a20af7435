package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourly(start time.Time, values ...float64) Series {
	s := Series{FacilityID: "f1", Metric: "t2", Unit: "degC"}
	for i, v := range values {
		s.Points = append(s.Points, Point{Time: start.Add(time.Duration(i) * time.Hour), Value: v})
	}
	return s
}

func TestResampleDaily(t *testing.T) {
	start := time.Date(2021, time.February, 14, 22, 0, 0, 0, time.UTC)
	s := hourly(start, 1, 3, 10, 20, 30)

	t.Run("mean", func(t *testing.T) {
		daily := ResampleDaily(s, DailyMean)
		require.Len(t, daily.Points, 2)
		assert.Equal(t, time.Date(2021, time.February, 14, 0, 0, 0, 0, time.UTC), daily.Points[0].Time)
		assert.InDelta(t, 2.0, daily.Points[0].Value, 1e-12)
		assert.InDelta(t, 20.0, daily.Points[1].Value, 1e-12)
		assert.Equal(t, "f1", daily.FacilityID)
	})

	t.Run("sum", func(t *testing.T) {
		daily := ResampleDaily(s, DailySum)
		require.Len(t, daily.Points, 2)
		assert.InDelta(t, 4.0, daily.Points[0].Value, 1e-12)
		assert.InDelta(t, 60.0, daily.Points[1].Value, 1e-12)
	})

	t.Run("gap day omitted", func(t *testing.T) {
		gappy := Series{Points: []Point{
			{Time: time.Date(2021, 2, 1, 6, 0, 0, 0, time.UTC), Value: 1},
			{Time: time.Date(2021, 2, 3, 6, 0, 0, 0, time.UTC), Value: 3},
		}}
		daily := ResampleDaily(gappy, DailyMean)
		require.Len(t, daily.Points, 2)
		assert.Equal(t, 3, daily.Points[1].Time.Day())
	})

	t.Run("uses the timestamp location", func(t *testing.T) {
		central := time.FixedZone("CST", -6*3600)
		local := hourly(time.Date(2021, 2, 14, 23, 0, 0, 0, central), 5, 7)
		daily := ResampleDaily(local, DailyMean)
		require.Len(t, daily.Points, 2)
		assert.Equal(t, central, daily.Points[0].Time.Location())
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, ResampleDaily(Series{}, DailyMean).Points)
	})
}

func TestSeriesWithin(t *testing.T) {
	start := time.Date(2021, 2, 13, 0, 0, 0, 0, time.UTC)
	s := hourly(start, 0, 1, 2, 3, 4)

	got := s.Within(TimeRange{Start: start.Add(time.Hour), End: start.Add(3 * time.Hour)})
	assert.Equal(t, []float64{1, 2, 3}, got.Values())
}

func TestZip(t *testing.T) {
	start := time.Date(2021, 2, 13, 0, 0, 0, 0, time.UTC)
	u := hourly(start, 3, 0)
	v := hourly(start, 4, 2)

	out, err := Zip(u, v, "speed", "m s-1", func(x, y float64) (float64, error) { return x*x + y*y, nil })
	require.NoError(t, err)
	assert.Equal(t, []float64{25, 4}, out.Values())

	_, err = Zip(u, hourly(start, 1), "speed", "", func(x, y float64) (float64, error) { return 0, nil })
	require.ErrorIs(t, err, ErrInvalidInput)

	shifted := hourly(start.Add(time.Minute), 1, 2)
	_, err = Zip(u, shifted, "speed", "", func(x, y float64) (float64, error) { return 0, nil })
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSeriesMap_PropagatesError(t *testing.T) {
	s := hourly(time.Date(2021, 2, 13, 0, 0, 0, 0, time.UTC), 1, -1)
	_, err := s.Map("cf", "1", func(v float64) (float64, error) {
		if v < 0 {
			return 0, ErrInvalidInput
		}
		return v, nil
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "2021-02-13T01:00:00Z")
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrOutOfBounds, "out_of_bounds"},
		{ErrEmptyRange, "empty_range"},
		{ErrInsufficientData, "insufficient_data"},
		{ErrInvalidInput, "invalid_input"},
		{ErrBucketMismatch, "bucket_mismatch"},
		{ErrEmptyInput, "empty_input"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err))
	}
}
