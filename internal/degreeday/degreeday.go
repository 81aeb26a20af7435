// Package degreeday turns temperature series into heating degree-day series.
package degreeday

import (
	"fmt"
	"math"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
)

// DefaultBase is the conventional heating base temperature in °C.
const DefaultBase = 18.0

const (
	MetricHDD = "hdd"
	MetricHDH = "hdh"

	UnitDegreeDays  = "°C·d"
	UnitDegreeHours = "°C·h"
	UnitCelsius     = "°C"
)

// kelvinOffset converts between K and °C.
const kelvinOffset = 273.15

// HeatingDegreeDays resamples temps (°C) to calendar days in the timestamps'
// own location using the daily mean, then returns max(0, base - mean) for
// each day. Days with no samples produce no point.
func HeatingDegreeDays(temps domain.Series, base float64) (domain.Series, error) {
	if err := check(temps, base); err != nil {
		return domain.Series{}, err
	}
	daily := domain.ResampleDaily(temps, domain.DailyMean)
	return daily.Map(MetricHDD, UnitDegreeDays, func(mean float64) (float64, error) {
		return math.Max(0, base-mean), nil
	})
}

// HeatingDegreeHours applies max(0, base - T) to every sample and sums each
// calendar day, giving degree-hours per day for hourly input.
func HeatingDegreeHours(temps domain.Series, base float64) (domain.Series, error) {
	if err := check(temps, base); err != nil {
		return domain.Series{}, err
	}
	deficit, err := temps.Map(MetricHDH, UnitDegreeHours, func(t float64) (float64, error) {
		return math.Max(0, base-t), nil
	})
	if err != nil {
		return domain.Series{}, err
	}
	return domain.ResampleDaily(deficit, domain.DailySum), nil
}

// CelsiusFromKelvin converts a 2 m temperature series from K to °C.
func CelsiusFromKelvin(temps domain.Series) (domain.Series, error) {
	return temps.Map(temps.Metric, UnitCelsius, func(k float64) (float64, error) {
		if k < 0 {
			return 0, fmt.Errorf("%w: negative absolute temperature %g K", domain.ErrInvalidInput, k)
		}
		return k - kelvinOffset, nil
	})
}

func check(temps domain.Series, base float64) error {
	if math.IsNaN(base) || math.IsInf(base, 0) {
		return fmt.Errorf("%w: base temperature %g", domain.ErrInvalidInput, base)
	}
	if temps.Len() == 0 {
		return fmt.Errorf("%w: no temperature observations for %s", domain.ErrInsufficientData, temps.FacilityID)
	}
	for _, p := range temps.Points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return fmt.Errorf("%w: non-finite temperature at %s", domain.ErrInvalidInput, p.Time)
		}
	}
	return nil
}
