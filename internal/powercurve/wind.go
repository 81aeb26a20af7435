// Package powercurve converts wind speed and solar irradiance into normalized
// capacity factors and production. Every function is pure and elementwise.
package powercurve

import (
	"fmt"
	"math"
	"sort"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
)

const (
	MetricWindCF  = "wind_cf"
	MetricSolarCF = "solar_cf"
	MetricWindMW  = "wind_mw"
	MetricSolarMW = "solar_mw"

	UnitFraction = "1"
	UnitMW       = "MW"
)

// WindFactor evaluates the turbine curve at one hub-height wind speed in m/s.
func WindFactor(c domain.TurbineCurve, speed float64) (float64, error) {
	if math.IsNaN(speed) || speed < 0 {
		return 0, fmt.Errorf("%w: wind speed %g", domain.ErrInvalidInput, speed)
	}
	switch {
	case speed < c.CutIn, speed >= c.CutOut:
		return 0, nil
	case speed >= c.Rated:
		return 1, nil
	}
	if len(c.Points) > 0 {
		return interpolate(c, speed), nil
	}
	x := (speed - c.CutIn) / (c.Rated - c.CutIn)
	if c.Shape == domain.ShapeLinear {
		return x, nil
	}
	return x * x * x, nil
}

// interpolate walks the breakpoints anchored at (cut-in, 0) and (rated, 1).
func interpolate(c domain.TurbineCurve, speed float64) float64 {
	knots := make([]domain.CurvePoint, 0, len(c.Points)+2)
	knots = append(knots, domain.CurvePoint{Speed: c.CutIn})
	knots = append(knots, c.Points...)
	knots = append(knots, domain.CurvePoint{Speed: c.Rated, Factor: 1})

	i := sort.Search(len(knots), func(i int) bool { return knots[i].Speed > speed })
	if i == 0 {
		return knots[0].Factor
	}
	if i == len(knots) {
		return knots[len(knots)-1].Factor
	}
	lo, hi := knots[i-1], knots[i]
	return lo.Factor + (hi.Factor-lo.Factor)*(speed-lo.Speed)/(hi.Speed-lo.Speed)
}

// WindCapacityFactor maps a wind speed series through the turbine curve.
func WindCapacityFactor(speeds domain.Series, c domain.TurbineCurve) (domain.Series, error) {
	if err := c.Validate(); err != nil {
		return domain.Series{}, err
	}
	return speeds.Map(MetricWindCF, UnitFraction, func(s float64) (float64, error) {
		return WindFactor(c, s)
	})
}

// Standard dry-air constants for the density correction.
const (
	gasConstantDryAir = 287.05
	referenceDensity  = 1.225
)

// AirDensityRatio returns rho / 1.225 for surface pressure in Pa and
// temperature in K.
func AirDensityRatio(pressure, tempK float64) (float64, error) {
	if pressure <= 0 || tempK <= 0 {
		return 0, fmt.Errorf("%w: pressure %g Pa, temperature %g K", domain.ErrInvalidInput, pressure, tempK)
	}
	return pressure / (gasConstantDryAir * tempK) / referenceDensity, nil
}

// AirDensityCorrection scales a capacity factor series by the air density
// ratio at each timestamp and clips the result to [0, 1]. Cold dense air
// raises output, which the clip caps at nameplate.
func AirDensityCorrection(cf, pressure, tempK domain.Series) (domain.Series, error) {
	ratio, err := domain.Zip(pressure, tempK, "air_density_ratio", UnitFraction, AirDensityRatio)
	if err != nil {
		return domain.Series{}, err
	}
	return domain.Zip(cf, ratio, cf.Metric, cf.Unit, func(f, r float64) (float64, error) {
		return clip01(f * r), nil
	})
}

func clip01(x float64) float64 {
	return math.Min(1, math.Max(0, x))
}
