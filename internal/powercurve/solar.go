package powercurve

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
)

// SolarFactor returns clip(irradiance / reference * derate, 0, 1).
func SolarFactor(irradiance float64, p domain.PanelSpec) (float64, error) {
	if math.IsNaN(irradiance) || irradiance < 0 {
		return 0, fmt.Errorf("%w: irradiance %g", domain.ErrInvalidInput, irradiance)
	}
	p = p.Normalized()
	if p.ReferenceIrradiance < 0 || p.Derate < 0 {
		return 0, fmt.Errorf("%w: panel reference %g derate %g", domain.ErrInvalidInput, p.ReferenceIrradiance, p.Derate)
	}
	return clip01(irradiance / p.ReferenceIrradiance * p.Derate), nil
}

// SolarCapacityFactor maps an irradiance series in W/m² to capacity factors.
func SolarCapacityFactor(irradiance domain.Series, p domain.PanelSpec) (domain.Series, error) {
	return irradiance.Map(MetricSolarCF, UnitFraction, func(irr float64) (float64, error) {
		return SolarFactor(irr, p)
	})
}

// IrradianceFromAccumulated converts ERA5 ssrd (J/m² accumulated over step)
// to mean irradiance in W/m². Packing noise can leave small negative
// accumulations at night; those floor at zero.
func IrradianceFromAccumulated(ssrd domain.Series, step time.Duration) (domain.Series, error) {
	if step <= 0 {
		return domain.Series{}, fmt.Errorf("%w: accumulation step %s", domain.ErrInvalidInput, step)
	}
	seconds := step.Seconds()
	return ssrd.Map("irradiance", "W m-2", func(j float64) (float64, error) {
		return math.Max(0, j/seconds), nil
	})
}

// TemperatureDerate applies 1 + coeff * (T - 25 °C) to a capacity factor
// series and clips to [0, 1].
func TemperatureDerate(cf, tempC domain.Series, coeff float64) (domain.Series, error) {
	return domain.Zip(cf, tempC, cf.Metric, cf.Unit, func(f, t float64) (float64, error) {
		return clip01(f * (1 + coeff*(t-25))), nil
	})
}

// Production converts a capacity factor series into MW for the given
// nameplate capacity. wind_cf becomes wind_mw, solar_cf becomes solar_mw.
func Production(cf domain.Series, capacityMW float64) (domain.Series, error) {
	if capacityMW < 0 || math.IsNaN(capacityMW) || math.IsInf(capacityMW, 0) {
		return domain.Series{}, fmt.Errorf("%w: capacity %g MW", domain.ErrInvalidInput, capacityMW)
	}
	metric := strings.TrimSuffix(cf.Metric, "_cf") + "_mw"
	return cf.Map(metric, UnitMW, func(f float64) (float64, error) {
		return f * capacityMW, nil
	})
}
