package domain

import (
	"fmt"
	"math"
)

// FacilityKind selects which attribute record of a Facility is populated.
type FacilityKind string

const (
	KindWind  FacilityKind = "wind"
	KindSolar FacilityKind = "solar"
	KindLoad  FacilityKind = "load"
)

// Coordinates is a WGS-84 latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IsZero reports whether both coordinates are unset.
func (c Coordinates) IsZero() bool { return c.Lat == 0 && c.Lon == 0 }

// CurveShape is the ramp used between cut-in and rated speed when a turbine
// curve has no explicit breakpoints.
type CurveShape string

const (
	ShapeCubic  CurveShape = "cubic"
	ShapeLinear CurveShape = "linear"
)

// CurvePoint is one (wind speed, capacity factor) breakpoint.
type CurvePoint struct {
	Speed  float64 `json:"speed"`
	Factor float64 `json:"factor"`
}

// TurbineCurve describes a turbine's normalized power curve in m/s.
type TurbineCurve struct {
	ID     string       `json:"id"`
	CutIn  float64      `json:"cut_in"`
	Rated  float64      `json:"rated"`
	CutOut float64      `json:"cut_out"`
	Shape  CurveShape   `json:"shape,omitempty"`
	Points []CurvePoint `json:"points,omitempty"`
}

// Validate checks 0 <= cut-in < rated < cut-out and that any breakpoints are
// ordered, lie within [cut-in, rated] and carry factors in [0, 1].
func (c TurbineCurve) Validate() error {
	if !(c.CutIn >= 0 && c.CutIn < c.Rated && c.Rated < c.CutOut) {
		return fmt.Errorf("%w: turbine curve %q needs 0 <= cut-in < rated < cut-out, got %g/%g/%g",
			ErrInvalidInput, c.ID, c.CutIn, c.Rated, c.CutOut)
	}
	switch c.Shape {
	case "", ShapeCubic, ShapeLinear:
	default:
		return fmt.Errorf("%w: turbine curve %q has unknown shape %q", ErrInvalidInput, c.ID, c.Shape)
	}
	for i, p := range c.Points {
		if p.Speed < c.CutIn || p.Speed > c.Rated || p.Factor < 0 || p.Factor > 1 {
			return fmt.Errorf("%w: turbine curve %q breakpoint %d (%g, %g) out of range", ErrInvalidInput, c.ID, i, p.Speed, p.Factor)
		}
		if i > 0 && p.Speed <= c.Points[i-1].Speed {
			return fmt.Errorf("%w: turbine curve %q breakpoints not increasing at %d", ErrInvalidInput, c.ID, i)
		}
	}
	return nil
}

// DefaultReferenceIrradiance is the standard test condition irradiance in W/m².
const DefaultReferenceIrradiance = 1000.0

// PanelSpec holds the solar panel characteristics used by the power model.
type PanelSpec struct {
	// ReferenceIrradiance in W/m² at which the panel reaches nameplate output.
	ReferenceIrradiance float64 `json:"reference_irradiance"`
	// Derate scales output for inverter, soiling and wiring losses. Zero means 1.
	Derate float64 `json:"derate"`
	// TempCoefficient is the fractional output change per °C above 25 °C.
	// Nil uses the configured coefficient; an explicit zero disables the
	// temperature derate for this plant.
	TempCoefficient *float64 `json:"temp_coefficient,omitempty"`
}

// Normalized fills defaults for unset fields.
func (p PanelSpec) Normalized() PanelSpec {
	if p.ReferenceIrradiance == 0 {
		p.ReferenceIrradiance = DefaultReferenceIrradiance
	}
	if p.Derate == 0 {
		p.Derate = 1
	}
	return p
}

type WindAttrs struct {
	CapacityMW float64 `json:"capacity_mw"`
	CurveID    string  `json:"curve_id"`
}

type SolarAttrs struct {
	CapacityMW float64   `json:"capacity_mw"`
	Panel      PanelSpec `json:"panel"`
}

type LoadAttrs struct {
	// Population weights the center in demand rollups. Zero means 1.
	Population float64 `json:"population,omitempty"`
	// BaseTemperature overrides the configured degree-day base in °C.
	BaseTemperature *float64 `json:"base_temperature,omitempty"`
}

// Facility is a point entity consumed read-only by the engine.
type Facility struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Kind        FacilityKind `json:"kind"`
	Coordinates Coordinates  `json:"coordinates"`
	Region      string       `json:"region,omitempty"`
	Place       string       `json:"place,omitempty"`

	Wind  *WindAttrs  `json:"wind,omitempty"`
	Solar *SolarAttrs `json:"solar,omitempty"`
	Load  *LoadAttrs  `json:"load,omitempty"`
}

// Validate checks that exactly the attribute record matching Kind is set and
// that its values are physically meaningful.
func (f Facility) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("%w: facility id is required", ErrInvalidInput)
	}
	if math.Abs(f.Coordinates.Lat) > 90 {
		return fmt.Errorf("%w: facility %s latitude %g", ErrInvalidInput, f.ID, f.Coordinates.Lat)
	}
	set := 0
	for _, ok := range []bool{f.Wind != nil, f.Solar != nil, f.Load != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: facility %s must carry exactly one attribute record, has %d", ErrInvalidInput, f.ID, set)
	}
	switch f.Kind {
	case KindWind:
		if f.Wind == nil {
			return fmt.Errorf("%w: wind facility %s has no wind attributes", ErrInvalidInput, f.ID)
		}
		if f.Wind.CapacityMW <= 0 {
			return fmt.Errorf("%w: wind facility %s capacity %g", ErrInvalidInput, f.ID, f.Wind.CapacityMW)
		}
	case KindSolar:
		if f.Solar == nil {
			return fmt.Errorf("%w: solar facility %s has no solar attributes", ErrInvalidInput, f.ID)
		}
		if f.Solar.CapacityMW <= 0 {
			return fmt.Errorf("%w: solar facility %s capacity %g", ErrInvalidInput, f.ID, f.Solar.CapacityMW)
		}
	case KindLoad:
		if f.Load == nil {
			return fmt.Errorf("%w: load center %s has no load attributes", ErrInvalidInput, f.ID)
		}
		if f.Load.Population < 0 {
			return fmt.Errorf("%w: load center %s population %g", ErrInvalidInput, f.ID, f.Load.Population)
		}
	default:
		return fmt.Errorf("%w: facility %s has unknown kind %q", ErrInvalidInput, f.ID, f.Kind)
	}
	return nil
}

// Weight returns the facility's aggregation weight: nameplate capacity for
// generators, population for load centers.
func (f Facility) Weight() float64 {
	switch f.Kind {
	case KindWind:
		return f.Wind.CapacityMW
	case KindSolar:
		return f.Solar.CapacityMW
	case KindLoad:
		if f.Load.Population > 0 {
			return f.Load.Population
		}
		return 1
	}
	return 0
}
