package domain

import (
	"fmt"
	"sort"
	"time"
)

// Variable names a meteorological field carried by a grid.
type Variable string

const (
	VarTemperature2m   Variable = "t2"
	VarWindU10         Variable = "u10"
	VarWindV10         Variable = "v10"
	VarWindU100        Variable = "u100"
	VarWindV100        Variable = "v100"
	VarSolarRadiation  Variable = "ssrd"
	VarSurfacePressure Variable = "sp"
)

// Dataset is a read-only gridded time series keyed by (time, latitude, longitude).
// Implementations must be safe for concurrent readers.
type Dataset interface {
	Times() []time.Time
	Latitudes() []float64
	Longitudes() []float64
	Has(v Variable) bool
	Units(v Variable) string
	// Value returns the field at the given time, latitude and longitude indices.
	Value(v Variable, t, lat, lon int) float64
}

// Field is one variable's data, flattened in [time][lat][lon] order.
type Field struct {
	Units  string    `json:"units"`
	Values []float64 `json:"values"`
}

// Grid is an in-memory rectilinear Dataset.
type Grid struct {
	times  []time.Time
	lats   []float64
	lons   []float64
	fields map[Variable]Field
}

// NewGrid validates the axes and field sizes and returns a Grid. The slices are
// retained, not copied; callers must not modify them afterwards.
func NewGrid(times []time.Time, lats, lons []float64, fields map[Variable]Field) (*Grid, error) {
	if len(times) == 0 || len(lats) == 0 || len(lons) == 0 {
		return nil, fmt.Errorf("%w: grid axes must be non-empty (time=%d lat=%d lon=%d)", ErrInvalidInput, len(times), len(lats), len(lons))
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			return nil, fmt.Errorf("%w: time axis not strictly increasing at index %d", ErrInvalidInput, i)
		}
	}
	if !strictlyMonotonic(lats) {
		return nil, fmt.Errorf("%w: latitude axis not strictly monotonic", ErrInvalidInput)
	}
	if !strictlyMonotonic(lons) {
		return nil, fmt.Errorf("%w: longitude axis not strictly monotonic", ErrInvalidInput)
	}
	want := len(times) * len(lats) * len(lons)
	for name, f := range fields {
		if len(f.Values) != want {
			return nil, fmt.Errorf("%w: variable %s has %d values, want %d", ErrInvalidInput, name, len(f.Values), want)
		}
	}
	return &Grid{times: times, lats: lats, lons: lons, fields: fields}, nil
}

func strictlyMonotonic(axis []float64) bool {
	if len(axis) < 2 {
		return true
	}
	asc := axis[1] > axis[0]
	for i := 1; i < len(axis); i++ {
		if asc && !(axis[i] > axis[i-1]) {
			return false
		}
		if !asc && !(axis[i] < axis[i-1]) {
			return false
		}
	}
	return true
}

func (g *Grid) Times() []time.Time    { return g.times }
func (g *Grid) Latitudes() []float64  { return g.lats }
func (g *Grid) Longitudes() []float64 { return g.lons }

func (g *Grid) Has(v Variable) bool {
	_, ok := g.fields[v]
	return ok
}

func (g *Grid) Units(v Variable) string { return g.fields[v].Units }

func (g *Grid) Value(v Variable, t, lat, lon int) float64 {
	return g.fields[v].Values[(t*len(g.lats)+lat)*len(g.lons)+lon]
}

// Variables lists the fields carried by the grid in name order.
func (g *Grid) Variables() []Variable {
	out := make([]Variable, 0, len(g.fields))
	for v := range g.fields {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Cell identifies the grid point chosen for a coordinate.
type Cell struct {
	LatIndex int     `json:"lat_index"`
	LonIndex int     `json:"lon_index"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}
