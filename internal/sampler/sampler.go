// Package sampler extracts point time series from a gridded dataset.
//
// Selection is nearest grid cell in the dataset's native coordinates. When a
// coordinate is exactly equidistant from two grid lines the lower index wins,
// so results never depend on iteration order. Longitudes are wrapped into the
// grid's own convention (0–360° or −180–180°) before lookup; a longitude
// already on the axis, edges included, is used unchanged.
package sampler

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
)

// Locate returns the grid cell nearest to (lat, lon).
func Locate(ds domain.Dataset, lat, lon float64) (domain.Cell, error) {
	lats, lons := ds.Latitudes(), ds.Longitudes()
	lon = normalizeLon(lon, lons)

	if !within(lat, lats) || !within(lon, lons) {
		lo, hi := bounds(lats)
		wlo, whi := bounds(lons)
		return domain.Cell{}, fmt.Errorf("%w: (%.4f, %.4f) outside lat [%g, %g] lon [%g, %g]",
			domain.ErrOutOfBounds, lat, lon, lo, hi, wlo, whi)
	}

	i := nearest(lats, lat)
	j := nearest(lons, lon)
	return domain.Cell{LatIndex: i, LonIndex: j, Lat: lats[i], Lon: lons[j]}, nil
}

// Sample extracts the variable at the cell nearest (lat, lon) for every grid
// timestamp inside the inclusive window.
func Sample(ds domain.Dataset, v domain.Variable, lat, lon float64, window domain.TimeRange) (domain.Series, error) {
	if !ds.Has(v) {
		return domain.Series{}, fmt.Errorf("%w: dataset has no variable %q", domain.ErrInvalidInput, v)
	}
	cell, err := Locate(ds, lat, lon)
	if err != nil {
		return domain.Series{}, err
	}
	from, to, err := timeSpan(ds.Times(), window)
	if err != nil {
		return domain.Series{}, err
	}

	times := ds.Times()
	points := make([]domain.Point, 0, to-from)
	for t := from; t < to; t++ {
		points = append(points, domain.Point{Time: times[t], Value: ds.Value(v, t, cell.LatIndex, cell.LonIndex)})
	}
	return domain.Series{Metric: string(v), Unit: ds.Units(v), Points: points}, nil
}

// SampleWindSpeed samples a u/v component pair and returns the scalar speed
// sqrt(u² + v²) in m/s.
func SampleWindSpeed(ds domain.Dataset, u, v domain.Variable, lat, lon float64, window domain.TimeRange) (domain.Series, error) {
	us, err := Sample(ds, u, lat, lon, window)
	if err != nil {
		return domain.Series{}, err
	}
	vs, err := Sample(ds, v, lat, lon, window)
	if err != nil {
		return domain.Series{}, err
	}
	return domain.Zip(us, vs, "wind_speed", "m s-1", func(x, y float64) (float64, error) {
		return math.Hypot(x, y), nil
	})
}

// timeSpan returns the half-open index range [from, to) of times inside window.
func timeSpan(times []time.Time, window domain.TimeRange) (int, int, error) {
	if window.End.Before(window.Start) {
		return 0, 0, fmt.Errorf("%w: start %s after end %s", domain.ErrEmptyRange,
			window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))
	}
	from := sort.Search(len(times), func(i int) bool { return !times[i].Before(window.Start) })
	to := sort.Search(len(times), func(i int) bool { return times[i].After(window.End) })
	if from >= to {
		return 0, 0, fmt.Errorf("%w: [%s, %s]", domain.ErrEmptyRange,
			window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))
	}
	return from, to, nil
}

// nearest returns the index of the axis value closest to x, lowest index on ties.
func nearest(axis []float64, x float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, a := range axis {
		if d := math.Abs(a - x); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func bounds(axis []float64) (float64, float64) {
	first, last := axis[0], axis[len(axis)-1]
	if first > last {
		return last, first
	}
	return first, last
}

func within(x float64, axis []float64) bool {
	lo, hi := bounds(axis)
	return x >= lo && x <= hi
}

// normalizeLon maps lon onto the grid's longitude axis. A value already on
// the axis is kept as is, so an axis ending exactly at 180° or 360° keeps its
// edge. Otherwise the first of its [0, 360), [-180, 180) and [360, 720)
// forms that lands on the axis wins. When none does, the form matching the
// axis convention is returned so the caller reports it.
func normalizeLon(lon float64, axis []float64) float64 {
	if within(lon, axis) {
		return lon
	}
	east := math.Mod(lon, 360)
	if east < 0 {
		east += 360
	}
	west := east
	if west >= 180 {
		west -= 360
	}
	// 0° and 360° name the same meridian.
	for _, c := range []float64{east, west, east + 360} {
		if within(c, axis) {
			return c
		}
	}
	if _, hi := bounds(axis); hi > 180 {
		return east
	}
	return west
}
