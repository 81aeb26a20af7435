package climatology

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
)

// RollingMean smooths a series with a centered moving average over window
// consecutive points. Edges average whatever part of the window exists. The
// window counts points, not time, so callers should pass gap-free daily data.
func RollingMean(s domain.Series, window int) (domain.Series, error) {
	if window < 1 {
		return domain.Series{}, fmt.Errorf("%w: smoothing window %d", domain.ErrInvalidInput, window)
	}
	points := make([]domain.Point, len(s.Points))
	if window == 1 {
		copy(points, s.Points)
		return s.WithPoints(points), nil
	}

	values := s.Values()
	back := (window - 1) / 2
	for i, p := range s.Points {
		lo := max(0, i-back)
		hi := min(len(values), i-back+window)
		points[i] = domain.Point{Time: p.Time, Value: stat.Mean(values[lo:hi], nil)}
	}
	return s.WithPoints(points), nil
}
