package domain

import "errors"

var (
	// ErrOutOfBounds is returned when a coordinate lies outside the grid extent.
	ErrOutOfBounds = errors.New("coordinate outside grid extent")
	// ErrEmptyRange is returned when a time window holds no grid timestamps.
	ErrEmptyRange = errors.New("time range contains no grid timestamps")
	// ErrInsufficientData is returned when a time bucket has no qualifying observations.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidInput is returned for physically impossible or malformed input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrBucketMismatch is returned when an event spans a bucket the baseline lacks.
	ErrBucketMismatch = errors.New("event bucket missing from baseline")
	// ErrEmptyInput is returned when aggregating over zero facilities.
	ErrEmptyInput = errors.New("empty input")
)

// ErrorKind maps an engine error to a stable, low-cardinality label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, ErrEmptyRange):
		return "empty_range"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrBucketMismatch):
		return "bucket_mismatch"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	default:
		return "internal"
	}
}
