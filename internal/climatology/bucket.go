package climatology

import (
	"fmt"
	"time"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
)

// BucketKey identifies a calendar bucket: 1..365 for day-of-year, 1..12 for
// month-of-year.
type BucketKey int

// BucketFunc maps a timestamp to its bucket.
type BucketFunc func(time.Time) BucketKey

// Policy names a bucket function so a baseline can carry it.
type Policy string

const (
	PolicyDayOfYear   Policy = "day-of-year"
	PolicyMonthOfYear Policy = "month-of-year"
)

// DayOfYear buckets by calendar date in t's own location. Feb 29 shares the
// Feb 28 bucket and every later day of a leap year shifts back by one, so a
// given month and day always land in the same key in 1..365.
func DayOfYear(t time.Time) BucketKey {
	yd := t.YearDay()
	if isLeap(t.Year()) && yd >= 60 {
		yd--
	}
	return BucketKey(yd)
}

// MonthOfYear buckets by calendar month.
func MonthOfYear(t time.Time) BucketKey {
	return BucketKey(t.Month())
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// Func returns the bucket function for the policy.
func (p Policy) Func() (BucketFunc, error) {
	switch p {
	case PolicyDayOfYear:
		return DayOfYear, nil
	case PolicyMonthOfYear:
		return MonthOfYear, nil
	}
	return nil, fmt.Errorf("%w: unknown bucket policy %q", domain.ErrInvalidInput, p)
}

// YearWindow is an inclusive range of calendar years.
type YearWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (w YearWindow) Contains(year int) bool { return year >= w.Start && year <= w.End }

// Years is the number of calendar years in the window.
func (w YearWindow) Years() int { return w.End - w.Start + 1 }

// Range returns the window as a time range in loc, from Jan 1 of Start to the
// last nanosecond of Dec 31 of End.
func (w YearWindow) Range(loc *time.Location) domain.TimeRange {
	return domain.TimeRange{
		Start: time.Date(w.Start, time.January, 1, 0, 0, 0, 0, loc),
		End:   time.Date(w.End+1, time.January, 1, 0, 0, 0, 0, loc).Add(-time.Nanosecond),
	}
}
