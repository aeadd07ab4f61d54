// Package clock holds the timezone plumbing shared by every component:
// combining civil dates and wall-clock times into absolute instants in the
// configured zone, and deriving the numeric scores the store's timeline
// index sorts by.
package clock

import (
	"errors"
	"fmt"
	"time"
)

// Layouts for the canonical civil date and 24-hour time forms.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ErrMalformedTimestamp is returned when a date or time string does not
// match the canonical layouts.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// Localize combines a civil date ("2006-01-02") and a wall-clock time
// ("15:04") into an absolute instant in loc.
func Localize(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q %q", ErrMalformedTimestamp, date, clock)
	}
	return t, nil
}

// Now returns the current time in loc.
func Now(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// DateScore converts a civil date into the Unix timestamp of its local
// midnight. The event store uses this as the sorted-set score for timeline
// range queries; Put and Range must derive scores the same way or range
// results drift.
func DateScore(date string, loc *time.Location) (int64, error) {
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, date)
	}
	return t.Unix(), nil
}
