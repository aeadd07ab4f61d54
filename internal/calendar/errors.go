package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports that no entry exists under the requested identifier.
var ErrNotFound = errors.New("calendar: entry not found")

// RateLimitError reports the backend asked us to slow down. RetryAfter is
// the backend's hint; zero means it gave none.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("calendar: rate limited (retry after %s)", e.RetryAfter)
}

// PermanentError reports a failure retrying cannot fix: bad auth, a
// rejected payload, a missing resource.
type PermanentError struct {
	Status int
	Reason string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("calendar: %s (status %d)", e.Reason, e.Status)
}

// IsPermanent reports whether err should stop the retry schedule. Anything
// not rate-limited and not permanent is treated as transient.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe) || errors.Is(err, ErrNotFound)
}
