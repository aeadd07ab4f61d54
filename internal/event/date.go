package event

import (
	"time"

	"github.com/wltan/buskersync/internal/clock"
	"github.com/wltan/buskersync/internal/logger"
)

// dateFormats is the fixed try-order for date text. The order is load
// bearing: a string like "25/12/2024" is ambiguous between DD/MM and MM/DD,
// and the first format that parses wins, so DD/MM must stay ahead of MM/DD.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// NormalizeDate parses heterogeneous date text into canonical "2006-01-02"
// form. This is a soft operation: when no format matches it returns the
// input unchanged with ok=false and logs a warning; the validation gate is
// where malformed dates are actually rejected.
func NormalizeDate(s string) (string, bool) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(clock.DateLayout), true
		}
	}
	logger.Warn("could not parse date", logger.Fields{"date_text": s})
	return s, false
}
