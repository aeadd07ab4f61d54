package event

import (
	"regexp"
	"strings"
	"time"

	"github.com/wltan/buskersync/internal/clock"
	"github.com/wltan/buskersync/internal/logger"
)

// rangeSeparator splits "7:30pm - 9:30pm" style ranges. The en dash shows up
// in copy-pasted source text often enough to matter.
var rangeSeparator = regexp.MustCompile(`\s*(?:-|–|—|to)\s*`)

var digitsOnly = regexp.MustCompile(`^\d+$`)

// NormalizeClock converts heterogeneous time text into zero-padded 24-hour
// "15:04" form. Accepted inputs: "7:30pm", "7.30pm", "7:30 PM", "7pm",
// "19:30", "1930", "730", bare hours. Returns the input unchanged with
// ok=false when nothing parses.
func NormalizeClock(s string) (string, bool) {
	orig := s
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ".", ":")
	s = strings.ReplaceAll(s, " ", "")

	meridiem := ""
	if strings.HasSuffix(s, "am") || strings.HasSuffix(s, "pm") {
		meridiem = s[len(s)-2:]
		s = s[:len(s)-2]
	}

	if !strings.Contains(s, ":") {
		switch {
		case meridiem != "":
			// Bare hour like "7pm" gets implicit minutes.
			s += ":00"
		case len(s) == 4 && digitsOnly.MatchString(s):
			s = s[:2] + ":" + s[2:]
		case len(s) == 3 && digitsOnly.MatchString(s):
			s = s[:1] + ":" + s[1:]
		default:
			s += ":00"
		}
	}

	if meridiem != "" {
		t, err := time.Parse("3:04pm", s+meridiem)
		if err != nil {
			logger.Warn("could not parse time", logger.Fields{"time_text": orig})
			return orig, false
		}
		return t.Format(clock.TimeLayout), true
	}

	t, err := time.Parse("15:04", s)
	if err != nil {
		logger.Warn("could not parse time", logger.Fields{"time_text": orig})
		return orig, false
	}
	return t.Format(clock.TimeLayout), true
}

// ParseTimeRange splits "A - B" time text into two normalized times. A
// single time infers the end as start+2h, wrapping past midnight for late
// sets.
func ParseTimeRange(s string) (start, end string, ok bool) {
	parts := rangeSeparator.Split(strings.TrimSpace(s), 2)
	if len(parts) == 2 {
		st, okStart := NormalizeClock(parts[0])
		en, okEnd := NormalizeClock(parts[1])
		if okStart && okEnd {
			return st, en, true
		}
	}

	st, okStart := NormalizeClock(s)
	if !okStart {
		return "", "", false
	}
	return st, addHours(st, 2), true
}

// addHours shifts a normalized "15:04" time by whole hours, wrapping at
// midnight.
func addHours(clockText string, h int) string {
	t, err := time.Parse(clock.TimeLayout, clockText)
	if err != nil {
		return clockText
	}
	return t.Add(time.Duration(h) * time.Hour).Format(clock.TimeLayout)
}
