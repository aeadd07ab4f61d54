package event

import (
	"time"

	"github.com/wltan/buskersync/internal/clock"
	"github.com/wltan/buskersync/internal/logger"
)

// Validate is the single authoritative filter between extraction and
// everything downstream. Nothing upstream of it may assume well-formedness;
// nothing downstream of it re-checks. A record survives only if its date is
// a real calendar date in canonical form, its times parse as 24-hour
// wall-clock times, and a location is present. Sentinel values are valid:
// only missing or malformed fields reject a record.
func Validate(records []*Record) []*Record {
	valid := make([]*Record, 0, len(records))

	for _, r := range records {
		if r.Date == "" || r.StartTime == "" || r.Location == "" {
			logger.Warn("dropping record with missing required fields", logger.Fields{
				"date":     r.Date,
				"start":    r.StartTime,
				"location": r.Location,
			})
			continue
		}
		if _, err := time.Parse(clock.DateLayout, r.Date); err != nil {
			logger.Warn("dropping record with invalid date", logger.Fields{"date": r.Date})
			continue
		}
		if _, err := time.Parse(clock.TimeLayout, r.StartTime); err != nil {
			logger.Warn("dropping record with invalid start time", logger.Fields{"start": r.StartTime})
			continue
		}
		if r.EndTime != "" {
			if _, err := time.Parse(clock.TimeLayout, r.EndTime); err != nil {
				logger.Warn("dropping record with invalid end time", logger.Fields{"end": r.EndTime})
				continue
			}
		}
		valid = append(valid, r)
	}

	return valid
}
