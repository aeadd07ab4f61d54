package caldav

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/wltan/buskersync/internal/calendar"
	"github.com/wltan/buskersync/internal/logger"
)

const (
	productID = "-//buskersync//busking schedule mirror//EN"

	// Alarm fired ahead of each performance.
	alarmTrigger = "-PT1H"

	// Recurring events are unusual for this collection; the cap keeps a
	// runaway RRULE from flooding a window read.
	maxOccurrences = 100
)

// encodeEntry renders one entry as a single-VEVENT calendar object.
func encodeEntry(uid string, entry calendar.Entry) string {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)

	ev := cal.AddEvent(uid)
	ev.SetDtStampTime(time.Now().UTC())
	ev.SetStartAt(entry.Start)
	ev.SetEndAt(entry.End)
	ev.SetSummary(entry.Title)
	if entry.Location != "" {
		ev.SetLocation(entry.Location)
	}
	if entry.Description != "" {
		ev.SetDescription(entry.Description)
	}

	alarm := ev.AddAlarm()
	alarm.SetProperty(ical.ComponentProperty("ACTION"), "DISPLAY")
	alarm.SetProperty(ical.ComponentProperty("TRIGGER"), alarmTrigger)
	alarm.SetProperty(ical.ComponentProperty("DESCRIPTION"), entry.Title)

	return cal.Serialize()
}

// decodeEntries parses a calendar object and expands its events into
// concrete entries overlapping [from, to]. Non-recurring events pass
// through unchanged.
func decodeEntries(body []byte, from, to time.Time) ([]calendar.Entry, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("caldav: parse calendar: %w", err)
	}

	var out []calendar.Entry
	for _, ve := range cal.Events() {
		uid := ""
		if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
			uid = p.Value
		}
		start, serr := ve.GetStartAt()
		if serr != nil {
			logger.Warn("caldav: event without usable DTSTART skipped", logger.Fields{"uid": uid})
			continue
		}
		end, eerr := ve.GetEndAt()
		if eerr != nil {
			end = start.Add(2 * time.Hour)
		}

		base := calendar.Entry{ID: uid, Start: start, End: end}
		if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
			base.Title = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
			base.Location = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
			base.Description = p.Value
		}

		rruleProp := ve.GetProperty(ical.ComponentPropertyRrule)
		if rruleProp == nil || rruleProp.Value == "" {
			if overlaps(base.Start, base.End, from, to) {
				out = append(out, base)
			}
			continue
		}
		out = append(out, expandRecurrence(base, rruleProp.Value, from, to)...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func expandRecurrence(base calendar.Entry, rawRule string, from, to time.Time) []calendar.Entry {
	r, err := rrule.StrToRRule(rawRule)
	if err != nil {
		logger.Warn("caldav: unparseable RRULE skipped", logger.Fields{
			"uid":   base.ID,
			"rrule": rawRule,
		})
		return nil
	}
	r.DTStart(base.Start)

	var set rrule.Set
	set.RRule(r)

	starts := set.Between(from.In(base.Start.Location()), to.In(base.Start.Location()), true)
	if len(starts) > maxOccurrences {
		starts = starts[:maxOccurrences]
	}

	duration := base.End.Sub(base.Start)
	entries := make([]calendar.Entry, 0, len(starts))
	for _, start := range starts {
		occ := base
		occ.Start = start
		occ.End = start.Add(duration)
		entries = append(entries, occ)
	}
	return entries
}

func overlaps(start, end, from, to time.Time) bool {
	return start.Before(to) && end.After(from)
}
