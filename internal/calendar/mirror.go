package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wltan/buskersync/internal/clock"
	"github.com/wltan/buskersync/internal/event"
	"github.com/wltan/buskersync/internal/logger"
	"github.com/wltan/buskersync/internal/retry"
)

// Mirror projects event records into a calendar backend. All remote calls
// run under the retry schedule; rate-limit responses additionally pause for
// a cooldown before the next attempt.
type Mirror struct {
	backend  Backend
	loc      *time.Location
	retryCfg retry.Config
	cooldown time.Duration
}

func NewMirror(backend Backend, loc *time.Location, retryCfg retry.Config, cooldown time.Duration) *Mirror {
	return &Mirror{backend: backend, loc: loc, retryCfg: retryCfg, cooldown: cooldown}
}

// EntryTitle is the title a record's calendar entry carries.
func EntryTitle(rec *event.Record) string {
	return rec.BuskerName + " - Busking Performance"
}

func entryDescription(rec *event.Record) string {
	return fmt.Sprintf("Busking performance by %s at %s.\nSource busker ID: %s",
		rec.BuskerName, rec.Location, rec.BuskerID)
}

func (m *Mirror) entryFromRecord(rec *event.Record) (Entry, error) {
	start, err := clock.Localize(rec.Date, rec.StartTime, m.loc)
	if err != nil {
		return Entry{}, fmt.Errorf("calendar: bad start for %s: %w", rec.Fingerprint(), err)
	}
	end, err := clock.Localize(rec.Date, rec.EndTime, m.loc)
	if err != nil {
		end = start.Add(2 * time.Hour)
	}
	// Sets that run past midnight carry an end clock earlier than the start.
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	return Entry{
		Title:       EntryTitle(rec),
		Location:    rec.Location,
		Description: entryDescription(rec),
		Start:       start,
		End:         end,
	}, nil
}

// Create inserts a calendar entry for rec and returns the backend's id.
func (m *Mirror) Create(ctx context.Context, rec *event.Record) (string, error) {
	entry, err := m.entryFromRecord(rec)
	if err != nil {
		return "", err
	}
	var id string
	err = m.call(ctx, "calendar_insert", func() error {
		var ierr error
		id, ierr = m.backend.Insert(ctx, entry)
		return ierr
	})
	if err != nil {
		return "", err
	}
	logger.Info("calendar entry created", logger.Fields{
		"entry_id": id,
		"date":     rec.Date,
		"location": rec.Location,
	})
	return id, nil
}

// Update re-reads the entry and overwrites its event fields, leaving any
// backend-managed fields intact. Callers treat failure as non-fatal.
func (m *Mirror) Update(ctx context.Context, id string, rec *event.Record) error {
	entry, err := m.entryFromRecord(rec)
	if err != nil {
		return err
	}
	return m.call(ctx, "calendar_update", func() error {
		current, gerr := m.backend.Get(ctx, id)
		if gerr != nil {
			return gerr
		}
		current.Title = entry.Title
		current.Location = entry.Location
		current.Description = entry.Description
		current.Start = entry.Start
		current.End = entry.End
		return m.backend.Update(ctx, current)
	})
}

// Exists looks for an entry that already represents rec and returns its id,
// or "" when none matches or the backend cannot be read. The match is
// same day plus same start clock plus either a fuzzy location match or the
// performer's name in the title.
func (m *Mirror) Exists(ctx context.Context, rec *event.Record) string {
	dayStart, err := clock.Localize(rec.Date, "00:00", m.loc)
	if err != nil {
		return ""
	}
	dayEnd := dayStart.Add(24*time.Hour - time.Second)
	entries, err := m.backend.List(ctx, dayStart, dayEnd)
	if err != nil {
		logger.Warn("calendar existence check failed, assuming absent", logger.Fields{
			"date":  rec.Date,
			"error": err.Error(),
		})
		return ""
	}
	recLoc := strings.ToLower(rec.Location)
	name := strings.ToLower(rec.BuskerName)
	for _, e := range entries {
		if e.Start.In(m.loc).Format(clock.TimeLayout) != rec.StartTime {
			continue
		}
		entryLoc := strings.ToLower(e.Location)
		locationMatch := entryLoc != "" && recLoc != "" &&
			(strings.Contains(entryLoc, recLoc) || strings.Contains(recLoc, entryLoc))
		titleMatch := name != "" && strings.Contains(strings.ToLower(e.Title), name)
		if locationMatch || titleMatch {
			return e.ID
		}
	}
	return ""
}

// List reads the window [from, to]. A backend failure degrades to an empty
// slice; the existence surface is advisory and must never sink a cycle.
func (m *Mirror) List(ctx context.Context, from, to time.Time) []Entry {
	var entries []Entry
	err := m.call(ctx, "calendar_list", func() error {
		var lerr error
		entries, lerr = m.backend.List(ctx, from, to)
		return lerr
	})
	if err != nil {
		logger.Warn("calendar list failed, treating window as empty", logger.Fields{
			"from":  from.Format(clock.DateLayout),
			"to":    to.Format(clock.DateLayout),
			"error": err.Error(),
		})
		return nil
	}
	return entries
}

func (m *Mirror) call(ctx context.Context, label string, fn func() error) error {
	return retry.Do(ctx, label, m.retryCfg, func() error {
		err := fn()
		if err == nil {
			return nil
		}
		var rl *RateLimitError
		if errors.As(err, &rl) {
			pause := m.cooldown
			if rl.RetryAfter > 0 {
				pause = rl.RetryAfter
			}
			logger.Warn("calendar rate limited, cooling down", logger.Fields{
				"op":    label,
				"pause": pause.String(),
			})
			select {
			case <-time.After(pause):
			case <-ctx.Done():
			}
			return err
		}
		if IsPermanent(err) {
			return retry.Permanent(err)
		}
		return err
	})
}
