package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wltan/buskersync/internal/calendar"
	"github.com/wltan/buskersync/internal/clock"
	"github.com/wltan/buskersync/internal/logger"
)

// SyncResult summarizes one reconciliation cycle.
type SyncResult struct {
	Status          string   `json:"status"`
	StoreEvents     int      `json:"store_events"`
	CalendarEntries int      `json:"calendar_entries"`
	Created         int      `json:"created"`
	Updated         int      `json:"updated"`
	Backfilled      int      `json:"backfilled"`
	ReviewNeeded    int      `json:"review_needed"`
	TimelineTrimmed int64    `json:"timeline_trimmed"`
	Errors          []string `json:"errors,omitempty"`
}

// RunSync reconciles the store and the calendar over the forward window.
// Calendar-only entries are reported, never deleted; the schedule source
// is not authoritative enough to destroy what a human may have added.
func (e *Engine) RunSync(ctx context.Context) SyncResult {
	token := e.store.AcquireLock(ctx, SyncLockName, e.syncLockTTL)
	if token == "" {
		logger.Info("sync cycle already running elsewhere, skipping", nil)
		return SyncResult{Status: StatusSkipped}
	}
	defer e.store.ReleaseLock(ctx, SyncLockName, token)

	started := time.Now()
	result := e.syncLocked(ctx)

	logger.Info("sync cycle finished", logger.Fields{
		"status":        result.Status,
		"created":       result.Created,
		"updated":       result.Updated,
		"backfilled":    result.Backfilled,
		"review_needed": result.ReviewNeeded,
		"duration":      time.Since(started).String(),
	})
	return result
}

func (e *Engine) syncLocked(ctx context.Context) SyncResult {
	var result SyncResult

	now := clock.Now(e.loc)
	windowStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)
	windowEnd := windowStart.AddDate(0, 0, e.windowDays)

	stored := e.store.Range(ctx, windowStart.Format(clock.DateLayout), windowEnd.Format(clock.DateLayout))
	entries := e.mirror.List(ctx, windowStart, windowEnd)
	result.StoreEvents = len(stored)
	result.CalendarEntries = len(entries)

	byKey := make(map[string]calendar.Entry, len(entries))
	for _, entry := range entries {
		byKey[entryKey(entry, e.loc)] = entry
	}

	seen := make(map[string]bool, len(stored))
	for _, rec := range stored {
		key := rec.SyncKey()
		seen[key] = true

		entry, ok := byKey[key]
		if !ok {
			id, err := e.mirror.Create(ctx, rec)
			if err != nil {
				msg := fmt.Sprintf("sync create failed for %s: %v", key, err)
				e.store.LogError(ctx, msg)
				result.Errors = append(result.Errors, msg)
				continue
			}
			rec.CalendarEventID = id
			e.store.Put(ctx, rec)
			result.Created++
			continue
		}

		// Store records written before the calendar id landed get it here.
		if rec.CalendarEventID == "" {
			rec.CalendarEventID = entry.ID
			e.store.Put(ctx, rec)
			result.Backfilled++
		}

		if entry.Title != calendar.EntryTitle(rec) || entry.Location != rec.Location {
			if err := e.mirror.Update(ctx, rec.CalendarEventID, rec); err != nil {
				msg := fmt.Sprintf("sync update failed for %s: %v", key, err)
				logger.Warn("calendar update failed, will retry next cycle", logger.Fields{
					"key":   key,
					"error": err.Error(),
				})
				result.Errors = append(result.Errors, msg)
				continue
			}
			result.Updated++
		}
	}

	for key, entry := range byKey {
		if seen[key] {
			continue
		}
		// Entries that do not look like ours (personal appointments and
		// the like sharing the calendar) are none of our business.
		if !strings.Contains(entry.Title, "Busking") {
			continue
		}
		result.ReviewNeeded++
		logger.Info("calendar entry has no store record, flagging for review", logger.Fields{
			"entry_id": entry.ID,
			"title":    entry.Title,
			"start":    entry.Start.In(e.loc).Format(time.RFC3339),
		})
	}

	result.TimelineTrimmed = e.store.CleanupTimeline(ctx)

	if len(result.Errors) > 0 {
		result.Status = StatusPartial
	} else {
		result.Status = StatusSuccess
	}
	return result
}

// entryKey mirrors Record.SyncKey for a calendar entry.
func entryKey(entry calendar.Entry, loc *time.Location) string {
	start := entry.Start.In(loc)
	return start.Format(clock.DateLayout) + "_" + start.Format(clock.TimeLayout) + "_" + entry.Location
}
