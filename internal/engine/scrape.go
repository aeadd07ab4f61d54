package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wltan/buskersync/internal/event"
	"github.com/wltan/buskersync/internal/logger"
	"github.com/wltan/buskersync/internal/store"
)

// ScrapeResult summarizes one scrape cycle.
type ScrapeResult struct {
	Status  string   `json:"status"`
	Found   int      `json:"events_found"`
	Created int      `json:"events_created"`
	Skipped int      `json:"events_skipped"`
	Dropped int      `json:"events_dropped"`
	Errors  []string `json:"errors,omitempty"`
}

// RunScrape executes one scrape cycle end to end. The lock is released and
// the run metadata written no matter how the cycle ends.
func (e *Engine) RunScrape(ctx context.Context) ScrapeResult {
	token := e.store.AcquireLock(ctx, ScrapeLockName, e.scrapeLockTTL)
	if token == "" {
		logger.Info("scrape cycle already running elsewhere, skipping", nil)
		return ScrapeResult{Status: StatusSkipped}
	}
	defer e.store.ReleaseLock(ctx, ScrapeLockName, token)

	started := time.Now()
	e.store.IncrMetric(ctx, store.MetricScrapesAttempted, 1)

	result := e.scrapeLocked(ctx)

	e.store.SetLastRun(ctx, store.RunMetadata{
		Timestamp:     started.UTC(),
		Status:        result.Status,
		EventsFound:   result.Found,
		EventsCreated: result.Created,
		EventsSkipped: result.Skipped,
		Error:         strings.Join(result.Errors, "; "),
	})
	logger.Info("scrape cycle finished", logger.Fields{
		"status":   result.Status,
		"found":    result.Found,
		"created":  result.Created,
		"skipped":  result.Skipped,
		"duration": time.Since(started).String(),
	})
	return result
}

func (e *Engine) scrapeLocked(ctx context.Context) ScrapeResult {
	var result ScrapeResult

	records, err := e.extractor.Scrape(ctx)
	if err != nil {
		e.store.IncrMetric(ctx, store.MetricScrapesErrors, 1)
		e.store.LogError(ctx, fmt.Sprintf("scrape failed: %v", err))
		result.Status = StatusError
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	valid := event.Validate(records)
	result.Found = len(valid)
	result.Dropped = len(records) - len(valid)
	if len(valid) == 0 {
		e.store.IncrMetric(ctx, store.MetricScrapesNoEvents, 1)
		result.Status = StatusNoEvents
		return result
	}

	for _, rec := range valid {
		fp := rec.Fingerprint()

		if e.store.Exists(ctx, fp) {
			result.Skipped++
			e.store.IncrMetric(ctx, store.MetricEventsSkipped, 1)
			continue
		}

		// The store may have lost the record; a matching calendar entry
		// means repair the store instead of creating a duplicate.
		if id := e.mirror.Exists(ctx, rec); id != "" {
			rec.CalendarEventID = id
			e.store.Put(ctx, rec)
			result.Skipped++
			e.store.IncrMetric(ctx, store.MetricEventsSkipped, 1)
			logger.Debug("calendar entry already present, store repaired", logger.Fields{
				"fingerprint": fp,
				"entry_id":    id,
			})
			continue
		}

		id, cerr := e.mirror.Create(ctx, rec)
		if cerr != nil {
			msg := fmt.Sprintf("create failed for %s on %s: %v", rec.BuskerName, rec.Date, cerr)
			e.store.LogError(ctx, msg)
			result.Errors = append(result.Errors, msg)
			continue
		}
		rec.CalendarEventID = id
		if !e.store.Put(ctx, rec) {
			logger.Warn("record not cached after create, sync will backfill", logger.Fields{
				"fingerprint": fp,
			})
		}
		result.Created++
		e.store.IncrMetric(ctx, store.MetricEventsCreated, 1)
	}

	if len(result.Errors) > 0 {
		result.Status = StatusPartial
	} else {
		result.Status = StatusSuccess
	}
	return result
}
