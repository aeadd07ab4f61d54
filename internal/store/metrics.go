package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wltan/buskersync/internal/clock"
	"github.com/wltan/buskersync/internal/logger"
)

// Counter names incremented by the cycles.
const (
	MetricScrapesAttempted = "scrapes_attempted"
	MetricScrapesErrors    = "scrapes_errors"
	MetricScrapesNoEvents  = "scrapes_no_events"
	MetricEventsCreated    = "events_created"
	MetricEventsSkipped    = "events_skipped"
)

// RunMetadata is the last-run status singleton, overwritten each cycle.
type RunMetadata struct {
	Timestamp     time.Time `json:"timestamp"`
	Status        string    `json:"status"`
	EventsFound   int       `json:"events_found"`
	EventsCreated int       `json:"events_created"`
	EventsSkipped int       `json:"events_skipped"`
	Error         string    `json:"error,omitempty"`
}

// ErrorEntry is one line of the capped error log.
type ErrorEntry struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Summary aggregates today's operational state for the status surface.
type Summary struct {
	Date           string           `json:"date"`
	Metrics        map[string]int64 `json:"metrics"`
	TotalEvents    int64            `json:"total_events"`
	ScrapeLockHeld bool             `json:"scrape_lock_held"`
	SyncLockHeld   bool             `json:"sync_lock_held"`
}

// IncrMetric adds n to a per-day counter. The counter hash shares the
// event TTL so metrics age out with the data they describe.
func (s *Store) IncrMetric(ctx context.Context, name string, n int64) bool {
	date := clock.Now(s.loc).Format(clock.DateLayout)
	key := metricsKeyPrefix + date

	pipe := s.client.Pipeline()
	pipe.HIncrBy(ctx, key, name, n)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("store: metric increment failed", logger.Fields{"metric": name}, err)
		return false
	}
	return true
}

// MetricsFor returns the counters recorded for a date, empty on failure.
func (s *Store) MetricsFor(ctx context.Context, date string) map[string]int64 {
	raw, err := s.client.HGetAll(ctx, metricsKeyPrefix+date).Result()
	if err != nil {
		logger.Error("store: metrics read failed", logger.Fields{"date": date}, err)
		return map[string]int64{}
	}

	metrics := make(map[string]int64, len(raw))
	for name, value := range raw {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			n = 0
		}
		metrics[name] = n
	}
	return metrics
}

// SetLastRun overwrites the run-metadata singleton.
func (s *Store) SetLastRun(ctx context.Context, meta RunMetadata) bool {
	data, err := json.Marshal(meta)
	if err != nil {
		logger.Error("store: marshal run metadata failed", nil, err)
		return false
	}
	if err := s.client.Set(ctx, lastRunKey, data, 0).Err(); err != nil {
		logger.Error("store: set run metadata failed", nil, err)
		return false
	}
	return true
}

// LastRun returns the most recent run metadata, nil when none recorded or
// on failure.
func (s *Store) LastRun(ctx context.Context) *RunMetadata {
	data, err := s.client.Get(ctx, lastRunKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Error("store: get run metadata failed", nil, err)
		}
		return nil
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		logger.Error("store: corrupt run metadata", nil, err)
		return nil
	}
	return &meta
}

// LogError appends a message to the error log, trimming it to the last
// errorLogCap entries.
func (s *Store) LogError(ctx context.Context, message string) {
	entry := ErrorEntry{
		Timestamp: clock.Now(s.loc).Format(time.RFC3339),
		Message:   message,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	pipe := s.client.Pipeline()
	pipe.LPush(ctx, errorLogKey, data)
	pipe.LTrim(ctx, errorLogKey, 0, errorLogCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("store: error log append failed", nil, err)
	}
}

// RecentErrors returns up to count recent error entries, newest first.
func (s *Store) RecentErrors(ctx context.Context, count int) []ErrorEntry {
	raw, err := s.client.LRange(ctx, errorLogKey, 0, int64(count)-1).Result()
	if err != nil {
		logger.Error("store: error log read failed", nil, err)
		return nil
	}

	entries := make([]ErrorEntry, 0, len(raw))
	for _, item := range raw {
		var entry ErrorEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// Summarize collects today's metrics, the timeline cardinality and lock
// status into one view for the status surface.
func (s *Store) Summarize(ctx context.Context) Summary {
	date := clock.Now(s.loc).Format(clock.DateLayout)
	return Summary{
		Date:           date,
		Metrics:        s.MetricsFor(ctx, date),
		TotalEvents:    s.TimelineSize(ctx),
		ScrapeLockHeld: s.LockHeld(ctx, "scrape_job"),
		SyncLockHeld:   s.LockHeld(ctx, "sync_job"),
	}
}
