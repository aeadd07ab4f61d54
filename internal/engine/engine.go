package engine

import (
	"context"
	"time"

	"github.com/wltan/buskersync/internal/calendar"
	"github.com/wltan/buskersync/internal/event"
	"github.com/wltan/buskersync/internal/store"
)

// Lock names shared by every host running against the same store.
const (
	ScrapeLockName = "scrape_job"
	SyncLockName   = "sync_job"

	DefaultScrapeLockTTL = 5 * time.Minute
	DefaultSyncLockTTL   = 10 * time.Minute
	DefaultWindowDays    = 90
)

// Run statuses recorded in the last-run metadata.
const (
	StatusSuccess  = "success"
	StatusPartial  = "partial"
	StatusNoEvents = "no_events"
	StatusSkipped  = "skipped"
	StatusError    = "error"
)

// Extractor produces the current set of scraped events.
type Extractor interface {
	Scrape(ctx context.Context) ([]*event.Record, error)
}

// EventStore is the slice of the store the engine drives. Write and read
// failures surface as negative results, never as errors; the store is a
// cache and the calendar-side checks backstop it.
type EventStore interface {
	Exists(ctx context.Context, fingerprint string) bool
	Get(ctx context.Context, fingerprint string) *event.Record
	Put(ctx context.Context, rec *event.Record) bool
	Range(ctx context.Context, fromDate, toDate string) []*event.Record
	CleanupTimeline(ctx context.Context) int64
	AcquireLock(ctx context.Context, name string, ttl time.Duration) string
	ReleaseLock(ctx context.Context, name, token string) bool
	IncrMetric(ctx context.Context, name string, n int64) bool
	SetLastRun(ctx context.Context, meta store.RunMetadata) bool
	LogError(ctx context.Context, message string)
}

// CalendarMirror is the calendar surface the engine writes through.
type CalendarMirror interface {
	Create(ctx context.Context, rec *event.Record) (string, error)
	Update(ctx context.Context, id string, rec *event.Record) error
	Exists(ctx context.Context, rec *event.Record) string
	List(ctx context.Context, from, to time.Time) []calendar.Entry
}

// Options tune the engine's window and lock leases. Zero values fall back
// to the defaults above.
type Options struct {
	Location      *time.Location
	WindowDays    int
	ScrapeLockTTL time.Duration
	SyncLockTTL   time.Duration
}

type Engine struct {
	extractor Extractor
	store     EventStore
	mirror    CalendarMirror

	loc           *time.Location
	windowDays    int
	scrapeLockTTL time.Duration
	syncLockTTL   time.Duration
}

func New(extractor Extractor, st EventStore, mirror CalendarMirror, opts Options) *Engine {
	e := &Engine{
		extractor:     extractor,
		store:         st,
		mirror:        mirror,
		loc:           opts.Location,
		windowDays:    opts.WindowDays,
		scrapeLockTTL: opts.ScrapeLockTTL,
		syncLockTTL:   opts.SyncLockTTL,
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	if e.windowDays <= 0 {
		e.windowDays = DefaultWindowDays
	}
	if e.scrapeLockTTL <= 0 {
		e.scrapeLockTTL = DefaultScrapeLockTTL
	}
	if e.syncLockTTL <= 0 {
		e.syncLockTTL = DefaultSyncLockTTL
	}
	return e
}
