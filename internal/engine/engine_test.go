package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wltan/buskersync/internal/calendar"
	"github.com/wltan/buskersync/internal/event"
	"github.com/wltan/buskersync/internal/store"
)

// fakeExtractor returns scripted records or a scripted error.
type fakeExtractor struct {
	records []*event.Record
	err     error
}

func (f *fakeExtractor) Scrape(ctx context.Context) ([]*event.Record, error) {
	return f.records, f.err
}

// fakeStore is an in-memory EventStore with scriptable lock contention.
type fakeStore struct {
	records  map[string]*event.Record
	lockBusy map[string]bool
	held     map[string]string
	released []string
	metrics  map[string]int64
	lastRun  *store.RunMetadata
	errorLog []string
	cleaned  int64
	putFail  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  map[string]*event.Record{},
		lockBusy: map[string]bool{},
		held:     map[string]string{},
		metrics:  map[string]int64{},
	}
}

func (f *fakeStore) Exists(ctx context.Context, fingerprint string) bool {
	_, ok := f.records[fingerprint]
	return ok
}

func (f *fakeStore) Get(ctx context.Context, fingerprint string) *event.Record {
	return f.records[fingerprint]
}

func (f *fakeStore) Put(ctx context.Context, rec *event.Record) bool {
	if f.putFail {
		return false
	}
	clone := *rec
	f.records[rec.Fingerprint()] = &clone
	return true
}

func (f *fakeStore) Range(ctx context.Context, fromDate, toDate string) []*event.Record {
	var out []*event.Record
	for _, rec := range f.records {
		if rec.Date >= fromDate && rec.Date <= toDate {
			out = append(out, rec)
		}
	}
	return out
}

func (f *fakeStore) CleanupTimeline(ctx context.Context) int64 {
	return f.cleaned
}

func (f *fakeStore) AcquireLock(ctx context.Context, name string, ttl time.Duration) string {
	if f.lockBusy[name] {
		return ""
	}
	token := "token-" + name
	f.held[name] = token
	return token
}

func (f *fakeStore) ReleaseLock(ctx context.Context, name, token string) bool {
	if f.held[name] != token {
		return false
	}
	delete(f.held, name)
	f.released = append(f.released, name)
	return true
}

func (f *fakeStore) IncrMetric(ctx context.Context, name string, n int64) bool {
	f.metrics[name] += n
	return true
}

func (f *fakeStore) SetLastRun(ctx context.Context, meta store.RunMetadata) bool {
	f.lastRun = &meta
	return true
}

func (f *fakeStore) LogError(ctx context.Context, message string) {
	f.errorLog = append(f.errorLog, message)
}

// fakeMirror is an in-memory CalendarMirror. Exists answers from a
// fingerprint map; Create can be scripted to fail per location.
type fakeMirror struct {
	existing  map[string]string
	entries   []calendar.Entry
	createErr map[string]error
	nextID    int
	created   []*event.Record
	updated   map[string]*event.Record
	updateErr error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{
		existing:  map[string]string{},
		createErr: map[string]error{},
		updated:   map[string]*event.Record{},
	}
}

func (f *fakeMirror) Create(ctx context.Context, rec *event.Record) (string, error) {
	if err := f.createErr[rec.Location]; err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("entry-%d", f.nextID)
	f.created = append(f.created, rec)
	return id, nil
}

func (f *fakeMirror) Update(ctx context.Context, id string, rec *event.Record) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated[id] = rec
	return nil
}

func (f *fakeMirror) Exists(ctx context.Context, rec *event.Record) string {
	return f.existing[rec.Fingerprint()]
}

func (f *fakeMirror) List(ctx context.Context, from, to time.Time) []calendar.Entry {
	return f.entries
}

var errCreateRejected = errors.New("create rejected")
