package engine

import (
	"context"
	"testing"
	"time"

	"github.com/wltan/buskersync/internal/calendar"
	"github.com/wltan/buskersync/internal/clock"
	"github.com/wltan/buskersync/internal/event"
)

// windowDate returns a date inside the sync window, days ahead of today.
func windowDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format(clock.DateLayout)
}

func entryFor(t *testing.T, rec *event.Record, id string) calendar.Entry {
	t.Helper()
	start, err := clock.Localize(rec.Date, rec.StartTime, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	return calendar.Entry{
		ID:       id,
		Title:    calendar.EntryTitle(rec),
		Location: rec.Location,
		Start:    start,
		End:      start.Add(2 * time.Hour),
	}
}

func TestRunSyncCreatesMissingEntries(t *testing.T) {
	rec := validRecord(windowDate(7), "19:30", "Clarke Quay")
	st := newFakeStore()
	st.Put(context.Background(), rec)
	mirror := newFakeMirror()
	eng := newTestEngine(&fakeExtractor{}, st, mirror)

	result := eng.RunSync(context.Background())

	if result.Status != StatusSuccess {
		t.Fatalf("status: %s", result.Status)
	}
	if result.Created != 1 {
		t.Errorf("created: %d", result.Created)
	}
	if len(mirror.created) != 1 {
		t.Fatal("expected a calendar create")
	}

	stored := st.records[rec.Fingerprint()]
	if stored == nil || stored.CalendarEventID == "" {
		t.Errorf("store should carry the new calendar id: %+v", stored)
	}
}

func TestRunSyncLeavesMatchedPairsAlone(t *testing.T) {
	rec := validRecord(windowDate(7), "19:30", "Clarke Quay")
	rec.CalendarEventID = "entry-1"
	st := newFakeStore()
	st.Put(context.Background(), rec)
	mirror := newFakeMirror()
	mirror.entries = []calendar.Entry{entryFor(t, rec, "entry-1")}
	eng := newTestEngine(&fakeExtractor{}, st, mirror)

	result := eng.RunSync(context.Background())

	if result.Created != 0 || result.Updated != 0 || result.ReviewNeeded != 0 {
		t.Errorf("matched pair should be a no-op: %+v", result)
	}
}

func TestRunSyncUpdatesDriftedEntries(t *testing.T) {
	rec := validRecord(windowDate(7), "19:30", "Clarke Quay")
	rec.CalendarEventID = "entry-1"
	st := newFakeStore()
	st.Put(context.Background(), rec)

	drifted := entryFor(t, rec, "entry-1")
	drifted.Title = "Renamed by hand"
	mirror := newFakeMirror()
	mirror.entries = []calendar.Entry{drifted}
	eng := newTestEngine(&fakeExtractor{}, st, mirror)

	result := eng.RunSync(context.Background())

	if result.Updated != 1 {
		t.Fatalf("updated: %d", result.Updated)
	}
	if mirror.updated["entry-1"] == nil {
		t.Error("drifted entry should be rewritten")
	}
}

func TestRunSyncFlagsCalendarOnlyEntries(t *testing.T) {
	stray := validRecord(windowDate(7), "19:30", "Somewhere Else")
	personal := entryFor(t, stray, "entry-dentist")
	personal.Title = "Dentist appointment"
	personal.Start = personal.Start.Add(2 * time.Hour)
	personal.End = personal.End.Add(2 * time.Hour)
	mirror := newFakeMirror()
	mirror.entries = []calendar.Entry{entryFor(t, stray, "entry-manual"), personal}
	st := newFakeStore()
	eng := newTestEngine(&fakeExtractor{}, st, mirror)

	result := eng.RunSync(context.Background())

	if result.ReviewNeeded != 1 {
		t.Errorf("review needed: %d", result.ReviewNeeded)
	}
	// Flagged, never deleted or rewritten.
	if len(mirror.updated) != 0 || len(mirror.created) != 0 {
		t.Error("calendar-only entries must stay untouched")
	}
}

func TestRunSyncBackfillsCalendarID(t *testing.T) {
	rec := validRecord(windowDate(7), "19:30", "Clarke Quay")
	st := newFakeStore()
	st.Put(context.Background(), rec)
	mirror := newFakeMirror()
	mirror.entries = []calendar.Entry{entryFor(t, rec, "entry-42")}
	eng := newTestEngine(&fakeExtractor{}, st, mirror)

	result := eng.RunSync(context.Background())

	if result.Backfilled != 1 {
		t.Fatalf("backfilled: %d", result.Backfilled)
	}
	stored := st.records[rec.Fingerprint()]
	if stored == nil || stored.CalendarEventID != "entry-42" {
		t.Errorf("id not backfilled: %+v", stored)
	}
}

func TestRunSyncIgnoresEventsOutsideWindow(t *testing.T) {
	past := validRecord("2020-01-01", "19:30", "Clarke Quay")
	st := newFakeStore()
	st.Put(context.Background(), past)
	mirror := newFakeMirror()
	eng := newTestEngine(&fakeExtractor{}, st, mirror)

	result := eng.RunSync(context.Background())

	if result.Created != 0 {
		t.Errorf("past events must not be recreated: %+v", result)
	}
	if len(mirror.created) != 0 {
		t.Error("no calendar writes expected")
	}
}

func TestRunSyncSkipsWhenLockHeld(t *testing.T) {
	st := newFakeStore()
	st.lockBusy[SyncLockName] = true
	eng := newTestEngine(&fakeExtractor{}, st, newFakeMirror())

	result := eng.RunSync(context.Background())
	if result.Status != StatusSkipped {
		t.Fatalf("status: %s", result.Status)
	}
}

func TestRunSyncReportsCleanup(t *testing.T) {
	st := newFakeStore()
	st.cleaned = 4
	eng := newTestEngine(&fakeExtractor{}, st, newFakeMirror())

	result := eng.RunSync(context.Background())
	if result.TimelineTrimmed != 4 {
		t.Errorf("trimmed: %d", result.TimelineTrimmed)
	}
	if len(st.released) != 1 || st.released[0] != SyncLockName {
		t.Errorf("lock not released: %v", st.released)
	}
}
