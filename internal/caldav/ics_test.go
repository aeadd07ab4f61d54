package caldav

import (
	"strings"
	"testing"
	"time"

	"github.com/wltan/buskersync/internal/calendar"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	entry := calendar.Entry{
		Title:       "Some Performer - Busking Performance",
		Location:    "Clarke Quay",
		Description: "Busking performance by Some Performer at Clarke Quay.",
		Start:       time.Date(2026, 9, 12, 11, 30, 0, 0, time.UTC),
		End:         time.Date(2026, 9, 12, 13, 30, 0, 0, time.UTC),
	}

	body := encodeEntry("uid-1", entry)
	if !strings.Contains(body, "BEGIN:VALARM") {
		t.Error("expected a reminder alarm in the payload")
	}
	if !strings.Contains(body, "TRIGGER:-PT1H") {
		t.Error("expected the one hour trigger")
	}

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	decoded, err := decodeEntries([]byte(body), from, from.AddDate(0, 0, 30))
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(decoded))
	}

	got := decoded[0]
	if got.ID != "uid-1" {
		t.Errorf("uid: %q", got.ID)
	}
	if got.Title != entry.Title || got.Location != entry.Location {
		t.Errorf("fields lost: %+v", got)
	}
	if !got.Start.Equal(entry.Start) || !got.End.Equal(entry.End) {
		t.Errorf("times drifted: %v / %v", got.Start, got.End)
	}
}

func TestDecodeFiltersWindow(t *testing.T) {
	entry := calendar.Entry{
		Title: "Out of window",
		Start: time.Date(2026, 12, 1, 11, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 12, 1, 13, 0, 0, 0, time.UTC),
	}
	body := encodeEntry("uid-2", entry)

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	decoded, err := decodeEntries([]byte(body), from, from.AddDate(0, 0, 30))
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 0 {
		t.Errorf("expected no entries in window, got %d", len(decoded))
	}
}

func TestDecodeExpandsRecurrence(t *testing.T) {
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:test",
		"BEGIN:VEVENT",
		"UID:weekly-1",
		"DTSTAMP:20260901T000000Z",
		"DTSTART:20260904T113000Z",
		"DTEND:20260904T133000Z",
		"SUMMARY:Weekly spot",
		"LOCATION:Clarke Quay",
		"RRULE:FREQ=WEEKLY;COUNT=10",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	decoded, err := decodeEntries([]byte(body), from, from.AddDate(0, 0, 21))
	if err != nil {
		t.Fatal(err)
	}

	// Sept 4, 11 and 18 fall inside the three week window.
	if len(decoded) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(decoded))
	}
	for i, entry := range decoded {
		if entry.ID != "weekly-1" || entry.Title != "Weekly spot" {
			t.Errorf("occurrence %d lost fields: %+v", i, entry)
		}
		if entry.End.Sub(entry.Start) != 2*time.Hour {
			t.Errorf("occurrence %d duration drifted: %v", i, entry.End.Sub(entry.Start))
		}
	}
	if !decoded[1].Start.Equal(decoded[0].Start.AddDate(0, 0, 7)) {
		t.Errorf("occurrences not a week apart: %v, %v", decoded[0].Start, decoded[1].Start)
	}
}

func TestDecodeSortsByStart(t *testing.T) {
	// Two VEVENTs in one payload, deliberately out of order.
	combined := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:test",
		"BEGIN:VEVENT",
		"UID:late",
		"DTSTAMP:20260901T000000Z",
		"DTSTART:20260912T130000Z",
		"DTEND:20260912T150000Z",
		"SUMMARY:Late",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:early",
		"DTSTAMP:20260901T000000Z",
		"DTSTART:20260912T090000Z",
		"DTEND:20260912T110000Z",
		"SUMMARY:Early",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	decoded, err := decodeEntries([]byte(combined), from, from.AddDate(0, 0, 30))
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(decoded))
	}
	if decoded[0].ID != "early" || decoded[1].ID != "late" {
		t.Errorf("not sorted by start: %s, %s", decoded[0].ID, decoded[1].ID)
	}
}
