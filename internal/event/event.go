package event

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Sentinel values substituted when a field cannot be extracted. A record is
// never missing these fields, only possibly uninformative.
const (
	UnknownLocation = "Unknown Location"
	UnknownBusker   = "Unknown Busker"
)

// Record is the canonical unit: one busking performance scraped from the
// schedule page.
type Record struct {
	// Date is the civil calendar date, "2006-01-02".
	Date string `json:"date"`
	// StartTime and EndTime are local wall-clock times, "15:04". EndTime is
	// advisory: it defaults to start+2h when the source gives only one time
	// and is allowed to be before StartTime for overnight sets.
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	// Location is the free-text venue, UnknownLocation when not extracted.
	Location string `json:"location"`
	// BuskerName is the performer's free-text name, UnknownBusker when not
	// extracted.
	BuskerName string `json:"busker_name"`
	// BuskerID is the opaque identifier of the upstream profile.
	BuskerID string `json:"busker_id"`
	// ScrapedAt is the instant the record was extracted.
	ScrapedAt time.Time `json:"scraped_at"`
	// CalendarEventID is assigned by the calendar once the record has been
	// mirrored; empty until then.
	CalendarEventID string `json:"calendar_event_id,omitempty"`
}

// Fingerprint computes the stable identity for an event tuple: a SHA-256
// digest over the four fields joined by "|". The field order and delimiter
// are wire format; any reimplementation must match bit-for-bit or
// cross-system dedup breaks.
func Fingerprint(date, startTime, location, buskerID string) string {
	sum := sha256.Sum256([]byte(date + "|" + startTime + "|" + location + "|" + buskerID))
	return fmt.Sprintf("%x", sum)
}

// Fingerprint returns the record's stable identity.
func (r *Record) Fingerprint() string {
	return Fingerprint(r.Date, r.StartTime, r.Location, r.BuskerID)
}

// SyncKey is the looser identity the sync cycle diffs on. It deliberately
// omits BuskerID because calendar entries carry no profile identifier to
// compare against.
func (r *Record) SyncKey() string {
	return fmt.Sprintf("%s_%s_%s", r.Date, r.StartTime, r.Location)
}
