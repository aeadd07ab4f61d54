package calendar

import (
	"context"
	"time"
)

// Entry is one calendar appointment as the backend understands it. Start
// and End carry the backend's timezone; callers should localize before
// comparing wall-clock fields.
type Entry struct {
	ID          string
	Title       string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
}

// Backend is the remote calendar surface the mirror writes through.
// Implementations translate transport failures into the error taxonomy in
// this package so retry classification works.
type Backend interface {
	Insert(ctx context.Context, entry Entry) (string, error)
	Update(ctx context.Context, entry Entry) error
	Get(ctx context.Context, id string) (Entry, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, from, to time.Time) ([]Entry, error)
}
