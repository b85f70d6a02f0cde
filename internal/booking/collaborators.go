package booking

//go:generate mockgen -source=collaborators.go -destination=mocks/mock_collaborators.go -package=mocks

import (
	"context"
	"time"

	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/resource"
)

// Catalog resolves resource ids to catalog entries.
type Catalog interface {
	GetMany(ctx context.Context, ids []string) (map[string]*resource.Resource, error)
}

// ExportEvent is one attendee's calendar entry for an approved booking.
type ExportEvent struct {
	BookingID   string
	GroupID     string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	OrganizerID string
	AttendeeID  string
}

// Exporter delivers calendar entries. Failures never undo a booking.
type Exporter interface {
	Export(ctx context.Context, ev ExportEvent) error
}
