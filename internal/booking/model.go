package booking

import (
	"slices"
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// ActiveStatuses are the statuses that hold a resource.
func ActiveStatuses() []Status {
	return []Status{StatusPending, StatusApproved}
}

// Active reports whether a booking in this status occupies its resources.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return s, nil
	}
	return "", ErrInvalidStatus
}

type Shape string

const (
	ShapeTimeSlot Shape = "time_slot"
	ShapeHalfDay  Shape = "half_day"
	ShapeFullDay  Shape = "full_day"
	ShapeMultiDay Shape = "multi_day"
)

func ParseShape(raw string) (Shape, error) {
	s := Shape(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case ShapeTimeSlot, ShapeHalfDay, ShapeFullDay, ShapeMultiDay:
		return s, nil
	}
	return "", ErrInvalidShape
}

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Overlaps reports whether the two half-open intervals share an instant.
// Abutting intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && i.End.After(o.Start)
}

func (i Interval) Equal(o Interval) bool {
	return i.Start.Equal(o.Start) && i.End.Equal(o.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

type Booking struct {
	ID             string
	UserID         string
	CreatedBy      string // organizer; equals UserID outside groups
	GroupID        string // empty for single-attendee bookings
	ResourceIDs    []string
	StartTime      time.Time
	EndTime        time.Time
	Shape          Shape
	Status         Status
	Title          string
	Notes          string
	DecisionReason string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (b *Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

// ReservationKey identifies the reservation a booking belongs to:
// the group for group bookings, the booking itself otherwise.
func (b *Booking) ReservationKey() string {
	if b.GroupID != "" {
		return b.GroupID
	}
	return b.ID
}

// UsesAny reports whether the booking holds at least one of the resources.
func (b *Booking) UsesAny(resourceIDs []string) bool {
	for _, id := range b.ResourceIDs {
		if slices.Contains(resourceIDs, id) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of b.
func (b *Booking) Clone() *Booking {
	c := *b
	c.ResourceIDs = slices.Clone(b.ResourceIDs)
	return &c
}

type Filter struct {
	UserID           string
	GroupID          string
	ResourceIDs      []string  // bookings holding any of these
	Statuses         []Status  // empty means all
	Window           *Interval // bookings overlapping this interval
	ExcludeBookingID string
	ExcludeGroupID   string
	Limit            int
}

// Matches applies the filter to a single booking in memory.
func (f Filter) Matches(b *Booking) bool {
	if f.UserID != "" && b.UserID != f.UserID {
		return false
	}
	if f.GroupID != "" && b.GroupID != f.GroupID {
		return false
	}
	if len(f.ResourceIDs) > 0 && !b.UsesAny(f.ResourceIDs) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status) {
		return false
	}
	if f.Window != nil && !b.Interval().Overlaps(*f.Window) {
		return false
	}
	if f.ExcludeBookingID != "" && b.ID == f.ExcludeBookingID {
		return false
	}
	if f.ExcludeGroupID != "" && b.GroupID == f.ExcludeGroupID {
		return false
	}
	return true
}

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleApprover Role = "approver"
	RoleMember   Role = "member"
)

// Principal is the authenticated caller of a coordinator operation.
type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanDecide reports whether the principal may approve or reject bookings.
func (p Principal) CanDecide() bool {
	return p.Role == RoleAdmin || p.Role == RoleApprover
}

// CanModify reports whether the principal owns b or administers the system.
func (p Principal) CanModify(b *Booking) bool {
	return p.IsAdmin() || (p.UserID != "" && (p.UserID == b.UserID || p.UserID == b.CreatedBy))
}
