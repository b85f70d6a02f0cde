package http

import (
	"net/http"
	"time"

	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/booking"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/pkg/apperror"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/pkg/request"
)

var (
	errInvalidDate    = apperror.New(http.StatusBadRequest, "invalid_date", "dates must be YYYY-MM-DD in a known time zone")
	errMissingRange   = apperror.New(http.StatusBadRequest, "missing_range", "either start and end or a booking shape is required")
	errShapeWithRange = apperror.New(http.StatusBadRequest, "shape_mismatch", "explicit start and end can only be booked as time_slot")
)

type BookingResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	CreatedBy      string    `json:"created_by"`
	GroupID        string    `json:"group_id,omitempty"`
	ResourceIDs    []string  `json:"resource_ids"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Shape          string    `json:"shape"`
	Status         string    `json:"status"`
	Title          string    `json:"title"`
	Notes          string    `json:"notes"`
	DecisionReason string    `json:"decision_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	resourceIDs := b.ResourceIDs
	if resourceIDs == nil {
		resourceIDs = []string{}
	}
	return BookingResponse{
		ID:             b.ID,
		UserID:         b.UserID,
		CreatedBy:      b.CreatedBy,
		GroupID:        b.GroupID,
		ResourceIDs:    resourceIDs,
		StartTime:      b.StartTime,
		EndTime:        b.EndTime,
		Shape:          string(b.Shape),
		Status:         string(b.Status),
		Title:          b.Title,
		Notes:          b.Notes,
		DecisionReason: b.DecisionReason,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

func NewBookingResponses(list []*booking.Booking) []BookingResponse {
	out := make([]BookingResponse, len(list))
	for i, b := range list {
		out[i] = NewBookingResponse(b)
	}
	return out
}

// RangeBody describes an interval either explicitly (start/end) or as a
// booking shape resolved against business hours.
type RangeBody struct {
	Start     *time.Time `json:"start"`
	End       *time.Time `json:"end"`
	Shape     string     `json:"shape"`
	Date      string     `json:"date"`       // YYYY-MM-DD
	EndDate   string     `json:"end_date"`   // multi_day
	StartTime string     `json:"start_time"` // HH:MM, time_slot
	EndTime   string     `json:"end_time"`   // HH:MM, time_slot
	Period    string     `json:"period"`     // AM or PM, half_day
	TimeZone  string     `json:"tz"`
}

// IsSet reports whether the body carries any range information.
func (b *RangeBody) IsSet() bool {
	return b.Start != nil || b.End != nil || b.Shape != ""
}

func (b *RangeBody) explicit() bool {
	return b.Start != nil && b.End != nil
}

// toRangeRequest parses the shape descriptor.
func (b *RangeBody) toRangeRequest() (booking.RangeRequest, error) {
	shape, err := booking.ParseShape(b.Shape)
	if err != nil {
		return booking.RangeRequest{}, err
	}
	date, err := request.ParseDate(b.Date, b.TimeZone)
	if err != nil {
		return booking.RangeRequest{}, errInvalidDate
	}

	req := booking.RangeRequest{Shape: shape, Date: date}
	switch shape {
	case booking.ShapeTimeSlot:
		if req.StartClock, err = booking.ParseClock(b.StartTime); err != nil {
			return req, err
		}
		if req.EndClock, err = booking.ParseClock(b.EndTime); err != nil {
			return req, err
		}
	case booking.ShapeHalfDay:
		if req.Period, err = booking.ParsePeriod(b.Period); err != nil {
			return req, err
		}
	case booking.ShapeMultiDay:
		if req.EndDate, err = request.ParseDate(b.EndDate, b.TimeZone); err != nil {
			return req, errInvalidDate
		}
	}
	return req, nil
}

type IntervalResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Shape string    `json:"shape"`
}

type CreateBookingBody struct {
	RangeBody
	ResourceIDs []string `json:"resource_ids" binding:"omitempty,dive,uuid"`
	AttendeeIDs []string `json:"attendee_ids" binding:"omitempty,dive,required"`
	Title       string   `json:"title" binding:"max=200"`
	Notes       string   `json:"notes" binding:"max=2000"`
}

type ConflictCheckBody struct {
	RangeBody
	ResourceIDs      []string `json:"resource_ids" binding:"omitempty,dive,uuid"`
	ExcludeBookingID string   `json:"exclude_booking_id" binding:"omitempty,uuid"`
}

type ConflictCheckResponse struct {
	Start     time.Time         `json:"start"`
	End       time.Time         `json:"end"`
	Available bool              `json:"available"`
	Conflicts []BookingResponse `json:"conflicts"`
}

// EditBookingBody leaves absent fields untouched. An explicit empty
// resource_ids list is rejected by the service.
type EditBookingBody struct {
	RangeBody
	ResourceIDs []string `json:"resource_ids" binding:"omitempty,dive,uuid"`
	Title       *string  `json:"title" binding:"omitempty,max=200"`
	Notes       *string  `json:"notes" binding:"omitempty,max=2000"`
}

type DecisionBody struct {
	Approve *bool  `json:"approve" binding:"required"`
	Reason  string `json:"reason" binding:"max=500"`
}

type ListBookingsQuery struct {
	From        time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	To          time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	ResourceIDs []string  `form:"resource_id" binding:"omitempty,dive,uuid"`
	Statuses    []string  `form:"status"`
	Mine        bool      `form:"mine"`
	Limit       int       `form:"limit" binding:"omitempty,min=1,max=1000"`
}

type TimeSlotsResponse struct {
	Slots []string `json:"slots"`
}
