package http

import (
	"time"

	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/booking"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/calendar"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/pkg/request"
)

type DayLayoutQuery struct {
	request.DayQuery
	ResourceIDs []string `form:"resource_id" binding:"omitempty,dive,uuid"`
	Mine        bool     `form:"mine"`
}

type GridResponse struct {
	StartHour int     `json:"start_hour"`
	EndHour   int     `json:"end_hour"`
	PxPerHour float64 `json:"px_per_hour"`
	Height    float64 `json:"height"`
	SnapMin   int     `json:"snap_minutes"`
}

func NewGridResponse(g calendar.Grid) GridResponse {
	return GridResponse{
		StartHour: g.StartHour,
		EndHour:   g.EndHour,
		PxPerHour: g.PxPerHour,
		Height:    g.Height(),
		SnapMin:   int(g.Snap / time.Minute),
	}
}

// PlacementResponse is one positioned booking. Left and width are fractions
// of the day column; top and height are pixels.
type PlacementResponse struct {
	BookingID    string    `json:"booking_id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	ResourceIDs  []string  `json:"resource_ids"`
	Column       int       `json:"column"`
	TotalColumns int       `json:"total_columns"`
	Top          float64   `json:"top"`
	Height       float64   `json:"height"`
	Left         float64   `json:"left"`
	Width        float64   `json:"width"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
}

func NewPlacementResponse(p calendar.Placement, b *booking.Booking) PlacementResponse {
	return PlacementResponse{
		BookingID:    b.ID,
		UserID:       b.UserID,
		Title:        b.Title,
		Status:       string(b.Status),
		ResourceIDs:  b.ResourceIDs,
		Column:       p.Column,
		TotalColumns: p.TotalColumns,
		Top:          p.Top,
		Height:       p.Height,
		Left:         p.Left,
		Width:        p.Width,
		Start:        p.Start,
		End:          p.End,
	}
}

type DayLayoutResponse struct {
	Date       string              `json:"date"`
	Grid       GridResponse        `json:"grid"`
	Placements []PlacementResponse `json:"placements"`
}

// SelectionBody replays a pointer gesture: pressed at from_px, released at
// to_px. A release outside the grid selects nothing.
type SelectionBody struct {
	Date     string   `json:"date" binding:"required"`
	TimeZone string   `json:"tz"`
	FromPx   *float64 `json:"from_px" binding:"required"`
	ToPx     *float64 `json:"to_px" binding:"required"`
	Inside   *bool    `json:"inside"`
}

type SelectionResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type TimeAtQuery struct {
	request.DayQuery
	Px *float64 `form:"px" binding:"required"`
}

type TimeAtResponse struct {
	Time time.Time `json:"time"`
}
