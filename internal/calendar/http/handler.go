package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/auth"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/booking"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/calendar"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/pkg/request"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/pkg/response"
)

type Handler struct {
	bookings booking.Service
	grid     calendar.Grid
}

func NewHandler(bookings booking.Service, grid calendar.Grid) *Handler {
	return &Handler{bookings: bookings, grid: grid}
}

// Day lays out the active bookings visible on one day.
func (h *Handler) Day(c *gin.Context) {
	var query DayLayoutQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	day, err := query.Day()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lo, hi := h.grid.Bounds(day)
	window := booking.Interval{Start: lo, End: hi}
	filter := booking.Filter{
		ResourceIDs: query.ResourceIDs,
		Statuses:    booking.ActiveStatuses(),
		Window:      &window,
	}
	if query.Mine {
		filter.UserID = auth.GetUserID(c)
	}

	list, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	byID := make(map[string]*booking.Booking, len(list))
	items := make([]calendar.Item, 0, len(list))
	for _, b := range list {
		byID[b.ID] = b
		items = append(items, calendar.Item{ID: b.ID, Start: b.StartTime, End: b.EndTime})
	}

	placements := h.grid.Compute(day, items)
	out := make([]PlacementResponse, len(placements))
	for i, p := range placements {
		out[i] = NewPlacementResponse(p, byID[p.ID])
	}

	c.JSON(http.StatusOK, DayLayoutResponse{
		Date:       day.Format(request.DateLayout),
		Grid:       NewGridResponse(h.grid),
		Placements: out,
	})
}

func (h *Handler) TimeAt(c *gin.Context) {
	var query TimeAtQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	day, err := query.Day()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, TimeAtResponse{Time: h.grid.TimeAt(day, *query.Px)})
}

// Selection turns a completed drag into a bookable interval.
func (h *Handler) Selection(c *gin.Context) {
	var body SelectionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	day, err := request.ParseDate(body.Date, body.TimeZone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inside := body.Inside == nil || *body.Inside
	drag := h.grid.BeginDrag(day, *body.FromPx)
	drag.Move(*body.ToPx)
	start, end, err := drag.Release(*body.ToPx, inside)
	if err != nil {
		if errors.Is(err, calendar.ErrDragCancelled) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "selection cancelled"})
			return
		}
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, SelectionResponse{Start: start, End: end})
}
