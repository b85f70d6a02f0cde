package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/auth"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/booking"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/export"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/pkg/request"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/pkg/response"
)

// SlotConfig bounds the time-slot picker offered to clients.
type SlotConfig struct {
	From booking.Clock
	To   booking.Clock
	Step time.Duration
}

type Handler struct {
	service booking.Service
	slots   SlotConfig
	now     func() time.Time
}

func NewHandler(service booking.Service, slots SlotConfig) *Handler {
	return &Handler{service: service, slots: slots, now: time.Now}
}

func principal(c *gin.Context) booking.Principal {
	return booking.Principal{
		UserID: auth.GetUserID(c),
		Role:   booking.Role(auth.GetRole(c)),
	}
}

// writeError reports conflicts together with the bookings that caused them.
func writeError(c *gin.Context, err error) {
	var conflict *booking.ConflictError
	if errors.As(err, &conflict) {
		response.ErrorWithDetails(c, err, gin.H{"conflicts": NewBookingResponses(conflict.Conflicts)})
		return
	}
	response.Error(c, err)
}

// resolve turns a range body into an interval, honoring explicit bounds first.
// Explicit bounds are always stored as a time slot.
func (h *Handler) resolve(body *RangeBody) (booking.Interval, booking.Shape, error) {
	if body.explicit() {
		if body.Shape != "" {
			s, err := booking.ParseShape(body.Shape)
			if err != nil {
				return booking.Interval{}, "", err
			}
			if s != booking.ShapeTimeSlot {
				return booking.Interval{}, "", errShapeWithRange
			}
		}
		return booking.Interval{Start: *body.Start, End: *body.End}, booking.ShapeTimeSlot, nil
	}
	if body.Shape == "" {
		return booking.Interval{}, "", errMissingRange
	}

	req, err := body.toRangeRequest()
	if err != nil {
		return booking.Interval{}, "", err
	}
	iv, err := h.service.ResolveRange(req)
	if err != nil {
		return booking.Interval{}, "", err
	}
	return iv, req.Shape, nil
}

func (h *Handler) TimeSlots(c *gin.Context) {
	options := booking.TimeSlotOptions(h.slots.From, h.slots.To, h.slots.Step)
	slots := make([]string, len(options))
	for i, o := range options {
		slots[i] = o.String()
	}
	c.JSON(http.StatusOK, TimeSlotsResponse{Slots: slots})
}

func (h *Handler) ResolveRange(c *gin.Context) {
	var body RangeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	iv, shape, err := h.resolve(&body)
	if err != nil {
		writeError(c, err)
		return
	}
	if !iv.Valid() {
		writeError(c, &booking.InvalidRangeError{Start: iv.Start, End: iv.End})
		return
	}
	c.JSON(http.StatusOK, IntervalResponse{Start: iv.Start, End: iv.End, Shape: string(shape)})
}

func (h *Handler) DetectConflicts(c *gin.Context) {
	var body ConflictCheckBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	iv, _, err := h.resolve(&body.RangeBody)
	if err != nil {
		writeError(c, err)
		return
	}

	q := booking.ConflictQuery{Interval: iv, ResourceIDs: body.ResourceIDs}
	if body.ExcludeBookingID != "" {
		self, err := h.service.GetByID(c.Request.Context(), body.ExcludeBookingID)
		if err != nil {
			writeError(c, err)
			return
		}
		q.ExcludeBookingID = self.ID
		q.ExcludeGroupID = self.GroupID
	}

	conflicts, err := h.service.DetectConflicts(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ConflictCheckResponse{
		Start:     iv.Start,
		End:       iv.End,
		Available: len(conflicts) == 0,
		Conflicts: NewBookingResponses(conflicts),
	})
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	iv, shape, err := h.resolve(&body.RangeBody)
	if err != nil {
		writeError(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), booking.CreateRequest{
		Interval:    iv,
		Shape:       shape,
		ResourceIDs: body.ResourceIDs,
		OwnerID:     auth.GetUserID(c),
		AttendeeIDs: body.AttendeeIDs,
		Title:       body.Title,
		Notes:       body.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"items": NewBookingResponses(created)})
}

func (h *Handler) List(c *gin.Context) {
	var query ListBookingsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	window := booking.Interval{Start: query.From, End: query.To}
	if !window.Valid() {
		writeError(c, &booking.InvalidRangeError{Start: window.Start, End: window.End})
		return
	}

	filter := booking.Filter{
		ResourceIDs: query.ResourceIDs,
		Window:      &window,
		Limit:       query.Limit,
	}
	for _, raw := range query.Statuses {
		s, err := booking.ParseStatus(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		filter.Statuses = append(filter.Statuses, s)
	}
	if query.Mine {
		filter.UserID = auth.GetUserID(c)
	}

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewWindowResponse(NewBookingResponses(list), window.Start, window.End))
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Edit(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body EditBookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	edit := booking.EditRequest{
		ResourceIDs: body.ResourceIDs,
		Title:       body.Title,
		Notes:       body.Notes,
	}
	if body.RangeBody.IsSet() {
		iv, shape, err := h.resolve(&body.RangeBody)
		if err != nil {
			writeError(c, err)
			return
		}
		edit.Interval = &iv
		edit.Shape = &shape
	}

	updated, err := h.service.Edit(c.Request.Context(), req.ID, edit, principal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": NewBookingResponses(updated)})
}

func (h *Handler) Cancel(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), req.ID, principal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Decide(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body DecisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	decided, err := h.service.Decide(c.Request.Context(), req.ID, booking.Decision{
		Approve: *body.Approve,
		Reason:  body.Reason,
	}, principal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": NewBookingResponses(decided)})
}

// DownloadICS serves the caller's calendar entry for an approved booking.
func (h *Handler) DownloadICS(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ev, err := h.service.CalendarEntry(c.Request.Context(), req.ID, principal(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(ev)))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", export.RenderICS(ev, h.now()))
}
