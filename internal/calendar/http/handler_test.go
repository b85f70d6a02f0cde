package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/auth"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/booking"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/calendar"
)

type listStub struct {
	booking.Service
	list   []*booking.Booking
	filter booking.Filter
}

func (s *listStub) List(_ context.Context, f booking.Filter) ([]*booking.Booking, error) {
	s.filter = f
	return s.list, nil
}

func at(hh, mm int) time.Time {
	return time.Date(2025, 3, 10, hh, mm, 0, 0, time.UTC)
}

func setup(t *testing.T, stub *listStub) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwt := auth.NewJWTManager("test-secret", time.Minute)
	token, err := jwt.GenerateAccessToken("alice", "member")
	require.NoError(t, err)

	r := gin.New()
	RegisterRoutes(r.Group("/v1"), NewHandler(stub, calendar.DefaultGrid()), auth.AuthRequired(jwt))
	return r, "Bearer " + token
}

func send(r http.Handler, token, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDay_LaysOutOverlappingBookings(t *testing.T) {
	stub := &listStub{list: []*booking.Booking{
		{ID: "a", StartTime: at(9, 0), EndTime: at(10, 0), Status: booking.StatusApproved},
		{ID: "b", StartTime: at(9, 30), EndTime: at(10, 30), Status: booking.StatusPending},
		{ID: "c", StartTime: at(10, 0), EndTime: at(11, 0), Status: booking.StatusApproved},
	}}
	r, token := setup(t, stub)

	w := send(r, token, http.MethodGet, "/v1/calendar/day?date=2025-03-10&mine=true", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp DayLayoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2025-03-10", resp.Date)
	assert.Equal(t, 672.0, resp.Grid.Height)

	cols := map[string]int{}
	for _, p := range resp.Placements {
		cols[p.BookingID] = p.Column
		assert.Equal(t, 2, p.TotalColumns)
	}
	assert.Equal(t, map[string]int{"a": 0, "b": 1, "c": 0}, cols)

	require.NotNil(t, stub.filter.Window)
	assert.True(t, stub.filter.Window.Start.Equal(at(6, 0)))
	assert.True(t, stub.filter.Window.End.Equal(at(20, 0)))
	assert.Equal(t, booking.ActiveStatuses(), stub.filter.Statuses)
	assert.Equal(t, "alice", stub.filter.UserID)
}

func TestDay_RequiresDate(t *testing.T) {
	r, token := setup(t, &listStub{})

	w := send(r, token, http.MethodGet, "/v1/calendar/day", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, token, http.MethodGet, "/v1/calendar/day?date=2025-03-10&tz=Mars/Olympus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimeAt(t *testing.T) {
	r, token := setup(t, &listStub{})

	// 150px at 48px/h is 3h07.5m past 06:00, which snaps to 09:15.
	w := send(r, token, http.MethodGet, "/v1/calendar/time-at?date=2025-03-10&px=150", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp TimeAtResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Time.Equal(at(9, 15)), resp.Time)
}

func TestSelection(t *testing.T) {
	r, token := setup(t, &listStub{})

	w := send(r, token, http.MethodPost, "/v1/calendar/selection", gin.H{
		"date": "2025-03-10", "from_px": 192, "to_px": 144,
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp SelectionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Start.Equal(at(9, 0)))
	assert.True(t, resp.End.Equal(at(10, 0)))
}

func TestSelection_OutsideReleaseCancels(t *testing.T) {
	r, token := setup(t, &listStub{})

	w := send(r, token, http.MethodPost, "/v1/calendar/selection", gin.H{
		"date": "2025-03-10", "from_px": 0, "to_px": 48, "inside": false,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
