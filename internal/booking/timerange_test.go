package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestResolveRange_Shapes(t *testing.T) {
	hours := DefaultBusinessHours()

	tests := []struct {
		name string
		req  RangeRequest
		want Interval
	}{
		{
			name: "time slot",
			req:  RangeRequest{Shape: ShapeTimeSlot, Date: day(2024, 6, 3), StartClock: NewClock(9, 15), EndClock: NewClock(10, 45)},
			want: Interval{Start: at(2024, 6, 3, 9, 15), End: at(2024, 6, 3, 10, 45)},
		},
		{
			name: "half day morning",
			req:  RangeRequest{Shape: ShapeHalfDay, Date: day(2024, 6, 3), Period: PeriodAM},
			want: Interval{Start: at(2024, 6, 3, 8, 0), End: at(2024, 6, 3, 12, 0)},
		},
		{
			name: "half day afternoon",
			req:  RangeRequest{Shape: ShapeHalfDay, Date: day(2024, 6, 3), Period: PeriodPM},
			want: Interval{Start: at(2024, 6, 3, 12, 0), End: at(2024, 6, 3, 17, 0)},
		},
		{
			name: "full day",
			req:  RangeRequest{Shape: ShapeFullDay, Date: day(2024, 6, 3)},
			want: Interval{Start: at(2024, 6, 3, 8, 0), End: at(2024, 6, 3, 17, 0)},
		},
		{
			name: "multi day",
			req:  RangeRequest{Shape: ShapeMultiDay, Date: day(2024, 6, 3), EndDate: day(2024, 6, 5)},
			want: Interval{Start: at(2024, 6, 3, 8, 0), End: at(2024, 6, 5, 17, 0)},
		},
		{
			name: "multi day on a single date",
			req:  RangeRequest{Shape: ShapeMultiDay, Date: day(2024, 6, 3), EndDate: day(2024, 6, 3)},
			want: Interval{Start: at(2024, 6, 3, 8, 0), End: at(2024, 6, 3, 17, 0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveRange(tt.req, hours)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
			assert.True(t, got.Start.Before(got.End))
		})
	}
}

func TestResolveRange_HalfDaysAreDisjointAndCoverFullDay(t *testing.T) {
	hours := DefaultBusinessHours()
	d := day(2024, 6, 3)

	am, err := ResolveRange(RangeRequest{Shape: ShapeHalfDay, Date: d, Period: PeriodAM}, hours)
	require.NoError(t, err)
	pm, err := ResolveRange(RangeRequest{Shape: ShapeHalfDay, Date: d, Period: PeriodPM}, hours)
	require.NoError(t, err)
	full, err := ResolveRange(RangeRequest{Shape: ShapeFullDay, Date: d}, hours)
	require.NoError(t, err)

	assert.False(t, am.Overlaps(pm))
	assert.True(t, am.End.Equal(pm.Start))
	assert.True(t, am.Start.Equal(full.Start))
	assert.True(t, pm.End.Equal(full.End))
}

func TestResolveRange_Idempotent(t *testing.T) {
	req := RangeRequest{Shape: ShapeTimeSlot, Date: day(2024, 6, 3), StartClock: NewClock(13, 0), EndClock: NewClock(14, 0)}

	first, err := ResolveRange(req, DefaultBusinessHours())
	require.NoError(t, err)
	second, err := ResolveRange(req, DefaultBusinessHours())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveRange_InvertedTimeSlot(t *testing.T) {
	req := RangeRequest{Shape: ShapeTimeSlot, Date: day(2024, 6, 3), StartClock: NewClock(14, 0), EndClock: NewClock(13, 0)}

	_, err := ResolveRange(req, DefaultBusinessHours())

	var rangeErr *InvalidRangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, at(2024, 6, 3, 14, 0), rangeErr.Start)
	assert.Equal(t, at(2024, 6, 3, 13, 0), rangeErr.End)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestResolveRange_Rejects(t *testing.T) {
	hours := DefaultBusinessHours()

	tests := []struct {
		name string
		req  RangeRequest
		want error
	}{
		{"empty time slot", RangeRequest{Shape: ShapeTimeSlot, Date: day(2024, 6, 3), StartClock: NewClock(9, 0), EndClock: NewClock(9, 0)}, ErrInvalidTimeRange},
		{"multi day ending before start", RangeRequest{Shape: ShapeMultiDay, Date: day(2024, 6, 5), EndDate: day(2024, 6, 3)}, ErrInvalidTimeRange},
		{"multi day without end date", RangeRequest{Shape: ShapeMultiDay, Date: day(2024, 6, 5)}, ErrInvalidTimeRange},
		{"half day without period", RangeRequest{Shape: ShapeHalfDay, Date: day(2024, 6, 3)}, ErrInvalidPeriod},
		{"unknown shape", RangeRequest{Shape: "fortnight", Date: day(2024, 6, 3)}, ErrInvalidShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveRange(tt.req, hours)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolveRange_UsesAnchorLocation(t *testing.T) {
	taipei, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	got, err := ResolveRange(RangeRequest{Shape: ShapeFullDay, Date: time.Date(2024, 6, 3, 0, 0, 0, 0, taipei)}, DefaultBusinessHours())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), got.Start.UTC())
	assert.Equal(t, time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC), got.End.UTC())
}

func TestResolveRange_EndDateReadInAnchorLocation(t *testing.T) {
	taipei, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	// 20:00 UTC on June 4 is already June 5 in Taipei.
	got, err := ResolveRange(RangeRequest{
		Shape:   ShapeMultiDay,
		Date:    time.Date(2024, 6, 3, 0, 0, 0, 0, taipei),
		EndDate: at(2024, 6, 4, 20, 0),
	}, DefaultBusinessHours())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 6, 3, 8, 0, 0, 0, taipei), got.Start)
	assert.Equal(t, time.Date(2024, 6, 5, 17, 0, 0, 0, taipei), got.End)
}

func TestClockOn_UsesTargetLocation(t *testing.T) {
	plus8 := time.FixedZone("UTC+8", 8*60*60)
	c := Clock{Hour: 9}

	got := c.On(at(2024, 6, 3, 23, 0), plus8)

	assert.Equal(t, time.Date(2024, 6, 4, 9, 0, 0, 0, plus8), got)
}

func TestParsers(t *testing.T) {
	c, err := ParseClock("07:45")
	require.NoError(t, err)
	assert.Equal(t, NewClock(7, 45), c)
	assert.Equal(t, "07:45", c.String())

	_, err = ParseClock("7.45pm")
	assert.ErrorIs(t, err, ErrInvalidClock)

	p, err := ParsePeriod("afternoon")
	require.NoError(t, err)
	assert.Equal(t, PeriodPM, p)

	_, err = ParsePeriod("evening")
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	s, err := ParseShape(" Multi_Day ")
	require.NoError(t, err)
	assert.Equal(t, ShapeMultiDay, s)
}

func TestTimeSlotOptions(t *testing.T) {
	opts := TimeSlotOptions(NewClock(6, 0), NewClock(20, 0), 15*time.Minute)

	require.Len(t, opts, 57)
	assert.Equal(t, NewClock(6, 0), opts[0])
	assert.Equal(t, NewClock(6, 15), opts[1])
	assert.Equal(t, NewClock(20, 0), opts[len(opts)-1])

	assert.Nil(t, TimeSlotOptions(NewClock(10, 0), NewClock(9, 0), 15*time.Minute))
}

func TestBusinessHoursValidate(t *testing.T) {
	assert.NoError(t, DefaultBusinessHours().Validate())
	assert.Error(t, BusinessHours{DayStart: NewClock(12, 0), Midday: NewClock(12, 0), DayEnd: NewClock(17, 0)}.Validate())
}

func TestResolveRange_AfternoonAndMultiDayAnchors(t *testing.T) {
	hours := DefaultBusinessHours()

	pm, err := ResolveRange(RangeRequest{Shape: ShapeHalfDay, Date: day(2024, 6, 1), Period: PeriodPM}, hours)
	require.NoError(t, err)
	assert.Equal(t, at(2024, 6, 1, 12, 0), pm.Start)
	assert.Equal(t, at(2024, 6, 1, 17, 0), pm.End)

	multi, err := ResolveRange(RangeRequest{Shape: ShapeMultiDay, Date: day(2024, 6, 1), EndDate: day(2024, 6, 3)}, hours)
	require.NoError(t, err)
	assert.Equal(t, at(2024, 6, 1, 8, 0), multi.Start)
	assert.Equal(t, at(2024, 6, 3, 17, 0), multi.End)
}
