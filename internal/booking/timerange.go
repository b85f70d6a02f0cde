package booking

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

func NewClock(hour, minute int) Clock {
	return Clock{Hour: hour, Minute: minute}
}

// ParseClock parses "HH:MM" (24-hour).
func ParseClock(raw string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return Clock{}, ErrInvalidClock
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes returns the number of minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) Before(o Clock) bool {
	return c.Minutes() < o.Minutes()
}

// On places the clock on the calendar date day falls on in loc.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc)
}

// Period selects a half of the business day.
type Period string

const (
	PeriodAM Period = "AM"
	PeriodPM Period = "PM"
)

func ParsePeriod(raw string) (Period, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "AM", "MORNING":
		return PeriodAM, nil
	case "PM", "AFTERNOON":
		return PeriodPM, nil
	}
	return "", ErrInvalidPeriod
}

// BusinessHours are the wall-clock bounds used by the day-based shapes.
type BusinessHours struct {
	DayStart Clock
	Midday   Clock
	DayEnd   Clock
}

func DefaultBusinessHours() BusinessHours {
	return BusinessHours{
		DayStart: NewClock(8, 0),
		Midday:   NewClock(12, 0),
		DayEnd:   NewClock(17, 0),
	}
}

func (h BusinessHours) Validate() error {
	if !h.DayStart.Before(h.Midday) || !h.Midday.Before(h.DayEnd) {
		return fmt.Errorf("business hours must satisfy start < midday < end, got %s/%s/%s",
			h.DayStart, h.Midday, h.DayEnd)
	}
	return nil
}

// RangeRequest describes a booking shape. Date is the anchor day; its
// location is the wall clock all times are resolved in.
type RangeRequest struct {
	Shape      Shape
	Date       time.Time
	EndDate    time.Time // multi_day only
	StartClock Clock     // time_slot only
	EndClock   Clock     // time_slot only
	Period     Period    // half_day only
}

// ResolveRange maps a shape descriptor to a concrete half-open interval.
// It is pure: the same request always yields the same interval.
func ResolveRange(req RangeRequest, hours BusinessHours) (Interval, error) {
	loc := req.Date.Location()

	var iv Interval
	switch req.Shape {
	case ShapeTimeSlot:
		iv = Interval{Start: req.StartClock.On(req.Date, loc), End: req.EndClock.On(req.Date, loc)}
	case ShapeHalfDay:
		switch req.Period {
		case PeriodAM:
			iv = Interval{Start: hours.DayStart.On(req.Date, loc), End: hours.Midday.On(req.Date, loc)}
		case PeriodPM:
			iv = Interval{Start: hours.Midday.On(req.Date, loc), End: hours.DayEnd.On(req.Date, loc)}
		default:
			return Interval{}, ErrInvalidPeriod
		}
	case ShapeFullDay:
		iv = Interval{Start: hours.DayStart.On(req.Date, loc), End: hours.DayEnd.On(req.Date, loc)}
	case ShapeMultiDay:
		if req.EndDate.IsZero() {
			return Interval{}, &InvalidRangeError{Start: hours.DayStart.On(req.Date, loc)}
		}
		iv = Interval{Start: hours.DayStart.On(req.Date, loc), End: hours.DayEnd.On(req.EndDate, loc)}
	default:
		return Interval{}, ErrInvalidShape
	}

	if !iv.Valid() {
		return Interval{}, &InvalidRangeError{Start: iv.Start, End: iv.End}
	}
	return iv, nil
}

// TimeSlotOptions enumerates the selectable clock values from..to inclusive.
func TimeSlotOptions(from, to Clock, step time.Duration) []Clock {
	stepMin := int(step / time.Minute)
	if stepMin <= 0 || to.Before(from) {
		return nil
	}
	var out []Clock
	for m := from.Minutes(); m <= to.Minutes(); m += stepMin {
		out = append(out, Clock{Hour: m / 60, Minute: m % 60})
	}
	return out
}
