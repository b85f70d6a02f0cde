// Package calendar lays out reservations on a day grid and maps pointer
// gestures on that grid back to time intervals. Everything here is pure.
package calendar

import (
	"fmt"
	"time"
)

// Grid describes the visible day: hours [StartHour, EndHour) drawn at PxPerHour.
type Grid struct {
	StartHour   int
	EndHour     int
	PxPerHour   float64
	MinHeight   float64
	Snap        time.Duration
	MinDuration time.Duration
}

func DefaultGrid() Grid {
	return Grid{
		StartHour:   6,
		EndHour:     20,
		PxPerHour:   48,
		MinHeight:   18,
		Snap:        15 * time.Minute,
		MinDuration: 30 * time.Minute,
	}
}

func (g Grid) Validate() error {
	if g.StartHour < 0 || g.EndHour > 24 || g.StartHour >= g.EndHour {
		return fmt.Errorf("calendar hours must satisfy 0 <= start < end <= 24, got %d-%d", g.StartHour, g.EndHour)
	}
	if g.PxPerHour <= 0 {
		return fmt.Errorf("calendar scale must be positive, got %v", g.PxPerHour)
	}
	if g.Snap <= 0 || time.Hour%g.Snap != 0 {
		return fmt.Errorf("calendar snap must divide an hour, got %s", g.Snap)
	}
	if g.MinDuration < g.Snap || g.MinDuration%g.Snap != 0 {
		return fmt.Errorf("minimum duration must be a multiple of the snap, got %s", g.MinDuration)
	}
	if g.MinDuration > time.Duration(g.EndHour-g.StartHour)*time.Hour {
		return fmt.Errorf("minimum duration %s does not fit the visible day", g.MinDuration)
	}
	return nil
}

// Height is the pixel height of the whole visible day.
func (g Grid) Height() float64 {
	return float64(g.EndHour-g.StartHour) * g.PxPerHour
}

// Bounds returns the visible window of the calendar date of day, in day's location.
func (g Grid) Bounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	loc := day.Location()
	return time.Date(y, m, d, g.StartHour, 0, 0, 0, loc), time.Date(y, m, d, g.EndHour, 0, 0, 0, loc)
}

// Clip intersects [start, end) with the visible window of day.
// ok is false when nothing of the interval is visible that day.
func (g Grid) Clip(day, start, end time.Time) (time.Time, time.Time, bool) {
	lo, hi := g.Bounds(day)
	if start.Before(lo) {
		start = lo
	}
	if end.After(hi) {
		end = hi
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// Vertical maps an interval to its top offset and height in pixels on day.
// Intervals are clipped to the visible window first; ok is false when nothing is visible.
func (g Grid) Vertical(day, start, end time.Time) (top, height float64, ok bool) {
	start, end, ok = g.Clip(day, start, end)
	if !ok {
		return 0, 0, false
	}
	lo, _ := g.Bounds(day)
	top = start.Sub(lo).Hours() * g.PxPerHour
	height = max(g.MinHeight, end.Sub(start).Hours()*g.PxPerHour)
	return top, height, true
}
