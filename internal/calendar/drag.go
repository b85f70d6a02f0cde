package calendar

import (
	"errors"
	"math"
	"time"
)

// ErrDragCancelled is returned when a gesture ends without selecting anything.
var ErrDragCancelled = errors.New("drag cancelled")

// TimeAt maps a vertical offset on day to a time snapped to the nearest
// Snap and clamped to [StartHour, EndHour - Snap].
func (g Grid) TimeAt(day time.Time, px float64) time.Time {
	lo, _ := g.Bounds(day)

	snap := g.Snap.Minutes()
	minutes := math.Round(px/g.PxPerHour*60/snap) * snap
	last := float64(g.EndHour-g.StartHour)*60 - snap
	minutes = math.Min(math.Max(minutes, 0), last)

	return lo.Add(time.Duration(minutes) * time.Minute)
}

// Selection resolves two offsets into an ordered interval of at least
// MinDuration that ends no later than EndHour.
func (g Grid) Selection(day time.Time, fromPx, toPx float64) (time.Time, time.Time) {
	start, end := g.TimeAt(day, fromPx), g.TimeAt(day, toPx)
	if end.Before(start) {
		start, end = end, start
	}
	if end.Sub(start) < g.MinDuration {
		end = start.Add(g.MinDuration)
	}
	if _, hi := g.Bounds(day); end.After(hi) {
		end = hi
		start = hi.Add(-g.MinDuration)
	}
	return start, end
}

type dragState int

const (
	dragActive dragState = iota
	dragReleased
	dragCancelled
)

// Drag tracks one select gesture on a day column. It is not safe for concurrent use.
type Drag struct {
	grid    Grid
	day     time.Time
	anchor  float64
	current float64
	state   dragState
}

// BeginDrag starts a gesture at offset px.
func (g Grid) BeginDrag(day time.Time, px float64) *Drag {
	return &Drag{grid: g, day: day, anchor: px, current: px}
}

// Move updates the pointer position. It has no effect once the gesture ended.
func (d *Drag) Move(px float64) {
	if d.state == dragActive {
		d.current = px
	}
}

// Preview returns the interval the gesture would select right now.
func (d *Drag) Preview() (time.Time, time.Time) {
	return d.grid.Selection(d.day, d.anchor, d.current)
}

// Cancel aborts the gesture.
func (d *Drag) Cancel() {
	if d.state == dragActive {
		d.state = dragCancelled
	}
}

// Active reports whether the gesture is still in progress.
func (d *Drag) Active() bool {
	return d.state == dragActive
}

// Release ends the gesture at px. Releasing outside the grid, after Cancel
// or a second time yields ErrDragCancelled.
func (d *Drag) Release(px float64, inside bool) (time.Time, time.Time, error) {
	if d.state != dragActive {
		return time.Time{}, time.Time{}, ErrDragCancelled
	}
	if !inside {
		d.state = dragCancelled
		return time.Time{}, time.Time{}, ErrDragCancelled
	}
	d.state = dragReleased
	d.current = px
	start, end := d.Preview()
	return start, end, nil
}
