package calendar

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func clock(hh, mm int) time.Time {
	return time.Date(2024, 6, 3, hh, mm, 0, 0, time.UTC)
}

func byID(ps []Placement) map[string]Placement {
	out := make(map[string]Placement, len(ps))
	for _, p := range ps {
		out[p.ID] = p
	}
	return out
}

func TestLayout_ChainedOverlap(t *testing.T) {
	got := byID(Layout([]Item{
		{ID: "C", Start: clock(10, 0), End: clock(11, 0)},
		{ID: "A", Start: clock(9, 0), End: clock(10, 0)},
		{ID: "B", Start: clock(9, 30), End: clock(10, 30)},
	}))

	assert.NotEqual(t, got["A"].Column, got["B"].Column)
	assert.Equal(t, got["A"].Column, got["C"].Column)
	assert.Equal(t, 2, got["A"].TotalColumns)
	assert.Equal(t, 2, got["B"].TotalColumns)
	assert.Equal(t, 2, got["C"].TotalColumns)
	assert.Equal(t, 0.5, got["B"].Left)
	assert.Equal(t, 0.5, got["B"].Width)
}

func TestLayout_DisjointItemsShareColumn(t *testing.T) {
	got := Layout([]Item{
		{ID: "a", Start: clock(8, 0), End: clock(9, 0)},
		{ID: "b", Start: clock(12, 0), End: clock(13, 0)},
	})

	require.Len(t, got, 2)
	for _, p := range got {
		assert.Equal(t, 0, p.Column)
		assert.Equal(t, 1, p.TotalColumns)
		assert.Equal(t, 1.0, p.Width)
	}
}

func TestLayout_TotalColumnsIsLocal(t *testing.T) {
	// Three-way pile-up in the morning, a lone item in the afternoon.
	got := byID(Layout([]Item{
		{ID: "a", Start: clock(9, 0), End: clock(11, 0)},
		{ID: "b", Start: clock(9, 0), End: clock(10, 0)},
		{ID: "c", Start: clock(9, 30), End: clock(10, 30)},
		{ID: "late", Start: clock(15, 0), End: clock(16, 0)},
	}))

	assert.Equal(t, 3, got["a"].TotalColumns)
	assert.Equal(t, 1, got["late"].TotalColumns)
	assert.Equal(t, 0, got["late"].Column)
}

func TestLayout_Empty(t *testing.T) {
	assert.Empty(t, Layout(nil))
}

// For many random item sets: items sharing a column never overlap and every
// item's column index is below its column count.
func TestLayout_ColumnInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))

	for round := 0; round < 500; round++ {
		n := 1 + rng.IntN(15)
		items := make([]Item, n)
		for i := range items {
			start := rng.IntN(48)
			length := 1 + rng.IntN(12)
			items[i] = Item{
				ID:    fmt.Sprintf("%d", i),
				Start: clock(6, 0).Add(time.Duration(start) * 15 * time.Minute),
				End:   clock(6, 0).Add(time.Duration(start+length) * 15 * time.Minute),
			}
		}

		placements := Layout(items)
		require.Len(t, placements, n)

		for i, p := range placements {
			assert.Less(t, p.Column, p.TotalColumns, "round %d item %s", round, p.ID)
			for _, q := range placements[i+1:] {
				if p.Column != q.Column {
					continue
				}
				overlap := p.Start.Before(q.End) && q.Start.Before(p.End)
				assert.False(t, overlap, "round %d: %s and %s share column %d", round, p.ID, q.ID, p.Column)
			}
		}
	}
}

func TestVertical(t *testing.T) {
	g := DefaultGrid()

	top, height, ok := g.Vertical(day, clock(9, 30), clock(11, 0))
	require.True(t, ok)
	assert.InDelta(t, 3.5*48, top, 1e-9)
	assert.InDelta(t, 1.5*48, height, 1e-9)

	_, height, ok = g.Vertical(day, clock(9, 0), clock(9, 5))
	require.True(t, ok)
	assert.Equal(t, g.MinHeight, height)

	_, _, ok = g.Vertical(day, clock(21, 0), clock(22, 0))
	assert.False(t, ok)
}

func TestCompute_ClipsMultiDayItems(t *testing.T) {
	g := DefaultGrid()
	items := []Item{
		{ID: "week", Start: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 5, 17, 0, 0, 0, time.UTC)},
		{ID: "short", Start: clock(10, 0), End: clock(11, 0)},
		{ID: "tomorrow", Start: time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 4, 11, 0, 0, 0, time.UTC)},
	}

	got := byID(g.Compute(day, items))

	require.Len(t, got, 2)
	week := got["week"]
	assert.Equal(t, 0.0, week.Top)
	assert.InDelta(t, g.Height(), week.Height, 1e-9)
	assert.Equal(t, clock(6, 0), week.Start)
	assert.Equal(t, clock(20, 0), week.End)
	assert.Equal(t, 2, got["short"].TotalColumns)
	assert.InDelta(t, 4*48.0, got["short"].Top, 1e-9)
}

func TestGridValidate(t *testing.T) {
	assert.NoError(t, DefaultGrid().Validate())

	g := DefaultGrid()
	g.Snap = 7 * time.Minute
	assert.Error(t, g.Validate())

	g = DefaultGrid()
	g.StartHour, g.EndHour = 10, 10
	assert.Error(t, g.Validate())

	g = DefaultGrid()
	g.MinDuration = 20 * time.Minute
	assert.Error(t, g.Validate())
}
