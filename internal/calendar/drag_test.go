package calendar

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeAt_SnapsToNearestQuarter(t *testing.T) {
	g := DefaultGrid()

	assert.Equal(t, clock(6, 0), g.TimeAt(day, 0))
	assert.Equal(t, clock(9, 0), g.TimeAt(day, 3*48))
	// 9:07 rounds down, 9:08 rounds up
	assert.Equal(t, clock(9, 0), g.TimeAt(day, 3*48+7.0/60*48))
	assert.Equal(t, clock(9, 15), g.TimeAt(day, 3*48+8.0/60*48))
}

func TestTimeAt_Clamps(t *testing.T) {
	g := DefaultGrid()

	assert.Equal(t, clock(6, 0), g.TimeAt(day, -200))
	assert.Equal(t, clock(19, 45), g.TimeAt(day, 10_000))
}

func TestTimeAt_AlwaysSnappedAndInside(t *testing.T) {
	g := DefaultGrid()
	rng := rand.New(rand.NewPCG(1, 2))
	lo, hi := g.Bounds(day)

	for i := 0; i < 1000; i++ {
		px := rng.Float64()*(g.Height()+400) - 200
		got := g.TimeAt(day, px)

		assert.False(t, got.Before(lo), "px %v", px)
		assert.True(t, got.Before(hi), "px %v", px)
		assert.Zero(t, got.Sub(lo)%g.Snap, "px %v", px)
	}
}

func TestDrag_Release(t *testing.T) {
	g := DefaultGrid()

	d := g.BeginDrag(day, 3*48)
	d.Move(4 * 48)
	d.Move(5 * 48)
	start, end, err := d.Release(5*48, true)

	require.NoError(t, err)
	assert.Equal(t, clock(9, 0), start)
	assert.Equal(t, clock(11, 0), end)
	assert.False(t, d.Active())
}

func TestDrag_UpwardsIsOrdered(t *testing.T) {
	g := DefaultGrid()

	start, end, err := g.BeginDrag(day, 5*48).Release(3*48, true)

	require.NoError(t, err)
	assert.Equal(t, clock(9, 0), start)
	assert.Equal(t, clock(11, 0), end)
}

func TestDrag_MinimumDuration(t *testing.T) {
	g := DefaultGrid()

	start, end, err := g.BeginDrag(day, 3*48).Release(3*48, true)

	require.NoError(t, err)
	assert.Equal(t, clock(9, 0), start)
	assert.Equal(t, clock(9, 30), end)
}

func TestDrag_ShiftedBackAtEndOfDay(t *testing.T) {
	g := DefaultGrid()

	start, end, err := g.BeginDrag(day, g.Height()).Release(g.Height(), true)

	require.NoError(t, err)
	assert.Equal(t, clock(19, 30), start)
	assert.Equal(t, clock(20, 0), end)
}

func TestDrag_CancelAndOutsideRelease(t *testing.T) {
	g := DefaultGrid()

	d := g.BeginDrag(day, 100)
	d.Cancel()
	d.Move(300)
	_, _, err := d.Release(300, true)
	assert.ErrorIs(t, err, ErrDragCancelled)

	_, _, err = g.BeginDrag(day, 100).Release(300, false)
	assert.ErrorIs(t, err, ErrDragCancelled)

	d = g.BeginDrag(day, 100)
	_, _, err = d.Release(300, true)
	require.NoError(t, err)
	_, _, err = d.Release(300, true)
	assert.ErrorIs(t, err, ErrDragCancelled)
}

func TestDrag_SelectionProperties(t *testing.T) {
	g := DefaultGrid()
	rng := rand.New(rand.NewPCG(9, 9))
	lo, hi := g.Bounds(day)

	for i := 0; i < 1000; i++ {
		from := rng.Float64()*g.Height()*1.2 - 50
		to := rng.Float64()*g.Height()*1.2 - 50

		start, end, err := g.BeginDrag(day, from).Release(to, true)
		require.NoError(t, err)

		assert.True(t, start.Before(end))
		assert.GreaterOrEqual(t, end.Sub(start), g.MinDuration)
		assert.False(t, start.Before(lo))
		assert.False(t, end.After(hi))
		assert.Zero(t, start.Sub(lo)%g.Snap)
		assert.Zero(t, end.Sub(lo)%g.Snap)
	}
}
