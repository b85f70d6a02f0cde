package calendar

import (
	"cmp"
	"slices"
	"time"
)

// Item is anything with an interval that occupies the calendar.
type Item struct {
	ID    string
	Start time.Time
	End   time.Time
}

func (it Item) overlaps(o Item) bool {
	return it.Start.Before(o.End) && it.End.After(o.Start)
}

// Placement positions one item. Left and Width are fractions of the day column.
type Placement struct {
	ID           string
	Column       int
	TotalColumns int
	Top          float64
	Height       float64
	Left         float64
	Width        float64
	Start        time.Time // visible part of the item
	End          time.Time
}

// Layout packs items into columns so that no two items in one column overlap.
// Items are taken in start order and placed in the first column whose last
// item ends at or before their start. TotalColumns counts the columns holding
// at least one item that overlaps the item itself. The result follows start order.
func Layout(items []Item) []Placement {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b Item) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		if c := b.End.Compare(a.End); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	var columns [][]int
	colOf := make([]int, len(sorted))
	for i, it := range sorted {
		placed := false
		for c, members := range columns {
			last := sorted[members[len(members)-1]]
			if !last.End.After(it.Start) {
				columns[c] = append(members, i)
				colOf[i] = c
				placed = true
				break
			}
		}
		if !placed {
			columns = append(columns, []int{i})
			colOf[i] = len(columns) - 1
		}
	}

	out := make([]Placement, len(sorted))
	for i, it := range sorted {
		total := 0
		for _, members := range columns {
			for _, j := range members {
				if sorted[j].overlaps(it) {
					total++
					break
				}
			}
		}
		// An empty item overlaps nothing, not even itself.
		total = max(total, colOf[i]+1)

		out[i] = Placement{
			ID:           it.ID,
			Column:       colOf[i],
			TotalColumns: total,
			Left:         float64(colOf[i]) / float64(total),
			Width:        1 / float64(total),
			Start:        it.Start,
			End:          it.End,
		}
	}
	return out
}

// DayItems returns the items visible on day, clipped to its window.
func (g Grid) DayItems(day time.Time, items []Item) []Item {
	var out []Item
	for _, it := range items {
		start, end, ok := g.Clip(day, it.Start, it.End)
		if !ok {
			continue
		}
		out = append(out, Item{ID: it.ID, Start: start, End: end})
	}
	return out
}

// Compute lays out the items visible on day and fills in their geometry.
func (g Grid) Compute(day time.Time, items []Item) []Placement {
	placements := Layout(g.DayItems(day, items))
	for i := range placements {
		p := &placements[i]
		p.Top, p.Height, _ = g.Vertical(day, p.Start, p.End)
	}
	return placements
}
