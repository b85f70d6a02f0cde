package booking

import (
	"context"
	"slices"
)

// ConflictQuery asks which active bookings block an interval on a set of resources.
// The excluded booking or group is the reservation being edited.
type ConflictQuery struct {
	Interval         Interval
	ResourceIDs      []string
	ExcludeBookingID string
	ExcludeGroupID   string
}

func (q ConflictQuery) Validate() error {
	if !q.Interval.Valid() {
		return &InvalidRangeError{Start: q.Interval.Start, End: q.Interval.End}
	}
	if len(uniqueIDs(q.ResourceIDs)) == 0 {
		return ErrNoResourceSelected
	}
	return nil
}

// FindConflicts returns the bookings in existing that block q, ordered by start time.
// A booking blocks q when it is pending or approved, is not excluded, shares a
// resource with q and satisfies start < q.End && end > q.Start.
func FindConflicts(q ConflictQuery, existing []*Booking) []*Booking {
	resourceIDs := uniqueIDs(q.ResourceIDs)

	var out []*Booking
	for _, b := range existing {
		if !b.Status.Active() {
			continue
		}
		if q.ExcludeBookingID != "" && b.ID == q.ExcludeBookingID {
			continue
		}
		if q.ExcludeGroupID != "" && b.GroupID == q.ExcludeGroupID {
			continue
		}
		if !b.UsesAny(resourceIDs) {
			continue
		}
		if b.StartTime.Before(q.Interval.End) && b.EndTime.After(q.Interval.Start) {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b *Booking) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return out
}

// Detector checks candidate intervals against stored bookings. It never writes.
type Detector struct {
	repo Repository
}

func NewDetector(repo Repository) *Detector {
	return &Detector{repo: repo}
}

// Detect returns every active booking conflicting with q. An empty result
// means the interval is free on all of q's resources at the time of the read.
func (d *Detector) Detect(ctx context.Context, q ConflictQuery) ([]*Booking, error) {
	return d.detect(ctx, d.repo, q)
}

func (d *Detector) detect(ctx context.Context, repo Repository, q ConflictQuery) ([]*Booking, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	window := q.Interval
	candidates, err := repo.Query(ctx, Filter{
		ResourceIDs:      uniqueIDs(q.ResourceIDs),
		Statuses:         ActiveStatuses(),
		Window:           &window,
		ExcludeBookingID: q.ExcludeBookingID,
		ExcludeGroupID:   q.ExcludeGroupID,
	})
	if err != nil {
		return nil, storageErr("detect conflicts", err)
	}
	return FindConflicts(q, candidates), nil
}

// uniqueIDs drops blanks and duplicates, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
