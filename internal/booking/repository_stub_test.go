package booking_test

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/booking"
)

// repositoryStub is an in-memory booking.Repository. Like the database it
// rejects associations that overlap an active booking of another reservation.
type repositoryStub struct {
	mu   sync.Mutex
	rows map[string]*booking.Booking
	seq  int

	insertCalls int
	assocCalls  int

	failInsertOn int // 1-based Insert call to fail; 0 never
	failAssocOn  int // 1-based InsertAssociations call to fail; 0 never
	updateErr    error
	deleteErr    error
	queryErr     error
	// skipOverlapCheck disables the constraint so tests can observe the detector alone.
	skipOverlapCheck bool
	// raceOnAssoc inserts a competing booking right before the given association call.
	raceOnAssoc int
	raceBooking *booking.Booking
	raced       bool
}

func newRepositoryStub() *repositoryStub {
	return &repositoryStub{rows: make(map[string]*booking.Booking)}
}

// txRepositoryStub adds snapshot-based transactions to repositoryStub.
type txRepositoryStub struct {
	*repositoryStub
	txCalls int
}

func newTxRepositoryStub() *txRepositoryStub {
	return &txRepositoryStub{repositoryStub: newRepositoryStub()}
}

func (r *txRepositoryStub) RunInTx(ctx context.Context, fn func(repo booking.Repository) error) error {
	r.txCalls++
	r.mu.Lock()
	snapshot := cloneRows(r.rows)
	r.mu.Unlock()

	if err := fn(r.repositoryStub); err != nil {
		r.mu.Lock()
		r.rows = snapshot
		// The competing booking was committed by someone else and survives our rollback.
		if r.raced {
			r.rows[r.raceBooking.ID] = r.raceBooking.Clone()
		}
		r.mu.Unlock()
		return err
	}
	return nil
}

func cloneRows(rows map[string]*booking.Booking) map[string]*booking.Booking {
	out := make(map[string]*booking.Booking, len(rows))
	for id, b := range rows {
		out[id] = b.Clone()
	}
	return out
}

// seed stores b as is, associations included.
func (r *repositoryStub) seed(b *booking.Booking) *booking.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == "" {
		r.seq++
		b.ID = fmt.Sprintf("seed-%d", r.seq)
	}
	r.rows[b.ID] = b.Clone()
	return b
}

func (r *repositoryStub) row(id string) *booking.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok {
		return nil
	}
	return b.Clone()
}

func (r *repositoryStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *repositoryStub) Insert(_ context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertCalls++
	if r.failInsertOn != 0 && r.insertCalls == r.failInsertOn {
		return fmt.Errorf("insert booking failed: connection reset")
	}
	r.seq++
	b.ID = fmt.Sprintf("booking-%d", r.seq)
	if b.CreatedBy == "" {
		b.CreatedBy = b.UserID
	}
	b.CreatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	b.UpdatedAt = b.CreatedAt

	stored := b.Clone()
	stored.ResourceIDs = nil
	r.rows[b.ID] = stored
	return nil
}

func (r *repositoryStub) GetByID(_ context.Context, id string) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return b.Clone(), nil
}

func (r *repositoryStub) Query(_ context.Context, filter booking.Filter) ([]*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queryErr != nil {
		return nil, r.queryErr
	}

	var out []*booking.Booking
	for _, id := range slices.Sorted(maps.Keys(r.rows)) {
		if b := r.rows[id]; filter.Matches(b) {
			out = append(out, b.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b *booking.Booking) int { return a.StartTime.Compare(b.StartTime) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *repositoryStub) Update(_ context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	current, ok := r.rows[b.ID]
	if !ok {
		return booking.ErrNotFound
	}
	next := b.Clone()
	next.ResourceIDs = current.ResourceIDs
	next.UpdatedAt = current.UpdatedAt.Add(time.Minute)
	b.UpdatedAt = next.UpdatedAt
	r.rows[b.ID] = next
	return nil
}

func (r *repositoryStub) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.rows[id]; !ok {
		return booking.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *repositoryStub) InsertAssociations(_ context.Context, bookingID string, resourceIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assocCalls++
	if r.raceOnAssoc != 0 && r.assocCalls == r.raceOnAssoc && r.raceBooking != nil {
		r.rows[r.raceBooking.ID] = r.raceBooking.Clone()
		r.raced = true
	}
	if r.failAssocOn != 0 && r.assocCalls == r.failAssocOn {
		return fmt.Errorf("insert booking resources failed: connection reset")
	}

	b, ok := r.rows[bookingID]
	if !ok {
		return booking.ErrNotFound
	}
	if !r.skipOverlapCheck && b.Status.Active() {
		for _, other := range r.rows {
			if other.ID == b.ID || !other.Status.Active() || other.ReservationKey() == b.ReservationKey() {
				continue
			}
			if other.UsesAny(resourceIDs) && other.Interval().Overlaps(b.Interval()) {
				return fmt.Errorf("insert booking resources: %w", booking.ErrTimeConflict)
			}
		}
	}
	b.ResourceIDs = slices.Clone(resourceIDs)
	return nil
}

func (r *repositoryStub) DeleteAssociations(_ context.Context, bookingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if b, ok := r.rows[bookingID]; ok {
		b.ResourceIDs = nil
	}
	return nil
}
