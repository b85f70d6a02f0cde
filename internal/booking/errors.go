package booking

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/pkg/apperror"
)

var (
	ErrNotFound            = apperror.New(http.StatusNotFound, "not_found", "booking not found")
	ErrTimeConflict        = apperror.New(http.StatusConflict, "conflict", "time slot already booked")
	ErrInvalidTimeRange    = apperror.New(http.StatusBadRequest, "invalid_range", "start time must be before end time")
	ErrNoResourceSelected  = apperror.New(http.StatusBadRequest, "no_resource", "at least one resource must be selected")
	ErrMissingOwner        = apperror.New(http.StatusBadRequest, "missing_owner", "booking owner is required")
	ErrInvalidStatus       = apperror.New(http.StatusBadRequest, "invalid_status", "invalid booking status")
	ErrInvalidShape        = apperror.New(http.StatusBadRequest, "invalid_shape", "invalid booking shape")
	ErrInvalidPeriod       = apperror.New(http.StatusBadRequest, "invalid_period", "half-day period must be AM or PM")
	ErrInvalidClock        = apperror.New(http.StatusBadRequest, "invalid_clock", "clock time must be formatted as HH:MM")
	ErrResourceNotFound    = apperror.New(http.StatusNotFound, "resource_not_found", "resource not found")
	ErrResourceNotBookable = apperror.New(http.StatusBadRequest, "resource_not_bookable", "resource is not available for booking")
	ErrPermissionDenied    = apperror.New(http.StatusForbidden, "permission_denied", "permission denied")
	ErrBookingTerminal     = apperror.New(http.StatusConflict, "terminal", "booking is already rejected or cancelled")
	ErrNotPending          = apperror.New(http.StatusConflict, "not_pending", "booking is not awaiting approval")
	ErrNotApproved         = apperror.New(http.StatusConflict, "not_approved", "booking has not been approved")
	ErrStorage             = apperror.New(http.StatusInternalServerError, "storage", "booking storage failed")
)

// InvalidRangeError reports an interval whose end is not after its start.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid time range [%s, %s): end must be after start",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

func (e *InvalidRangeError) Unwrap() error {
	return ErrInvalidTimeRange
}

// ConflictError carries the active bookings that block a request.
type ConflictError struct {
	Conflicts []*Booking
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time slot already booked: %d conflicting booking(s)", len(e.Conflicts))
}

func (e *ConflictError) Unwrap() error {
	return ErrTimeConflict
}

// StorageError wraps a persistence failure. Unreconciled lists attendees whose
// rows could not be rolled back and need manual repair.
type StorageError struct {
	Op           string
	Unreconciled []string
	Err          error
}

func (e *StorageError) Error() string {
	msg := fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
	if len(e.Unreconciled) > 0 {
		msg += "; manual reconciliation required for attendees " + strings.Join(e.Unreconciled, ", ")
	}
	return msg
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// storageErr wraps err as a StorageError unless it already is a domain error.
func storageErr(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
