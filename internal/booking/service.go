package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/pkg/apperror"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/resource"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultStorageTimeout = 5 * time.Second

type Config struct {
	Hours          BusinessHours
	StorageTimeout time.Duration
}

type CreateRequest struct {
	Interval    Interval
	Shape       Shape
	ResourceIDs []string
	OwnerID     string
	AttendeeIDs []string // additional attendees; the owner is always included
	Title       string
	Notes       string
}

// EditRequest changes a reservation. Nil fields keep their current value.
type EditRequest struct {
	Interval    *Interval
	Shape       *Shape
	ResourceIDs []string
	Title       *string
	Notes       *string
}

type Decision struct {
	Approve bool
	Reason  string
}

type Service interface {
	ResolveRange(req RangeRequest) (Interval, error)
	DetectConflicts(ctx context.Context, q ConflictQuery) ([]*Booking, error)
	Create(ctx context.Context, req CreateRequest) ([]*Booking, error)
	Edit(ctx context.Context, id string, req EditRequest, actor Principal) ([]*Booking, error)
	Cancel(ctx context.Context, id string, actor Principal) (*Booking, error)
	Decide(ctx context.Context, id string, d Decision, actor Principal) ([]*Booking, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, error)
	CalendarEntry(ctx context.Context, id string, actor Principal) (ExportEvent, error)
}

type service struct {
	repo     Repository
	detector *Detector
	catalog  Catalog
	exporter Exporter
	cfg      Config
	logger   *slog.Logger
	tracer   trace.Tracer
	newID    func() string
}

type Option func(*service)

// WithIDGenerator overrides how group ids are generated.
func WithIDGenerator(fn func() string) Option {
	return func(s *service) { s.newID = fn }
}

// NewService builds the booking coordinator. exporter may be nil.
func NewService(repo Repository, catalog Catalog, exporter Exporter, cfg Config, logger *slog.Logger, opts ...Option) Service {
	if cfg.Hours == (BusinessHours{}) {
		cfg.Hours = DefaultBusinessHours()
	}
	if cfg.StorageTimeout <= 0 {
		cfg.StorageTimeout = defaultStorageTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &service{
		repo:     repo,
		detector: NewDetector(repo),
		catalog:  catalog,
		exporter: exporter,
		cfg:      cfg,
		logger:   logger.With("component", "booking"),
		tracer:   otel.Tracer("github.com/kwh6x7jhnz-lab/lab-reservations/internal/booking"),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) ResolveRange(req RangeRequest) (Interval, error) {
	return ResolveRange(req, s.cfg.Hours)
}

func (s *service) DetectConflicts(ctx context.Context, q ConflictQuery) (_ []*Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.DetectConflicts",
		trace.WithAttributes(attribute.StringSlice("booking.resource_ids", q.ResourceIDs)))
	defer func() { endSpan(span, err) }()

	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	return s.detector.Detect(ctx, q)
}

func (s *service) Create(ctx context.Context, req CreateRequest) (_ []*Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.Create",
		trace.WithAttributes(
			attribute.StringSlice("booking.resource_ids", req.ResourceIDs),
			attribute.Int("booking.attendees", len(req.AttendeeIDs)+1),
		))
	defer func() { endSpan(span, err) }()

	// 1. Validate request
	if !req.Interval.Valid() {
		return nil, &InvalidRangeError{Start: req.Interval.Start, End: req.Interval.End}
	}
	resourceIDs := uniqueIDs(req.ResourceIDs)
	if len(resourceIDs) == 0 {
		return nil, ErrNoResourceSelected
	}
	if req.OwnerID == "" {
		return nil, ErrMissingOwner
	}
	shape := req.Shape
	if shape == "" {
		shape = ShapeTimeSlot
	} else if shape, err = ParseShape(string(shape)); err != nil {
		return nil, err
	}

	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	resources, err := s.loadResources(ctx, resourceIDs, true)
	if err != nil {
		return nil, err
	}

	// 2. Re-check availability right before committing
	q := ConflictQuery{Interval: req.Interval, ResourceIDs: resourceIDs}
	conflicts, err := s.detector.Detect(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &ConflictError{Conflicts: conflicts}
	}

	// 3. Approval gating
	status := initialStatus(resources)

	// 4. One booking per attendee, grouped when there are several
	attendees := uniqueIDs(append([]string{req.OwnerID}, req.AttendeeIDs...))
	var groupID string
	if len(attendees) > 1 {
		groupID = s.newID()
	}
	bookings := make([]*Booking, 0, len(attendees))
	for _, userID := range attendees {
		bookings = append(bookings, &Booking{
			UserID:      userID,
			CreatedBy:   req.OwnerID,
			GroupID:     groupID,
			ResourceIDs: slices.Clone(resourceIDs),
			StartTime:   req.Interval.Start,
			EndTime:     req.Interval.End,
			Shape:       shape,
			Status:      status,
			Title:       req.Title,
			Notes:       req.Notes,
		})
	}

	// 5. Persist bookings and associations, all or nothing
	if err := s.insertAll(ctx, bookings); err != nil {
		return nil, s.commitFailure(ctx, "create booking", q, err)
	}

	s.logger.InfoContext(ctx, "booking created",
		"booking_ids", bookingIDs(bookings),
		"group_id", groupID,
		"status", status,
		"resource_ids", resourceIDs,
	)

	// 6. Calendar export for confirmed reservations
	if status == StatusApproved {
		s.export(ctx, bookings, resources)
	}
	return bookings, nil
}

func (s *service) Edit(ctx context.Context, id string, req EditRequest, actor Principal) (_ []*Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.Edit", trace.WithAttributes(attribute.String("booking.id", id)))
	defer func() { endSpan(span, err) }()

	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	target, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if target.Status.Terminal() {
		return nil, ErrBookingTerminal
	}
	if !actor.CanModify(target) {
		return nil, ErrPermissionDenied
	}

	interval := target.Interval()
	if req.Interval != nil {
		interval = *req.Interval
	}
	if !interval.Valid() {
		return nil, &InvalidRangeError{Start: interval.Start, End: interval.End}
	}
	resourceIDs := target.ResourceIDs
	if req.ResourceIDs != nil {
		resourceIDs = uniqueIDs(req.ResourceIDs)
		if len(resourceIDs) == 0 {
			return nil, ErrNoResourceSelected
		}
	}
	shape := target.Shape
	if req.Shape != nil {
		if shape, err = ParseShape(string(*req.Shape)); err != nil {
			return nil, err
		}
	}

	resources, err := s.loadResources(ctx, resourceIDs, true)
	if err != nil {
		return nil, err
	}

	// The reservation being edited never conflicts with itself
	q := ConflictQuery{
		Interval:         interval,
		ResourceIDs:      resourceIDs,
		ExcludeBookingID: target.ID,
		ExcludeGroupID:   target.GroupID,
	}
	conflicts, err := s.detector.Detect(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &ConflictError{Conflicts: conflicts}
	}

	members, err := s.reservationMembers(ctx, target, ActiveStatuses())
	if err != nil {
		return nil, err
	}

	rescheduled := !interval.Equal(target.Interval()) || !sameIDs(resourceIDs, target.ResourceIDs)
	status := initialStatus(resources)
	priors := snapshot(members)
	for _, m := range members {
		m.StartTime, m.EndTime = interval.Start, interval.End
		m.ResourceIDs = slices.Clone(resourceIDs)
		m.Shape = shape
		if req.Title != nil {
			m.Title = *req.Title
		}
		if req.Notes != nil {
			m.Notes = *req.Notes
		}
		if rescheduled {
			m.Status = status
			m.DecisionReason = ""
		}
	}

	if err := s.updateAll(ctx, "edit booking", members, priors, true); err != nil {
		return nil, s.commitFailure(ctx, "edit booking", q, err)
	}

	s.logger.InfoContext(ctx, "booking edited",
		"booking_ids", bookingIDs(members),
		"group_id", target.GroupID,
		"rescheduled", rescheduled,
		"actor_id", actor.UserID,
	)

	if rescheduled && status == StatusApproved {
		s.export(ctx, members, resources)
	}
	return members, nil
}

func (s *service) Cancel(ctx context.Context, id string, actor Principal) (_ *Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.Cancel", trace.WithAttributes(attribute.String("booking.id", id)))
	defer func() { endSpan(span, err) }()

	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	b, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status.Terminal() {
		return nil, ErrBookingTerminal
	}
	if !actor.CanModify(b) {
		return nil, ErrPermissionDenied
	}

	b.Status = StatusCancelled
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, storageErr("cancel booking", err)
	}

	s.logger.InfoContext(ctx, "booking cancelled", "booking_id", b.ID, "actor_id", actor.UserID)
	return b, nil
}

func (s *service) Decide(ctx context.Context, id string, d Decision, actor Principal) (_ []*Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.Decide",
		trace.WithAttributes(attribute.String("booking.id", id), attribute.Bool("booking.approve", d.Approve)))
	defer func() { endSpan(span, err) }()

	if !actor.CanDecide() {
		return nil, ErrPermissionDenied
	}

	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	target, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case target.Status.Terminal():
		return nil, ErrBookingTerminal
	case target.Status != StatusPending:
		return nil, ErrNotPending
	}

	// Decisions apply to the whole reservation
	members, err := s.reservationMembers(ctx, target, []Status{StatusPending})
	if err != nil {
		return nil, err
	}

	status := StatusRejected
	if d.Approve {
		status = StatusApproved
	}
	priors := snapshot(members)
	for _, m := range members {
		m.Status = status
		m.DecisionReason = strings.TrimSpace(d.Reason)
	}

	if err := s.updateAll(ctx, "decide booking", members, priors, false); err != nil {
		return nil, storageErr("decide booking", err)
	}

	s.logger.InfoContext(ctx, "booking decided",
		"booking_ids", bookingIDs(members),
		"group_id", target.GroupID,
		"status", status,
		"actor_id", actor.UserID,
	)

	if status == StatusApproved {
		resources, err := s.loadResources(ctx, target.ResourceIDs, false)
		if err != nil {
			s.logger.WarnContext(ctx, "calendar export skipped", "booking_id", target.ID, "error", err)
			return members, nil
		}
		s.export(ctx, members, resources)
	}
	return members, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Booking, error) {
	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()
	return s.get(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Booking, error) {
	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	bookings, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, storageErr("list bookings", err)
	}
	return bookings, nil
}

// CalendarEntry builds the calendar entry of an approved booking for its owner,
// organizer or a decision maker.
func (s *service) CalendarEntry(ctx context.Context, id string, actor Principal) (ExportEvent, error) {
	ctx, cancel := s.withStorageTimeout(ctx)
	defer cancel()

	b, err := s.get(ctx, id)
	if err != nil {
		return ExportEvent{}, err
	}
	if !actor.CanModify(b) && !actor.CanDecide() {
		return ExportEvent{}, ErrPermissionDenied
	}
	if b.Status != StatusApproved {
		return ExportEvent{}, ErrNotApproved
	}

	resources, err := s.loadResources(ctx, b.ResourceIDs, false)
	if err != nil {
		return ExportEvent{}, err
	}
	return buildExportEvent(b, resources), nil
}

func (s *service) get(ctx context.Context, id string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get booking", err)
	}
	return b, nil
}

func (s *service) withStorageTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StorageTimeout)
}

func (s *service) loadResources(ctx context.Context, ids []string, requireBookable bool) (map[string]*resource.Resource, error) {
	found, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, storageErr("load resources", err)
	}
	for _, id := range ids {
		r, ok := found[id]
		if !ok || r == nil {
			return nil, fmt.Errorf("resource %s: %w", id, ErrResourceNotFound)
		}
		if requireBookable && !r.Bookable {
			return nil, fmt.Errorf("resource %s: %w", r.Name, ErrResourceNotBookable)
		}
	}
	return found, nil
}

// reservationMembers returns the bookings of target's reservation in one of the statuses.
func (s *service) reservationMembers(ctx context.Context, target *Booking, statuses []Status) ([]*Booking, error) {
	if target.GroupID == "" {
		return []*Booking{target}, nil
	}

	members, err := s.repo.Query(ctx, Filter{GroupID: target.GroupID, Statuses: statuses})
	if err != nil {
		return nil, storageErr("load group", err)
	}
	if !slices.ContainsFunc(members, func(m *Booking) bool { return m.ID == target.ID }) {
		members = append(members, target)
	}
	return members, nil
}

func (s *service) insertAll(ctx context.Context, bookings []*Booking) error {
	if tx, ok := s.repo.(TxRunner); ok {
		return tx.RunInTx(ctx, func(repo Repository) error {
			for _, b := range bookings {
				if err := repo.Insert(ctx, b); err != nil {
					return err
				}
				if err := repo.InsertAssociations(ctx, b.ID, b.ResourceIDs); err != nil {
					return err
				}
			}
			return nil
		})
	}

	var created []*Booking
	for _, b := range bookings {
		if err := s.repo.Insert(ctx, b); err != nil {
			return s.compensate(ctx, created, err)
		}
		created = append(created, b)
		if err := s.repo.InsertAssociations(ctx, b.ID, b.ResourceIDs); err != nil {
			return s.compensate(ctx, created, err)
		}
	}
	return nil
}

// compensate deletes already created bookings after a failed non-transactional
// create. Attendees whose rows survive are reported in a StorageError.
func (s *service) compensate(ctx context.Context, created []*Booking, cause error) error {
	if len(created) == 0 {
		return cause
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StorageTimeout)
	defer cancel()

	var unreconciled []string
	for _, b := range created {
		err := s.repo.DeleteAssociations(cctx, b.ID)
		if err == nil {
			err = s.repo.Delete(cctx, b.ID)
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			s.logger.ErrorContext(ctx, "compensating delete failed",
				"booking_id", b.ID,
				"user_id", b.UserID,
				"error", err,
			)
			unreconciled = append(unreconciled, b.UserID)
		}
	}
	if len(unreconciled) > 0 {
		return &StorageError{Op: "create booking", Unreconciled: unreconciled, Err: cause}
	}
	return cause
}

// updateAll persists members, replacing their resource associations when asked.
// priors holds the stored state of each member; without a transaction it is
// written back when any member fails.
func (s *service) updateAll(ctx context.Context, op string, members, priors []*Booking, replaceAssociations bool) error {
	apply := func(ctx context.Context, repo Repository, b *Booking) error {
		if replaceAssociations {
			if err := repo.DeleteAssociations(ctx, b.ID); err != nil {
				return err
			}
		}
		if err := repo.Update(ctx, b); err != nil {
			return err
		}
		if replaceAssociations {
			return repo.InsertAssociations(ctx, b.ID, b.ResourceIDs)
		}
		return nil
	}

	if tx, ok := s.repo.(TxRunner); ok {
		return tx.RunInTx(ctx, func(repo Repository) error {
			for _, b := range members {
				if err := apply(ctx, repo, b); err != nil {
					return err
				}
			}
			return nil
		})
	}

	for i, b := range members {
		if err := apply(ctx, s.repo, b); err != nil {
			return s.restore(ctx, op, priors[:i+1], func(ctx context.Context, prev *Booking) error {
				return apply(ctx, s.repo, prev)
			}, err)
		}
	}
	return nil
}

// restore writes back the prior state of members after a failed
// non-transactional update. Attendees left half-updated are reported in a StorageError.
func (s *service) restore(ctx context.Context, op string, priors []*Booking, write func(context.Context, *Booking) error, cause error) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StorageTimeout)
	defer cancel()

	var unreconciled []string
	for _, prev := range priors {
		if err := write(cctx, prev); err != nil {
			s.logger.ErrorContext(ctx, "restoring booking failed",
				"booking_id", prev.ID,
				"user_id", prev.UserID,
				"error", err,
			)
			unreconciled = append(unreconciled, prev.UserID)
		}
	}
	if len(unreconciled) > 0 {
		return &StorageError{Op: op, Unreconciled: unreconciled, Err: cause}
	}
	return cause
}

func snapshot(members []*Booking) []*Booking {
	out := make([]*Booking, len(members))
	for i, m := range members {
		out[i] = m.Clone()
	}
	return out
}

// commitFailure turns a failed write into the error reported to callers.
// Store-level overlap violations are reported like detector conflicts.
func (s *service) commitFailure(ctx context.Context, op string, q ConflictQuery, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, ErrTimeConflict) {
		conflicts, derr := s.detector.Detect(ctx, q)
		if derr != nil {
			s.logger.WarnContext(ctx, "conflict lookup after constraint violation failed", "error", derr)
		}
		return &ConflictError{Conflicts: conflicts}
	}
	return storageErr(op, err)
}

func (s *service) export(ctx context.Context, bookings []*Booking, resources map[string]*resource.Resource) {
	if s.exporter == nil {
		return
	}

	ectx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StorageTimeout)
	defer cancel()

	for _, b := range bookings {
		if err := s.exporter.Export(ectx, buildExportEvent(b, resources)); err != nil {
			s.logger.WarnContext(ctx, "calendar export failed",
				"booking_id", b.ID,
				"attendee_id", b.UserID,
				"error", err,
			)
		}
	}
}

func buildExportEvent(b *Booking, resources map[string]*resource.Resource) ExportEvent {
	var names, tags, locations []string
	for _, id := range b.ResourceIDs {
		r, ok := resources[id]
		if !ok {
			continue
		}
		names = append(names, r.Name)
		if r.AssetTag != "" {
			tags = append(tags, r.AssetTag)
		}
		if r.Location != "" && !slices.Contains(locations, r.Location) {
			locations = append(locations, r.Location)
		}
	}

	title := b.Title
	if title == "" {
		title = "Lab Booking: " + strings.Join(names, ", ")
	}
	notes := b.Notes
	if notes == "" {
		notes = "None"
	}
	description := strings.Join([]string{
		"Equipment: " + strings.Join(names, ", "),
		"Asset Tags: " + strings.Join(tags, ", "),
		"Location: " + strings.Join(locations, ", "),
		"Notes: " + notes,
	}, "\n")

	organizer := b.CreatedBy
	if organizer == "" {
		organizer = b.UserID
	}

	return ExportEvent{
		BookingID:   b.ID,
		GroupID:     b.GroupID,
		Title:       title,
		Description: description,
		Location:    strings.Join(locations, ", "),
		Start:       b.StartTime,
		End:         b.EndTime,
		OrganizerID: organizer,
		AttendeeID:  b.UserID,
	}
}

// initialStatus gates the booking on approval when any resource requires it.
func initialStatus(resources map[string]*resource.Resource) Status {
	for _, r := range resources {
		if r.ApprovalRequired {
			return StatusPending
		}
	}
	return StatusApproved
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := slices.Clone(a), slices.Clone(b)
	slices.Sort(sa)
	slices.Sort(sb)
	return slices.Equal(sa, sb)
}

func bookingIDs(bookings []*Booking) []string {
	ids := make([]string, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
	}
	return ids
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperror.KindOf(err))
	}
	span.End()
}
