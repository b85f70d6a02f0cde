package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository is the booking store.
type Repository interface {
	// Insert stores b without its resource associations and fills in ID and timestamps.
	Insert(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	Query(ctx context.Context, filter Filter) ([]*Booking, error)
	// Update persists the mutable fields of b (interval, shape, status, title, notes, decision reason).
	Update(ctx context.Context, b *Booking) error
	Delete(ctx context.Context, id string) error

	InsertAssociations(ctx context.Context, bookingID string, resourceIDs []string) error
	DeleteAssociations(ctx context.Context, bookingID string) error
}

// TxRunner is implemented by stores that can run several calls in one transaction.
// When fn returns an error nothing it did is kept.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(repo Repository) error) error
}

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pgxRepository struct {
	db dbtx
}

// NewPgxRepository returns a Postgres store. The returned value also implements TxRunner.
func NewPgxRepository(db dbtx) Repository {
	return &pgxRepository{db: db}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var bookingColumns = []string{
	"b.id", "b.user_id", "b.created_by", "coalesce(b.group_id::text, '')",
	"array(SELECT br.resource_id::text FROM public.booking_resources br WHERE br.booking_id = b.id ORDER BY br.resource_id)",
	"b.start_time", "b.end_time", "b.shape", "b.status",
	"b.title", "b.notes", "b.decision_reason", "b.created_at", "b.updated_at",
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.UserID, &b.CreatedBy, &b.GroupID, &b.ResourceIDs,
		&b.StartTime, &b.EndTime, &b.Shape, &b.Status,
		&b.Title, &b.Notes, &b.DecisionReason, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *pgxRepository) RunInTx(ctx context.Context, fn func(repo Repository) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&pgxRepository{db: tx})
	})
}

func (r *pgxRepository) Insert(ctx context.Context, b *Booking) error {
	createdBy := b.CreatedBy
	if createdBy == "" {
		createdBy = b.UserID
	}

	query, args, err := psql.Insert("public.bookings").
		Columns("user_id", "created_by", "group_id", "start_time", "end_time", "shape", "status", "title", "notes", "decision_reason").
		Values(b.UserID, createdBy, nullable(b.GroupID), b.StartTime, b.EndTime, b.Shape, b.Status, b.Title, b.Notes, b.DecisionReason).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert booking query failed: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return translatePgError("insert booking", err)
	}
	b.CreatedBy = createdBy
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings b").
		Where(squirrel.Eq{"b.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) Query(ctx context.Context, filter Filter) ([]*Booking, error) {
	query := psql.Select(bookingColumns...).From("public.bookings b")

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"b.user_id": filter.UserID})
	}
	if filter.GroupID != "" {
		query = query.Where(squirrel.Eq{"b.group_id": filter.GroupID})
	}
	if len(filter.ResourceIDs) > 0 {
		query = query.Where(squirrel.Expr(
			"EXISTS (SELECT 1 FROM public.booking_resources br WHERE br.booking_id = b.id AND br.resource_id = ANY(?::uuid[]))",
			filter.ResourceIDs,
		))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query = query.Where(squirrel.Eq{"b.status": statuses})
	}
	// Half-open overlap with the window
	if filter.Window != nil {
		query = query.Where(squirrel.Lt{"b.start_time": filter.Window.End}).
			Where(squirrel.Gt{"b.end_time": filter.Window.Start})
	}
	if filter.ExcludeBookingID != "" {
		query = query.Where(squirrel.NotEq{"b.id": filter.ExcludeBookingID})
	}
	if filter.ExcludeGroupID != "" {
		query = query.Where(squirrel.Expr("(b.group_id IS NULL OR b.group_id <> ?)", filter.ExcludeGroupID))
	}

	query = query.OrderBy("b.start_time ASC", "b.id ASC")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query bookings failed: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings failed: %w", err)
	}
	return bookings, nil
}

func (r *pgxRepository) Update(ctx context.Context, b *Booking) error {
	query, args, err := psql.Update("public.bookings").
		Set("start_time", b.StartTime).
		Set("end_time", b.EndTime).
		Set("shape", b.Shape).
		Set("status", b.Status).
		Set("title", b.Title).
		Set("notes", b.Notes).
		Set("decision_reason", b.DecisionReason).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return translatePgError("update booking", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("public.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete booking query failed: %w", err)
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete booking failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertAssociations links the booking to its resources. Each link row copies the
// booking's period, activity and reservation key so the exclusion constraint on
// public.booking_resources can see them.
func (r *pgxRepository) InsertAssociations(ctx context.Context, bookingID string, resourceIDs []string) error {
	if len(resourceIDs) == 0 {
		return nil
	}

	sql := `
		INSERT INTO public.booking_resources (booking_id, resource_id, reservation_key, period, active)
		SELECT b.id, r.id, coalesce(b.group_id, b.id), tstzrange(b.start_time, b.end_time, '[)'),
		       b.status IN ('pending', 'approved')
		FROM public.bookings b
		CROSS JOIN unnest($2::uuid[]) AS r(id)
		WHERE b.id = $1
	`
	ct, err := r.db.Exec(ctx, sql, bookingID, resourceIDs)
	if err != nil {
		return translatePgError("insert booking resources", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) DeleteAssociations(ctx context.Context, bookingID string) error {
	query, args, err := psql.Delete("public.booking_resources").
		Where(squirrel.Eq{"booking_id": bookingID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete booking resources query failed: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete booking resources failed: %w", err)
	}
	return nil
}

// translatePgError maps constraint violations onto domain errors.
func translatePgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ExclusionViolation:
			return fmt.Errorf("%s: %w", op, ErrTimeConflict)
		case pgerrcode.CheckViolation:
			return fmt.Errorf("%s: %w", op, ErrInvalidTimeRange)
		case pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, ErrResourceNotFound)
		}
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
