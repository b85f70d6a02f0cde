package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Resource, error)
	// GetMany returns the resources that exist among ids, in no particular order.
	GetMany(ctx context.Context, ids []string) ([]*Resource, error)
	List(ctx context.Context, filter Filter) ([]*Resource, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

const selectColumns = `id, name, asset_tag, location, approval_required, training_required, bookable, created_at`

func scanResource(row pgx.Row) (*Resource, error) {
	var res Resource
	err := row.Scan(
		&res.ID, &res.Name, &res.AssetTag, &res.Location,
		&res.ApprovalRequired, &res.TrainingRequired, &res.Bookable, &res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Resource, error) {
	query := `SELECT ` + selectColumns + ` FROM public.resources WHERE id = $1`

	res, err := scanResource(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get resource failed: %w", err)
	}
	return res, nil
}

func (r *pgxRepository) GetMany(ctx context.Context, ids []string) ([]*Resource, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + selectColumns + ` FROM public.resources WHERE id = ANY($1::uuid[])`
	return r.collect(ctx, query, ids)
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Resource, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(selectColumns).From("public.resources")

	if filter.Location != "" {
		query = query.Where(squirrel.Eq{"location": filter.Location})
	}
	if filter.BookableOnly {
		query = query.Where(squirrel.Eq{"bookable": true})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"asset_tag": pattern},
		})
	}
	query = query.OrderBy("name ASC")

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list resources query failed: %w", err)
	}
	return r.collect(ctx, sql, args...)
}

func (r *pgxRepository) collect(ctx context.Context, sql string, args ...any) ([]*Resource, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query resources failed: %w", err)
	}
	defer rows.Close()

	var out []*Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource failed: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources failed: %w", err)
	}
	return out, nil
}
