package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewdesk/crewdesk/internal/platform/httpx"
)

const orderColumns = `
	id, title, description, project_id, status, archived,
	created_by, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for orders.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Title, &o.Description, &o.ProjectID, &o.Status,
		&o.Archived, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Create inserts an order row.
func (r *Repository) Create(ctx context.Context, title, description string, projectID *int64, createdBy int64) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
		INSERT INTO orders (title, description, project_id, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+orderColumns, title, description, projectID, StatusPending, createdBy))
	if err != nil {
		return Order{}, httpx.TranslateDBError(err)
	}
	return o, nil
}

// List returns a page of orders filtered by archive state, newest first.
func (r *Repository) List(ctx context.Context, archived bool, limit, offset int) ([]Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE archived = $1`, archived).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE archived = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, archived, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, o)
	}
	return list, total, rows.Err()
}

// Get fetches an order by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, httpx.ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

// Update changes the order's editable fields.
func (r *Repository) Update(ctx context.Context, id int64, title, description, status string, projectID *int64) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
		UPDATE orders
		SET title = $2, description = $3, status = $4, project_id = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+orderColumns, id, title, description, status, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, httpx.ErrNotFound
		}
		return Order{}, httpx.TranslateDBError(err)
	}
	return o, nil
}

// ToggleArchive flips the archive flag and returns the new state.
func (r *Repository) ToggleArchive(ctx context.Context, id int64) (bool, error) {
	var archived bool
	err := r.pool.QueryRow(ctx, `
		UPDATE orders SET archived = NOT archived, updated_at = NOW()
		WHERE id = $1
		RETURNING archived`, id).Scan(&archived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, httpx.ErrNotFound
		}
		return false, err
	}
	return archived, nil
}

// Delete removes the order row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return httpx.TranslateDBError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Stats aggregates order counts for the dashboard.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4),
			COUNT(*) FILTER (WHERE archived)
		FROM orders`,
		StatusPending, StatusInProgress, StatusCompleted, StatusCancelled).
		Scan(&s.Total, &s.Pending, &s.InProgress, &s.Completed, &s.Cancelled, &s.Archived)
	if err != nil {
		return Stats{}, err
	}
	return s, nil
}
