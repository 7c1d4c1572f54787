package company

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewdesk/crewdesk/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const companyColumns = `id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), created_at, updated_at`

func scanCompany(row pgx.Row) (Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// List returns all companies ordered by name.
func (r *Repository) List(ctx context.Context) ([]Company, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var companies []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// Get fetches a company by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Company, error) {
	c, err := scanCompany(r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, httpx.ErrNotFound
		}
		return Company{}, err
	}
	return c, nil
}

// Create inserts a new company.
func (r *Repository) Create(ctx context.Context, c Company) (Company, error) {
	created, err := scanCompany(r.pool.QueryRow(ctx, `
		INSERT INTO companies (name, email, phone, address)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''))
		RETURNING `+companyColumns,
		c.Name, c.Email, c.Phone, c.Address))
	if err != nil {
		return Company{}, httpx.TranslateDBError(err)
	}
	return created, nil
}

// Update modifies an existing company.
func (r *Repository) Update(ctx context.Context, c Company) (Company, error) {
	updated, err := scanCompany(r.pool.QueryRow(ctx, `
		UPDATE companies
		SET name = $2, email = NULLIF($3, ''), phone = NULLIF($4, ''), address = NULLIF($5, ''), updated_at = NOW()
		WHERE id = $1
		RETURNING `+companyColumns,
		c.ID, c.Name, c.Email, c.Phone, c.Address))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, httpx.ErrNotFound
		}
		return Company{}, httpx.TranslateDBError(err)
	}
	return updated, nil
}

// Delete removes a company.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return httpx.TranslateDBError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
