package attach

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists attachment records and validates owners.
type Repository interface {
	OwnerExists(ctx context.Context, owner Owner) (bool, error)
	ListByOwner(ctx context.Context, owner Owner) ([]Attachment, error)
	Insert(ctx context.Context, owner Owner, filePath string) (Attachment, error)
	DeleteByOwner(ctx context.Context, owner Owner) (int64, error)
	FindByID(ctx context.Context, id int64) (Attachment, error)
	UpdatePath(ctx context.Context, id int64, filePath string) error
	PathExists(ctx context.Context, filePath string) (bool, error)
}

// SQLRepository provides PostgreSQL backed persistence over the files table.
type SQLRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *SQLRepository {
	return &SQLRepository{pool: pool}
}

func ownerTable(t OwnerType) (string, error) {
	switch t {
	case OwnerProject:
		return "projects", nil
	case OwnerIssue:
		return "issues", nil
	case OwnerOrder, OwnerSignature:
		return "orders", nil
	}
	return "", fmt.Errorf("attach: unknown owner type %q", t)
}

// OwnerExists checks the owning entity row is present.
func (r *SQLRepository) OwnerExists(ctx context.Context, owner Owner) (bool, error) {
	table, err := ownerTable(owner.Type)
	if err != nil {
		return false, err
	}
	var exists bool
	err = r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, owner.ID).Scan(&exists)
	return exists, err
}

// ListByOwner returns all attachment rows for the owner.
func (r *SQLRepository) ListByOwner(ctx context.Context, owner Owner) ([]Attachment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_type, owner_id, file_path, created_at
		FROM files
		WHERE owner_type = $1 AND owner_id = $2
		ORDER BY id`, owner.Type, owner.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attachments []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.OwnerType, &a.OwnerID, &a.FilePath, &a.CreatedAt); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// Insert creates an attachment row.
func (r *SQLRepository) Insert(ctx context.Context, owner Owner, filePath string) (Attachment, error) {
	var a Attachment
	err := r.pool.QueryRow(ctx, `
		INSERT INTO files (owner_type, owner_id, file_path)
		VALUES ($1, $2, $3)
		RETURNING id, owner_type, owner_id, file_path, created_at`,
		owner.Type, owner.ID, filePath).
		Scan(&a.ID, &a.OwnerType, &a.OwnerID, &a.FilePath, &a.CreatedAt)
	return a, err
}

// DeleteByOwner removes every attachment row for the owner.
func (r *SQLRepository) DeleteByOwner(ctx context.Context, owner Owner) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM files WHERE owner_type = $1 AND owner_id = $2`, owner.Type, owner.ID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// FindByID fetches a single attachment row.
func (r *SQLRepository) FindByID(ctx context.Context, id int64) (Attachment, error) {
	var a Attachment
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_type, owner_id, file_path, created_at
		FROM files WHERE id = $1`, id).
		Scan(&a.ID, &a.OwnerType, &a.OwnerID, &a.FilePath, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Attachment{}, ErrFileNotFound
		}
		return Attachment{}, err
	}
	return a, nil
}

// UpdatePath repoints an attachment row at a new relative path.
func (r *SQLRepository) UpdatePath(ctx context.Context, id int64, filePath string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE files SET file_path = $2 WHERE id = $1`, id, filePath)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

// PathExists reports whether any row references the relative path.
func (r *SQLRepository) PathExists(ctx context.Context, filePath string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM files WHERE file_path = $1)`, filePath).Scan(&exists)
	return exists, err
}
