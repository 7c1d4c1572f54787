package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewdesk/crewdesk/internal/platform/db"
	"github.com/crewdesk/crewdesk/internal/platform/httpx"
)

const userColumns = `
	u.id, u.subject_id, u.email, u.display_name,
	u.role_id, r.name, u.created_at, u.updated_at`

// Repository provides PostgreSQL backed persistence for users.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns a page of users ordered by display name.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN roles r ON r.id = u.role_id
		ORDER BY u.display_name, u.id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.SubjectID, &u.Email, &u.DisplayName,
			&u.RoleID, &u.RoleName, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range list {
		perms, err := r.directPermissions(ctx, list[i].ID)
		if err != nil {
			return nil, 0, err
		}
		list[i].DirectPermissions = perms
	}
	return list, total, nil
}

// Get fetches a user by ID with their direct permission actions.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1`, id).
		Scan(&u.ID, &u.SubjectID, &u.Email, &u.DisplayName,
			&u.RoleID, &u.RoleName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, httpx.ErrNotFound
		}
		return User{}, err
	}
	perms, err := r.directPermissions(ctx, u.ID)
	if err != nil {
		return User{}, err
	}
	u.DirectPermissions = perms
	return u, nil
}

// Create inserts a user row. passwordHash may be empty when the account only
// signs in through the identity provider.
func (r *Repository) Create(ctx context.Context, subjectID, email, displayName string, roleID int64, passwordHash string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (subject_id, email, display_name, role_id, password_hash)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id`, subjectID, email, displayName, roleID, passwordHash).Scan(&id)
	if err != nil {
		return 0, httpx.TranslateDBError(err)
	}
	return id, nil
}

// Update changes the user's display name and role.
func (r *Repository) Update(ctx context.Context, id int64, displayName string, roleID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET display_name = $2, role_id = $3, updated_at = NOW()
		WHERE id = $1`, id, displayName, roleID)
	if err != nil {
		return httpx.TranslateDBError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// SetDirectPermissions replaces the user's direct permission grants.
func (r *Repository) SetDirectPermissions(ctx context.Context, userID int64, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, pid := range permissionIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_permissions (user_id, permission_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, userID, pid); err != nil {
				return httpx.TranslateDBError(err)
			}
		}
		return nil
	})
}

// Delete removes the user row and their direct grants.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return httpx.TranslateDBError(err)
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		return nil
	})
}

// RoleExists reports whether a role row exists.
func (r *Repository) RoleExists(ctx context.Context, roleID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID).Scan(&exists)
	return exists, err
}

func (r *Repository) directPermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.action
		FROM user_permissions up
		JOIN permissions p ON p.id = up.permission_id
		WHERE up.user_id = $1
		ORDER BY p.action`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
