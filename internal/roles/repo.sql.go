package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewdesk/crewdesk/internal/platform/httpx"
	"github.com/crewdesk/crewdesk/internal/rbac"
)

// Repository provides PostgreSQL backed persistence for roles and
// permissions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles with their permission actions.
func (r *Repository) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []rbac.Role
	for rows.Next() {
		var role rbac.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range roles {
		perms, err := r.rolePermissionActions(ctx, roles[i].ID)
		if err != nil {
			return nil, err
		}
		roles[i].Permissions = perms
	}
	return roles, nil
}

// GetRole fetches a role by ID including its permission actions.
func (r *Repository) GetRole(ctx context.Context, id int64) (rbac.Role, error) {
	var role rbac.Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Role{}, httpx.ErrNotFound
		}
		return rbac.Role{}, err
	}
	perms, err := r.rolePermissionActions(ctx, role.ID)
	if err != nil {
		return rbac.Role{}, err
	}
	role.Permissions = perms
	return role, nil
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, name string) (rbac.Role, error) {
	var role rbac.Role
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name) VALUES ($1)
		RETURNING id, name, created_at, updated_at`, name).
		Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return rbac.Role{}, httpx.TranslateDBError(err)
	}
	return role, nil
}

// UpdateRole renames an existing role.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name string) (rbac.Role, error) {
	var role rbac.Role
	err := r.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, updated_at = NOW() WHERE id = $1
		RETURNING id, name, created_at, updated_at`, id, name).
		Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Role{}, httpx.ErrNotFound
		}
		return rbac.Role{}, httpx.TranslateDBError(err)
	}
	return role, nil
}

// DeleteRole removes a role.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return httpx.TranslateDBError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// SetRolePermissions replaces the role's permission links.
func (r *Repository) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if _, err := r.GetRole(ctx, roleID); err != nil {
		return err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	for _, permID := range permissionIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, roleID, permID); err != nil {
			return httpx.TranslateDBError(err)
		}
	}
	return tx.Commit(ctx)
}

// ListPermissions returns all permissions ordered by action.
func (r *Repository) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, action, COALESCE(description, '') FROM permissions ORDER BY action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []rbac.Permission
	for rows.Next() {
		var p rbac.Permission
		if err := rows.Scan(&p.ID, &p.Action, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// GetPermission fetches a permission by ID.
func (r *Repository) GetPermission(ctx context.Context, id int64) (rbac.Permission, error) {
	var p rbac.Permission
	err := r.pool.QueryRow(ctx, `SELECT id, action, COALESCE(description, '') FROM permissions WHERE id = $1`, id).
		Scan(&p.ID, &p.Action, &p.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Permission{}, httpx.ErrNotFound
		}
		return rbac.Permission{}, err
	}
	return p, nil
}

// CreatePermission inserts a new permission action.
func (r *Repository) CreatePermission(ctx context.Context, action, description string) (rbac.Permission, error) {
	var p rbac.Permission
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (action, description) VALUES ($1, NULLIF($2, ''))
		RETURNING id, action, COALESCE(description, '')`, action, description).
		Scan(&p.ID, &p.Action, &p.Description)
	if err != nil {
		return rbac.Permission{}, httpx.TranslateDBError(err)
	}
	return p, nil
}

// UpdatePermission modifies an existing permission.
func (r *Repository) UpdatePermission(ctx context.Context, id int64, action, description string) (rbac.Permission, error) {
	var p rbac.Permission
	err := r.pool.QueryRow(ctx, `
		UPDATE permissions SET action = $2, description = NULLIF($3, '') WHERE id = $1
		RETURNING id, action, COALESCE(description, '')`, id, action, description).
		Scan(&p.ID, &p.Action, &p.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Permission{}, httpx.ErrNotFound
		}
		return rbac.Permission{}, httpx.TranslateDBError(err)
	}
	return p, nil
}

// DeletePermission removes a permission.
func (r *Repository) DeletePermission(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return httpx.TranslateDBError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *Repository) rolePermissionActions(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.action FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.action`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var actions []string
	for rows.Next() {
		var action string
		if err := rows.Scan(&action); err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}
