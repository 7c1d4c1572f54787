package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewdesk/crewdesk/internal/rbac"
)

// Repository resolves credentials to persisted actors and provisions
// first-time logins.
type Repository interface {
	FindActorBySubject(ctx context.Context, subject string) (*rbac.Actor, error)
	FindRoleByName(ctx context.Context, name string) (rbac.Role, error)
	CreateUser(ctx context.Context, subject, email, displayName string, roleID int64) (int64, error)
	GrantAllPermissions(ctx context.Context, userID int64) error
}

// SQLRepository provides PostgreSQL backed persistence.
type SQLRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *SQLRepository {
	return &SQLRepository{pool: pool}
}

// FindActorBySubject loads a user by external identity id together with its
// role, the role's permission set, and any directly granted permissions.
func (r *SQLRepository) FindActorBySubject(ctx context.Context, subject string) (*rbac.Actor, error) {
	var actor rbac.Actor
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.subject_id, u.email, COALESCE(u.display_name, ''), r.id, r.name
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.subject_id = $1`, subject).
		Scan(&actor.ID, &actor.Subject, &actor.Email, &actor.DisplayName, &actor.Role.ID, &actor.Role.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActorNotFound
		}
		return nil, err
	}

	rolePerms, err := r.permissionActions(ctx, `
		SELECT p.action FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1`, actor.Role.ID)
	if err != nil {
		return nil, err
	}
	actor.Role.Permissions = rolePerms

	direct, err := r.permissionActions(ctx, `
		SELECT p.action FROM permissions p
		JOIN user_permissions up ON up.permission_id = p.id
		WHERE up.user_id = $1`, actor.ID)
	if err != nil {
		return nil, err
	}
	actor.DirectPermissions = direct

	return &actor, nil
}

// FindRoleByName fetches a role by its fixed name.
func (r *SQLRepository) FindRoleByName(ctx context.Context, name string) (rbac.Role, error) {
	var role rbac.Role
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM roles WHERE name = $1`, name).
		Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Role{}, errors.New("auth: role " + name + " not seeded")
		}
		return rbac.Role{}, err
	}
	return role, nil
}

// CreateUser inserts a first-login user row.
func (r *SQLRepository) CreateUser(ctx context.Context, subject, email, displayName string, roleID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (subject_id, email, display_name, role_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, subject, email, displayName, roleID).Scan(&id)
	return id, err
}

// GrantAllPermissions attaches every known permission directly to the user.
func (r *SQLRepository) GrantAllPermissions(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_permissions (user_id, permission_id)
		SELECT $1, id FROM permissions
		ON CONFLICT DO NOTHING`, userID)
	return err
}

func (r *SQLRepository) permissionActions(ctx context.Context, query string, arg any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, arg)
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
