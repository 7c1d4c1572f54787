package project

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewdesk/crewdesk/internal/platform/db"
	"github.com/crewdesk/crewdesk/internal/platform/httpx"
)

// Repository persists project rows, crew assignments, and the activity log.
type Repository interface {
	CompanyExists(ctx context.Context, companyID int64) (bool, error)
	Create(ctx context.Context, in CreateInput) (Project, error)
	List(ctx context.Context, archived bool, limit, offset int) ([]Project, int, error)
	ListRefs(ctx context.Context) ([]Ref, error)
	Get(ctx context.Context, id int64) (Project, error)
	Update(ctx context.Context, id int64, in UpdateInput) (Project, error)
	ToggleArchive(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	AssignUser(ctx context.Context, projectID, userID int64) error
	UnassignUser(ctx context.Context, projectID, userID int64) error
	Members(ctx context.Context, projectID int64) ([]Member, error)
	AppendActivity(ctx context.Context, projectID int64, action, detail string, actorID int64) error
	ListActivity(ctx context.Context, projectID int64, limit, offset int) ([]Activity, int, error)
	Stats(ctx context.Context) (Stats, error)
}

const projectColumns = `
	p.id, p.name, p.description, p.company_id, c.name, p.status, p.archived,
	p.start_date, p.end_date, p.created_by, p.created_at, p.updated_at`

// SQLRepository implements Repository over PostgreSQL.
type SQLRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a SQL repository.
func NewRepository(pool *pgxpool.Pool) *SQLRepository {
	return &SQLRepository{pool: pool}
}

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CompanyID, &p.CompanyName,
		&p.Status, &p.Archived, &p.StartDate, &p.EndDate,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CompanyExists reports whether the company row exists.
func (r *SQLRepository) CompanyExists(ctx context.Context, companyID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1)`, companyID).Scan(&exists)
	return exists, err
}

// Create inserts a project row.
func (r *SQLRepository) Create(ctx context.Context, in CreateInput) (Project, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO projects (name, description, company_id, status, start_date, end_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		in.Name, in.Description, in.CompanyID, StatusPlanned, in.StartDate, in.EndDate, in.CreatedBy).Scan(&id)
	if err != nil {
		return Project{}, httpx.TranslateDBError(err)
	}
	return r.Get(ctx, id)
}

// List returns a page of projects filtered by archive state, newest first.
func (r *SQLRepository) List(ctx context.Context, archived bool, limit, offset int) ([]Project, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM projects WHERE archived = $1`, archived).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN companies c ON c.id = p.company_id
		WHERE p.archived = $1
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3`, archived, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, p)
	}
	return list, total, rows.Err()
}

// ListRefs returns id/name pairs of every active project.
func (r *SQLRepository) ListRefs(ctx context.Context) ([]Ref, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name FROM projects WHERE NOT archived ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []Ref
	for rows.Next() {
		var ref Ref
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// Get fetches a project with its assigned crew.
func (r *SQLRepository) Get(ctx context.Context, id int64) (Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN companies c ON c.id = p.company_id
		WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, httpx.ErrNotFound
		}
		return Project{}, err
	}
	members, err := r.Members(ctx, id)
	if err != nil {
		return Project{}, err
	}
	p.AssignedUsers = members
	return p, nil
}

// Update changes the project's editable fields.
func (r *SQLRepository) Update(ctx context.Context, id int64, in UpdateInput) (Project, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE projects
		SET name = $2, description = $3, company_id = $4, status = $5,
		    start_date = $6, end_date = $7, updated_at = NOW()
		WHERE id = $1`,
		id, in.Name, in.Description, in.CompanyID, in.Status, in.StartDate, in.EndDate)
	if err != nil {
		return Project{}, httpx.TranslateDBError(err)
	}
	if tag.RowsAffected() == 0 {
		return Project{}, httpx.ErrNotFound
	}
	return r.Get(ctx, id)
}

// ToggleArchive flips the archive flag and returns the new state.
func (r *SQLRepository) ToggleArchive(ctx context.Context, id int64) (bool, error) {
	var archived bool
	err := r.pool.QueryRow(ctx, `
		UPDATE projects SET archived = NOT archived, updated_at = NOW()
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

// Delete removes the project row together with its assignments and activity
// log. Issues and attachments are cascaded by the service before this runs.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM project_users WHERE project_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM project_activity WHERE project_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return httpx.TranslateDBError(err)
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		return nil
	})
}

// AssignUser links a user to the project crew.
func (r *SQLRepository) AssignUser(ctx context.Context, projectID, userID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO project_users (project_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, projectID, userID)
	return httpx.TranslateDBError(err)
}

// UnassignUser removes a user from the project crew.
func (r *SQLRepository) UnassignUser(ctx context.Context, projectID, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM project_users WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Members returns the project's assigned crew.
func (r *SQLRepository) Members(ctx context.Context, projectID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.display_name, u.email
		FROM project_users pu
		JOIN users u ON u.id = pu.user_id
		WHERE pu.project_id = $1
		ORDER BY u.display_name`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.DisplayName, &m.Email); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AppendActivity records one activity log entry.
func (r *SQLRepository) AppendActivity(ctx context.Context, projectID int64, action, detail string, actorID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO project_activity (project_id, action, detail, actor_id)
		VALUES ($1, $2, NULLIF($3, ''), $4)`, projectID, action, detail, actorID)
	return err
}

// ListActivity returns a page of the project's activity log, newest first.
func (r *SQLRepository) ListActivity(ctx context.Context, projectID int64, limit, offset int) ([]Activity, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM project_activity WHERE project_id = $1`, projectID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, action, COALESCE(detail, ''), actor_id, created_at
		FROM project_activity
		WHERE project_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, projectID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Action, &a.Detail, &a.ActorID, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, a)
	}
	return list, total, rows.Err()
}

// Stats aggregates project counts for the dashboard.
func (r *SQLRepository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4),
			COUNT(*) FILTER (WHERE archived)
		FROM projects`,
		StatusPlanned, StatusActive, StatusOnHold, StatusCompleted).
		Scan(&s.Total, &s.Planned, &s.Active, &s.OnHold, &s.Completed, &s.Archived)
	if err != nil {
		return Stats{}, err
	}
	return s, nil
}
