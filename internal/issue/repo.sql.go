package issue

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewdesk/crewdesk/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for issues.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ProjectExists reports whether the project row exists.
func (r *Repository) ProjectExists(ctx context.Context, projectID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, projectID).Scan(&exists)
	return exists, err
}

// Create inserts an issue together with its opening log entry.
func (r *Repository) Create(ctx context.Context, projectID int64, title, description string, createdBy int64) (Issue, error) {
	var is Issue
	err := r.pool.QueryRow(ctx, `
		INSERT INTO issues (project_id, title, description, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, project_id, title, description, status, created_by, created_at, updated_at`,
		projectID, title, description, StatusOpen, createdBy).
		Scan(&is.ID, &is.ProjectID, &is.Title, &is.Description, &is.Status,
			&is.CreatedBy, &is.CreatedAt, &is.UpdatedAt)
	if err != nil {
		return Issue{}, httpx.TranslateDBError(err)
	}
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO issue_logs (issue_id, status, note, created_by)
		VALUES ($1, $2, $3, $4)`, is.ID, StatusOpen, "Issue created", createdBy); err != nil {
		return Issue{}, err
	}
	return is, nil
}

// ListByProject returns all issues for a project, newest first.
func (r *Repository) ListByProject(ctx context.Context, projectID int64) ([]Issue, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, title, description, status, created_by, created_at, updated_at
		FROM issues
		WHERE project_id = $1
		ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Issue
	for rows.Next() {
		var is Issue
		if err := rows.Scan(&is.ID, &is.ProjectID, &is.Title, &is.Description, &is.Status,
			&is.CreatedBy, &is.CreatedAt, &is.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, is)
	}
	return list, rows.Err()
}

// Get fetches an issue with its status log.
func (r *Repository) Get(ctx context.Context, id int64) (Issue, error) {
	var is Issue
	err := r.pool.QueryRow(ctx, `
		SELECT id, project_id, title, description, status, created_by, created_at, updated_at
		FROM issues WHERE id = $1`, id).
		Scan(&is.ID, &is.ProjectID, &is.Title, &is.Description, &is.Status,
			&is.CreatedBy, &is.CreatedAt, &is.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Issue{}, httpx.ErrNotFound
		}
		return Issue{}, err
	}

	logRows, err := r.pool.Query(ctx, `
		SELECT id, issue_id, status, COALESCE(note, ''), created_by, created_at
		FROM issue_logs
		WHERE issue_id = $1
		ORDER BY created_at, id`, id)
	if err != nil {
		return Issue{}, err
	}
	defer logRows.Close()
	for logRows.Next() {
		var l Log
		if err := logRows.Scan(&l.ID, &l.IssueID, &l.Status, &l.Note, &l.CreatedBy, &l.CreatedAt); err != nil {
			return Issue{}, err
		}
		is.Logs = append(is.Logs, l)
	}
	return is, logRows.Err()
}

// Update changes the issue's editable fields and, when the status moved,
// appends a log entry.
func (r *Repository) Update(ctx context.Context, id int64, title, description, status, note string, updatedBy int64) (Issue, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return Issue{}, err
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE issues SET title = $2, description = $3, status = $4, updated_at = NOW()
		WHERE id = $1`, id, title, description, status)
	if err != nil {
		return Issue{}, httpx.TranslateDBError(err)
	}

	if status != current.Status || note != "" {
		if _, err := r.pool.Exec(ctx, `
			INSERT INTO issue_logs (issue_id, status, note, created_by)
			VALUES ($1, $2, NULLIF($3, ''), $4)`, id, status, note, updatedBy); err != nil {
			return Issue{}, err
		}
	}
	return r.Get(ctx, id)
}

// Delete removes the issue and its logs.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM issue_logs WHERE issue_id = $1`, id); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM issues WHERE id = $1`, id)
	if err != nil {
		return httpx.TranslateDBError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// IDsByProject returns the ids of all issues under a project. The project
// delete cascade uses it to clean attachments per issue.
func (r *Repository) IDsByProject(ctx context.Context, projectID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM issues WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteByProject removes all issues and logs under a project.
func (r *Repository) DeleteByProject(ctx context.Context, projectID int64) error {
	if _, err := r.pool.Exec(ctx, `
		DELETE FROM issue_logs WHERE issue_id IN (SELECT id FROM issues WHERE project_id = $1)`, projectID); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM issues WHERE project_id = $1`, projectID)
	return err
}
