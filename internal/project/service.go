package project

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crewdesk/crewdesk/internal/attach"
	"github.com/crewdesk/crewdesk/internal/platform/httpx"
	"github.com/crewdesk/crewdesk/internal/shared"
)

// Attachments is the slice of the attachment store the project service uses.
type Attachments interface {
	AcceptUploads(ctx context.Context, owner attach.Owner, uploads []attach.Upload) (attach.Result, error)
	ListOwnerAttachments(ctx context.Context, owner attach.Owner) ([]attach.Attachment, error)
	DeleteOwnerAttachments(ctx context.Context, owner attach.Owner) error
}

// IssueCascade is the slice of the issue module the delete cascade needs:
// enumerating a project's issues so their attachments can be removed, then
// dropping the rows.
type IssueCascade interface {
	IDsByProject(ctx context.Context, projectID int64) ([]int64, error)
	DeleteByProject(ctx context.Context, projectID int64) error
}

// Service coordinates project rows, crew assignments, attachments, and the
// delete cascade across issues.
type Service struct {
	repo   Repository
	files  Attachments
	issues IssueCascade
	logger *slog.Logger
}

// NewService constructs a project service.
func NewService(repo Repository, files Attachments, issues IssueCascade, logger *slog.Logger) *Service {
	return &Service{repo: repo, files: files, issues: issues, logger: logger}
}

// CreateInput carries the fields for creating a project.
type CreateInput struct {
	Name        string
	Description string
	CompanyID   int64
	StartDate   *time.Time
	EndDate     *time.Time
	CreatedBy   int64
}

// UpdateInput carries the editable project fields.
type UpdateInput struct {
	Name        string
	Description string
	CompanyID   int64
	Status      string
	StartDate   *time.Time
	EndDate     *time.Time
}

// Create validates the company, inserts the project, and stores the uploaded
// files. A failed upload rolls the project row back.
func (s *Service) Create(ctx context.Context, in CreateInput, uploads []attach.Upload) (Project, attach.Result, error) {
	ok, err := s.repo.CompanyExists(ctx, in.CompanyID)
	if err != nil {
		return Project{}, attach.Result{}, err
	}
	if !ok {
		return Project{}, attach.Result{}, fmt.Errorf("%w: company %d does not exist", httpx.ErrValidation, in.CompanyID)
	}

	p, err := s.repo.Create(ctx, in)
	if err != nil {
		return Project{}, attach.Result{}, err
	}

	result, err := s.files.AcceptUploads(ctx, attach.Owner{Type: attach.OwnerProject, ID: p.ID}, uploads)
	if err != nil {
		if delErr := s.repo.Delete(ctx, p.ID); delErr != nil {
			s.logger.Error("rollback project after failed upload",
				slog.Int64("project_id", p.ID), slog.Any("error", delErr))
		}
		return Project{}, attach.Result{}, err
	}
	p.Files = result.Accepted

	s.logActivity(ctx, p.ID, "PROJECT_CREATED", "", in.CreatedBy)
	return p, result, nil
}

// List returns a page of active or archived projects.
func (s *Service) List(ctx context.Context, archived bool, page, limit int) ([]Project, shared.Pagination, error) {
	p := shared.NewPagination(page, limit, 0)
	list, total, err := s.repo.List(ctx, archived, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range list {
		files, err := s.files.ListOwnerAttachments(ctx, attach.Owner{Type: attach.OwnerProject, ID: list[i].ID})
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		list[i].Files = files
	}
	return list, shared.NewPagination(page, limit, total), nil
}

// ListRefs returns the minimal id/name projection of active projects.
func (s *Service) ListRefs(ctx context.Context) ([]Ref, error) {
	return s.repo.ListRefs(ctx)
}

// Get fetches a project with crew and attachments.
func (s *Service) Get(ctx context.Context, id int64) (Project, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Project{}, err
	}
	files, err := s.files.ListOwnerAttachments(ctx, attach.Owner{Type: attach.OwnerProject, ID: id})
	if err != nil {
		return Project{}, err
	}
	p.Files = files
	return p, nil
}

// Update changes the project and merges additional uploads, skipping names
// the project already carries.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, uploads []attach.Upload, actorID int64) (Project, attach.Result, error) {
	ok, err := s.repo.CompanyExists(ctx, in.CompanyID)
	if err != nil {
		return Project{}, attach.Result{}, err
	}
	if !ok {
		return Project{}, attach.Result{}, fmt.Errorf("%w: company %d does not exist", httpx.ErrValidation, in.CompanyID)
	}

	p, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Project{}, attach.Result{}, err
	}

	var result attach.Result
	if len(uploads) > 0 {
		result, err = s.files.AcceptUploads(ctx, attach.Owner{Type: attach.OwnerProject, ID: id}, uploads)
		if err != nil {
			return Project{}, attach.Result{}, err
		}
	}

	files, err := s.files.ListOwnerAttachments(ctx, attach.Owner{Type: attach.OwnerProject, ID: id})
	if err != nil {
		return Project{}, attach.Result{}, err
	}
	p.Files = files

	s.logActivity(ctx, id, "PROJECT_UPDATED", "", actorID)
	return p, result, nil
}

// UploadFiles adds files to an existing project.
func (s *Service) UploadFiles(ctx context.Context, id int64, uploads []attach.Upload, actorID int64) (attach.Result, error) {
	result, err := s.files.AcceptUploads(ctx, attach.Owner{Type: attach.OwnerProject, ID: id}, uploads)
	if err != nil {
		return attach.Result{}, err
	}
	if len(result.Accepted) > 0 {
		s.logActivity(ctx, id, "FILES_UPLOADED",
			fmt.Sprintf("%d file(s)", len(result.Accepted)), actorID)
	}
	return result, nil
}

// Files returns a page of the project's attachments.
func (s *Service) Files(ctx context.Context, id int64, page, limit int) ([]attach.Attachment, shared.Pagination, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, shared.Pagination{}, err
	}
	all, err := s.files.ListOwnerAttachments(ctx, attach.Owner{Type: attach.OwnerProject, ID: id})
	if err != nil {
		return nil, shared.Pagination{}, err
	}

	p := shared.NewPagination(page, limit, len(all))
	start := p.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + p.PerPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], p, nil
}

// ToggleArchive flips the archive flag.
func (s *Service) ToggleArchive(ctx context.Context, id int64, actorID int64) (bool, error) {
	archived, err := s.repo.ToggleArchive(ctx, id)
	if err != nil {
		return false, err
	}
	action := "PROJECT_UNARCHIVED"
	if archived {
		action = "PROJECT_ARCHIVED"
	}
	s.logActivity(ctx, id, action, "", actorID)
	return archived, nil
}

// Delete removes the project and everything hanging off it: the project's
// own attachments, every issue's attachments, the issue rows, and finally
// the project row with its assignments and activity log. Attachment cleanup
// runs first so a partially failed delete can be retried.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}

	issueIDs, err := s.issues.IDsByProject(ctx, id)
	if err != nil {
		return err
	}
	for _, issueID := range issueIDs {
		if err := s.files.DeleteOwnerAttachments(ctx, attach.Owner{Type: attach.OwnerIssue, ID: issueID}); err != nil {
			return err
		}
	}
	if err := s.files.DeleteOwnerAttachments(ctx, attach.Owner{Type: attach.OwnerProject, ID: id}); err != nil {
		return err
	}
	if err := s.issues.DeleteByProject(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// AssignUser adds a crew member.
func (s *Service) AssignUser(ctx context.Context, projectID, userID, actorID int64) error {
	if _, err := s.repo.Get(ctx, projectID); err != nil {
		return err
	}
	if err := s.repo.AssignUser(ctx, projectID, userID); err != nil {
		return err
	}
	s.logActivity(ctx, projectID, "USER_ASSIGNED", fmt.Sprintf("user %d", userID), actorID)
	return nil
}

// UnassignUser removes a crew member.
func (s *Service) UnassignUser(ctx context.Context, projectID, userID, actorID int64) error {
	if err := s.repo.UnassignUser(ctx, projectID, userID); err != nil {
		return err
	}
	s.logActivity(ctx, projectID, "USER_UNASSIGNED", fmt.Sprintf("user %d", userID), actorID)
	return nil
}

// Activity returns a page of the project's activity log.
func (s *Service) Activity(ctx context.Context, id int64, page, limit int) ([]Activity, shared.Pagination, error) {
	p := shared.NewPagination(page, limit, 0)
	list, total, err := s.repo.ListActivity(ctx, id, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, limit, total), nil
}

// Stats aggregates project counts for the dashboard.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

// logActivity records best effort; a failed log entry never fails the
// operation it describes.
func (s *Service) logActivity(ctx context.Context, projectID int64, action, detail string, actorID int64) {
	if err := s.repo.AppendActivity(ctx, projectID, action, detail, actorID); err != nil {
		s.logger.Warn("append project activity",
			slog.Int64("project_id", projectID),
			slog.String("action", action),
			slog.Any("error", err))
	}
}
