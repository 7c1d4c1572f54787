package issue

import (
	"context"
	"log/slog"

	"github.com/crewdesk/crewdesk/internal/attach"
)

// Attachments is the slice of the attachment store the issue service uses.
type Attachments interface {
	AcceptUploads(ctx context.Context, owner attach.Owner, uploads []attach.Upload) (attach.Result, error)
	ListOwnerAttachments(ctx context.Context, owner attach.Owner) ([]attach.Attachment, error)
	DeleteOwnerAttachments(ctx context.Context, owner attach.Owner) error
}

// Service coordinates issue rows and their attachments.
type Service struct {
	repo   *Repository
	files  Attachments
	logger *slog.Logger
}

// NewService constructs an issue service.
func NewService(repo *Repository, files Attachments, logger *slog.Logger) *Service {
	return &Service{repo: repo, files: files, logger: logger}
}

// CreateInput carries the fields for opening an issue.
type CreateInput struct {
	ProjectID   int64
	Title       string
	Description string
	CreatedBy   int64
}

// UpdateInput carries the editable issue fields.
type UpdateInput struct {
	Title       string
	Description string
	Status      string
	Note        string
	UpdatedBy   int64
}

// Create opens an issue under a project and stores the uploaded files. A
// failed upload rolls the issue row back so no half-created issue remains.
func (s *Service) Create(ctx context.Context, in CreateInput, uploads []attach.Upload) (Issue, attach.Result, error) {
	ok, err := s.repo.ProjectExists(ctx, in.ProjectID)
	if err != nil {
		return Issue{}, attach.Result{}, err
	}
	if !ok {
		return Issue{}, attach.Result{}, attach.ErrOwnerNotFound
	}

	is, err := s.repo.Create(ctx, in.ProjectID, in.Title, in.Description, in.CreatedBy)
	if err != nil {
		return Issue{}, attach.Result{}, err
	}

	result, err := s.files.AcceptUploads(ctx, attach.Owner{Type: attach.OwnerIssue, ID: is.ID}, uploads)
	if err != nil {
		if delErr := s.repo.Delete(ctx, is.ID); delErr != nil {
			s.logger.Error("rollback issue after failed upload",
				slog.Int64("issue_id", is.ID), slog.Any("error", delErr))
		}
		return Issue{}, attach.Result{}, err
	}
	is.Files = result.Accepted
	return is, result, nil
}

// ListByProject returns the project's issues with their attachments.
func (s *Service) ListByProject(ctx context.Context, projectID int64) ([]Issue, error) {
	ok, err := s.repo.ProjectExists(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, attach.ErrOwnerNotFound
	}

	list, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		files, err := s.files.ListOwnerAttachments(ctx, attach.Owner{Type: attach.OwnerIssue, ID: list[i].ID})
		if err != nil {
			return nil, err
		}
		list[i].Files = files
	}
	return list, nil
}

// Get fetches an issue with log history and attachments.
func (s *Service) Get(ctx context.Context, id int64) (Issue, error) {
	is, err := s.repo.Get(ctx, id)
	if err != nil {
		return Issue{}, err
	}
	files, err := s.files.ListOwnerAttachments(ctx, attach.Owner{Type: attach.OwnerIssue, ID: id})
	if err != nil {
		return Issue{}, err
	}
	is.Files = files
	return is, nil
}

// Update changes the issue and optionally stores additional uploads,
// skipping names the issue already carries.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, uploads []attach.Upload) (Issue, attach.Result, error) {
	is, err := s.repo.Update(ctx, id, in.Title, in.Description, in.Status, in.Note, in.UpdatedBy)
	if err != nil {
		return Issue{}, attach.Result{}, err
	}

	var result attach.Result
	if len(uploads) > 0 {
		result, err = s.files.AcceptUploads(ctx, attach.Owner{Type: attach.OwnerIssue, ID: id}, uploads)
		if err != nil {
			return Issue{}, attach.Result{}, err
		}
	}

	files, err := s.files.ListOwnerAttachments(ctx, attach.Owner{Type: attach.OwnerIssue, ID: id})
	if err != nil {
		return Issue{}, attach.Result{}, err
	}
	is.Files = files
	return is, result, nil
}

// Delete removes the issue, its log history, and its attachments. The
// attachment cascade runs first so a retried delete finds nothing to clean.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.files.DeleteOwnerAttachments(ctx, attach.Owner{Type: attach.OwnerIssue, ID: id}); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
