package order

import (
	"context"
	"log/slog"

	"github.com/crewdesk/crewdesk/internal/attach"
	"github.com/crewdesk/crewdesk/internal/shared"
)

// Attachments is the slice of the attachment store the order service uses.
// Orders carry two owner scopes: their paperwork files and their sign-off
// signatures.
type Attachments interface {
	AcceptUploads(ctx context.Context, owner attach.Owner, uploads []attach.Upload) (attach.Result, error)
	ListOwnerAttachments(ctx context.Context, owner attach.Owner) ([]attach.Attachment, error)
	DeleteOwnerAttachments(ctx context.Context, owner attach.Owner) error
}

// Service coordinates order rows with their attachments and signatures.
type Service struct {
	repo   *Repository
	files  Attachments
	logger *slog.Logger
}

// NewService constructs an order service.
func NewService(repo *Repository, files Attachments, logger *slog.Logger) *Service {
	return &Service{repo: repo, files: files, logger: logger}
}

// CreateInput carries the fields for opening an order.
type CreateInput struct {
	Title       string
	Description string
	ProjectID   *int64
	CreatedBy   int64
}

// UpdateInput carries the editable order fields.
type UpdateInput struct {
	Title       string
	Description string
	Status      string
	ProjectID   *int64
}

// Create opens an order and stores the uploaded files. A failed upload rolls
// the order row back.
func (s *Service) Create(ctx context.Context, in CreateInput, uploads []attach.Upload) (Order, attach.Result, error) {
	o, err := s.repo.Create(ctx, in.Title, in.Description, in.ProjectID, in.CreatedBy)
	if err != nil {
		return Order{}, attach.Result{}, err
	}

	result, err := s.files.AcceptUploads(ctx, attach.Owner{Type: attach.OwnerOrder, ID: o.ID}, uploads)
	if err != nil {
		if delErr := s.repo.Delete(ctx, o.ID); delErr != nil {
			s.logger.Error("rollback order after failed upload",
				slog.Int64("order_id", o.ID), slog.Any("error", delErr))
		}
		return Order{}, attach.Result{}, err
	}
	o.Files = result.Accepted
	return o, result, nil
}

// List returns a page of active or archived orders.
func (s *Service) List(ctx context.Context, archived bool, page, limit int) ([]Order, shared.Pagination, error) {
	p := shared.NewPagination(page, limit, 0)
	list, total, err := s.repo.List(ctx, archived, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range list {
		if err := s.loadAttachments(ctx, &list[i]); err != nil {
			return nil, shared.Pagination{}, err
		}
	}
	return list, shared.NewPagination(page, limit, total), nil
}

// Get fetches an order with files and signatures.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if err := s.loadAttachments(ctx, &o); err != nil {
		return Order{}, err
	}
	return o, nil
}

// Update changes the order and merges additional uploads, skipping names the
// order already carries.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, uploads []attach.Upload) (Order, attach.Result, error) {
	o, err := s.repo.Update(ctx, id, in.Title, in.Description, in.Status, in.ProjectID)
	if err != nil {
		return Order{}, attach.Result{}, err
	}

	var result attach.Result
	if len(uploads) > 0 {
		result, err = s.files.AcceptUploads(ctx, attach.Owner{Type: attach.OwnerOrder, ID: id}, uploads)
		if err != nil {
			return Order{}, attach.Result{}, err
		}
	}
	if err := s.loadAttachments(ctx, &o); err != nil {
		return Order{}, attach.Result{}, err
	}
	return o, result, nil
}

// UploadFiles adds paperwork files to an existing order.
func (s *Service) UploadFiles(ctx context.Context, id int64, uploads []attach.Upload) (attach.Result, error) {
	return s.files.AcceptUploads(ctx, attach.Owner{Type: attach.OwnerOrder, ID: id}, uploads)
}

// ToggleArchive flips the archive flag.
func (s *Service) ToggleArchive(ctx context.Context, id int64) (bool, error) {
	return s.repo.ToggleArchive(ctx, id)
}

// Delete removes the order with both of its attachment scopes. Attachments
// go first so a retried delete finds nothing left to clean.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.files.DeleteOwnerAttachments(ctx, attach.Owner{Type: attach.OwnerOrder, ID: id}); err != nil {
		return err
	}
	if err := s.files.DeleteOwnerAttachments(ctx, attach.Owner{Type: attach.OwnerSignature, ID: id}); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Stats aggregates order counts for the dashboard.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *Service) loadAttachments(ctx context.Context, o *Order) error {
	files, err := s.files.ListOwnerAttachments(ctx, attach.Owner{Type: attach.OwnerOrder, ID: o.ID})
	if err != nil {
		return err
	}
	signatures, err := s.files.ListOwnerAttachments(ctx, attach.Owner{Type: attach.OwnerSignature, ID: o.ID})
	if err != nil {
		return err
	}
	o.Files = files
	o.Signatures = signatures
	return nil
}
