package users

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/crewdesk/crewdesk/internal/platform/httpx"
	"github.com/crewdesk/crewdesk/internal/shared"
)

// Service provisions and maintains accounts, keeping the identity provider
// and the local database in step.
type Service struct {
	repo      *Repository
	inviter   Inviter
	logger    *slog.Logger
	inviteURL string
}

// NewService constructs a user service. inviteURL is where the provider sends
// invited users after they redeem the invitation.
func NewService(repo *Repository, inviter Inviter, logger *slog.Logger, inviteURL string) *Service {
	return &Service{repo: repo, inviter: inviter, logger: logger, inviteURL: inviteURL}
}

// CreateInput carries the fields for provisioning a new account.
type CreateInput struct {
	Email         string
	DisplayName   string
	RoleID        int64
	Password      string
	PermissionIDs []int64
}

// UpdateInput carries the mutable account fields.
type UpdateInput struct {
	DisplayName   string
	RoleID        int64
	PermissionIDs []int64
}

// List returns a page of users with pagination metadata.
func (s *Service) List(ctx context.Context, page, limit int) ([]User, shared.Pagination, error) {
	p := shared.NewPagination(page, limit, 0)
	list, total, err := s.repo.List(ctx, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, limit, total), nil
}

// Get fetches a single user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create invites the account at the identity provider, then records it
// locally. The provider invitation is rolled back when the local insert
// fails, so a failed create leaves no half-provisioned account behind.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	ok, err := s.repo.RoleExists(ctx, in.RoleID)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, fmt.Errorf("%w: role %d does not exist", httpx.ErrValidation, in.RoleID)
	}

	var passwordHash string
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		passwordHash = string(hash)
	}

	subjectID, err := s.inviter.Invite(ctx, in.Email, in.DisplayName, s.inviteURL)
	if err != nil {
		return User{}, err
	}

	id, err := s.repo.Create(ctx, subjectID, in.Email, in.DisplayName, in.RoleID, passwordHash)
	if err != nil {
		if delErr := s.inviter.DeleteUser(ctx, subjectID); delErr != nil {
			s.logger.Warn("rollback provider invitation failed",
				slog.String("subject_id", subjectID),
				slog.Any("error", delErr))
		}
		return User{}, err
	}

	if len(in.PermissionIDs) > 0 {
		if err := s.repo.SetDirectPermissions(ctx, id, in.PermissionIDs); err != nil {
			return User{}, err
		}
	}
	return s.repo.Get(ctx, id)
}

// Update changes the user's display name, role, and direct permission grants.
// The provider profile update is best effort.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (User, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}

	ok, err := s.repo.RoleExists(ctx, in.RoleID)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, fmt.Errorf("%w: role %d does not exist", httpx.ErrValidation, in.RoleID)
	}

	if err := s.repo.Update(ctx, id, in.DisplayName, in.RoleID); err != nil {
		return User{}, err
	}
	if err := s.repo.SetDirectPermissions(ctx, id, in.PermissionIDs); err != nil {
		return User{}, err
	}

	if in.DisplayName != current.DisplayName {
		if err := s.inviter.UpdateUser(ctx, current.SubjectID, in.DisplayName); err != nil {
			s.logger.Warn("provider profile update failed",
				slog.Int64("user_id", id),
				slog.Any("error", err))
		}
	}
	return s.repo.Get(ctx, id)
}

// Delete removes the account from the provider and locally. A provider
// failure is logged but does not block the local delete.
func (s *Service) Delete(ctx context.Context, id int64) error {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.inviter.DeleteUser(ctx, u.SubjectID); err != nil {
		s.logger.Warn("provider account delete failed",
			slog.Int64("user_id", id),
			slog.String("subject_id", u.SubjectID),
			slog.Any("error", err))
	}
	return s.repo.Delete(ctx, id)
}
