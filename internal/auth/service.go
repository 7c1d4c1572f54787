package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/crewdesk/crewdesk/internal/rbac"
)

// Service wraps the federated login flow: issuing login URLs, redeeming
// callback codes, and provisioning first-time users.
type Service struct {
	repo     Repository
	provider IdentityProvider
	states   *StateStore
	logger   *slog.Logger

	bootstrapAdmins map[string]struct{}
}

// NewService constructs a Service. bootstrapAdmins lists emails that receive
// SUPER_ADMIN on first login.
func NewService(repo Repository, provider IdentityProvider, states *StateStore, logger *slog.Logger, bootstrapAdmins []string) *Service {
	admins := make(map[string]struct{}, len(bootstrapAdmins))
	for _, email := range bootstrapAdmins {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			admins[email] = struct{}{}
		}
	}
	return &Service{
		repo:            repo,
		provider:        provider,
		states:          states,
		logger:          logger,
		bootstrapAdmins: admins,
	}
}

// LoginURL issues a state nonce and returns the provider login URL.
func (s *Service) LoginURL(ctx context.Context) (string, error) {
	state, err := s.states.Issue(ctx)
	if err != nil {
		return "", err
	}
	return s.provider.AuthCodeURL(state), nil
}

// HandleCallback consumes the state nonce, exchanges the code, and returns
// the identity to bind into a session token. Unknown users are provisioned
// with WORKER, or SUPER_ADMIN for bootstrap admin emails.
func (s *Service) HandleCallback(ctx context.Context, state, code string) (Identity, error) {
	if err := s.states.Consume(ctx, state); err != nil {
		return Identity{}, err
	}

	id, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return Identity{}, err
	}

	if _, err := s.repo.FindActorBySubject(ctx, id.Subject); err != nil {
		if !errors.Is(err, ErrActorNotFound) {
			return Identity{}, err
		}
		if err := s.provision(ctx, id); err != nil {
			return Identity{}, err
		}
		s.logger.Info("provisioned user", slog.String("email", id.Email))
	} else {
		s.logger.Info("existing user authenticated", slog.String("email", id.Email))
	}

	return id, nil
}

func (s *Service) provision(ctx context.Context, id Identity) error {
	roleName := rbac.RoleWorker
	if _, ok := s.bootstrapAdmins[strings.ToLower(id.Email)]; ok {
		roleName = rbac.RoleSuperAdmin
	}

	role, err := s.repo.FindRoleByName(ctx, roleName)
	if err != nil {
		return err
	}

	userID, err := s.repo.CreateUser(ctx, id.Subject, id.Email, id.Name, role.ID)
	if err != nil {
		return err
	}

	if roleName == rbac.RoleSuperAdmin {
		// Seeding failures must not block the login itself.
		if err := s.repo.GrantAllPermissions(ctx, userID); err != nil {
			s.logger.Warn("grant bootstrap permissions", slog.Any("error", err))
		}
	}
	return nil
}
