package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdesk/crewdesk/internal/auth"
	"github.com/crewdesk/crewdesk/internal/rbac"
)

type stubRepo struct {
	actors map[string]*rbac.Actor
	err    error
}

func (s *stubRepo) FindActorBySubject(ctx context.Context, subject string) (*rbac.Actor, error) {
	if s.err != nil {
		return nil, s.err
	}
	actor, ok := s.actors[subject]
	if !ok {
		return nil, auth.ErrActorNotFound
	}
	return actor, nil
}

func (s *stubRepo) FindRoleByName(ctx context.Context, name string) (rbac.Role, error) {
	return rbac.Role{ID: 1, Name: name}, nil
}

func (s *stubRepo) CreateUser(ctx context.Context, subject, email, displayName string, roleID int64) (int64, error) {
	return 1, nil
}

func (s *stubRepo) GrantAllPermissions(ctx context.Context, userID int64) error {
	return nil
}

func requestWithToken(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	return req
}

func TestAuthenticateNoCookie(t *testing.T) {
	a := auth.NewAuthenticator(auth.NewTokenSigner("secret", time.Hour), &stubRepo{})
	_, err := a.Authenticate(requestWithToken(""))
	assert.ErrorIs(t, err, auth.ErrNoCredential)
}

func TestAuthenticateMalformedToken(t *testing.T) {
	a := auth.NewAuthenticator(auth.NewTokenSigner("secret", time.Hour), &stubRepo{})
	_, err := a.Authenticate(requestWithToken("not-a-token"))
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)
}

func TestAuthenticateTamperedToken(t *testing.T) {
	other := auth.NewTokenSigner("other-secret", time.Hour)
	token, err := other.Sign(auth.Identity{Subject: "sub-1", Email: "user@test.local"})
	require.NoError(t, err)

	a := auth.NewAuthenticator(auth.NewTokenSigner("secret", time.Hour), &stubRepo{})
	_, err = a.Authenticate(requestWithToken(token))
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	signer := auth.NewTokenSigner("secret", -time.Minute)
	token, err := signer.Sign(auth.Identity{Subject: "sub-1", Email: "user@test.local"})
	require.NoError(t, err)

	a := auth.NewAuthenticator(signer, &stubRepo{})
	_, err = a.Authenticate(requestWithToken(token))
	assert.ErrorIs(t, err, auth.ErrExpiredCredential)
}

func TestAuthenticateUnknownSubject(t *testing.T) {
	signer := auth.NewTokenSigner("secret", time.Hour)
	token, err := signer.Sign(auth.Identity{Subject: "deleted-user", Email: "gone@test.local"})
	require.NoError(t, err)

	a := auth.NewAuthenticator(signer, &stubRepo{actors: map[string]*rbac.Actor{}})
	_, err = a.Authenticate(requestWithToken(token))
	assert.ErrorIs(t, err, auth.ErrActorNotFound)
}

func TestAuthenticateResolvesActor(t *testing.T) {
	signer := auth.NewTokenSigner("secret", time.Hour)
	token, err := signer.Sign(auth.Identity{Subject: "sub-1", Email: "admin@test.local", Name: "Admin"})
	require.NoError(t, err)

	repo := &stubRepo{actors: map[string]*rbac.Actor{
		"sub-1": {
			ID:                7,
			Subject:           "sub-1",
			Email:             "admin@test.local",
			Role:              rbac.Role{Name: rbac.RoleAdmin, Permissions: []string{rbac.PermEditProject}},
			DirectPermissions: []string{rbac.PermReadOrder},
		},
	}}

	a := auth.NewAuthenticator(signer, repo)
	actor, err := a.Authenticate(requestWithToken(token))
	require.NoError(t, err)
	assert.Equal(t, int64(7), actor.ID)
	assert.Equal(t, rbac.RoleAdmin, actor.Role.Name)
	assert.ElementsMatch(t, []string{rbac.PermEditProject, rbac.PermReadOrder}, actor.EffectivePermissions())
}
