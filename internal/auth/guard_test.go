package auth_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdesk/crewdesk/internal/auth"
	"github.com/crewdesk/crewdesk/internal/rbac"
	"github.com/crewdesk/crewdesk/internal/shared"
)

func newGuard(t *testing.T, repo auth.Repository) (auth.Guard, *auth.TokenSigner) {
	t.Helper()
	signer := auth.NewTokenSigner("secret", time.Hour)
	return auth.Guard{
		Authenticator: auth.NewAuthenticator(signer, repo),
		Logger:        slog.New(slog.DiscardHandler),
	}, signer
}

func signFor(t *testing.T, signer *auth.TokenSigner, subject string) string {
	t.Helper()
	token, err := signer.Sign(auth.Identity{Subject: subject, Email: subject + "@test.local"})
	require.NoError(t, err)
	return token
}

func errorName(t *testing.T, body []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Name string `json:"name"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope.Error.Name
}

func TestGuardNoCredentialNeverReachesHandler(t *testing.T) {
	guard, _ := newGuard(t, &stubRepo{})

	invoked := 0
	handler := guard.Protect(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		invoked++
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil))

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, 0, invoked)
	assert.Equal(t, "Unauthorized", errorName(t, res.Body.Bytes()))
}

func TestGuardWorkerDeniedAdminRoute(t *testing.T) {
	repo := &stubRepo{actors: map[string]*rbac.Actor{
		"worker-1": {ID: 1, Role: rbac.Role{Name: rbac.RoleWorker}},
	}}
	guard, signer := newGuard(t, repo)

	invoked := 0
	requirement := &rbac.AccessRequirement{Roles: []string{rbac.RoleSuperAdmin, rbac.RoleAdmin}}
	handler := guard.Protect(requirement)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		invoked++
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: signFor(t, signer, "worker-1")})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, 0, invoked)
	assert.Equal(t, "Forbidden", errorName(t, res.Body.Bytes()))
}

func TestGuardAdminWithPermissionAllowed(t *testing.T) {
	repo := &stubRepo{actors: map[string]*rbac.Actor{
		"admin-1": {
			ID:   2,
			Role: rbac.Role{Name: rbac.RoleAdmin, Permissions: []string{rbac.PermEditProject}},
		},
	}}
	guard, signer := newGuard(t, repo)

	var seen *rbac.Actor
	requirement := &rbac.AccessRequirement{
		Roles:       []string{rbac.RoleSuperAdmin, rbac.RoleAdmin},
		Permissions: []string{rbac.PermEditProject},
	}
	handler := guard.Protect(requirement)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPut, "/api/v1/projects/1", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: signFor(t, signer, "admin-1")})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	assert.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, seen)
	assert.Equal(t, int64(2), seen.ID)
}

func TestGuardNilRequirementAllowsAnyAuthenticated(t *testing.T) {
	repo := &stubRepo{actors: map[string]*rbac.Actor{
		"worker-1": {ID: 1, Role: rbac.Role{Name: rbac.RoleWorker}},
	}}
	guard, signer := newGuard(t, repo)

	invoked := 0
	handler := guard.Protect(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		invoked++
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: signFor(t, signer, "worker-1")})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 1, invoked)
}

func TestGuardExpiredTokenIsUnauthorizedNotForbidden(t *testing.T) {
	repo := &stubRepo{actors: map[string]*rbac.Actor{
		"admin-1": {ID: 2, Role: rbac.Role{Name: rbac.RoleAdmin}},
	}}
	guard, _ := newGuard(t, repo)
	expired := auth.NewTokenSigner("secret", -time.Minute)

	handler := guard.Protect(&rbac.AccessRequirement{Roles: []string{rbac.RoleAdmin}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: signFor(t, expired, "admin-1")})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}
