package auth

import (
	"errors"
	"net/http"

	"github.com/crewdesk/crewdesk/internal/rbac"
)

// Authenticator verifies the session credential on a request and resolves it
// to a persisted actor with its full permission set.
type Authenticator struct {
	signer *TokenSigner
	repo   Repository
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(signer *TokenSigner, repo Repository) *Authenticator {
	return &Authenticator{signer: signer, repo: repo}
}

// Authenticate extracts the session cookie, verifies signature and expiry,
// and resolves the embedded subject to an actor. It is total: either an
// actor or one of the auth sentinels comes back.
func (a *Authenticator) Authenticate(r *http.Request) (*rbac.Actor, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoCredential
	}

	claims, err := a.signer.Verify(cookie.Value)
	if err != nil {
		return nil, err
	}

	actor, err := a.repo.FindActorBySubject(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, ErrActorNotFound) {
			// Token outlived the account, e.g. user deleted after issuance.
			return nil, ErrActorNotFound
		}
		return nil, err
	}
	return actor, nil
}
