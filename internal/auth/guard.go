package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/crewdesk/crewdesk/internal/platform/httpx"
	"github.com/crewdesk/crewdesk/internal/rbac"
	"github.com/crewdesk/crewdesk/internal/shared"
)

// Guard runs the per-request access control sequence: authenticate, then
// authorize against the route's declared requirement, then hand the resolved
// actor to the handler through the request context.
type Guard struct {
	Authenticator *Authenticator
	Logger        *slog.Logger
}

// Protect returns middleware enforcing the given requirement. A nil
// requirement means authenticated-only with no role or permission
// restriction. Authentication failures return 401, authorization failures
// 403; the handler is never invoked on either.
func (g Guard) Protect(requirement *rbac.AccessRequirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := g.Authenticator.Authenticate(r)
			if err != nil {
				if !isAuthSentinel(err) {
					// Lookup infrastructure failed, not the credential.
					if g.Logger != nil {
						g.Logger.Error("resolve actor", slog.Any("error", err))
					}
					httpx.Fail(w, http.StatusInternalServerError, "InternalError", "An unexpected error occurred.")
					return
				}
				httpx.Fail(w, http.StatusUnauthorized, "Unauthorized", unauthorizedMessage(err))
				return
			}

			if requirement != nil {
				if err := rbac.Authorize(*requirement, *actor); err != nil {
					var denial *rbac.DenialError
					if errors.As(err, &denial) && g.Logger != nil {
						g.Logger.Warn("access denied",
							slog.String("path", r.URL.Path),
							slog.String("reason", denial.Reason),
							slog.Any("required", denial.Required),
							slog.Any("held", denial.Held),
							slog.Int64("actor_id", actor.ID),
						)
					}
					httpx.Fail(w, http.StatusForbidden, "Forbidden", forbiddenMessage(denial))
					return
				}
			}

			ctx := shared.ContextWithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isAuthSentinel(err error) bool {
	return errors.Is(err, ErrNoCredential) ||
		errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrExpiredCredential) ||
		errors.Is(err, ErrActorNotFound)
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoCredential):
		return "No token found"
	case errors.Is(err, ErrExpiredCredential):
		return "Token expired"
	case errors.Is(err, ErrActorNotFound):
		return "User not found"
	default:
		return "Invalid token"
	}
}

func forbiddenMessage(denial *rbac.DenialError) string {
	if denial != nil && denial.Reason == rbac.ReasonInsufficientPermission {
		return "Insufficient permission privileges"
	}
	return "Insufficient role privileges"
}
