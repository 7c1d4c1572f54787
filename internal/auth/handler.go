package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crewdesk/crewdesk/internal/platform/httpx"
	"github.com/crewdesk/crewdesk/internal/shared"
)

// Handler exposes the login, callback, logout, and identity endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	signer      *TokenSigner
	guard       Guard
	frontendURL string
	secure      bool
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, signer *TokenSigner, guard Guard, frontendURL string, secure bool) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		signer:      signer,
		guard:       guard,
		frontendURL: frontendURL,
		secure:      secure,
	}
}

// MountRoutes registers the auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.login)
	r.Get("/callback", h.callback)
	r.Post("/logout", h.logout)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(nil))
		r.Get("/me", h.me)
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.LoginURL(r.Context())
	if err != nil {
		h.logger.Error("issue login url", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Redirect to provider login page", map[string]string{"url": url})
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	id, err := h.service.HandleCallback(r.Context(), state, code)
	if err != nil {
		if errors.Is(err, ErrStateUnknown) {
			httpx.Fail(w, http.StatusUnauthorized, "Unauthorized", "Login state expired or already used.")
			return
		}
		h.logger.Error("provider sign-in failed", slog.Any("error", err))
		httpx.Fail(w, http.StatusUnauthorized, "Unauthorized", "Sign-in failed.")
		return
	}

	token, err := h.signer.Sign(id)
	if err != nil {
		h.logger.Error("sign session token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.signer.TTL()),
	})
	http.Redirect(w, r, h.frontendURL, http.StatusFound)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.OK(w, http.StatusOK, "Logout successful", nil)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Fail(w, http.StatusUnauthorized, "Unauthorized", "No token found")
		return
	}
	httpx.OK(w, http.StatusOK, "User fetched successfully", actor)
}
