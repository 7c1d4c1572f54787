// Package universal exposes cross-entity file operations: replacing a stored
// file in place regardless of its owner, and capturing customer sign-off
// signatures on orders.
package universal

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/crewdesk/crewdesk/internal/attach"
	"github.com/crewdesk/crewdesk/internal/auth"
	"github.com/crewdesk/crewdesk/internal/platform/httpx"
	"github.com/crewdesk/crewdesk/internal/rbac"
)

// Handler manages universal file endpoints.
type Handler struct {
	logger   *slog.Logger
	store    *attach.Store
	guard    auth.Guard
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, store *attach.Store, guard auth.Guard) *Handler {
	return &Handler{
		logger:   logger,
		store:    store,
		guard:    guard,
		validate: validator.New(),
	}
}

// MountRoutes registers universal routes. Workers replace photos and capture
// signatures on site, so any authenticated role may call these.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(&rbac.AccessRequirement{Roles: rbac.RoleNames()}))
		r.Put("/upload/{fileID}", h.replaceFile)
		r.Post("/save-signatures", h.saveSignature)
	})
}

func (h *Handler) replaceFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.ParseInt(chi.URLParam(r, "fileID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}

	uploads, closeUploads, err := attach.FromMultipart(r, "file")
	if err != nil || len(uploads) != 1 {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	defer closeUploads()

	replaced, err := h.store.ReplaceFile(r.Context(), fileID, uploads[0])
	if err != nil {
		h.logger.Error("replace file", slog.Int64("file_id", fileID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "File updated successfully", replaced)
}

type signatureRequest struct {
	OrderID   int64  `json:"orderId" validate:"required,gt=0"`
	Signature string `json:"signature" validate:"required"`
	Initials  string `json:"initials" validate:"omitempty,max=10"`
}

func (h *Handler) saveSignature(w http.ResponseWriter, r *http.Request) {
	var req signatureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	saved, err := h.store.SaveSignature(r.Context(), req.OrderID, req.Signature, req.Initials)
	if err != nil {
		h.logger.Error("save signature", slog.Int64("order_id", req.OrderID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Signature saved successfully", saved)
}
