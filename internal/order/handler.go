package order

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
	"github.com/crewdesk/crewdesk/internal/shared"
)

// Handler manages order endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    auth.Guard
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Guard) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		guard:    guard,
		validate: validator.New(),
	}
}

// MountRoutes registers order routes. File upload to an existing order is
// open to workers on site; creating, editing, archiving, and deleting stay
// with admins.
func (h *Handler) MountRoutes(r chi.Router) {
	anyRole := rbac.RoleNames()
	admins := []string{rbac.RoleSuperAdmin, rbac.RoleAdmin}

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(&rbac.AccessRequirement{Roles: anyRole, Permissions: []string{rbac.PermReadOrder}}))
		r.Get("/", h.list)
		r.Get("/archived", h.listArchived)
		r.Get("/stats", h.stats)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(&rbac.AccessRequirement{Roles: anyRole, Permissions: []string{rbac.PermEditOrder}}))
		r.Post("/{id}/files", h.uploadFiles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(&rbac.AccessRequirement{Roles: admins, Permissions: []string{rbac.PermCreateOrder}}))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(&rbac.AccessRequirement{Roles: admins, Permissions: []string{rbac.PermEditOrder}}))
		r.Put("/{id}", h.update)
		r.Patch("/{id}/archive", h.toggleArchive)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(&rbac.AccessRequirement{Roles: admins, Permissions: []string{rbac.PermDeleteOrder}}))
		r.Delete("/{id}", h.delete)
	})
}

type createOrderRequest struct {
	Title       string `validate:"required,max=200"`
	Description string `validate:"omitempty,max=5000"`
}

type updateOrderRequest struct {
	Title       string `validate:"required,max=200"`
	Description string `validate:"omitempty,max=5000"`
	Status      string `validate:"required,oneof=PENDING IN_PROGRESS COMPLETED CANCELLED"`
}

func optionalID(raw string) *int64 {
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	uploads, closeUploads, err := attach.FromMultipart(r, "files")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	defer closeUploads()

	req := createOrderRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	actor := shared.ActorFromContext(r.Context())
	o, result, err := h.service.Create(r.Context(), CreateInput{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   optionalID(r.FormValue("projectId")),
		CreatedBy:   actor.ID,
	}, uploads)
	if err != nil {
		h.logger.Error("create order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Order created successfully", map[string]any{
		"order":        o,
		"skippedFiles": result.Skipped,
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, r, false, "Orders fetched successfully")
}

func (h *Handler) listArchived(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, r, true, "Archived orders fetched successfully")
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, archived bool, message string) {
	page, limit := shared.PageParams(r)
	list, pagination, err := h.service.List(r.Context(), archived, page, limit)
	if err != nil {
		h.logger.Error("list orders", slog.Bool("archived", archived), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, message, map[string]any{
		"orders":     list,
		"pagination": pagination,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Order fetched successfully", o)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	uploads, closeUploads, err := attach.FromMultipart(r, "files")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	defer closeUploads()

	req := updateOrderRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Status:      r.FormValue("status"),
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	o, result, err := h.service.Update(r.Context(), id, UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		ProjectID:   optionalID(r.FormValue("projectId")),
	}, uploads)
	if err != nil {
		h.logger.Error("update order", slog.Int64("order_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Order updated successfully", map[string]any{
		"order":        o,
		"skippedFiles": result.Skipped,
	})
}

func (h *Handler) uploadFiles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	uploads, closeUploads, err := attach.FromMultipart(r, "files")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	defer closeUploads()

	result, err := h.service.UploadFiles(r.Context(), id, uploads)
	if err != nil {
		h.logger.Error("upload order files", slog.Int64("order_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Files uploaded successfully", result)
}

func (h *Handler) toggleArchive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	archived, err := h.service.ToggleArchive(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	message := "Order unarchived successfully"
	if archived {
		message = "Order archived successfully"
	}
	httpx.OK(w, http.StatusOK, message, map[string]any{"archived": archived})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete order", slog.Int64("order_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Order deleted successfully", nil)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("order stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Order statistics fetched successfully", s)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
