package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/crewdesk/crewdesk/internal/auth"
	"github.com/crewdesk/crewdesk/internal/platform/httpx"
	"github.com/crewdesk/crewdesk/internal/rbac"
	"github.com/crewdesk/crewdesk/internal/shared"
)

// Handler manages user administration endpoints.
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

// MountRoutes registers user administration routes. All of them require the
// MANAGE_USERS permission on top of an admin role.
func (h *Handler) MountRoutes(r chi.Router) {
	manage := &rbac.AccessRequirement{
		Roles:       []string{rbac.RoleSuperAdmin, rbac.RoleAdmin},
		Permissions: []string{rbac.PermManageUsers},
	}

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(manage))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type createUserRequest struct {
	Email         string  `json:"email" validate:"required,email"`
	Name          string  `json:"name" validate:"required,max=200"`
	RoleID        int64   `json:"roleId" validate:"required,gt=0"`
	Password      string  `json:"password" validate:"omitempty,min=8"`
	PermissionIDs []int64 `json:"permissionIds" validate:"omitempty,dive,gt=0"`
}

type updateUserRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	RoleID        int64   `json:"roleId" validate:"required,gt=0"`
	PermissionIDs []int64 `json:"permissionIds" validate:"omitempty,dive,gt=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := shared.PageParams(r)
	list, pagination, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Users fetched successfully", map[string]any{
		"users":      list,
		"pagination": pagination,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "User fetched successfully", u)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	u, err := h.service.Create(r.Context(), CreateInput{
		Email:         req.Email,
		DisplayName:   req.Name,
		RoleID:        req.RoleID,
		Password:      req.Password,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		h.logger.Error("create user", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "User created successfully", u)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	u, err := h.service.Update(r.Context(), id, UpdateInput{
		DisplayName:   req.Name,
		RoleID:        req.RoleID,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		h.logger.Error("update user", slog.Int64("user_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "User updated successfully", u)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete user", slog.Int64("user_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "User deleted successfully", nil)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
