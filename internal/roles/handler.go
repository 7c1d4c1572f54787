package roles

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/crewdesk/crewdesk/internal/auth"
	"github.com/crewdesk/crewdesk/internal/platform/httpx"
	"github.com/crewdesk/crewdesk/internal/rbac"
)

// Handler manages role and permission management endpoints.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	guard    auth.Guard
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository, guard auth.Guard) *Handler {
	return &Handler{logger: logger, repo: repo, guard: guard, validate: validator.New()}
}

// MountRoleRoutes registers role routes.
func (h *Handler) MountRoleRoutes(r chi.Router) {
	manage := &rbac.AccessRequirement{
		Roles:       []string{rbac.RoleSuperAdmin, rbac.RoleAdmin},
		Permissions: []string{rbac.PermManageRoles},
	}
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(manage))
		r.Get("/", h.listRoles)
		r.Get("/{id}", h.getRole)
		r.Post("/", h.createRole)
		r.Put("/{id}", h.updateRole)
		r.Put("/{id}/permissions", h.setRolePermissions)
		r.Delete("/{id}", h.deleteRole)
	})
}

// MountPermissionRoutes registers permission routes.
func (h *Handler) MountPermissionRoutes(r chi.Router) {
	manage := &rbac.AccessRequirement{
		Roles:       []string{rbac.RoleSuperAdmin, rbac.RoleAdmin},
		Permissions: []string{rbac.PermManagePermissions},
	}
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(manage))
		r.Get("/", h.listPermissions)
		r.Get("/{id}", h.getPermission)
		r.Post("/", h.createPermission)
		r.Put("/{id}", h.updatePermission)
		r.Delete("/{id}", h.deletePermission)
	})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.repo.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Roles fetched successfully", roles)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	role, err := h.repo.GetRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Role fetched successfully", role)
}

type roleRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "ValidationError", "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}
	role, err := h.repo.CreateRole(r.Context(), strings.ToUpper(strings.TrimSpace(req.Name)))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Role created successfully", role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "ValidationError", "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}
	role, err := h.repo.UpdateRole(r.Context(), id, strings.ToUpper(strings.TrimSpace(req.Name)))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Role updated successfully", role)
}

type rolePermissionsRequest struct {
	PermissionIDs []int64 `json:"permissionIds" validate:"required"`
}

func (h *Handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req rolePermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "ValidationError", "Invalid request body.")
		return
	}
	if err := h.repo.SetRolePermissions(r.Context(), id, req.PermissionIDs); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.repo.GetRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Role permissions updated successfully", role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.repo.DeleteRole(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Role deleted successfully", nil)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.repo.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Permissions fetched successfully", perms)
}

func (h *Handler) getPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	perm, err := h.repo.GetPermission(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Permission fetched successfully", perm)
}

type permissionRequest struct {
	Action      string `json:"action" validate:"required,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "ValidationError", "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}
	perm, err := h.repo.CreatePermission(r.Context(), strings.ToUpper(strings.TrimSpace(req.Action)), req.Description)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Permission created successfully", perm)
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req permissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "ValidationError", "Invalid request body.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}
	perm, err := h.repo.UpdatePermission(r.Context(), id, strings.ToUpper(strings.TrimSpace(req.Action)), req.Description)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Permission updated successfully", perm)
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.repo.DeletePermission(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Permission deleted successfully", nil)
}
