package issue

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

// Handler manages issue endpoints.
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

// MountRoutes registers issue routes. Workers report and work issues, so
// create/read/edit are open to every role with the matching permission;
// deletion stays with admins.
func (h *Handler) MountRoutes(r chi.Router) {
	anyRole := rbac.RoleNames()
	admins := []string{rbac.RoleSuperAdmin, rbac.RoleAdmin}

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(&rbac.AccessRequirement{Roles: anyRole, Permissions: []string{rbac.PermCreateIssue}}))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(&rbac.AccessRequirement{Roles: anyRole, Permissions: []string{rbac.PermReadIssue}}))
		r.Get("/project/{projectID}", h.listByProject)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(&rbac.AccessRequirement{Roles: anyRole, Permissions: []string{rbac.PermEditIssue}}))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(&rbac.AccessRequirement{Roles: admins, Permissions: []string{rbac.PermDeleteIssue}}))
		r.Delete("/{id}", h.delete)
	})
}

type createIssueRequest struct {
	ProjectID   int64  `validate:"required,gt=0"`
	Title       string `validate:"required,max=200"`
	Description string `validate:"omitempty,max=5000"`
}

type updateIssueRequest struct {
	Title       string `validate:"required,max=200"`
	Description string `validate:"omitempty,max=5000"`
	Status      string `validate:"required,oneof=OPEN IN_PROGRESS RESOLVED CLOSED"`
	Note        string `validate:"omitempty,max=2000"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	uploads, closeUploads, err := attach.FromMultipart(r, "files")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	defer closeUploads()

	projectID, _ := strconv.ParseInt(r.FormValue("projectId"), 10, 64)
	req := createIssueRequest{
		ProjectID:   projectID,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	actor := shared.ActorFromContext(r.Context())
	is, result, err := h.service.Create(r.Context(), CreateInput{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		CreatedBy:   actor.ID,
	}, uploads)
	if err != nil {
		h.logger.Error("create issue", slog.Int64("project_id", req.ProjectID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Issue created successfully", map[string]any{
		"issue":        is,
		"skippedFiles": result.Skipped,
	})
}

func (h *Handler) listByProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	list, err := h.service.ListByProject(r.Context(), projectID)
	if err != nil {
		h.logger.Error("list issues", slog.Int64("project_id", projectID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Issues fetched successfully", list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	is, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Issue fetched successfully", is)
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

	req := updateIssueRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Status:      r.FormValue("status"),
		Note:        r.FormValue("note"),
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	actor := shared.ActorFromContext(r.Context())
	is, result, err := h.service.Update(r.Context(), id, UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Note:        req.Note,
		UpdatedBy:   actor.ID,
	}, uploads)
	if err != nil {
		h.logger.Error("update issue", slog.Int64("issue_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Issue updated successfully", map[string]any{
		"issue":        is,
		"skippedFiles": result.Skipped,
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete issue", slog.Int64("issue_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Issue deleted successfully", nil)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
