package project

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/crewdesk/crewdesk/internal/attach"
	"github.com/crewdesk/crewdesk/internal/auth"
	"github.com/crewdesk/crewdesk/internal/platform/httpx"
	"github.com/crewdesk/crewdesk/internal/rbac"
	"github.com/crewdesk/crewdesk/internal/shared"
)

// Handler manages project endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	reporter *Reporter
	guard    auth.Guard
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, reporter *Reporter, guard auth.Guard) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		reporter: reporter,
		guard:    guard,
		validate: validator.New(),
	}
}

// MountRoutes registers project routes. Workers read projects and push files
// to the ones they work on; everything structural stays with admins.
func (h *Handler) MountRoutes(r chi.Router) {
	anyRole := rbac.RoleNames()
	admins := []string{rbac.RoleSuperAdmin, rbac.RoleAdmin}

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(&rbac.AccessRequirement{Roles: anyRole, Permissions: []string{rbac.PermReadProject}}))
		r.Get("/", h.list)
		r.Get("/minimal", h.listRefs)
		r.Get("/archived", h.listArchived)
		r.Get("/stats", h.stats)
		r.Get("/{id}", h.get)
		r.Get("/{id}/files", h.files)
		r.Get("/{id}/activity", h.activity)
		r.Get("/{id}/report", h.report)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(&rbac.AccessRequirement{Roles: anyRole, Permissions: []string{rbac.PermEditProject}}))
		r.Post("/{id}/files", h.uploadFiles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(&rbac.AccessRequirement{Roles: admins, Permissions: []string{rbac.PermCreateProject}}))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(&rbac.AccessRequirement{Roles: admins, Permissions: []string{rbac.PermEditProject}}))
		r.Put("/{id}", h.update)
		r.Patch("/{id}/archive", h.toggleArchive)
		r.Post("/{id}/users/{userID}", h.assignUser)
		r.Delete("/{id}/users/{userID}", h.unassignUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(&rbac.AccessRequirement{Roles: admins, Permissions: []string{rbac.PermDeleteProject}}))
		r.Delete("/{id}", h.delete)
	})
}

type projectRequest struct {
	Name        string `validate:"required,max=200"`
	Description string `validate:"omitempty,max=5000"`
	CompanyID   int64  `validate:"required,gt=0"`
	Status      string `validate:"omitempty,oneof=PLANNED ACTIVE ON_HOLD COMPLETED"`
	StartDate   string `validate:"omitempty,datetime=2006-01-02"`
	EndDate     string `validate:"omitempty,datetime=2006-01-02"`
}

func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}

func (h *Handler) formRequest(r *http.Request) projectRequest {
	companyID, _ := strconv.ParseInt(r.FormValue("companyId"), 10, 64)
	return projectRequest{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		CompanyID:   companyID,
		Status:      r.FormValue("status"),
		StartDate:   r.FormValue("startDate"),
		EndDate:     r.FormValue("endDate"),
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	uploads, closeUploads, err := attach.FromMultipart(r, "files")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	defer closeUploads()

	req := h.formRequest(r)
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	actor := shared.ActorFromContext(r.Context())
	p, result, err := h.service.Create(r.Context(), CreateInput{
		Name:        req.Name,
		Description: req.Description,
		CompanyID:   req.CompanyID,
		StartDate:   parseDate(req.StartDate),
		EndDate:     parseDate(req.EndDate),
		CreatedBy:   actor.ID,
	}, uploads)
	if err != nil {
		h.logger.Error("create project", slog.String("name", req.Name), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Project created successfully", map[string]any{
		"project":      p,
		"skippedFiles": result.Skipped,
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, r, false, "Projects fetched successfully")
}

func (h *Handler) listArchived(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, r, true, "Archived projects fetched successfully")
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, archived bool, message string) {
	page, limit := shared.PageParams(r)
	list, pagination, err := h.service.List(r.Context(), archived, page, limit)
	if err != nil {
		h.logger.Error("list projects", slog.Bool("archived", archived), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, message, map[string]any{
		"projects":   list,
		"pagination": pagination,
	})
}

func (h *Handler) listRefs(w http.ResponseWriter, r *http.Request) {
	refs, err := h.service.ListRefs(r.Context())
	if err != nil {
		h.logger.Error("list project refs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Projects fetched successfully", refs)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("project stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Project statistics fetched successfully", s)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Project fetched successfully", p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
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

	req := h.formRequest(r)
	if req.Status == "" {
		req.Status = StatusPlanned
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	actor := shared.ActorFromContext(r.Context())
	p, result, err := h.service.Update(r.Context(), id, UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		CompanyID:   req.CompanyID,
		Status:      req.Status,
		StartDate:   parseDate(req.StartDate),
		EndDate:     parseDate(req.EndDate),
	}, uploads, actor.ID)
	if err != nil {
		h.logger.Error("update project", slog.Int64("project_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Project updated successfully", map[string]any{
		"project":      p,
		"skippedFiles": result.Skipped,
	})
}

func (h *Handler) uploadFiles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
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

	actor := shared.ActorFromContext(r.Context())
	result, err := h.service.UploadFiles(r.Context(), id, uploads, actor.ID)
	if err != nil {
		h.logger.Error("upload project files", slog.Int64("project_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Files uploaded successfully", result)
}

func (h *Handler) files(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	page, limit := shared.PageParams(r)
	files, pagination, err := h.service.Files(r.Context(), id, page, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Project files fetched successfully", map[string]any{
		"files":      files,
		"pagination": pagination,
	})
}

func (h *Handler) toggleArchive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	archived, err := h.service.ToggleArchive(r.Context(), id, actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	message := "Project unarchived successfully"
	if archived {
		message = "Project archived successfully"
	}
	httpx.OK(w, http.StatusOK, message, map[string]any{"archived": archived})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete project", slog.Int64("project_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Project deleted successfully", nil)
}

func (h *Handler) assignUser(w http.ResponseWriter, r *http.Request) {
	h.changeAssignment(w, r, h.service.AssignUser, "User assigned successfully")
}

func (h *Handler) unassignUser(w http.ResponseWriter, r *http.Request) {
	h.changeAssignment(w, r, h.service.UnassignUser, "User unassigned successfully")
}

func (h *Handler) changeAssignment(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, projectID, userID, actorID int64) error, message string) {
	projectID, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := apply(r.Context(), projectID, userID, actor.ID); err != nil {
		h.logger.Error("change project assignment",
			slog.Int64("project_id", projectID),
			slog.Int64("user_id", userID),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, message, nil)
}

func (h *Handler) activity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	page, limit := shared.PageParams(r)
	list, pagination, err := h.service.Activity(r.Context(), id, page, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Project activity fetched successfully", map[string]any{
		"activity":   list,
		"pagination": pagination,
	})
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	pdf, err := h.reporter.Render(r.Context(), id)
	if err != nil {
		h.logger.Error("render project report", slog.Int64("project_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=project-%d.pdf", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}
