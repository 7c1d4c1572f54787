package app

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/crewdesk/crewdesk/internal/auth"
	"github.com/crewdesk/crewdesk/internal/company"
	"github.com/crewdesk/crewdesk/internal/issue"
	"github.com/crewdesk/crewdesk/internal/observability"
	"github.com/crewdesk/crewdesk/internal/order"
	"github.com/crewdesk/crewdesk/internal/project"
	"github.com/crewdesk/crewdesk/internal/rbac"
	"github.com/crewdesk/crewdesk/internal/roles"
	"github.com/crewdesk/crewdesk/internal/universal"
	"github.com/crewdesk/crewdesk/internal/users"
	"github.com/crewdesk/crewdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config
	Guard  auth.Guard

	AuthHandler      *auth.Handler
	CompanyHandler   *company.Handler
	ProjectHandler   *project.Handler
	IssueHandler     *issue.Handler
	OrderHandler     *order.Handler
	UsersHandler     *users.Handler
	RolesHandler     *roles.Handler
	UniversalHandler *universal.Handler
	JobsHandler      *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with crewdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/companies", params.CompanyHandler.MountRoutes)
		r.Route("/projects", params.ProjectHandler.MountRoutes)
		r.Route("/issues", params.IssueHandler.MountRoutes)
		r.Route("/orders", params.OrderHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/roles", params.RolesHandler.MountRoleRoutes)
		r.Route("/permissions", params.RolesHandler.MountPermissionRoutes)
		r.Route("/universal", params.UniversalHandler.MountRoutes)

		if params.JobsHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.Guard.Protect(&rbac.AccessRequirement{
					Roles: []string{rbac.RoleSuperAdmin, rbac.RoleAdmin},
				}))
				params.JobsHandler.MountRoutes(r)
			})
		}
	})

	// Stored files are served to authenticated users only.
	if params.Config != nil {
		uploadDir := filepath.Join(params.Config.UploadRoot, "uploads")
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir)))
		r.Route("/uploads", func(r chi.Router) {
			r.Use(params.Guard.Protect(nil))
			r.Handle("/*", fileServer)
		})
	}

	return r
}
