// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the dashboards, normally at "/dashboard". The index
// redirects by role; each role page is guarded by its role.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeDashboard)

		pr.With(sm.RequireRole(models.RoleSuperAdmin)).Get("/superadmin", h.ServeSuperAdmin)
		pr.With(sm.RequireRole(models.RoleAdmin)).Get("/admin", h.ServeAdmin)
		pr.With(sm.RequireRole(models.RoleManager)).Get("/manager", h.ServeManager)
		pr.With(sm.RequireRole(models.RoleTenant)).Get("/tenant", h.ServeTenant)
	})

	return r
}
