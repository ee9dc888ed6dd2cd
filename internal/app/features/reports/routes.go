// internal/app/features/reports/routes.go
package reports

import (
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the reports under /reports. Tenants have no reports.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager))

		pr.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/reports/consumption", http.StatusSeeOther)
		})
		pr.Get("/consumption", h.ServeConsumption)
		pr.Get("/revenue", h.ServeRevenue)
		pr.Get("/compliance", h.ServeCompliance)
		pr.Get("/consumption.csv", h.ExportConsumption)
		pr.Get("/revenue.csv", h.ExportRevenue)
		pr.Get("/compliance.csv", h.ExportCompliance)
	})

	return r
}
