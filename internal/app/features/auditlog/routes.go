// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit log under /audit.
//
// Superadmins see every organization; admins see their own.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(models.RoleSuperAdmin, models.RoleAdmin))

		pr.Get("/", h.ServeList)
	})

	return r
}
