// internal/app/features/invoices/routes.go
package invoices

import (
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the invoice routes under /invoices. The same paths serve
// every role; records are filtered and gated per user.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeList)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager))

		pr.Get("/generate", h.ServeGenerate)
		pr.Post("/generate", h.HandleGenerate)
		pr.Post("/{id}/finalize", h.HandleFinalize)
		pr.Post("/{id}/paid", h.HandleMarkPaid)
		pr.Post("/{id}/recalculate", h.HandleRecalculate)
		pr.Post("/{id}/delete", h.HandleDelete)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/{id}", h.ServeView)
	})

	return r
}
