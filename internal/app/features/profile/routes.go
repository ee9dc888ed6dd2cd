// internal/app/features/profile/routes.go
package profile

import (
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the profile page (typically at "/profile"). Every role has
// one.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeProfile)
	r.Post("/", h.HandleUpdate)
	r.Post("/password", h.HandleChangePassword)
	return r
}
