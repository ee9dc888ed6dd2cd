// Package language switches the UI locale.
package language

import (
	"context"
	"net/http"

	userstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/users"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/authz"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{Users: userstore.New(db), SessionMgr: sm, Log: logger}
}

// Switch handles GET /language/{locale}. The choice is kept in the session
// and, for signed-in users, saved as their preference.
func (h *Handler) Switch(w http.ResponseWriter, r *http.Request) {
	locale := chi.URLParam(r, "locale")
	back := urlutil.SafeReturn(query.Get(r, "return"), "", "/")
	if !i18n.IsSupported(locale) {
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	if err := h.SessionMgr.SetLocale(w, r, locale); err != nil {
		h.Log.Warn("store locale in session failed", zap.Error(err))
	}

	if _, _, uid, ok := authz.UserCtx(r); ok {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()
		if err := h.Users.SetLocale(ctx, uid, locale); err != nil {
			h.Log.Warn("save locale preference failed", zap.String("user_id", uid.Hex()), zap.Error(err))
		}
	}

	http.Redirect(w, r, back, http.StatusSeeOther)
}

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{locale}", h.Switch)
	return r
}
