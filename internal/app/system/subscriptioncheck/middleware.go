package subscriptioncheck

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ctxKey struct{}

// WithStatus returns ctx carrying st.
func WithStatus(ctx context.Context, st Status) context.Context {
	return context.WithValue(ctx, ctxKey{}, st)
}

// FromContext returns the status stored by RequireActiveSubscription.
func FromContext(ctx context.Context) (Status, bool) {
	st, ok := ctx.Value(ctxKey{}).(Status)
	return st, ok
}

// ReadOnly reports whether the request runs in read-only mode.
func ReadOnly(r *http.Request) bool {
	st, ok := FromContext(r.Context())
	return ok && !st.Active()
}

func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

// accountPaths stay writable in read-only mode: signing out, switching
// language and editing one's own profile do not touch billing data.
var accountPaths = []string{"/login", "/logout", "/language", "/profile"}

func accountPath(p string) bool {
	for _, prefix := range accountPaths {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

// sameSiteReferer returns the referring path on this host, or fallback.
func sameSiteReferer(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Host != r.Host || ref.Path == "" || ref.Path[0] != '/' {
		return fallback
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}

// RequireActiveSubscription gates admin and manager requests on the
// organization's subscription. Without an active one, safe methods pass
// (the layout shows a banner) and mutations are redirected back with an
// error flash. Account pages (sign-out, language, profile) stay writable.
// Superadmins and tenants are not affected.
func (c *Checker) RequireActiveSubscription(sm *auth.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := auth.CurrentUser(r)
			if !ok || (u.Role != models.RoleAdmin && u.Role != models.RoleManager) {
				next.ServeHTTP(w, r)
				return
			}
			orgID, err := primitive.ObjectIDFromHex(u.OrganizationID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			st, err := c.Status(r.Context(), orgID)
			if err != nil {
				// Fail open: a lookup error must not lock staff out.
				c.log.Warn("subscription status lookup failed",
					zap.String("organization_id", u.OrganizationID), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			r = r.WithContext(WithStatus(r.Context(), st))

			if st.Active() || safeMethod(r.Method) || accountPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			c.log.Info("write blocked by subscription",
				zap.String("organization_id", u.OrganizationID),
				zap.String("state", st.State),
				zap.String("path", r.URL.Path))
			if sm != nil {
				sm.AddFlash(w, r, auth.FlashError, i18n.T(r.Context(), "subscription.read_only_"+st.State))
			}
			target := sameSiteReferer(r, "/dashboard")
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", target)
				w.WriteHeader(http.StatusForbidden)
				return
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
		})
	}
}

// Banner returns the localized warning for the layout, or "".
func Banner(ctx context.Context) string {
	st, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	switch {
	case st.State == StateMissing:
		return i18n.T(ctx, "subscription.banner_missing")
	case !st.Active():
		return i18n.T(ctx, "subscription.banner_expired")
	case st.ExpiringSoon():
		return i18n.T(ctx, "subscription.banner_expiring", st.DaysLeft)
	}
	return ""
}
