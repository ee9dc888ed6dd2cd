// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditlogfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/auditlog"
	authgooglefeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/authgoogle"
	buildingsfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/buildings"
	dashboardfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/dashboard"
	errorsfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	healthfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/health"
	homefeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/home"
	invoicesfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/invoices"
	languagefeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/language"
	loginfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/login"
	logoutfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/logout"
	metersfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/meters"
	organizationsfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/organizations"
	profilefeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/profile"
	propertiesfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/properties"
	providersfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/providers"
	readingsfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/readings"
	reportsfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/reports"
	subscriptionsfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/subscriptions"
	tariffsfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/tariffs"
	tenantsfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/tenants"
	usersfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/users"
	userstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/users"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Version is reported by /health. Set with -ldflags at build time.
var Version = "dev"

// BuildHandler constructs the root HTTP handler.
//
// WAFFLE calls this after configuration, DB connections, schema setup and
// Startup have completed. Every request passes, in order, through session
// user loading, locale selection, flash loading, CSRF checking, the
// subscription read-only gate and the per-user limit on mutations before
// reaching a feature router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fresh user data on each request: role changes and disabled accounts
	// take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	db := deps.MongoDatabase
	svc := NewServices(appCfg, deps, logger)
	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()

	r.Use(sessionMgr.LoadSessionUser)
	r.Use(i18n.Middleware(i18n.Shared(), sessionMgr.SessionLocale, userLocale))
	r.Use(sessionMgr.LoadFlashes)
	r.Use(sessionMgr.CSRF)
	r.Use(svc.Subscriptions.RequireActiveSubscription(sessionMgr))
	r.Use(limitMutations(svc.AdminLimiter))

	// Health check endpoint for load balancers and orchestrators
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, Version, logger)))

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Public pages
	r.Mount("/", homefeature.Routes(homefeature.NewHandler(logger)))
	r.Mount("/language", languagefeature.Routes(languagefeature.NewHandler(db, sessionMgr, logger)))

	// Authentication
	loginHandler := loginfeature.NewHandler(db, sessionMgr, errLog, svc.AuditLog, nil, appCfg.GoogleEnabled(), logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	if appCfg.GoogleEnabled() {
		googleHandler := authgooglefeature.NewHandler(db, sessionMgr, svc.AuditLog,
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
	}

	logoutHandler := logoutfeature.NewHandler(sessionMgr, svc.AuditLog, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)
	r.NotFound(errorsHandler.NotFound)

	// Role-based dashboards
	dashboardHandler := dashboardfeature.NewHandler(db, deps.Cache, appCfg.StatsCacheTTL, errLog, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	profileHandler := profilefeature.NewHandler(db, sessionMgr, errLog, svc.AuditLog, logger)
	r.Mount("/profile", profilefeature.Routes(profileHandler, sessionMgr))

	// Platform administration (superadmin)
	orgHandler := organizationsfeature.NewHandler(db, sessionMgr, svc.Subscriptions, errLog, svc.AuditLog, logger)
	r.Mount("/organizations", organizationsfeature.Routes(orgHandler, sessionMgr))

	subsHandler := subscriptionsfeature.NewHandler(db, sessionMgr, svc.Subscriptions, errLog, svc.AuditLog, logger)
	r.Mount("/subscriptions", subscriptionsfeature.Routes(subsHandler, sessionMgr))

	usersHandler := usersfeature.NewHandler(db, sessionMgr, errLog, svc.AuditLog, logger)
	r.Mount("/users", usersfeature.Routes(usersHandler, sessionMgr))

	// Property portfolio
	buildingsHandler := buildingsfeature.NewHandler(db, sessionMgr, svc.Circulation, errLog, svc.AuditLog, logger)
	r.Mount("/buildings", buildingsfeature.Routes(buildingsHandler, sessionMgr))

	propertiesHandler := propertiesfeature.NewHandler(db, sessionMgr, errLog, svc.AuditLog, logger)
	r.Mount("/properties", propertiesfeature.Routes(propertiesHandler, sessionMgr))

	tenantsHandler := tenantsfeature.NewHandler(db, sessionMgr, errLog, svc.AuditLog, logger)
	r.Mount("/tenants", tenantsfeature.Routes(tenantsHandler, sessionMgr))

	// Providers and tariffs
	providersHandler := providersfeature.NewHandler(db, sessionMgr, errLog, svc.AuditLog, logger)
	r.Mount("/providers", providersfeature.Routes(providersHandler, sessionMgr))

	tariffsHandler := tariffsfeature.NewHandler(db, sessionMgr, errLog, svc.AuditLog, logger)
	r.Mount("/tariffs", tariffsfeature.Routes(tariffsHandler, sessionMgr))

	// Metering and billing
	metersHandler := metersfeature.NewHandler(db, sessionMgr, errLog, svc.AuditLog, logger)
	r.Mount("/meters", metersfeature.Routes(metersHandler, sessionMgr))

	readingsHandler := readingsfeature.NewHandler(db, sessionMgr, svc.Billing, errLog, svc.AuditLog, logger)
	r.Mount("/readings", readingsfeature.Routes(readingsHandler, sessionMgr))

	invoicesHandler := invoicesfeature.NewHandler(db, sessionMgr, svc.Billing, svc.GenerateLimiter, errLog, svc.AuditLog, logger)
	r.Mount("/invoices", invoicesfeature.Routes(invoicesHandler, sessionMgr))

	// Reporting and audit
	reportsHandler := reportsfeature.NewHandler(db, sessionMgr, deps.Exports, errLog, svc.AuditLog, logger)
	r.Mount("/reports", reportsfeature.Routes(reportsHandler, sessionMgr))

	auditHandler := auditlogfeature.NewHandler(db, errLog, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	return r, nil
}

// userLocale is the signed-in user's saved language.
func userLocale(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return u.Locale
	}
	return ""
}

// limitMutations counts state-changing requests per user (per client IP
// when anonymous) and answers 429 past the limit. Reads are never limited.
func limitMutations(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	limited := ratelimit.Middleware(l, mutationKey, tooManyRequests)
	return func(next http.Handler) http.Handler {
		guarded := limited(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				guarded.ServeHTTP(w, r)
			}
		})
	}
}

func mutationKey(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return "user:" + u.ID
	}
	return "ip:" + ratelimit.ClientIP(r)
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	errorsfeature.Render(w, r, http.StatusTooManyRequests, "errors.too_many_title", "errors.too_many", "/dashboard")
}
