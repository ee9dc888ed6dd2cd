// internal/app/bootstrap/services.go
package bootstrap

import (
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	buildingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/buildings"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/queries/billingsource"
	subscriptionstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/subscriptions"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/ratelimit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/subscriptioncheck"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/billing"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/circulation"
	"go.uber.org/zap"
)

// Services are the domain services shared by the web handlers and the
// admin CLI, built once over DBDeps.
type Services struct {
	Circulation     *circulation.Calculator
	Billing         *billing.Service
	Subscriptions   *subscriptioncheck.Checker
	AuditLog        *auditlog.Logger
	GenerateLimiter *ratelimit.Limiter
	AdminLimiter    *ratelimit.Limiter
}

// BillingConfig maps app config onto billing constants.
func BillingConfig(appCfg AppConfig) billing.Config {
	cfg := billing.DefaultConfig()
	if appCfg.InvoiceDueDays > 0 {
		cfg.DueDays = appCfg.InvoiceDueDays
	}
	if appCfg.ReadingWindowDays > 0 {
		cfg.ReadingWindow = time.Duration(appCfg.ReadingWindowDays) * 24 * time.Hour
	}
	return cfg
}

// CirculationConfig maps app config onto the circulation calculator.
func CirculationConfig(appCfg AppConfig) circulation.Config {
	cfg := circulation.DefaultConfig()
	if appCfg.CirculationRate.IsPositive() {
		cfg.Rate = appCfg.CirculationRate
	}
	if len(appCfg.CirculationSummerMonths) > 0 {
		cfg.SummerMonths = appCfg.CirculationSummerMonths
	}
	if appCfg.CirculationMaxApartments > 0 {
		cfg.MaxApartments = appCfg.CirculationMaxApartments
	}
	return cfg
}

// NewServices wires the domain services over deps.
func NewServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *Services {
	db := deps.MongoDatabase

	circ := circulation.New(CirculationConfig(appCfg), buildingstore.New(db), deps.Cache, logger.Named("circulation"))
	svc := billingsource.NewService(db, BillingConfig(appCfg), circ, logger.Named("billing"))
	checker := subscriptioncheck.New(subscriptionstore.New(db), deps.Cache, appCfg.SubscriptionCacheTTL, logger)

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:    appCfg.AuditLogAuth,
		Admin:   appCfg.AuditLogAdmin,
		Billing: appCfg.AuditLogBilling,
	})

	return &Services{
		Circulation:     circ,
		Billing:         svc,
		Subscriptions:   checker,
		AuditLog:        auditLog,
		GenerateLimiter: ratelimit.New(appCfg.GenerateRateLimit, time.Minute),
		AdminLimiter:    ratelimit.New(appCfg.AdminRateLimit, time.Minute),
	}
}
