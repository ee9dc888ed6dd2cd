// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/exportstore"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the app's environment variables.
const EnvPrefix = "RENTCOUNTER"

// appConfigKeys defines the configuration keys for Rent Counter.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: RENTCOUNTER_MONGO_URI, RENTCOUNTER_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "rent_counter", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "rentcounter-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "168h", Desc: "Session lifetime (e.g., 24h, 168h)"},

	{Name: "default_locale", Default: "en", Desc: "Fallback UI locale: en, lt or ru"},

	// Billing
	{Name: "invoice_due_days", Default: 14, Desc: "Days from invoice generation to due date"},
	{Name: "reading_window_days", Default: 7, Desc: "Days around a billing period searched for meter readings"},
	{Name: "generate_rate_limit", Default: 10, Desc: "Invoice generations per user per minute"},
	{Name: "admin_rate_limit", Default: 120, Desc: "Mutating requests per user per minute"},

	// Caches
	{Name: "stats_cache_ttl", Default: "5m", Desc: "Dashboard statistics cache lifetime"},
	{Name: "stats_cache_max_items", Default: 10000, Desc: "Maximum cached entries"},
	{Name: "subscription_cache_ttl", Default: "5m", Desc: "Subscription status cache lifetime"},

	// Report export storage
	{Name: "storage_type", Default: "local", Desc: "Report export backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./exports", Desc: "Directory for locally stored report exports"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "exports/", Desc: "S3 key prefix"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_billing", Default: "all", Desc: "Billing event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL used for OAuth callbacks"},

	// SuperAdmin bootstrap
	{Name: "superadmin_email", Default: "", Desc: "Email of the superadmin user (created on startup when missing)"},
	{Name: "superadmin_password", Default: "", Desc: "Initial password for a newly created superadmin"},

	// Hot-water circulation
	{Name: "circulation_rate", Default: "15", Desc: "Circulation fee per apartment per month in EUR"},
	{Name: "circulation_summer_months", Default: "5,6,7,8,9", Desc: "Comma-separated months billed at the summer average"},
	{Name: "circulation_max_apartments", Default: 1000, Desc: "Largest building the circulation fee is priced for"},
}

// values is the typed view over loaded config values shared by the
// WAFFLE loader and LoadFile.
type values interface {
	String(key string) string
	Int(key string) int
	Bool(key string) bool
	Duration(key string, def time.Duration) time.Duration
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, RENTCOUNTER_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}
	appCfg, err := buildAppConfig(appValues)
	if err != nil {
		return nil, AppConfig{}, err
	}
	return coreCfg, appCfg, nil
}

// LoadFile reads app config for the admin CLI from a YAML file of the same
// keys. RENTCOUNTER_* environment variables override the file and
// defaults fill the rest. An empty path uses defaults and environment only.
func LoadFile(path string) (AppConfig, error) {
	fv := fileValues{}
	for _, k := range appConfigKeys {
		fv[k.Name] = k.Default
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var fromFile map[string]any
		if err := yaml.Unmarshal(raw, &fromFile); err != nil {
			return AppConfig{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		for k, v := range fromFile {
			fv[strings.ToLower(k)] = v
		}
	}
	for _, k := range appConfigKeys {
		if v, ok := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(k.Name)); ok {
			fv[k.Name] = v
		}
	}
	return buildAppConfig(fv)
}

func buildAppConfig(v values) (AppConfig, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(v.String("circulation_rate")))
	if err != nil {
		return AppConfig{}, fmt.Errorf("circulation_rate: %w", err)
	}
	summer, err := parseMonths(v.String("circulation_summer_months"))
	if err != nil {
		return AppConfig{}, fmt.Errorf("circulation_summer_months: %w", err)
	}

	return AppConfig{
		MongoURI:         v.String("mongo_uri"),
		MongoDatabase:    v.String("mongo_database"),
		MongoMaxPoolSize: uint64(max(v.Int("mongo_max_pool_size"), 0)),
		MongoMinPoolSize: uint64(max(v.Int("mongo_min_pool_size"), 0)),
		SessionKey:       v.String("session_key"),
		SessionName:      v.String("session_name"),
		SessionDomain:    v.String("session_domain"),
		SessionMaxAge:    v.Duration("session_max_age", 7*24*time.Hour),

		DefaultLocale: strings.ToLower(strings.TrimSpace(v.String("default_locale"))),

		InvoiceDueDays:    v.Int("invoice_due_days"),
		ReadingWindowDays: v.Int("reading_window_days"),
		GenerateRateLimit: v.Int("generate_rate_limit"),
		AdminRateLimit:    v.Int("admin_rate_limit"),

		StatsCacheTTL:        v.Duration("stats_cache_ttl", 5*time.Minute),
		StatsCacheMaxItems:   int64(v.Int("stats_cache_max_items")),
		SubscriptionCacheTTL: v.Duration("subscription_cache_ttl", 5*time.Minute),

		StorageType:      strings.ToLower(strings.TrimSpace(v.String("storage_type"))),
		StorageLocalPath: v.String("storage_local_path"),
		StorageS3Region:  v.String("storage_s3_region"),
		StorageS3Bucket:  v.String("storage_s3_bucket"),
		StorageS3Prefix:  v.String("storage_s3_prefix"),

		AuditLogAuth:    v.String("audit_log_auth"),
		AuditLogAdmin:   v.String("audit_log_admin"),
		AuditLogBilling: v.String("audit_log_billing"),

		GoogleClientID:     v.String("google_client_id"),
		GoogleClientSecret: v.String("google_client_secret"),

		BaseURL: strings.TrimRight(v.String("base_url"), "/"),

		SuperAdminEmail:    strings.TrimSpace(v.String("superadmin_email")),
		SuperAdminPassword: v.String("superadmin_password"),

		CirculationRate:          rate,
		CirculationSummerMonths:  summer,
		CirculationMaxApartments: v.Int("circulation_max_apartments"),
	}, nil
}

// parseMonths reads "5,6,7" into months. Blank means none configured.
func parseMonths(s string) ([]time.Month, error) {
	var out []time.Month
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > 12 {
			return nil, fmt.Errorf("invalid month %q", part)
		}
		out = append(out, time.Month(n))
	}
	return out, nil
}

// ValidateConfig performs app-specific config validation.
//
// It runs before any connection is made so that a bad URI, an unknown
// locale or an incomplete storage setup aborts startup early.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(appCfg)
}

func validateApp(appCfg AppConfig) error {
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}
	if !i18n.IsSupported(appCfg.DefaultLocale) {
		return fmt.Errorf("default_locale %q is not one of %s", appCfg.DefaultLocale, strings.Join(i18n.Supported, ", "))
	}

	switch appCfg.StorageType {
	case exportstore.TypeLocal:
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_type local requires storage_local_path")
		}
	case exportstore.TypeS3:
		if appCfg.StorageS3Bucket == "" {
			return fmt.Errorf("storage_s3_bucket: %w", exportstore.ErrNoBucket)
		}
	default:
		return fmt.Errorf("storage_type %q must be 'local' or 's3'", appCfg.StorageType)
	}

	positive := map[string]int{
		"invoice_due_days":           appCfg.InvoiceDueDays,
		"reading_window_days":        appCfg.ReadingWindowDays,
		"generate_rate_limit":        appCfg.GenerateRateLimit,
		"admin_rate_limit":           appCfg.AdminRateLimit,
		"stats_cache_max_items":      int(appCfg.StatsCacheMaxItems),
		"circulation_max_apartments": appCfg.CirculationMaxApartments,
	}
	for name, n := range positive {
		if n <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, n)
		}
	}
	if !appCfg.CirculationRate.IsPositive() {
		return fmt.Errorf("circulation_rate must be positive")
	}

	for name, mode := range map[string]string{
		"audit_log_auth":    appCfg.AuditLogAuth,
		"audit_log_admin":   appCfg.AuditLogAdmin,
		"audit_log_billing": appCfg.AuditLogBilling,
	} {
		switch mode {
		case "", "all", "db", "log", "off":
		default:
			return fmt.Errorf("%s %q must be all, db, log or off", name, mode)
		}
	}
	return nil
}

// fileValues backs LoadFile. Values keep the YAML types; env overrides
// arrive as strings.
type fileValues map[string]any

func (f fileValues) String(key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (f fileValues) Int(key string) int {
	switch v := f[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	}
	return 0
}

func (f fileValues) Bool(key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return false
}

func (f fileValues) Duration(key string, def time.Duration) time.Duration {
	s := strings.TrimSpace(f.String(key))
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
