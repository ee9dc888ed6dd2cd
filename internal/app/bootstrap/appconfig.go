// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/shopspring/decimal"
)

// AppConfig holds service-specific configuration for Rent Counter.
//
// Values come from flags, RENTCOUNTER_* environment variables, or config
// files (see LoadConfig). WAFFLE's CoreConfig covers ports, TLS, logging
// and CORS; everything about billing, storage and sign-in lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: rentcounter-session)
	SessionDomain string // Cookie domain (blank means current host)
	SessionMaxAge time.Duration

	DefaultLocale string // en, lt or ru

	// Billing
	InvoiceDueDays    int
	ReadingWindowDays int
	GenerateRateLimit int // invoice generations per user per minute
	AdminRateLimit    int // mutating requests per user per minute

	// Caches
	StatsCacheTTL        time.Duration
	StatsCacheMaxItems   int64
	SubscriptionCacheTTL time.Duration

	// Report export storage
	StorageType      string // "local" or "s3"
	StorageLocalPath string // Directory for local exports
	StorageS3Region  string
	StorageS3Bucket  string
	StorageS3Prefix  string // Key prefix (e.g., "exports/")

	// Audit logging destinations: all, db, log or off
	AuditLogAuth    string
	AuditLogAdmin   string
	AuditLogBilling string

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Base URL for OAuth callbacks
	BaseURL string // e.g., "https://rent.example.com" or "http://localhost:3000"

	// Superadmin bootstrap
	SuperAdminEmail    string
	SuperAdminPassword string

	// Hot-water circulation tuning
	CirculationRate          decimal.Decimal // EUR per apartment per month before factors
	CirculationSummerMonths  []time.Month
	CirculationMaxApartments int
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c AppConfig) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
