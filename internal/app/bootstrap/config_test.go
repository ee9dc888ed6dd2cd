package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/exportstore"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/ratelimit"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_DefaultsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rentcounter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mongo_database: rent_test
invoice_due_days: 21
storage_type: s3
storage_s3_bucket: reports-bucket
circulation_summer_months: "6,7,8"
stats_cache_ttl: 90s
`), 0o600))
	t.Setenv("RENTCOUNTER_DEFAULT_LOCALE", "lt")
	t.Setenv("RENTCOUNTER_GENERATE_RATE_LIMIT", "3")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "rent_test", cfg.MongoDatabase)
	assert.Equal(t, 21, cfg.InvoiceDueDays)
	assert.Equal(t, 7, cfg.ReadingWindowDays)
	assert.Equal(t, "s3", cfg.StorageType)
	assert.Equal(t, "reports-bucket", cfg.StorageS3Bucket)
	assert.Equal(t, []time.Month{time.June, time.July, time.August}, cfg.CirculationSummerMonths)
	assert.Equal(t, 90*time.Second, cfg.StatsCacheTTL)
	assert.Equal(t, "lt", cfg.DefaultLocale)
	assert.Equal(t, 3, cfg.GenerateRateLimit)
	assert.True(t, cfg.CirculationRate.Equal(decimal.NewFromInt(15)))
	assert.NoError(t, validateApp(cfg))
}

func TestLoadFile_RejectsBadMonths(t *testing.T) {
	t.Setenv("RENTCOUNTER_CIRCULATION_SUMMER_MONTHS", "5,13")
	_, err := LoadFile("")
	require.Error(t, err)
}

func TestValidateApp(t *testing.T) {
	base, err := LoadFile("")
	require.NoError(t, err)
	require.NoError(t, validateApp(base))

	cases := map[string]func(c *AppConfig){
		"unknown locale":    func(c *AppConfig) { c.DefaultLocale = "de" },
		"s3 without bucket": func(c *AppConfig) { c.StorageType = exportstore.TypeS3; c.StorageS3Bucket = "" },
		"unknown storage":   func(c *AppConfig) { c.StorageType = "ftp" },
		"zero due days":     func(c *AppConfig) { c.InvoiceDueDays = 0 },
		"negative limit":    func(c *AppConfig) { c.GenerateRateLimit = -1 },
		"zero rate":         func(c *AppConfig) { c.CirculationRate = decimal.Zero },
		"bad audit mode":    func(c *AppConfig) { c.AuditLogBilling = "sometimes" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			assert.Error(t, validateApp(c))
		})
	}

	c := base
	c.StorageType = exportstore.TypeS3
	c.StorageS3Bucket = ""
	assert.ErrorIs(t, validateApp(c), exportstore.ErrNoBucket)
}

func TestServiceConfigs(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)
	cfg.InvoiceDueDays = 30
	cfg.ReadingWindowDays = 3
	cfg.CirculationRate = decimal.NewFromInt(20)

	b := BillingConfig(cfg)
	assert.Equal(t, 30, b.DueDays)
	assert.Equal(t, 72*time.Hour, b.ReadingWindow)

	c := CirculationConfig(cfg)
	assert.True(t, c.Rate.Equal(decimal.NewFromInt(20)))
	assert.Len(t, c.SummerMonths, 5)
}

func TestLimitMutations(t *testing.T) {
	l := ratelimit.New(1, time.Minute)
	h := limitMutations(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	u := &auth.SessionUser{ID: "u1", Role: "admin"}

	do := func(method string) *httptest.ResponseRecorder {
		req := auth.WithTestUser(httptest.NewRequest(method, "/tenants", nil), u)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do(http.MethodPost).Code)
	blocked := do(http.MethodPost)
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	// Reads are never counted.
	assert.Equal(t, http.StatusNoContent, do(http.MethodGet).Code)
	assert.Equal(t, http.StatusNoContent, do(http.MethodGet).Code)
}
