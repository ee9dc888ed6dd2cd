package reports_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/reports"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/exportstore"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, db *mongo.Database, st exportstore.Store) *reports.Handler {
	t.Helper()
	return reports.NewHandler(db, testutil.SessionManager(t), st, uierrors.NewErrorLogger(zap.NewNop()), nil, zap.NewNop())
}

func get(fn http.HandlerFunc, target string, u *auth.SessionUser) *httptest.ResponseRecorder {
	req := auth.WithTestUser(httptest.NewRequest(http.MethodGet, target, nil), u)
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestRevenue_ScopedToOrganization(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProperty(ctx, org.ID, nil, "Pylimo g. 3")
	tenant := fx.CreateTenant(ctx, org.ID, p.ID, "Rasa")
	fx.CreateInvoice(ctx, org.ID, tenant.ID, p.ID, "INV-1", models.InvoicePaid, decimal.NewFromInt(30))
	fx.CreateInvoice(ctx, org.ID, tenant.ID, p.ID, "INV-2", models.InvoiceFinalized, decimal.NewFromInt(20))

	other := fx.CreateOrganization(ctx, "Other")
	op := fx.CreateProperty(ctx, other.ID, nil, "Kita g. 1")
	ot := fx.CreateTenant(ctx, other.ID, op.ID, "Petras")
	fx.CreateInvoice(ctx, other.ID, ot.ID, op.ID, "INV-9", models.InvoicePaid, decimal.NewFromInt(100))

	h := newHandler(t, db, nil)

	rec := get(h.ServeRevenue, "/reports/revenue", testutil.Manager(org.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "€50.00")
	assert.Contains(t, body, `data-status="paid"`)
	assert.Contains(t, body, `data-status="finalized"`)
	assert.NotContains(t, body, "€150.00")

	rec = get(h.ServeRevenue, "/reports/revenue", testutil.SuperAdmin())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "€150.00")

	rec = get(h.ServeRevenue, "/reports/revenue?org="+other.ID.Hex(), testutil.SuperAdmin())
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "€100.00")
	assert.NotContains(t, body, "€50.00")
}

func TestConsumption(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProperty(ctx, org.ID, nil, "Pylimo g. 3")
	m := fx.CreateMeter(ctx, org.ID, p.ID, "EL-1", models.MeterElectricity, false)
	fx.CreateReading(ctx, m, day(2024, 3, 1), decimal.NewFromInt(1000))
	fx.CreateReading(ctx, m, day(2024, 3, 31), decimal.NewFromInt(1150))

	rec := get(newHandler(t, db, nil).ServeConsumption, "/reports/consumption?from=2024-03-01&to=2024-03-31", testutil.Admin(org.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-row="electricity"`)
	assert.Contains(t, body, "150.00")
	assert.Contains(t, body, `value="2024-03-01"`)
}

func TestConsumption_EmptyState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")

	rec := get(newHandler(t, db, nil).ServeConsumption, "/reports/consumption", testutil.Manager(org.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data-empty-state")
}

func TestCompliance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProperty(ctx, org.ID, nil, "Pylimo g. 3")
	read := fx.CreateMeter(ctx, org.ID, p.ID, "EL-1", models.MeterElectricity, false)
	unread := fx.CreateMeter(ctx, org.ID, p.ID, "WC-1", models.MeterWaterCold, false)
	fx.CreateReading(ctx, read, day(2024, 3, 15), decimal.NewFromInt(10))

	rec := get(newHandler(t, db, nil).ServeCompliance, "/reports/compliance?from=2024-03-01&to=2024-03-31", testutil.Manager(org.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "50.0%")
	assert.Contains(t, body, `data-row="`+unread.ID.Hex()+`" data-missing`)
	assert.NotContains(t, body, `data-row="`+read.ID.Hex()+`"`)
	assert.Contains(t, body, "Pylimo g. 3")
}

func TestInvalidPeriod(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	h := newHandler(t, db, nil)

	rec := get(h.ServeRevenue, "/reports/revenue?from=2024-05-10&to=2024-05-01", testutil.Manager(org.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data-form-error")

	rec = get(h.ExportRevenue, "/reports/revenue.csv?from=nope&to=2024-05-01", testutil.Manager(org.ID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTenantForbidden(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProperty(ctx, org.ID, nil, "Pylimo g. 3")
	tenant := fx.CreateTenant(ctx, org.ID, p.ID, "Rasa")

	h := newHandler(t, db, nil)
	u := testutil.TenantUser(org.ID, tenant.ID, p.ID)
	assert.Equal(t, http.StatusForbidden, get(h.ServeRevenue, "/reports/revenue", u).Code)
	assert.Equal(t, http.StatusForbidden, get(h.ExportRevenue, "/reports/revenue.csv", u).Code)
}

func TestExport_WritesStorageAndDownload(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProperty(ctx, org.ID, nil, "Pylimo g. 3")
	tenant := fx.CreateTenant(ctx, org.ID, p.ID, "Rasa")
	fx.CreateInvoice(ctx, org.ID, tenant.ID, p.ID, "INV-1", models.InvoicePaid, decimal.NewFromInt(30))

	dir := t.TempDir()
	rec := get(newHandler(t, db, exportstore.NewLocal(dir)).ExportRevenue, "/reports/revenue.csv", testutil.Manager(org.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="revenue_`)
	body := rec.Body.String()
	assert.Contains(t, body, "paid,1,30.00")

	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, path)
		}
		return err
	})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0], filepath.Join("reports", org.ID.Hex()))
	stored, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, body, string(stored))
}

func TestExport_Compliance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProperty(ctx, org.ID, nil, "Pylimo g. 3")
	fx.CreateMeter(ctx, org.ID, p.ID, "WC-1", models.MeterWaterCold, false)

	rec := get(newHandler(t, db, nil).ExportCompliance, "/reports/compliance.csv?from=2024-03-01&to=2024-03-31", testutil.Manager(org.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "WC-1,water_cold,Pylimo g. 3,no")
}
