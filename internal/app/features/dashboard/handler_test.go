package dashboard_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/dashboard"
	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/cache"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, db *mongo.Database, c *cache.Cache) *dashboard.Handler {
	t.Helper()
	return dashboard.NewHandler(db, c, time.Minute, uierrors.NewErrorLogger(zap.NewNop()), zap.NewNop())
}

func serve(fn http.HandlerFunc, u *auth.SessionUser) *httptest.ResponseRecorder {
	req := auth.WithTestUser(httptest.NewRequest("GET", "/dashboard", nil), u)
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestServeDashboard_RedirectsByRole(t *testing.T) {
	h := newHandler(t, testutil.OfflineDB(t), nil)
	org := primitive.NewObjectID()

	cases := []struct {
		user *auth.SessionUser
		want string
	}{
		{testutil.SuperAdmin(), "/dashboard/superadmin"},
		{testutil.Admin(org), "/dashboard/admin"},
		{testutil.Manager(org), "/dashboard/manager"},
		{testutil.TenantUser(org, primitive.NewObjectID(), primitive.NewObjectID()), "/dashboard/tenant"},
	}
	for _, tc := range cases {
		rec := serve(h.ServeDashboard, tc.user)
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("%s: status = %d", tc.user.Role, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != tc.want {
			t.Errorf("%s: Location = %q, want %q", tc.user.Role, loc, tc.want)
		}
	}
}

func TestServeDashboard_Anonymous(t *testing.T) {
	h := newHandler(t, testutil.OfflineDB(t), nil)
	rec := httptest.NewRecorder()
	h.ServeDashboard(rec, httptest.NewRequest("GET", "/dashboard", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("got %d %q, want redirect to /login", rec.Code, rec.Header().Get("Location"))
	}
}

func TestServeSuperAdmin_EmptyPlatform(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, nil)

	rec := serve(h.ServeSuperAdmin, testutil.SuperAdmin())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `data-stat="organizations"`) {
		t.Error("expected organization stat card")
	}
	if !strings.Contains(body, "data-empty-state") || !strings.Contains(body, `href="/organizations/new" data-empty-action`) {
		t.Error("empty platform should offer creating an organization")
	}
}

func TestServeAdmin_RecentInvoicesInOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "Admin Org")
	p := fx.CreateProperty(ctx, org.ID, nil, "Vilniaus g. 3")
	tn := fx.CreateTenant(ctx, org.ID, p.ID, "Ona")
	first := fx.CreateInvoice(ctx, org.ID, tn.ID, p.ID, "INV-A", models.InvoiceDraft, decimal.RequireFromString("12.5"))
	time.Sleep(5 * time.Millisecond)
	second := fx.CreateInvoice(ctx, org.ID, tn.ID, p.ID, "INV-B", models.InvoiceFinalized, decimal.NewFromInt(40))

	c, err := cache.New(100)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	defer c.Close()
	h := newHandler(t, db, c)

	rec := serve(h.ServeAdmin, testutil.Admin(org.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()

	// Newest first.
	iB := strings.Index(body, `data-row="`+second.ID.Hex()+`"`)
	iA := strings.Index(body, `data-row="`+first.ID.Hex()+`"`)
	if iA < 0 || iB < 0 || iB > iA {
		t.Errorf("expected both invoices, newest first (A=%d, B=%d)", iA, iB)
	}
	if got := strings.Count(body, `data-action="view"`); got != 2 {
		t.Errorf("view links = %d, want 2", got)
	}
	if !strings.Contains(body, "€12.50") {
		t.Error("totals should be formatted with two decimals")
	}

	key := "dashboard:org:" + org.ID.Hex() + ":" + time.Now().UTC().Format("2006-01")
	if _, ok := c.Get(key); !ok {
		t.Error("organization counts should be cached")
	}
}

func TestServeManager_EmptyInvoicesOffersGenerate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "Manager Org")
	p := fx.CreateProperty(ctx, org.ID, nil, "Kauno g. 7")
	fx.CreateMeter(ctx, org.ID, p.ID, "EL-9", models.MeterElectricity, false)

	h := newHandler(t, db, nil)
	rec := serve(h.ServeManager, testutil.Manager(org.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `data-stat="pending_readings"`) {
		t.Error("manager dashboard should show pending readings")
	}
	if !strings.Contains(body, `href="/invoices/generate" data-empty-action`) {
		t.Error("managers may generate invoices, so the empty state links to it")
	}
}

func TestServeTenant(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "Tenant Org")
	p := fx.CreateProperty(ctx, org.ID, nil, "Pilies g. 1")
	tn := fx.CreateTenant(ctx, org.ID, p.ID, "Petras")
	m := fx.CreateMeter(ctx, org.ID, p.ID, "WC-1", models.MeterWaterCold, false)
	fx.CreateReading(ctx, m, time.Now().UTC().AddDate(0, 0, -3), decimal.RequireFromString("42.5"))
	fx.CreateInvoice(ctx, org.ID, tn.ID, p.ID, "INV-T1", models.InvoiceFinalized, decimal.RequireFromString("30.10"))
	fx.CreateInvoice(ctx, org.ID, tn.ID, p.ID, "INV-T2", models.InvoicePaid, decimal.NewFromInt(99))

	other := fx.CreateTenant(ctx, org.ID, p.ID, "Someone Else")
	fx.CreateInvoice(ctx, org.ID, other.ID, p.ID, "INV-X", models.InvoiceFinalized, decimal.NewFromInt(500))

	h := newHandler(t, db, nil)
	rec := serve(h.ServeTenant, testutil.TenantUser(org.ID, tn.ID, p.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Pilies g. 1") || !strings.Contains(body, "WC-1") {
		t.Error("expected the tenant's property and meter")
	}
	if !strings.Contains(body, "42.50") {
		t.Error("expected the latest reading value")
	}
	if !strings.Contains(body, "€30.10") {
		t.Error("unpaid total should only include the tenant's finalized invoices")
	}
	if strings.Contains(body, "INV-X") {
		t.Error("another occupant's invoice leaked into the dashboard")
	}
}

func TestServeTenant_NoProperty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, nil)

	u := testutil.TenantUser(primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID())
	u.PropertyID = ""
	rec := serve(h.ServeTenant, u)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "data-empty-state") {
		t.Error("expected empty state for missing property")
	}
	if strings.Contains(body, "data-empty-action") {
		t.Error("tenants cannot create anything, so no call to action")
	}
}
