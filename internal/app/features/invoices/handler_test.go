package invoices_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/invoices"
	invoicestore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/invoices"
	readingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/readings"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/ratelimit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, db *mongo.Database) *invoices.Handler {
	t.Helper()
	return invoices.NewHandler(db, testutil.SessionManager(t), nil, nil, uierrors.NewErrorLogger(zap.NewNop()), nil, zap.NewNop())
}

func get(fn http.HandlerFunc, target string, u *auth.SessionUser, id string) *httptest.ResponseRecorder {
	req := auth.WithTestUser(httptest.NewRequest(http.MethodGet, target, nil), u)
	if id != "" {
		req = testutil.WithChiURLParam(req, "id", id)
	}
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func post(fn http.HandlerFunc, target string, u *auth.SessionUser, form url.Values, id string) *httptest.ResponseRecorder {
	req := auth.WithTestUser(testutil.FormRequest(target, form), u)
	if id != "" {
		req = testutil.WithChiURLParam(req, "id", id)
	}
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// billable sets up a tenant with one electricity meter read at the start
// and end of March 2024 (150 kWh at 0.20).
func billable(t *testing.T, fx *testutil.Fixtures) (models.Organization, models.Tenant) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Billing Org")
	p := fx.CreateProperty(ctx, org.ID, nil, "Gedimino pr. 1")
	tenant := fx.CreateTenant(ctx, org.ID, p.ID, "Jonas")
	provider := fx.CreateProvider(ctx, org.ID, "Ignitis", models.ServiceElectricity)
	fx.CreateFlatTariff(ctx, org.ID, provider.ID, "Standard", decimal.RequireFromString("0.20"), day(2023, 1, 1))
	m := fx.CreateMeter(ctx, org.ID, p.ID, "EL-1", models.MeterElectricity, false)
	fx.CreateReading(ctx, m, day(2024, 3, 1), decimal.NewFromInt(1000))
	fx.CreateReading(ctx, m, day(2024, 3, 31), decimal.NewFromInt(1150))
	return org, tenant
}

func TestServeList_EmptyState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProperty(ctx, org.ID, nil, "Home g. 1")
	tenant := fx.CreateTenant(ctx, org.ID, p.ID, "Ona")

	rec := get(newHandler(t, db).ServeList, "/invoices", testutil.Manager(org.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/invoices/generate" data-empty-action`)

	rec = get(newHandler(t, db).ServeList, "/invoices", testutil.TenantUser(org.ID, tenant.ID, p.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data-empty-state")
	assert.NotContains(t, rec.Body.String(), "data-empty-action")
}

func TestServeList_ScopesAndFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	other := fx.CreateOrganization(ctx, "Other")
	p := fx.CreateProperty(ctx, org.ID, nil, "Home g. 1")
	ona := fx.CreateTenant(ctx, org.ID, p.ID, "Ona")
	petras := fx.CreateTenant(ctx, org.ID, p.ID, "Petras")
	draft := fx.CreateInvoice(ctx, org.ID, ona.ID, p.ID, "INV-1", models.InvoiceDraft, decimal.RequireFromString("12.5"))
	paid := fx.CreateInvoice(ctx, org.ID, ona.ID, p.ID, "INV-2", models.InvoicePaid, decimal.NewFromInt(20))
	theirs := fx.CreateInvoice(ctx, org.ID, petras.ID, p.ID, "INV-3", models.InvoiceFinalized, decimal.NewFromInt(5))
	foreign := fx.CreateInvoice(ctx, other.ID, primitive.NewObjectID(), p.ID, "INV-4", models.InvoiceDraft, decimal.NewFromInt(7))
	h := newHandler(t, db)

	rec := get(h.ServeList, "/invoices", testutil.Manager(org.ID), "")
	body := rec.Body.String()
	for _, inv := range []models.Invoice{draft, paid, theirs} {
		assert.Contains(t, body, `data-row="`+inv.ID.Hex()+`"`)
	}
	assert.NotContains(t, body, foreign.ID.Hex())
	assert.Contains(t, body, "€12.50")
	assert.Contains(t, body, `action="/invoices/`+draft.ID.Hex()+`/delete"`)
	assert.NotContains(t, body, `action="/invoices/`+paid.ID.Hex()+`/delete"`)

	rec = get(h.ServeList, "/invoices?status=paid", testutil.Manager(org.ID), "")
	body = rec.Body.String()
	assert.Contains(t, body, paid.ID.Hex())
	assert.NotContains(t, body, draft.ID.Hex())

	rec = get(h.ServeList, "/invoices?tenant="+petras.ID.Hex(), testutil.TenantUser(org.ID, ona.ID, p.ID), "")
	body = rec.Body.String()
	assert.Contains(t, body, draft.ID.Hex())
	assert.NotContains(t, body, theirs.ID.Hex())
	assert.NotContains(t, body, "/delete")
}

func TestHandleGenerate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org, tenant := billable(t, fx)

	form := url.Values{"tenant_id": {tenant.ID.Hex()}, "period_start": {"2024-03-01"}, "period_end": {"2024-03-31"}}
	rec := post(newHandler(t, db).HandleGenerate, "/invoices/generate", testutil.Manager(org.ID), form, "")
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	invs, err := invoicestore.New(db).Find(ctx, bson.M{"tenant_id": tenant.ID})
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, "/invoices/"+invs[0].ID.Hex(), rec.Header().Get("Location"))
	assert.Equal(t, models.InvoiceDraft, invs[0].Status)
	assert.True(t, invs[0].TotalAmount.Equal(decimal.NewFromInt(30)), invs[0].TotalAmount.String())
}

func TestHandleGenerate_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	org, tenant := billable(t, fx)
	h := newHandler(t, db)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"missing tenant", url.Values{"period_start": {"2024-03-01"}, "period_end": {"2024-03-31"}}, `data-field-error="tenant_id"`},
		{"end before start", url.Values{"tenant_id": {tenant.ID.Hex()}, "period_start": {"2024-03-31"}, "period_end": {"2024-03-01"}}, `data-field-error="period_end"`},
		{"missing reading", url.Values{"tenant_id": {tenant.ID.Hex()}, "period_start": {"2024-05-01"}, "period_end": {"2024-05-31"}}, "data-form-error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(h.HandleGenerate, "/invoices/generate", testutil.Manager(org.ID), tt.form, "")
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestHandleGenerate_OtherOrgTenant(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, tenant := billable(t, fx)
	other := fx.CreateOrganization(ctx, "Other")

	form := url.Values{"tenant_id": {tenant.ID.Hex()}, "period_start": {"2024-03-01"}, "period_end": {"2024-03-31"}}
	rec := post(newHandler(t, db).HandleGenerate, "/invoices/generate", testutil.Manager(other.ID), form, "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-field-error="tenant_id"`)
}

func TestHandleGenerate_RateLimited(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	org, tenant := billable(t, fx)
	h := invoices.NewHandler(db, testutil.SessionManager(t), nil, ratelimit.New(1, time.Minute),
		uierrors.NewErrorLogger(zap.NewNop()), nil, zap.NewNop())
	u := testutil.Manager(org.ID)

	form := url.Values{"tenant_id": {tenant.ID.Hex()}, "period_start": {"2024-03-01"}, "period_end": {"2024-03-31"}}
	rec := post(h.HandleGenerate, "/invoices/generate", u, form, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = post(h.HandleGenerate, "/invoices/generate", u, form, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = post(h.HandleGenerate, "/invoices/generate", testutil.Manager(org.ID), form, "")
	assert.Equal(t, http.StatusSeeOther, rec.Code, "limits are per user")
}

func TestServeView_GatesActions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProperty(ctx, org.ID, nil, "Home g. 1")
	ona := fx.CreateTenant(ctx, org.ID, p.ID, "Ona")
	petras := fx.CreateTenant(ctx, org.ID, p.ID, "Petras")
	draft := fx.CreateInvoice(ctx, org.ID, ona.ID, p.ID, "INV-1", models.InvoiceDraft, decimal.NewFromInt(10))
	final := fx.CreateInvoice(ctx, org.ID, ona.ID, p.ID, "INV-2", models.InvoiceFinalized, decimal.NewFromInt(10))
	h := newHandler(t, db)

	rec := get(h.ServeView, "/invoices/x", testutil.Manager(org.ID), draft.ID.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "/finalize")
	assert.Contains(t, body, "/delete")
	assert.NotContains(t, body, "/paid")
	assert.Contains(t, body, "€10.00")

	rec = get(h.ServeView, "/invoices/x", testutil.Manager(org.ID), final.ID.Hex())
	body = rec.Body.String()
	assert.Contains(t, body, "/paid")
	assert.NotContains(t, body, "/finalize")
	assert.NotContains(t, body, "/delete")

	rec = get(h.ServeView, "/invoices/x", testutil.TenantUser(org.ID, ona.ID, p.ID), final.ID.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "/paid")

	rec = get(h.ServeView, "/invoices/x", testutil.TenantUser(org.ID, petras.ID, p.ID), final.ID.Hex())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProperty(ctx, org.ID, nil, "Home g. 1")
	ona := fx.CreateTenant(ctx, org.ID, p.ID, "Ona")
	inv := fx.CreateInvoice(ctx, org.ID, ona.ID, p.ID, "INV-1", models.InvoiceDraft, decimal.NewFromInt(10))
	h := newHandler(t, db)
	u := testutil.Admin(org.ID)
	store := invoicestore.New(db)

	rec := post(h.HandleMarkPaid, "/invoices/x/paid", u, url.Values{}, inv.ID.Hex())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	got, err := store.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceDraft, got.Status, "drafts cannot be paid")

	rec = post(h.HandleFinalize, "/invoices/x/finalize", u, url.Values{}, inv.ID.Hex())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	got, err = store.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceFinalized, got.Status)
	assert.NotNil(t, got.FinalizedAt)

	rec = post(h.HandleDelete, "/invoices/x/delete", u, url.Values{}, inv.ID.Hex())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, err = store.GetByID(ctx, inv.ID)
	require.NoError(t, err, "finalized invoices are kept")

	rec = post(h.HandleMarkPaid, "/invoices/x/paid", u, url.Values{}, inv.ID.Hex())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	got, err = store.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, got.Status)
	assert.NotNil(t, got.PaidAt)
}

func TestHandleDelete_Draft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProperty(ctx, org.ID, nil, "Home g. 1")
	ona := fx.CreateTenant(ctx, org.ID, p.ID, "Ona")
	inv := fx.CreateInvoice(ctx, org.ID, ona.ID, p.ID, "INV-1", models.InvoiceDraft, decimal.NewFromInt(10))

	rec := post(newHandler(t, db).HandleDelete, "/invoices/x/delete", testutil.Manager(org.ID), url.Values{}, inv.ID.Hex())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/invoices", rec.Header().Get("Location"))
	_, err := invoicestore.New(db).GetByID(ctx, inv.ID)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestHandleRecalculate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org, tenant := billable(t, fx)
	h := newHandler(t, db)

	inv, err := h.Billing.GenerateInvoice(ctx, tenant.ID, day(2024, 3, 1), day(2024, 3, 31))
	require.NoError(t, err)
	readings := readingstore.New(db)
	closing, err := readings.Find(ctx, bson.M{"reading_date": day(2024, 3, 31)})
	require.NoError(t, err)
	require.Len(t, closing, 1)
	closing[0].Value = decimal.NewFromInt(1250)
	require.NoError(t, readings.Update(ctx, closing[0]))

	rec := post(h.HandleRecalculate, "/invoices/x/recalculate", testutil.Manager(org.ID), url.Values{}, inv.ID.Hex())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	got, err := invoicestore.New(db).GetByID(ctx, inv.ID)
	require.NoError(t, err)
	// 250 kWh x 0.20
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(50)), got.TotalAmount.String())
}
