package subscriptions_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/subscriptions"
	subscriptionstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/subscriptions"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, db *mongo.Database) *subscriptions.Handler {
	t.Helper()
	return subscriptions.NewHandler(db, testutil.SessionManager(t), nil, uierrors.NewErrorLogger(zap.NewNop()), nil, zap.NewNop())
}

func TestServeList_SuperAdminSeesAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := fx.CreateOrganization(ctx, "Org A")
	b := fx.CreateOrganization(ctx, "Org B")

	h := newHandler(t, db)
	req := auth.WithTestUser(httptest.NewRequest(http.MethodGet, "/subscriptions", nil), testutil.SuperAdmin())
	rec := httptest.NewRecorder()
	h.ServeList(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, a.Name)
	assert.Contains(t, body, b.Name)
	assert.Contains(t, body, `data-action="view"`)
}

func TestServeList_EmptyState(t *testing.T) {
	h := newHandler(t, testutil.SetupTestDB(t))
	req := auth.WithTestUser(httptest.NewRequest(http.MethodGet, "/subscriptions", nil), testutil.SuperAdmin())
	rec := httptest.NewRecorder()
	h.ServeList(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data-empty-state")
}

func TestServeList_AdminRedirectsToOwn(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Own Org")
	sub, err := subscriptionstore.New(db).GetByOrg(ctx, org.ID)
	require.NoError(t, err)

	h := newHandler(t, db)
	req := auth.WithTestUser(httptest.NewRequest(http.MethodGet, "/subscriptions", nil), testutil.Admin(org.ID))
	rec := httptest.NewRecorder()
	h.ServeList(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/subscriptions/"+sub.ID.Hex(), rec.Header().Get("Location"))
}

func TestServeView_AdminHasNoRenewForm(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Viewer Org")
	sub, err := subscriptionstore.New(db).GetByOrg(ctx, org.ID)
	require.NoError(t, err)

	h := newHandler(t, db)
	view := func(u *auth.SessionUser) *httptest.ResponseRecorder {
		req := auth.WithTestUser(httptest.NewRequest(http.MethodGet, "/subscriptions/"+sub.ID.Hex(), nil), u)
		req = testutil.WithChiURLParam(req, "id", sub.ID.Hex())
		rec := httptest.NewRecorder()
		h.ServeView(rec, req)
		return rec
	}

	rec := view(testutil.Admin(org.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `data-action="renew"`)

	rec = view(testutil.SuperAdmin())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-action="renew"`)
	assert.Contains(t, rec.Body.String(), `data-action="change-plan"`)
}

func TestServeView_OtherOrgForbidden(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Private Org")
	other := fx.CreateOrganization(ctx, "Other Org")
	sub, err := subscriptionstore.New(db).GetByOrg(ctx, org.ID)
	require.NoError(t, err)

	h := newHandler(t, db)
	req := auth.WithTestUser(httptest.NewRequest(http.MethodGet, "/subscriptions/"+sub.ID.Hex(), nil), testutil.Admin(other.ID))
	req = testutil.WithChiURLParam(req, "id", sub.ID.Hex())
	rec := httptest.NewRecorder()
	h.ServeView(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleRenew_ExtendsExpiry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Renew Org")
	store := subscriptionstore.New(db)
	before, err := store.GetByOrg(ctx, org.ID)
	require.NoError(t, err)

	h := newHandler(t, db)
	req := auth.WithTestUser(testutil.FormRequest("/subscriptions/"+before.ID.Hex()+"/renew", url.Values{"months": {"12"}}), testutil.SuperAdmin())
	req = testutil.WithChiURLParam(req, "id", before.ID.Hex())
	rec := httptest.NewRecorder()
	h.HandleRenew(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	after, err := store.GetByID(ctx, before.ID)
	require.NoError(t, err)
	want := before.ExpiresAt.AddDate(0, 12, 0)
	assert.WithinDuration(t, want, after.ExpiresAt, time.Second)
	assert.Equal(t, models.SubscriptionActive, after.Status)
}

func TestHandleRenew_RejectsBadMonths(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Bad Months")
	store := subscriptionstore.New(db)
	before, err := store.GetByOrg(ctx, org.ID)
	require.NoError(t, err)

	h := newHandler(t, db)
	req := auth.WithTestUser(testutil.FormRequest("/x", url.Values{"months": {"0"}}), testutil.SuperAdmin())
	req = testutil.WithChiURLParam(req, "id", before.ID.Hex())
	rec := httptest.NewRecorder()
	h.HandleRenew(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	after, err := store.GetByID(ctx, before.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, before.ExpiresAt, after.ExpiresAt, time.Second)
}

func TestHandleChangePlan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Plan Org")
	store := subscriptionstore.New(db)
	sub, err := store.GetByOrg(ctx, org.ID)
	require.NoError(t, err)

	h := newHandler(t, db)
	req := auth.WithTestUser(testutil.FormRequest("/x", url.Values{"plan": {models.PlanEnterprise}}), testutil.SuperAdmin())
	req = testutil.WithChiURLParam(req, "id", sub.ID.Hex())
	rec := httptest.NewRecorder()
	h.HandleChangePlan(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	got, err := store.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanEnterprise, got.PlanType)
	assert.Equal(t, models.PlanLimits[models.PlanEnterprise].Properties, got.MaxProperties)
	assert.Equal(t, models.PlanLimits[models.PlanEnterprise].Tenants, got.MaxTenants)
}
