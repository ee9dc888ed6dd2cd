package tariffs_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/tariffs"
	tariffstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/tariffs"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var jan = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func newHandler(t *testing.T, db *mongo.Database) *tariffs.Handler {
	t.Helper()
	return tariffs.NewHandler(db, testutil.SessionManager(t), uierrors.NewErrorLogger(zap.NewNop()), nil, zap.NewNop())
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

func TestServeList_EmptyState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")

	rec := get(newHandler(t, db).ServeList, "/tariffs", testutil.Admin(org.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/tariffs/new" data-empty-action`)
}

func TestServeList_SortsAndPages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProvider(ctx, org.ID, "Ignitis", models.ServiceElectricity)
	for i := 0; i < 22; i++ {
		name := string(rune('A'+i)) + " plan"
		fx.CreateFlatTariff(ctx, org.ID, p.ID, name, decimal.RequireFromString("0.1"), jan.AddDate(0, i, 0))
	}
	h := newHandler(t, db)

	rec := get(h.ServeList, "/tariffs?sort=name&dir=asc", testutil.Manager(org.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, 20, strings.Count(body, "data-row="))
	assert.Less(t, strings.Index(body, ">A plan<"), strings.Index(body, ">B plan<"))
	assert.NotContains(t, body, ">V plan<")

	rec = get(h.ServeList, "/tariffs?sort=name&dir=asc&page=2", testutil.Manager(org.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Equal(t, 2, strings.Count(body, "data-row="))
	assert.Contains(t, body, ">V plan<")

	// default order is newest first
	rec = get(h.ServeList, "/tariffs", testutil.Manager(org.ID), "")
	body = rec.Body.String()
	assert.Less(t, strings.Index(body, ">V plan<"), strings.Index(body, ">U plan<"))
}

func TestHandleCreate_Flat(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProvider(ctx, org.ID, "Ignitis", models.ServiceElectricity)

	form := url.Values{
		"provider_id": {p.ID.Hex()},
		"name":        {"Standard 2024"},
		"type":        {"flat"},
		"rate":        {"0,1520"},
		"active_from": {"2024-01-01"},
	}
	rec := post(newHandler(t, db).HandleCreate, "/tariffs", testutil.Admin(org.ID), form, "")
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	ts, err := tariffstore.New(db).ListByProvider(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, org.ID, ts[0].OrganizationID)
	assert.True(t, ts[0].Configuration.Rate.Equal(decimal.RequireFromString("0.152")))
	assert.Equal(t, "EUR", ts[0].Configuration.Currency)
	assert.Nil(t, ts[0].ActiveUntil)
}

func TestHandleCreate_TimeOfUse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProvider(ctx, org.ID, "Ignitis", models.ServiceElectricity)

	form := url.Values{
		"provider_id":   {p.ID.Hex()},
		"name":          {"Two zone"},
		"type":          {"time_of_use"},
		"weekend_logic": {"apply_night_rate"},
		"zone_id":       {"day", "night", ""},
		"zone_start":    {"07:00", "23:00", ""},
		"zone_end":      {"23:00", "07:00", ""},
		"zone_rate":     {"0.18", "0.10", ""},
		"active_from":   {"2024-01-01"},
		"active_until":  {"2024-12-31"},
	}
	rec := post(newHandler(t, db).HandleCreate, "/tariffs", testutil.Admin(org.ID), form, "")
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	ts, err := tariffstore.New(db).ListByProvider(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	cfg := ts[0].Configuration
	assert.Equal(t, models.TariffTimeOfUse, cfg.Type)
	require.Len(t, cfg.Zones, 2)
	assert.Equal(t, "night", cfg.Zones[1].ID)
	assert.Equal(t, models.WeekendNightRate, cfg.WeekendLogic)
	require.NotNil(t, ts[0].ActiveUntil)
}

func TestHandleCreate_ReportsConfigurationErrors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	h := newHandler(t, db)

	form := url.Values{
		"name":         {"Broken"},
		"type":         {"time_of_use"},
		"zone_id":      {"day", "day"},
		"zone_start":   {"7am", "23:00"},
		"zone_end":     {"23:00", "07:00"},
		"zone_rate":    {"0.18", "0.10"},
		"active_from":  {"2024-06-01"},
		"active_until": {"2024-01-01"},
	}
	rec := post(h.HandleCreate, "/tariffs", testutil.Admin(org.ID), form, "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-field-error="configuration.zones.0.start"`)
	assert.Contains(t, body, `data-field-error="configuration.zones.1.id"`)
	assert.Contains(t, body, `data-field-error="active_until"`)

	form = url.Values{"name": {"No zones"}, "type": {"time_of_use"}, "active_from": {"2024-06-01"}}
	rec = post(h.HandleCreate, "/tariffs", testutil.Admin(org.ID), form, "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-field-error="configuration.zones"`)

	n, err := tariffstore.New(db).Count(ctx, bson.M{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandleCreate_ManagerForbidden(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")

	form := url.Values{"name": {"X"}, "type": {"flat"}, "rate": {"1"}, "active_from": {"2024-01-01"}}
	rec := post(newHandler(t, db).HandleCreate, "/tariffs", testutil.Manager(org.ID), form, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleCreate_ForeignProviderForbidden(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	mine := fx.CreateOrganization(ctx, "Mine")
	other := fx.CreateOrganization(ctx, "Other")
	p := fx.CreateProvider(ctx, other.ID, "Elektrum", models.ServiceElectricity)

	form := url.Values{"provider_id": {p.ID.Hex()}, "name": {"X"}, "type": {"flat"}, "rate": {"1"}, "active_from": {"2024-01-01"}}
	rec := post(newHandler(t, db).HandleCreate, "/tariffs", testutil.Admin(mine.ID), form, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServeView_ShowsHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProvider(ctx, org.ID, "Ignitis", models.ServiceElectricity)
	old := fx.CreateFlatTariff(ctx, org.ID, p.ID, "2023", decimal.RequireFromString("0.12"), jan.AddDate(-1, 0, 0))
	cur := fx.CreateFlatTariff(ctx, org.ID, p.ID, "2024", decimal.RequireFromString("0.15"), jan)

	rec := get(newHandler(t, db).ServeView, "/tariffs/"+cur.ID.Hex(), testutil.Manager(org.ID), cur.ID.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `href="/tariffs/`+old.ID.Hex()+`"`)
	assert.Contains(t, body, `data-row="`+cur.ID.Hex()+`" aria-current="true"`)
	assert.NotContains(t, body, `data-action="edit"`, "managers view tariffs only")
}

func TestHandleEdit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProvider(ctx, org.ID, "Ignitis", models.ServiceElectricity)
	tr := fx.CreateFlatTariff(ctx, org.ID, p.ID, "Standard", decimal.RequireFromString("0.15"), jan)

	form := url.Values{
		"provider_id":  {p.ID.Hex()},
		"name":         {"Standard"},
		"type":         {"flat"},
		"rate":         {"0.17"},
		"fixed_fee":    {"2.50"},
		"active_from":  {"2024-01-01"},
		"active_until": {"2024-06-30"},
	}
	rec := post(newHandler(t, db).HandleEdit, "/tariffs/"+tr.ID.Hex()+"/edit", testutil.Admin(org.ID), form, tr.ID.Hex())
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	got, err := tariffstore.New(db).GetByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, got.Configuration.Rate.Equal(decimal.RequireFromString("0.17")))
	require.NotNil(t, got.Configuration.FixedFee)
	assert.True(t, got.Configuration.FixedFee.Equal(decimal.RequireFromString("2.5")))
	require.NotNil(t, got.ActiveUntil)
}

func TestHandleDelete_BlockedWhenInvoiced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	p := fx.CreateProvider(ctx, org.ID, "Ignitis", models.ServiceElectricity)
	used := fx.CreateFlatTariff(ctx, org.ID, p.ID, "Used", decimal.RequireFromString("0.15"), jan)
	spare := fx.CreateFlatTariff(ctx, org.ID, p.ID, "Spare", decimal.RequireFromString("0.15"), jan.AddDate(0, 6, 0))

	_, err := db.Collection("invoices").InsertOne(ctx, bson.M{
		"organization_id": org.ID,
		"status":          models.InvoiceDraft,
		"items":           bson.A{bson.M{"description": "Electricity", "snapshot": bson.M{"tariff_id": used.ID}}},
	})
	require.NoError(t, err)

	h := newHandler(t, db)
	store := tariffstore.New(db)

	rec := post(h.HandleDelete, "/tariffs/"+used.ID.Hex()+"/delete", testutil.Admin(org.ID), url.Values{}, used.ID.Hex())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, err = store.GetByID(ctx, used.ID)
	require.NoError(t, err)

	rec = post(h.HandleDelete, "/tariffs/"+spare.ID.Hex()+"/delete", testutil.Admin(org.ID), url.Values{}, spare.ID.Hex())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, err = store.GetByID(ctx, spare.ID)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}
