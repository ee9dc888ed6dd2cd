package properties_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/properties"
	propertystore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/properties"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, db *mongo.Database) *properties.Handler {
	t.Helper()
	return properties.NewHandler(db, testutil.SessionManager(t), uierrors.NewErrorLogger(zap.NewNop()), nil, zap.NewNop())
}

func serve(fn http.HandlerFunc, req *http.Request, u *auth.SessionUser, id string) *httptest.ResponseRecorder {
	req = auth.WithTestUser(req, u)
	if id != "" {
		req = testutil.WithChiURLParam(req, "id", id)
	}
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestServeList_EmptyOffersCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")

	rec := serve(newHandler(t, db).ServeList, httptest.NewRequest(http.MethodGet, "/properties", nil), testutil.Admin(org.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/properties/new" data-empty-action`)
}

func TestServeList_FiltersByBuilding(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	b := fx.CreateBuilding(ctx, org.ID, "Blokas", 12)
	in := fx.CreateProperty(ctx, org.ID, &b.ID, "Blokas g. 1-4")
	out := fx.CreateProperty(ctx, org.ID, nil, "Sodų g. 7")

	req := httptest.NewRequest(http.MethodGet, "/properties?building="+b.ID.Hex(), nil)
	rec := serve(newHandler(t, db).ServeList, req, testutil.Manager(org.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-row="`+in.ID.Hex()+`"`)
	assert.NotContains(t, body, `data-row="`+out.ID.Hex()+`"`)
}

func TestHandleCreate_InBuilding(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	b := fx.CreateBuilding(ctx, org.ID, "Blokas", 12)

	form := url.Values{
		"address":     {"Blokas g. 1"},
		"unit_number": {"12"},
		"type":        {models.PropertyApartment},
		"area_sqm":    {"48,5"},
		"building_id": {b.ID.Hex()},
	}
	rec := serve(newHandler(t, db).HandleCreate, testutil.FormRequest("/properties", form), testutil.Admin(org.ID), "")
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	props, err := propertystore.New(db).ListByBuilding(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "48.5", props[0].AreaSqm.String())
	assert.Equal(t, "Blokas g. 1, 12", props[0].Label())
}

func TestHandleCreate_ForeignBuildingRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	other := fx.CreateOrganization(ctx, "Other")
	b := fx.CreateBuilding(ctx, other.ID, "Foreign", 12)

	form := url.Values{"address": {"X"}, "type": {models.PropertyApartment}, "area_sqm": {"40"}, "building_id": {b.ID.Hex()}}
	rec := serve(newHandler(t, db).HandleCreate, testutil.FormRequest("/properties", form), testutil.Admin(org.ID), "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-field-error="building_id"`)
}

func TestHandleCreate_PlanLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	_, err := db.Collection("subscriptions").UpdateOne(ctx, bson.M{"organization_id": org.ID}, bson.M{"$set": bson.M{"max_properties": 1}})
	require.NoError(t, err)
	fx.CreateProperty(ctx, org.ID, nil, "Pirmas g. 1")

	form := url.Values{"address": {"Antras g. 2"}, "type": {models.PropertyHouse}, "area_sqm": {"120"}}
	rec := serve(newHandler(t, db).HandleCreate, testutil.FormRequest("/properties", form), testutil.Admin(org.ID), "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "data-form-error")
	assert.Contains(t, rec.Body.String(), `value="Antras g. 2"`)

	n, err := propertystore.New(db).Count(ctx, bson.M{"organization_id": org.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestHandleCreate_AreaValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")

	h := newHandler(t, db)
	for _, area := range []string{"", "0", "-5", "abc", "10001"} {
		form := url.Values{"address": {"X"}, "type": {models.PropertyApartment}, "area_sqm": {area}}
		rec := serve(h.HandleCreate, testutil.FormRequest("/properties", form), testutil.Admin(org.ID), "")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, area)
		assert.Contains(t, rec.Body.String(), `data-field-error="area_sqm"`, area)
	}
}

func TestServeView_TenantSeesOnlyOwnProperty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	home := fx.CreateProperty(ctx, org.ID, nil, "Namų g. 1")
	next := fx.CreateProperty(ctx, org.ID, nil, "Namų g. 2")
	occ := fx.CreateTenant(ctx, org.ID, home.ID, "Rūta")
	fx.CreateMeter(ctx, org.ID, home.ID, "EL-1", models.MeterElectricity, false)
	u := testutil.TenantUser(org.ID, occ.ID, home.ID)

	h := newHandler(t, db)
	rec := serve(h.ServeView, httptest.NewRequest(http.MethodGet, "/properties/"+home.ID.Hex(), nil), u, home.ID.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "EL-1")
	assert.NotContains(t, body, `data-action="edit"`)
	assert.NotContains(t, body, "Rūta", "occupant list is for staff")

	rec = serve(h.ServeView, httptest.NewRequest(http.MethodGet, "/properties/"+next.ID.Hex(), nil), u, next.ID.Hex())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleDelete_InUse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "Org")
	used := fx.CreateProperty(ctx, org.ID, nil, "Used g. 1")
	fx.CreateMeter(ctx, org.ID, used.ID, "W-1", models.MeterWaterCold, false)
	free := fx.CreateProperty(ctx, org.ID, nil, "Free g. 1")

	h := newHandler(t, db)
	store := propertystore.New(db)

	rec := serve(h.HandleDelete, testutil.FormRequest("/properties/"+used.ID.Hex()+"/delete", url.Values{}), testutil.Admin(org.ID), used.ID.Hex())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/properties/"+used.ID.Hex(), rec.Header().Get("Location"))
	_, err := store.GetByID(ctx, used.ID)
	require.NoError(t, err)

	rec = serve(h.HandleDelete, testutil.FormRequest("/properties/"+free.ID.Hex()+"/delete", url.Values{}), testutil.Admin(org.ID), free.ID.Hex())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, err = store.GetByID(ctx, free.ID)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestServeView_BadID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rec := serve(newHandler(t, db).ServeView, httptest.NewRequest(http.MethodGet, "/properties/x", nil), testutil.SuperAdmin(), primitive.NewObjectID().Hex())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
