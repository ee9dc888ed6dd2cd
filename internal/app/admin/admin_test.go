package admin_test

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/admin"
	reportsfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/reports"
	buildingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/buildings"
	invoicestore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/invoices"
	orgstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/organizations"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/queries/billingsource"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/queries/reportqueries"
	tariffstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/tariffs"
	userstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/users"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/exportstore"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/billing"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/circulation"
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

const fixturesYAML = `
organizations:
  - name: Namai
    email: office@namai.lt
    plan: professional
    users:
      - name: Ona Admin
        email: ona@namai.lt
        password: slaptazodis
        role: admin
        locale: lt
    providers:
      - name: Ignitis
        service: electricity
        tariffs:
          - name: Standard
            active_from: 2024-01-01
            configuration:
              type: flat
              rate: 0.20
    buildings:
      - name: Gedimino 1
        address: Gedimino pr. 1
        apartments: 20
        properties:
          - address: Gedimino pr. 1
            unit: "5"
            area: 55.5
            tenant:
              name: Jonas
              email: jonas@namai.lt
              lease_start: 2023-06-01
            meters:
              - serial: EL-1
                type: electricity
                installed: 2023-01-01
                readings:
                  - {date: 2024-03-01, value: 1000}
                  - {date: 2024-03-31, value: 1150}
    properties:
      - address: Pilies g. 4
        type: house
`

func newRunner(t *testing.T, db *mongo.Database) *admin.Runner {
	t.Helper()
	return &admin.Runner{
		DB:          db,
		Billing:     billingsource.NewService(db, billing.DefaultConfig(), nil, zap.NewNop()),
		Circulation: circulation.New(circulation.DefaultConfig(), buildingstore.New(db), nil, zap.NewNop()),
		Reports:     reportsfeature.NewHandler(db, nil, exportstore.NewLocal(t.TempDir()), nil, nil, zap.NewNop()),
		Locale:      "en",
		Workers:     2,
		Log:         zap.NewNop(),
	}
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestLoadFixtures(t *testing.T) {
	fx, err := admin.LoadFixtures(strings.NewReader(fixturesYAML))
	require.NoError(t, err)
	require.Len(t, fx.Organizations, 1)

	org := fx.Organizations[0]
	assert.Equal(t, "Namai", org.Name)
	require.Len(t, org.Providers, 1)
	assert.True(t, org.Providers[0].Tariffs[0].Configuration.Rate.Equal(decimal.RequireFromString("0.20")))
	assert.Equal(t, "2024-01-01", org.Providers[0].Tariffs[0].ActiveFrom)
	require.Len(t, org.Buildings[0].Properties[0].Meters[0].Readings, 2)
	assert.True(t, org.Buildings[0].Properties[0].Area.Equal(decimal.RequireFromString("55.5")))
}

func TestLoadFixtures_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown field": "organizations:\n  - name: X\n    email: x@x.lt\n    colour: red\n",
		"bad email":     "organizations:\n  - name: X\n    email: nope\n",
		"bad role":      "organizations:\n  - name: X\n    email: x@x.lt\n    users:\n      - {name: A, email: a@x.lt, password: longenough, role: tenant}\n",
		"bad date":      "organizations:\n  - name: X\n    email: x@x.lt\n    providers:\n      - name: P\n        service: water\n        tariffs:\n          - {name: T, active_from: 01/02/2024}\n",
		"no apartments": "organizations:\n  - name: X\n    email: x@x.lt\n    buildings:\n      - {name: B, address: A}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := admin.LoadFixtures(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFixtures_EmptyFile(t *testing.T) {
	fx, err := admin.LoadFixtures(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, fx.Organizations)
}

func TestSeed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx, err := admin.LoadFixtures(strings.NewReader(fixturesYAML))
	require.NoError(t, err)

	r := newRunner(t, db)
	res, err := r.Seed(ctx, fx)
	require.NoError(t, err)
	assert.Equal(t, admin.SeedResult{
		Organizations: 1,
		Users:         1,
		Buildings:     1,
		Properties:    2,
		Tenants:       1,
		Providers:     1,
		Tariffs:       1,
		Meters:        1,
		Readings:      2,
	}, res)

	user, err := userstore.New(db).GetByEmail(ctx, "ona@namai.lt")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, "lt", user.Locale)
	assert.True(t, auth.CheckPassword(user.PasswordHash, "slaptazodis"))

	tariffs, err := tariffstore.New(db).Find(ctx, bson.M{})
	require.NoError(t, err)
	require.Len(t, tariffs, 1)
	assert.True(t, tariffs[0].Configuration.Rate.Equal(decimal.RequireFromString("0.20")))
	assert.Equal(t, "EUR", tariffs[0].Configuration.Currency)

	// A second run leaves the existing organization alone.
	res, err = r.Seed(ctx, fx)
	require.NoError(t, err)
	assert.Equal(t, admin.SeedResult{Skipped: 1}, res)
	n, err := orgstore.New(db).Count(ctx, bson.M{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestGenerateInvoices(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	org := fx.CreateOrganization(ctx, "Billing Org")
	start, end := day(2024, time.March, 1), day(2024, time.March, 31)
	provider := fx.CreateProvider(ctx, org.ID, "Ignitis", models.ServiceElectricity)
	fx.CreateFlatTariff(ctx, org.ID, provider.ID, "Standard", decimal.RequireFromString("0.20"), start.AddDate(-1, 0, 0))

	billed := fx.CreateProperty(ctx, org.ID, nil, "Gedimino pr. 1")
	ana := fx.CreateTenant(ctx, org.ID, billed.ID, "Ana")
	meter := fx.CreateMeter(ctx, org.ID, billed.ID, "EL-1", models.MeterElectricity, false)
	fx.CreateReading(ctx, meter, start, decimal.NewFromInt(1000))
	fx.CreateReading(ctx, meter, end, decimal.NewFromInt(1150))

	bare := fx.CreateProperty(ctx, org.ID, nil, "Pilies g. 4")
	bob := fx.CreateTenant(ctx, org.ID, bare.ID, "Bob")

	other := fx.CreateOrganization(ctx, "Other Org")
	otherProp := fx.CreateProperty(ctx, other.ID, nil, "Vokiečių g. 2")
	fx.CreateTenant(ctx, other.ID, otherProp.ID, "Outsider")

	r := newRunner(t, db)
	res, err := r.GenerateInvoices(ctx, org.ID, start, end)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 2)

	// Sorted by name.
	assert.Equal(t, ana.ID, res.Outcomes[0].TenantID)
	require.NotNil(t, res.Outcomes[0].Invoice)
	assert.True(t, res.Outcomes[0].Invoice.TotalAmount.Equal(decimal.NewFromInt(30)))

	assert.Equal(t, bob.ID, res.Outcomes[1].TenantID)
	assert.True(t, errors.Is(res.Outcomes[1].Err, billing.ErrNoMeters))

	generated, skipped, failed := res.Counts()
	assert.Equal(t, [3]int{1, 0, 1}, [3]int{generated, skipped, failed})

	// Re-running the same period does not bill twice.
	res, err = r.GenerateInvoices(ctx, org.ID, start, end)
	require.NoError(t, err)
	generated, skipped, failed = res.Counts()
	assert.Equal(t, [3]int{0, 1, 1}, [3]int{generated, skipped, failed})

	n, err := invoicestore.New(db).Count(ctx, bson.M{"organization_id": org.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestGenerateInvoices_InvalidPeriod(t *testing.T) {
	r := newRunner(t, testutil.OfflineDB(t))
	_, err := r.GenerateInvoices(t.Context(), primitive.NewObjectID(), day(2024, 4, 1), day(2024, 3, 1))
	assert.ErrorIs(t, err, billing.ErrInvalidPeriod)
}

func TestRecalcCirculation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	org := fx.CreateOrganization(ctx, "Circ Org")
	good := fx.CreateBuilding(ctx, org.ID, "Alpha", 20)
	empty := fx.CreateBuilding(ctx, org.ID, "Beta", 0)
	other := fx.CreateOrganization(ctx, "Elsewhere")
	fx.CreateBuilding(ctx, other.ID, "Gamma", 30)

	out, err := newRunner(t, db).RecalcCirculation(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, good.ID, out[0].BuildingID)
	require.NoError(t, out[0].Err)
	// 20 apartments x 15 EUR, no size factor.
	assert.Equal(t, "300.00", out[0].Average.StringFixed(2))

	assert.Equal(t, empty.ID, out[1].BuildingID)
	assert.ErrorIs(t, out[1].Err, circulation.ErrInvalidBuilding)

	stored, err := buildingstore.New(db).GetByID(ctx, good.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CirculationSummerAverage)
	assert.Equal(t, "300.00", stored.CirculationSummerAverage.StringFixed(2))
	require.NotNil(t, stored.CirculationCalculatedAt)
}

func TestExportReports(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	org := fx.CreateOrganization(ctx, "Export Org")
	prop := fx.CreateProperty(ctx, org.ID, nil, "Gedimino pr. 1")
	tenant := fx.CreateTenant(ctx, org.ID, prop.ID, "Jonas")
	fx.CreateInvoice(ctx, org.ID, tenant.ID, prop.ID, "INV-1", models.InvoicePaid, decimal.NewFromInt(30))

	now := time.Now().UTC()
	p := reportqueries.Period{From: now.AddDate(-1, 0, 0), To: now.AddDate(0, 1, 0)}

	out, err := newRunner(t, db).ExportReports(ctx, org.ID, p)
	require.NoError(t, err)
	require.Len(t, out, len(reportsfeature.Names()))

	for _, o := range out {
		assert.Contains(t, o.Object.Key, org.ID.Hex())
		data, err := os.ReadFile(o.Object.Location)
		require.NoError(t, err, o.Report)
		assert.NotEmpty(t, data)
	}
}

func TestExportReports_InvalidPeriod(t *testing.T) {
	r := newRunner(t, testutil.OfflineDB(t))
	_, err := r.ExportReports(t.Context(), primitive.NilObjectID, reportqueries.Period{From: day(2024, 4, 1), To: day(2024, 3, 1)})
	assert.Error(t, err)
}
