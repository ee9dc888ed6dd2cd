package reportqueries_test

import (
	"testing"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/queries/reportqueries"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
)

var march = reportqueries.Period{
	From: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	To:   time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC),
}

func TestConsumption_SumsPerMeterType(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	org := fx.CreateOrganization(ctx, "Consumption Org")
	other := fx.CreateOrganization(ctx, "Other Org")
	prop := fx.CreateProperty(ctx, org.ID, nil, "Vilniaus g. 1")
	el1 := fx.CreateMeter(ctx, org.ID, prop.ID, "EL-1", models.MeterElectricity, false)
	el2 := fx.CreateMeter(ctx, org.ID, prop.ID, "EL-2", models.MeterElectricity, false)
	wc := fx.CreateMeter(ctx, org.ID, prop.ID, "WC-1", models.MeterWaterCold, false)
	foreign := fx.CreateMeter(ctx, other.ID, prop.ID, "EL-X", models.MeterElectricity, false)

	fx.CreateReading(ctx, el1, march.From, decimal.NewFromInt(100))
	fx.CreateReading(ctx, el1, march.From.AddDate(0, 0, 15), decimal.NewFromInt(140))
	fx.CreateReading(ctx, el1, march.From.AddDate(0, 0, 30), decimal.NewFromInt(160))
	fx.CreateReading(ctx, el2, march.From, decimal.NewFromInt(10))
	fx.CreateReading(ctx, el2, march.From.AddDate(0, 0, 30), decimal.NewFromInt(50))
	fx.CreateReading(ctx, wc, march.From, decimal.RequireFromString("12.5"))
	fx.CreateReading(ctx, wc, march.From.AddDate(0, 0, 30), decimal.RequireFromString("15.75"))
	fx.CreateReading(ctx, foreign, march.From, decimal.NewFromInt(0))
	fx.CreateReading(ctx, foreign, march.From.AddDate(0, 0, 30), decimal.NewFromInt(999))

	rows, err := reportqueries.Consumption(ctx, db, bson.M{"organization_id": org.ID}, march)
	if err != nil {
		t.Fatalf("Consumption: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	// sorted by type: electricity, water_cold
	if rows[0].MeterType != models.MeterElectricity || rows[0].Meters != 2 || !rows[0].Consumption.Equal(decimal.NewFromInt(100)) {
		t.Errorf("electricity row = %+v", rows[0])
	}
	if rows[1].MeterType != models.MeterWaterCold || !rows[1].Consumption.Equal(decimal.RequireFromString("3.25")) {
		t.Errorf("water row = %+v", rows[1])
	}
}

func TestCompliance_Percent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	org := fx.CreateOrganization(ctx, "Compliance Org")
	prop := fx.CreateProperty(ctx, org.ID, nil, "Pylimo g. 2")
	read := fx.CreateMeter(ctx, org.ID, prop.ID, "A-1", models.MeterElectricity, false)
	fx.CreateMeter(ctx, org.ID, prop.ID, "B-1", models.MeterHeating, false)
	fx.CreateMeter(ctx, org.ID, prop.ID, "C-1", models.MeterWaterHot, false)
	fx.CreateReading(ctx, read, march.From.AddDate(0, 0, 3), decimal.NewFromInt(5))

	rep, err := reportqueries.Compliance(ctx, db, bson.M{"organization_id": org.ID}, march)
	if err != nil {
		t.Fatalf("Compliance: %v", err)
	}
	if rep.Total != 3 || rep.WithReading != 1 {
		t.Errorf("total=%d with=%d", rep.Total, rep.WithReading)
	}
	if !rep.Percent.Equal(decimal.RequireFromString("33.3")) {
		t.Errorf("percent = %s", rep.Percent)
	}
	if missing := rep.Missing(); len(missing) != 2 || missing[0].SerialNumber != "B-1" {
		t.Errorf("missing = %+v", missing)
	}
}

func TestCompliance_NoMeters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	org := fx.CreateOrganization(ctx, "Empty Org")

	rep, err := reportqueries.Compliance(ctx, db, bson.M{"organization_id": org.ID}, march)
	if err != nil {
		t.Fatalf("Compliance: %v", err)
	}
	if rep.Total != 0 || !rep.Percent.IsZero() {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestRevenue_TotalsByStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	org := fx.CreateOrganization(ctx, "Revenue Org")
	prop := fx.CreateProperty(ctx, org.ID, nil, "Totoriu g. 3")
	tn := fx.CreateTenant(ctx, org.ID, prop.ID, "Petras")
	fx.CreateInvoice(ctx, org.ID, tn.ID, prop.ID, "INV-R1", models.InvoicePaid, decimal.RequireFromString("40.10"))
	fx.CreateInvoice(ctx, org.ID, tn.ID, prop.ID, "INV-R2", models.InvoiceFinalized, decimal.RequireFromString("25.00"))
	fx.CreateInvoice(ctx, org.ID, tn.ID, prop.ID, "INV-R3", models.InvoiceDraft, decimal.RequireFromString("5.50"))

	now := time.Now().UTC()
	period := reportqueries.Period{From: now.AddDate(0, -3, 0), To: now}
	rep, err := reportqueries.Revenue(ctx, db, bson.M{"organization_id": org.ID}, period)
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	if len(rep.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rep.Rows))
	}
	if !rep.Invoiced.Equal(decimal.RequireFromString("70.60")) {
		t.Errorf("invoiced = %s", rep.Invoiced)
	}
	if !rep.Paid.Equal(decimal.RequireFromString("40.10")) {
		t.Errorf("paid = %s", rep.Paid)
	}
	if !rep.Outstanding.Equal(decimal.RequireFromString("25")) {
		t.Errorf("outstanding = %s", rep.Outstanding)
	}
}
