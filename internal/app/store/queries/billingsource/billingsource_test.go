package billingsource_test

import (
	"errors"
	"testing"
	"time"

	invoicestore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/invoices"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/queries/billingsource"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/billing"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestFindProvider_MissingIsNil(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	org := fx.CreateOrganization(ctx, "Provider Org")

	src := billingsource.New(db)
	p, err := src.FindProvider(ctx, org.ID, models.ServiceHeating)
	if err != nil {
		t.Fatalf("FindProvider: %v", err)
	}
	if p != nil {
		t.Errorf("expected no provider, got %+v", p)
	}
}

func TestGenerateInvoice_FromStores(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	org := fx.CreateOrganization(ctx, "Billing Org")
	prop := fx.CreateProperty(ctx, org.ID, nil, "Gedimino pr. 1")
	tenant := fx.CreateTenant(ctx, org.ID, prop.ID, "Jonas")
	provider := fx.CreateProvider(ctx, org.ID, "Ignitis", models.ServiceElectricity)
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	fx.CreateFlatTariff(ctx, org.ID, provider.ID, "Standard", decimal.RequireFromString("0.20"), start.AddDate(-1, 0, 0))

	meter := fx.CreateMeter(ctx, org.ID, prop.ID, "EL-1", models.MeterElectricity, false)
	fx.CreateReading(ctx, meter, start, decimal.NewFromInt(1000))
	fx.CreateReading(ctx, meter, end, decimal.NewFromInt(1150))

	svc := billingsource.NewService(db, billing.DefaultConfig(), nil, zap.NewNop())

	inv, err := svc.GenerateInvoice(ctx, tenant.ID, start, end)
	if err != nil {
		t.Fatalf("GenerateInvoice: %v", err)
	}
	if inv.Status != models.InvoiceDraft {
		t.Errorf("status = %q, want draft", inv.Status)
	}
	if len(inv.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(inv.Items))
	}
	// 150 kWh x 0.20
	if !inv.TotalAmount.Equal(decimal.NewFromInt(30)) {
		t.Errorf("total = %s, want 30", inv.TotalAmount)
	}

	stored, err := invoicestore.New(db).GetByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.TotalAmount.Equal(inv.TotalAmount) {
		t.Errorf("stored total = %s", stored.TotalAmount)
	}
}

func TestGenerateInvoice_MissingEndReading(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	org := fx.CreateOrganization(ctx, "Gap Org")
	prop := fx.CreateProperty(ctx, org.ID, nil, "Pilies g. 4")
	tenant := fx.CreateTenant(ctx, org.ID, prop.ID, "Ona")
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	meter := fx.CreateMeter(ctx, org.ID, prop.ID, "EL-2", models.MeterElectricity, false)
	fx.CreateReading(ctx, meter, start, decimal.NewFromInt(10))

	svc := billingsource.NewService(db, billing.DefaultConfig(), nil, zap.NewNop())

	_, err := svc.GenerateInvoice(ctx, tenant.ID, start, end)
	var missing *billing.MissingReadingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingReadingError, got %v", err)
	}
	if missing.MeterSerial != "EL-2" {
		t.Errorf("meter serial = %q", missing.MeterSerial)
	}
}
