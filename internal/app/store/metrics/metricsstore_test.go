package metricsstore_test

import (
	"testing"
	"time"

	metricsstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/metrics"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
)

func TestFetchPlatformCounts_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	counts, err := metricsstore.FetchPlatformCounts(ctx, db, time.Now(), 14*24*time.Hour)
	if err != nil {
		t.Fatalf("FetchPlatformCounts: %v", err)
	}
	if counts != (metricsstore.PlatformCounts{}) {
		t.Errorf("expected zero counts, got %+v", counts)
	}
}

func TestFetchPlatformCounts_WithData(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateOrganization(ctx, "Org One")
	b := fx.CreateOrganization(ctx, "Org Two")
	fx.CreateUser(ctx, &a.ID, "Admin One", "a1@test.local", models.RoleAdmin, "")
	if _, err := db.Collection("organizations").UpdateByID(ctx, b.ID, bson.M{"$set": bson.M{"status": models.OrgSuspended}}); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	// Fixture subscriptions expire in 30 days: expiring within 45, not within 14.
	counts, err := metricsstore.FetchPlatformCounts(ctx, db, time.Now(), 45*24*time.Hour)
	if err != nil {
		t.Fatalf("FetchPlatformCounts: %v", err)
	}
	if counts.Organizations != 2 || counts.SuspendedOrganizations != 1 || counts.Users != 1 {
		t.Errorf("unexpected counts %+v", counts)
	}
	if counts.ActiveSubscriptions != 2 || counts.ExpiringSubscriptions != 2 {
		t.Errorf("subscriptions %+v", counts)
	}

	counts, _ = metricsstore.FetchPlatformCounts(ctx, db, time.Now(), 14*24*time.Hour)
	if counts.ExpiringSubscriptions != 0 {
		t.Errorf("expiring within 14 days = %d, want 0", counts.ExpiringSubscriptions)
	}
}

func TestFetchOrgCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "Counts Org")
	other := fx.CreateOrganization(ctx, "Other Org")
	b := fx.CreateBuilding(ctx, org.ID, "Gedimino", 20)
	p1 := fx.CreateProperty(ctx, org.ID, &b.ID, "Gedimino pr. 1-1")
	p2 := fx.CreateProperty(ctx, org.ID, &b.ID, "Gedimino pr. 1-2")
	fx.CreateProperty(ctx, other.ID, nil, "Elsewhere 5")
	tn := fx.CreateTenant(ctx, org.ID, p1.ID, "Jonas")
	m1 := fx.CreateMeter(ctx, org.ID, p1.ID, "EL-1", models.MeterElectricity, false)
	fx.CreateMeter(ctx, org.ID, p2.ID, "EL-2", models.MeterElectricity, false)

	periodStart := time.Now().UTC().AddDate(0, 0, -10)
	fx.CreateReading(ctx, m1, time.Now().UTC().AddDate(0, 0, -2), decimal.NewFromInt(100))
	fx.CreateInvoice(ctx, org.ID, tn.ID, p1.ID, "INV-1", models.InvoiceDraft, decimal.NewFromInt(10))

	counts, err := metricsstore.FetchOrgCounts(ctx, db, org.ID, periodStart)
	if err != nil {
		t.Fatalf("FetchOrgCounts: %v", err)
	}
	if counts.Buildings != 1 || counts.Properties != 2 || counts.ActiveTenants != 1 || counts.Meters != 2 {
		t.Errorf("unexpected counts %+v", counts)
	}
	if counts.PendingReadings != 1 {
		t.Errorf("PendingReadings = %d, want 1", counts.PendingReadings)
	}
	if counts.DraftInvoices != 1 || counts.FinalizedInvoices != 0 {
		t.Errorf("invoices %+v", counts)
	}
}
