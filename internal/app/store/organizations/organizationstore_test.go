package organizationstore_test

import (
	"testing"

	organizationstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/organizations"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Vilniaus Namai":      "vilniaus-namai",
		"ACME 24/7":           "acme-24-7",
	}
	for in, want := range tests {
		if got := organizationstore.Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateAndSuspend(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := organizationstore.New(db)
	org, err := s.Create(ctx, models.Organization{Name: "Vilnius Homes", Email: "Office@Example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if org.Slug != "vilnius-homes" || org.Status != models.OrgActive || org.Email != "office@example.com" {
		t.Errorf("unexpected defaults: %+v", org)
	}

	if err := s.Suspend(ctx, org.ID, "unpaid"); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	got, err := s.GetByID(ctx, org.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.IsSuspended() || got.SuspensionReason != "unpaid" || got.SuspendedAt == nil {
		t.Errorf("suspend not applied: %+v", got)
	}

	n, err := s.SetStatusMany(ctx, []primitive.ObjectID{org.ID}, models.OrgActive, "")
	if err != nil || n != 1 {
		t.Fatalf("SetStatusMany = %d, %v", n, err)
	}
	count, _ := s.Count(ctx, bson.M{"status": models.OrgActive})
	if count != 1 {
		t.Errorf("active count = %d", count)
	}
}
