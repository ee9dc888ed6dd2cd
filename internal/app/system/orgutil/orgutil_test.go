package orgutil_test

import (
	"errors"
	"testing"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestActiveOptions_SortedAndFiltered(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateOrganization(ctx, "Zalgiris Homes")
	fx.CreateOrganization(ctx, "Ąžuolas Rentals")
	s := fx.CreateOrganization(ctx, "Suspended Co")
	if _, err := db.Collection("organizations").UpdateByID(ctx, s.ID, bson.M{"$set": bson.M{"status": models.OrgSuspended}}); err != nil {
		t.Fatal(err)
	}

	opts, err := orgutil.ActiveOptions(ctx, db)
	if err != nil {
		t.Fatalf("ActiveOptions: %v", err)
	}
	if len(opts) != 2 {
		t.Fatalf("got %d options, want 2", len(opts))
	}
	if opts[0].Name != "Ąžuolas Rentals" {
		t.Errorf("folded sort should put Ąžuolas first, got %q", opts[0].Name)
	}
}

func TestResolveOrgFromHex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "Resolve Org")
	got, err := orgutil.ResolveOrgFromHex(ctx, db, org.ID.Hex())
	if err != nil || got.ID != org.ID {
		t.Fatalf("ResolveOrgFromHex = %v, %v", got.ID, err)
	}

	if _, err := orgutil.ResolveOrgFromHex(ctx, db, "nope"); !errors.Is(err, orgutil.ErrBadOrgID) {
		t.Errorf("bad hex: %v", err)
	}
	if _, err := orgutil.ResolveOrgFromHex(ctx, db, primitive.NewObjectID().Hex()); !errors.Is(err, orgutil.ErrOrgNotFound) {
		t.Errorf("missing: %v", err)
	}

	if _, err := db.Collection("organizations").UpdateByID(ctx, org.ID, bson.M{"$set": bson.M{"status": models.OrgSuspended}}); err != nil {
		t.Fatal(err)
	}
	if _, err := orgutil.ResolveActiveOrgFromHex(ctx, db, org.ID.Hex()); !errors.Is(err, orgutil.ErrOrgNotActive) {
		t.Errorf("suspended: %v", err)
	}
	if !orgutil.IsExpectedOrgError(orgutil.ErrOrgNotActive) || orgutil.IsExpectedOrgError(errors.New("db down")) {
		t.Error("IsExpectedOrgError misclassifies")
	}
}

func TestAggregateCountByField(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateOrganization(ctx, "Org A")
	b := fx.CreateOrganization(ctx, "Org B")
	fx.CreateProperty(ctx, a.ID, nil, "A 1")
	fx.CreateProperty(ctx, a.ID, nil, "A 2")
	fx.CreateProperty(ctx, b.ID, nil, "B 1")

	counts, err := orgutil.AggregateCountByField(ctx, db, "properties",
		bson.M{"organization_id": bson.M{"$in": []primitive.ObjectID{a.ID, b.ID}}}, "organization_id")
	if err != nil {
		t.Fatalf("AggregateCountByField: %v", err)
	}
	if counts[a.ID] != 2 || counts[b.ID] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestWithinPlanLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "Limited")
	if _, err := db.Collection("subscriptions").UpdateOne(ctx, bson.M{"organization_id": org.ID}, bson.M{"$set": bson.M{"max_properties": 1}}); err != nil {
		t.Fatal(err)
	}

	limit, ok, err := orgutil.WithinPlanLimit(ctx, db, org.ID, orgutil.LimitProperties)
	if err != nil || !ok || limit != 1 {
		t.Fatalf("empty org: limit=%d ok=%v err=%v", limit, ok, err)
	}
	fx.CreateProperty(ctx, org.ID, nil, "Gedimino pr. 1")
	if _, ok, _ := orgutil.WithinPlanLimit(ctx, db, org.ID, orgutil.LimitProperties); ok {
		t.Error("limit of one property should be reached")
	}
	if _, ok, _ := orgutil.WithinPlanLimit(ctx, db, primitive.NewObjectID(), orgutil.LimitTenants); !ok {
		t.Error("no subscription means no limit")
	}
}
