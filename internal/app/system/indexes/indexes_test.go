package indexes_test

import (
	"testing"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/indexes"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes on %s failed: %v", coll, err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesUniqueIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	want := map[string][]string{
		"users":          {"uniq_users_email", "idx_users_org_role_status"},
		"organizations":  {"uniq_orgs_nameci", "uniq_orgs_slug"},
		"subscriptions":  {"uniq_subscriptions_org"},
		"meters":         {"uniq_meters_org_serial", "idx_meters_property"},
		"meter_readings": {"idx_readings_meter_zone_date"},
		"invoices":       {"uniq_invoices_number", "idx_invoices_org_status_created"},
		"audit_log":      {"idx_audit_org_created"},
	}
	for coll, names := range want {
		got := indexNames(t, db, coll)
		for _, n := range names {
			if !got[n] {
				t.Errorf("expected index %q on %s", n, coll)
			}
		}
	}
}

func TestEnsureAll_RenamesMismatchedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Same keys under an old name must be replaced.
	_, err := db.Collection("invoices").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		t.Fatalf("create legacy index: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	got := indexNames(t, db, "invoices")
	if !got["idx_invoices_tenant_created"] {
		t.Error("expected idx_invoices_tenant_created after reconcile")
	}
	if got["tenant_id_1_created_at_-1"] {
		t.Error("legacy index name should be gone")
	}
}

func TestEnsureAll_ReportsDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 2; i++ {
		if _, err := db.Collection("users").InsertOne(ctx, bson.M{"email": "dup@example.com"}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err == nil {
		t.Fatal("expected an error for duplicate emails")
	}
}
