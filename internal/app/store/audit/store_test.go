package audit_test

import (
	"testing"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_LogAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := primitive.NewObjectID()
	reading := primitive.NewObjectID()

	events := []audit.Event{
		{OrganizationID: &org, Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, IP: "10.0.0.1", Success: true},
		{OrganizationID: &org, Category: audit.CategoryBilling, EventType: audit.EventReadingUpdated, TargetID: &reading, Success: true,
			Details: map[string]string{"old_value": "100.00", "new_value": "105.00"}},
		{Category: audit.CategoryAdmin, EventType: audit.EventOrgCreated, Success: true},
	}
	for i, e := range events {
		e.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	got, err := store.Query(ctx, audit.QueryFilter{OrganizationID: &org})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 org events, got %d", len(got))
	}
	if got[0].EventType != audit.EventReadingUpdated {
		t.Errorf("expected newest first, got %s", got[0].EventType)
	}

	hist, err := store.ForTarget(ctx, reading, 10)
	if err != nil || len(hist) != 1 || hist[0].Details["new_value"] != "105.00" {
		t.Errorf("ForTarget = %+v, %v", hist, err)
	}

	n, err := store.Count(ctx, audit.QueryFilter{Category: audit.CategoryAdmin})
	if err != nil || n != 1 {
		t.Errorf("Count admin = %d, %v", n, err)
	}
}

func TestStore_Log_AutoGeneratesID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLogout, Success: true}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	got, err := store.Query(ctx, audit.QueryFilter{})
	if err != nil || len(got) != 1 || got[0].ID.IsZero() || got[0].CreatedAt.IsZero() {
		t.Errorf("unexpected %+v, %v", got, err)
	}
}
