package userstore_test

import (
	"context"
	"errors"
	"testing"

	userstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/users"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/indexes"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"go.uber.org/zap"
)

func TestCreate_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	s := userstore.New(db)
	u, err := s.Create(ctx, models.User{FullName: "Ona Jonaitė", Email: " Ona@Example.com ", Role: models.RoleManager})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Email != "ona@example.com" || u.Status != models.UserActive {
		t.Errorf("unexpected user %+v", u)
	}
	if _, err := s.Create(ctx, models.User{FullName: "Other", Email: "ONA@example.com", Role: models.RoleManager}); !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}

	got, err := s.GetByEmail(ctx, "ona@EXAMPLE.com")
	if err != nil || got.ID != u.ID {
		t.Errorf("GetByEmail = %v, %v", got, err)
	}
}

func TestFetcher(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	org := fx.CreateOrganization(ctx, "Fetch Org")
	prop := fx.CreateProperty(ctx, org.ID, nil, "Gedimino pr. 1")
	occ := fx.CreateTenant(ctx, org.ID, prop.ID, "Jonas")

	s := userstore.New(db)
	u, err := s.Create(ctx, models.User{FullName: "Jonas", Email: "jonas@test.local", Role: models.RoleTenant, OrganizationID: &org.ID, TenantID: &occ.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f := userstore.NewFetcher(db)
	su, err := f.FetchUser(ctx, u.ID.Hex())
	if err != nil {
		t.Fatalf("FetchUser: %v", err)
	}
	if su.OrganizationName != "Fetch Org" || su.PropertyID != prop.ID.Hex() || su.TenantID != occ.ID.Hex() {
		t.Errorf("session user = %+v", su)
	}

	if err := s.SetStatus(ctx, u.ID, models.UserDisabled); err != nil {
		t.Fatal(err)
	}
	if _, err := f.FetchUser(context.Background(), u.ID.Hex()); !errors.Is(err, auth.ErrUserInactive) {
		t.Errorf("disabled user: err = %v", err)
	}
}
