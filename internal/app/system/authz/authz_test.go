package authz_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func reqAs(u *auth.SessionUser) *http.Request {
	req := httptest.NewRequest("GET", "/test", nil)
	if u == nil {
		return req
	}
	return auth.WithTestUser(req, u)
}

func TestUserCtx_Visitor(t *testing.T) {
	role, name, id, ok := authz.UserCtx(reqAs(nil))
	if ok || role != "visitor" || name != "" || !id.IsZero() {
		t.Errorf("got %q %q %v %v", role, name, id, ok)
	}
}

func TestUserCtx_MalformedIDFailsClosed(t *testing.T) {
	_, _, _, ok := authz.UserCtx(reqAs(&auth.SessionUser{ID: "not-hex", Role: "admin"}))
	if ok {
		t.Error("malformed ID must not authenticate")
	}
}

func TestRoleHelpers(t *testing.T) {
	id := primitive.NewObjectID().Hex()
	tests := []struct {
		role                         string
		super, admin, staff, tenant bool
	}{
		{"superadmin", true, false, false, false},
		{"Admin", false, true, true, false},
		{"manager", false, false, true, false},
		{"tenant", false, false, false, true},
	}
	for _, tt := range tests {
		r := reqAs(&auth.SessionUser{ID: id, Role: tt.role})
		if authz.IsSuperAdmin(r) != tt.super || authz.IsAdmin(r) != tt.admin ||
			authz.IsStaff(r) != tt.staff || authz.IsTenant(r) != tt.tenant {
			t.Errorf("%s: helpers disagree", tt.role)
		}
	}
}

func TestScopeIDs(t *testing.T) {
	org, tenant, prop := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	r := reqAs(&auth.SessionUser{
		ID:             primitive.NewObjectID().Hex(),
		Role:           "tenant",
		OrganizationID: org.Hex(),
		TenantID:       tenant.Hex(),
		PropertyID:     prop.Hex(),
	})
	if authz.UserOrgID(r) != org || authz.UserTenantID(r) != tenant || authz.UserPropertyID(r) != prop {
		t.Error("scope IDs not decoded")
	}
	if !authz.UserOrgID(reqAs(nil)).IsZero() {
		t.Error("visitor has no organization")
	}
}
