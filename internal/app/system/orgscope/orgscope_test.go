package orgscope

import (
	"testing"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFromUser(t *testing.T) {
	org := primitive.NewObjectID()
	tenant := primitive.NewObjectID()
	prop := primitive.NewObjectID()

	if s := FromUser(&auth.SessionUser{Role: "superadmin"}); !s.All {
		t.Error("superadmin must see all organizations")
	}

	s := FromUser(&auth.SessionUser{Role: "manager", OrganizationID: org.Hex()})
	if s.All || s.OrgID != org || s.IsTenant() {
		t.Errorf("manager scope = %+v", s)
	}

	s = FromUser(&auth.SessionUser{Role: "tenant", OrganizationID: org.Hex(), TenantID: tenant.Hex(), PropertyID: prop.Hex()})
	if !s.IsTenant() || s.PropertyID != prop {
		t.Errorf("tenant scope = %+v", s)
	}

	if s := FromUser(nil); s.All || !s.OrgID.IsZero() {
		t.Errorf("nil user scope = %+v", s)
	}
}

func TestFilters(t *testing.T) {
	org := primitive.NewObjectID()
	prop := primitive.NewObjectID()
	tenant := primitive.NewObjectID()

	all := Scope{All: true}
	if f := all.Filter(bson.M{"status": "draft"}); len(f) != 1 {
		t.Errorf("superadmin filter = %v", f)
	}

	s := Scope{OrgID: org, TenantID: tenant, PropertyID: prop}
	f := s.PropertyFilter(nil, "property_id")
	if f["organization_id"] != org || f["property_id"] != prop {
		t.Errorf("property filter = %v", f)
	}
	f = s.TenantFilter(bson.M{}, "tenant_id")
	if f["tenant_id"] != tenant {
		t.Errorf("tenant filter = %v", f)
	}

	if !s.Owns(org) || s.Owns(primitive.NewObjectID()) {
		t.Error("Owns mismatch")
	}
	if (Scope{}).Owns(primitive.NilObjectID) {
		t.Error("empty scope must own nothing")
	}
}
