// Package orgscope restricts list queries to what the signed-in user may see.
package orgscope

import (
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Scope is the visibility of one user. All is set for superadmins only.
// A zero OrgID on a non-All scope matches nothing.
type Scope struct {
	All        bool
	OrgID      primitive.ObjectID
	TenantID   primitive.ObjectID
	PropertyID primitive.ObjectID
}

// FromUser derives the scope of u. A nil user gets an empty scope.
func FromUser(u *auth.SessionUser) Scope {
	if u == nil {
		return Scope{}
	}
	if u.IsSuperAdmin() {
		return Scope{All: true}
	}
	s := Scope{}
	s.OrgID, _ = primitive.ObjectIDFromHex(u.OrganizationID)
	if u.Role == models.RoleTenant {
		s.TenantID, _ = primitive.ObjectIDFromHex(u.TenantID)
		s.PropertyID, _ = primitive.ObjectIDFromHex(u.PropertyID)
	}
	return s
}

// IsTenant reports whether the scope is narrowed to one occupant.
func (s Scope) IsTenant() bool { return !s.TenantID.IsZero() }

// Filter adds the organization restriction to f and returns it.
func (s Scope) Filter(f bson.M) bson.M {
	if f == nil {
		f = bson.M{}
	}
	if !s.All {
		f["organization_id"] = s.OrgID
	}
	return f
}

// PropertyFilter is Filter plus, for tenant users, their property on
// field (for example "property_id" or "_id").
func (s Scope) PropertyFilter(f bson.M, field string) bson.M {
	f = s.Filter(f)
	if s.IsTenant() {
		f[field] = s.PropertyID
	}
	return f
}

// TenantFilter is Filter plus, for tenant users, their occupant id on field.
func (s Scope) TenantFilter(f bson.M, field string) bson.M {
	f = s.Filter(f)
	if s.IsTenant() {
		f[field] = s.TenantID
	}
	return f
}

// Owns reports whether a record of orgID is inside the scope.
func (s Scope) Owns(orgID primitive.ObjectID) bool {
	return s.All || (!s.OrgID.IsZero() && s.OrgID == orgID)
}
