// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session: fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// HasAnyRole reports whether the current user holds one of roles.
func HasAnyRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if role == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports whether the current user administers the platform.
func IsSuperAdmin(r *http.Request) bool { return HasAnyRole(r, models.RoleSuperAdmin) }

// IsAdmin reports whether the current user is an organization admin.
func IsAdmin(r *http.Request) bool { return HasAnyRole(r, models.RoleAdmin) }

// IsStaff reports whether the current user manages an organization's
// properties (admin or manager).
func IsStaff(r *http.Request) bool { return HasAnyRole(r, models.RoleAdmin, models.RoleManager) }

// IsTenant reports whether the current user is a billed occupant.
func IsTenant(r *http.Request) bool { return HasAnyRole(r, models.RoleTenant) }

// UserOrgID returns the current user's organization, or NilObjectID.
func UserOrgID(r *http.Request) primitive.ObjectID {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID
	}
	return hexOrNil(user.OrganizationID)
}

// UserTenantID returns the tenant record linked to a tenant user.
func UserTenantID(r *http.Request) primitive.ObjectID {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID
	}
	return hexOrNil(user.TenantID)
}

// UserPropertyID returns the property a tenant user occupies.
func UserPropertyID(r *http.Request) primitive.ObjectID {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID
	}
	return hexOrNil(user.PropertyID)
}

func hexOrNil(s string) primitive.ObjectID {
	if s == "" {
		return primitive.NilObjectID
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}
