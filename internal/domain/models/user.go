// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles, from widest to narrowest reach.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleTenant     = "tenant"
)

// Roles lists every valid role.
var Roles = []string{RoleSuperAdmin, RoleAdmin, RoleManager, RoleTenant}

// User statuses.
const (
	UserActive   = "active"
	UserDisabled = "disabled"
)

// User is anyone who can sign in. Superadmins have no organization; tenant
// users are linked to the occupant record they represent.
type User struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OrganizationID *primitive.ObjectID `bson:"organization_id,omitempty" json:"organization_id,omitempty"`
	TenantID       *primitive.ObjectID `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`

	FullName     string `bson:"full_name" json:"full_name"`
	FullNameCI   string `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped
	Email        string `bson:"email" json:"email"`
	PasswordHash string `bson:"password_hash,omitempty" json:"-"`
	Role         string `bson:"role" json:"role"`
	Status       string `bson:"status" json:"status"`
	Locale       string `bson:"locale,omitempty" json:"locale,omitempty"`

	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}
