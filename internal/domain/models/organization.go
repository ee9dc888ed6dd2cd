// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization statuses.
const (
	OrgActive    = "active"
	OrgSuspended = "suspended"
)

// Organization is the multi-tenancy boundary. Every billing record carries
// the organization_id of the organization that owns it.
type Organization struct {
	ID     primitive.ObjectID `bson:"_id" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"-"`
	Slug   string             `bson:"slug" json:"slug"`
	Email  string             `bson:"email" json:"email"`
	Phone  string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Plan   string             `bson:"plan" json:"plan"`
	Status string             `bson:"status" json:"status"`

	MaxProperties int `bson:"max_properties" json:"max_properties"`
	MaxUsers      int `bson:"max_users" json:"max_users"`

	SuspendedAt      *time.Time `bson:"suspended_at,omitempty" json:"suspended_at,omitempty"`
	SuspensionReason string     `bson:"suspension_reason,omitempty" json:"suspension_reason,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsSuspended reports whether the organization is currently suspended.
func (o Organization) IsSuspended() bool {
	return o.Status == OrgSuspended
}
