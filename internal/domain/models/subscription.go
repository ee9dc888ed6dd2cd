package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subscription plans.
const (
	PlanBasic        = "basic"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// Subscription statuses.
const (
	SubscriptionActive    = "active"
	SubscriptionExpired   = "expired"
	SubscriptionSuspended = "suspended"
	SubscriptionCancelled = "cancelled"
)

// PlanLimits are the default quotas granted by each plan.
var PlanLimits = map[string]struct{ Properties, Tenants int }{
	PlanBasic:        {Properties: 10, Tenants: 50},
	PlanProfessional: {Properties: 50, Tenants: 250},
	PlanEnterprise:   {Properties: 1000, Tenants: 5000},
}

// Subscription gates write access for an organization's admins and managers.
type Subscription struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	PlanType       string             `bson:"plan_type" json:"plan_type"`
	Status         string             `bson:"status" json:"status"`
	StartsAt       time.Time          `bson:"starts_at" json:"starts_at"`
	ExpiresAt      time.Time          `bson:"expires_at" json:"expires_at"`
	MaxProperties  int                `bson:"max_properties" json:"max_properties"`
	MaxTenants     int                `bson:"max_tenants" json:"max_tenants"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsActive reports whether the subscription is active and unexpired at now.
func (s Subscription) IsActive(now time.Time) bool {
	return s.Status == SubscriptionActive && s.ExpiresAt.After(now)
}

// IsExpired reports whether the subscription has passed its expiry date or
// is otherwise no longer active.
func (s Subscription) IsExpired(now time.Time) bool {
	return !s.IsActive(now)
}

// DaysUntilExpiry returns whole days left; negative once expired.
func (s Subscription) DaysUntilExpiry(now time.Time) int {
	return int(math.Floor(s.ExpiresAt.Sub(now).Hours() / 24))
}
