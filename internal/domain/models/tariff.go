// internal/domain/models/tariff.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tariff types.
const (
	TariffFlat      = "flat"
	TariffTimeOfUse = "time_of_use"
)

// Weekend handling for time-of-use tariffs.
const (
	WeekendNightRate   = "apply_night_rate"
	WeekendDayRate     = "apply_day_rate"
	WeekendWeekendRate = "apply_weekend_rate"
)

// TariffZone is a time-of-day band. Start and End are "HH:MM"; the band
// may cross midnight (e.g. 23:00-07:00).
type TariffZone struct {
	ID    string          `bson:"id" json:"id" yaml:"id"`
	Start string          `bson:"start" json:"start" yaml:"start"`
	End   string          `bson:"end" json:"end" yaml:"end"`
	Rate  decimal.Decimal `bson:"rate" json:"rate" yaml:"rate"`
}

// TariffConfiguration is the pricing rule stored with a tariff and copied
// into invoice item snapshots.
type TariffConfiguration struct {
	Type         string           `bson:"type" json:"type" yaml:"type"`
	Currency     string           `bson:"currency" json:"currency" yaml:"currency"`
	Rate         decimal.Decimal  `bson:"rate" json:"rate" yaml:"rate"`
	Zones        []TariffZone     `bson:"zones,omitempty" json:"zones,omitempty" yaml:"zones,omitempty"`
	WeekendLogic string           `bson:"weekend_logic,omitempty" json:"weekend_logic,omitempty" yaml:"weekend_logic,omitempty"`
	FixedFee     *decimal.Decimal `bson:"fixed_fee,omitempty" json:"fixed_fee,omitempty" yaml:"fixed_fee,omitempty"`
}

// Tariff is a provider's price list valid over a date range. ActiveUntil nil
// means open-ended.
type Tariff struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OrganizationID primitive.ObjectID  `bson:"organization_id" json:"organization_id"`
	ProviderID     *primitive.ObjectID `bson:"provider_id,omitempty" json:"provider_id,omitempty"`
	RemoteID       string              `bson:"remote_id,omitempty" json:"remote_id,omitempty"`
	Name           string              `bson:"name" json:"name"`
	NameCI         string              `bson:"name_ci" json:"-"`

	Configuration TariffConfiguration `bson:"configuration" json:"configuration"`

	ActiveFrom  time.Time  `bson:"active_from" json:"active_from"`
	ActiveUntil *time.Time `bson:"active_until,omitempty" json:"active_until,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsActiveOn reports whether the tariff applies on date t.
func (t Tariff) IsActiveOn(at time.Time) bool {
	if at.Before(t.ActiveFrom) {
		return false
	}
	return t.ActiveUntil == nil || !at.After(*t.ActiveUntil)
}
