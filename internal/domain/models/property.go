// internal/domain/models/property.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Building groups apartments that share hot-water circulation.
type Building struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID  primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	Name            string             `bson:"name" json:"name"`
	NameCI          string             `bson:"name_ci" json:"-"`
	Address         string             `bson:"address" json:"address"`
	TotalApartments int                `bson:"total_apartments" json:"total_apartments"`

	// Circulation energy averaged over the last complete summer, reused in
	// the heating season.
	CirculationSummerAverage *decimal.Decimal `bson:"circulation_summer_average,omitempty" json:"circulation_summer_average,omitempty"`
	CirculationCalculatedAt  *time.Time       `bson:"circulation_calculated_at,omitempty" json:"circulation_calculated_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// MaxApartments bounds Building.TotalApartments.
const MaxApartments = 1000

// Property types.
const (
	PropertyApartment = "apartment"
	PropertyHouse     = "house"
)

// Property is a billable unit. Apartments usually belong to a building.
type Property struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OrganizationID primitive.ObjectID  `bson:"organization_id" json:"organization_id"`
	BuildingID     *primitive.ObjectID `bson:"building_id,omitempty" json:"building_id,omitempty"`
	Address        string              `bson:"address" json:"address"`
	AddressCI      string              `bson:"address_ci" json:"-"`
	UnitNumber     string              `bson:"unit_number,omitempty" json:"unit_number,omitempty"`
	Type           string              `bson:"type" json:"type"`
	AreaSqm        decimal.Decimal     `bson:"area_sqm" json:"area_sqm"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Label is the address with the unit number appended when present.
func (p Property) Label() string {
	if p.UnitNumber == "" {
		return p.Address
	}
	return p.Address + ", " + p.UnitNumber
}

// Tenant is the billed occupant of a property. Not to be confused with the
// organization, which is the multi-tenancy boundary.
type Tenant struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	PropertyID     primitive.ObjectID `bson:"property_id" json:"property_id"`
	Name           string             `bson:"name" json:"name"`
	NameCI         string             `bson:"name_ci" json:"-"`
	Email          string             `bson:"email" json:"email"`
	Phone          string             `bson:"phone,omitempty" json:"phone,omitempty"`
	LeaseStart     time.Time          `bson:"lease_start" json:"lease_start"`
	LeaseEnd       *time.Time         `bson:"lease_end,omitempty" json:"lease_end,omitempty"`
	Active         bool               `bson:"active" json:"active"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
