// internal/domain/models/meter.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Meter types.
const (
	MeterElectricity = "electricity"
	MeterWaterCold   = "water_cold"
	MeterWaterHot    = "water_hot"
	MeterHeating     = "heating"
)

// MeterTypes lists every meter type in display order.
var MeterTypes = []string{MeterElectricity, MeterWaterCold, MeterWaterHot, MeterHeating}

// Service types offered by providers.
const (
	ServiceElectricity = "electricity"
	ServiceWater       = "water"
	ServiceHeating     = "heating"
)

// ServiceTypes lists every provider service type.
var ServiceTypes = []string{ServiceElectricity, ServiceWater, ServiceHeating}

// ServiceTypeFor maps a meter type to the provider service that bills it.
func ServiceTypeFor(meterType string) string {
	switch meterType {
	case MeterWaterCold, MeterWaterHot:
		return ServiceWater
	case MeterHeating:
		return ServiceHeating
	default:
		return ServiceElectricity
	}
}

// UnitFor returns the consumption unit of a meter type.
func UnitFor(meterType string) string {
	switch meterType {
	case MeterWaterCold, MeterWaterHot:
		return "m³"
	default:
		return "kWh"
	}
}

// IsWater reports whether meterType measures water.
func IsWater(meterType string) bool {
	return meterType == MeterWaterCold || meterType == MeterWaterHot
}

// IsValidMeterType reports whether t is a known meter type.
func IsValidMeterType(t string) bool {
	for _, mt := range MeterTypes {
		if mt == t {
			return true
		}
	}
	return false
}

// Meter records consumption for one service at one property.
type Meter struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID   primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	PropertyID       primitive.ObjectID `bson:"property_id" json:"property_id"`
	SerialNumber     string             `bson:"serial_number" json:"serial_number"`
	Type             string             `bson:"type" json:"type"`
	SupportsZones    bool               `bson:"supports_zones" json:"supports_zones"`
	InstallationDate time.Time          `bson:"installation_date" json:"installation_date"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// MeterReading is a cumulative register value taken on a date. Zone-capable
// meters record one reading per zone.
type MeterReading struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OrganizationID primitive.ObjectID  `bson:"organization_id" json:"organization_id"`
	MeterID        primitive.ObjectID  `bson:"meter_id" json:"meter_id"`
	ReadingDate    time.Time           `bson:"reading_date" json:"reading_date"`
	Value          decimal.Decimal     `bson:"value" json:"value"`
	Zone           *string             `bson:"zone,omitempty" json:"zone,omitempty"`
	EnteredBy      *primitive.ObjectID `bson:"entered_by,omitempty" json:"entered_by,omitempty"`
	Notes          string              `bson:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ZoneName returns the zone or "" when the reading is not zoned.
func (r MeterReading) ZoneName() string {
	if r.Zone == nil {
		return ""
	}
	return *r.Zone
}

// Provider supplies one service type and publishes tariffs.
type Provider struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	Name           string             `bson:"name" json:"name"`
	NameCI         string             `bson:"name_ci" json:"-"`
	ServiceType    string             `bson:"service_type" json:"service_type"`
	Contact        string             `bson:"contact,omitempty" json:"contact,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
