// internal/domain/models/invoice.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invoice statuses. A draft can be edited, recalculated and deleted; once
// finalized an invoice is immutable except for being marked paid.
const (
	InvoiceDraft     = "draft"
	InvoiceFinalized = "finalized"
	InvoicePaid      = "paid"
)

// InvoiceStatuses lists statuses in lifecycle order.
var InvoiceStatuses = []string{InvoiceDraft, InvoiceFinalized, InvoicePaid}

// ItemSnapshot freezes the inputs an invoice line was computed from.
type ItemSnapshot struct {
	MeterID         *primitive.ObjectID  `bson:"meter_id,omitempty" json:"meter_id,omitempty"`
	MeterSerial     string               `bson:"meter_serial,omitempty" json:"meter_serial,omitempty"`
	StartReadingID  *primitive.ObjectID  `bson:"start_reading_id,omitempty" json:"start_reading_id,omitempty"`
	StartValue      string               `bson:"start_value,omitempty" json:"start_value,omitempty"`
	StartDate       string               `bson:"start_date,omitempty" json:"start_date,omitempty"`
	EndReadingID    *primitive.ObjectID  `bson:"end_reading_id,omitempty" json:"end_reading_id,omitempty"`
	EndValue        string               `bson:"end_value,omitempty" json:"end_value,omitempty"`
	EndDate         string               `bson:"end_date,omitempty" json:"end_date,omitempty"`
	Zone            string               `bson:"zone,omitempty" json:"zone,omitempty"`
	TariffID        *primitive.ObjectID  `bson:"tariff_id,omitempty" json:"tariff_id,omitempty"`
	TariffName      string               `bson:"tariff_name,omitempty" json:"tariff_name,omitempty"`
	TariffConfig    *TariffConfiguration `bson:"tariff_configuration,omitempty" json:"tariff_configuration,omitempty"`
	BuildingID      *primitive.ObjectID  `bson:"building_id,omitempty" json:"building_id,omitempty"`
	CalculationType string               `bson:"calculation_type,omitempty" json:"calculation_type,omitempty"`
	CalculationDate string               `bson:"calculation_date,omitempty" json:"calculation_date,omitempty"`
}

// InvoiceItem is one billed line.
type InvoiceItem struct {
	Description string          `bson:"description" json:"description"`
	Quantity    decimal.Decimal `bson:"quantity" json:"quantity"`
	Unit        string          `bson:"unit" json:"unit"`
	UnitPrice   decimal.Decimal `bson:"unit_price" json:"unit_price"`
	Total       decimal.Decimal `bson:"total" json:"total"`
	Snapshot    *ItemSnapshot   `bson:"snapshot,omitempty" json:"snapshot,omitempty"`
}

// Invoice bills one tenant for one period.
type Invoice struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	TenantID       primitive.ObjectID `bson:"tenant_id" json:"tenant_id"`
	PropertyID     primitive.ObjectID `bson:"property_id" json:"property_id"`
	Number         string             `bson:"number" json:"number"`

	PeriodStart time.Time `bson:"billing_period_start" json:"billing_period_start"`
	PeriodEnd   time.Time `bson:"billing_period_end" json:"billing_period_end"`
	DueDate     time.Time `bson:"due_date" json:"due_date"`

	Status      string          `bson:"status" json:"status"`
	TotalAmount decimal.Decimal `bson:"total_amount" json:"total_amount"`
	Items       []InvoiceItem   `bson:"items" json:"items"`

	FinalizedAt *time.Time `bson:"finalized_at,omitempty" json:"finalized_at,omitempty"`
	PaidAt      *time.Time `bson:"paid_at,omitempty" json:"paid_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsDraft reports whether the invoice can still change.
func (i Invoice) IsDraft() bool { return i.Status == InvoiceDraft }

// IsFinalized reports whether the invoice has been finalized but not paid.
func (i Invoice) IsFinalized() bool { return i.Status == InvoiceFinalized }

// IsPaid reports whether the invoice has been paid.
func (i Invoice) IsPaid() bool { return i.Status == InvoicePaid }

// IsOverdue reports whether a finalized invoice is past its due date.
func (i Invoice) IsOverdue(now time.Time) bool {
	return i.Status == InvoiceFinalized && now.After(i.DueDate)
}
