package billing

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNoProperty is returned when the tenant is not attached to a property.
	ErrNoProperty = errors.New("tenant has no property")
	// ErrNoMeters is returned when the tenant's property has no meters.
	ErrNoMeters = errors.New("property has no meters")
	// ErrNoProvider is returned when no provider offers a meter's service.
	ErrNoProvider = errors.New("no provider for service type")
	// ErrInvalidPeriod is returned when the period end precedes its start.
	ErrInvalidPeriod = errors.New("billing period end must not precede start")
	// ErrInvoiceFinalized is returned when changing an invoice that is no
	// longer a draft.
	ErrInvoiceFinalized = errors.New("invoice is already finalized")
	// ErrNotFinalized is returned when marking a draft as paid.
	ErrNotFinalized = errors.New("only finalized invoices can be marked paid")
)

// MissingReadingError reports a meter lacking a reading at a period edge.
type MissingReadingError struct {
	MeterID     primitive.ObjectID
	MeterSerial string
	Zone        string
	Date        time.Time
}

func (e *MissingReadingError) Error() string {
	zone := ""
	if e.Zone != "" {
		zone = fmt.Sprintf(" zone %s", e.Zone)
	}
	return fmt.Sprintf("missing reading for meter %s%s on %s", e.MeterSerial, zone, e.Date.Format("2006-01-02"))
}
