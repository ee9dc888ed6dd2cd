package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures inserts domain records directly, bypassing stores.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a Fixtures for db.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database.
func (f *Fixtures) DB() *mongo.Database { return f.db }

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("insert into %s: %v", coll, err)
	}
}

// CreateOrganization inserts an active organization with an active
// subscription expiring in 30 days.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string) models.Organization {
	f.t.Helper()
	now := time.Now().UTC()
	org := models.Organization{
		ID:            primitive.NewObjectID(),
		Name:          name,
		NameCI:        text.Fold(name),
		Slug:          text.Fold(name),
		Email:         "office@test.local",
		Plan:          models.PlanProfessional,
		Status:        models.OrgActive,
		MaxProperties: 50,
		MaxUsers:      250,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.insert(ctx, "organizations", org)
	f.insert(ctx, "subscriptions", models.Subscription{
		ID:             primitive.NewObjectID(),
		OrganizationID: org.ID,
		PlanType:       models.PlanProfessional,
		Status:         models.SubscriptionActive,
		StartsAt:       now.AddDate(0, -1, 0),
		ExpiresAt:      now.AddDate(0, 0, 30),
		MaxProperties:  50,
		MaxTenants:     250,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	return org
}

// CreateUser inserts an active user of role in org (nil for superadmin).
func (f *Fixtures) CreateUser(ctx context.Context, orgID *primitive.ObjectID, name, email, role, passwordHash string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:             primitive.NewObjectID(),
		OrganizationID: orgID,
		FullName:       name,
		FullNameCI:     text.Fold(name),
		Email:          email,
		PasswordHash:   passwordHash,
		Role:           role,
		Status:         models.UserActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateBuilding inserts a building with n apartments.
func (f *Fixtures) CreateBuilding(ctx context.Context, orgID primitive.ObjectID, name string, apartments int) models.Building {
	f.t.Helper()
	now := time.Now().UTC()
	b := models.Building{
		ID:              primitive.NewObjectID(),
		OrganizationID:  orgID,
		Name:            name,
		NameCI:          text.Fold(name),
		Address:         name + " g. 1",
		TotalApartments: apartments,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.insert(ctx, "buildings", b)
	return b
}

// CreateProperty inserts an apartment, optionally inside a building.
func (f *Fixtures) CreateProperty(ctx context.Context, orgID primitive.ObjectID, buildingID *primitive.ObjectID, address string) models.Property {
	f.t.Helper()
	now := time.Now().UTC()
	p := models.Property{
		ID:             primitive.NewObjectID(),
		OrganizationID: orgID,
		BuildingID:     buildingID,
		Address:        address,
		AddressCI:      text.Fold(address),
		Type:           models.PropertyApartment,
		AreaSqm:        decimal.NewFromInt(55),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(ctx, "properties", p)
	return p
}

// CreateTenant inserts an active occupant of a property.
func (f *Fixtures) CreateTenant(ctx context.Context, orgID, propertyID primitive.ObjectID, name string) models.Tenant {
	f.t.Helper()
	now := time.Now().UTC()
	tn := models.Tenant{
		ID:             primitive.NewObjectID(),
		OrganizationID: orgID,
		PropertyID:     propertyID,
		Name:           name,
		NameCI:         text.Fold(name),
		Email:          "occupant@test.local",
		LeaseStart:     now.AddDate(-1, 0, 0),
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(ctx, "tenants", tn)
	return tn
}

// CreateProvider inserts a provider of serviceType.
func (f *Fixtures) CreateProvider(ctx context.Context, orgID primitive.ObjectID, name, serviceType string) models.Provider {
	f.t.Helper()
	now := time.Now().UTC()
	p := models.Provider{
		ID:             primitive.NewObjectID(),
		OrganizationID: orgID,
		Name:           name,
		NameCI:         text.Fold(name),
		ServiceType:    serviceType,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(ctx, "providers", p)
	return p
}

// CreateFlatTariff inserts an open-ended flat tariff for a provider.
func (f *Fixtures) CreateFlatTariff(ctx context.Context, orgID, providerID primitive.ObjectID, name string, rate decimal.Decimal, from time.Time) models.Tariff {
	f.t.Helper()
	now := time.Now().UTC()
	pid := providerID
	tr := models.Tariff{
		ID:             primitive.NewObjectID(),
		OrganizationID: orgID,
		ProviderID:     &pid,
		Name:           name,
		NameCI:         text.Fold(name),
		Configuration:  models.TariffConfiguration{Type: models.TariffFlat, Currency: "EUR", Rate: rate},
		ActiveFrom:     from,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(ctx, "tariffs", tr)
	return tr
}

// CreateMeter inserts a meter on a property.
func (f *Fixtures) CreateMeter(ctx context.Context, orgID, propertyID primitive.ObjectID, serial, meterType string, zones bool) models.Meter {
	f.t.Helper()
	now := time.Now().UTC()
	m := models.Meter{
		ID:               primitive.NewObjectID(),
		OrganizationID:   orgID,
		PropertyID:       propertyID,
		SerialNumber:     serial,
		Type:             meterType,
		SupportsZones:    zones,
		InstallationDate: now.AddDate(-2, 0, 0),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	f.insert(ctx, "meters", m)
	return m
}

// CreateReading inserts an unzoned reading.
func (f *Fixtures) CreateReading(ctx context.Context, m models.Meter, date time.Time, value decimal.Decimal) models.MeterReading {
	f.t.Helper()
	now := time.Now().UTC()
	rd := models.MeterReading{
		ID:             primitive.NewObjectID(),
		OrganizationID: m.OrganizationID,
		MeterID:        m.ID,
		ReadingDate:    date,
		Value:          value,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(ctx, "meter_readings", rd)
	return rd
}

// CreateInvoice inserts an invoice with one item totalling total.
func (f *Fixtures) CreateInvoice(ctx context.Context, orgID, tenantID, propertyID primitive.ObjectID, number, status string, total decimal.Decimal) models.Invoice {
	f.t.Helper()
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	inv := models.Invoice{
		ID:             primitive.NewObjectID(),
		OrganizationID: orgID,
		TenantID:       tenantID,
		PropertyID:     propertyID,
		Number:         number,
		PeriodStart:    start,
		PeriodEnd:      start.AddDate(0, 1, -1),
		DueDate:        start.AddDate(0, 1, 13),
		Status:         status,
		TotalAmount:    total,
		Items: []models.InvoiceItem{{
			Description: "Electricity",
			Quantity:    decimal.NewFromInt(1),
			Unit:        "kWh",
			UnitPrice:   total,
			Total:       total,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "invoices", inv)
	return inv
}
