// Package billingsource reads the tenant, property, meter and reading
// records an invoice is computed from.
package billingsource

import (
	"context"
	"time"

	buildingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/buildings"
	invoicestore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/invoices"
	meterstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/meters"
	propertystore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/properties"
	providerstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/providers"
	readingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/readings"
	tariffstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/tariffs"
	tenantstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/tenants"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/billing"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/circulation"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/tariff"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Source implements billing.Source over the Mongo stores.
type Source struct {
	tenants    *tenantstore.Store
	properties *propertystore.Store
	buildings  *buildingstore.Store
	meters     *meterstore.Store
	readings   *readingstore.Store
	providers  *providerstore.Store
}

// New creates a Source backed by db.
func New(db *mongo.Database) *Source {
	return &Source{
		tenants:    tenantstore.New(db),
		properties: propertystore.New(db),
		buildings:  buildingstore.New(db),
		meters:     meterstore.New(db),
		readings:   readingstore.New(db),
		providers:  providerstore.New(db),
	}
}

func (s *Source) GetTenant(ctx context.Context, id primitive.ObjectID) (*models.Tenant, error) {
	t, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Source) GetProperty(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	p, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Source) GetBuilding(ctx context.Context, id primitive.ObjectID) (*models.Building, error) {
	b, err := s.buildings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Source) ListMeters(ctx context.Context, propertyID primitive.ObjectID) ([]models.Meter, error) {
	return s.meters.ListByProperty(ctx, propertyID)
}

func (s *Source) ListReadings(ctx context.Context, meterIDs []primitive.ObjectID, from, to time.Time) ([]models.MeterReading, error) {
	return s.readings.ListForMeters(ctx, meterIDs, from, to)
}

// FindProvider returns nil, nil when the organization has no provider for
// the service.
func (s *Source) FindProvider(ctx context.Context, orgID primitive.ObjectID, serviceType string) (*models.Provider, error) {
	p, err := s.providers.FindByService(ctx, orgID, serviceType)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// NewService wires a billing service over db. circ may be nil.
func NewService(db *mongo.Database, cfg billing.Config, circ *circulation.Calculator, log *zap.Logger) *billing.Service {
	return billing.NewService(cfg, New(db), invoicestore.New(db), tariff.NewResolver(tariffstore.New(db)), circ, log)
}
