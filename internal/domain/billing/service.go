// Package billing turns meter readings into invoices and moves invoices
// through their draft -> finalized -> paid lifecycle.
package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/circulation"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/tariff"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// CirculationItemDescription labels the hot-water circulation line.
const CirculationItemDescription = "Gyvatukas (Hot Water Circulation)"

// CirculationCalculationType is recorded on the circulation line snapshot.
const CirculationCalculationType = "gyvatukas"

// Source loads the records an invoice is computed from.
type Source interface {
	GetTenant(ctx context.Context, id primitive.ObjectID) (*models.Tenant, error)
	GetProperty(ctx context.Context, id primitive.ObjectID) (*models.Property, error)
	GetBuilding(ctx context.Context, id primitive.ObjectID) (*models.Building, error)
	ListMeters(ctx context.Context, propertyID primitive.ObjectID) ([]models.Meter, error)
	ListReadings(ctx context.Context, meterIDs []primitive.ObjectID, from, to time.Time) ([]models.MeterReading, error)
	FindProvider(ctx context.Context, orgID primitive.ObjectID, serviceType string) (*models.Provider, error)
}

// Invoices persists invoices.
type Invoices interface {
	Create(ctx context.Context, inv models.Invoice) (models.Invoice, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Invoice, error)
	ReplaceDraftItems(ctx context.Context, id primitive.ObjectID, items []models.InvoiceItem, total decimal.Decimal) error
	Transition(ctx context.Context, id primitive.ObjectID, from, to string, at time.Time) error
	DeleteDraft(ctx context.Context, id primitive.ObjectID) error
	ListDraftsForProperty(ctx context.Context, propertyID primitive.ObjectID) ([]models.Invoice, error)
}

// Config holds billing constants.
type Config struct {
	DueDays       int
	ReadingWindow time.Duration
	WaterSupply   decimal.Decimal
	WaterSewage   decimal.Decimal
	WaterFixedFee decimal.Decimal
}

// DefaultConfig returns the standard billing constants.
func DefaultConfig() Config {
	return Config{
		DueDays:       14,
		ReadingWindow: 7 * 24 * time.Hour,
		WaterSupply:   decimal.RequireFromString("0.97"),
		WaterSewage:   decimal.RequireFromString("1.23"),
		WaterFixedFee: decimal.RequireFromString("0.85"),
	}
}

// Service generates and transitions invoices.
type Service struct {
	cfg         Config
	src         Source
	invoices    Invoices
	resolver    *tariff.Resolver
	circulation *circulation.Calculator
	log         *zap.Logger
	now         func() time.Time
}

// NewService wires a billing service. circ may be nil to disable the
// circulation line.
func NewService(cfg Config, src Source, invoices Invoices, resolver *tariff.Resolver, circ *circulation.Calculator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		cfg:         cfg,
		src:         src,
		invoices:    invoices,
		resolver:    resolver,
		circulation: circ,
		log:         log,
		now:         time.Now,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GenerateInvoice computes and stores a draft invoice for the tenant.
func (s *Service) GenerateInvoice(ctx context.Context, tenantID primitive.ObjectID, periodStart, periodEnd time.Time) (models.Invoice, error) {
	inv, err := s.Compute(ctx, tenantID, periodStart, periodEnd)
	if err != nil {
		return models.Invoice{}, err
	}

	created, err := s.invoices.Create(ctx, inv)
	if err != nil {
		return models.Invoice{}, fmt.Errorf("store invoice: %w", err)
	}

	s.log.Info("invoice generated",
		zap.String("invoice_id", created.ID.Hex()),
		zap.String("number", created.Number),
		zap.String("tenant_id", tenantID.Hex()),
		zap.String("total", created.TotalAmount.StringFixed(2)),
		zap.Int("items", len(created.Items)))

	return created, nil
}

// Compute builds a draft invoice without storing it.
func (s *Service) Compute(ctx context.Context, tenantID primitive.ObjectID, periodStart, periodEnd time.Time) (models.Invoice, error) {
	if periodEnd.Before(periodStart) {
		return models.Invoice{}, ErrInvalidPeriod
	}

	tenant, err := s.src.GetTenant(ctx, tenantID)
	if err != nil {
		return models.Invoice{}, fmt.Errorf("load tenant: %w", err)
	}
	if tenant.PropertyID.IsZero() {
		return models.Invoice{}, ErrNoProperty
	}

	property, err := s.src.GetProperty(ctx, tenant.PropertyID)
	if notFound(property, err) {
		return models.Invoice{}, ErrNoProperty
	}
	if err != nil {
		return models.Invoice{}, fmt.Errorf("load property: %w", err)
	}

	meters, err := s.src.ListMeters(ctx, property.ID)
	if err != nil {
		return models.Invoice{}, fmt.Errorf("load meters: %w", err)
	}
	if len(meters) == 0 {
		return models.Invoice{}, ErrNoMeters
	}

	meterIDs := make([]primitive.ObjectID, 0, len(meters))
	for _, m := range meters {
		meterIDs = append(meterIDs, m.ID)
	}
	readings, err := s.src.ListReadings(ctx, meterIDs,
		periodStart.Add(-s.cfg.ReadingWindow), periodEnd.Add(s.cfg.ReadingWindow))
	if err != nil {
		return models.Invoice{}, fmt.Errorf("load readings: %w", err)
	}
	byMeter := make(map[primitive.ObjectID][]models.MeterReading, len(meters))
	for _, r := range readings {
		byMeter[r.MeterID] = append(byMeter[r.MeterID], r)
	}

	run := &generation{
		svc:      s,
		property: property,
		start:    periodStart,
		end:      periodEnd,
		tariffs:  map[primitive.ObjectID]models.Tariff{},
		provider: map[string]*models.Provider{},
	}

	var items []models.InvoiceItem
	processed := false
	for _, m := range meters {
		meterItems, err := run.itemsForMeter(ctx, m, byMeter[m.ID])
		if err != nil {
			var missing *MissingReadingError
			if !errors.As(err, &missing) {
				return models.Invoice{}, err
			}
			s.log.Warn("missing meter reading",
				zap.String("meter_id", m.ID.Hex()),
				zap.String("meter_type", m.Type),
				zap.Error(err))
			if len(meters) == 1 || !processed {
				return models.Invoice{}, err
			}
			continue
		}
		items = append(items, meterItems...)
		processed = true
	}

	if property.BuildingID != nil && s.circulation != nil {
		if item, ok := run.circulationItem(ctx); ok {
			items = append(items, item)
		}
	}

	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total)
	}

	now := s.now()
	return models.Invoice{
		OrganizationID: tenant.OrganizationID,
		TenantID:       tenant.ID,
		PropertyID:     property.ID,
		Number:         InvoiceNumber(periodStart),
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		DueDate:        periodEnd.AddDate(0, 0, s.cfg.DueDays),
		Status:         models.InvoiceDraft,
		TotalAmount:    total.Round(2),
		Items:          items,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// generation carries per-invoice lookups so providers and tariffs are
// resolved once per invoice.
type generation struct {
	svc      *Service
	property *models.Property
	start    time.Time
	end      time.Time
	tariffs  map[primitive.ObjectID]models.Tariff
	provider map[string]*models.Provider
}

func (g *generation) itemsForMeter(ctx context.Context, m models.Meter, readings []models.MeterReading) ([]models.InvoiceItem, error) {
	var items []models.InvoiceItem

	zones := []*string{nil}
	if m.SupportsZones {
		zones = zonesInPeriod(readings, g.start, g.end)
	}

	for _, zone := range zones {
		item, ok, err := g.itemForZone(ctx, m, zone, readings)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, item)
		}
	}

	if models.IsWater(m.Type) {
		meterID := m.ID
		fee := g.svc.cfg.WaterFixedFee
		items = append(items, models.InvoiceItem{
			Description: MeterLabel(m.Type) + " - Fixed Fee",
			Quantity:    decimal.NewFromInt(1),
			Unit:        "month",
			UnitPrice:   fee,
			Total:       fee,
			Snapshot: &models.ItemSnapshot{
				MeterID:         &meterID,
				MeterSerial:     m.SerialNumber,
				CalculationType: "fixed_monthly",
			},
		})
	}
	return items, nil
}

func (g *generation) itemForZone(ctx context.Context, m models.Meter, zone *string, readings []models.MeterReading) (models.InvoiceItem, bool, error) {
	startR, ok := ReadingAtOrBefore(readings, zone, g.start)
	if !ok {
		return models.InvoiceItem{}, false, &MissingReadingError{MeterID: m.ID, MeterSerial: m.SerialNumber, Zone: deref(zone), Date: g.start}
	}
	endR, ok := ReadingAtOrAfter(readings, zone, g.end)
	if !ok {
		return models.InvoiceItem{}, false, &MissingReadingError{MeterID: m.ID, MeterSerial: m.SerialNumber, Zone: deref(zone), Date: g.end}
	}

	consumption := endR.Value.Sub(startR.Value)
	if !consumption.IsPositive() {
		return models.InvoiceItem{}, false, nil
	}

	provider, err := g.providerFor(ctx, m.Type)
	if err != nil {
		return models.InvoiceItem{}, false, err
	}
	t, err := g.tariffFor(ctx, provider.ID)
	if err != nil {
		return models.InvoiceItem{}, false, err
	}

	var unitPrice, total decimal.Decimal
	if models.IsWater(m.Type) {
		total = consumption.Mul(g.svc.cfg.WaterSupply).Add(consumption.Mul(g.svc.cfg.WaterSewage)).Round(2)
		unitPrice = total.Div(consumption).Round(4)
	} else {
		cost := g.svc.resolver.CalculateCost(t.Configuration, consumption, g.start)
		unitPrice = cost.Div(consumption).Round(4)
		total = consumption.Mul(unitPrice).Round(2)
	}

	description := MeterLabel(m.Type)
	if zone != nil && *zone != "" {
		description += " (" + *zone + ")"
	}

	meterID, startID, endID, tariffID := m.ID, startR.ID, endR.ID, t.ID
	cfg := t.Configuration
	return models.InvoiceItem{
		Description: description,
		Quantity:    consumption.Round(2),
		Unit:        models.UnitFor(m.Type),
		UnitPrice:   unitPrice,
		Total:       total,
		Snapshot: &models.ItemSnapshot{
			MeterID:        &meterID,
			MeterSerial:    m.SerialNumber,
			StartReadingID: &startID,
			StartValue:     startR.Value.StringFixed(2),
			StartDate:      startR.ReadingDate.Format("2006-01-02"),
			EndReadingID:   &endID,
			EndValue:       endR.Value.StringFixed(2),
			EndDate:        endR.ReadingDate.Format("2006-01-02"),
			Zone:           deref(zone),
			TariffID:       &tariffID,
			TariffName:     t.Name,
			TariffConfig:   &cfg,
		},
	}, true, nil
}

func (g *generation) providerFor(ctx context.Context, meterType string) (*models.Provider, error) {
	service := models.ServiceTypeFor(meterType)
	if p, ok := g.provider[service]; ok {
		return p, nil
	}
	p, err := g.svc.src.FindProvider(ctx, g.property.OrganizationID, service)
	if notFound(p, err) {
		return nil, fmt.Errorf("%w %q", ErrNoProvider, service)
	}
	if err != nil {
		return nil, fmt.Errorf("load provider %q: %w", service, err)
	}
	g.provider[service] = p
	return p, nil
}

// notFound is true for a missing document or a nil result. Any other
// store error is not a billing problem and must reach the caller.
func notFound[T any](v *T, err error) bool {
	if err != nil {
		return errors.Is(err, mongo.ErrNoDocuments)
	}
	return v == nil
}

func (g *generation) tariffFor(ctx context.Context, providerID primitive.ObjectID) (models.Tariff, error) {
	if t, ok := g.tariffs[providerID]; ok {
		return t, nil
	}
	t, err := g.svc.resolver.Resolve(ctx, providerID, g.start)
	if err != nil {
		return models.Tariff{}, err
	}
	g.tariffs[providerID] = t
	return t, nil
}

func (g *generation) circulationItem(ctx context.Context) (models.InvoiceItem, bool) {
	b, err := g.svc.src.GetBuilding(ctx, *g.property.BuildingID)
	if err != nil || b == nil {
		g.svc.log.Warn("circulation skipped: building not found",
			zap.String("building_id", g.property.BuildingID.Hex()), zap.Error(err))
		return models.InvoiceItem{}, false
	}

	// Building-level amount, not split per apartment.
	fee, err := g.svc.circulation.Calculate(ctx, b, g.start)
	if err != nil {
		g.svc.log.Error("circulation calculation failed",
			zap.String("building_id", b.ID.Hex()), zap.Error(err))
		return models.InvoiceItem{}, false
	}
	fee = fee.Round(2)
	if !fee.IsPositive() {
		return models.InvoiceItem{}, false
	}

	buildingID := b.ID
	return models.InvoiceItem{
		Description: CirculationItemDescription,
		Quantity:    decimal.NewFromInt(1),
		Unit:        "month",
		UnitPrice:   fee,
		Total:       fee,
		Snapshot: &models.ItemSnapshot{
			BuildingID:      &buildingID,
			CalculationType: CirculationCalculationType,
			CalculationDate: g.start.Format("2006-01-02"),
		},
	}, true
}

// Finalize locks a draft invoice.
func (s *Service) Finalize(ctx context.Context, id primitive.ObjectID) (models.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return models.Invoice{}, err
	}
	if !inv.IsDraft() {
		return models.Invoice{}, ErrInvoiceFinalized
	}

	now := s.now()
	if err := s.invoices.Transition(ctx, id, models.InvoiceDraft, models.InvoiceFinalized, now); err != nil {
		return models.Invoice{}, err
	}
	inv.Status = models.InvoiceFinalized
	inv.FinalizedAt = &now

	s.log.Info("invoice finalized", zap.String("invoice_id", id.Hex()), zap.Time("finalized_at", now))
	return inv, nil
}

// MarkPaid records payment of a finalized invoice.
func (s *Service) MarkPaid(ctx context.Context, id primitive.ObjectID) (models.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return models.Invoice{}, err
	}
	if !inv.IsFinalized() {
		return models.Invoice{}, ErrNotFinalized
	}

	now := s.now()
	if err := s.invoices.Transition(ctx, id, models.InvoiceFinalized, models.InvoicePaid, now); err != nil {
		return models.Invoice{}, err
	}
	inv.Status = models.InvoicePaid
	inv.PaidAt = &now
	return inv, nil
}

// DeleteDraft removes a draft invoice.
func (s *Service) DeleteDraft(ctx context.Context, id primitive.ObjectID) error {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !inv.IsDraft() {
		return ErrInvoiceFinalized
	}
	return s.invoices.DeleteDraft(ctx, id)
}

// RecalculateDraft recomputes a draft's items from current readings.
func (s *Service) RecalculateDraft(ctx context.Context, id primitive.ObjectID) (models.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return models.Invoice{}, err
	}
	if !inv.IsDraft() {
		return models.Invoice{}, ErrInvoiceFinalized
	}

	fresh, err := s.Compute(ctx, inv.TenantID, inv.PeriodStart, inv.PeriodEnd)
	if err != nil {
		return models.Invoice{}, err
	}
	if err := s.invoices.ReplaceDraftItems(ctx, id, fresh.Items, fresh.TotalAmount); err != nil {
		return models.Invoice{}, err
	}
	inv.Items = fresh.Items
	inv.TotalAmount = fresh.TotalAmount
	return inv, nil
}

// RecalculateAffectedDrafts refreshes the property's drafts whose reading
// window contains any of readingDates. Each draft is recalculated at most
// once. Failures are logged and skipped.
func (s *Service) RecalculateAffectedDrafts(ctx context.Context, propertyID primitive.ObjectID, readingDates ...time.Time) int {
	if len(readingDates) == 0 {
		return 0
	}
	drafts, err := s.invoices.ListDraftsForProperty(ctx, propertyID)
	if err != nil {
		s.log.Error("list drafts for recalculation", zap.String("property_id", propertyID.Hex()), zap.Error(err))
		return 0
	}

	n := 0
	for _, d := range drafts {
		if !s.windowContainsAny(d, readingDates) {
			continue
		}
		if _, err := s.RecalculateDraft(ctx, d.ID); err != nil {
			s.log.Warn("draft recalculation failed", zap.String("invoice_id", d.ID.Hex()), zap.Error(err))
			continue
		}
		n++
	}
	return n
}

func (s *Service) windowContainsAny(inv models.Invoice, dates []time.Time) bool {
	from := inv.PeriodStart.Add(-s.cfg.ReadingWindow)
	to := inv.PeriodEnd.Add(s.cfg.ReadingWindow)
	for _, d := range dates {
		if !d.Before(from) && !d.After(to) {
			return true
		}
	}
	return false
}

// ReadingAtOrBefore returns the latest reading for zone taken on or before date.
func ReadingAtOrBefore(readings []models.MeterReading, zone *string, date time.Time) (models.MeterReading, bool) {
	var (
		best  models.MeterReading
		found bool
	)
	for _, r := range readings {
		if !sameZone(r.Zone, zone) || r.ReadingDate.After(date) {
			continue
		}
		if !found || r.ReadingDate.After(best.ReadingDate) {
			best, found = r, true
		}
	}
	return best, found
}

// ReadingAtOrAfter returns the earliest reading for zone taken on or after date.
func ReadingAtOrAfter(readings []models.MeterReading, zone *string, date time.Time) (models.MeterReading, bool) {
	var (
		best  models.MeterReading
		found bool
	)
	for _, r := range readings {
		if !sameZone(r.Zone, zone) || r.ReadingDate.Before(date) {
			continue
		}
		if !found || r.ReadingDate.Before(best.ReadingDate) {
			best, found = r, true
		}
	}
	return best, found
}

func zonesInPeriod(readings []models.MeterReading, start, end time.Time) []*string {
	seen := map[string]bool{}
	var names []string
	for _, r := range readings {
		if r.Zone == nil || *r.Zone == "" || r.ReadingDate.Before(start) || r.ReadingDate.After(end) {
			continue
		}
		if !seen[*r.Zone] {
			seen[*r.Zone] = true
			names = append(names, *r.Zone)
		}
	}
	sort.Strings(names)
	out := make([]*string, 0, len(names))
	for i := range names {
		out = append(out, &names[i])
	}
	return out
}

func sameZone(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MeterLabel is the English invoice label of a meter type.
func MeterLabel(meterType string) string {
	switch meterType {
	case models.MeterElectricity:
		return "Electricity"
	case models.MeterWaterCold:
		return "Cold Water"
	case models.MeterWaterHot:
		return "Hot Water"
	case models.MeterHeating:
		return "Heating"
	case "":
		return ""
	default:
		return strings.ToUpper(meterType[:1]) + meterType[1:]
	}
}

// InvoiceNumber returns a unique, human-readable invoice number.
func InvoiceNumber(periodStart time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("INV-%s-%s", periodStart.Format("200601"), strings.ToUpper(id[:8]))
}
