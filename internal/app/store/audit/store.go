// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/storeutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth    = "auth"
	CategoryAdmin   = "admin"
	CategoryBilling = "billing"
)

// Categories lists the categories in filter order.
var Categories = []string{CategoryAuth, CategoryAdmin, CategoryBilling}

// Auth event types
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUserNotFound  = "login_failed_user_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedUserDisabled  = "login_failed_user_disabled"
	EventLoginFailedRateLimit     = "login_failed_rate_limit"
	EventLogout                   = "logout"
	EventPasswordChanged          = "password_changed"
)

// Admin event types
const (
	EventOrgCreated          = "org_created"
	EventOrgSuspended        = "org_suspended"
	EventOrgReactivated      = "org_reactivated"
	EventSubscriptionRenewed = "subscription_renewed"
	EventPlanChanged         = "subscription_plan_changed"
	EventUserCreated         = "user_created"
	EventUserUpdated         = "user_updated"
	EventUserDisabled        = "user_disabled"
	EventUserEnabled         = "user_enabled"
	EventTariffCreated       = "tariff_created"
	EventTariffUpdated       = "tariff_updated"
	EventTenantReassigned    = "tenant_reassigned"

	EventOrgUpdated        = "org_updated"
	EventBuildingCreated   = "building_created"
	EventBuildingUpdated   = "building_updated"
	EventBuildingDeleted   = "building_deleted"
	EventPropertyCreated   = "property_created"
	EventPropertyUpdated   = "property_updated"
	EventPropertyDeleted   = "property_deleted"
	EventTenantCreated     = "tenant_created"
	EventTenantUpdated     = "tenant_updated"
	EventTenantActivated   = "tenant_activated"
	EventTenantDeactivated = "tenant_deactivated"
	EventTenantDeleted     = "tenant_deleted"
	EventProviderCreated   = "provider_created"
	EventProviderUpdated   = "provider_updated"
	EventProviderDeleted   = "provider_deleted"
	EventTariffDeleted     = "tariff_deleted"
	EventMeterCreated      = "meter_created"
	EventMeterUpdated      = "meter_updated"
	EventMeterDeleted      = "meter_deleted"
)

// Billing event types
const (
	EventReadingCreated    = "reading_created"
	EventReadingUpdated    = "reading_updated"
	EventReadingDeleted    = "reading_deleted"
	EventCirculationRecalc = "circulation_recalculated"
	EventInvoiceGenerated  = "invoice_generated"
	EventInvoiceFinalized  = "invoice_finalized"
	EventInvoicePaid       = "invoice_paid"
	EventInvoiceDeleted    = "invoice_deleted"
	EventInvoiceRecomputed = "invoice_recalculated"
	EventReportExported    = "report_exported"
)

// Event is one audit record.
type Event struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty"`
	CreatedAt      time.Time           `bson:"created_at"`
	OrganizationID *primitive.ObjectID `bson:"organization_id,omitempty"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// ActorID performed the action; TargetID is the record acted on.
	ActorID  *primitive.ObjectID `bson:"actor_id,omitempty"`
	TargetID *primitive.ObjectID `bson:"target_id,omitempty"`

	IP        string `bson:"ip"`
	UserAgent string `bson:"user_agent,omitempty"`

	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter narrows Query and Count.
type QueryFilter struct {
	OrganizationID *primitive.ObjectID
	ActorID        *primitive.ObjectID
	TargetID       *primitive.ObjectID
	Category       string
	EventType      string
	StartTime      *time.Time
	EndTime        *time.Time
	Limit          int64
	Offset         int64
}

func (f QueryFilter) bson() bson.M {
	q := bson.M{}
	if f.OrganizationID != nil {
		q["organization_id"] = *f.OrganizationID
	}
	if f.ActorID != nil {
		q["actor_id"] = *f.ActorID
	}
	if f.TargetID != nil {
		q["target_id"] = *f.TargetID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if f.StartTime != nil || f.EndTime != nil {
		tq := bson.M{}
		if f.StartTime != nil {
			tq["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			tq["$lte"] = *f.EndTime
		}
		q["created_at"] = tq
	}
	return q
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_log")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query returns matching events, newest first. Limit defaults to 100.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)
	return storeutil.All[Event](ctx, s.c, filter.bson(), opts)
}

// Count returns the number of events matching filter.
func (s *Store) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.bson())
}

// ForTarget returns the history of one record.
func (s *Store) ForTarget(ctx context.Context, targetID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{TargetID: &targetID, Limit: limit})
}
