package subscriptionstore

import (
	"context"
	"errors"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/storeutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrExists is returned when an organization already has a subscription.
var ErrExists = errors.New("organization already has a subscription")

// TrialDays is the length of the subscription created with an organization.
const TrialDays = 30

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("subscriptions")}
}

// Create inserts the organization's subscription. Limits default to the
// plan's quotas.
func (s *Store) Create(ctx context.Context, sub models.Subscription) (models.Subscription, error) {
	now := time.Now().UTC()
	sub.ID = primitive.NewObjectID()
	if sub.Status == "" {
		sub.Status = models.SubscriptionActive
	}
	if sub.StartsAt.IsZero() {
		sub.StartsAt = now
	}
	if sub.ExpiresAt.IsZero() {
		sub.ExpiresAt = sub.StartsAt.AddDate(0, 0, TrialDays)
	}
	applyPlanLimits(&sub)
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, sub); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Subscription{}, ErrExists
		}
		return models.Subscription{}, err
	}
	return sub, nil
}

func applyPlanLimits(sub *models.Subscription) {
	limits, ok := models.PlanLimits[sub.PlanType]
	if !ok {
		return
	}
	if sub.MaxProperties == 0 {
		sub.MaxProperties = limits.Properties
	}
	if sub.MaxTenants == 0 {
		sub.MaxTenants = limits.Tenants
	}
}

// GetByOrg returns the organization's subscription.
func (s *Store) GetByOrg(ctx context.Context, orgID primitive.ObjectID) (models.Subscription, error) {
	return storeutil.One[models.Subscription](ctx, s.c, bson.M{"organization_id": orgID})
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Subscription, error) {
	return storeutil.One[models.Subscription](ctx, s.c, bson.M{"_id": id})
}

// Renew extends the expiry by months, counted from the later of now and
// the current expiry, and reactivates the subscription.
func (s *Store) Renew(ctx context.Context, id primitive.ObjectID, months int, now time.Time) (models.Subscription, error) {
	sub, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Subscription{}, err
	}
	from := sub.ExpiresAt
	if from.Before(now) {
		from = now
	}
	sub.ExpiresAt = from.AddDate(0, months, 0)
	sub.Status = models.SubscriptionActive
	_, err = s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"expires_at": sub.ExpiresAt,
		"status":     sub.Status,
		"updated_at": now,
	}})
	return sub, err
}

// ChangePlan switches plan and resets limits to the new plan's quotas.
func (s *Store) ChangePlan(ctx context.Context, id primitive.ObjectID, plan string) error {
	limits, ok := models.PlanLimits[plan]
	if !ok {
		return errors.New("unknown plan " + plan)
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"plan_type":      plan,
		"max_properties": limits.Properties,
		"max_tenants":    limits.Tenants,
		"updated_at":     time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// UpdateStatus sets the subscription status of an organization.
func (s *Store) UpdateStatus(ctx context.Context, orgID primitive.ObjectID, status string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"organization_id": orgID}, bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}})
	return err
}

func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Subscription, error) {
	return storeutil.All[models.Subscription](ctx, s.c, filter, opts...)
}

func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// CountExpiringWithin counts active subscriptions expiring before now+d.
func (s *Store) CountExpiringWithin(ctx context.Context, now time.Time, d time.Duration) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"status":     models.SubscriptionActive,
		"expires_at": bson.M{"$gte": now, "$lt": now.Add(d)},
	})
}

// DeleteByOrg removes the organization's subscription.
func (s *Store) DeleteByOrg(ctx context.Context, orgID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"organization_id": orgID})
	return err
}
