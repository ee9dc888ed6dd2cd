package tenantstore

import (
	"context"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/storeutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tenants")}
}

func (s *Store) Create(ctx context.Context, t models.Tenant) (models.Tenant, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.NameCI = text.Fold(t.Name)
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Tenant{}, err
	}
	return t, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Tenant, error) {
	return storeutil.One[models.Tenant](ctx, s.c, bson.M{"_id": id})
}

func (s *Store) Update(ctx context.Context, t models.Tenant) error {
	set := bson.M{
		"name":        t.Name,
		"name_ci":     text.Fold(t.Name),
		"email":       t.Email,
		"phone":       t.Phone,
		"lease_start": t.LeaseStart,
		"updated_at":  time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if t.LeaseEnd != nil {
		set["lease_end"] = *t.LeaseEnd
	} else {
		update["$unset"] = bson.M{"lease_end": ""}
	}
	res, err := s.c.UpdateByID(ctx, t.ID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetActive toggles whether the occupant is billed and may sign in.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"active": active, "updated_at": time.Now().UTC()}})
	return err
}

// Reassign moves the occupant to another property.
func (s *Store) Reassign(ctx context.Context, id, propertyID primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"property_id": propertyID, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return storeutil.Delete(ctx, s.c, bson.M{"_id": id})
}

func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Tenant, error) {
	return storeutil.All[models.Tenant](ctx, s.c, filter, opts...)
}

func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}
