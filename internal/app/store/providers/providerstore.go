package providerstore

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
	return &Store{c: db.Collection("providers")}
}

func (s *Store) Create(ctx context.Context, p models.Provider) (models.Provider, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.NameCI = text.Fold(p.Name)
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Provider{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Provider, error) {
	return storeutil.One[models.Provider](ctx, s.c, bson.M{"_id": id})
}

func (s *Store) Update(ctx context.Context, p models.Provider) error {
	res, err := s.c.UpdateByID(ctx, p.ID, bson.M{"$set": bson.M{
		"name":         p.Name,
		"name_ci":      text.Fold(p.Name),
		"service_type": p.ServiceType,
		"contact":      p.Contact,
		"updated_at":   time.Now().UTC(),
	}})
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

// FindByService returns the organization's first provider (by name) of a
// service type, or mongo.ErrNoDocuments.
func (s *Store) FindByService(ctx context.Context, orgID primitive.ObjectID, serviceType string) (models.Provider, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "name_ci", Value: 1}})
	return storeutil.One[models.Provider](ctx, s.c, bson.M{"organization_id": orgID, "service_type": serviceType}, opts)
}

func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Provider, error) {
	return storeutil.All[models.Provider](ctx, s.c, filter, opts...)
}

func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}
