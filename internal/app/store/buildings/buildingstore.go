package buildingstore

import (
	"context"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/storeutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("buildings")}
}

func (s *Store) Create(ctx context.Context, b models.Building) (models.Building, error) {
	now := time.Now().UTC()
	b.ID = primitive.NewObjectID()
	b.NameCI = text.Fold(b.Name)
	b.CreatedAt = now
	b.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, b); err != nil {
		return models.Building{}, err
	}
	return b, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Building, error) {
	return storeutil.One[models.Building](ctx, s.c, bson.M{"_id": id})
}

// Update writes the editable fields. Changing the apartment count voids
// the stored circulation average.
func (s *Store) Update(ctx context.Context, b models.Building) error {
	update := bson.M{"$set": bson.M{
		"name":             b.Name,
		"name_ci":          text.Fold(b.Name),
		"address":          b.Address,
		"total_apartments": b.TotalApartments,
		"updated_at":       time.Now().UTC(),
	}}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": b.ID, "total_apartments": b.TotalApartments}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	update["$unset"] = bson.M{"circulation_summer_average": "", "circulation_calculated_at": ""}
	res, err = s.c.UpdateByID(ctx, b.ID, update)
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

// SaveCirculationAverage stores a recomputed summer average. It satisfies
// circulation.AverageSaver.
func (s *Store) SaveCirculationAverage(ctx context.Context, id primitive.ObjectID, avg decimal.Decimal, at time.Time) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"circulation_summer_average": avg,
		"circulation_calculated_at":  at,
	}})
	return err
}

func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Building, error) {
	return storeutil.All[models.Building](ctx, s.c, filter, opts...)
}

func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}
