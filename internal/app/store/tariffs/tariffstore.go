package tariffstore

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

// HistoryLimit is how many tariff versions the detail page lists.
const HistoryLimit = 10

// Sortable columns of the tariff list, keyed by the ?sort= value.
var SortFields = map[string]string{
	"name":         "name_ci",
	"active_from":  "active_from",
	"active_until": "active_until",
	"type":         "configuration.type",
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tariffs")}
}

func (s *Store) Create(ctx context.Context, t models.Tariff) (models.Tariff, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.NameCI = text.Fold(t.Name)
	if t.Configuration.Currency == "" {
		t.Configuration.Currency = "EUR"
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Tariff{}, err
	}
	return t, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Tariff, error) {
	return storeutil.One[models.Tariff](ctx, s.c, bson.M{"_id": id})
}

func (s *Store) Update(ctx context.Context, t models.Tariff) error {
	set := bson.M{
		"name":          t.Name,
		"name_ci":       text.Fold(t.Name),
		"remote_id":     t.RemoteID,
		"configuration": t.Configuration,
		"active_from":   t.ActiveFrom,
		"updated_at":    time.Now().UTC(),
	}
	unset := bson.M{}
	if t.ActiveUntil != nil {
		set["active_until"] = *t.ActiveUntil
	} else {
		unset["active_until"] = ""
	}
	if t.ProviderID != nil {
		set["provider_id"] = *t.ProviderID
	} else {
		unset["provider_id"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
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

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return storeutil.Delete(ctx, s.c, bson.M{"_id": id})
}

// ListByProvider returns every tariff of a provider, newest first. It
// satisfies tariff.Lister.
func (s *Store) ListByProvider(ctx context.Context, providerID primitive.ObjectID) ([]models.Tariff, error) {
	return s.Find(ctx, bson.M{"provider_id": providerID}, options.Find().SetSort(bson.D{{Key: "active_from", Value: -1}}))
}

// History returns up to HistoryLimit versions of a provider's tariffs.
func (s *Store) History(ctx context.Context, providerID primitive.ObjectID) ([]models.Tariff, error) {
	return s.Find(ctx, bson.M{"provider_id": providerID},
		options.Find().SetSort(bson.D{{Key: "active_from", Value: -1}}).SetLimit(HistoryLimit))
}

func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Tariff, error) {
	return storeutil.All[models.Tariff](ctx, s.c, filter, opts...)
}

func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}
