package propertystore

import (
	"context"
	"errors"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/storeutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrInUse is returned when deleting a property that still has meters or
// occupants.
var ErrInUse = errors.New("property still has meters or tenants")

type Store struct {
	c      *mongo.Collection
	meters *mongo.Collection
	occ    *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:      db.Collection("properties"),
		meters: db.Collection("meters"),
		occ:    db.Collection("tenants"),
	}
}

func (s *Store) Create(ctx context.Context, p models.Property) (models.Property, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.AddressCI = text.Fold(p.Address)
	if p.Type == "" {
		p.Type = models.PropertyApartment
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Property{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Property, error) {
	return storeutil.One[models.Property](ctx, s.c, bson.M{"_id": id})
}

func (s *Store) Update(ctx context.Context, p models.Property) error {
	set := bson.M{
		"address":     p.Address,
		"address_ci":  text.Fold(p.Address),
		"unit_number": p.UnitNumber,
		"type":        p.Type,
		"area_sqm":    p.AreaSqm,
		"updated_at":  time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if p.BuildingID != nil {
		set["building_id"] = *p.BuildingID
	} else {
		update["$unset"] = bson.M{"building_id": ""}
	}
	res, err := s.c.UpdateByID(ctx, p.ID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a property that has no meters and no occupants.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	for _, c := range []*mongo.Collection{s.meters, s.occ} {
		n, err := c.CountDocuments(ctx, bson.M{"property_id": id}, options.Count().SetLimit(1))
		if err != nil {
			return false, err
		}
		if n > 0 {
			return false, ErrInUse
		}
	}
	return storeutil.Delete(ctx, s.c, bson.M{"_id": id})
}

// ListByBuilding returns a building's properties by address.
func (s *Store) ListByBuilding(ctx context.Context, buildingID primitive.ObjectID) ([]models.Property, error) {
	return s.Find(ctx, bson.M{"building_id": buildingID}, options.Find().SetSort(bson.D{{Key: "address_ci", Value: 1}, {Key: "unit_number", Value: 1}}))
}

func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Property, error) {
	return storeutil.All[models.Property](ctx, s.c, filter, opts...)
}

func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}
