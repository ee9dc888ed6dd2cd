package meterstore

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

var (
	// ErrDuplicateSerial is returned when the organization already has a
	// meter with the serial number.
	ErrDuplicateSerial = errors.New("a meter with this serial number already exists")
	// ErrHasReadings is returned when deleting a meter that has readings.
	ErrHasReadings = errors.New("meter has readings")
)

type Store struct {
	c        *mongo.Collection
	readings *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("meters"), readings: db.Collection("meter_readings")}
}

func (s *Store) Create(ctx context.Context, m models.Meter) (models.Meter, error) {
	now := time.Now().UTC()
	m.ID = primitive.NewObjectID()
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Meter{}, ErrDuplicateSerial
		}
		return models.Meter{}, err
	}
	return m, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Meter, error) {
	return storeutil.One[models.Meter](ctx, s.c, bson.M{"_id": id})
}

func (s *Store) Update(ctx context.Context, m models.Meter) error {
	res, err := s.c.UpdateByID(ctx, m.ID, bson.M{"$set": bson.M{
		"property_id":       m.PropertyID,
		"serial_number":     m.SerialNumber,
		"type":              m.Type,
		"supports_zones":    m.SupportsZones,
		"installation_date": m.InstallationDate,
		"updated_at":        time.Now().UTC(),
	}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateSerial
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a meter without readings.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := s.readings.CountDocuments(ctx, bson.M{"meter_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, ErrHasReadings
	}
	return storeutil.Delete(ctx, s.c, bson.M{"_id": id})
}

// ListByProperty returns a property's meters by type and serial.
func (s *Store) ListByProperty(ctx context.Context, propertyID primitive.ObjectID) ([]models.Meter, error) {
	return s.Find(ctx, bson.M{"property_id": propertyID},
		options.Find().SetSort(bson.D{{Key: "type", Value: 1}, {Key: "serial_number", Value: 1}}))
}

func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Meter, error) {
	return storeutil.All[models.Meter](ctx, s.c, filter, opts...)
}

func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}
