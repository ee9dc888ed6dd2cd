package readingstore

import (
	"context"
	"errors"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/storeutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("meter_readings")}
}

func zoneFilter(f bson.M, zone *string) bson.M {
	if zone == nil {
		f["zone"] = nil
	} else {
		f["zone"] = *zone
	}
	return f
}

func (s *Store) Create(ctx context.Context, rd models.MeterReading) (models.MeterReading, error) {
	now := time.Now().UTC()
	rd.ID = primitive.NewObjectID()
	rd.CreatedAt = now
	rd.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, rd); err != nil {
		return models.MeterReading{}, err
	}
	return rd, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.MeterReading, error) {
	return storeutil.One[models.MeterReading](ctx, s.c, bson.M{"_id": id})
}

// Update corrects a reading's date, value, zone and notes.
func (s *Store) Update(ctx context.Context, rd models.MeterReading) error {
	set := bson.M{
		"reading_date": rd.ReadingDate,
		"value":        rd.Value,
		"notes":        rd.Notes,
		"updated_at":   time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if rd.Zone != nil {
		set["zone"] = *rd.Zone
	} else {
		update["$unset"] = bson.M{"zone": ""}
	}
	res, err := s.c.UpdateByID(ctx, rd.ID, update)
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

// Neighbours returns the closest readings of the same meter and zone on
// or before date and strictly after it, ignoring exclude (the reading being
// edited). Either may be nil.
func (s *Store) Neighbours(ctx context.Context, meterID primitive.ObjectID, zone *string, date time.Time, exclude primitive.ObjectID) (prev, next *models.MeterReading, err error) {
	base := func() bson.M {
		f := zoneFilter(bson.M{"meter_id": meterID}, zone)
		if !exclude.IsZero() {
			f["_id"] = bson.M{"$ne": exclude}
		}
		return f
	}

	pf := base()
	pf["reading_date"] = bson.M{"$lte": date}
	p, err := storeutil.One[models.MeterReading](ctx, s.c, pf,
		options.FindOne().SetSort(bson.D{{Key: "reading_date", Value: -1}, {Key: "created_at", Value: -1}}))
	switch {
	case err == nil:
		prev = &p
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, nil, err
	}

	nf := base()
	nf["reading_date"] = bson.M{"$gt": date}
	n, err := storeutil.One[models.MeterReading](ctx, s.c, nf,
		options.FindOne().SetSort(bson.D{{Key: "reading_date", Value: 1}}))
	switch {
	case err == nil:
		next = &n
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, nil, err
	}
	return prev, next, nil
}

// ListForMeters returns the readings of meterIDs dated within [from, to],
// oldest first.
func (s *Store) ListForMeters(ctx context.Context, meterIDs []primitive.ObjectID, from, to time.Time) ([]models.MeterReading, error) {
	if len(meterIDs) == 0 {
		return nil, nil
	}
	return s.Find(ctx, bson.M{
		"meter_id":     bson.M{"$in": meterIDs},
		"reading_date": bson.M{"$gte": from, "$lte": to},
	}, options.Find().SetSort(bson.D{{Key: "reading_date", Value: 1}}))
}

// ListByMeter returns a meter's consumption history, oldest first. A
// positive limit keeps only the most recent readings.
func (s *Store) ListByMeter(ctx context.Context, meterID primitive.ObjectID, limit int64) ([]models.MeterReading, error) {
	opts := options.Find().SetSort(bson.D{{Key: "reading_date", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	out, err := s.Find(ctx, bson.M{"meter_id": meterID}, opts)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// LatestByMeters maps each meter to its most recent reading.
func (s *Store) LatestByMeters(ctx context.Context, meterIDs []primitive.ObjectID) (map[primitive.ObjectID]models.MeterReading, error) {
	out := make(map[primitive.ObjectID]models.MeterReading, len(meterIDs))
	if len(meterIDs) == 0 {
		return out, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"meter_id": bson.M{"$in": meterIDs}}}},
		{{Key: "$sort", Value: bson.D{{Key: "reading_date", Value: -1}}}},
		{{Key: "$group", Value: bson.M{"_id": "$meter_id", "doc": bson.M{"$first": "$$ROOT"}}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$doc"}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var rows []models.MeterReading
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.MeterID] = r
	}
	return out, nil
}

// MetersWithReadings returns which of meterIDs have a reading in [from, to].
func (s *Store) MetersWithReadings(ctx context.Context, meterIDs []primitive.ObjectID, from, to time.Time) (map[primitive.ObjectID]bool, error) {
	out := map[primitive.ObjectID]bool{}
	if len(meterIDs) == 0 {
		return out, nil
	}
	ids, err := s.c.Distinct(ctx, "meter_id", bson.M{
		"meter_id":     bson.M{"$in": meterIDs},
		"reading_date": bson.M{"$gte": from, "$lte": to},
	})
	if err != nil {
		return nil, err
	}
	for _, v := range ids {
		if oid, ok := v.(primitive.ObjectID); ok {
			out[oid] = true
		}
	}
	return out, nil
}

func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.MeterReading, error) {
	return storeutil.All[models.MeterReading](ctx, s.c, filter, opts...)
}

func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}
