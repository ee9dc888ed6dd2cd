package invoicestore

import (
	"context"
	"errors"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/storeutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrStatusChanged is returned when an invoice is no longer in the
	// status a transition or draft edit expected.
	ErrStatusChanged = errors.New("invoice status changed")
	// ErrDuplicateNumber is returned on an invoice number collision.
	ErrDuplicateNumber = errors.New("invoice number already exists")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invoices")}
}

// Create inserts an invoice. It satisfies billing.Invoices.
func (s *Store) Create(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
	now := time.Now().UTC()
	if inv.ID.IsZero() {
		inv.ID = primitive.NewObjectID()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Invoice{}, ErrDuplicateNumber
		}
		return models.Invoice{}, err
	}
	return inv, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Invoice, error) {
	return storeutil.One[models.Invoice](ctx, s.c, bson.M{"_id": id})
}

// ReplaceDraftItems swaps the items and total of a draft.
func (s *Store) ReplaceDraftItems(ctx context.Context, id primitive.ObjectID, items []models.InvoiceItem, total decimal.Decimal) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "status": models.InvoiceDraft}, bson.M{"$set": bson.M{
		"items":        items,
		"total_amount": total,
		"updated_at":   time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStatusChanged
	}
	return nil
}

// Transition moves an invoice from one status to the next, stamping the
// matching timestamp.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, from, to string, at time.Time) error {
	set := bson.M{"status": to, "updated_at": at}
	switch to {
	case models.InvoiceFinalized:
		set["finalized_at"] = at
	case models.InvoicePaid:
		set["paid_at"] = at
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStatusChanged
	}
	return nil
}

// DeleteDraft removes a draft invoice.
func (s *Store) DeleteDraft(ctx context.Context, id primitive.ObjectID) error {
	ok, err := storeutil.Delete(ctx, s.c, bson.M{"_id": id, "status": models.InvoiceDraft})
	if err != nil {
		return err
	}
	if !ok {
		return ErrStatusChanged
	}
	return nil
}

// ListDraftsForProperty returns a property's draft invoices.
func (s *Store) ListDraftsForProperty(ctx context.Context, propertyID primitive.ObjectID) ([]models.Invoice, error) {
	return s.Find(ctx, bson.M{"property_id": propertyID, "status": models.InvoiceDraft})
}

func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Invoice, error) {
	return storeutil.All[models.Invoice](ctx, s.c, filter, opts...)
}

func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// Recent returns the newest invoices matching filter.
func (s *Store) Recent(ctx context.Context, filter bson.M, limit int64) ([]models.Invoice, error) {
	return s.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
}

// StatusTotal is the count and amount of invoices in one status.
type StatusTotal struct {
	Status string          `bson:"_id"`
	Count  int64           `bson:"count"`
	Amount decimal.Decimal `bson:"amount"`
}

// SumByStatus totals invoices matching filter per status.
func (s *Store) SumByStatus(ctx context.Context, filter bson.M) ([]StatusTotal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$status",
			"count":  bson.M{"$sum": 1},
			"amount": bson.M{"$sum": "$total_amount"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []StatusTotal
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
