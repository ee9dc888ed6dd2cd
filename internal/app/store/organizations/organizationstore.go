// internal/app/store/organizations/organizationstore.go
package organizationstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateOrganization = errors.New("an organization with this name or slug already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organizations")}
}

// Slug derives a URL-safe identifier from a name.
func Slug(name string) string {
	folded := text.Fold(name)
	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (s *Store) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	now := time.Now().UTC()
	org.ID = primitive.NewObjectID()
	org.NameCI = text.Fold(org.Name)
	if org.Slug == "" {
		org.Slug = Slug(org.Name)
	}
	if org.Status == "" {
		org.Status = models.OrgActive
	}
	if org.Plan == "" {
		org.Plan = models.PlanBasic
	}
	org.Email = strings.ToLower(strings.TrimSpace(org.Email))
	org.CreatedAt = now
	org.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, org); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Organization{}, ErrDuplicateOrganization
		}
		return models.Organization{}, err
	}
	return org, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	var org models.Organization
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&org); err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// Update writes the editable fields and refreshes UpdatedAt.
func (s *Store) Update(ctx context.Context, org models.Organization) error {
	set := bson.M{
		"name":           org.Name,
		"name_ci":        text.Fold(org.Name),
		"email":          strings.ToLower(strings.TrimSpace(org.Email)),
		"phone":          org.Phone,
		"plan":           org.Plan,
		"max_properties": org.MaxProperties,
		"max_users":      org.MaxUsers,
		"updated_at":     time.Now().UTC(),
	}
	res, err := s.c.UpdateByID(ctx, org.ID, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateOrganization
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Suspend marks an organization suspended with a reason.
func (s *Store) Suspend(ctx context.Context, id primitive.ObjectID, reason string) error {
	_, err := s.SetStatusMany(ctx, []primitive.ObjectID{id}, models.OrgSuspended, reason)
	return err
}

// Reactivate clears a suspension.
func (s *Store) Reactivate(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.SetStatusMany(ctx, []primitive.ObjectID{id}, models.OrgActive, "")
	return err
}

// SetStatusMany suspends or reactivates several organizations at once and
// returns how many changed.
func (s *Store) SetStatusMany(ctx context.Context, ids []primitive.ObjectID, status, reason string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	update := bson.M{}
	if status == models.OrgSuspended {
		update["$set"] = bson.M{"status": status, "suspended_at": now, "suspension_reason": reason, "updated_at": now}
	} else {
		update["$set"] = bson.M{"status": status, "updated_at": now}
		update["$unset"] = bson.M{"suspended_at": "", "suspension_reason": ""}
	}
	res, err := s.c.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}, "status": bson.M{"$ne": status}}, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Find returns organizations matching filter. The caller owns paging and sort.
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Organization, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Organization
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of organizations matching filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// NamesByID maps ids to names for list pages.
func (s *Store) NamesByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	orgs, err := s.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	for _, o := range orgs {
		out[o.ID] = o.Name
	}
	return out, nil
}

// Delete removes an organization. It is used to undo a half-finished
// onboarding and does not cascade.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
