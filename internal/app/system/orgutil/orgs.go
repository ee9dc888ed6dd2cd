// internal/app/system/orgutil/orgs.go
package orgutil

import (
	"context"
	"errors"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrBadOrgID is returned for a malformed organization id.
	ErrBadOrgID = errors.New("bad organization id")
	// ErrOrgNotFound is returned when no organization has the id.
	ErrOrgNotFound = errors.New("organization not found")
	// ErrOrgNotActive is returned for a suspended organization.
	ErrOrgNotActive = errors.New("organization is not active")
)

// Option is one entry of an organization <select>.
type Option struct {
	ID   string
	Name string
}

// ListActiveOrgs returns all active organizations sorted by name.
func ListActiveOrgs(ctx context.Context, db *mongo.Database) ([]models.Organization, error) {
	cur, err := db.Collection("organizations").Find(ctx,
		bson.M{"status": models.OrgActive},
		options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}))
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

// ActiveOptions returns the active organizations as select options.
func ActiveOptions(ctx context.Context, db *mongo.Database) ([]Option, error) {
	orgs, err := ListActiveOrgs(ctx, db)
	if err != nil {
		return nil, err
	}
	out := make([]Option, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, Option{ID: o.ID.Hex(), Name: o.Name})
	}
	return out, nil
}

// ResolveOrgFromHex loads the organization named by a hex id.
func ResolveOrgFromHex(ctx context.Context, db *mongo.Database, hex string) (models.Organization, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return models.Organization{}, ErrBadOrgID
	}
	var org models.Organization
	if err := db.Collection("organizations").FindOne(ctx, bson.M{"_id": id}).Decode(&org); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Organization{}, ErrOrgNotFound
		}
		return models.Organization{}, err
	}
	return org, nil
}

// ResolveActiveOrgFromHex is ResolveOrgFromHex that also rejects
// suspended organizations.
func ResolveActiveOrgFromHex(ctx context.Context, db *mongo.Database, hex string) (models.Organization, error) {
	org, err := ResolveOrgFromHex(ctx, db, hex)
	if err != nil {
		return org, err
	}
	if org.IsSuspended() {
		return org, ErrOrgNotActive
	}
	return org, nil
}

// IsExpectedOrgError reports errors caused by user input rather than the
// database.
func IsExpectedOrgError(err error) bool {
	return errors.Is(err, ErrBadOrgID) || errors.Is(err, ErrOrgNotFound) || errors.Is(err, ErrOrgNotActive)
}
