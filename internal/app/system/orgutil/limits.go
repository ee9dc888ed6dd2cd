package orgutil

import (
	"context"
	"errors"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Plan-limited collections.
const (
	LimitProperties = "properties"
	LimitTenants    = "tenants"
)

// TargetOrg resolves the organization a new record belongs to. Everyone
// but a superadmin writes into their own organization; a superadmin names
// one with the posted id.
func TargetOrg(ctx context.Context, db *mongo.Database, u *auth.SessionUser, posted string) (models.Organization, error) {
	if u.IsSuperAdmin() {
		return ResolveActiveOrgFromHex(ctx, db, posted)
	}
	return ResolveActiveOrgFromHex(ctx, db, u.OrganizationID)
}

// WithinPlanLimit reports whether orgID may add one more document to coll
// under its subscription. It also returns the limit for messages. A zero
// limit or a missing subscription means unlimited.
func WithinPlanLimit(ctx context.Context, db *mongo.Database, orgID primitive.ObjectID, coll string) (int, bool, error) {
	var sub models.Subscription
	err := db.Collection("subscriptions").FindOne(ctx, bson.M{"organization_id": orgID}).Decode(&sub)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, true, nil
	}
	if err != nil {
		return 0, false, err
	}

	limit := sub.MaxProperties
	if coll == LimitTenants {
		limit = sub.MaxTenants
	}
	if limit <= 0 {
		return 0, true, nil
	}
	n, err := db.Collection(coll).CountDocuments(ctx, bson.M{"organization_id": orgID})
	if err != nil {
		return limit, false, err
	}
	return limit, n < int64(limit), nil
}
