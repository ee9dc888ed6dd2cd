package userstore

import (
	"context"
	"fmt"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher. It reloads the user on every
// request so role changes, suspensions and disabled accounts apply at once.
type Fetcher struct {
	users   *mongo.Collection
	orgs    *mongo.Collection
	tenants *mongo.Collection
}

// NewFetcher creates a Fetcher over db.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{
		users:   db.Collection("users"),
		orgs:    db.Collection("organizations"),
		tenants: db.Collection("tenants"),
	}
}

// FetchUser loads the session view of a user. Disabled users, users of
// suspended organizations and tenant users without an occupant record
// yield auth.ErrUserInactive.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) (*auth.SessionUser, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("bad user id: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{"password_hash": 0})
	if err := f.users.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&u); err != nil {
		return nil, err
	}
	if u.Status != models.UserActive {
		return nil, auth.ErrUserInactive
	}

	su := &auth.SessionUser{
		ID:     u.ID.Hex(),
		Name:   u.FullName,
		Email:  u.Email,
		Role:   u.Role,
		Locale: u.Locale,
	}

	if u.OrganizationID != nil {
		su.OrganizationID = u.OrganizationID.Hex()
		var org models.Organization
		orgProj := options.FindOne().SetProjection(bson.M{"name": 1, "status": 1})
		if err := f.orgs.FindOne(ctx, bson.M{"_id": u.OrganizationID}, orgProj).Decode(&org); err != nil {
			return nil, err
		}
		if org.IsSuspended() {
			return nil, auth.ErrUserInactive
		}
		su.OrganizationName = org.Name
	}

	if u.Role == models.RoleTenant {
		if u.TenantID == nil {
			return nil, auth.ErrUserInactive
		}
		var tn models.Tenant
		tProj := options.FindOne().SetProjection(bson.M{"property_id": 1, "active": 1})
		if err := f.tenants.FindOne(ctx, bson.M{"_id": u.TenantID}, tProj).Decode(&tn); err != nil {
			return nil, err
		}
		if !tn.Active {
			return nil, auth.ErrUserInactive
		}
		su.TenantID = u.TenantID.Hex()
		su.PropertyID = tn.PropertyID.Hex()
	}
	return su, nil
}
