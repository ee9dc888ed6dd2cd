// Package subscriptioncheck decides whether an organization's subscription
// allows writes and puts expired organizations into read-only mode.
package subscriptioncheck

import (
	"context"
	"errors"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// States.
const (
	StateActive  = "active"
	StateExpired = "expired"
	StateMissing = "missing"
)

// DefaultTTL is how long a status is cached.
const DefaultTTL = 5 * time.Minute

// WarnWithinDays is when an active subscription starts showing a banner.
const WarnWithinDays = 14

// Status is an organization's subscription standing.
type Status struct {
	State         string
	Plan          string
	ExpiresAt     time.Time
	DaysLeft      int
	MaxProperties int
	MaxTenants    int
}

// Active reports whether writes are allowed.
func (s Status) Active() bool { return s.State == StateActive }

// ExpiringSoon reports an active subscription close to expiry.
func (s Status) ExpiringSoon() bool { return s.Active() && s.DaysLeft <= WarnWithinDays }

// Loader reads an organization's subscription.
type Loader interface {
	GetByOrg(ctx context.Context, orgID primitive.ObjectID) (models.Subscription, error)
}

// Cache holds computed statuses.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Del(key string)
}

// Checker computes and caches subscription status.
type Checker struct {
	subs  Loader
	cache Cache
	ttl   time.Duration
	log   *zap.Logger
	now   func() time.Time
}

// New creates a Checker. cache may be nil; ttl <= 0 means DefaultTTL.
func New(subs Loader, cache Cache, ttl time.Duration, log *zap.Logger) *Checker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{subs: subs, cache: cache, ttl: ttl, log: log, now: time.Now}
}

// WithClock overrides the time source.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

func cacheKey(orgID primitive.ObjectID) string { return "subscription:" + orgID.Hex() }

// Status returns the organization's standing.
func (c *Checker) Status(ctx context.Context, orgID primitive.ObjectID) (Status, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(cacheKey(orgID)); ok {
			if st, ok := v.(Status); ok {
				return st, nil
			}
		}
	}

	sub, err := c.subs.GetByOrg(ctx, orgID)
	var st Status
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		st = Status{State: StateMissing}
	case err != nil:
		return Status{}, err
	default:
		now := c.now()
		st = Status{
			State:         StateExpired,
			Plan:          sub.PlanType,
			ExpiresAt:     sub.ExpiresAt,
			DaysLeft:      sub.DaysUntilExpiry(now),
			MaxProperties: sub.MaxProperties,
			MaxTenants:    sub.MaxTenants,
		}
		if sub.IsActive(now) {
			st.State = StateActive
		}
	}

	if c.cache != nil {
		c.cache.Set(cacheKey(orgID), st, c.ttl)
	}
	return st, nil
}

// DaysUntilExpiry returns the days left, or 0 with no subscription.
func (c *Checker) DaysUntilExpiry(ctx context.Context, orgID primitive.ObjectID) (int, error) {
	st, err := c.Status(ctx, orgID)
	if err != nil {
		return 0, err
	}
	return st.DaysLeft, nil
}

// Invalidate drops the cached status after a renewal or plan change.
func (c *Checker) Invalidate(orgID primitive.ObjectID) {
	if c.cache != nil {
		c.cache.Del(cacheKey(orgID))
	}
}
