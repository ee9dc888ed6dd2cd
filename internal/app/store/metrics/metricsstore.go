// Package metricsstore computes the dashboard totals.
package metricsstore

import (
	"context"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// PlatformCounts are the superadmin dashboard totals.
type PlatformCounts struct {
	Organizations          int64
	SuspendedOrganizations int64
	ActiveSubscriptions    int64
	ExpiringSubscriptions  int64
	Users                  int64
}

// OrgCounts are the totals of one organization.
type OrgCounts struct {
	Users             int64
	Buildings         int64
	Properties        int64
	ActiveTenants     int64
	Meters            int64
	PendingReadings   int64
	DraftInvoices     int64
	FinalizedInvoices int64
}

// counter is one CountDocuments call whose result lands in dst.
type counter struct {
	coll   string
	filter bson.M
	dst    *int64
}

// run executes the counters concurrently. It is tolerant: a failed count
// stays 0 and the first error is returned after all counters finish.
func run(ctx context.Context, db *mongo.Database, counters []counter) error {
	var g errgroup.Group
	for _, c := range counters {
		c := c
		g.Go(func() error {
			n, err := db.Collection(c.coll).CountDocuments(ctx, c.filter)
			if err != nil {
				return err
			}
			*c.dst = n
			return nil
		})
	}
	return g.Wait()
}

// FetchPlatformCounts returns the platform-wide totals. Subscriptions
// expiring within warn of now count as expiring.
func FetchPlatformCounts(ctx context.Context, db *mongo.Database, now time.Time, warn time.Duration) (PlatformCounts, error) {
	var out PlatformCounts
	err := run(ctx, db, []counter{
		{"organizations", bson.M{}, &out.Organizations},
		{"organizations", bson.M{"status": models.OrgSuspended}, &out.SuspendedOrganizations},
		{"subscriptions", bson.M{"status": models.SubscriptionActive, "expires_at": bson.M{"$gt": now}}, &out.ActiveSubscriptions},
		{"subscriptions", bson.M{
			"status":     models.SubscriptionActive,
			"expires_at": bson.M{"$gt": now, "$lte": now.Add(warn)},
		}, &out.ExpiringSubscriptions},
		{"users", bson.M{}, &out.Users},
	})
	return out, err
}

// FetchOrgCounts returns one organization's totals. PendingReadings counts
// meters without a reading since periodStart.
func FetchOrgCounts(ctx context.Context, db *mongo.Database, orgID primitive.ObjectID, periodStart time.Time) (OrgCounts, error) {
	var out OrgCounts
	org := func(extra bson.M) bson.M {
		f := bson.M{"organization_id": orgID}
		for k, v := range extra {
			f[k] = v
		}
		return f
	}

	var read int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return run(gctx, db, []counter{
			{"users", org(nil), &out.Users},
			{"buildings", org(nil), &out.Buildings},
			{"properties", org(nil), &out.Properties},
			{"tenants", org(bson.M{"active": true}), &out.ActiveTenants},
			{"meters", org(nil), &out.Meters},
			{"invoices", org(bson.M{"status": models.InvoiceDraft}), &out.DraftInvoices},
			{"invoices", org(bson.M{"status": models.InvoiceFinalized}), &out.FinalizedInvoices},
		})
	})
	g.Go(func() error {
		ids, err := db.Collection("meter_readings").Distinct(gctx, "meter_id", org(bson.M{"reading_date": bson.M{"$gte": periodStart}}))
		if err != nil {
			return err
		}
		read = int64(len(ids))
		return nil
	})
	err := g.Wait()
	if pending := out.Meters - read; pending > 0 {
		out.PendingReadings = pending
	}
	return out, err
}
