// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type collectionSet struct {
	name   string
	models []mongo.IndexModel
}

/*
EnsureAll is called at startup from EnsureSchema. Every collection set is
reconciled even when an earlier one fails so all problems surface at once.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	var problems []string
	for _, set := range desired() {
		if err := ensureIndexSet(ctx, db.Collection(set.name), set.models, log); err != nil {
			problems = append(problems, set.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func unique(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}

func plain(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func desired() []collectionSet {
	return []collectionSet{
		{"users", []mongo.IndexModel{
			unique("uniq_users_email", bson.D{{Key: "email", Value: 1}}),
			plain("idx_users_org_role_status", bson.D{{Key: "organization_id", Value: 1}, {Key: "role", Value: 1}, {Key: "status", Value: 1}}),
			plain("idx_users_org_fullnameci__id", bson.D{{Key: "organization_id", Value: 1}, {Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}),
			plain("idx_users_tenant", bson.D{{Key: "tenant_id", Value: 1}}),
		}},
		{"organizations", []mongo.IndexModel{
			unique("uniq_orgs_nameci", bson.D{{Key: "name_ci", Value: 1}}),
			unique("uniq_orgs_slug", bson.D{{Key: "slug", Value: 1}}),
			plain("idx_orgs_status_nameci", bson.D{{Key: "status", Value: 1}, {Key: "name_ci", Value: 1}}),
		}},
		{"subscriptions", []mongo.IndexModel{
			unique("uniq_subscriptions_org", bson.D{{Key: "organization_id", Value: 1}}),
			plain("idx_subscriptions_status_expires", bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}),
		}},
		{"buildings", []mongo.IndexModel{
			plain("idx_buildings_org_nameci", bson.D{{Key: "organization_id", Value: 1}, {Key: "name_ci", Value: 1}}),
		}},
		{"properties", []mongo.IndexModel{
			plain("idx_properties_org_addressci", bson.D{{Key: "organization_id", Value: 1}, {Key: "address_ci", Value: 1}}),
			plain("idx_properties_building", bson.D{{Key: "building_id", Value: 1}}),
		}},
		{"tenants", []mongo.IndexModel{
			plain("idx_tenants_org_nameci", bson.D{{Key: "organization_id", Value: 1}, {Key: "name_ci", Value: 1}}),
			plain("idx_tenants_property_active", bson.D{{Key: "property_id", Value: 1}, {Key: "active", Value: 1}}),
		}},
		{"providers", []mongo.IndexModel{
			plain("idx_providers_org_service_nameci", bson.D{{Key: "organization_id", Value: 1}, {Key: "service_type", Value: 1}, {Key: "name_ci", Value: 1}}),
		}},
		{"tariffs", []mongo.IndexModel{
			plain("idx_tariffs_provider_from", bson.D{{Key: "provider_id", Value: 1}, {Key: "active_from", Value: -1}}),
			plain("idx_tariffs_org_nameci", bson.D{{Key: "organization_id", Value: 1}, {Key: "name_ci", Value: 1}}),
		}},
		{"meters", []mongo.IndexModel{
			unique("uniq_meters_org_serial", bson.D{{Key: "organization_id", Value: 1}, {Key: "serial_number", Value: 1}}),
			plain("idx_meters_property", bson.D{{Key: "property_id", Value: 1}}),
		}},
		{"meter_readings", []mongo.IndexModel{
			plain("idx_readings_meter_zone_date", bson.D{{Key: "meter_id", Value: 1}, {Key: "zone", Value: 1}, {Key: "reading_date", Value: 1}}),
			plain("idx_readings_org_date", bson.D{{Key: "organization_id", Value: 1}, {Key: "reading_date", Value: -1}}),
		}},
		{"invoices", []mongo.IndexModel{
			unique("uniq_invoices_number", bson.D{{Key: "number", Value: 1}}),
			plain("idx_invoices_org_status_created", bson.D{{Key: "organization_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}),
			plain("idx_invoices_tenant_created", bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}}),
			plain("idx_invoices_property_status", bson.D{{Key: "property_id", Value: 1}, {Key: "status", Value: 1}}),
		}},
		{"audit_log", []mongo.IndexModel{
			plain("idx_audit_org_created", bson.D{{Key: "organization_id", Value: 1}, {Key: "created_at", Value: -1}}),
			plain("idx_audit_target_created", bson.D{{Key: "target_id", Value: 1}, {Key: "created_at", Value: -1}}),
			plain("idx_audit_category_created", bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}),
		}},
	}
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                       */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func isUnique(b *bool) bool { return b != nil && *b }

func listExisting(ctx context.Context, coll *mongo.Collection, log *zap.Logger) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			log.Warn("failed to decode existing index", zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

func duplicateHint(coll, sig string) string {
	field := strings.SplitN(sig, ":", 2)[0]
	return fmt.Sprintf(" (duplicates present; find them with db.%s.aggregate([{ $group: { _id: \"$%s\", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }]))",
		coll, field)
}

// ensureIndexSet makes the collection's indexes match models by key pattern.
// An existing index with the same keys is reused when its uniqueness and name
// match, and dropped and recreated otherwise.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, log *zap.Logger) error {
	var errs []string

	existing, err := listExisting(ctx, coll, log)
	if err != nil {
		// A missing collection lists nothing; creation below will make it.
		existing = map[string]existingIndex{}
	}

	for _, m := range models {
		name := *m.Options.Name
		wantUnique := isUnique(m.Options.Unique)
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", wantUnique),
		}

		if ex, ok := existing[sig]; ok {
			if isUnique(ex.Unique) == wantUnique && ex.Name == name {
				log.Debug("reusing existing index", fields...)
				continue
			}
			log.Info("replacing index", append(fields, zap.String("existing", ex.Name))...)
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop %s failed: %v", name, ex.Name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if wantUnique && mongo.IsDuplicateKeyError(err) {
				errs = append(errs, fmt.Sprintf("%s: cannot create unique index%s", name, duplicateHint(coll.Name(), sig)))
				continue
			}
			log.Warn("index ensure failed", append(fields, zap.Error(err))...)
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		log.Info("index ensured", append(fields, zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
