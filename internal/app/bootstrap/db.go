// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/cache"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/exportstore"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/indexes"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/money"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens MongoDB, the shared cache and the report export backend.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	client, db, err := connectMongo(ctx, appCfg, logger)
	if err != nil {
		return DBDeps{}, err
	}

	c, err := cache.New(appCfg.StatsCacheMaxItems)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("create cache: %w", err)
	}

	exports, err := newExportStore(ctx, appCfg, logger)
	if err != nil {
		c.Close()
		_ = client.Disconnect(context.Background())
		return DBDeps{}, err
	}

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Cache:         c,
		Exports:       exports,
	}, nil
}

// connectMongo connects with the decimal codec registered and verifies the
// server with a ping.
func connectMongo(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetRegistry(money.Registry())
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	if appCfg.MongoMinPoolSize > 0 {
		opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, timeouts.Ping())
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize))
	return client, client.Database(appCfg.MongoDatabase), nil
}

func newExportStore(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (exportstore.Store, error) {
	st, err := exportstore.New(ctx, exportstore.Config{
		Type:      appCfg.StorageType,
		LocalPath: appCfg.StorageLocalPath,
		S3Region:  appCfg.StorageS3Region,
		S3Bucket:  appCfg.StorageS3Bucket,
		S3Prefix:  appCfg.StorageS3Prefix,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("report storage: %w", err)
	}
	return st, nil
}

// EnsureSchema creates the unique and lookup indexes every store relies on.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ictx, cancel := context.WithTimeout(ctx, timeouts.Batch())
	defer cancel()
	if err := indexes.EnsureAll(ictx, deps.MongoDatabase, logger); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return nil
}
