// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/cache"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/exportstore"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Cache backs dashboard stats, subscription status and circulation
	// results. Closed on shutdown.
	Cache *cache.Cache

	// Exports stores report CSV files (local directory or S3).
	Exports exportstore.Store
}
