// internal/app/features/auditlog/handler.go
package auditlog

import (
	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	orgstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/organizations"
	userstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the audit log viewer.
type Handler struct {
	DB            *mongo.Database
	Events        *audit.Store
	Users         *userstore.Store
	Organizations *orgstore.Store

	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

// NewHandler constructs an Audit Log feature handler bound to
// the given Mongo database and logger.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:            db,
		Events:        audit.New(db),
		Users:         userstore.New(db),
		Organizations: orgstore.New(db),
		ErrLog:        errLog,
		Log:           logger,
	}
}
