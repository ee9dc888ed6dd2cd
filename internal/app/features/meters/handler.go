// internal/app/features/meters/handler.go
package meters

import (
	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	meterstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/meters"
	propertystore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/properties"
	readingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/readings"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves meters. Tenants see the meters of their own property.
type Handler struct {
	DB         *mongo.Database
	Meters     *meterstore.Store
	Properties *propertystore.Store
	Readings   *readingstore.Store

	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, sm *auth.SessionManager, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Meters:     meterstore.New(db),
		Properties: propertystore.New(db),
		Readings:   readingstore.New(db),
		SessionMgr: sm,
		ErrLog:     errLog,
		AuditLog:   auditLog,
		Log:        logger,
	}
}
