// internal/app/features/properties/handler.go
package properties

import (
	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	buildingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/buildings"
	meterstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/meters"
	propertystore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/properties"
	readingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/readings"
	tenantstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/tenants"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves property management. Tenant users reach only the detail
// page of their own property.
type Handler struct {
	DB         *mongo.Database
	Properties *propertystore.Store
	Buildings  *buildingstore.Store
	Tenants    *tenantstore.Store
	Meters     *meterstore.Store
	Readings   *readingstore.Store

	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, sm *auth.SessionManager, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Properties: propertystore.New(db),
		Buildings:  buildingstore.New(db),
		Tenants:    tenantstore.New(db),
		Meters:     meterstore.New(db),
		Readings:   readingstore.New(db),
		SessionMgr: sm,
		ErrLog:     errLog,
		AuditLog:   auditLog,
		Log:        logger,
	}
}
