// internal/app/features/readings/handler.go
package readings

import (
	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	buildingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/buildings"
	meterstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/meters"
	propertystore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/properties"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/queries/billingsource"
	readingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/readings"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/billing"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/circulation"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves meter readings. Every change refreshes the draft
// invoices whose reading window covers the reading date.
type Handler struct {
	DB         *mongo.Database
	Readings   *readingstore.Store
	Meters     *meterstore.Store
	Properties *propertystore.Store
	Billing    *billing.Service

	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

// NewHandler constructs the Readings handler. A nil billing service gets
// one with default settings.
func NewHandler(db *mongo.Database, sm *auth.SessionManager, svc *billing.Service, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	if svc == nil {
		circ := circulation.New(circulation.DefaultConfig(), buildingstore.New(db), nil, logger)
		svc = billingsource.NewService(db, billing.DefaultConfig(), circ, logger)
	}
	return &Handler{
		DB:         db,
		Readings:   readingstore.New(db),
		Meters:     meterstore.New(db),
		Properties: propertystore.New(db),
		Billing:    svc,
		SessionMgr: sm,
		ErrLog:     errLog,
		AuditLog:   auditLog,
		Log:        logger,
	}
}
