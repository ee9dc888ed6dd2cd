// internal/app/features/reports/handler.go
package reports

import (
	"time"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	orgstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/organizations"
	propertystore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/properties"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/exportstore"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the consumption, revenue and compliance reports and
// their CSV exports.
//
// Exports are copied to Storage before they are sent to the browser; a
// nil Storage skips the copy.
type Handler struct {
	DB            *mongo.Database
	Organizations *orgstore.Store
	Properties    *propertystore.Store
	Storage       exportstore.Store

	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger

	now func() time.Time
}

// NewHandler constructs the reports Handler.
func NewHandler(db *mongo.Database, sm *auth.SessionManager, storage exportstore.Store, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:            db,
		Organizations: orgstore.New(db),
		Properties:    propertystore.New(db),
		Storage:       storage,
		SessionMgr:    sm,
		ErrLog:        errLog,
		AuditLog:      auditLog,
		Log:           logger,
		now:           time.Now,
	}
}

// WithClock replaces the clock used for the default period.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}
