// internal/app/features/tariffs/handler.go
package tariffs

import (
	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	invoicestore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/invoices"
	providerstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/providers"
	tariffstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/tariffs"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves tariffs: price lists with a validity range, attached to a
// provider or entered manually.
type Handler struct {
	DB        *mongo.Database
	Tariffs   *tariffstore.Store
	Providers *providerstore.Store
	Invoices  *invoicestore.Store

	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, sm *auth.SessionManager, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Tariffs:    tariffstore.New(db),
		Providers:  providerstore.New(db),
		Invoices:   invoicestore.New(db),
		SessionMgr: sm,
		ErrLog:     errLog,
		AuditLog:   auditLog,
		Log:        logger,
	}
}
