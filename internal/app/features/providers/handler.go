// internal/app/features/providers/handler.go
package providers

import (
	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	providerstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/providers"
	tariffstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/tariffs"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves utility providers. Managers may only look.
type Handler struct {
	DB        *mongo.Database
	Providers *providerstore.Store
	Tariffs   *tariffstore.Store

	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, sm *auth.SessionManager, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Providers:  providerstore.New(db),
		Tariffs:    tariffstore.New(db),
		SessionMgr: sm,
		ErrLog:     errLog,
		AuditLog:   auditLog,
		Log:        logger,
	}
}
