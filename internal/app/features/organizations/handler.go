// internal/app/features/organizations/handler.go
package organizations

import (
	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	organizationstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/organizations"
	subscriptionstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/subscriptions"
	userstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/users"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/subscriptioncheck"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Organizations. Only
// superadmins reach it.
type Handler struct {
	DB            *mongo.Database
	Organizations *organizationstore.Store
	Subscriptions *subscriptionstore.Store
	Users         *userstore.Store

	SessionMgr *auth.SessionManager
	Checker    *subscriptioncheck.Checker
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

// NewHandler constructs the Organizations handler. checker may be nil.
func NewHandler(db *mongo.Database, sm *auth.SessionManager, checker *subscriptioncheck.Checker, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:            db,
		Organizations: organizationstore.New(db),
		Subscriptions: subscriptionstore.New(db),
		Users:         userstore.New(db),
		SessionMgr:    sm,
		Checker:       checker,
		ErrLog:        errLog,
		AuditLog:      auditLog,
		Log:           logger,
	}
}
