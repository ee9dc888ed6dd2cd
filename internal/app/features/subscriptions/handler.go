package subscriptions

import (
	"time"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	organizationstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/organizations"
	subscriptionstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/subscriptions"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/subscriptioncheck"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves subscription management. Superadmins see and change every
// subscription; admins only see their own.
type Handler struct {
	Subscriptions *subscriptionstore.Store
	Organizations *organizationstore.Store

	SessionMgr *auth.SessionManager
	Checker    *subscriptioncheck.Checker
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger

	now func() time.Time
}

// NewHandler constructs the handler. checker may be nil.
func NewHandler(db *mongo.Database, sm *auth.SessionManager, checker *subscriptioncheck.Checker, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Subscriptions: subscriptionstore.New(db),
		Organizations: organizationstore.New(db),
		SessionMgr:    sm,
		Checker:       checker,
		ErrLog:        errLog,
		AuditLog:      auditLog,
		Log:           logger,
		now:           time.Now,
	}
}
