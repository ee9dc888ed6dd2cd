// internal/app/features/invoices/handler.go
package invoices

import (
	"time"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	buildingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/buildings"
	invoicestore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/invoices"
	propertystore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/properties"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/queries/billingsource"
	tenantstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/tenants"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/ratelimit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/billing"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/circulation"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultGenerateLimit is how many invoices one user may generate per minute.
const DefaultGenerateLimit = 10

// Handler serves invoices for every role. Tenants see their own invoices;
// staff generate and move them through draft, finalized and paid.
type Handler struct {
	DB         *mongo.Database
	Invoices   *invoicestore.Store
	Tenants    *tenantstore.Store
	Properties *propertystore.Store
	Billing    *billing.Service
	Limiter    *ratelimit.Limiter

	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger

	now func() time.Time
}

// NewHandler constructs the Invoices handler. A nil billing service gets
// one with default settings; a nil limiter allows DefaultGenerateLimit
// generations per user per minute.
func NewHandler(db *mongo.Database, sm *auth.SessionManager, svc *billing.Service, limiter *ratelimit.Limiter, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	if svc == nil {
		circ := circulation.New(circulation.DefaultConfig(), buildingstore.New(db), nil, logger)
		svc = billingsource.NewService(db, billing.DefaultConfig(), circ, logger)
	}
	if limiter == nil {
		limiter = ratelimit.New(DefaultGenerateLimit, time.Minute)
	}
	return &Handler{
		DB:         db,
		Invoices:   invoicestore.New(db),
		Tenants:    tenantstore.New(db),
		Properties: propertystore.New(db),
		Billing:    svc,
		Limiter:    limiter,
		SessionMgr: sm,
		ErrLog:     errLog,
		AuditLog:   auditLog,
		Log:        logger,
		now:        time.Now,
	}
}

// WithClock replaces the clock used for overdue flags and default periods.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}
