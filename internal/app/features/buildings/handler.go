// internal/app/features/buildings/handler.go
package buildings

import (
	"time"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	buildingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/buildings"
	propertystore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/properties"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/circulation"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves building management and the circulation fee overview.
type Handler struct {
	DB          *mongo.Database
	Buildings   *buildingstore.Store
	Properties  *propertystore.Store
	Circulation *circulation.Calculator

	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Log        *zap.Logger

	now func() time.Time
}

// NewHandler constructs the Buildings handler. A nil calculator gets one
// with default settings and no cache.
func NewHandler(db *mongo.Database, sm *auth.SessionManager, circ *circulation.Calculator, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	bs := buildingstore.New(db)
	if circ == nil {
		circ = circulation.New(circulation.DefaultConfig(), bs, nil, logger)
	}
	return &Handler{
		DB:          db,
		Buildings:   bs,
		Properties:  propertystore.New(db),
		Circulation: circ,
		SessionMgr:  sm,
		ErrLog:      errLog,
		AuditLog:    auditLog,
		Log:         logger,
		now:         time.Now,
	}
}

// WithClock replaces the clock of the handler and its calculator.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	h.Circulation.WithClock(now)
	return h
}
