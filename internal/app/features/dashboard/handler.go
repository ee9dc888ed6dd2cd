// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"
	"time"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	invoicestore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/invoices"
	meterstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/meters"
	organizationstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/organizations"
	propertystore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/properties"
	readingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/readings"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/authz"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/cache"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultStatsTTL is how long dashboard counts are reused.
const DefaultStatsTTL = 5 * time.Minute

// recentLimit is the number of rows in the "recent" tables.
const recentLimit = 5

type Handler struct {
	DB            *mongo.Database
	Organizations *organizationstore.Store
	Properties    *propertystore.Store
	Meters        *meterstore.Store
	Readings      *readingstore.Store
	Invoices      *invoicestore.Store

	Cache    *cache.Cache
	StatsTTL time.Duration

	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger

	now func() time.Time
}

// NewHandler builds the dashboard handler. stats may be nil, which
// disables caching of counts.
func NewHandler(db *mongo.Database, stats *cache.Cache, statsTTL time.Duration, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if statsTTL <= 0 {
		statsTTL = DefaultStatsTTL
	}
	return &Handler{
		DB:            db,
		Organizations: organizationstore.New(db),
		Properties:    propertystore.New(db),
		Meters:        meterstore.New(db),
		Readings:      readingstore.New(db),
		Invoices:      invoicestore.New(db),
		Cache:         stats,
		StatsTTL:      statsTTL,
		ErrLog:        errLog,
		Log:           logger,
		now:           time.Now,
	}
}

// ServeDashboard sends each role to its own dashboard.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	role, _, _, ok := authz.UserCtx(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	switch role {
	case models.RoleSuperAdmin:
		http.Redirect(w, r, "/dashboard/superadmin", http.StatusSeeOther)
	case models.RoleAdmin:
		http.Redirect(w, r, "/dashboard/admin", http.StatusSeeOther)
	case models.RoleManager:
		http.Redirect(w, r, "/dashboard/manager", http.StatusSeeOther)
	case models.RoleTenant:
		http.Redirect(w, r, "/dashboard/tenant", http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// monthStart is the first instant of the current month in UTC.
func (h *Handler) monthStart() time.Time {
	now := h.now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
