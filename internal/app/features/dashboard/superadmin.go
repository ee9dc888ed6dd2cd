// internal/app/features/dashboard/superadmin.go
package dashboard

import (
	"context"
	"net/http"
	"time"

	metricsstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/metrics"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/subscriptioncheck"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type orgRow struct {
	ID        string
	Name      string
	Plan      string
	Status    string
	CreatedAt time.Time
}

type superadminData struct {
	viewdata.BaseVM
	Stats      []statCard
	RecentOrgs []orgRow
}

func (h *Handler) ServeSuperAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	warn := subscriptioncheck.WarnWithinDays * 24 * time.Hour
	counts := cached(h, "dashboard:platform", func() (metricsstore.PlatformCounts, error) {
		return metricsstore.FetchPlatformCounts(ctx, h.DB, h.now(), warn)
	})

	orgs, err := h.Organizations.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(recentLimit))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "failed to load recent organizations", err, "", "/")
		return
	}

	data := superadminData{BaseVM: viewdata.New(r, "dashboard.superadmin.title", "/")}
	data.Stats = []statCard{
		stat(r, "organizations", counts.Organizations, "/organizations"),
		stat(r, "active_organizations", counts.Organizations-counts.SuspendedOrganizations, "/organizations?status=active"),
		stat(r, "suspended_organizations", counts.SuspendedOrganizations, "/organizations?status=suspended"),
		stat(r, "active_subscriptions", counts.ActiveSubscriptions, "/subscriptions"),
		stat(r, "expiring_subscriptions", counts.ExpiringSubscriptions, "/subscriptions?expiring=1"),
		stat(r, "users", counts.Users, "/users"),
	}
	for _, o := range orgs {
		data.RecentOrgs = append(data.RecentOrgs, orgRow{
			ID:        o.ID.Hex(),
			Name:      o.Name,
			Plan:      o.Plan,
			Status:    o.Status,
			CreatedAt: o.CreatedAt,
		})
	}

	h.Log.Debug("superadmin dashboard served", zap.Int("recent_orgs", len(orgs)))
	viewkit.Render(w, r, "dashboard_superadmin", data)
}
