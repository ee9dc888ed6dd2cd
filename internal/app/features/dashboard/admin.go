// internal/app/features/dashboard/admin.go
package dashboard

import (
	"context"
	"net/http"
	"time"

	metricsstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/metrics"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/authz"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/subscriptioncheck"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// subscriptionVM summarizes the organization's subscription for admins.
type subscriptionVM struct {
	State     string
	Plan      string
	ExpiresAt time.Time
	DaysLeft  int
}

type orgDashboardData struct {
	viewdata.BaseVM
	Stats          []statCard
	Subscription   *subscriptionVM
	RecentInvoices []invoiceRow
	CanGenerate    bool
}

func (h *Handler) orgCounts(ctx context.Context, orgID primitive.ObjectID) metricsstore.OrgCounts {
	start := h.monthStart()
	key := "dashboard:org:" + orgID.Hex() + ":" + start.Format("2006-01")
	return cached(h, key, func() (metricsstore.OrgCounts, error) {
		return metricsstore.FetchOrgCounts(ctx, h.DB, orgID, start)
	})
}

func (h *Handler) orgDashboard(w http.ResponseWriter, r *http.Request, titleKey string, stats func(metricsstore.OrgCounts) []statCard) (orgDashboardData, bool) {
	orgID := authz.UserOrgID(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	counts := h.orgCounts(ctx, orgID)
	recent, err := h.Invoices.Recent(ctx, bson.M{"organization_id": orgID}, recentLimit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "failed to load recent invoices", err, "", "/")
		return orgDashboardData{}, false
	}

	data := orgDashboardData{BaseVM: viewdata.New(r, titleKey, "/")}
	data.Stats = stats(counts)
	data.RecentInvoices = invoiceRows(r, recent, h.now())
	data.CanGenerate = !data.ReadOnly && gates.CanRequest(r, gates.Generate, gates.Resource{Kind: gates.Invoices, OrganizationID: orgID})
	return data, true
}

func (h *Handler) ServeAdmin(w http.ResponseWriter, r *http.Request) {
	data, ok := h.orgDashboard(w, r, "dashboard.admin.title", func(c metricsstore.OrgCounts) []statCard {
		return []statCard{
			stat(r, "users", c.Users, "/users"),
			stat(r, "properties", c.Properties, "/properties"),
			stat(r, "active_tenants", c.ActiveTenants, "/tenants"),
			stat(r, "meters", c.Meters, "/meters"),
			stat(r, "draft_invoices", c.DraftInvoices, "/invoices?status=draft"),
			stat(r, "finalized_invoices", c.FinalizedInvoices, "/invoices?status=finalized"),
		}
	})
	if !ok {
		return
	}
	if st, ok := subscriptioncheck.FromContext(r.Context()); ok {
		data.Subscription = &subscriptionVM{
			State:     st.State,
			Plan:      st.Plan,
			ExpiresAt: st.ExpiresAt,
			DaysLeft:  st.DaysLeft,
		}
	}
	viewkit.Render(w, r, "dashboard_admin", data)
}

func (h *Handler) ServeManager(w http.ResponseWriter, r *http.Request) {
	data, ok := h.orgDashboard(w, r, "dashboard.manager.title", func(c metricsstore.OrgCounts) []statCard {
		return []statCard{
			stat(r, "properties", c.Properties, "/properties"),
			stat(r, "meters", c.Meters, "/meters"),
			stat(r, "pending_readings", c.PendingReadings, "/readings/new"),
			stat(r, "draft_invoices", c.DraftInvoices, "/invoices?status=draft"),
		}
	})
	if !ok {
		return
	}
	viewkit.Render(w, r, "dashboard_manager", data)
}
