package subscriptions

import (
	"context"
	"net/http"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/subscriptioncheck"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var statuses = []string{
	models.SubscriptionActive,
	models.SubscriptionExpired,
	models.SubscriptionSuspended,
	models.SubscriptionCancelled,
}

func listFilter(status string, expiring bool, now time.Time) bson.M {
	f := bson.M{}
	for _, s := range statuses {
		if s == status {
			f["status"] = s
		}
	}
	if expiring {
		f["status"] = models.SubscriptionActive
		f["expires_at"] = bson.M{"$gte": now, "$lt": now.AddDate(0, 0, subscriptioncheck.WarnWithinDays)}
	}
	return f
}

// ServeList lists subscriptions soonest expiry first. Admins are sent to
// their own organization's subscription.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, _ := auth.CurrentUser(r)
	if !u.IsSuperAdmin() {
		orgID, err := primitive.ObjectIDFromHex(u.OrganizationID)
		if err != nil {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		sub, err := h.Subscriptions.GetByOrg(ctx, orgID)
		if err != nil {
			data := listData{BaseVM: viewdata.New(r, "subscriptions.title", "/dashboard")}
			viewkit.Render(w, r, "subscriptions_list", data)
			return
		}
		http.Redirect(w, r, "/subscriptions/"+sub.ID.Hex(), http.StatusSeeOther)
		return
	}

	now := h.now()
	status := query.Get(r, "status")
	expiring := query.Get(r, "expiring") == "1"
	page := paging.Parse(r)
	filter := listFilter(status, expiring, now)

	total, err := h.Subscriptions.Count(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count subscriptions failed", err, "", "/dashboard")
		return
	}
	find := page.ApplyToFind(options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}, {Key: "_id", Value: 1}}))
	subs, err := h.Subscriptions.Find(ctx, filter, find)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "find subscriptions failed", err, "", "/dashboard")
		return
	}

	orgIDs := make([]primitive.ObjectID, 0, len(subs))
	for _, s := range subs {
		orgIDs = append(orgIDs, s.OrganizationID)
	}
	names, err := h.Organizations.NamesByID(ctx, orgIDs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load organization names failed", err, "", "/dashboard")
		return
	}

	data := listData{
		BaseVM:   viewdata.New(r, "subscriptions.title", "/dashboard"),
		Status:   status,
		Statuses: statuses,
		Expiring: expiring,
		Paging:   paging.NewView(r, page, total, len(subs)),
	}
	for _, s := range subs {
		days := s.DaysUntilExpiry(now)
		data.Items = append(data.Items, listItem{
			ID:            s.ID.Hex(),
			OrgName:       names[s.OrganizationID],
			Plan:          s.PlanType,
			Status:        s.Status,
			ExpiresAt:     s.ExpiresAt,
			DaysLeft:      days,
			ExpiringSoon:  s.IsActive(now) && days <= subscriptioncheck.WarnWithinDays,
			MaxProperties: s.MaxProperties,
			MaxTenants:    s.MaxTenants,
			CanView: gates.CanRequest(r, gates.View, gates.Resource{
				Kind: gates.Subscriptions, OrganizationID: s.OrganizationID, Status: s.Status,
			}),
		})
	}

	viewkit.Render(w, r, "subscriptions_list", data)
}
