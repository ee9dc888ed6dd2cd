// internal/app/features/organizations/view.go
package organizations

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// loadOrg resolves {id} and renders 404 or 500 itself when it fails.
func (h *Handler) loadOrg(w http.ResponseWriter, r *http.Request, ctx context.Context) (models.Organization, bool) {
	org, err := orgutil.ResolveOrgFromHex(ctx, h.DB, chi.URLParam(r, "id"))
	if err != nil {
		if orgutil.IsExpectedOrgError(err) {
			uierrors.RenderNotFound(w, r, "/organizations")
			return org, false
		}
		h.ErrLog.LogServerError(w, r, "load organization failed", err, "", "/organizations")
		return org, false
	}
	return org, true
}

// ServeView shows an organization with its subscription and usage.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	org, ok := h.loadOrg(w, r, ctx)
	if !ok {
		return
	}
	res := gates.Resource{Kind: gates.Organizations, OrganizationID: org.ID, Status: org.Status}
	if !gates.Authorize(w, r, gates.View, res, "/organizations") {
		return
	}

	data := viewData{BaseVM: viewdata.New(r, "organizations.view_title", "/organizations"), Org: org}
	data.Title = org.Name

	sub, err := h.Subscriptions.GetByOrg(ctx, org.ID)
	switch {
	case err == nil:
		data.Subscription = &sub
		data.DaysLeft = sub.DaysUntilExpiry(time.Now())
	case !errors.Is(err, mongo.ErrNoDocuments):
		h.ErrLog.LogServerError(w, r, "load subscription failed", err, "", "/organizations")
		return
	}

	byOrg := bson.M{"organization_id": org.ID}
	if data.Users, err = h.DB.Collection("users").CountDocuments(ctx, byOrg); err != nil {
		h.ErrLog.LogServerError(w, r, "count users failed", err, "", "/organizations")
		return
	}
	if data.Properties, err = h.DB.Collection("properties").CountDocuments(ctx, byOrg); err != nil {
		h.ErrLog.LogServerError(w, r, "count properties failed", err, "", "/organizations")
		return
	}
	if data.Tenants, err = h.DB.Collection("tenants").CountDocuments(ctx, bson.M{"organization_id": org.ID, "active": true}); err != nil {
		h.ErrLog.LogServerError(w, r, "count tenants failed", err, "", "/organizations")
		return
	}

	data.CanUpdate = gates.CanRequest(r, gates.Update, res)
	data.CanSuspend = !org.IsSuspended() && gates.CanRequest(r, gates.Suspend, res)
	data.CanReactivate = org.IsSuspended() && gates.CanRequest(r, gates.Suspend, res)

	viewkit.Render(w, r, "organizations_view", data)
}
