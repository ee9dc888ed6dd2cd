// internal/app/features/organizations/list.go
package organizations

import (
	"context"
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// listFilter builds the organizations query from ?q= and ?status=.
// Search matches the start of the folded name or of the slug.
func listFilter(q, status string) bson.M {
	f := bson.M{}
	if fq := text.Fold(q); fq != "" {
		hi := fq + "\uffff"
		f["$or"] = []bson.M{
			{"name_ci": bson.M{"$gte": fq, "$lt": hi}},
			{"slug": bson.M{"$gte": fq, "$lt": hi}},
			{"email": bson.M{"$gte": fq, "$lt": hi}},
		}
	}
	if status == models.OrgActive || status == models.OrgSuspended {
		f["status"] = status
	}
	return f
}

// ServeList handles GET /organizations. It supports HTMX refresh of the
// table when HX-Target is "organizations-table".
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := query.Search(r, "q")
	status := query.Get(r, "status")
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	filter := listFilter(q, status)
	total, err := h.Organizations.Count(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count organizations failed", err, "", "/dashboard")
		return
	}

	find := page.ApplyToFind(options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}))
	orgs, err := h.Organizations.Find(ctx, filter, find)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "find organizations failed", err, "", "/dashboard")
		return
	}

	ids := make([]primitive.ObjectID, 0, len(orgs))
	for _, o := range orgs {
		ids = append(ids, o.ID)
	}
	in := bson.M{"organization_id": bson.M{"$in": ids}}
	users, err := orgutil.AggregateCountByField(ctx, h.DB, "users", in, "organization_id")
	if err != nil {
		h.ErrLog.LogServerError(w, r, "aggregate user counts failed", err, "", "/dashboard")
		return
	}
	props, err := orgutil.AggregateCountByField(ctx, h.DB, "properties", in, "organization_id")
	if err != nil {
		h.ErrLog.LogServerError(w, r, "aggregate property counts failed", err, "", "/dashboard")
		return
	}

	data := listData{
		BaseVM:    viewdata.New(r, "organizations.title", "/dashboard"),
		Q:         q,
		Status:    status,
		Statuses:  []string{models.OrgActive, models.OrgSuspended},
		Paging:    paging.NewView(r, page, total, len(orgs)),
		CanCreate: gates.CanRequest(r, gates.Create, gates.Resource{Kind: gates.Organizations}),
	}
	for _, o := range orgs {
		res := gates.Resource{Kind: gates.Organizations, OrganizationID: o.ID, Status: o.Status}
		data.Items = append(data.Items, listItem{
			ID:         o.ID.Hex(),
			Name:       o.Name,
			Email:      o.Email,
			Plan:       o.Plan,
			Status:     o.Status,
			Users:      users[o.ID],
			Properties: props[o.ID],
			CreatedAt:  o.CreatedAt,
			CanView:    gates.CanRequest(r, gates.View, res),
			CanUpdate:  gates.CanRequest(r, gates.Update, res),
			CanSuspend: !o.IsSuspended() && gates.CanRequest(r, gates.Suspend, res),
		})
	}

	if viewkit.IsHTMXTarget(r, "organizations-table") {
		viewkit.RenderSnippet(w, r, "organizations_table", data)
		return
	}
	viewkit.Render(w, r, "organizations_list", data)
}
