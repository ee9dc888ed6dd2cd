package tenants

import (
	"context"
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgscope"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func listFilter(u *auth.SessionUser, q, status string) bson.M {
	f := orgscope.FromUser(u).Filter(bson.M{})
	if fq := text.Fold(q); fq != "" {
		hi := fq + "\uffff"
		f["$or"] = []bson.M{
			{"name_ci": bson.M{"$gte": fq, "$lt": hi}},
			{"email": bson.M{"$gte": fq, "$lt": hi}},
		}
	}
	switch status {
	case "active":
		f["active"] = true
	case "inactive":
		f["active"] = false
	}
	return f
}

// propertyLabels loads the labels of the given properties.
func (h *Handler) propertyLabels(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	props, err := h.Properties.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, p := range props {
		out[p.ID] = p.Label()
	}
	return out, nil
}

// ServeList handles GET /tenants.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	q := query.Search(r, "q")
	status := query.Get(r, "status")
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	filter := listFilter(u, q, status)
	total, err := h.Tenants.Count(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count tenants failed", err, "", "/dashboard")
		return
	}
	find := page.ApplyToFind(options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}))
	ts, err := h.Tenants.Find(ctx, filter, find)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "find tenants failed", err, "", "/dashboard")
		return
	}
	ids := make([]primitive.ObjectID, 0, len(ts))
	for _, t := range ts {
		ids = append(ids, t.PropertyID)
	}
	labels, err := h.propertyLabels(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load properties failed", err, "", "/dashboard")
		return
	}

	data := listData{
		BaseVM: viewdata.New(r, "tenants.title", "/dashboard"),
		Q:      q,
		Status: status,
		Paging: paging.NewView(r, page, total, len(ts)),
	}
	data.CanCreate = !data.ReadOnly && gates.CanRequest(r, gates.Create, gates.Resource{Kind: gates.Tenants})
	for _, t := range ts {
		data.Items = append(data.Items, listItem{
			ID:         t.ID.Hex(),
			Name:       t.Name,
			Email:      t.Email,
			Property:   labels[t.PropertyID],
			PropertyID: t.PropertyID.Hex(),
			LeaseStart: t.LeaseStart,
			LeaseEnd:   t.LeaseEnd,
			Active:     t.Active,
			CanUpdate:  !data.ReadOnly && gates.CanRequest(r, gates.Update, gates.Resource{Kind: gates.Tenants, OrganizationID: t.OrganizationID}),
		})
	}

	viewkit.Render(w, r, "tenants_list", data)
}
