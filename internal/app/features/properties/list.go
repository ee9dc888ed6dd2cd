package properties

import (
	"context"
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgscope"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgutil"
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

func listFilter(u *auth.SessionUser, q, typ, building string) bson.M {
	f := orgscope.FromUser(u).Filter(bson.M{})
	if fq := text.Fold(q); fq != "" {
		f["address_ci"] = bson.M{"$gte": fq, "$lt": fq + "\uffff"}
	}
	for _, t := range propertyTypes {
		if t == typ {
			f["type"] = typ
		}
	}
	if id, err := primitive.ObjectIDFromHex(building); err == nil {
		f["building_id"] = id
	}
	return f
}

// buildingOptions lists the buildings visible to u by name.
func (h *Handler) buildingOptions(ctx context.Context, filter bson.M) ([]option, map[primitive.ObjectID]string, error) {
	bs, err := h.Buildings.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, nil, err
	}
	opts := make([]option, 0, len(bs))
	names := make(map[primitive.ObjectID]string, len(bs))
	for _, b := range bs {
		opts = append(opts, option{ID: b.ID.Hex(), Name: b.Name})
		names[b.ID] = b.Name
	}
	return opts, names, nil
}

// ServeList handles GET /properties.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	q := query.Search(r, "q")
	typ := query.Get(r, "type")
	building := query.Get(r, "building")
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	filter := listFilter(u, q, typ, building)
	total, err := h.Properties.Count(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count properties failed", err, "", "/dashboard")
		return
	}
	find := page.ApplyToFind(options.Find().SetSort(bson.D{{Key: "address_ci", Value: 1}, {Key: "unit_number", Value: 1}, {Key: "_id", Value: 1}}))
	props, err := h.Properties.Find(ctx, filter, find)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "find properties failed", err, "", "/dashboard")
		return
	}
	buildings, names, err := h.buildingOptions(ctx, orgscope.FromUser(u).Filter(bson.M{}))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load buildings failed", err, "", "/dashboard")
		return
	}

	ids := make([]primitive.ObjectID, 0, len(props))
	for _, p := range props {
		ids = append(ids, p.ID)
	}
	occupants := map[primitive.ObjectID]int64{}
	if len(ids) > 0 {
		occupants, err = orgutil.AggregateCountByField(ctx, h.DB, "tenants", bson.M{"property_id": bson.M{"$in": ids}, "active": true}, "property_id")
		if err != nil {
			h.ErrLog.LogServerError(w, r, "count occupants failed", err, "", "/dashboard")
			return
		}
	}

	data := listData{
		BaseVM:     viewdata.New(r, "properties.title", "/dashboard"),
		Q:          q,
		Type:       typ,
		Types:      propertyTypes,
		BuildingID: building,
		Buildings:  buildings,
		Paging:     paging.NewView(r, page, total, len(props)),
	}
	data.CanCreate = !data.ReadOnly && gates.CanRequest(r, gates.Create, gates.Resource{Kind: gates.Properties})
	for _, p := range props {
		item := listItem{
			ID:      p.ID.Hex(),
			Label:   p.Label(),
			Type:    p.Type,
			AreaSqm: p.AreaSqm,
			Tenants: occupants[p.ID],
		}
		if p.BuildingID != nil {
			item.Building = names[*p.BuildingID]
		}
		item.CanUpdate = !data.ReadOnly && gates.CanRequest(r, gates.Update, gates.Resource{Kind: gates.Properties, OrganizationID: p.OrganizationID})
		data.Items = append(data.Items, item)
	}

	viewkit.Render(w, r, "properties_list", data)
}
