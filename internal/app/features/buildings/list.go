package buildings

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

func listFilter(u *auth.SessionUser, q string) bson.M {
	f := orgscope.FromUser(u).Filter(bson.M{})
	if fq := text.Fold(q); fq != "" {
		f["name_ci"] = bson.M{"$gte": fq, "$lt": fq + "\uffff"}
	}
	return f
}

// ServeList handles GET /buildings.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	q := query.Search(r, "q")
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	filter := listFilter(u, q)
	total, err := h.Buildings.Count(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count buildings failed", err, "", "/dashboard")
		return
	}
	find := page.ApplyToFind(options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}))
	bs, err := h.Buildings.Find(ctx, filter, find)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "find buildings failed", err, "", "/dashboard")
		return
	}

	ids := make([]primitive.ObjectID, 0, len(bs))
	for _, b := range bs {
		ids = append(ids, b.ID)
	}
	counts := map[primitive.ObjectID]int64{}
	if len(ids) > 0 {
		counts, err = orgutil.AggregateCountByField(ctx, h.DB, "properties", bson.M{"building_id": bson.M{"$in": ids}}, "building_id")
		if err != nil {
			h.ErrLog.LogServerError(w, r, "count building properties failed", err, "", "/dashboard")
			return
		}
	}

	data := listData{
		BaseVM: viewdata.New(r, "buildings.title", "/dashboard"),
		Q:      q,
		Paging: paging.NewView(r, page, total, len(bs)),
	}
	data.CanCreate = !data.ReadOnly && gates.CanRequest(r, gates.Create, gates.Resource{Kind: gates.Buildings})
	for _, b := range bs {
		data.Items = append(data.Items, listItem{
			ID:         b.ID.Hex(),
			Name:       b.Name,
			Address:    b.Address,
			Apartments: b.TotalApartments,
			Properties: counts[b.ID],
			CanUpdate:  !data.ReadOnly && gates.CanRequest(r, gates.Update, gates.Resource{Kind: gates.Buildings, OrganizationID: b.OrganizationID}),
		})
	}

	viewkit.Render(w, r, "buildings_list", data)
}
