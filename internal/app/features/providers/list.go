package providers

import (
	"context"
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgscope"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func isService(s string) bool {
	for _, st := range models.ServiceTypes {
		if st == s {
			return true
		}
	}
	return false
}

// ServeList handles GET /providers. Organizations have few providers, so
// the list is not paged.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	service := query.Get(r, "service")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	filter := orgscope.FromUser(u).Filter(bson.M{})
	if isService(service) {
		filter["service_type"] = service
	}
	ps, err := h.Providers.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "service_type", Value: 1}, {Key: "name_ci", Value: 1}}))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "find providers failed", err, "", "/dashboard")
		return
	}
	ids := make([]primitive.ObjectID, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	counts := map[primitive.ObjectID]int64{}
	if len(ids) > 0 {
		if counts, err = orgutil.AggregateCountByField(ctx, h.DB, "tariffs", bson.M{"provider_id": bson.M{"$in": ids}}, "provider_id"); err != nil {
			h.ErrLog.LogServerError(w, r, "count tariffs failed", err, "", "/dashboard")
			return
		}
	}

	data := listData{
		BaseVM:   viewdata.New(r, "providers.title", "/dashboard"),
		Service:  service,
		Services: models.ServiceTypes,
	}
	data.CanCreate = !data.ReadOnly && gates.CanRequest(r, gates.Create, gates.Resource{Kind: gates.Providers})
	for _, p := range ps {
		data.Items = append(data.Items, listItem{
			ID:        p.ID.Hex(),
			Name:      p.Name,
			Service:   p.ServiceType,
			Contact:   p.Contact,
			Tariffs:   counts[p.ID],
			CanUpdate: !data.ReadOnly && gates.CanRequest(r, gates.Update, gates.Resource{Kind: gates.Providers, OrganizationID: p.OrganizationID}),
		})
	}

	viewkit.Render(w, r, "providers_list", data)
}
