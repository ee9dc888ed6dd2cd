package meters

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
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func listFilter(u *auth.SessionUser, q, meterType, property string) bson.M {
	f := orgscope.FromUser(u).PropertyFilter(bson.M{}, "property_id")
	if q != "" {
		f["serial_number"] = bson.M{"$gte": q, "$lt": q + "\uffff"}
	}
	if models.IsValidMeterType(meterType) {
		f["type"] = meterType
	}
	if oid, err := primitive.ObjectIDFromHex(property); err == nil {
		if _, scoped := f["property_id"]; !scoped {
			f["property_id"] = oid
		}
	}
	return f
}

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

// ServeList handles GET /meters.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	q := query.Search(r, "q")
	meterType := query.Get(r, "type")
	property := query.Get(r, "property")
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	filter := listFilter(u, q, meterType, property)
	total, err := h.Meters.Count(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count meters failed", err, "", "/dashboard")
		return
	}
	find := page.ApplyToFind(options.Find().SetSort(bson.D{{Key: "serial_number", Value: 1}, {Key: "_id", Value: 1}}))
	ms, err := h.Meters.Find(ctx, filter, find)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "find meters failed", err, "", "/dashboard")
		return
	}

	meterIDs := make([]primitive.ObjectID, 0, len(ms))
	propIDs := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		meterIDs = append(meterIDs, m.ID)
		propIDs = append(propIDs, m.PropertyID)
	}
	labels, err := h.propertyLabels(ctx, propIDs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load meter properties failed", err, "", "/dashboard")
		return
	}
	latest, err := h.Readings.LatestByMeters(ctx, meterIDs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load latest readings failed", err, "", "/dashboard")
		return
	}

	data := listData{
		BaseVM:     viewdata.New(r, "meters.title", "/dashboard"),
		Q:          q,
		Type:       meterType,
		Types:      models.MeterTypes,
		PropertyID: property,
		Paging:     paging.NewView(r, page, total, len(ms)),
		IsTenant:   orgscope.FromUser(u).IsTenant(),
	}
	data.CanCreate = !data.ReadOnly && gates.CanRequest(r, gates.Create, gates.Resource{Kind: gates.Meters})
	for _, m := range ms {
		item := listItem{
			ID:         m.ID.Hex(),
			Serial:     m.SerialNumber,
			Type:       m.Type,
			Unit:       models.UnitFor(m.Type),
			Zoned:      m.SupportsZones,
			PropertyID: m.PropertyID.Hex(),
			Property:   labels[m.PropertyID],
			CanUpdate:  !data.ReadOnly && gates.CanRequest(r, gates.Update, gates.Resource{Kind: gates.Meters, OrganizationID: m.OrganizationID, PropertyID: m.PropertyID}),
		}
		if rd, ok := latest[m.ID]; ok {
			v, d := rd.Value, rd.ReadingDate
			item.LastValue = &v
			item.LastReading = &d
		}
		data.Items = append(data.Items, item)
	}

	viewkit.Render(w, r, "meters_list", data)
}
