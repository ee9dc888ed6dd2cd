package readings

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
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

// visibleMeters returns the meters u may see, keyed by id. Tenants see the
// meters of their own property only.
func (h *Handler) visibleMeters(ctx context.Context, u *auth.SessionUser) (map[primitive.ObjectID]models.Meter, error) {
	ms, err := h.Meters.Find(ctx, orgscope.FromUser(u).PropertyFilter(bson.M{}, "property_id"),
		options.Find().SetSort(bson.D{{Key: "serial_number", Value: 1}}).SetLimit(5000))
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]models.Meter, len(ms))
	for _, m := range ms {
		out[m.ID] = m
	}
	return out, nil
}

// listFilter restricts readings to the visible meters, optionally to one
// meter and a date range.
func listFilter(visible map[primitive.ObjectID]models.Meter, meter, from, to string) bson.M {
	ids := make([]primitive.ObjectID, 0, len(visible))
	for id := range visible {
		ids = append(ids, id)
	}
	f := bson.M{"meter_id": bson.M{"$in": ids}}
	if oid, err := primitive.ObjectIDFromHex(meter); err == nil {
		if _, ok := visible[oid]; ok {
			f["meter_id"] = oid
		} else {
			f["meter_id"] = primitive.NilObjectID
		}
	}
	dates := bson.M{}
	if d, ok := formutil.ParseDate(from); ok {
		dates["$gte"] = d
	}
	if d, ok := formutil.ParseDate(to); ok {
		dates["$lte"] = d
	}
	if len(dates) > 0 {
		f["reading_date"] = dates
	}
	return f
}

// ServeList handles GET /readings, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	meter := query.Get(r, "meter")
	from := query.Get(r, "from")
	to := query.Get(r, "to")
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	visible, err := h.visibleMeters(ctx, u)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load meters failed", err, "", "/dashboard")
		return
	}
	filter := listFilter(visible, meter, from, to)
	total, err := h.Readings.Count(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count readings failed", err, "", "/dashboard")
		return
	}
	find := page.ApplyToFind(options.Find().SetSort(bson.D{{Key: "reading_date", Value: -1}, {Key: "_id", Value: -1}}))
	rds, err := h.Readings.Find(ctx, filter, find)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "find readings failed", err, "", "/dashboard")
		return
	}

	data := listData{
		BaseVM:  viewdata.New(r, "readings.title", "/dashboard"),
		MeterID: meter,
		From:    from,
		To:      to,
		Paging:  paging.NewView(r, page, total, len(rds)),
	}
	newRes := gates.Resource{Kind: gates.Readings}
	if oid, err := primitive.ObjectIDFromHex(meter); err == nil {
		if m, ok := visible[oid]; ok {
			newRes = gates.Resource{Kind: gates.Readings, OrganizationID: m.OrganizationID, PropertyID: m.PropertyID}
		}
	}
	data.CanCreate = !data.ReadOnly && gates.CanRequest(r, gates.Create, newRes)
	for _, rd := range rds {
		m := visible[rd.MeterID]
		res := gates.Resource{Kind: gates.Readings, OrganizationID: rd.OrganizationID, PropertyID: m.PropertyID}
		data.Items = append(data.Items, listItem{
			ID:        rd.ID.Hex(),
			MeterID:   rd.MeterID.Hex(),
			Serial:    m.SerialNumber,
			MeterType: m.Type,
			Unit:      models.UnitFor(m.Type),
			Date:      rd.ReadingDate,
			Zone:      rd.ZoneName(),
			Value:     rd.Value,
			Notes:     rd.Notes,
			CanUpdate: !data.ReadOnly && gates.CanRequest(r, gates.Update, res),
			CanDelete: !data.ReadOnly && gates.CanRequest(r, gates.Delete, res),
		})
	}

	viewkit.Render(w, r, "readings_list", data)
}

func meterLabel(m models.Meter, property string) string {
	if property == "" {
		return m.SerialNumber
	}
	return fmt.Sprintf("%s (%s)", m.SerialNumber, property)
}
