package properties

import (
	"context"
	"errors"
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	propertystore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/properties"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ServeView shows a property with its occupants and meters.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, ok := h.load(w, r, ctx, gates.View)
	if !ok {
		return
	}
	back := "/properties"
	if u.Role == models.RoleTenant {
		back = "/dashboard"
	}
	data := viewData{
		BaseVM:   viewdata.New(r, "properties.view_title", back),
		Property: p,
	}

	if p.BuildingID != nil {
		b, err := h.Buildings.GetByID(ctx, *p.BuildingID)
		switch {
		case err == nil:
			data.BuildingID = b.ID.Hex()
			data.BuildingName = b.Name
		case !errors.Is(err, mongo.ErrNoDocuments):
			h.ErrLog.LogServerError(w, r, "load building failed", err, "", back)
			return
		}
	}

	if u.Role != models.RoleTenant {
		tenants, err := h.Tenants.Find(ctx, bson.M{"property_id": p.ID},
			options.Find().SetSort(bson.D{{Key: "active", Value: -1}, {Key: "lease_start", Value: -1}}))
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load occupants failed", err, "", back)
			return
		}
		for _, t := range tenants {
			data.Tenants = append(data.Tenants, tenantRow{ID: t.ID.Hex(), Name: t.Name, Email: t.Email, LeaseStart: t.LeaseStart, Active: t.Active})
		}
	}

	meters, err := h.Meters.ListByProperty(ctx, p.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load meters failed", err, "", back)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(meters))
	for _, m := range meters {
		ids = append(ids, m.ID)
	}
	latest, err := h.Readings.LatestByMeters(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load latest readings failed", err, "", back)
		return
	}
	for _, m := range meters {
		row := meterRow{ID: m.ID.Hex(), Serial: m.SerialNumber, Type: m.Type, Unit: models.UnitFor(m.Type), Zones: m.SupportsZones}
		if rd, ok := latest[m.ID]; ok {
			v, d := rd.Value, rd.ReadingDate
			row.LastValue, row.LastReading = &v, &d
		}
		data.Meters = append(data.Meters, row)
	}

	res := gates.Resource{Kind: gates.Properties, OrganizationID: p.OrganizationID, PropertyID: p.ID}
	data.CanUpdate = !data.ReadOnly && gates.CanRequest(r, gates.Update, res)
	data.CanDelete = !data.ReadOnly && len(meters) == 0 && len(data.Tenants) == 0 && gates.CanRequest(r, gates.Delete, res)
	data.CanAddTenant = !data.ReadOnly && gates.CanRequest(r, gates.Create, gates.Resource{Kind: gates.Tenants, OrganizationID: p.OrganizationID})
	data.CanAddMeter = !data.ReadOnly && gates.CanRequest(r, gates.Create, gates.Resource{Kind: gates.Meters, OrganizationID: p.OrganizationID})

	viewkit.Render(w, r, "properties_view", data)
}

// HandleDelete removes a property without meters or occupants.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, ok := h.load(w, r, ctx, gates.Delete)
	if !ok {
		return
	}
	if _, err := h.Properties.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, propertystore.ErrInUse) {
			h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("properties.in_use"))
			http.Redirect(w, r, "/properties/"+p.ID.Hex(), http.StatusSeeOther)
			return
		}
		h.ErrLog.LogServerError(w, r, "delete property failed", err, "", "/properties")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventPropertyDeleted,
		OrganizationID: p.OrganizationID,
		TargetID:       p.ID,
		Details:        map[string]string{"address": p.Label()},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("properties.deleted", p.Label()))
	http.Redirect(w, r, "/properties", http.StatusSeeOther)
}
