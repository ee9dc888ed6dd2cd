package buildings

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/circulation"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ServeView shows a building, its properties and this month's circulation
// fee split across them by area.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	b, ok := h.load(w, r, ctx, gates.View)
	if !ok {
		return
	}
	props, err := h.Properties.ListByBuilding(ctx, b.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list building properties failed", err, "", "/buildings")
		return
	}

	month := monthStart(h.now().UTC())
	data := viewData{
		BaseVM:     viewdata.New(r, "buildings.view_title", "/buildings"),
		ID:         b.ID.Hex(),
		Name:       b.Name,
		Address:    b.Address,
		Apartments: b.TotalApartments,
		Month:      month,
	}
	data.SeasonKey = "buildings.season_heating"
	if h.Circulation.IsSummer(month) {
		data.SeasonKey = "buildings.season_summer"
	}

	fee, err := h.Circulation.Calculate(ctx, &b, month)
	switch {
	case errors.Is(err, circulation.ErrInvalidBuilding):
		data.FeeUnavailable = true
	case err != nil:
		h.ErrLog.LogServerError(w, r, "calculate circulation fee failed", err, "", "/buildings")
		return
	default:
		data.Fee = fee
		data.PerApartment, _ = h.Circulation.PerApartment(ctx, &b, month)
	}
	data.Average = b.CirculationSummerAverage
	data.CalculatedAt = b.CirculationCalculatedAt

	shares := make([]circulation.Share, 0, len(props))
	for _, p := range props {
		shares = append(shares, circulation.Share{PropertyID: p.ID, AreaSqm: p.AreaSqm})
	}
	split := circulation.Distribute(data.Fee, shares, circulation.ByArea)
	for i, p := range props {
		row := propertyRow{ID: p.ID.Hex(), Label: p.Label(), AreaSqm: p.AreaSqm}
		if i < len(split) {
			row.Share = split[i].Amount
		}
		data.Properties = append(data.Properties, row)
	}

	res := gates.Resource{Kind: gates.Buildings, OrganizationID: b.OrganizationID}
	data.CanUpdate = !data.ReadOnly && gates.CanRequest(r, gates.Update, res)
	data.CanDelete = !data.ReadOnly && len(props) == 0 && gates.CanRequest(r, gates.Delete, res)
	data.CanRecalculate = data.CanUpdate && !data.FeeUnavailable

	viewkit.Render(w, r, "buildings_view", data)
}

// HandleDelete removes a building that no longer has properties.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	b, ok := h.load(w, r, ctx, gates.Delete)
	if !ok {
		return
	}
	n, err := h.Properties.Count(ctx, bson.M{"building_id": b.ID})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count building properties failed", err, "", "/buildings")
		return
	}
	if n > 0 {
		h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("buildings.has_properties", n))
		http.Redirect(w, r, "/buildings/"+b.ID.Hex(), http.StatusSeeOther)
		return
	}
	if _, err := h.Buildings.Delete(ctx, b.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "delete building failed", err, "", "/buildings")
		return
	}
	h.Circulation.ClearBuilding(b.ID)

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventBuildingDeleted,
		OrganizationID: b.OrganizationID,
		TargetID:       b.ID,
		Details:        map[string]string{"name": b.Name},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("buildings.deleted", b.Name))
	http.Redirect(w, r, "/buildings", http.StatusSeeOther)
}

// HandleRecalculate recomputes the stored summer average and drops the
// cached fees of the building.
func (h *Handler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	b, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}
	back := "/buildings/" + b.ID.Hex()

	avg, err := h.Circulation.RecalculateSummerAverage(ctx, &b)
	if err != nil {
		if errors.Is(err, circulation.ErrInvalidBuilding) {
			h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("buildings.fee_unavailable"))
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		h.ErrLog.LogServerError(w, r, "recalculate circulation failed", err, "", back)
		return
	}
	h.Circulation.ClearBuilding(b.ID)

	h.AuditLog.Billing(ctx, r, u, auditlog.Action{
		EventType:      audit.EventCirculationRecalc,
		OrganizationID: b.OrganizationID,
		TargetID:       b.ID,
		Details:        map[string]string{"average": avg.StringFixed(2)},
	})
	h.Log.Info("circulation average recalculated", zap.String("building_id", b.ID.Hex()), zap.String("average", avg.StringFixed(2)))

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("buildings.recalculated", loc.Money(avg)))
	http.Redirect(w, r, back, http.StatusSeeOther)
}
