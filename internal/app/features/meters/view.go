package meters

import (
	"context"
	"errors"
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	meterstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/meters"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"
)

// historyLimit is how many recent readings the meter page shows.
const historyLimit = 50

// consumptionHistory pairs each reading with the previous one of the same
// zone. The input is oldest first; the output is newest first.
func consumptionHistory(readings []models.MeterReading) []historyRow {
	last := map[string]decimal.Decimal{}
	rows := make([]historyRow, len(readings))
	for i, rd := range readings {
		zone := rd.ZoneName()
		row := historyRow{
			ID:    rd.ID.Hex(),
			Date:  rd.ReadingDate,
			Zone:  zone,
			Value: rd.Value,
			Notes: rd.Notes,
		}
		if prev, ok := last[zone]; ok {
			c := rd.Value.Sub(prev)
			row.Consumption = &c
		}
		last[zone] = rd.Value
		rows[len(readings)-1-i] = row
	}
	return rows
}

// ServeView shows a meter and its reading history.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, ok := h.load(w, r, ctx, gates.View)
	if !ok {
		return
	}
	readings, err := h.Readings.ListByMeter(ctx, m.ID, historyLimit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list meter readings failed", err, "", "/meters")
		return
	}

	data := viewData{
		BaseVM:     viewdata.New(r, "meters.view_title", "/meters"),
		Meter:      m,
		Unit:       models.UnitFor(m.Type),
		PropertyID: m.PropertyID.Hex(),
		History:    consumptionHistory(readings),
	}
	p, err := h.Properties.GetByID(ctx, m.PropertyID)
	switch {
	case err == nil:
		data.PropertyLabel = p.Label()
	case !errors.Is(err, mongo.ErrNoDocuments):
		h.ErrLog.LogServerError(w, r, "load meter property failed", err, "", "/meters")
		return
	}

	res := gates.Resource{Kind: gates.Meters, OrganizationID: m.OrganizationID, PropertyID: m.PropertyID}
	data.CanUpdate = !data.ReadOnly && gates.CanRequest(r, gates.Update, res)
	data.CanDelete = !data.ReadOnly && len(readings) == 0 && gates.CanRequest(r, gates.Delete, res)
	readingRes := gates.Resource{Kind: gates.Readings, OrganizationID: m.OrganizationID, PropertyID: m.PropertyID}
	data.CanAddReading = !data.ReadOnly && gates.CanRequest(r, gates.Create, readingRes)
	canEditReading := !data.ReadOnly && gates.CanRequest(r, gates.Update, readingRes)
	for i := range data.History {
		data.History[i].CanUpdate = canEditReading
	}

	viewkit.Render(w, r, "meters_view", data)
}

// HandleDelete removes a meter without readings.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, ok := h.load(w, r, ctx, gates.Delete)
	if !ok {
		return
	}
	if _, err := h.Meters.Delete(ctx, m.ID); err != nil {
		if errors.Is(err, meterstore.ErrHasReadings) {
			h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("meters.has_readings"))
			http.Redirect(w, r, "/meters/"+m.ID.Hex(), http.StatusSeeOther)
			return
		}
		h.ErrLog.LogServerError(w, r, "delete meter failed", err, "", "/meters")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventMeterDeleted,
		OrganizationID: m.OrganizationID,
		TargetID:       m.ID,
		Details:        map[string]string{"serial_number": m.SerialNumber},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("meters.deleted", m.SerialNumber))
	http.Redirect(w, r, "/properties/"+m.PropertyID.Hex(), http.StatusSeeOther)
}
