package tariffs

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
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/tariff"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ServeView shows a tariff with the version history of its provider.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, ok := h.load(w, r, ctx, gates.View)
	if !ok {
		return
	}

	data := viewData{
		BaseVM:  viewdata.New(r, "tariffs.view_title", "/tariffs"),
		Tariff:  t,
		Current: t.IsActiveOn(time.Now().UTC()),
	}
	data.PartialDay = t.Configuration.Type == models.TariffTimeOfUse && !tariff.CoversFullDay(t.Configuration)

	history := []models.Tariff{t}
	if t.ProviderID != nil {
		p, err := h.Providers.GetByID(ctx, *t.ProviderID)
		switch {
		case err == nil:
			data.ProviderID = p.ID.Hex()
			data.ProviderName = p.Name
		case !errors.Is(err, mongo.ErrNoDocuments):
			h.ErrLog.LogServerError(w, r, "load provider failed", err, "", "/tariffs")
			return
		}
		if history, err = h.Tariffs.History(ctx, *t.ProviderID); err != nil {
			h.ErrLog.LogServerError(w, r, "load tariff history failed", err, "", "/tariffs")
			return
		}
	}
	for _, v := range history {
		data.History = append(data.History, historyRow{
			ID:          v.ID.Hex(),
			Name:        v.Name,
			ActiveFrom:  v.ActiveFrom,
			ActiveUntil: v.ActiveUntil,
			Selected:    v.ID == t.ID,
		})
	}

	res := gates.Resource{Kind: gates.Tariffs, OrganizationID: t.OrganizationID}
	data.CanUpdate = !data.ReadOnly && gates.CanRequest(r, gates.Update, res)
	data.CanDelete = !data.ReadOnly && gates.CanRequest(r, gates.Delete, res)

	viewkit.Render(w, r, "tariffs_view", data)
}

// HandleDelete removes a tariff no invoice line was priced with.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, ok := h.load(w, r, ctx, gates.Delete)
	if !ok {
		return
	}
	n, err := h.Invoices.Count(ctx, bson.M{"items.snapshot.tariff_id": t.ID})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count tariff invoices failed", err, "", "/tariffs")
		return
	}
	if n > 0 {
		h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("tariffs.in_use", n))
		http.Redirect(w, r, "/tariffs/"+t.ID.Hex(), http.StatusSeeOther)
		return
	}
	if _, err := h.Tariffs.Delete(ctx, t.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "delete tariff failed", err, "", "/tariffs")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventTariffDeleted,
		OrganizationID: t.OrganizationID,
		TargetID:       t.ID,
		Details:        map[string]string{"name": t.Name},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("tariffs.deleted", t.Name))
	http.Redirect(w, r, "/tariffs", http.StatusSeeOther)
}
