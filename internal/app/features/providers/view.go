package providers

import (
	"context"
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
	"go.mongodb.org/mongo-driver/bson"
)

// ServeView shows a provider and its tariffs, newest first.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, ok := h.load(w, r, ctx, gates.View)
	if !ok {
		return
	}
	ts, err := h.Tariffs.ListByProvider(ctx, p.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list provider tariffs failed", err, "", "/providers")
		return
	}

	data := viewData{
		BaseVM:   viewdata.New(r, "providers.view_title", "/providers"),
		Provider: p,
	}
	now := time.Now().UTC()
	for _, t := range ts {
		data.Tariffs = append(data.Tariffs, tariffRow{
			ID:          t.ID.Hex(),
			Name:        t.Name,
			Type:        t.Configuration.Type,
			ActiveFrom:  t.ActiveFrom,
			ActiveUntil: t.ActiveUntil,
			Current:     t.IsActiveOn(now),
		})
	}

	res := gates.Resource{Kind: gates.Providers, OrganizationID: p.OrganizationID}
	data.CanUpdate = !data.ReadOnly && gates.CanRequest(r, gates.Update, res)
	data.CanDelete = !data.ReadOnly && len(ts) == 0 && gates.CanRequest(r, gates.Delete, res)
	data.CanCreateTariff = !data.ReadOnly && gates.CanRequest(r, gates.Create, gates.Resource{Kind: gates.Tariffs, OrganizationID: p.OrganizationID})

	viewkit.Render(w, r, "providers_view", data)
}

// HandleDelete removes a provider that has no tariffs.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, ok := h.load(w, r, ctx, gates.Delete)
	if !ok {
		return
	}
	n, err := h.Tariffs.Count(ctx, bson.M{"provider_id": p.ID})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count provider tariffs failed", err, "", "/providers")
		return
	}
	if n > 0 {
		h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("providers.has_tariffs", n))
		http.Redirect(w, r, "/providers/"+p.ID.Hex(), http.StatusSeeOther)
		return
	}
	if _, err := h.Providers.Delete(ctx, p.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "delete provider failed", err, "", "/providers")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventProviderDeleted,
		OrganizationID: p.OrganizationID,
		TargetID:       p.ID,
		Details:        map[string]string{"name": p.Name},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("providers.deleted", p.Name))
	http.Redirect(w, r, "/providers", http.StatusSeeOther)
}
