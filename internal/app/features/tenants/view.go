package tenants

import (
	"context"
	"errors"
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const recentInvoices = 12

// ServeView shows an occupant with their recent invoices.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, ok := h.load(w, r, ctx, gates.View)
	if !ok {
		return
	}
	data := viewData{
		BaseVM: viewdata.New(r, "tenants.view_title", "/tenants"),
		Tenant: t,
	}

	p, err := h.Properties.GetByID(ctx, t.PropertyID)
	switch {
	case err == nil:
		data.PropertyLabel = p.Label()
	case !errors.Is(err, mongo.ErrNoDocuments):
		h.ErrLog.LogServerError(w, r, "load property failed", err, "", "/tenants")
		return
	}

	invs, err := h.Invoices.Recent(ctx, bson.M{"tenant_id": t.ID}, recentInvoices)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load invoices failed", err, "", "/tenants")
		return
	}
	for _, inv := range invs {
		data.Invoices = append(data.Invoices, invoiceRow{
			ID:          inv.ID.Hex(),
			Number:      inv.Number,
			PeriodStart: inv.PeriodStart,
			PeriodEnd:   inv.PeriodEnd,
			Status:      inv.Status,
			Total:       inv.TotalAmount,
		})
	}

	res := gates.Resource{Kind: gates.Tenants, OrganizationID: t.OrganizationID, TenantID: t.ID}
	data.CanUpdate = !data.ReadOnly && gates.CanRequest(r, gates.Update, res)
	data.CanDelete = !data.ReadOnly && len(invs) == 0 && gates.CanRequest(r, gates.Delete, res)
	data.CanGenerate = !data.ReadOnly && t.Active &&
		gates.CanRequest(r, gates.Generate, gates.Resource{Kind: gates.Invoices, OrganizationID: t.OrganizationID})
	if data.CanUpdate {
		if data.Properties, err = h.propertyOptions(ctx, u); err != nil {
			h.ErrLog.LogServerError(w, r, "load properties failed", err, "", "/tenants")
			return
		}
	}

	viewkit.Render(w, r, "tenants_view", data)
}

// HandleReassign moves the occupant to another property of the same
// organization.
func (h *Handler) HandleReassign(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/tenants")
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}
	back := "/tenants/" + t.ID.Hex()

	to, err := primitive.ObjectIDFromHex(formutil.Value(r, "property_id"))
	if err != nil {
		h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("tenants.pick_property"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	if to == t.PropertyID {
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	p, err := h.Properties.GetByID(ctx, to)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.LogServerError(w, r, "load property failed", err, "", back)
		return
	}
	if err != nil || p.OrganizationID != t.OrganizationID {
		h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("tenants.pick_property"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	if err := h.Tenants.Reassign(ctx, t.ID, p.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "reassign tenant failed", err, "", back)
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventTenantReassigned,
		OrganizationID: t.OrganizationID,
		TargetID:       t.ID,
		Details:        map[string]string{"from_property": t.PropertyID.Hex(), "to_property": p.ID.Hex()},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("tenants.reassigned", t.Name, p.Label()))
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// HandleToggleActive activates or deactivates an occupant. Inactive
// occupants are not billed.
func (h *Handler) HandleToggleActive(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}
	active := !t.Active
	if err := h.Tenants.SetActive(ctx, t.ID, active); err != nil {
		h.ErrLog.LogServerError(w, r, "toggle tenant failed", err, "", "/tenants")
		return
	}

	event, key := audit.EventTenantDeactivated, "tenants.deactivated"
	if active {
		event, key = audit.EventTenantActivated, "tenants.activated"
	}
	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      event,
		OrganizationID: t.OrganizationID,
		TargetID:       t.ID,
		Details:        map[string]string{"name": t.Name},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T(key, t.Name))
	http.Redirect(w, r, "/tenants/"+t.ID.Hex(), http.StatusSeeOther)
}

// HandleDelete removes an occupant that was never invoiced.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, ok := h.load(w, r, ctx, gates.Delete)
	if !ok {
		return
	}
	n, err := h.Invoices.Count(ctx, bson.M{"tenant_id": t.ID})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count invoices failed", err, "", "/tenants")
		return
	}
	if n > 0 {
		h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("tenants.has_invoices"))
		http.Redirect(w, r, "/tenants/"+t.ID.Hex(), http.StatusSeeOther)
		return
	}
	if _, err := h.Tenants.Delete(ctx, t.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "delete tenant failed", err, "", "/tenants")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventTenantDeleted,
		OrganizationID: t.OrganizationID,
		TargetID:       t.ID,
		Details:        map[string]string{"name": t.Name},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("tenants.deleted", t.Name))
	http.Redirect(w, r, "/tenants", http.StatusSeeOther)
}
