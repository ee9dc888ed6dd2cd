package invoices

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/billing"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func resourceOf(inv models.Invoice) gates.Resource {
	return gates.Resource{
		Kind:           gates.Invoices,
		OrganizationID: inv.OrganizationID,
		PropertyID:     inv.PropertyID,
		TenantID:       inv.TenantID,
		Status:         inv.Status,
	}
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, ctx context.Context, action gates.Action) (models.Invoice, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderNotFound(w, r, "/invoices")
		return models.Invoice{}, false
	}
	inv, err := h.Invoices.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/invoices")
			return models.Invoice{}, false
		}
		h.ErrLog.LogServerError(w, r, "load invoice failed", err, "", "/invoices")
		return models.Invoice{}, false
	}
	// State rules are reported as flashes by the handlers; here only the
	// role and ownership are checked.
	res := resourceOf(inv)
	res.Status = ""
	if !gates.Authorize(w, r, action, res, "/invoices") {
		return models.Invoice{}, false
	}
	return inv, true
}

// ServeView shows an invoice with its lines.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	inv, ok := h.load(w, r, ctx, gates.View)
	if !ok {
		return
	}
	tenants, props, err := h.names(ctx, []models.Invoice{inv})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load invoice names failed", err, "", "/invoices")
		return
	}

	data := viewData{
		BaseVM:   viewdata.New(r, "invoices.view_title", "/invoices"),
		Invoice:  inv,
		Tenant:   tenants[inv.TenantID],
		Property: props[inv.PropertyID],
		Overdue:  inv.IsOverdue(h.now().UTC()),
	}
	res := resourceOf(inv)
	data.CanFinalize = !data.ReadOnly && gates.CanRequest(r, gates.Finalize, res)
	data.CanMarkPaid = !data.ReadOnly && gates.CanRequest(r, gates.MarkPaid, res)
	data.CanRecalculate = !data.ReadOnly && gates.CanRequest(r, gates.Update, res)
	data.CanDelete = !data.ReadOnly && gates.CanRequest(r, gates.Delete, res)

	viewkit.Render(w, r, "invoices_view", data)
}

// transition runs one lifecycle step and reports the outcome as a flash.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action gates.Action, eventType, successKey string,
	step func(ctx context.Context, inv models.Invoice) (models.Invoice, error)) {
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	inv, ok := h.load(w, r, ctx, action)
	if !ok {
		return
	}
	back := "/invoices/" + inv.ID.Hex()

	out, err := step(ctx, inv)
	switch {
	case errors.Is(err, billing.ErrInvoiceFinalized):
		h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("invoices.not_draft"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	case errors.Is(err, billing.ErrNotFinalized):
		h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("invoices.not_finalized"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.RenderNotFound(w, r, "/invoices")
		return
	case err != nil:
		if _, msg, ok := billingMessage(loc, err); ok {
			h.SessionMgr.AddFlash(w, r, auth.FlashError, msg)
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		h.ErrLog.LogServerError(w, r, "invoice "+string(action)+" failed", err, "", back)
		return
	}

	h.AuditLog.Billing(ctx, r, u, auditlog.Action{
		EventType:      eventType,
		OrganizationID: inv.OrganizationID,
		TargetID:       inv.ID,
		Details: map[string]string{
			"number":     inv.Number,
			"status_old": inv.Status,
			"status_new": out.Status,
			"total":      out.TotalAmount.StringFixed(2),
		},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T(successKey, inv.Number))
	if out.ID.IsZero() {
		back = "/invoices"
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// HandleFinalize locks a draft.
func (h *Handler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, gates.Finalize, audit.EventInvoiceFinalized, "invoices.finalized",
		func(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
			return h.Billing.Finalize(ctx, inv.ID)
		})
}

// HandleMarkPaid records payment of a finalized invoice.
func (h *Handler) HandleMarkPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, gates.MarkPaid, audit.EventInvoicePaid, "invoices.paid",
		func(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
			return h.Billing.MarkPaid(ctx, inv.ID)
		})
}

// HandleRecalculate recomputes a draft from the current readings.
func (h *Handler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, gates.Update, audit.EventInvoiceRecomputed, "invoices.recalculated",
		func(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
			return h.Billing.RecalculateDraft(ctx, inv.ID)
		})
}

// HandleDelete removes a draft.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, gates.Delete, audit.EventInvoiceDeleted, "invoices.deleted",
		func(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
			if err := h.Billing.DeleteDraft(ctx, inv.ID); err != nil {
				return models.Invoice{}, err
			}
			return models.Invoice{Status: "deleted", TotalAmount: inv.TotalAmount}, nil
		})
}
