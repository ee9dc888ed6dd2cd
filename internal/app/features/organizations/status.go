// internal/app/features/organizations/status.go
package organizations

import (
	"context"
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/htmlsanitize"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/navigation"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxReasonLen = 500

// syncSubscriptions mirrors an organization status change onto its
// subscription so the read-only check picks it up.
func (h *Handler) syncSubscriptions(ctx context.Context, ids []primitive.ObjectID, orgStatus string) {
	subStatus := models.SubscriptionActive
	if orgStatus == models.OrgSuspended {
		subStatus = models.SubscriptionSuspended
	}
	for _, id := range ids {
		if err := h.Subscriptions.UpdateStatus(ctx, id, subStatus); err != nil {
			h.Log.Warn("subscription status sync failed", zap.String("org_id", id.Hex()), zap.Error(err))
		}
		if h.Checker != nil {
			h.Checker.Invalidate(id)
		}
	}
}

// HandleSuspend suspends one organization. A reason is required.
func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/organizations")
		return
	}
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	org, ok := h.loadOrg(w, r, ctx)
	if !ok {
		return
	}
	if !gates.Authorize(w, r, gates.Suspend, gates.Resource{Kind: gates.Organizations, OrganizationID: org.ID}, "/organizations") {
		return
	}
	back := "/organizations/" + org.ID.Hex()

	reason := htmlsanitize.TextMax(r.FormValue("reason"), maxReasonLen)
	if reason == "" {
		h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("organizations.reason_required"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	if err := h.Organizations.Suspend(ctx, org.ID, reason); err != nil {
		h.ErrLog.LogServerError(w, r, "suspend organization failed", err, "", back)
		return
	}
	h.syncSubscriptions(ctx, []primitive.ObjectID{org.ID}, models.OrgSuspended)

	actor, _ := auth.CurrentUser(r)
	h.AuditLog.Admin(ctx, r, actor, auditlog.Action{
		EventType:      audit.EventOrgSuspended,
		OrganizationID: org.ID,
		TargetID:       org.ID,
		Details:        map[string]string{"reason": reason},
	})
	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("organizations.suspended", org.Name))
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// HandleReactivate lifts a suspension.
func (h *Handler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	org, ok := h.loadOrg(w, r, ctx)
	if !ok {
		return
	}
	if !gates.Authorize(w, r, gates.Suspend, gates.Resource{Kind: gates.Organizations, OrganizationID: org.ID}, "/organizations") {
		return
	}
	back := "/organizations/" + org.ID.Hex()

	if err := h.Organizations.Reactivate(ctx, org.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "reactivate organization failed", err, "", back)
		return
	}
	h.syncSubscriptions(ctx, []primitive.ObjectID{org.ID}, models.OrgActive)

	actor, _ := auth.CurrentUser(r)
	h.AuditLog.Admin(ctx, r, actor, auditlog.Action{
		EventType:      audit.EventOrgReactivated,
		OrganizationID: org.ID,
		TargetID:       org.ID,
	})
	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("organizations.reactivated", org.Name))
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// HandleBulk suspends or reactivates the checked organizations.
func (h *Handler) HandleBulk(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/organizations")
		return
	}
	loc := i18n.Current(r.Context())
	back := navigation.SafeBackURL(r, navigation.Section("/organizations"))

	var ids []primitive.ObjectID
	for _, hex := range r.Form["ids"] {
		if id, err := primitive.ObjectIDFromHex(hex); err == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		h.SessionMgr.AddFlash(w, r, auth.FlashWarning, loc.T("organizations.bulk_none"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	var status, event string
	switch r.FormValue("action") {
	case "suspend":
		status, event = models.OrgSuspended, audit.EventOrgSuspended
	case "reactivate":
		status, event = models.OrgActive, audit.EventOrgReactivated
	default:
		h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("organizations.bulk_unknown_action"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	reason := htmlsanitize.TextMax(r.FormValue("reason"), maxReasonLen)
	if status == models.OrgSuspended && reason == "" {
		h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("organizations.reason_required"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	changed, err := h.Organizations.SetStatusMany(ctx, ids, status, reason)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "bulk organization status failed", err, "", back)
		return
	}
	h.syncSubscriptions(ctx, ids, status)

	actor, _ := auth.CurrentUser(r)
	for _, id := range ids {
		details := map[string]string{"bulk": "true"}
		if reason != "" {
			details["reason"] = reason
		}
		h.AuditLog.Admin(ctx, r, actor, auditlog.Action{EventType: event, OrganizationID: id, TargetID: id, Details: details})
	}
	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("organizations.bulk_done", changed))
	http.Redirect(w, r, back, http.StatusSeeOther)
}
