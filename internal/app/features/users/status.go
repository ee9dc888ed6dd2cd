package users

import (
	"context"
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/navigation"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
)

// HandleToggleStatus disables an active account or re-enables a disabled
// one. Users cannot disable themselves.
func (h *Handler) HandleToggleStatus(w http.ResponseWriter, r *http.Request) {
	loc := i18n.Current(r.Context())
	u, _ := auth.CurrentUser(r)
	back := navigation.SafeBackURL(r, navigation.Section("/users"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	usr, ok := h.loadUser(w, r, ctx)
	if !ok {
		return
	}
	if usr.ID.Hex() == u.ID {
		h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("users.cannot_disable_self"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	status, event, msg := models.UserDisabled, audit.EventUserDisabled, "users.disabled"
	if usr.Status == models.UserDisabled {
		status, event, msg = models.UserActive, audit.EventUserEnabled, "users.enabled"
	}
	if err := h.Users.SetStatus(ctx, usr.ID, status); err != nil {
		h.ErrLog.LogServerError(w, r, "set user status failed", err, "", back)
		return
	}

	action := auditlog.Action{EventType: event, TargetID: usr.ID}
	if usr.OrganizationID != nil {
		action.OrganizationID = *usr.OrganizationID
	}
	h.AuditLog.Admin(ctx, r, u, action)

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T(msg, usr.FullName))
	http.Redirect(w, r, back, http.StatusSeeOther)
}
