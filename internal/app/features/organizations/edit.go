// internal/app/features/organizations/edit.go
package organizations

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	organizationstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/organizations"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formval"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
)

// editInput defines validation rules for the editable organization fields.
type editInput struct {
	Name          string `form:"name" validate:"required,max=255"`
	Email         string `form:"email" validate:"required,email,max=254"`
	Phone         string `form:"phone" validate:"max=50"`
	MaxProperties int    `form:"max_properties" validate:"gte=1,lte=100000"`
	MaxUsers      int    `form:"max_users" validate:"gte=1,lte=100000"`
}

func (h *Handler) renderEdit(w http.ResponseWriter, r *http.Request, status int, data formData) {
	formutil.SetBase(&data.Base, r, "organizations.edit_title", "/organizations/"+data.ID)
	data.IsEdit = true
	data.Action = "/organizations/" + data.ID + "/edit"
	viewkit.RenderStatus(w, r, status, "organizations_form", data)
}

// ServeEdit renders the edit form.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	org, ok := h.loadOrg(w, r, ctx)
	if !ok {
		return
	}
	if !gates.Authorize(w, r, gates.Update, gates.Resource{Kind: gates.Organizations, OrganizationID: org.ID}, "/organizations") {
		return
	}
	h.renderEdit(w, r, http.StatusOK, formData{
		ID:            org.ID.Hex(),
		Name:          org.Name,
		Email:         org.Email,
		Phone:         org.Phone,
		Plan:          org.Plan,
		MaxProperties: org.MaxProperties,
		MaxUsers:      org.MaxUsers,
	})
}

// HandleEdit saves the organization.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
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
	if !gates.Authorize(w, r, gates.Update, gates.Resource{Kind: gates.Organizations, OrganizationID: org.ID}, "/organizations") {
		return
	}

	maxProps, errProps := strconv.Atoi(formutil.Value(r, "max_properties"))
	maxUsers, errUsers := strconv.Atoi(formutil.Value(r, "max_users"))
	in := editInput{
		Name:          formutil.Value(r, "name"),
		Email:         formutil.Value(r, "email"),
		Phone:         formutil.Value(r, "phone"),
		MaxProperties: maxProps,
		MaxUsers:      maxUsers,
	}
	data := formData{
		ID: org.ID.Hex(), Name: in.Name, Email: in.Email, Phone: in.Phone, Plan: org.Plan,
		MaxProperties: maxProps, MaxUsers: maxUsers,
	}
	data.Errors = formval.Validate(loc, in)
	if errProps != nil && !data.Errors.Has("max_properties") {
		data.Errors.Add("max_properties", loc.T("validation.numeric"))
	}
	if errUsers != nil && !data.Errors.Has("max_users") {
		data.Errors.Add("max_users", loc.T("validation.numeric"))
	}
	if data.Errors.Any() {
		h.renderEdit(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	org.Name = in.Name
	org.Email = in.Email
	org.Phone = in.Phone
	org.MaxProperties = in.MaxProperties
	org.MaxUsers = in.MaxUsers
	if err := h.Organizations.Update(ctx, org); err != nil {
		if errors.Is(err, organizationstore.ErrDuplicateOrganization) {
			data.Errors.Add("name", loc.T("organizations.name_taken"))
			h.renderEdit(w, r, http.StatusUnprocessableEntity, data)
			return
		}
		h.ErrLog.LogServerError(w, r, "update organization failed", err, "", "/organizations")
		return
	}

	actor, _ := auth.CurrentUser(r)
	h.AuditLog.Admin(ctx, r, actor, auditlog.Action{
		EventType:      audit.EventOrgUpdated,
		OrganizationID: org.ID,
		TargetID:       org.ID,
		Details:        map[string]string{"name": org.Name},
	})
	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("organizations.updated"))
	http.Redirect(w, r, "/organizations/"+org.ID.Hex(), http.StatusSeeOther)
}
