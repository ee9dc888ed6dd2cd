// internal/app/features/organizations/new.go
package organizations

import (
	"context"
	"errors"
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	organizationstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/organizations"
	userstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/users"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formval"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"go.uber.org/zap"
)

// createInput defines validation rules for onboarding an organization
// together with its first admin.
type createInput struct {
	Name          string `form:"name" validate:"required,max=255"`
	Email         string `form:"email" validate:"required,email,max=254"`
	Phone         string `form:"phone" validate:"max=50"`
	Plan          string `form:"plan" validate:"required,oneof=basic professional enterprise"`
	AdminName     string `form:"admin_name" validate:"required,max=255"`
	AdminEmail    string `form:"admin_email" validate:"required,email,max=254"`
	AdminPassword string `form:"admin_password" validate:"required,min=8,max=72"`
}

var plans = []string{models.PlanBasic, models.PlanProfessional, models.PlanEnterprise}

func (h *Handler) renderNew(w http.ResponseWriter, r *http.Request, status int, data formData) {
	formutil.SetBase(&data.Base, r, "organizations.new_title", "/organizations")
	data.Action = "/organizations"
	data.Plans = plans
	viewkit.RenderStatus(w, r, status, "organizations_form", data)
}

// ServeNew renders the "New Organization" form.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	h.renderNew(w, r, http.StatusOK, formData{Plan: models.PlanBasic})
}

// HandleCreate creates the organization, its trial subscription and its
// admin user. A failure after the organization was inserted removes what
// was already written.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/organizations")
		return
	}
	loc := i18n.Current(r.Context())

	in := createInput{
		Name:          formutil.Value(r, "name"),
		Email:         formutil.Value(r, "email"),
		Phone:         formutil.Value(r, "phone"),
		Plan:          formutil.Value(r, "plan"),
		AdminName:     formutil.Value(r, "admin_name"),
		AdminEmail:    formutil.Value(r, "admin_email"),
		AdminPassword: r.FormValue("admin_password"),
	}
	data := formData{
		Name: in.Name, Email: in.Email, Phone: in.Phone, Plan: in.Plan,
		AdminName: in.AdminName, AdminEmail: in.AdminEmail,
	}

	data.Errors = formval.Validate(loc, in)
	if data.Errors.Any() {
		h.renderNew(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if existing, err := h.Users.GetByEmail(ctx, in.AdminEmail); err == nil && existing != nil {
		data.Errors.Add("admin_email", loc.T("users.email_taken"))
		h.renderNew(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	limits := models.PlanLimits[in.Plan]
	org, err := h.Organizations.Create(ctx, models.Organization{
		Name:          in.Name,
		Email:         in.Email,
		Phone:         in.Phone,
		Plan:          in.Plan,
		MaxProperties: limits.Properties,
		MaxUsers:      limits.Tenants,
	})
	if err != nil {
		if errors.Is(err, organizationstore.ErrDuplicateOrganization) {
			data.Errors.Add("name", loc.T("organizations.name_taken"))
			h.renderNew(w, r, http.StatusUnprocessableEntity, data)
			return
		}
		h.ErrLog.LogServerError(w, r, "create organization failed", err, "", "/organizations")
		return
	}

	if _, err := h.Subscriptions.Create(ctx, models.Subscription{OrganizationID: org.ID, PlanType: in.Plan}); err != nil {
		h.undoCreate(ctx, org)
		h.ErrLog.LogServerError(w, r, "create trial subscription failed", err, "", "/organizations")
		return
	}

	hash, err := auth.HashPassword(in.AdminPassword)
	if err != nil {
		h.undoCreate(ctx, org)
		h.ErrLog.LogServerError(w, r, "hash admin password failed", err, "", "/organizations")
		return
	}
	orgID := org.ID
	admin, err := h.Users.Create(ctx, models.User{
		OrganizationID: &orgID,
		FullName:       in.AdminName,
		Email:          in.AdminEmail,
		PasswordHash:   hash,
		Role:           models.RoleAdmin,
	})
	if err != nil {
		h.undoCreate(ctx, org)
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			data.Errors.Add("admin_email", loc.T("users.email_taken"))
			h.renderNew(w, r, http.StatusUnprocessableEntity, data)
			return
		}
		h.ErrLog.LogServerError(w, r, "create admin user failed", err, "", "/organizations")
		return
	}

	actor, _ := auth.CurrentUser(r)
	h.AuditLog.Admin(ctx, r, actor, auditlog.Action{
		EventType:      audit.EventOrgCreated,
		OrganizationID: org.ID,
		TargetID:       org.ID,
		Details:        map[string]string{"name": org.Name, "plan": org.Plan, "admin_id": admin.ID.Hex()},
	})
	h.Log.Info("organization created", zap.String("org_id", org.ID.Hex()), zap.String("plan", org.Plan))

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("organizations.created", org.Name))
	http.Redirect(w, r, "/organizations/"+org.ID.Hex(), http.StatusSeeOther)
}

func (h *Handler) undoCreate(ctx context.Context, org models.Organization) {
	if err := h.Subscriptions.DeleteByOrg(ctx, org.ID); err != nil {
		h.Log.Warn("undo subscription failed", zap.String("org_id", org.ID.Hex()), zap.Error(err))
	}
	if err := h.Organizations.Delete(ctx, org.ID); err != nil {
		h.Log.Warn("undo organization failed", zap.String("org_id", org.ID.Hex()), zap.Error(err))
	}
}
