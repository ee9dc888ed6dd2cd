package users

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	userstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/users"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formval"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// userInput defines validation rules shared by create and edit. Password
// is only required on create; the handler adds that check.
type userInput struct {
	FullName string `form:"full_name" validate:"required,max=255"`
	Email    string `form:"email" validate:"required,email,max=254"`
	Role     string `form:"role" validate:"required,oneof=superadmin admin manager tenant"`
	Locale   string `form:"locale" validate:"omitempty,oneof=en lt ru"`
	Password string `form:"password" validate:"omitempty,min=8,max=72"`
}

func readInput(r *http.Request) userInput {
	return userInput{
		FullName: formutil.Value(r, "full_name"),
		Email:    formutil.Value(r, "email"),
		Role:     formutil.Value(r, "role"),
		Locale:   formutil.Value(r, "locale"),
		Password: r.FormValue("password"),
	}
}

// targetOrg is the organization a new or edited account belongs to. Admins
// always use their own; superadmins pick one (or none for a superadmin).
func targetOrg(u *auth.SessionUser, posted string) string {
	if u.IsSuperAdmin() {
		return posted
	}
	return u.OrganizationID
}

// fillOptions loads the select lists of the form.
func (h *Handler) fillOptions(ctx context.Context, u *auth.SessionUser, data *formData) error {
	data.Roles = rolesFor(u)
	data.Locales = i18n.Supported
	data.PickOrg = u.IsSuperAdmin()
	if data.PickOrg {
		orgs, err := orgutil.ActiveOptions(ctx, h.DB)
		if err != nil {
			return err
		}
		data.Orgs = orgs
	}
	data.Tenants = nil
	orgID, err := primitive.ObjectIDFromHex(data.OrgID)
	if err != nil {
		return nil
	}
	tenants, err := h.Tenants.Find(ctx, bson.M{"organization_id": orgID, "active": true},
		options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return err
	}
	for _, t := range tenants {
		data.Tenants = append(data.Tenants, option{ID: t.ID.Hex(), Name: t.Name})
	}
	return nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data formData) {
	u, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	titleKey := "users.new_title"
	data.Action = "/users"
	if data.IsEdit {
		titleKey = "users.edit_title"
		data.Action = "/users/" + data.ID + "/edit"
	}
	formutil.SetBase(&data.Base, r, titleKey, "/users")
	if err := h.fillOptions(ctx, u, &data); err != nil {
		h.ErrLog.LogServerError(w, r, "load user form options failed", err, "", "/users")
		return
	}
	viewkit.RenderStatus(w, r, status, "users_form", data)
}

// checkLinks validates the organization and occupant links for the role
// and returns them resolved.
func (h *Handler) checkLinks(ctx context.Context, loc *i18n.Localizer, in userInput, orgHex, tenantHex string, data *formData) (*primitive.ObjectID, *primitive.ObjectID, error) {
	if in.Role == models.RoleSuperAdmin {
		return nil, nil, nil
	}
	org, err := orgutil.ResolveActiveOrgFromHex(ctx, h.DB, orgHex)
	if err != nil {
		if orgutil.IsExpectedOrgError(err) {
			data.Errors.Add("organization_id", loc.T("validation.required"))
			return nil, nil, nil
		}
		return nil, nil, err
	}
	orgID := org.ID
	if in.Role != models.RoleTenant {
		return &orgID, nil, nil
	}

	tenantID, err := primitive.ObjectIDFromHex(tenantHex)
	if err != nil {
		data.Errors.Add("tenant_id", loc.T("validation.required"))
		return &orgID, nil, nil
	}
	tenant, err := h.Tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			data.Errors.Add("tenant_id", loc.T("validation.invalid"))
			return &orgID, nil, nil
		}
		return nil, nil, err
	}
	if tenant.OrganizationID != orgID {
		data.Errors.Add("tenant_id", loc.T("validation.invalid"))
		return &orgID, nil, nil
	}
	return &orgID, &tenantID, nil
}

// ServeNew renders the "New user" form. Superadmins may preselect the
// organization with ?org=.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Users}, "/users") {
		return
	}
	u, _ := auth.CurrentUser(r)
	h.render(w, r, http.StatusOK, formData{
		Role:  models.RoleManager,
		OrgID: targetOrg(u, r.URL.Query().Get("org")),
	})
}

// HandleCreate creates an account.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/users")
		return
	}
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Users}, "/users") {
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	in := readInput(r)
	data := formData{
		FullName: in.FullName, Email: in.Email, Role: in.Role, Locale: in.Locale,
		OrgID:    targetOrg(u, formutil.Value(r, "organization_id")),
		TenantID: formutil.Value(r, "tenant_id"),
	}
	data.Errors = formval.Validate(loc, in)
	if in.Password == "" {
		data.Errors.Add("password", loc.T("validation.required"))
	}
	if in.Role == models.RoleSuperAdmin && !u.IsSuperAdmin() {
		data.Errors.Add("role", loc.T("validation.oneof"))
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	orgID, tenantID, err := h.checkLinks(ctx, loc, in, data.OrgID, data.TenantID, &data)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve user links failed", err, "", "/users")
		return
	}
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	if orgID != nil {
		org, err := h.Organizations.GetByID(ctx, *orgID)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load organization failed", err, "", "/users")
			return
		}
		n, err := h.Users.Count(ctx, bson.M{"organization_id": *orgID})
		if err != nil {
			h.ErrLog.LogServerError(w, r, "count users failed", err, "", "/users")
			return
		}
		if org.MaxUsers > 0 && n >= int64(org.MaxUsers) {
			data.SetError(loc.T("users.limit_reached", org.MaxUsers))
			h.render(w, r, http.StatusUnprocessableEntity, data)
			return
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "", "/users")
		return
	}
	created, err := h.Users.Create(ctx, models.User{
		OrganizationID: orgID,
		TenantID:       tenantID,
		FullName:       in.FullName,
		Email:          in.Email,
		PasswordHash:   hash,
		Role:           in.Role,
		Locale:         in.Locale,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			data.Errors.Add("email", loc.T("users.email_taken"))
			h.render(w, r, http.StatusUnprocessableEntity, data)
			return
		}
		h.ErrLog.LogServerError(w, r, "create user failed", err, "", "/users")
		return
	}

	action := auditlog.Action{
		EventType: audit.EventUserCreated,
		TargetID:  created.ID,
		Details:   map[string]string{"role": created.Role, "email": created.Email},
	}
	if orgID != nil {
		action.OrganizationID = *orgID
	}
	h.AuditLog.Admin(ctx, r, u, action)
	h.Log.Info("user created", zap.String("user_id", created.ID.Hex()), zap.String("role", created.Role))

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("users.created", created.FullName))
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// loadUser resolves {id} and checks that the current user may change it.
func (h *Handler) loadUser(w http.ResponseWriter, r *http.Request, ctx context.Context) (*models.User, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderNotFound(w, r, "/users")
		return nil, false
	}
	usr, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/users")
			return nil, false
		}
		h.ErrLog.LogServerError(w, r, "load user failed", err, "", "/users")
		return nil, false
	}
	u, _ := auth.CurrentUser(r)
	res := gates.Resource{Kind: gates.Users, Status: usr.Status}
	if usr.OrganizationID != nil {
		res.OrganizationID = *usr.OrganizationID
	} else if !u.IsSuperAdmin() {
		uierrors.RenderForbidden(w, r, "errors.forbidden_action", "/users")
		return nil, false
	}
	if !gates.Authorize(w, r, gates.Update, res, "/users") {
		return nil, false
	}
	return usr, true
}

func hexOrEmpty(id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}

// ServeEdit renders the edit form.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	usr, ok := h.loadUser(w, r, ctx)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, formData{
		ID:       usr.ID.Hex(),
		IsEdit:   true,
		FullName: usr.FullName,
		Email:    usr.Email,
		Role:     usr.Role,
		Locale:   usr.Locale,
		OrgID:    hexOrEmpty(usr.OrganizationID),
		TenantID: hexOrEmpty(usr.TenantID),
	})
}

// HandleEdit saves the account. A blank password keeps the current one.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/users")
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	usr, ok := h.loadUser(w, r, ctx)
	if !ok {
		return
	}

	in := readInput(r)
	orgHex := hexOrEmpty(usr.OrganizationID)
	if u.IsSuperAdmin() {
		orgHex = formutil.Value(r, "organization_id")
	}
	data := formData{
		ID: usr.ID.Hex(), IsEdit: true,
		FullName: in.FullName, Email: in.Email, Role: in.Role, Locale: in.Locale,
		OrgID: orgHex, TenantID: formutil.Value(r, "tenant_id"),
	}
	data.Errors = formval.Validate(loc, in)
	if in.Role == models.RoleSuperAdmin && !u.IsSuperAdmin() {
		data.Errors.Add("role", loc.T("validation.oneof"))
	}
	if usr.ID.Hex() == u.ID && in.Role != usr.Role {
		data.Errors.Add("role", loc.T("users.cannot_change_own_role"))
	}

	orgID, tenantID, err := h.checkLinks(ctx, loc, in, orgHex, data.TenantID, &data)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve user links failed", err, "", "/users")
		return
	}
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	usr.FullName = in.FullName
	usr.Email = in.Email
	usr.Role = in.Role
	usr.Locale = in.Locale
	usr.TenantID = tenantID
	if u.IsSuperAdmin() {
		usr.OrganizationID = orgID
	}
	if err := h.Users.Update(ctx, *usr); err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			data.Errors.Add("email", loc.T("users.email_taken"))
			h.render(w, r, http.StatusUnprocessableEntity, data)
			return
		}
		h.ErrLog.LogServerError(w, r, "update user failed", err, "", "/users")
		return
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "hash password failed", err, "", "/users")
			return
		}
		if err := h.Users.SetPasswordHash(ctx, usr.ID, hash); err != nil {
			h.ErrLog.LogServerError(w, r, "set password failed", err, "", "/users")
			return
		}
	}

	action := auditlog.Action{
		EventType: audit.EventUserUpdated,
		TargetID:  usr.ID,
		Details:   map[string]string{"role": usr.Role, "password_changed": boolString(in.Password != "")},
	}
	if usr.OrganizationID != nil {
		action.OrganizationID = *usr.OrganizationID
	}
	h.AuditLog.Admin(ctx, r, u, action)

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("users.updated", usr.FullName))
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
