// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	userstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/users"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formval"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type profileData struct {
	formutil.Base

	FullName      string
	Email         string
	UserLocale    string
	LocaleOptions []string
	HasPassword   bool
}

type detailsInput struct {
	FullName string `form:"full_name" validate:"required,max=255"`
	Email    string `form:"email" validate:"required,email,max=254"`
	Locale   string `form:"locale" validate:"omitempty,oneof=en lt ru"`
}

type passwordInput struct {
	Current  string `form:"current_password"`
	Password string `form:"password" validate:"required,min=8,max=72"`
	Confirm  string `form:"password_confirm" validate:"required"`
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data profileData) {
	formutil.SetBase(&data.Base, r, "profile.title", "/dashboard")
	data.LocaleOptions = i18n.Supported
	viewkit.RenderStatus(w, r, status, "profile", data)
}

// self loads the signed-in user's record. On failure it has already
// written the response.
func (h *Handler) self(ctx context.Context, w http.ResponseWriter, r *http.Request) (*auth.SessionUser, *models.User, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil, nil, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "bad session user id", err, "errors.invalid_form", "/dashboard")
		return nil, nil, false
	}
	usr, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return nil, nil, false
		}
		h.ErrLog.LogServerError(w, r, "load profile failed", err, "", "/dashboard")
		return nil, nil, false
	}
	return u, usr, true
}

func fromUser(usr *models.User) profileData {
	return profileData{
		FullName:    usr.FullName,
		Email:       usr.Email,
		UserLocale:  usr.Locale,
		HasPassword: usr.PasswordHash != "",
	}
}

// ServeProfile shows the account details and password forms.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	_, usr, ok := h.self(ctx, w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, fromUser(usr))
}

// HandleUpdate saves the user's name, email and language. Role and tenant
// link are kept as they are.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/profile")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, usr, ok := h.self(ctx, w, r)
	if !ok {
		return
	}
	loc := i18n.Current(r.Context())

	in := detailsInput{
		FullName: formutil.Value(r, "full_name"),
		Email:    formutil.Value(r, "email"),
		Locale:   formutil.Value(r, "locale"),
	}
	data := fromUser(usr)
	data.FullName, data.Email, data.UserLocale = in.FullName, in.Email, in.Locale
	data.Errors = formval.Validate(loc, in)
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	localeChanged := usr.Locale != in.Locale
	usr.FullName = in.FullName
	usr.Email = in.Email
	usr.Locale = in.Locale
	if err := h.Users.Update(ctx, *usr); err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			data.Errors.Add("email", loc.T("users.email_taken"))
			h.render(w, r, http.StatusUnprocessableEntity, data)
			return
		}
		h.ErrLog.LogServerError(w, r, "update profile failed", err, "", "/profile")
		return
	}

	action := auditlog.Action{
		EventType: audit.EventUserUpdated,
		TargetID:  usr.ID,
		Details:   map[string]string{"source": "profile"},
	}
	if usr.OrganizationID != nil {
		action.OrganizationID = *usr.OrganizationID
	}
	h.AuditLog.Admin(ctx, r, u, action)

	if localeChanged && in.Locale != "" {
		if err := h.SessionMgr.SetLocale(w, r, in.Locale); err != nil {
			h.Log.Warn("save session locale failed", zap.Error(err))
		}
		loc = i18n.Shared().For(in.Locale)
	}
	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("profile.updated"))
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// HandleChangePassword replaces the user's password. Accounts that sign in
// only with Google have no current password to confirm.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/profile")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, usr, ok := h.self(ctx, w, r)
	if !ok {
		return
	}
	loc := i18n.Current(r.Context())

	in := passwordInput{
		Current:  r.FormValue("current_password"),
		Password: r.FormValue("password"),
		Confirm:  r.FormValue("password_confirm"),
	}
	data := fromUser(usr)
	data.Errors = formval.Validate(loc, in)
	if data.HasPassword {
		switch {
		case in.Current == "":
			data.Errors.Add("current_password", loc.T("validation.required"))
		case !auth.CheckPassword(usr.PasswordHash, in.Current):
			data.Errors.Add("current_password", loc.T("profile.wrong_password"))
		case in.Password != "" && in.Password == in.Current:
			data.Errors.Add("password", loc.T("profile.same_password"))
		}
	}
	if in.Confirm != "" && in.Confirm != in.Password {
		data.Errors.Add("password_confirm", loc.T("profile.mismatch"))
	}
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "", "/profile")
		return
	}
	if err := h.Users.SetPasswordHash(ctx, usr.ID, hash); err != nil {
		h.ErrLog.LogServerError(w, r, "set password failed", err, "", "/profile")
		return
	}
	h.AuditLog.PasswordChanged(ctx, r, u)

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("profile.password_changed"))
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
