// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	userstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/users"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formval"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/limits"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/ratelimit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Users         *userstore.Store
	Log           *zap.Logger
	SessionMgr    *auth.SessionManager
	ErrLog        *uierrors.ErrorLogger
	AuditLog      *auditlog.Logger
	Limiter       *ratelimit.LoginLimiter
	GoogleEnabled bool
	now           func() time.Time
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	auditLog *auditlog.Logger,
	limiter *ratelimit.LoginLimiter,
	googleEnabled bool,
	logger *zap.Logger,
) *Handler {
	if limiter == nil {
		limiter = ratelimit.NewLoginLimiter()
	}
	return &Handler{
		Users:         userstore.New(db),
		Log:           logger,
		SessionMgr:    sessionMgr,
		ErrLog:        errLog,
		AuditLog:      auditLog,
		Limiter:       limiter,
		GoogleEnabled: googleEnabled,
		now:           time.Now,
	}
}

type loginForm struct {
	Email    string `form:"email" validate:"required,email,max=254"`
	Password string `form:"password" validate:"required"`
}

type loginFormData struct {
	viewdata.BaseVM
	Email         string
	ReturnURL     string
	Error         string
	Errors        formval.ErrorBag
	GoogleEnabled bool
}

// ServeLogin handles GET /login.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	data := loginFormData{ReturnURL: query.Get(r, "return")}
	if code := query.Get(r, "error"); oauthErrors[code] {
		data.Error = i18n.T(r.Context(), "login.oauth."+code)
	}
	h.render(w, r, http.StatusOK, data)
}

// oauthErrors are the ?error= codes the Google callback redirects with.
var oauthErrors = map[string]bool{
	"google_not_configured": true,
	"google_denied":         true,
	"invalid_state":         true,
	"invalid_code":          true,
	"token_exchange":        true,
	"user_info":             true,
	"unverified_email":      true,
	"no_account":            true,
	"account_disabled":      true,
	"session":               true,
	"internal":              true,
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data loginFormData) {
	data.BaseVM = viewdata.New(r, "login.title", "/")
	data.GoogleEnabled = h.GoogleEnabled
	if data.Errors == nil {
		data.Errors = formval.ErrorBag{}
	}
	viewkit.RenderStatus(w, r, status, "login_page", data)
}

// HandleLogin handles POST /login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/login")
		return
	}
	loc := i18n.Current(r.Context())

	form := loginForm{
		Email:    userstore.NormalizeEmail(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	data := loginFormData{Email: form.Email, ReturnURL: r.FormValue("return")}

	if bag := formval.Validate(loc, form); bag.Any() {
		data.Errors = bag
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	if ok, reason := h.Limiter.Check(r, form.Email); !ok {
		h.AuditLog.LoginFailed(r.Context(), r, audit.EventLoginFailedRateLimit, form.Email, reason, nil)
		data.Error = loc.T(reason)
		h.render(w, r, http.StatusTooManyRequests, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, form.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserNotFound, form.Email, "no such user", nil)
		h.invalid(w, r, data)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "login lookup failed", err, "errors.server", "/login")
		return
	}

	if !auth.CheckPassword(u.PasswordHash, form.Password) {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedWrongPassword, form.Email, "wrong password", &u.ID)
		h.invalid(w, r, data)
		return
	}
	if u.Status != models.UserActive {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserDisabled, form.Email, "account disabled", &u.ID)
		data.Error = loc.T("login.disabled")
		h.render(w, r, http.StatusForbidden, data)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex(), u.Locale); err != nil {
		h.ErrLog.LogServerError(w, r, "sign in failed", err, "errors.server", "/login")
		return
	}
	h.Limiter.ResetEmail(form.Email)
	if err := h.Users.TouchLogin(ctx, u.ID, h.now().UTC()); err != nil {
		h.Log.Warn("record last login failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	h.AuditLog.LoginSuccess(ctx, r, sessionUser(u))

	http.Redirect(w, r, urlutil.SafeReturn(strings.TrimSpace(data.ReturnURL), "", "/dashboard"), http.StatusSeeOther)
}

// invalid renders the generic failure message. Unknown emails and wrong
// passwords are indistinguishable to the visitor.
func (h *Handler) invalid(w http.ResponseWriter, r *http.Request, data loginFormData) {
	data.Error = i18n.T(r.Context(), "login.invalid")
	h.render(w, r, http.StatusUnauthorized, data)
}

func sessionUser(u *models.User) *auth.SessionUser {
	su := &auth.SessionUser{
		ID:     u.ID.Hex(),
		Name:   u.FullName,
		Email:  u.Email,
		Role:   u.Role,
		Locale: u.Locale,
	}
	if u.OrganizationID != nil {
		su.OrganizationID = u.OrganizationID.Hex()
	}
	return su
}
