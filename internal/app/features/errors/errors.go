// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"go.uber.org/zap"
)

// pageData is the view model for error pages.
type pageData struct {
	viewdata.BaseVM
	Status  int
	Message string
}

// Render shows an error page. titleKey and msgKey are message keys; an
// empty backURL resolves a safe one from the request.
func Render(w http.ResponseWriter, r *http.Request, status int, titleKey, msgKey, backURL string) {
	back := backURL
	if back == "" {
		back = "/"
	}
	vm := viewdata.New(r, titleKey, back)
	if backURL != "" {
		vm.BackURL = backURL
	}
	data := pageData{
		BaseVM:  vm,
		Status:  status,
		Message: i18n.T(r.Context(), msgKey),
	}
	viewkit.RenderStatus(w, r, status, "error_page", data)
}

// RenderUnauthorized shows the "sign in required" page (401).
func RenderUnauthorized(w http.ResponseWriter, r *http.Request, backURL string) {
	if backURL == "" {
		backURL = "/login"
	}
	Render(w, r, http.StatusUnauthorized, "errors.unauthorized_title", "errors.unauthorized", backURL)
}

// RenderForbidden shows the access denied page (403) with msgKey.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msgKey, backURL string) {
	if msgKey == "" {
		msgKey = "errors.forbidden"
	}
	Render(w, r, http.StatusForbidden, "errors.forbidden_title", msgKey, backURL)
}

// RenderNotFound shows the not found page (404).
func RenderNotFound(w http.ResponseWriter, r *http.Request, backURL string) {
	Render(w, r, http.StatusNotFound, "errors.not_found_title", "errors.not_found", backURL)
}

// ErrorLogger logs a failure with request context and then renders the
// matching error page.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger creates an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{Log: logger}
}

func requestFields(r *http.Request, msg string, err error) []zap.Field {
	return []zap.Field{
		zap.String("msg", msg),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	}
}

// LogServerError logs err and renders a 500 page showing userMsgKey.
func (l *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsgKey, backURL string) {
	l.Log.Error("server error", requestFields(r, msg, err)...)
	if userMsgKey == "" {
		userMsgKey = "errors.server"
	}
	Render(w, r, http.StatusInternalServerError, "errors.server_title", userMsgKey, backURL)
}

// LogBadRequest logs err at warn level and renders a 400 page.
func (l *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsgKey, backURL string) {
	l.Log.Warn("bad request", requestFields(r, msg, err)...)
	if userMsgKey == "" {
		userMsgKey = "errors.bad_request"
	}
	Render(w, r, http.StatusBadRequest, "errors.bad_request_title", userMsgKey, backURL)
}

// Handler serves the standalone error routes.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler { return &Handler{} }

// Forbidden handles GET /forbidden.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	RenderForbidden(w, r, "", "")
}

// Unauthorized handles GET /unauthorized.
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	RenderUnauthorized(w, r, "")
}

// NotFound is the router's fallback handler.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	RenderNotFound(w, r, "")
}
