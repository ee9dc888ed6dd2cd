package errors_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRenderForbidden(t *testing.T) {
	rec := httptest.NewRecorder()
	req := auth.WithTestUser(httptest.NewRequest("GET", "/invoices/x", nil), testutil.Manager(primitive.NewObjectID()))
	uierrors.RenderForbidden(rec, req, "errors.forbidden_action", "/invoices")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	body := rec.Body.String()
	want := i18n.Shared().For("en").T("errors.forbidden_action")
	if !strings.Contains(body, want) {
		t.Errorf("body missing message %q", want)
	}
	if !strings.Contains(body, `href="/invoices"`) {
		t.Error("body missing back link")
	}
}

func TestRenderUnauthorized(t *testing.T) {
	rec := httptest.NewRecorder()
	uierrors.RenderUnauthorized(rec, httptest.NewRequest("GET", "/dashboard", nil), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `href="/login"`) {
		t.Error("expected a link to /login")
	}
}

func TestNotFound_Localized(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/nope", nil)
	req = req.WithContext(i18n.WithLocalizer(req.Context(), i18n.Shared().For("lt")))
	uierrors.NewHandler().NotFound(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	want := i18n.Shared().For("lt").T("errors.not_found")
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("expected Lithuanian message %q", want)
	}
}

func TestLogServerError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	el := uierrors.NewErrorLogger(zap.New(core))

	rec := httptest.NewRecorder()
	el.LogServerError(rec, httptest.NewRequest("GET", "/meters", nil), "load meters", errors.New("boom"), "", "/meters")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if logs.Len() != 1 {
		t.Fatalf("logged %d entries, want 1", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["path"]; got != "/meters" {
		t.Errorf("path field = %v", got)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Error("internal error text must not reach the page")
	}
}
