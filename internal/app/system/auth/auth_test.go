package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func withUser(r *http.Request, role string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:   "507f1f77bcf86cd799439011",
		Name: "Test User",
		Role: role,
	})
}

// cookiesFrom copies Set-Cookie headers onto a new request.
func cookiesFrom(rec *httptest.ResponseRecorder, req *http.Request) *http.Request {
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "x", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty session key")
	}
}

func TestRequireSignedIn_NoUser_RedirectsToLogin(t *testing.T) {
	sm := newTestSessionManager(t)
	req := httptest.NewRequest("GET", "/meters?page=2", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	want := "/login?return=" + url.QueryEscape("/meters?page=2")
	if got := rec.Header().Get("Location"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}

func TestRequireSignedIn_NoUser_API_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)
	req := httptest.NewRequest("GET", "/api/data", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireSignedIn_NoUser_HTMX_ReturnsHXRedirect(t *testing.T) {
	sm := newTestSessionManager(t)
	req := httptest.NewRequest("GET", "/invoices", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()

	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	if !strings.HasPrefix(rec.Header().Get("HX-Redirect"), "/login") {
		t.Errorf("HX-Redirect = %q", rec.Header().Get("HX-Redirect"))
	}
}

func TestRequireRole(t *testing.T) {
	sm := newTestSessionManager(t)
	h := sm.RequireRole("admin", "Manager")(okHandler())

	tests := []struct {
		name   string
		role   string
		accept string
		want   int
	}{
		{"admin allowed", "admin", "text/html", http.StatusOK},
		{"manager allowed case-insensitively", "manager", "text/html", http.StatusOK},
		{"tenant redirected", "tenant", "text/html", http.StatusSeeOther},
		{"tenant api forbidden", "tenant", "application/json", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withUser(httptest.NewRequest("GET", "/buildings", nil), tt.role)
			req.Header.Set("Accept", tt.accept)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusSeeOther && rec.Header().Get("Location") != "/forbidden" {
				t.Errorf("Location = %q, want /forbidden", rec.Header().Get("Location"))
			}
		})
	}
}

func TestCurrentUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if _, ok := auth.CurrentUser(req); ok {
		t.Error("expected no user")
	}
	u, ok := auth.CurrentUser(withUser(req, "superadmin"))
	if !ok || !u.IsSuperAdmin() {
		t.Errorf("got %+v, %v", u, ok)
	}
}

type stubFetcher struct {
	user *auth.SessionUser
	err  error
}

func (f stubFetcher) FetchUser(_ context.Context, id string) (*auth.SessionUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	u := *f.user
	u.ID = id
	return &u, nil
}

func TestSignIn_LoadSessionUser(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(stubFetcher{user: &auth.SessionUser{Name: "Ona", Role: "manager"}})

	signIn := httptest.NewRecorder()
	if err := sm.SignIn(signIn, httptest.NewRequest("POST", "/login", nil), "507f1f77bcf86cd799439011", "lt"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	var seen *auth.SessionUser
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.CurrentUser(r)
	}))
	req := cookiesFrom(signIn, httptest.NewRequest("GET", "/dashboard", nil))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen == nil || seen.Name != "Ona" || seen.ID != "507f1f77bcf86cd799439011" {
		t.Fatalf("user not loaded: %+v", seen)
	}
	if got := sm.SessionLocale(cookiesFrom(signIn, httptest.NewRequest("GET", "/", nil))); got != "lt" {
		t.Errorf("SessionLocale = %q, want lt", got)
	}
}

func TestLoadSessionUser_DropsInactiveUser(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(stubFetcher{err: auth.ErrUserInactive})

	signIn := httptest.NewRecorder()
	if err := sm.SignIn(signIn, httptest.NewRequest("POST", "/login", nil), "507f1f77bcf86cd799439011", ""); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	called := false
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, called = auth.CurrentUser(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), cookiesFrom(signIn, httptest.NewRequest("GET", "/", nil)))
	if called {
		t.Error("disabled user should not be loaded")
	}
}

func TestCSRF(t *testing.T) {
	sm := newTestSessionManager(t)

	var token string
	h := sm.CSRF(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = auth.CSRFToken(r)
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest("GET", "/readings/new", nil))
	if token == "" {
		t.Fatal("expected a token on GET")
	}
	good := token

	post := func(body string, header map[string]string) int {
		req := cookiesFrom(first, httptest.NewRequest("POST", "/readings", strings.NewReader(body)))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		for k, v := range header {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	tests := []struct {
		name   string
		body   string
		header map[string]string
		want   int
	}{
		{"missing token", "", nil, http.StatusForbidden},
		{"bad token", "csrf_token=nope", nil, http.StatusForbidden},
		{"form token", "csrf_token=" + url.QueryEscape(good), nil, http.StatusOK},
		{"header token", "", map[string]string{auth.CSRFHeaderName: good}, http.StatusOK},
		{"same origin", "csrf_token=" + url.QueryEscape(good), map[string]string{"Origin": "http://example.com"}, http.StatusOK},
		{"foreign origin", "csrf_token=" + url.QueryEscape(good), map[string]string{"Origin": "http://evil.example"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := post(tt.body, tt.header); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCSRF_NoCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	h := sm.CSRF(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/logout", strings.NewReader("csrf_token=whatever"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestFlashes_SurviveRedirect(t *testing.T) {
	sm := newTestSessionManager(t)

	post := httptest.NewRecorder()
	sm.AddFlash(post, httptest.NewRequest("POST", "/meters", nil), auth.FlashSuccess, "Meter created")

	var got []auth.Flash
	h := sm.LoadFlashes(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = auth.Flashes(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), cookiesFrom(post, httptest.NewRequest("GET", "/meters", nil)))

	if len(got) != 1 || got[0].Message != "Meter created" || got[0].Kind != auth.FlashSuccess {
		t.Errorf("flashes = %+v", got)
	}
}

func TestPasswords(t *testing.T) {
	if _, err := auth.HashPassword("short"); !errors.Is(err, auth.ErrPasswordTooShort) {
		t.Errorf("err = %v, want ErrPasswordTooShort", err)
	}
	h, err := auth.HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !auth.CheckPassword(h, "correct horse battery") {
		t.Error("expected password to match")
	}
	if auth.CheckPassword(h, "wrong password") {
		t.Error("expected mismatch")
	}
	if auth.CheckPassword("", "anything") {
		t.Error("empty hash must never match")
	}
}
