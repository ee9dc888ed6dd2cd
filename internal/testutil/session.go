package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"go.uber.org/zap"
)

// SessionManager returns a cookie session manager for handler tests.
func SessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	return sm
}

// CarryCookies copies the recorder's Set-Cookie headers onto req. When a
// cookie was set more than once the last value wins, as in a browser.
func CarryCookies(rec *httptest.ResponseRecorder, req *http.Request) *http.Request {
	last := map[string]*http.Cookie{}
	var order []string
	for _, c := range rec.Result().Cookies() {
		if _, seen := last[c.Name]; !seen {
			order = append(order, c.Name)
		}
		last[c.Name] = c
	}
	for _, name := range order {
		req.AddCookie(last[name])
	}
	return req
}
