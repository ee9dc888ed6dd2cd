// internal/app/system/auth/flash.go
package auth

import (
	"context"
	"encoding/gob"
	"net/http"

	"go.uber.org/zap"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
)

// Flash is a one-shot message shown on the next page.
type Flash struct {
	Kind    string
	Message string
}

func init() {
	gob.Register(Flash{})
}

const flashCtxKey ctxKey = "flashes"

// AddFlash queues a message for the next rendered page.
func (sm *SessionManager) AddFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	sess, err := sm.GetSession(r)
	if err != nil {
		return
	}
	sess.AddFlash(Flash{Kind: kind, Message: message})
	if err := sess.Save(r, w); err != nil {
		sm.log.Warn("flash save failed", zap.Error(err))
	}
}

// LoadFlashes moves queued flashes into the context of GET requests. POST
// handlers redirect, so their flashes survive until the following GET.
func (sm *SessionManager) LoadFlashes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.Header.Get("HX-Request") == "true" {
			next.ServeHTTP(w, r)
			return
		}
		sess, err := sm.GetSession(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		raw := sess.Flashes()
		if len(raw) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		flashes := make([]Flash, 0, len(raw))
		for _, f := range raw {
			if fl, ok := f.(Flash); ok {
				flashes = append(flashes, fl)
			}
		}
		if err := sess.Save(r, w); err != nil {
			sm.log.Warn("flash clear failed", zap.Error(err))
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), flashCtxKey, flashes)))
	})
}

// Flashes returns the messages loaded for this request.
func Flashes(r *http.Request) []Flash {
	f, _ := r.Context().Value(flashCtxKey).([]Flash)
	return f
}

// WithFlashes attaches flashes to r for tests.
func WithFlashes(r *http.Request, f ...Flash) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), flashCtxKey, f))
}
