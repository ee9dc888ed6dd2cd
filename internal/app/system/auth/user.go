// internal/app/system/auth/user.go
package auth

import (
	"context"
	"net/http"
	"strings"
)

// SessionUser is the signed-in user as seen by handlers and templates.
// IDs are hex strings; an empty OrganizationID means platform scope.
type SessionUser struct {
	ID               string
	Name             string
	Email            string
	Role             string
	Locale           string
	OrganizationID   string
	OrganizationName string
	TenantID         string
	PropertyID       string
}

// IsSuperAdmin reports whether u administers the whole platform.
func (u *SessionUser) IsSuperAdmin() bool {
	return u != nil && strings.EqualFold(u.Role, "superadmin")
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithUser returns r carrying u.
func WithUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// WithTestUser is WithUser for handler tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return WithUser(r, u)
}
