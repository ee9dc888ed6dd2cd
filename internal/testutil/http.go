package testutil

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Calling it again on the same request adds to the existing params.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// FormRequest builds a urlencoded POST request.
func FormRequest(target string, form url.Values) *http.Request {
	r, _ := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// SuperAdmin returns a platform-wide session user.
func SuperAdmin() *auth.SessionUser {
	return &auth.SessionUser{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test Superadmin",
		Email: "root@test.local",
		Role:  "superadmin",
	}
}

// Admin returns an organization admin.
func Admin(orgID primitive.ObjectID) *auth.SessionUser {
	return &auth.SessionUser{
		ID:             primitive.NewObjectID().Hex(),
		Name:           "Test Admin",
		Email:          "admin@test.local",
		Role:           "admin",
		OrganizationID: orgID.Hex(),
	}
}

// Manager returns an organization manager.
func Manager(orgID primitive.ObjectID) *auth.SessionUser {
	return &auth.SessionUser{
		ID:             primitive.NewObjectID().Hex(),
		Name:           "Test Manager",
		Email:          "manager@test.local",
		Role:           "manager",
		OrganizationID: orgID.Hex(),
	}
}

// TenantUser returns a tenant-role user bound to an occupant and property.
func TenantUser(orgID, tenantID, propertyID primitive.ObjectID) *auth.SessionUser {
	return &auth.SessionUser{
		ID:             primitive.NewObjectID().Hex(),
		Name:           "Test Tenant",
		Email:          "tenant@test.local",
		Role:           "tenant",
		OrganizationID: orgID.Hex(),
		TenantID:       tenantID.Hex(),
		PropertyID:     propertyID.Hex(),
	}
}
