// Package gates decides what a signed-in user may do with a record.
//
// Route middleware (auth.RequireRole) does the coarse role check. Handlers
// then call Can for the specific record, and pass the same answers to the
// view model so that a view, edit or delete action is shown exactly when
// the user may perform it.
package gates

import (
	"net/http"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Action is something a user attempts on a resource.
type Action string

// Actions.
const (
	View     Action = "view"
	Create   Action = "create"
	Update   Action = "update"
	Delete   Action = "delete"
	Finalize Action = "finalize"
	MarkPaid Action = "mark_paid"
	Generate Action = "generate"
	Suspend  Action = "suspend"
	Renew    Action = "renew"
)

// Resource kinds.
const (
	Organizations = "organization"
	Subscriptions = "subscription"
	Users         = "user"
	Buildings     = "building"
	Properties    = "property"
	Tenants       = "tenant"
	Providers     = "provider"
	Tariffs       = "tariff"
	Meters        = "meter"
	Readings      = "reading"
	Invoices      = "invoice"
	Reports       = "report"
	AuditLog      = "audit"
)

// Resource describes the record an action targets. Zero IDs mean "any
// record of this kind", which is how list pages ask about Create.
type Resource struct {
	Kind           string
	OrganizationID primitive.ObjectID
	PropertyID     primitive.ObjectID
	TenantID       primitive.ObjectID
	Status         string
}

// Can reports whether u may perform action on res.
func Can(u *auth.SessionUser, action Action, res Resource) bool {
	if u == nil {
		return false
	}
	if !stateAllows(action, res) {
		return false
	}
	if u.IsSuperAdmin() {
		return true
	}

	if !res.OrganizationID.IsZero() && res.OrganizationID.Hex() != u.OrganizationID {
		return false
	}

	switch u.Role {
	case models.RoleAdmin:
		return adminCan(action, res)
	case models.RoleManager:
		return managerCan(action, res)
	case models.RoleTenant:
		return tenantCan(u, action, res)
	default:
		return false
	}
}

// stateAllows applies record-state rules that bind every role.
func stateAllows(action Action, res Resource) bool {
	if res.Kind != Invoices || res.Status == "" {
		return true
	}
	switch action {
	case Update, Delete, Finalize:
		return res.Status == models.InvoiceDraft
	case MarkPaid:
		return res.Status == models.InvoiceFinalized
	default:
		return true
	}
}

func adminCan(action Action, res Resource) bool {
	switch res.Kind {
	case Organizations:
		return false
	case Subscriptions:
		return action == View
	default:
		return true
	}
}

func managerCan(action Action, res Resource) bool {
	switch res.Kind {
	case Buildings, Properties, Tenants, Meters, Readings, Invoices:
		return true
	case Providers, Tariffs, Reports:
		return action == View
	default:
		return false
	}
}

func tenantCan(u *auth.SessionUser, action Action, res Resource) bool {
	if action != View {
		return false
	}
	switch res.Kind {
	case Properties, Meters, Readings:
		return !res.PropertyID.IsZero() && res.PropertyID.Hex() == u.PropertyID
	case Invoices:
		return !res.TenantID.IsZero() && res.TenantID.Hex() == u.TenantID
	default:
		return false
	}
}

// Authorize renders the forbidden page and returns false when the current
// user may not perform action on res.
func Authorize(w http.ResponseWriter, r *http.Request, action Action, res Resource, fallbackURL string) bool {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return false
	}
	if !Can(u, action, res) {
		uierrors.RenderForbidden(w, r, "errors.forbidden_action", fallbackURL)
		return false
	}
	return true
}

// CanRequest is Can for the request's user.
func CanRequest(r *http.Request, action Action, res Resource) bool {
	u, _ := auth.CurrentUser(r)
	return Can(u, action, res)
}
