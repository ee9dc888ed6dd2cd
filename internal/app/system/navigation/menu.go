package navigation

import (
	"strings"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
)

// Item is one entry of the main navigation. Key is a message key.
type Item struct {
	Key    string
	Href   string
	Active bool
}

var menus = map[string][]Item{
	models.RoleSuperAdmin: {
		{Key: "nav.dashboard", Href: "/dashboard"},
		{Key: "nav.organizations", Href: "/organizations"},
		{Key: "nav.subscriptions", Href: "/subscriptions"},
		{Key: "nav.users", Href: "/users"},
		{Key: "nav.audit", Href: "/audit"},
	},
	models.RoleAdmin: {
		{Key: "nav.dashboard", Href: "/dashboard"},
		{Key: "nav.buildings", Href: "/buildings"},
		{Key: "nav.properties", Href: "/properties"},
		{Key: "nav.tenants", Href: "/tenants"},
		{Key: "nav.meters", Href: "/meters"},
		{Key: "nav.readings", Href: "/readings"},
		{Key: "nav.invoices", Href: "/invoices"},
		{Key: "nav.providers", Href: "/providers"},
		{Key: "nav.tariffs", Href: "/tariffs"},
		{Key: "nav.reports", Href: "/reports"},
		{Key: "nav.users", Href: "/users"},
		{Key: "nav.audit", Href: "/audit"},
	},
	models.RoleManager: {
		{Key: "nav.dashboard", Href: "/dashboard"},
		{Key: "nav.buildings", Href: "/buildings"},
		{Key: "nav.properties", Href: "/properties"},
		{Key: "nav.tenants", Href: "/tenants"},
		{Key: "nav.meters", Href: "/meters"},
		{Key: "nav.readings", Href: "/readings"},
		{Key: "nav.invoices", Href: "/invoices"},
		{Key: "nav.tariffs", Href: "/tariffs"},
		{Key: "nav.reports", Href: "/reports"},
	},
	models.RoleTenant: {
		{Key: "nav.dashboard", Href: "/dashboard"},
		{Key: "nav.meters", Href: "/meters"},
		{Key: "nav.readings", Href: "/readings"},
		{Key: "nav.invoices", Href: "/invoices"},
	},
}

// Menu returns the role's navigation with the entry owning currentPath
// marked active. Unknown roles get no menu.
func Menu(role, currentPath string) []Item {
	src := menus[role]
	out := make([]Item, len(src))
	copy(out, src)
	for i := range out {
		h := out[i].Href
		out[i].Active = currentPath == h || strings.HasPrefix(currentPath, h+"/")
	}
	return out
}
