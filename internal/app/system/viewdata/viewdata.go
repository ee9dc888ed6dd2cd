// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/authz"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/navigation"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/subscriptioncheck"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// LocaleLink is one entry of the locale switcher.
type LocaleLink struct {
	Code   string
	Name   string
	Active bool
}

// BaseVM contains the fields the layout reads. Embed it in page view
// models:
//
//	type listData struct {
//	    viewdata.BaseVM
//	    Rows []rowVM
//	}
//
//	data := listData{BaseVM: viewdata.New(r, "meters.title", "/meters")}
type BaseVM struct {
	// User context (from auth middleware)
	IsLoggedIn bool
	Role       string
	UserName   string
	OrgName    string

	// Page context
	Title       string
	BackURL     string
	CurrentPath string
	Locale      string

	Nav     []navigation.Item
	Locales []LocaleLink

	CSRFToken string
	Flashes   []auth.Flash

	// SubscriptionWarning is shown as a banner; ReadOnly hides write actions.
	SubscriptionWarning string
	ReadOnly            bool
}

// New builds a BaseVM. titleKey is a message key translated in the
// request's locale; backDefault is used when the request has no safe
// return URL.
func New(r *http.Request, titleKey, backDefault string) BaseVM {
	role, name, _, signedIn := authz.UserCtx(r)
	loc := i18n.Current(r.Context())
	current := httpnav.CurrentPath(r)

	vm := BaseVM{
		IsLoggedIn:          signedIn,
		Role:                role,
		UserName:            name,
		Title:               loc.T(titleKey),
		BackURL:             httpnav.ResolveBackURL(r, backDefault),
		CurrentPath:         current,
		Locale:              loc.Locale,
		CSRFToken:           csrf.Token(r),
		Flashes:             auth.Flashes(r),
		SubscriptionWarning: subscriptioncheck.Banner(r.Context()),
		ReadOnly:            subscriptioncheck.ReadOnly(r),
	}
	if signedIn {
		vm.Nav = navigation.Menu(role, r.URL.Path)
	}
	if u, ok := auth.CurrentUser(r); ok {
		vm.OrgName = u.OrganizationName
	}
	for _, code := range i18n.Supported {
		vm.Locales = append(vm.Locales, LocaleLink{Code: code, Name: i18n.Names[code], Active: code == loc.Locale})
	}
	return vm
}

// T translates key in the request's locale.
func T(r *http.Request, key string, args ...any) string {
	return i18n.T(r.Context(), key, args...)
}
