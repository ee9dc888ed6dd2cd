package users

import (
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
)

type listItem struct {
	ID        string
	Name      string
	Email     string
	Role      string
	Status    string
	OrgName   string
	LastLogin *time.Time

	CanUpdate bool
	CanToggle bool
}

type listData struct {
	viewdata.BaseVM

	Q         string
	Role      string
	Roles     []string
	ShowOrg   bool
	Items     []listItem
	Paging    paging.View
	CanCreate bool
}

type option struct {
	ID   string
	Name string
}

type formData struct {
	formutil.Base

	ID     string
	IsEdit bool
	Action string

	Roles   []string
	Locales []string
	Orgs    []orgutil.Option
	Tenants []option
	PickOrg bool

	FullName string
	Email    string
	Role     string
	Locale   string
	OrgID    string
	TenantID string
}
