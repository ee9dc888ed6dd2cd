// internal/app/features/organizations/types.go
package organizations

import (
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
)

// listItem is a single row in the organizations list.
type listItem struct {
	ID         string
	Name       string
	Email      string
	Plan       string
	Status     string
	Users      int64
	Properties int64
	CreatedAt  time.Time

	CanView    bool
	CanUpdate  bool
	CanSuspend bool
}

// listData is the view model for the organizations list page.
type listData struct {
	viewdata.BaseVM

	Q        string
	Status   string
	Statuses []string
	Items    []listItem
	Paging   paging.View

	CanCreate bool
}

// formData is the view model for the new and edit pages.
type formData struct {
	formutil.Base

	ID     string
	IsEdit bool
	Action string
	Plans  []string

	Name          string
	Email         string
	Phone         string
	Plan          string
	MaxProperties int
	MaxUsers      int

	AdminName  string
	AdminEmail string
}

// viewData is the view model for the organization page.
type viewData struct {
	viewdata.BaseVM

	Org          models.Organization
	Subscription *models.Subscription
	DaysLeft     int
	Users        int64
	Properties   int64
	Tenants      int64

	CanUpdate     bool
	CanSuspend    bool
	CanReactivate bool
}
