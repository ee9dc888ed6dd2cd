package subscriptions

import (
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
)

type listItem struct {
	ID            string
	OrgName       string
	Plan          string
	Status        string
	ExpiresAt     time.Time
	DaysLeft      int
	ExpiringSoon  bool
	MaxProperties int
	MaxTenants    int
	CanView       bool
}

type listData struct {
	viewdata.BaseVM

	Status   string
	Statuses []string
	Expiring bool
	Items    []listItem
	Paging   paging.View
}

type viewData struct {
	viewdata.BaseVM

	Sub      models.Subscription
	OrgName  string
	OrgID    string
	DaysLeft int
	Expired  bool
	Plans    []string
	Months   []int

	CanRenew      bool
	CanChangePlan bool
}
