package tariffs

import (
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
)

type option struct {
	ID    string
	Label string
}

// column is a sortable table header.
type column struct {
	Label  string
	URL    string
	Active bool
	Desc   bool
}

type listItem struct {
	ID          string
	Name        string
	Provider    string
	Type        string
	ActiveFrom  time.Time
	ActiveUntil *time.Time
	Current     bool
	CanUpdate   bool
}

type listData struct {
	viewdata.BaseVM

	ProviderID string
	Providers  []option
	Columns    []column
	Items      []listItem
	Paging     paging.View
	CanCreate  bool
}

// zoneRow is one editable time-of-use band. Index keys field errors.
type zoneRow struct {
	Index int
	ID    string
	Start string
	End   string
	Rate  string
}

type formData struct {
	formutil.Base

	ID     string
	IsEdit bool
	Action string

	Orgs      []orgutil.Option
	PickOrg   bool
	Providers []option

	OrgID        string
	ProviderID   string
	Name         string
	RemoteID     string
	Type         string
	Rate         string
	FixedFee     string
	WeekendLogic string
	Zones        []zoneRow
	ActiveFrom   string
	ActiveUntil  string

	Types         []string
	WeekendLogics []string
}

type historyRow struct {
	ID          string
	Name        string
	ActiveFrom  time.Time
	ActiveUntil *time.Time
	Selected    bool
}

type viewData struct {
	viewdata.BaseVM

	Tariff       models.Tariff
	ProviderID   string
	ProviderName string
	Current      bool
	PartialDay   bool
	History      []historyRow

	CanUpdate bool
	CanDelete bool
}
