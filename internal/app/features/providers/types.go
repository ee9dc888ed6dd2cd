package providers

import (
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
)

type listItem struct {
	ID        string
	Name      string
	Service   string
	Contact   string
	Tariffs   int64
	CanUpdate bool
}

type listData struct {
	viewdata.BaseVM

	Service   string
	Services  []string
	Items     []listItem
	CanCreate bool
}

type formData struct {
	formutil.Base

	ID     string
	IsEdit bool
	Action string

	Orgs     []orgutil.Option
	PickOrg  bool
	Services []string

	OrgID   string
	Name    string
	Service string
	Contact string
}

type tariffRow struct {
	ID          string
	Name        string
	Type        string
	ActiveFrom  time.Time
	ActiveUntil *time.Time
	Current     bool
}

type viewData struct {
	viewdata.BaseVM

	Provider models.Provider
	Tariffs  []tariffRow

	CanUpdate       bool
	CanDelete       bool
	CanCreateTariff bool
}
