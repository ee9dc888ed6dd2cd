package buildings

import (
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/shopspring/decimal"
)

type listItem struct {
	ID         string
	Name       string
	Address    string
	Apartments int
	Properties int64
	CanUpdate  bool
}

type listData struct {
	viewdata.BaseVM

	Q         string
	Items     []listItem
	Paging    paging.View
	CanCreate bool
}

type formData struct {
	formutil.Base

	ID     string
	IsEdit bool
	Action string

	Orgs    []orgutil.Option
	PickOrg bool
	OrgID   string

	Name       string
	Address    string
	Apartments string
}

type propertyRow struct {
	ID      string
	Label   string
	AreaSqm decimal.Decimal
	Share   decimal.Decimal
}

type viewData struct {
	viewdata.BaseVM

	ID         string
	Name       string
	Address    string
	Apartments int

	Month          time.Time
	SeasonKey      string
	Fee            decimal.Decimal
	PerApartment   decimal.Decimal
	FeeUnavailable bool
	Average        *decimal.Decimal
	CalculatedAt   *time.Time

	Properties []propertyRow

	CanUpdate      bool
	CanDelete      bool
	CanRecalculate bool
}
