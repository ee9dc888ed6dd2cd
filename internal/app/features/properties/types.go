package properties

import (
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/shopspring/decimal"
)

var propertyTypes = []string{models.PropertyApartment, models.PropertyHouse}

type option struct {
	ID   string
	Name string
}

type listItem struct {
	ID        string
	Label     string
	Type      string
	AreaSqm   decimal.Decimal
	Building  string
	Tenants   int64
	CanUpdate bool
}

type listData struct {
	viewdata.BaseVM

	Q          string
	Type       string
	Types      []string
	BuildingID string
	Buildings  []option
	Items      []listItem
	Paging     paging.View
	CanCreate  bool
}

type formData struct {
	formutil.Base

	ID     string
	IsEdit bool
	Action string

	Orgs      []orgutil.Option
	PickOrg   bool
	Types     []string
	Buildings []option

	OrgID      string
	Address    string
	UnitNumber string
	Type       string
	AreaSqm    string
	BuildingID string
}

type tenantRow struct {
	ID         string
	Name       string
	Email      string
	LeaseStart time.Time
	Active     bool
}

type meterRow struct {
	ID          string
	Serial      string
	Type        string
	Unit        string
	Zones       bool
	LastValue   *decimal.Decimal
	LastReading *time.Time
}

type viewData struct {
	viewdata.BaseVM

	Property     models.Property
	BuildingID   string
	BuildingName string
	Tenants      []tenantRow
	Meters       []meterRow

	CanUpdate    bool
	CanDelete    bool
	CanAddTenant bool
	CanAddMeter  bool
}
