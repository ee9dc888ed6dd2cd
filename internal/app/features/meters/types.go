package meters

import (
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/shopspring/decimal"
)

type option struct {
	ID    string
	Label string
}

type listItem struct {
	ID          string
	Serial      string
	Type        string
	Unit        string
	Zoned       bool
	PropertyID  string
	Property    string
	LastValue   *decimal.Decimal
	LastReading *time.Time
	CanUpdate   bool
}

type listData struct {
	viewdata.BaseVM

	Q          string
	Type       string
	Types      []string
	PropertyID string
	Items      []listItem
	Paging     paging.View
	CanCreate  bool
	IsTenant   bool
}

type formData struct {
	formutil.Base

	ID     string
	IsEdit bool
	Action string

	Properties []option
	Types      []string
	ZonesLock  bool

	PropertyID       string
	Serial           string
	Type             string
	SupportsZones    bool
	InstallationDate string
}

// historyRow is one reading with the consumption since the previous
// reading of the same zone.
type historyRow struct {
	ID          string
	Date        time.Time
	Zone        string
	Value       decimal.Decimal
	Consumption *decimal.Decimal
	Notes       string
	CanUpdate   bool
}

type viewData struct {
	viewdata.BaseVM

	Meter         models.Meter
	Unit          string
	PropertyID    string
	PropertyLabel string
	History       []historyRow

	CanUpdate     bool
	CanDelete     bool
	CanAddReading bool
}
