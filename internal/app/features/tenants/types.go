package tenants

import (
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/shopspring/decimal"
)

type option struct {
	ID   string
	Name string
}

type listItem struct {
	ID         string
	Name       string
	Email      string
	Property   string
	PropertyID string
	LeaseStart time.Time
	LeaseEnd   *time.Time
	Active     bool
	CanUpdate  bool
}

type listData struct {
	viewdata.BaseVM

	Q         string
	Status    string
	Items     []listItem
	Paging    paging.View
	CanCreate bool
}

type formData struct {
	formutil.Base

	ID     string
	IsEdit bool
	Action string

	Properties []option

	Name       string
	Email      string
	Phone      string
	PropertyID string
	LeaseStart string
	LeaseEnd   string
}

type invoiceRow struct {
	ID          string
	Number      string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Status      string
	Total       decimal.Decimal
}

type viewData struct {
	viewdata.BaseVM

	Tenant        models.Tenant
	PropertyLabel string
	Properties    []option
	Invoices      []invoiceRow

	CanUpdate   bool
	CanDelete   bool
	CanGenerate bool
}
