package invoices

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
	Number      string
	Tenant      string
	Property    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	DueDate     time.Time
	Status      string
	Overdue     bool
	Total       decimal.Decimal
	CanDelete   bool
}

type listData struct {
	viewdata.BaseVM

	Status      string
	Statuses    []string
	TenantID    string
	Items       []listItem
	Paging      paging.View
	PageTotal   decimal.Decimal
	CanGenerate bool
	IsTenant    bool
}

type generateData struct {
	formutil.Base

	Tenants     []option
	TenantID    string
	PeriodStart string
	PeriodEnd   string
}

type viewData struct {
	viewdata.BaseVM

	Invoice  models.Invoice
	Tenant   string
	Property string
	Overdue  bool

	CanFinalize    bool
	CanMarkPaid    bool
	CanRecalculate bool
	CanDelete      bool
}
