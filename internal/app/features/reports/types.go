package reports

import (
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/shopspring/decimal"
)

// Report names, used in URLs, export keys and audit details.
const (
	reportConsumption = "consumption"
	reportRevenue     = "revenue"
	reportCompliance  = "compliance"
)

var reportNames = []string{reportConsumption, reportRevenue, reportCompliance}

// Names lists the reports Export accepts.
func Names() []string {
	return append([]string(nil), reportNames...)
}

type option struct {
	ID    string
	Label string
}

// filterData is shared by every report page.
type filterData struct {
	viewdata.BaseVM

	Report  string
	Reports []string
	From    string
	To      string
	OrgID   string
	Orgs    []option // superadmin only
	Error   string

	// ExportURL keeps the current filters.
	ExportURL string
}

type consumptionRow struct {
	MeterType   string
	Unit        string
	Meters      int
	Consumption decimal.Decimal
}

type consumptionData struct {
	filterData
	Rows []consumptionRow
}

type revenueRow struct {
	Status string
	Count  int64
	Amount decimal.Decimal
}

type revenueData struct {
	filterData
	Rows        []revenueRow
	Invoiced    decimal.Decimal
	Paid        decimal.Decimal
	Outstanding decimal.Decimal
}

type complianceRow struct {
	MeterID    string
	Serial     string
	MeterType  string
	Property   string
	HasReading bool
}

type complianceData struct {
	filterData
	Total       int
	WithReading int
	Percent     decimal.Decimal
	Missing     []complianceRow
}
