package readings

import (
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/shopspring/decimal"
)

type meterOption struct {
	ID    string
	Label string
	Zoned bool
}

type listItem struct {
	ID        string
	MeterID   string
	Serial    string
	MeterType string
	Unit      string
	Date      time.Time
	Zone      string
	Value     decimal.Decimal
	Notes     string
	CanUpdate bool
	CanDelete bool
}

type listData struct {
	viewdata.BaseVM

	MeterID   string
	From      string
	To        string
	Items     []listItem
	Paging    paging.View
	CanCreate bool
}

// neighbour is an adjacent reading shown as a hint next to the value.
type neighbour struct {
	Date  time.Time
	Value decimal.Decimal
}

type formData struct {
	formutil.Base

	ID     string
	IsEdit bool
	Action string

	Meters   []meterOption
	Unit     string
	Previous *neighbour
	Next     *neighbour

	MeterID string
	Date    string
	Zone    string
	Value   string
	Notes   string
}
