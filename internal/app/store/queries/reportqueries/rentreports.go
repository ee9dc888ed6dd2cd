// Package reportqueries provides read-only aggregate queries for reports.
package reportqueries

import (
	"context"
	"sort"
	"time"

	invoicestore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/invoices"
	meterstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/meters"
	readingstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/readings"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Period is an inclusive date range.
type Period struct {
	From time.Time
	To   time.Time
}

// ConsumptionRow totals one meter type.
type ConsumptionRow struct {
	MeterType   string
	Unit        string
	Meters      int
	Consumption decimal.Decimal
}

// Consumption sums, per meter type, the difference between the first and
// last reading inside the period for every meter (and zone) matching
// meterFilter. Meters with fewer than two readings contribute nothing.
func Consumption(ctx context.Context, db *mongo.Database, meterFilter bson.M, p Period) ([]ConsumptionRow, error) {
	ms, err := meterstore.New(db).Find(ctx, meterFilter)
	if err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, nil
	}

	typeOf := make(map[primitive.ObjectID]string, len(ms))
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		typeOf[m.ID] = m.Type
		ids = append(ids, m.ID)
	}

	rds, err := readingstore.New(db).ListForMeters(ctx, ids, p.From, p.To)
	if err != nil {
		return nil, err
	}

	type span struct{ first, last decimal.Decimal }
	type key struct {
		meter primitive.ObjectID
		zone  string
	}
	spans := map[key]*span{}
	for _, r := range rds { // oldest first
		k := key{r.MeterID, r.ZoneName()}
		if s, ok := spans[k]; ok {
			s.last = r.Value
		} else {
			spans[k] = &span{first: r.Value, last: r.Value}
		}
	}

	byType := map[string]*ConsumptionRow{}
	counted := map[primitive.ObjectID]bool{}
	for k, s := range spans {
		t := typeOf[k.meter]
		row, ok := byType[t]
		if !ok {
			row = &ConsumptionRow{MeterType: t, Unit: models.UnitFor(t), Consumption: decimal.Zero}
			byType[t] = row
		}
		if !counted[k.meter] {
			row.Meters++
			counted[k.meter] = true
		}
		if d := s.last.Sub(s.first); d.IsPositive() {
			row.Consumption = row.Consumption.Add(d)
		}
	}

	out := make([]ConsumptionRow, 0, len(byType))
	for _, row := range byType {
		row.Consumption = row.Consumption.Round(2)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MeterType < out[j].MeterType })
	return out, nil
}

// RevenueReport is the invoice totals for a period.
type RevenueReport struct {
	Rows        []invoicestore.StatusTotal
	Invoiced    decimal.Decimal
	Paid        decimal.Decimal
	Outstanding decimal.Decimal
}

// Revenue totals invoices matching invoiceFilter whose billing period
// starts inside the period, grouped by status.
func Revenue(ctx context.Context, db *mongo.Database, invoiceFilter bson.M, p Period) (RevenueReport, error) {
	f := bson.M{}
	for k, v := range invoiceFilter {
		f[k] = v
	}
	f["billing_period_start"] = bson.M{"$gte": p.From, "$lte": p.To}

	rows, err := invoicestore.New(db).SumByStatus(ctx, f)
	if err != nil {
		return RevenueReport{}, err
	}
	rep := RevenueReport{Rows: rows, Invoiced: decimal.Zero, Paid: decimal.Zero, Outstanding: decimal.Zero}
	for _, r := range rows {
		rep.Invoiced = rep.Invoiced.Add(r.Amount)
		switch r.Status {
		case models.InvoicePaid:
			rep.Paid = rep.Paid.Add(r.Amount)
		case models.InvoiceFinalized:
			rep.Outstanding = rep.Outstanding.Add(r.Amount)
		}
	}
	return rep, nil
}

// ComplianceRow is one meter and whether it was read in the period.
type ComplianceRow struct {
	MeterID      primitive.ObjectID
	SerialNumber string
	MeterType    string
	PropertyID   primitive.ObjectID
	HasReading   bool
}

// ComplianceReport lists meters with and without a reading in the period.
type ComplianceReport struct {
	Rows        []ComplianceRow
	Total       int
	WithReading int
	Percent     decimal.Decimal
}

// Missing returns the rows without a reading.
func (c ComplianceReport) Missing() []ComplianceRow {
	var out []ComplianceRow
	for _, r := range c.Rows {
		if !r.HasReading {
			out = append(out, r)
		}
	}
	return out
}

// Compliance reports which meters matching meterFilter have at least one
// reading inside the period. Percent is 0 when there are no meters.
func Compliance(ctx context.Context, db *mongo.Database, meterFilter bson.M, p Period) (ComplianceReport, error) {
	ms, err := meterstore.New(db).Find(ctx, meterFilter,
		options.Find().SetSort(bson.D{{Key: "serial_number", Value: 1}}))
	if err != nil {
		return ComplianceReport{}, err
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.ID)
	}
	read, err := readingstore.New(db).MetersWithReadings(ctx, ids, p.From, p.To)
	if err != nil {
		return ComplianceReport{}, err
	}

	rep := ComplianceReport{Total: len(ms), Percent: decimal.Zero}
	for _, m := range ms {
		has := read[m.ID]
		if has {
			rep.WithReading++
		}
		rep.Rows = append(rep.Rows, ComplianceRow{
			MeterID:      m.ID,
			SerialNumber: m.SerialNumber,
			MeterType:    m.Type,
			PropertyID:   m.PropertyID,
			HasReading:   has,
		})
	}
	if rep.Total > 0 {
		rep.Percent = decimal.NewFromInt(int64(rep.WithReading)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(rep.Total))).
			Round(1)
	}
	return rep, nil
}
