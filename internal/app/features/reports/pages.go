package reports

import (
	"context"
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/queries/reportqueries"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, sel selection) bool {
	return gates.Authorize(w, r, gates.View, gates.Resource{Kind: gates.Reports, OrganizationID: sel.Scope.OrgID}, "/dashboard")
}

func (h *Handler) consumption(ctx context.Context, sel selection) ([]consumptionRow, error) {
	rows, err := reportqueries.Consumption(ctx, h.DB, sel.filter(bson.M{}), sel.Period)
	if err != nil {
		return nil, err
	}
	out := make([]consumptionRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, consumptionRow(row))
	}
	return out, nil
}

func (h *Handler) revenue(ctx context.Context, sel selection) (reportqueries.RevenueReport, error) {
	return reportqueries.Revenue(ctx, h.DB, sel.filter(bson.M{}), sel.Period)
}

// compliance returns the report and the label of every property that has a
// meter in it.
func (h *Handler) compliance(ctx context.Context, sel selection) (reportqueries.ComplianceReport, map[primitive.ObjectID]string, error) {
	rep, err := reportqueries.Compliance(ctx, h.DB, sel.filter(bson.M{}), sel.Period)
	if err != nil {
		return rep, nil, err
	}
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for _, row := range rep.Rows {
		if !seen[row.PropertyID] {
			seen[row.PropertyID] = true
			ids = append(ids, row.PropertyID)
		}
	}
	labels := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return rep, labels, nil
	}
	props, err := h.Properties.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return rep, nil, err
	}
	for _, p := range props {
		labels[p.ID] = p.Label()
	}
	return rep, labels, nil
}

// ServeConsumption handles GET /reports/consumption.
func (h *Handler) ServeConsumption(w http.ResponseWriter, r *http.Request) {
	sel := h.parseSelection(r)
	if !h.authorize(w, r, sel) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	base, err := h.baseData(ctx, r, reportConsumption, sel)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load organizations failed", err, "", "/dashboard")
		return
	}
	rows, err := h.consumption(ctx, sel)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "consumption report failed", err, "", "/dashboard")
		return
	}
	viewkit.Render(w, r, "reports_consumption", consumptionData{filterData: base, Rows: rows})
}

// ServeRevenue handles GET /reports/revenue.
func (h *Handler) ServeRevenue(w http.ResponseWriter, r *http.Request) {
	sel := h.parseSelection(r)
	if !h.authorize(w, r, sel) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	base, err := h.baseData(ctx, r, reportRevenue, sel)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load organizations failed", err, "", "/dashboard")
		return
	}
	rep, err := h.revenue(ctx, sel)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "revenue report failed", err, "", "/dashboard")
		return
	}
	data := revenueData{
		filterData:  base,
		Invoiced:    rep.Invoiced,
		Paid:        rep.Paid,
		Outstanding: rep.Outstanding,
	}
	for _, row := range rep.Rows {
		data.Rows = append(data.Rows, revenueRow{Status: row.Status, Count: row.Count, Amount: row.Amount})
	}
	viewkit.Render(w, r, "reports_revenue", data)
}

// ServeCompliance handles GET /reports/compliance.
func (h *Handler) ServeCompliance(w http.ResponseWriter, r *http.Request) {
	sel := h.parseSelection(r)
	if !h.authorize(w, r, sel) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	base, err := h.baseData(ctx, r, reportCompliance, sel)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load organizations failed", err, "", "/dashboard")
		return
	}
	rep, labels, err := h.compliance(ctx, sel)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "compliance report failed", err, "", "/dashboard")
		return
	}
	data := complianceData{
		filterData:  base,
		Total:       rep.Total,
		WithReading: rep.WithReading,
		Percent:     rep.Percent,
	}
	for _, row := range rep.Missing() {
		data.Missing = append(data.Missing, complianceRow{
			MeterID:   row.MeterID.Hex(),
			Serial:    row.SerialNumber,
			MeterType: row.MeterType,
			Property:  labels[row.PropertyID],
		})
	}
	viewkit.Render(w, r, "reports_compliance", data)
}
