package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/queries/reportqueries"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/exportstore"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgscope"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const csvContentType = "text/csv; charset=utf-8"

// table is a rendered CSV: a header row followed by data rows.
type table [][]string

func (h *Handler) consumptionTable(ctx context.Context, loc *i18n.Localizer, sel selection) (table, error) {
	rows, err := h.consumption(ctx, sel)
	if err != nil {
		return nil, err
	}
	t := table{{loc.T("columns.meter_type"), loc.T("columns.unit"), loc.T("columns.meters"), loc.T("columns.consumption")}}
	for _, row := range rows {
		t = append(t, []string{row.MeterType, row.Unit, strconv.Itoa(row.Meters), row.Consumption.StringFixed(2)})
	}
	return t, nil
}

func (h *Handler) revenueTable(ctx context.Context, loc *i18n.Localizer, sel selection) (table, error) {
	rep, err := h.revenue(ctx, sel)
	if err != nil {
		return nil, err
	}
	t := table{{loc.T("columns.status"), loc.T("columns.count"), loc.T("columns.amount")}}
	for _, row := range rep.Rows {
		t = append(t, []string{row.Status, strconv.FormatInt(row.Count, 10), row.Amount.StringFixed(2)})
	}
	t = append(t,
		[]string{loc.T("reports.revenue.invoiced"), "", rep.Invoiced.StringFixed(2)},
		[]string{loc.T("reports.revenue.paid"), "", rep.Paid.StringFixed(2)},
		[]string{loc.T("reports.revenue.outstanding"), "", rep.Outstanding.StringFixed(2)},
	)
	return t, nil
}

func (h *Handler) complianceTable(ctx context.Context, loc *i18n.Localizer, sel selection) (table, error) {
	rep, labels, err := h.compliance(ctx, sel)
	if err != nil {
		return nil, err
	}
	t := table{{loc.T("columns.serial_number"), loc.T("columns.meter_type"), loc.T("columns.property"), loc.T("columns.has_reading")}}
	for _, row := range rep.Rows {
		has := "no"
		if row.HasReading {
			has = "yes"
		}
		t = append(t, []string{row.SerialNumber, row.MeterType, labels[row.PropertyID], has})
	}
	return t, nil
}

// ExportConsumption handles GET /reports/consumption.csv.
func (h *Handler) ExportConsumption(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, reportConsumption)
}

// ExportRevenue handles GET /reports/revenue.csv.
func (h *Handler) ExportRevenue(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, reportRevenue)
}

// ExportCompliance handles GET /reports/compliance.csv.
func (h *Handler) ExportCompliance(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, reportCompliance)
}

// renderCSV builds report for sel and encodes it. rows excludes the header.
func (h *Handler) renderCSV(ctx context.Context, loc *i18n.Localizer, report string, sel selection) (data []byte, rows int, err error) {
	var t table
	switch report {
	case reportConsumption:
		t, err = h.consumptionTable(ctx, loc, sel)
	case reportRevenue:
		t, err = h.revenueTable(ctx, loc, sel)
	case reportCompliance:
		t, err = h.complianceTable(ctx, loc, sel)
	default:
		return nil, 0, fmt.Errorf("unknown report %q", report)
	}
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(t); err != nil {
		return nil, 0, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), len(t) - 1, nil
}

// Export renders report for one organization (every organization when
// orgID is zero) and writes it to Storage. It backs the admin CLI.
func (h *Handler) Export(ctx context.Context, loc *i18n.Localizer, report string, orgID primitive.ObjectID, p reportqueries.Period) (exportstore.Object, int, error) {
	if h.Storage == nil {
		return exportstore.Object{}, 0, fmt.Errorf("no export storage configured")
	}
	sel := selection{Period: p, Scope: orgscope.Scope{All: true}, OrgID: orgID}
	data, rows, err := h.renderCSV(ctx, loc, report, sel)
	if err != nil {
		return exportstore.Object{}, 0, err
	}
	key := exportstore.Key(sel.scopeName(), report, p.From, p.To, "csv")
	obj, err := h.Storage.Put(ctx, key, bytes.NewReader(data), csvContentType)
	if err != nil {
		return exportstore.Object{}, 0, fmt.Errorf("store %s: %w", key, err)
	}
	return obj, rows, nil
}

// export renders a report to CSV, stores a copy and sends it as a
// download. A failed copy is logged and does not block the download.
func (h *Handler) export(w http.ResponseWriter, r *http.Request, report string) {
	sel := h.parseSelection(r)
	if !h.authorize(w, r, sel) {
		return
	}
	if sel.Invalid {
		h.ErrLog.LogBadRequest(w, r, "invalid report period", nil, "reports.invalid_period", "/reports/"+report)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	data, rows, err := h.renderCSV(ctx, i18n.Current(r.Context()), report, sel)
	if err != nil {
		h.ErrLog.LogServerError(w, r, report+" export failed", err, "", "/reports/"+report)
		return
	}

	key := exportstore.Key(sel.scopeName(), report, sel.Period.From, sel.Period.To, "csv")
	details := map[string]string{
		"report": report,
		"from":   sel.Period.From.Format("2006-01-02"),
		"to":     sel.Period.To.Format("2006-01-02"),
		"rows":   strconv.Itoa(rows),
	}
	if h.Storage != nil {
		obj, err := h.Storage.Put(ctx, key, bytes.NewReader(data), csvContentType)
		if err != nil {
			h.Log.Warn("store report export failed", zap.String("report", report), zap.String("key", key), zap.Error(err))
		} else {
			details["location"] = obj.Location
		}
	}

	u, _ := auth.CurrentUser(r)
	h.AuditLog.Billing(ctx, r, u, auditlog.Action{
		EventType:      audit.EventReportExported,
		OrganizationID: sel.OrgID,
		Details:        details,
	})

	filename := fmt.Sprintf("%s_%s_%s.csv", report, details["from"], details["to"])
	w.Header().Set("Content-Type", csvContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}
