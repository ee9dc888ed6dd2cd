package admin

import (
	"context"
	"fmt"
	"strconv"

	reportsfeature "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/reports"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/queries/reportqueries"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/exportstore"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExportOutcome is one stored report file.
type ExportOutcome struct {
	Report string
	Object exportstore.Object
	Rows   int
}

// ExportReports renders every report for the organization (all
// organizations when orgID is zero) over p and stores each as CSV.
func (r *Runner) ExportReports(ctx context.Context, orgID primitive.ObjectID, p reportqueries.Period) ([]ExportOutcome, error) {
	if p.To.Before(p.From) {
		return nil, fmt.Errorf("period end %s precedes start %s", p.To.Format(dateLayout), p.From.Format(dateLayout))
	}
	loc := i18n.Shared().For(r.Locale)

	var out []ExportOutcome
	for _, name := range reportsfeature.Names() {
		obj, rows, err := r.Reports.Export(ctx, loc, name, orgID, p)
		if err != nil {
			return out, fmt.Errorf("export %s: %w", name, err)
		}
		r.AuditLog.Billing(ctx, nil, nil, auditlog.Action{
			EventType:      audit.EventReportExported,
			OrganizationID: orgID,
			Details: map[string]string{
				"report":   name,
				"from":     p.From.Format(dateLayout),
				"to":       p.To.Format(dateLayout),
				"rows":     strconv.Itoa(rows),
				"location": obj.Location,
				"source":   "cli",
			},
		})
		out = append(out, ExportOutcome{Report: name, Object: obj, Rows: rows})
	}
	return out, nil
}
