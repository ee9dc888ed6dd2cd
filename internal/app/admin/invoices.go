package admin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	invoicestore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/invoices"
	tenantstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/tenants"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/billing"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/tariff"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GenerateOutcome is what happened for one tenant.
type GenerateOutcome struct {
	TenantID   primitive.ObjectID
	TenantName string
	Invoice    *models.Invoice
	Skipped    bool
	Err        error
}

// GenerateResult lists outcomes in tenant name order.
type GenerateResult struct {
	Outcomes []GenerateOutcome
}

// Counts returns generated, skipped and failed totals.
func (g GenerateResult) Counts() (generated, skipped, failed int) {
	for _, o := range g.Outcomes {
		switch {
		case o.Err != nil:
			failed++
		case o.Skipped:
			skipped++
		default:
			generated++
		}
	}
	return
}

// GenerateInvoices creates a draft invoice for every active tenant of the
// organization over [from, to]. Tenants that already have an invoice for
// exactly that period are skipped. Billing problems with one tenant (a
// missing reading, no provider) are recorded in its outcome and do not stop
// the others; store failures abort the run.
func (r *Runner) GenerateInvoices(ctx context.Context, orgID primitive.ObjectID, from, to time.Time) (GenerateResult, error) {
	if to.Before(from) {
		return GenerateResult{}, billing.ErrInvalidPeriod
	}

	tenants, err := tenantstore.New(r.DB).Find(ctx, bson.M{"organization_id": orgID, "active": true})
	if err != nil {
		return GenerateResult{}, fmt.Errorf("load tenants: %w", err)
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].NameCI < tenants[j].NameCI })

	invoices := invoicestore.New(r.DB)
	outcomes := make([]GenerateOutcome, len(tenants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	var mu sync.Mutex
	for i, t := range tenants {
		g.Go(func() error {
			out := GenerateOutcome{TenantID: t.ID, TenantName: t.Name}
			defer func() {
				mu.Lock()
				outcomes[i] = out
				mu.Unlock()
			}()

			n, err := invoices.Count(gctx, bson.M{
				"tenant_id":            t.ID,
				"billing_period_start": from,
				"billing_period_end":   to,
			})
			if err != nil {
				return fmt.Errorf("check existing invoice for %s: %w", t.ID.Hex(), err)
			}
			if n > 0 {
				out.Skipped = true
				return nil
			}

			inv, err := r.Billing.GenerateInvoice(gctx, t.ID, from, to)
			if err != nil {
				if isBillingProblem(err) {
					out.Err = err
					r.log().Warn("invoice not generated", zap.String("tenant_id", t.ID.Hex()), zap.Error(err))
					return nil
				}
				return fmt.Errorf("generate invoice for %s: %w", t.ID.Hex(), err)
			}
			out.Invoice = &inv

			r.AuditLog.Billing(gctx, nil, nil, auditlog.Action{
				EventType:      audit.EventInvoiceGenerated,
				OrganizationID: inv.OrganizationID,
				TargetID:       inv.ID,
				Details: map[string]string{
					"number":       inv.Number,
					"tenant_id":    inv.TenantID.Hex(),
					"period_start": from.Format(dateLayout),
					"period_end":   to.Format(dateLayout),
					"total":        inv.TotalAmount.StringFixed(2),
					"source":       "cli",
				},
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return GenerateResult{Outcomes: outcomes}, err
	}
	return GenerateResult{Outcomes: outcomes}, nil
}

func isBillingProblem(err error) bool {
	var missing *billing.MissingReadingError
	return errors.As(err, &missing) ||
		errors.Is(err, billing.ErrNoProperty) ||
		errors.Is(err, billing.ErrNoMeters) ||
		errors.Is(err, billing.ErrNoProvider) ||
		errors.Is(err, tariff.ErrNoActiveTariff) ||
		errors.Is(err, invoicestore.ErrDuplicateNumber)
}
