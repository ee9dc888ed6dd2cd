// internal/app/features/dashboard/common.go
package dashboard

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// statCard feeds the stat_card component.
type statCard struct {
	Key   string
	Label string
	Value string
	Href  string
	Hint  string
}

func stat(r *http.Request, key string, n int64, href string) statCard {
	return statCard{
		Key:   key,
		Label: viewdata.T(r, "dashboard.stats."+key),
		Value: fmt.Sprintf("%d", n),
		Href:  href,
	}
}

// invoiceRow is one line of a recent-invoices table.
type invoiceRow struct {
	ID          string
	Number      string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Total       decimal.Decimal
	Status      string
	Overdue     bool
	CanView     bool
}

func invoiceRows(r *http.Request, list []models.Invoice, now time.Time) []invoiceRow {
	rows := make([]invoiceRow, 0, len(list))
	for _, inv := range list {
		rows = append(rows, invoiceRow{
			ID:          inv.ID.Hex(),
			Number:      inv.Number,
			PeriodStart: inv.PeriodStart,
			PeriodEnd:   inv.PeriodEnd,
			Total:       inv.TotalAmount,
			Status:      inv.Status,
			Overdue:     inv.IsOverdue(now),
			CanView: gates.CanRequest(r, gates.View, gates.Resource{
				Kind:           gates.Invoices,
				OrganizationID: inv.OrganizationID,
				PropertyID:     inv.PropertyID,
				TenantID:       inv.TenantID,
			}),
		})
	}
	return rows
}

// cached returns the value under key, loading and storing it on a miss.
// A failed load is logged, not cached, and its partial result is used.
func cached[T any](h *Handler, key string, load func() (T, error)) T {
	if v, ok := h.Cache.Get(key); ok {
		if t, ok := v.(T); ok {
			return t
		}
	}
	v, err := load()
	if err != nil {
		h.Log.Warn("dashboard counts incomplete", zap.String("key", key), zap.Error(err))
		return v
	}
	h.Cache.Set(key, v, h.StatsTTL)
	return v
}
