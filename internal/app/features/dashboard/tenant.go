// internal/app/features/dashboard/tenant.go
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/authz"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type propertyVM struct {
	Address    string
	UnitNumber string
	AreaSqm    decimal.Decimal
}

type meterRow struct {
	ID          string
	Serial      string
	Type        string
	Unit        string
	HasReading  bool
	LatestValue decimal.Decimal
	LatestDate  time.Time
}

type tenantData struct {
	viewdata.BaseVM
	Property       *propertyVM
	Meters         []meterRow
	RecentInvoices []invoiceRow
	UnpaidTotal    decimal.Decimal
	UnpaidCount    int64
}

func (h *Handler) ServeTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := authz.UserTenantID(r)
	propertyID := authz.UserPropertyID(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data := tenantData{BaseVM: viewdata.New(r, "dashboard.tenant.title", "/")}

	if !propertyID.IsZero() {
		p, err := h.Properties.GetByID(ctx, propertyID)
		switch {
		case err == nil:
			data.Property = &propertyVM{Address: p.Address, UnitNumber: p.UnitNumber, AreaSqm: p.AreaSqm}
		case !errors.Is(err, mongo.ErrNoDocuments):
			h.ErrLog.LogServerError(w, r, "failed to load tenant property", err, "", "/")
			return
		}
	}

	if data.Property != nil {
		meters, err := h.Meters.ListByProperty(ctx, propertyID)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "failed to load meters", err, "", "/")
			return
		}
		ids := make([]primitive.ObjectID, 0, len(meters))
		for _, m := range meters {
			ids = append(ids, m.ID)
		}
		latest, err := h.Readings.LatestByMeters(ctx, ids)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "failed to load latest readings", err, "", "/")
			return
		}
		for _, m := range meters {
			row := meterRow{ID: m.ID.Hex(), Serial: m.SerialNumber, Type: m.Type, Unit: models.UnitFor(m.Type)}
			if rd, ok := latest[m.ID]; ok {
				row.HasReading = true
				row.LatestValue = rd.Value
				row.LatestDate = rd.ReadingDate
			}
			data.Meters = append(data.Meters, row)
		}
	}

	filter := bson.M{"organization_id": authz.UserOrgID(r), "tenant_id": tenantID}
	recent, err := h.Invoices.Recent(ctx, filter, recentLimit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "failed to load invoices", err, "", "/")
		return
	}
	data.RecentInvoices = invoiceRows(r, recent, h.now())

	unpaid := bson.M{"organization_id": authz.UserOrgID(r), "tenant_id": tenantID, "status": models.InvoiceFinalized}
	totals, err := h.Invoices.SumByStatus(ctx, unpaid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "failed to total unpaid invoices", err, "", "/")
		return
	}
	data.UnpaidTotal = decimal.Zero
	for _, t := range totals {
		data.UnpaidTotal = data.UnpaidTotal.Add(t.Amount)
		data.UnpaidCount += t.Count
	}

	viewkit.Render(w, r, "dashboard_tenant", data)
}
