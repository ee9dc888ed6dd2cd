package invoices

import (
	"context"
	"net/http"
	"slices"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgscope"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func listFilter(u *auth.SessionUser, status, tenant string) bson.M {
	f := orgscope.FromUser(u).TenantFilter(bson.M{}, "tenant_id")
	if slices.Contains(models.InvoiceStatuses, status) {
		f["status"] = status
	}
	if oid, err := primitive.ObjectIDFromHex(tenant); err == nil {
		if _, scoped := f["tenant_id"]; !scoped {
			f["tenant_id"] = oid
		}
	}
	return f
}

// names resolves tenant and property labels for a page of invoices.
func (h *Handler) names(ctx context.Context, invs []models.Invoice) (map[primitive.ObjectID]string, map[primitive.ObjectID]string, error) {
	tenantIDs := make([]primitive.ObjectID, 0, len(invs))
	propIDs := make([]primitive.ObjectID, 0, len(invs))
	for _, inv := range invs {
		tenantIDs = append(tenantIDs, inv.TenantID)
		propIDs = append(propIDs, inv.PropertyID)
	}
	tenants := map[primitive.ObjectID]string{}
	props := map[primitive.ObjectID]string{}
	if len(invs) == 0 {
		return tenants, props, nil
	}
	ts, err := h.Tenants.Find(ctx, bson.M{"_id": bson.M{"$in": tenantIDs}})
	if err != nil {
		return nil, nil, err
	}
	for _, t := range ts {
		tenants[t.ID] = t.Name
	}
	ps, err := h.Properties.Find(ctx, bson.M{"_id": bson.M{"$in": propIDs}})
	if err != nil {
		return nil, nil, err
	}
	for _, p := range ps {
		props[p.ID] = p.Label()
	}
	return tenants, props, nil
}

// ServeList handles GET /invoices, newest first. ?status= and ?tenant=
// narrow the list.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	status := query.Get(r, "status")
	tenant := query.Get(r, "tenant")
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	filter := listFilter(u, status, tenant)
	total, err := h.Invoices.Count(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count invoices failed", err, "", "/dashboard")
		return
	}
	find := page.ApplyToFind(options.Find().SetSort(bson.D{{Key: "billing_period_start", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	invs, err := h.Invoices.Find(ctx, filter, find)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "find invoices failed", err, "", "/dashboard")
		return
	}
	tenants, props, err := h.names(ctx, invs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load invoice names failed", err, "", "/dashboard")
		return
	}

	now := h.now().UTC()
	data := listData{
		BaseVM:    viewdata.New(r, "invoices.title", "/dashboard"),
		Status:    status,
		Statuses:  models.InvoiceStatuses,
		TenantID:  tenant,
		Paging:    paging.NewView(r, page, total, len(invs)),
		PageTotal: decimal.Zero,
		IsTenant:  orgscope.FromUser(u).IsTenant(),
	}
	data.CanGenerate = !data.ReadOnly && gates.CanRequest(r, gates.Generate, gates.Resource{Kind: gates.Invoices})
	for _, inv := range invs {
		res := gates.Resource{Kind: gates.Invoices, OrganizationID: inv.OrganizationID, PropertyID: inv.PropertyID, TenantID: inv.TenantID, Status: inv.Status}
		data.Items = append(data.Items, listItem{
			ID:          inv.ID.Hex(),
			Number:      inv.Number,
			Tenant:      tenants[inv.TenantID],
			Property:    props[inv.PropertyID],
			PeriodStart: inv.PeriodStart,
			PeriodEnd:   inv.PeriodEnd,
			DueDate:     inv.DueDate,
			Status:      inv.Status,
			Overdue:     inv.IsOverdue(now),
			Total:       inv.TotalAmount,
			CanDelete:   !data.ReadOnly && gates.CanRequest(r, gates.Delete, res),
		})
		data.PageTotal = data.PageTotal.Add(inv.TotalAmount)
	}

	viewkit.Render(w, r, "invoices_list", data)
}
