package invoices

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formval"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgscope"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/billing"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/tariff"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type generateInput struct {
	TenantID    string `form:"tenant_id" validate:"required"`
	PeriodStart string `form:"period_start" validate:"required"`
	PeriodEnd   string `form:"period_end" validate:"required"`
}

// previousMonth returns the first and last day of the month before now.
func previousMonth(now time.Time) (time.Time, time.Time) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -1, 0), first.AddDate(0, 0, -1)
}

// limitKey buckets generation requests per user.
func limitKey(u *auth.SessionUser) string {
	if u == nil {
		return "invoices:generate:"
	}
	return "invoices:generate:" + u.ID
}

func (h *Handler) tenantOptions(ctx context.Context, u *auth.SessionUser) ([]option, error) {
	ts, err := h.Tenants.Find(ctx, orgscope.FromUser(u).Filter(bson.M{"active": true}),
		options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}).SetLimit(1000))
	if err != nil {
		return nil, err
	}
	out := make([]option, 0, len(ts))
	for _, t := range ts {
		out = append(out, option{ID: t.ID.Hex(), Label: t.Name})
	}
	return out, nil
}

func (h *Handler) renderGenerate(w http.ResponseWriter, r *http.Request, status int, data generateData) {
	u, _ := auth.CurrentUser(r)
	formutil.SetBase(&data.Base, r, "invoices.generate_title", "/invoices")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	opts, err := h.tenantOptions(ctx, u)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load tenants failed", err, "", "/invoices")
		return
	}
	data.Tenants = opts
	viewkit.RenderStatus(w, r, status, "invoices_generate", data)
}

// ServeGenerate renders the generation form for the previous month.
// ?tenant= preselects a tenant.
func (h *Handler) ServeGenerate(w http.ResponseWriter, r *http.Request) {
	if !gates.Authorize(w, r, gates.Generate, gates.Resource{Kind: gates.Invoices}, "/invoices") {
		return
	}
	start, end := previousMonth(h.now().UTC())
	h.renderGenerate(w, r, http.StatusOK, generateData{
		TenantID:    r.URL.Query().Get("tenant"),
		PeriodStart: formutil.FormatDate(start),
		PeriodEnd:   formutil.FormatDate(end),
	})
}

// billingMessage turns a billing failure the user can fix into a message
// and the form field it belongs to ("" for the whole form). ok is false
// for unexpected errors.
func billingMessage(loc *i18n.Localizer, err error) (field, msg string, ok bool) {
	var missing *billing.MissingReadingError
	switch {
	case errors.As(err, &missing):
		if missing.Zone != "" {
			return "", loc.T("invoices.missing_reading_zone", missing.MeterSerial, missing.Zone, formutil.FormatDate(missing.Date)), true
		}
		return "", loc.T("invoices.missing_reading", missing.MeterSerial, formutil.FormatDate(missing.Date)), true
	case errors.Is(err, billing.ErrNoProperty):
		return "tenant_id", loc.T("invoices.no_property"), true
	case errors.Is(err, billing.ErrNoMeters):
		return "tenant_id", loc.T("invoices.no_meters"), true
	case errors.Is(err, billing.ErrNoProvider):
		return "", loc.T("invoices.no_provider"), true
	case errors.Is(err, tariff.ErrNoActiveTariff):
		return "", loc.T("invoices.no_tariff"), true
	case errors.Is(err, billing.ErrInvalidPeriod):
		return "period_end", loc.T("invoices.invalid_period"), true
	default:
		return "", "", false
	}
}

// HandleGenerate creates a draft invoice for one tenant and period.
// Each user may generate DefaultGenerateLimit invoices a minute.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/invoices")
		return
	}
	if !gates.Authorize(w, r, gates.Generate, gates.Resource{Kind: gates.Invoices}, "/invoices") {
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	in := generateInput{
		TenantID:    formutil.Value(r, "tenant_id"),
		PeriodStart: formutil.Value(r, "period_start"),
		PeriodEnd:   formutil.Value(r, "period_end"),
	}
	data := generateData{TenantID: in.TenantID, PeriodStart: in.PeriodStart, PeriodEnd: in.PeriodEnd}

	if q := h.Limiter.Take(limitKey(u)); !q.Allowed {
		h.Log.Warn("invoice generation rate limited", zap.String("user_id", u.ID))
		w.Header().Set("Retry-After", strconv.Itoa(q.RetryAfter(time.Now())))
		data.SetError(loc.T("invoices.rate_limited"))
		h.renderGenerate(w, r, http.StatusTooManyRequests, data)
		return
	}

	data.Errors = formval.Validate(loc, in)
	start, okStart := formutil.ParseDate(in.PeriodStart)
	if !okStart && !data.Errors.Has("period_start") {
		data.Errors.Add("period_start", loc.T("validation.date"))
	}
	end, okEnd := formutil.ParseDate(in.PeriodEnd)
	if !okEnd && !data.Errors.Has("period_end") {
		data.Errors.Add("period_end", loc.T("validation.date"))
	}
	if okStart && okEnd && end.Before(start) {
		data.Errors.Add("period_end", loc.T("invoices.invalid_period"))
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	var tenant models.Tenant
	if !data.Errors.Has("tenant_id") {
		id, err := primitive.ObjectIDFromHex(in.TenantID)
		if err == nil {
			tenant, err = h.Tenants.GetByID(ctx, id)
		}
		switch {
		case err == nil:
			if !gates.CanRequest(r, gates.Generate, gates.Resource{Kind: gates.Invoices, OrganizationID: tenant.OrganizationID}) {
				data.Errors.Add("tenant_id", loc.T("validation.invalid"))
			}
		case errors.Is(err, mongo.ErrNoDocuments), errors.Is(err, primitive.ErrInvalidHex):
			data.Errors.Add("tenant_id", loc.T("validation.invalid"))
		default:
			h.ErrLog.LogServerError(w, r, "load tenant failed", err, "", "/invoices")
			return
		}
	}
	if data.Errors.Any() {
		h.renderGenerate(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	inv, err := h.Billing.GenerateInvoice(ctx, tenant.ID, start, end)
	if err != nil {
		if field, msg, ok := billingMessage(loc, err); ok {
			if field == "" {
				data.SetError(msg)
			} else {
				data.Errors.Add(field, msg)
			}
			h.renderGenerate(w, r, http.StatusUnprocessableEntity, data)
			return
		}
		h.ErrLog.LogServerError(w, r, "generate invoice failed", err, "", "/invoices")
		return
	}

	h.AuditLog.Billing(ctx, r, u, auditlog.Action{
		EventType:      audit.EventInvoiceGenerated,
		OrganizationID: inv.OrganizationID,
		TargetID:       inv.ID,
		Details: map[string]string{
			"number":       inv.Number,
			"tenant_id":    inv.TenantID.Hex(),
			"period_start": formutil.FormatDate(inv.PeriodStart),
			"period_end":   formutil.FormatDate(inv.PeriodEnd),
			"total":        inv.TotalAmount.StringFixed(2),
		},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("invoices.generated", inv.Number))
	http.Redirect(w, r, "/invoices/"+inv.ID.Hex(), http.StatusSeeOther)
}
