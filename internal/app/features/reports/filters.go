package reports

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/queries/reportqueries"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgscope"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// selection is the parsed report filter.
type selection struct {
	Period reportqueries.Period
	Scope  orgscope.Scope
	// OrgID is set when a superadmin narrows the report to one organization.
	OrgID primitive.ObjectID
	// Invalid is set when from/to were present but unusable; the default
	// period is used instead.
	Invalid bool
}

// previousMonth is the first and last day of the month before now.
func previousMonth(now time.Time) reportqueries.Period {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return reportqueries.Period{From: first, To: first.AddDate(0, 1, -1)}
}

// parseSelection reads ?from, ?to and, for superadmins, ?org.
func (h *Handler) parseSelection(r *http.Request) selection {
	u, _ := auth.CurrentUser(r)
	sel := selection{Period: previousMonth(h.now()), Scope: orgscope.FromUser(u)}

	fromStr, toStr := query.Get(r, "from"), query.Get(r, "to")
	if fromStr != "" || toStr != "" {
		from, okFrom := formutil.ParseDate(fromStr)
		to, okTo := formutil.ParseDate(toStr)
		if okFrom && okTo && !to.Before(from) {
			sel.Period = reportqueries.Period{From: from, To: to}
		} else {
			sel.Invalid = true
		}
	}

	if sel.Scope.All {
		if oid, err := primitive.ObjectIDFromHex(query.Get(r, "org")); err == nil {
			sel.OrgID = oid
		}
	}
	return sel
}

// filter scopes f to the user's organization, or to the organization a
// superadmin picked.
func (s selection) filter(f bson.M) bson.M {
	f = s.Scope.Filter(f)
	if s.Scope.All && !s.OrgID.IsZero() {
		f["organization_id"] = s.OrgID
	}
	return f
}

// scopeName names the export folder.
func (s selection) scopeName() string {
	switch {
	case !s.Scope.All:
		return s.Scope.OrgID.Hex()
	case !s.OrgID.IsZero():
		return s.OrgID.Hex()
	default:
		return "all"
	}
}

func (s selection) query() string {
	v := url.Values{}
	v.Set("from", formutil.FormatDate(s.Period.From))
	v.Set("to", formutil.FormatDate(s.Period.To))
	if !s.OrgID.IsZero() {
		v.Set("org", s.OrgID.Hex())
	}
	return v.Encode()
}

// baseData fills the shared filter fields.
func (h *Handler) baseData(ctx context.Context, r *http.Request, report string, sel selection) (filterData, error) {
	d := filterData{
		BaseVM:    viewdata.New(r, "reports."+report+".title", "/dashboard"),
		Report:    report,
		Reports:   reportNames,
		From:      formutil.FormatDate(sel.Period.From),
		To:        formutil.FormatDate(sel.Period.To),
		ExportURL: "/reports/" + report + ".csv?" + sel.query(),
	}
	if !sel.OrgID.IsZero() {
		d.OrgID = sel.OrgID.Hex()
	}
	if sel.Invalid {
		d.Error = i18n.Current(ctx).T("reports.invalid_period")
	}
	if sel.Scope.All {
		orgs, err := h.Organizations.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
		if err != nil {
			return d, err
		}
		for _, o := range orgs {
			d.Orgs = append(d.Orgs, option{ID: o.ID.Hex(), Label: o.Name})
		}
	}
	return d, nil
}
