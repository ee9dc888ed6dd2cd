package tariffs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formval"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/money"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/tariff"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// blankZoneRows is how many empty zone rows the form always offers.
const blankZoneRows = 2

var (
	tariffTypes   = []string{models.TariffFlat, models.TariffTimeOfUse}
	weekendLogics = []string{models.WeekendNightRate, models.WeekendDayRate, models.WeekendWeekendRate}
)

// readForm copies the posted values into data and builds the tariff they
// describe. Parse failures are recorded on data.Errors; domain rules are
// checked afterwards by tariff.Validate.
func readForm(r *http.Request, loc *i18n.Localizer, data *formData) models.Tariff {
	data.ProviderID = formutil.Value(r, "provider_id")
	data.Name = formutil.Value(r, "name")
	data.RemoteID = formutil.Value(r, "remote_id")
	data.Type = formutil.Value(r, "type")
	data.Rate = formutil.Value(r, "rate")
	data.FixedFee = formutil.Value(r, "fixed_fee")
	data.WeekendLogic = formutil.Value(r, "weekend_logic")
	data.ActiveFrom = formutil.Value(r, "active_from")
	data.ActiveUntil = formutil.Value(r, "active_until")
	data.Errors = formval.ErrorBag{}

	t := models.Tariff{
		Name:     data.Name,
		RemoteID: data.RemoteID,
		Configuration: models.TariffConfiguration{
			Type:     data.Type,
			Currency: money.Currency,
		},
	}

	if data.Type == models.TariffFlat {
		switch rate, ok := formutil.ParseDecimal(data.Rate); {
		case data.Rate == "":
			data.Errors.Add("configuration.rate", loc.T("validation.required"))
		case !ok:
			data.Errors.Add("configuration.rate", loc.T("validation.numeric"))
		default:
			t.Configuration.Rate = rate
		}
	}
	if data.FixedFee != "" {
		if fee, ok := formutil.ParseDecimal(data.FixedFee); ok {
			t.Configuration.FixedFee = &fee
		} else {
			data.Errors.Add("configuration.fixed_fee", loc.T("validation.numeric"))
		}
	}

	if data.Type == models.TariffTimeOfUse {
		t.Configuration.WeekendLogic = data.WeekendLogic
		ids := r.PostForm["zone_id"]
		starts := r.PostForm["zone_start"]
		ends := r.PostForm["zone_end"]
		rates := r.PostForm["zone_rate"]
		for i := range ids {
			z := zoneRow{ID: strings.TrimSpace(ids[i])}
			if i < len(starts) {
				z.Start = strings.TrimSpace(starts[i])
			}
			if i < len(ends) {
				z.End = strings.TrimSpace(ends[i])
			}
			if i < len(rates) {
				z.Rate = strings.TrimSpace(rates[i])
			}
			if z.ID == "" && z.Start == "" && z.End == "" && z.Rate == "" {
				continue
			}
			z.Index = len(data.Zones)
			data.Zones = append(data.Zones, z)

			zone := models.TariffZone{ID: z.ID, Start: z.Start, End: z.End}
			if rate, ok := formutil.ParseDecimal(z.Rate); ok {
				zone.Rate = rate
			} else {
				data.Errors.Add(fmt.Sprintf("configuration.zones.%d.rate", z.Index), loc.T("validation.numeric"))
			}
			t.Configuration.Zones = append(t.Configuration.Zones, zone)
		}
	}

	if from, ok := formutil.ParseDate(data.ActiveFrom); ok {
		t.ActiveFrom = from
	} else if data.ActiveFrom != "" {
		data.Errors.Add("active_from", loc.T("validation.date"))
	}
	if until, ok := formutil.ParseOptionalDate(data.ActiveUntil); ok {
		t.ActiveUntil = until
	} else {
		data.Errors.Add("active_until", loc.T("validation.date"))
	}

	var fe tariff.FieldErrors
	if err := tariff.Validate(t); errors.As(err, &fe) {
		data.Errors.AddTariffErrors(loc, fe)
	}
	return t
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data formData) {
	u, _ := auth.CurrentUser(r)
	titleKey := "tariffs.new_title"
	data.Action = "/tariffs"
	if data.IsEdit {
		titleKey = "tariffs.edit_title"
		data.Action = "/tariffs/" + data.ID + "/edit"
	}
	formutil.SetBase(&data.Base, r, titleKey, "/tariffs")
	data.Types = tariffTypes
	data.WeekendLogics = weekendLogics
	for i := 0; i < blankZoneRows; i++ {
		data.Zones = append(data.Zones, zoneRow{Index: len(data.Zones)})
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	provs, _, err := h.providerOptions(ctx, u)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load providers failed", err, "", "/tariffs")
		return
	}
	data.Providers = provs

	data.PickOrg = u.IsSuperAdmin() && !data.IsEdit
	if data.PickOrg {
		orgs, err := orgutil.ActiveOptions(ctx, h.DB)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load organizations failed", err, "", "/tariffs")
			return
		}
		data.Orgs = orgs
	}
	viewkit.RenderStatus(w, r, status, "tariffs_form", data)
}

// resolveProvider loads the posted provider. A blank value is a manual
// tariff and gives nil.
func (h *Handler) resolveProvider(ctx context.Context, hex string) (*models.Provider, error) {
	if hex == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}
	p, err := h.Providers.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ServeNew renders the "New tariff" form. ?provider= preselects one.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Tariffs}, "/tariffs") {
		return
	}
	h.render(w, r, http.StatusOK, formData{
		ProviderID: r.URL.Query().Get("provider"),
		Type:       models.TariffFlat,
	})
}

// HandleCreate creates a tariff. The organization comes from the provider
// when one is chosen.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/tariffs")
		return
	}
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Tariffs}, "/tariffs") {
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	data := formData{OrgID: formutil.Value(r, "organization_id")}
	t := readForm(r, loc, &data)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	prov, err := h.resolveProvider(ctx, data.ProviderID)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		data.Errors.Add("provider_id", loc.T("validation.invalid"))
	case err != nil:
		h.ErrLog.LogServerError(w, r, "load provider failed", err, "", "/tariffs")
		return
	case prov != nil:
		if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Tariffs, OrganizationID: prov.OrganizationID}, "/tariffs") {
			return
		}
		t.OrganizationID = prov.OrganizationID
		t.ProviderID = &prov.ID
	default:
		org, err := orgutil.TargetOrg(ctx, h.DB, u, data.OrgID)
		if err != nil {
			if !orgutil.IsExpectedOrgError(err) {
				h.ErrLog.LogServerError(w, r, "resolve organization failed", err, "", "/tariffs")
				return
			}
			data.Errors.Add("organization_id", loc.T("validation.required"))
		}
		t.OrganizationID = org.ID
	}
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	t, err = h.Tariffs.Create(ctx, t)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create tariff failed", err, "", "/tariffs")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventTariffCreated,
		OrganizationID: t.OrganizationID,
		TargetID:       t.ID,
		Details:        map[string]string{"name": t.Name, "type": t.Configuration.Type, "active_from": formutil.FormatDate(t.ActiveFrom)},
	})
	h.Log.Info("tariff created", zap.String("tariff_id", t.ID.Hex()), zap.String("org_id", t.OrganizationID.Hex()))

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("tariffs.created", t.Name))
	http.Redirect(w, r, "/tariffs/"+t.ID.Hex(), http.StatusSeeOther)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, ctx context.Context, action gates.Action) (models.Tariff, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderNotFound(w, r, "/tariffs")
		return models.Tariff{}, false
	}
	t, err := h.Tariffs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/tariffs")
			return models.Tariff{}, false
		}
		h.ErrLog.LogServerError(w, r, "load tariff failed", err, "", "/tariffs")
		return models.Tariff{}, false
	}
	if !gates.Authorize(w, r, action, gates.Resource{Kind: gates.Tariffs, OrganizationID: t.OrganizationID}, "/tariffs") {
		return models.Tariff{}, false
	}
	return t, true
}

func formFromTariff(t models.Tariff) formData {
	data := formData{
		ID:           t.ID.Hex(),
		IsEdit:       true,
		Name:         t.Name,
		RemoteID:     t.RemoteID,
		Type:         t.Configuration.Type,
		WeekendLogic: t.Configuration.WeekendLogic,
		ActiveFrom:   formutil.FormatDate(t.ActiveFrom),
		ActiveUntil:  formutil.FormatOptionalDate(t.ActiveUntil),
	}
	if t.ProviderID != nil {
		data.ProviderID = t.ProviderID.Hex()
	}
	if t.Configuration.Type == models.TariffFlat {
		data.Rate = t.Configuration.Rate.String()
	}
	if t.Configuration.FixedFee != nil {
		data.FixedFee = t.Configuration.FixedFee.String()
	}
	for i, z := range t.Configuration.Zones {
		data.Zones = append(data.Zones, zoneRow{Index: i, ID: z.ID, Start: z.Start, End: z.End, Rate: z.Rate.String()})
	}
	return data
}

// ServeEdit renders the edit form.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, formFromTariff(t))
}

// HandleEdit saves a tariff. The provider may change only within the same
// organization.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/tariffs")
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	old, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}

	data := formData{ID: old.ID.Hex(), IsEdit: true}
	t := readForm(r, loc, &data)
	t.ID = old.ID
	t.OrganizationID = old.OrganizationID

	prov, err := h.resolveProvider(ctx, data.ProviderID)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		data.Errors.Add("provider_id", loc.T("validation.invalid"))
	case err != nil:
		h.ErrLog.LogServerError(w, r, "load provider failed", err, "", "/tariffs")
		return
	case prov != nil && prov.OrganizationID != old.OrganizationID:
		data.Errors.Add("provider_id", loc.T("validation.invalid"))
	case prov != nil:
		t.ProviderID = &prov.ID
	}
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	if err := h.Tariffs.Update(ctx, t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/tariffs")
			return
		}
		h.ErrLog.LogServerError(w, r, "update tariff failed", err, "", "/tariffs")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventTariffUpdated,
		OrganizationID: t.OrganizationID,
		TargetID:       t.ID,
		Details: map[string]string{
			"name":            t.Name,
			"type_old":        old.Configuration.Type,
			"type_new":        t.Configuration.Type,
			"rate_old":        old.Configuration.Rate.String(),
			"rate_new":        t.Configuration.Rate.String(),
			"active_from_old": formutil.FormatDate(old.ActiveFrom),
			"active_from_new": formutil.FormatDate(t.ActiveFrom),
		},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("tariffs.updated", t.Name))
	http.Redirect(w, r, "/tariffs/"+t.ID.Hex(), http.StatusSeeOther)
}
