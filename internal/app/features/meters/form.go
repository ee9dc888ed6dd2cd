package meters

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	meterstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/meters"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auditlog"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formval"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgscope"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type meterInput struct {
	PropertyID       string `form:"property_id" validate:"required"`
	Serial           string `form:"serial_number" validate:"required,max=50"`
	Type             string `form:"type" validate:"required,oneof=electricity water_cold water_hot heating"`
	InstallationDate string `form:"installation_date" validate:"required"`
}

func readInput(r *http.Request) (meterInput, bool) {
	return meterInput{
		PropertyID:       formutil.Value(r, "property_id"),
		Serial:           formutil.Value(r, "serial_number"),
		Type:             formutil.Value(r, "type"),
		InstallationDate: formutil.Value(r, "installation_date"),
	}, r.PostFormValue("supports_zones") != ""
}

// validate checks the fields and returns the installation date, which may
// not lie in the future.
func validate(loc *i18n.Localizer, in meterInput, data *formData, now time.Time) time.Time {
	data.Errors = formval.Validate(loc, in)
	if data.Errors.Has("installation_date") {
		return time.Time{}
	}
	d, ok := formutil.ParseDate(in.InstallationDate)
	switch {
	case !ok:
		data.Errors.Add("installation_date", loc.T("validation.date"))
	case d.After(now):
		data.Errors.Add("installation_date", loc.T("meters.installed_in_future"))
	}
	return d
}

func (h *Handler) propertyOptions(ctx context.Context, u *auth.SessionUser) ([]option, error) {
	props, err := h.Properties.Find(ctx, orgscope.FromUser(u).Filter(bson.M{}),
		options.Find().SetSort(bson.D{{Key: "address_ci", Value: 1}, {Key: "unit_number", Value: 1}}).SetLimit(1000))
	if err != nil {
		return nil, err
	}
	out := make([]option, 0, len(props))
	for _, p := range props {
		out = append(out, option{ID: p.ID.Hex(), Label: p.Label()})
	}
	return out, nil
}

// resolveProperty loads the chosen property. The meter inherits its
// organization; a property u may not equip is reported as invalid.
func (h *Handler) resolveProperty(ctx context.Context, r *http.Request, loc *i18n.Localizer, hex string, data *formData) (*models.Property, error) {
	if data.Errors.Has("property_id") {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		data.Errors.Add("property_id", loc.T("validation.invalid"))
		return nil, nil
	}
	p, err := h.Properties.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		data.Errors.Add("property_id", loc.T("validation.invalid"))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !gates.CanRequest(r, gates.Create, gates.Resource{Kind: gates.Meters, OrganizationID: p.OrganizationID}) {
		data.Errors.Add("property_id", loc.T("validation.invalid"))
		return nil, nil
	}
	return &p, nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data formData) {
	u, _ := auth.CurrentUser(r)
	titleKey := "meters.new_title"
	data.Action = "/meters"
	if data.IsEdit {
		titleKey = "meters.edit_title"
		data.Action = "/meters/" + data.ID + "/edit"
	}
	formutil.SetBase(&data.Base, r, titleKey, "/meters")
	data.Types = models.MeterTypes

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	props, err := h.propertyOptions(ctx, u)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load properties failed", err, "", "/meters")
		return
	}
	data.Properties = props
	viewkit.RenderStatus(w, r, status, "meters_form", data)
}

// ServeNew renders the "New meter" form. ?property= preselects one.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Meters}, "/meters") {
		return
	}
	h.render(w, r, http.StatusOK, formData{
		PropertyID:       r.URL.Query().Get("property"),
		Type:             models.MeterElectricity,
		InstallationDate: formutil.FormatDate(time.Now().UTC()),
	})
}

// HandleCreate creates a meter.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/meters")
		return
	}
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Meters}, "/meters") {
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	in, zones := readInput(r)
	data := formData{
		PropertyID:       in.PropertyID,
		Serial:           in.Serial,
		Type:             in.Type,
		SupportsZones:    zones,
		InstallationDate: in.InstallationDate,
	}
	installed := validate(loc, in, &data, time.Now().UTC())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	prop, err := h.resolveProperty(ctx, r, loc, in.PropertyID, &data)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load property failed", err, "", "/meters")
		return
	}
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	m, err := h.Meters.Create(ctx, models.Meter{
		OrganizationID:   prop.OrganizationID,
		PropertyID:       prop.ID,
		SerialNumber:     in.Serial,
		Type:             in.Type,
		SupportsZones:    zones,
		InstallationDate: installed,
	})
	if errors.Is(err, meterstore.ErrDuplicateSerial) {
		data.Errors.Add("serial_number", loc.T("meters.duplicate_serial"))
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create meter failed", err, "", "/meters")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventMeterCreated,
		OrganizationID: m.OrganizationID,
		TargetID:       m.ID,
		Details:        map[string]string{"serial_number": m.SerialNumber, "type": m.Type, "property_id": m.PropertyID.Hex()},
	})
	h.Log.Info("meter created", zap.String("meter_id", m.ID.Hex()), zap.String("property_id", m.PropertyID.Hex()))

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("meters.created", m.SerialNumber))
	http.Redirect(w, r, "/meters/"+m.ID.Hex(), http.StatusSeeOther)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, ctx context.Context, action gates.Action) (models.Meter, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderNotFound(w, r, "/meters")
		return models.Meter{}, false
	}
	m, err := h.Meters.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/meters")
			return models.Meter{}, false
		}
		h.ErrLog.LogServerError(w, r, "load meter failed", err, "", "/meters")
		return models.Meter{}, false
	}
	res := gates.Resource{Kind: gates.Meters, OrganizationID: m.OrganizationID, PropertyID: m.PropertyID}
	if !gates.Authorize(w, r, action, res, "/meters") {
		return models.Meter{}, false
	}
	return m, true
}

// hasReadings reports whether zone support is locked in by recorded data.
func (h *Handler) hasReadings(ctx context.Context, meterID primitive.ObjectID) (bool, error) {
	n, err := h.Readings.Count(ctx, bson.M{"meter_id": meterID})
	return n > 0, err
}

// ServeEdit renders the edit form.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}
	locked, err := h.hasReadings(ctx, m.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count meter readings failed", err, "", "/meters")
		return
	}
	h.render(w, r, http.StatusOK, formData{
		ID:               m.ID.Hex(),
		IsEdit:           true,
		ZonesLock:        locked,
		PropertyID:       m.PropertyID.Hex(),
		Serial:           m.SerialNumber,
		Type:             m.Type,
		SupportsZones:    m.SupportsZones,
		InstallationDate: formutil.FormatDate(m.InstallationDate),
	})
}

// HandleEdit saves a meter. Once readings exist, zone support can no
// longer be switched since the recorded readings would no longer match.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/meters")
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}
	locked, err := h.hasReadings(ctx, m.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count meter readings failed", err, "", "/meters")
		return
	}

	in, zones := readInput(r)
	data := formData{
		ID:               m.ID.Hex(),
		IsEdit:           true,
		ZonesLock:        locked,
		PropertyID:       in.PropertyID,
		Serial:           in.Serial,
		Type:             in.Type,
		SupportsZones:    zones,
		InstallationDate: in.InstallationDate,
	}
	installed := validate(loc, in, &data, time.Now().UTC())
	if locked && zones != m.SupportsZones {
		data.Errors.Add("supports_zones", loc.T("meters.zones_locked"))
	}
	prop, err := h.resolveProperty(ctx, r, loc, in.PropertyID, &data)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load property failed", err, "", "/meters")
		return
	}
	if prop != nil && prop.OrganizationID != m.OrganizationID {
		data.Errors.Add("property_id", loc.T("validation.invalid"))
	}
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	before := m
	m.PropertyID = prop.ID
	m.SerialNumber = in.Serial
	m.Type = in.Type
	m.SupportsZones = zones
	m.InstallationDate = installed
	err = h.Meters.Update(ctx, m)
	switch {
	case errors.Is(err, meterstore.ErrDuplicateSerial):
		data.Errors.Add("serial_number", loc.T("meters.duplicate_serial"))
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.RenderNotFound(w, r, "/meters")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "update meter failed", err, "", "/meters")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventMeterUpdated,
		OrganizationID: m.OrganizationID,
		TargetID:       m.ID,
		Details: map[string]string{
			"serial_old":      before.SerialNumber,
			"serial_new":      m.SerialNumber,
			"property_id_old": before.PropertyID.Hex(),
			"property_id_new": m.PropertyID.Hex(),
			"zones":           strconv.FormatBool(m.SupportsZones),
		},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("meters.updated", m.SerialNumber))
	http.Redirect(w, r, "/meters/"+m.ID.Hex(), http.StatusSeeOther)
}
