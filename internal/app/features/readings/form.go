package readings

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/features/errors"
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
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type readingInput struct {
	MeterID string `form:"meter_id" validate:"required"`
	Date    string `form:"reading_date" validate:"required"`
	Value   string `form:"value" validate:"required"`
	Zone    string `form:"zone" validate:"omitempty,max=50"`
	Notes   string `form:"notes" validate:"max=500"`
}

func readInput(r *http.Request) readingInput {
	return readingInput{
		MeterID: formutil.Value(r, "meter_id"),
		Date:    formutil.Value(r, "reading_date"),
		Value:   formutil.Value(r, "value"),
		Zone:    formutil.Value(r, "zone"),
		Notes:   strings.TrimSpace(r.PostFormValue("notes")),
	}
}

func (in readingInput) form() formData {
	return formData{MeterID: in.MeterID, Date: in.Date, Zone: in.Zone, Value: in.Value, Notes: in.Notes}
}

// checked is a validated reading.
type checked struct {
	Date  time.Time
	Value decimal.Decimal
	Zone  *string
}

// check validates in against m and the neighbouring readings of the same
// meter and zone. A reading may not be dated in the future, may not be
// negative, and must lie between its previous and next readings since the
// register only counts up. exclude is the reading being edited.
func (h *Handler) check(ctx context.Context, loc *i18n.Localizer, m models.Meter, in readingInput, exclude primitive.ObjectID, now time.Time, data *formData) (checked, error) {
	var out checked
	if in.Zone != "" {
		z := in.Zone
		out.Zone = &z
	}
	switch {
	case m.SupportsZones && in.Zone == "":
		data.Errors.Add("zone", loc.T("readings.zone_required"))
	case !m.SupportsZones && in.Zone != "":
		data.Errors.Add("zone", loc.T("readings.zone_not_supported"))
	}

	if !data.Errors.Has("reading_date") {
		d, ok := formutil.ParseDate(in.Date)
		switch {
		case !ok:
			data.Errors.Add("reading_date", loc.T("validation.date"))
		case d.After(now):
			data.Errors.Add("reading_date", loc.T("readings.date_in_future"))
		default:
			out.Date = d
		}
	}
	if !data.Errors.Has("value") {
		v, ok := formutil.ParseDecimal(in.Value)
		switch {
		case !ok:
			data.Errors.Add("value", loc.T("validation.numeric"))
		case v.IsNegative():
			data.Errors.Add("value", loc.T("readings.negative_value"))
		default:
			out.Value = v
		}
	}
	if data.Errors.Any() {
		return out, nil
	}

	prev, next, err := h.Readings.Neighbours(ctx, m.ID, out.Zone, out.Date, exclude)
	if err != nil {
		return out, err
	}
	if prev != nil {
		data.Previous = &neighbour{Date: prev.ReadingDate, Value: prev.Value}
		if out.Value.LessThan(prev.Value) {
			data.Errors.Add("value", loc.T("readings.below_previous", prev.Value.String(), formutil.FormatDate(prev.ReadingDate)))
		}
	}
	if next != nil {
		data.Next = &neighbour{Date: next.ReadingDate, Value: next.Value}
		if out.Value.GreaterThan(next.Value) {
			data.Errors.Add("value", loc.T("readings.above_next", next.Value.String(), formutil.FormatDate(next.ReadingDate)))
		}
	}
	return out, nil
}

// meterOptions lists the meters u may record readings for.
func (h *Handler) meterOptions(ctx context.Context, u *auth.SessionUser) ([]meterOption, error) {
	ms, err := h.Meters.Find(ctx, orgscope.FromUser(u).PropertyFilter(bson.M{}, "property_id"),
		options.Find().SetSort(bson.D{{Key: "serial_number", Value: 1}}).SetLimit(1000))
	if err != nil {
		return nil, err
	}
	propIDs := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		propIDs = append(propIDs, m.PropertyID)
	}
	labels := map[primitive.ObjectID]string{}
	if len(propIDs) > 0 {
		props, err := h.Properties.Find(ctx, bson.M{"_id": bson.M{"$in": propIDs}})
		if err != nil {
			return nil, err
		}
		for _, p := range props {
			labels[p.ID] = p.Label()
		}
	}
	out := make([]meterOption, 0, len(ms))
	for _, m := range ms {
		out = append(out, meterOption{ID: m.ID.Hex(), Label: meterLabel(m, labels[m.PropertyID]), Zoned: m.SupportsZones})
	}
	return out, nil
}

// resolveMeter loads the chosen meter. The reading inherits its
// organization; a meter u may not record for is reported as invalid.
func (h *Handler) resolveMeter(ctx context.Context, r *http.Request, loc *i18n.Localizer, hex string, data *formData) (*models.Meter, error) {
	if data.Errors.Has("meter_id") {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		data.Errors.Add("meter_id", loc.T("validation.invalid"))
		return nil, nil
	}
	m, err := h.Meters.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		data.Errors.Add("meter_id", loc.T("validation.invalid"))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	res := gates.Resource{Kind: gates.Readings, OrganizationID: m.OrganizationID, PropertyID: m.PropertyID}
	if !gates.CanRequest(r, gates.Create, res) {
		data.Errors.Add("meter_id", loc.T("validation.invalid"))
		return nil, nil
	}
	return &m, nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data formData) {
	u, _ := auth.CurrentUser(r)
	titleKey := "readings.new_title"
	data.Action = "/readings"
	if data.IsEdit {
		titleKey = "readings.edit_title"
		data.Action = "/readings/" + data.ID + "/edit"
	}
	back := "/readings"
	if data.MeterID != "" {
		back = "/meters/" + data.MeterID
	}
	formutil.SetBase(&data.Base, r, titleKey, back)

	if len(data.Meters) == 0 {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()
		opts, err := h.meterOptions(ctx, u)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load meters failed", err, "", "/readings")
			return
		}
		data.Meters = opts
	}
	viewkit.RenderStatus(w, r, status, "readings_form", data)
}

// ServeNew renders the "New reading" form. ?meter= preselects one.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Readings}, "/readings") {
		return
	}
	h.render(w, r, http.StatusOK, formData{
		MeterID: r.URL.Query().Get("meter"),
		Date:    formutil.FormatDate(time.Now().UTC()),
	})
}

// recalculate refreshes the drafts affected by a change on the given
// dates and tells the user how many were updated.
func (h *Handler) recalculate(ctx context.Context, w http.ResponseWriter, r *http.Request, loc *i18n.Localizer, propertyID primitive.ObjectID, dates ...time.Time) {
	n := h.Billing.RecalculateAffectedDrafts(ctx, propertyID, dates...)
	if n > 0 {
		h.Log.Info("draft invoices recalculated", zap.String("property_id", propertyID.Hex()), zap.Int("count", n))
		h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("readings.drafts_recalculated", n))
	}
}

func enteredBy(u *auth.SessionUser) *primitive.ObjectID {
	if u == nil {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return nil
	}
	return &id
}

// HandleCreate records a reading.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/readings")
		return
	}
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Readings}, "/readings") {
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	in := readInput(r)
	data := in.form()
	data.Errors = formval.Validate(loc, in)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.resolveMeter(ctx, r, loc, in.MeterID, &data)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load meter failed", err, "", "/readings")
		return
	}
	var c checked
	if m != nil {
		c, err = h.check(ctx, loc, *m, in, primitive.NilObjectID, time.Now().UTC(), &data)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load neighbouring readings failed", err, "", "/readings")
			return
		}
		data.Unit = models.UnitFor(m.Type)
	}
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	rd, err := h.Readings.Create(ctx, models.MeterReading{
		OrganizationID: m.OrganizationID,
		MeterID:        m.ID,
		ReadingDate:    c.Date,
		Value:          c.Value,
		Zone:           c.Zone,
		EnteredBy:      enteredBy(u),
		Notes:          in.Notes,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create reading failed", err, "", "/readings")
		return
	}

	h.AuditLog.Billing(ctx, r, u, auditlog.Action{
		EventType:      audit.EventReadingCreated,
		OrganizationID: rd.OrganizationID,
		TargetID:       rd.ID,
		Details: map[string]string{
			"meter_id":     m.ID.Hex(),
			"reading_date": formutil.FormatDate(rd.ReadingDate),
			"value":        rd.Value.String(),
			"zone":         rd.ZoneName(),
		},
	})
	h.Log.Info("reading recorded", zap.String("reading_id", rd.ID.Hex()), zap.String("meter_id", m.ID.Hex()))

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("readings.created", m.SerialNumber))
	h.recalculate(ctx, w, r, loc, m.PropertyID, rd.ReadingDate)
	http.Redirect(w, r, "/meters/"+m.ID.Hex(), http.StatusSeeOther)
}

// load fetches the reading named by the URL and its meter, and checks
// action against the meter's property.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, ctx context.Context, action gates.Action) (models.MeterReading, models.Meter, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderNotFound(w, r, "/readings")
		return models.MeterReading{}, models.Meter{}, false
	}
	rd, err := h.Readings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/readings")
			return models.MeterReading{}, models.Meter{}, false
		}
		h.ErrLog.LogServerError(w, r, "load reading failed", err, "", "/readings")
		return models.MeterReading{}, models.Meter{}, false
	}
	m, err := h.Meters.GetByID(ctx, rd.MeterID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/readings")
			return models.MeterReading{}, models.Meter{}, false
		}
		h.ErrLog.LogServerError(w, r, "load reading meter failed", err, "", "/readings")
		return models.MeterReading{}, models.Meter{}, false
	}
	res := gates.Resource{Kind: gates.Readings, OrganizationID: rd.OrganizationID, PropertyID: m.PropertyID}
	if !gates.Authorize(w, r, action, res, "/readings") {
		return models.MeterReading{}, models.Meter{}, false
	}
	return rd, m, true
}

func editForm(rd models.MeterReading, m models.Meter) formData {
	return formData{
		ID:      rd.ID.Hex(),
		IsEdit:  true,
		Meters:  []meterOption{{ID: m.ID.Hex(), Label: m.SerialNumber, Zoned: m.SupportsZones}},
		Unit:    models.UnitFor(m.Type),
		MeterID: m.ID.Hex(),
	}
}

// ServeEdit renders the correction form.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rd, m, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}
	data := editForm(rd, m)
	data.Date = formutil.FormatDate(rd.ReadingDate)
	data.Zone = rd.ZoneName()
	data.Value = rd.Value.String()
	data.Notes = rd.Notes

	prev, next, err := h.Readings.Neighbours(ctx, m.ID, rd.Zone, rd.ReadingDate, rd.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load neighbouring readings failed", err, "", "/readings")
		return
	}
	if prev != nil {
		data.Previous = &neighbour{Date: prev.ReadingDate, Value: prev.Value}
	}
	if next != nil {
		data.Next = &neighbour{Date: next.ReadingDate, Value: next.Value}
	}
	h.render(w, r, http.StatusOK, data)
}

// HandleEdit corrects a reading. The meter cannot change.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/readings")
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rd, m, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}

	in := readInput(r)
	in.MeterID = m.ID.Hex()
	data := editForm(rd, m)
	data.Date, data.Zone, data.Value, data.Notes = in.Date, in.Zone, in.Value, in.Notes
	data.Errors = formval.Validate(loc, in)

	c, err := h.check(ctx, loc, m, in, rd.ID, time.Now().UTC(), &data)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load neighbouring readings failed", err, "", "/readings")
		return
	}
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	before := rd
	rd.ReadingDate = c.Date
	rd.Value = c.Value
	rd.Zone = c.Zone
	rd.Notes = in.Notes
	if err := h.Readings.Update(ctx, rd); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/readings")
			return
		}
		h.ErrLog.LogServerError(w, r, "update reading failed", err, "", "/readings")
		return
	}

	h.AuditLog.Billing(ctx, r, u, auditlog.Action{
		EventType:      audit.EventReadingUpdated,
		OrganizationID: rd.OrganizationID,
		TargetID:       rd.ID,
		Details: map[string]string{
			"meter_id":  m.ID.Hex(),
			"value_old": before.Value.String(),
			"value_new": rd.Value.String(),
			"date_old":  formutil.FormatDate(before.ReadingDate),
			"date_new":  formutil.FormatDate(rd.ReadingDate),
			"zone_old":  before.ZoneName(),
			"zone_new":  rd.ZoneName(),
		},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("readings.updated", m.SerialNumber))
	h.recalculate(ctx, w, r, loc, m.PropertyID, rd.ReadingDate, before.ReadingDate)
	http.Redirect(w, r, "/meters/"+m.ID.Hex(), http.StatusSeeOther)
}

// HandleDelete removes a reading.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rd, m, ok := h.load(w, r, ctx, gates.Delete)
	if !ok {
		return
	}
	if _, err := h.Readings.Delete(ctx, rd.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "delete reading failed", err, "", "/readings")
		return
	}

	h.AuditLog.Billing(ctx, r, u, auditlog.Action{
		EventType:      audit.EventReadingDeleted,
		OrganizationID: rd.OrganizationID,
		TargetID:       rd.ID,
		Details: map[string]string{
			"meter_id":     m.ID.Hex(),
			"reading_date": formutil.FormatDate(rd.ReadingDate),
			"value":        rd.Value.String(),
		},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("readings.deleted"))
	h.recalculate(ctx, w, r, loc, m.PropertyID, rd.ReadingDate)
	http.Redirect(w, r, "/meters/"+m.ID.Hex(), http.StatusSeeOther)
}
