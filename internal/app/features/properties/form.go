package properties

import (
	"context"
	"errors"
	"net/http"

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
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var maxArea = decimal.NewFromInt(10000)

type propertyInput struct {
	Address    string `form:"address" validate:"required,max=255"`
	UnitNumber string `form:"unit_number" validate:"max=20"`
	Type       string `form:"type" validate:"required,oneof=apartment house"`
	AreaSqm    string `form:"area_sqm" validate:"required"`
}

func readInput(r *http.Request) propertyInput {
	return propertyInput{
		Address:    formutil.Value(r, "address"),
		UnitNumber: formutil.Value(r, "unit_number"),
		Type:       formutil.Value(r, "type"),
		AreaSqm:    formutil.Value(r, "area_sqm"),
	}
}

func (in propertyInput) fill(data *formData) {
	data.Address = in.Address
	data.UnitNumber = in.UnitNumber
	data.Type = in.Type
	data.AreaSqm = in.AreaSqm
}

// validate runs the field rules and returns the parsed area.
func validate(loc *i18n.Localizer, in propertyInput, data *formData) decimal.Decimal {
	data.Errors = formval.Validate(loc, in)
	if data.Errors.Has("area_sqm") {
		return decimal.Zero
	}
	area, ok := formutil.ParseDecimal(in.AreaSqm)
	if !ok {
		data.Errors.Add("area_sqm", loc.T("validation.numeric"))
		return decimal.Zero
	}
	if !area.IsPositive() || area.GreaterThan(maxArea) {
		data.Errors.Add("area_sqm", loc.T("properties.area_range", 10000))
	}
	return area
}

// resolveBuilding checks that the chosen building belongs to orgID. An
// empty choice means a detached house or unit.
func (h *Handler) resolveBuilding(ctx context.Context, loc *i18n.Localizer, hex string, orgID primitive.ObjectID, data *formData) (*primitive.ObjectID, error) {
	if hex == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		data.Errors.Add("building_id", loc.T("validation.invalid"))
		return nil, nil
	}
	b, err := h.Buildings.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && b.OrganizationID != orgID) {
		data.Errors.Add("building_id", loc.T("validation.invalid"))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data formData) {
	u, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	titleKey := "properties.new_title"
	data.Action = "/properties"
	if data.IsEdit {
		titleKey = "properties.edit_title"
		data.Action = "/properties/" + data.ID + "/edit"
	}
	formutil.SetBase(&data.Base, r, titleKey, "/properties")
	data.Types = propertyTypes

	data.PickOrg = u.IsSuperAdmin() && !data.IsEdit
	if data.PickOrg {
		orgs, err := orgutil.ActiveOptions(ctx, h.DB)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load organizations failed", err, "", "/properties")
			return
		}
		data.Orgs = orgs
	}
	orgHex := data.OrgID
	if !u.IsSuperAdmin() {
		orgHex = u.OrganizationID
	}
	if orgID, err := primitive.ObjectIDFromHex(orgHex); err == nil {
		opts, _, err := h.buildingOptions(ctx, bson.M{"organization_id": orgID})
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load buildings failed", err, "", "/properties")
			return
		}
		data.Buildings = opts
	}
	viewkit.RenderStatus(w, r, status, "properties_form", data)
}

// ServeNew renders the "New property" form. ?building= preselects a
// building.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Properties}, "/properties") {
		return
	}
	h.render(w, r, http.StatusOK, formData{
		Type:       models.PropertyApartment,
		OrgID:      r.URL.Query().Get("org"),
		BuildingID: r.URL.Query().Get("building"),
	})
}

// HandleCreate creates a property within the subscription's property limit.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/properties")
		return
	}
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Properties}, "/properties") {
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	in := readInput(r)
	data := formData{OrgID: formutil.Value(r, "organization_id"), BuildingID: formutil.Value(r, "building_id")}
	in.fill(&data)
	area := validate(loc, in, &data)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	org, err := orgutil.TargetOrg(ctx, h.DB, u, data.OrgID)
	if err != nil {
		if !orgutil.IsExpectedOrgError(err) {
			h.ErrLog.LogServerError(w, r, "resolve organization failed", err, "", "/properties")
			return
		}
		data.Errors.Add("organization_id", loc.T("validation.required"))
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}
	buildingID, err := h.resolveBuilding(ctx, loc, data.BuildingID, org.ID, &data)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve building failed", err, "", "/properties")
		return
	}
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	limit, ok, err := orgutil.WithinPlanLimit(ctx, h.DB, org.ID, orgutil.LimitProperties)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "check property limit failed", err, "", "/properties")
		return
	}
	if !ok {
		data.SetError(loc.T("properties.limit_reached", limit))
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	p, err := h.Properties.Create(ctx, models.Property{
		OrganizationID: org.ID,
		BuildingID:     buildingID,
		Address:        in.Address,
		UnitNumber:     in.UnitNumber,
		Type:           in.Type,
		AreaSqm:        area,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create property failed", err, "", "/properties")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventPropertyCreated,
		OrganizationID: org.ID,
		TargetID:       p.ID,
		Details:        map[string]string{"address": p.Label(), "type": p.Type, "area_sqm": p.AreaSqm.String()},
	})
	h.Log.Info("property created", zap.String("property_id", p.ID.Hex()), zap.String("org_id", org.ID.Hex()))

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("properties.created", p.Label()))
	http.Redirect(w, r, "/properties/"+p.ID.Hex(), http.StatusSeeOther)
}

// load resolves {id} and authorizes action on it.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, ctx context.Context, action gates.Action) (models.Property, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderNotFound(w, r, "/properties")
		return models.Property{}, false
	}
	p, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/properties")
			return models.Property{}, false
		}
		h.ErrLog.LogServerError(w, r, "load property failed", err, "", "/properties")
		return models.Property{}, false
	}
	res := gates.Resource{Kind: gates.Properties, OrganizationID: p.OrganizationID, PropertyID: p.ID}
	if !gates.Authorize(w, r, action, res, "/dashboard") {
		return models.Property{}, false
	}
	return p, true
}

func hexOrEmpty(id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}

// ServeEdit renders the edit form.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, formData{
		ID:         p.ID.Hex(),
		IsEdit:     true,
		OrgID:      p.OrganizationID.Hex(),
		Address:    p.Address,
		UnitNumber: p.UnitNumber,
		Type:       p.Type,
		AreaSqm:    p.AreaSqm.StringFixed(2),
		BuildingID: hexOrEmpty(p.BuildingID),
	})
}

// HandleEdit saves a property.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/properties")
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}

	in := readInput(r)
	data := formData{ID: p.ID.Hex(), IsEdit: true, OrgID: p.OrganizationID.Hex(), BuildingID: formutil.Value(r, "building_id")}
	in.fill(&data)
	area := validate(loc, in, &data)
	buildingID, err := h.resolveBuilding(ctx, loc, data.BuildingID, p.OrganizationID, &data)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve building failed", err, "", "/properties")
		return
	}
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	oldArea := p.AreaSqm
	p.Address = in.Address
	p.UnitNumber = in.UnitNumber
	p.Type = in.Type
	p.AreaSqm = area
	p.BuildingID = buildingID
	if err := h.Properties.Update(ctx, p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/properties")
			return
		}
		h.ErrLog.LogServerError(w, r, "update property failed", err, "", "/properties")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventPropertyUpdated,
		OrganizationID: p.OrganizationID,
		TargetID:       p.ID,
		Details: map[string]string{
			"address":      p.Label(),
			"area_sqm_old": oldArea.String(),
			"area_sqm_new": area.String(),
			"building_id":  hexOrEmpty(buildingID),
		},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("properties.updated", p.Label()))
	http.Redirect(w, r, "/properties/"+p.ID.Hex(), http.StatusSeeOther)
}
