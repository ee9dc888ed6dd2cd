package buildings

import (
	"context"
	"errors"
	"net/http"
	"strconv"

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
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type buildingInput struct {
	Name       string `form:"name" validate:"required,max=255"`
	Address    string `form:"address" validate:"required,max=255"`
	Apartments string `form:"total_apartments" validate:"required,numeric"`
}

func readInput(r *http.Request) buildingInput {
	return buildingInput{
		Name:       formutil.Value(r, "name"),
		Address:    formutil.Value(r, "address"),
		Apartments: formutil.Value(r, "total_apartments"),
	}
}

// validate runs the field rules and the apartment range, returning the
// parsed apartment count.
func validate(loc *i18n.Localizer, in buildingInput, data *formData) int {
	data.Errors = formval.Validate(loc, in)
	if data.Errors.Has("total_apartments") {
		return 0
	}
	n, err := strconv.Atoi(in.Apartments)
	if err != nil || n < 1 || n > models.MaxApartments {
		data.Errors.Add("total_apartments", loc.T("buildings.apartments_range", models.MaxApartments))
	}
	return n
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data formData) {
	u, _ := auth.CurrentUser(r)
	titleKey := "buildings.new_title"
	data.Action = "/buildings"
	if data.IsEdit {
		titleKey = "buildings.edit_title"
		data.Action = "/buildings/" + data.ID + "/edit"
	}
	formutil.SetBase(&data.Base, r, titleKey, "/buildings")

	data.PickOrg = u.IsSuperAdmin() && !data.IsEdit
	if data.PickOrg {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()
		orgs, err := orgutil.ActiveOptions(ctx, h.DB)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load organizations failed", err, "", "/buildings")
			return
		}
		data.Orgs = orgs
	}
	viewkit.RenderStatus(w, r, status, "buildings_form", data)
}

// ServeNew renders the "New building" form.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Buildings}, "/buildings") {
		return
	}
	h.render(w, r, http.StatusOK, formData{OrgID: r.URL.Query().Get("org")})
}

// HandleCreate creates a building.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/buildings")
		return
	}
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Buildings}, "/buildings") {
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	in := readInput(r)
	data := formData{Name: in.Name, Address: in.Address, Apartments: in.Apartments, OrgID: formutil.Value(r, "organization_id")}
	apartments := validate(loc, in, &data)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	org, err := orgutil.TargetOrg(ctx, h.DB, u, data.OrgID)
	if err != nil {
		if !orgutil.IsExpectedOrgError(err) {
			h.ErrLog.LogServerError(w, r, "resolve organization failed", err, "", "/buildings")
			return
		}
		data.Errors.Add("organization_id", loc.T("validation.required"))
	}
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	b, err := h.Buildings.Create(ctx, models.Building{
		OrganizationID:  org.ID,
		Name:            in.Name,
		Address:         in.Address,
		TotalApartments: apartments,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create building failed", err, "", "/buildings")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventBuildingCreated,
		OrganizationID: org.ID,
		TargetID:       b.ID,
		Details:        map[string]string{"name": b.Name, "apartments": strconv.Itoa(b.TotalApartments)},
	})
	h.Log.Info("building created", zap.String("building_id", b.ID.Hex()), zap.String("org_id", org.ID.Hex()))

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("buildings.created", b.Name))
	http.Redirect(w, r, "/buildings/"+b.ID.Hex(), http.StatusSeeOther)
}

// load resolves {id} and authorizes action on it.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, ctx context.Context, action gates.Action) (models.Building, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderNotFound(w, r, "/buildings")
		return models.Building{}, false
	}
	b, err := h.Buildings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/buildings")
			return models.Building{}, false
		}
		h.ErrLog.LogServerError(w, r, "load building failed", err, "", "/buildings")
		return models.Building{}, false
	}
	if !gates.Authorize(w, r, action, gates.Resource{Kind: gates.Buildings, OrganizationID: b.OrganizationID}, "/buildings") {
		return models.Building{}, false
	}
	return b, true
}

// ServeEdit renders the edit form.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	b, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, formData{
		ID:         b.ID.Hex(),
		IsEdit:     true,
		Name:       b.Name,
		Address:    b.Address,
		Apartments: strconv.Itoa(b.TotalApartments),
	})
}

// HandleEdit saves a building. Changing the apartment count drops the
// stored circulation average and the cached fees.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/buildings")
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	b, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}

	in := readInput(r)
	data := formData{ID: b.ID.Hex(), IsEdit: true, Name: in.Name, Address: in.Address, Apartments: in.Apartments}
	apartments := validate(loc, in, &data)
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	before := b.TotalApartments
	b.Name = in.Name
	b.Address = in.Address
	b.TotalApartments = apartments
	if err := h.Buildings.Update(ctx, b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/buildings")
			return
		}
		h.ErrLog.LogServerError(w, r, "update building failed", err, "", "/buildings")
		return
	}
	if before != apartments {
		h.Circulation.ClearBuilding(b.ID)
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventBuildingUpdated,
		OrganizationID: b.OrganizationID,
		TargetID:       b.ID,
		Details: map[string]string{
			"name":           b.Name,
			"apartments_old": strconv.Itoa(before),
			"apartments_new": strconv.Itoa(apartments),
		},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("buildings.updated", b.Name))
	http.Redirect(w, r, "/buildings/"+b.ID.Hex(), http.StatusSeeOther)
}
