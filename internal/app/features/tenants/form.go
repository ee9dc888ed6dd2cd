package tenants

import (
	"context"
	"errors"
	"net/http"
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
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgutil"
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

type tenantInput struct {
	Name       string `form:"name" validate:"required,max=255"`
	Email      string `form:"email" validate:"required,email,max=254"`
	Phone      string `form:"phone" validate:"max=50"`
	LeaseStart string `form:"lease_start" validate:"required"`
}

func readInput(r *http.Request) (tenantInput, string) {
	return tenantInput{
		Name:       formutil.Value(r, "name"),
		Email:      formutil.Value(r, "email"),
		Phone:      formutil.Value(r, "phone"),
		LeaseStart: formutil.Value(r, "lease_start"),
	}, formutil.Value(r, "lease_end")
}

func (in tenantInput) fill(data *formData, leaseEnd string) {
	data.Name = in.Name
	data.Email = in.Email
	data.Phone = in.Phone
	data.LeaseStart = in.LeaseStart
	data.LeaseEnd = leaseEnd
}

// validate checks the fields and the lease dates. The end, when given,
// must not precede the start.
func validate(loc *i18n.Localizer, in tenantInput, leaseEnd string, data *formData) (time.Time, *time.Time) {
	data.Errors = formval.Validate(loc, in)
	var start time.Time
	if !data.Errors.Has("lease_start") {
		var ok bool
		if start, ok = formutil.ParseDate(in.LeaseStart); !ok {
			data.Errors.Add("lease_start", loc.T("validation.date"))
		}
	}
	end, ok := formutil.ParseOptionalDate(leaseEnd)
	if !ok {
		data.Errors.Add("lease_end", loc.T("validation.date"))
		return start, nil
	}
	if end != nil && !start.IsZero() && end.Before(start) {
		data.Errors.Add("lease_end", loc.T("tenants.lease_end_before_start"))
	}
	return start, end
}

// propertyOptions lists the properties u may place an occupant in.
func (h *Handler) propertyOptions(ctx context.Context, u *auth.SessionUser) ([]option, error) {
	props, err := h.Properties.Find(ctx, orgscope.FromUser(u).Filter(bson.M{}),
		options.Find().SetSort(bson.D{{Key: "address_ci", Value: 1}, {Key: "unit_number", Value: 1}}).SetLimit(1000))
	if err != nil {
		return nil, err
	}
	out := make([]option, 0, len(props))
	for _, p := range props {
		out = append(out, option{ID: p.ID.Hex(), Name: p.Label()})
	}
	return out, nil
}

// resolveProperty loads the chosen property and checks u may place an
// occupant there. The occupant inherits the property's organization.
func (h *Handler) resolveProperty(ctx context.Context, r *http.Request, loc *i18n.Localizer, hex string, data *formData) (*models.Property, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		data.Errors.Add("property_id", loc.T("validation.required"))
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
	if !gates.CanRequest(r, gates.Create, gates.Resource{Kind: gates.Tenants, OrganizationID: p.OrganizationID}) {
		data.Errors.Add("property_id", loc.T("validation.invalid"))
		return nil, nil
	}
	return &p, nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data formData) {
	u, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	titleKey := "tenants.new_title"
	data.Action = "/tenants"
	if data.IsEdit {
		titleKey = "tenants.edit_title"
		data.Action = "/tenants/" + data.ID + "/edit"
	}
	formutil.SetBase(&data.Base, r, titleKey, "/tenants")
	if !data.IsEdit {
		opts, err := h.propertyOptions(ctx, u)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load properties failed", err, "", "/tenants")
			return
		}
		data.Properties = opts
	}
	viewkit.RenderStatus(w, r, status, "tenants_form", data)
}

// ServeNew renders the "New tenant" form. ?property= preselects the unit.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Tenants}, "/tenants") {
		return
	}
	h.render(w, r, http.StatusOK, formData{
		PropertyID: r.URL.Query().Get("property"),
		LeaseStart: formutil.FormatDate(time.Now().UTC()),
	})
}

// HandleCreate adds an occupant within the subscription's tenant limit.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/tenants")
		return
	}
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Tenants}, "/tenants") {
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	in, leaseEnd := readInput(r)
	data := formData{PropertyID: formutil.Value(r, "property_id")}
	in.fill(&data, leaseEnd)
	start, end := validate(loc, in, leaseEnd, &data)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.resolveProperty(ctx, r, loc, data.PropertyID, &data)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve property failed", err, "", "/tenants")
		return
	}
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	limit, ok, err := orgutil.WithinPlanLimit(ctx, h.DB, p.OrganizationID, orgutil.LimitTenants)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "check tenant limit failed", err, "", "/tenants")
		return
	}
	if !ok {
		data.SetError(loc.T("tenants.limit_reached", limit))
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	t, err := h.Tenants.Create(ctx, models.Tenant{
		OrganizationID: p.OrganizationID,
		PropertyID:     p.ID,
		Name:           in.Name,
		Email:          in.Email,
		Phone:          in.Phone,
		LeaseStart:     start,
		LeaseEnd:       end,
		Active:         true,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create tenant failed", err, "", "/tenants")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventTenantCreated,
		OrganizationID: t.OrganizationID,
		TargetID:       t.ID,
		Details:        map[string]string{"name": t.Name, "property_id": p.ID.Hex()},
	})
	h.Log.Info("tenant created", zap.String("tenant_id", t.ID.Hex()), zap.String("property_id", p.ID.Hex()))

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("tenants.created", t.Name))
	http.Redirect(w, r, "/tenants/"+t.ID.Hex(), http.StatusSeeOther)
}

// load resolves {id} and authorizes action on it.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, ctx context.Context, action gates.Action) (models.Tenant, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderNotFound(w, r, "/tenants")
		return models.Tenant{}, false
	}
	t, err := h.Tenants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/tenants")
			return models.Tenant{}, false
		}
		h.ErrLog.LogServerError(w, r, "load tenant failed", err, "", "/tenants")
		return models.Tenant{}, false
	}
	res := gates.Resource{Kind: gates.Tenants, OrganizationID: t.OrganizationID, TenantID: t.ID, PropertyID: t.PropertyID}
	if !gates.Authorize(w, r, action, res, "/tenants") {
		return models.Tenant{}, false
	}
	return t, true
}

// ServeEdit renders the edit form. The property is changed with reassign.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, formData{
		ID:         t.ID.Hex(),
		IsEdit:     true,
		Name:       t.Name,
		Email:      t.Email,
		Phone:      t.Phone,
		PropertyID: t.PropertyID.Hex(),
		LeaseStart: formutil.FormatDate(t.LeaseStart),
		LeaseEnd:   formutil.FormatOptionalDate(t.LeaseEnd),
	})
}

// HandleEdit saves the occupant's contact and lease details.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/tenants")
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}

	in, leaseEnd := readInput(r)
	data := formData{ID: t.ID.Hex(), IsEdit: true, PropertyID: t.PropertyID.Hex()}
	in.fill(&data, leaseEnd)
	start, end := validate(loc, in, leaseEnd, &data)
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	t.Name = in.Name
	t.Email = in.Email
	t.Phone = in.Phone
	t.LeaseStart = start
	t.LeaseEnd = end
	if err := h.Tenants.Update(ctx, t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/tenants")
			return
		}
		h.ErrLog.LogServerError(w, r, "update tenant failed", err, "", "/tenants")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventTenantUpdated,
		OrganizationID: t.OrganizationID,
		TargetID:       t.ID,
		Details:        map[string]string{"name": t.Name, "email": t.Email},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("tenants.updated", t.Name))
	http.Redirect(w, r, "/tenants/"+t.ID.Hex(), http.StatusSeeOther)
}
