package providers

import (
	"context"
	"errors"
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
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type providerInput struct {
	Name    string `form:"name" validate:"required,max=255"`
	Service string `form:"service_type" validate:"required,oneof=electricity water heating"`
	Contact string `form:"contact_info" validate:"max=500"`
}

func readInput(r *http.Request) providerInput {
	return providerInput{
		Name:    formutil.Value(r, "name"),
		Service: formutil.Value(r, "service_type"),
		Contact: strings.TrimSpace(r.PostFormValue("contact_info")),
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data formData) {
	u, _ := auth.CurrentUser(r)
	titleKey := "providers.new_title"
	data.Action = "/providers"
	if data.IsEdit {
		titleKey = "providers.edit_title"
		data.Action = "/providers/" + data.ID + "/edit"
	}
	formutil.SetBase(&data.Base, r, titleKey, "/providers")
	data.Services = models.ServiceTypes

	data.PickOrg = u.IsSuperAdmin() && !data.IsEdit
	if data.PickOrg {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()
		orgs, err := orgutil.ActiveOptions(ctx, h.DB)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load organizations failed", err, "", "/providers")
			return
		}
		data.Orgs = orgs
	}
	viewkit.RenderStatus(w, r, status, "providers_form", data)
}

// ServeNew renders the "New provider" form.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Providers}, "/providers") {
		return
	}
	h.render(w, r, http.StatusOK, formData{})
}

// HandleCreate creates a provider.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/providers")
		return
	}
	if !gates.Authorize(w, r, gates.Create, gates.Resource{Kind: gates.Providers}, "/providers") {
		return
	}
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())

	in := readInput(r)
	data := formData{Name: in.Name, Service: in.Service, Contact: in.Contact, OrgID: formutil.Value(r, "organization_id")}
	data.Errors = formval.Validate(loc, in)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	org, err := orgutil.TargetOrg(ctx, h.DB, u, data.OrgID)
	if err != nil {
		if !orgutil.IsExpectedOrgError(err) {
			h.ErrLog.LogServerError(w, r, "resolve organization failed", err, "", "/providers")
			return
		}
		data.Errors.Add("organization_id", loc.T("validation.required"))
	}
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	p, err := h.Providers.Create(ctx, models.Provider{
		OrganizationID: org.ID,
		Name:           in.Name,
		ServiceType:    in.Service,
		Contact:        in.Contact,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create provider failed", err, "", "/providers")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventProviderCreated,
		OrganizationID: org.ID,
		TargetID:       p.ID,
		Details:        map[string]string{"name": p.Name, "service_type": p.ServiceType},
	})
	h.Log.Info("provider created", zap.String("provider_id", p.ID.Hex()), zap.String("org_id", org.ID.Hex()))

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("providers.created", p.Name))
	http.Redirect(w, r, "/providers/"+p.ID.Hex(), http.StatusSeeOther)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, ctx context.Context, action gates.Action) (models.Provider, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderNotFound(w, r, "/providers")
		return models.Provider{}, false
	}
	p, err := h.Providers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/providers")
			return models.Provider{}, false
		}
		h.ErrLog.LogServerError(w, r, "load provider failed", err, "", "/providers")
		return models.Provider{}, false
	}
	if !gates.Authorize(w, r, action, gates.Resource{Kind: gates.Providers, OrganizationID: p.OrganizationID}, "/providers") {
		return models.Provider{}, false
	}
	return p, true
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
		ID:      p.ID.Hex(),
		IsEdit:  true,
		Name:    p.Name,
		Service: p.ServiceType,
		Contact: p.Contact,
	})
}

// HandleEdit saves a provider.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/providers")
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
	data := formData{ID: p.ID.Hex(), IsEdit: true, Name: in.Name, Service: in.Service, Contact: in.Contact}
	data.Errors = formval.Validate(loc, in)
	if data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	before := p.ServiceType
	p.Name = in.Name
	p.ServiceType = in.Service
	p.Contact = in.Contact
	if err := h.Providers.Update(ctx, p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/providers")
			return
		}
		h.ErrLog.LogServerError(w, r, "update provider failed", err, "", "/providers")
		return
	}

	h.AuditLog.Admin(ctx, r, u, auditlog.Action{
		EventType:      audit.EventProviderUpdated,
		OrganizationID: p.OrganizationID,
		TargetID:       p.ID,
		Details:        map[string]string{"name": p.Name, "service_type_old": before, "service_type_new": p.ServiceType},
	})

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("providers.updated", p.Name))
	http.Redirect(w, r, "/providers/"+p.ID.Hex(), http.StatusSeeOther)
}
