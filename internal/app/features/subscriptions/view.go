package subscriptions

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
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	plans       = []string{models.PlanBasic, models.PlanProfessional, models.PlanEnterprise}
	renewMonths = []int{1, 3, 6, 12}
)

// load resolves {id} and checks the action against it. It renders the
// error page itself and returns false when the request cannot continue.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, ctx context.Context, action gates.Action) (models.Subscription, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderNotFound(w, r, "/subscriptions")
		return models.Subscription{}, false
	}
	sub, err := h.Subscriptions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, r, "/subscriptions")
			return sub, false
		}
		h.ErrLog.LogServerError(w, r, "load subscription failed", err, "", "/subscriptions")
		return sub, false
	}
	res := gates.Resource{Kind: gates.Subscriptions, OrganizationID: sub.OrganizationID, Status: sub.Status}
	if !gates.Authorize(w, r, action, res, "/dashboard") {
		return sub, false
	}
	return sub, true
}

// ServeView shows one subscription with renew and plan forms for
// superadmins.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sub, ok := h.load(w, r, ctx, gates.View)
	if !ok {
		return
	}
	org, err := h.Organizations.GetByID(ctx, sub.OrganizationID)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.LogServerError(w, r, "load organization failed", err, "", "/subscriptions")
		return
	}

	now := h.now()
	res := gates.Resource{Kind: gates.Subscriptions, OrganizationID: sub.OrganizationID}
	data := viewData{
		BaseVM:        viewdata.New(r, "subscriptions.view_title", "/subscriptions"),
		Sub:           sub,
		OrgName:       org.Name,
		OrgID:         sub.OrganizationID.Hex(),
		DaysLeft:      sub.DaysUntilExpiry(now),
		Expired:       sub.IsExpired(now),
		Plans:         plans,
		Months:        renewMonths,
		CanRenew:      gates.CanRequest(r, gates.Renew, res),
		CanChangePlan: gates.CanRequest(r, gates.Update, res),
	}
	viewkit.Render(w, r, "subscriptions_view", data)
}

// HandleRenew extends the subscription by the posted number of months.
func (h *Handler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/subscriptions")
		return
	}
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sub, ok := h.load(w, r, ctx, gates.Renew)
	if !ok {
		return
	}
	back := "/subscriptions/" + sub.ID.Hex()

	months, err := strconv.Atoi(formutil.Value(r, "months"))
	if err != nil || months < 1 || months > 36 {
		h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("subscriptions.invalid_months"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	renewed, err := h.Subscriptions.Renew(ctx, sub.ID, months, h.now().UTC())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "renew subscription failed", err, "", back)
		return
	}
	if h.Checker != nil {
		h.Checker.Invalidate(sub.OrganizationID)
	}

	actor, _ := auth.CurrentUser(r)
	h.AuditLog.Admin(ctx, r, actor, auditlog.Action{
		EventType:      audit.EventSubscriptionRenewed,
		OrganizationID: sub.OrganizationID,
		TargetID:       sub.ID,
		Details: map[string]string{
			"months":     strconv.Itoa(months),
			"expires_at": renewed.ExpiresAt.Format(formutil.DateLayout),
		},
	})
	h.Log.Info("subscription renewed", zap.String("subscription_id", sub.ID.Hex()), zap.Int("months", months))

	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("subscriptions.renewed", loc.Date(renewed.ExpiresAt)))
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// HandleChangePlan switches the plan and resets limits to its quotas.
func (h *Handler) HandleChangePlan(w http.ResponseWriter, r *http.Request) {
	if err := formutil.ParseForm(w, r, 0); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "errors.invalid_form", "/subscriptions")
		return
	}
	loc := i18n.Current(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sub, ok := h.load(w, r, ctx, gates.Update)
	if !ok {
		return
	}
	back := "/subscriptions/" + sub.ID.Hex()

	plan := formutil.Value(r, "plan")
	if _, known := models.PlanLimits[plan]; !known {
		h.SessionMgr.AddFlash(w, r, auth.FlashError, loc.T("subscriptions.invalid_plan"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	if plan == sub.PlanType {
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	if err := h.Subscriptions.ChangePlan(ctx, sub.ID, plan); err != nil {
		h.ErrLog.LogServerError(w, r, "change plan failed", err, "", back)
		return
	}
	if h.Checker != nil {
		h.Checker.Invalidate(sub.OrganizationID)
	}

	actor, _ := auth.CurrentUser(r)
	h.AuditLog.Admin(ctx, r, actor, auditlog.Action{
		EventType:      audit.EventPlanChanged,
		OrganizationID: sub.OrganizationID,
		TargetID:       sub.ID,
		Details:        map[string]string{"from": sub.PlanType, "to": plan},
	})
	h.SessionMgr.AddFlash(w, r, auth.FlashSuccess, loc.T("subscriptions.plan_changed", loc.T("plans."+plan)))
	http.Redirect(w, r, back, http.StatusSeeOther)
}
