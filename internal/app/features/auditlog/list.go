// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formutil"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgscope"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// queryFilter builds the store filter from the request. Admins are pinned
// to their organization; superadmins may pick one with ?org.
func queryFilter(r *http.Request, scope orgscope.Scope, page paging.Page) audit.QueryFilter {
	f := audit.QueryFilter{Limit: page.Limit(), Offset: page.Skip()}

	if c := query.Get(r, "category"); slices.Contains(audit.Categories, c) {
		f.Category = c
	}
	if e := query.Get(r, "event_type"); slices.Contains(eventTypesForCategory(f.Category), e) {
		f.EventType = e
	}
	if t, ok := formutil.ParseDate(query.Get(r, "start_date")); ok {
		f.StartTime = &t
	}
	if t, ok := formutil.ParseDate(query.Get(r, "end_date")); ok {
		end := t.Add(24*time.Hour - time.Nanosecond)
		f.EndTime = &end
	}

	if !scope.All {
		org := scope.OrgID
		f.OrganizationID = &org
	} else if oid, err := primitive.ObjectIDFromHex(query.Get(r, "org")); err == nil {
		f.OrganizationID = &oid
	}
	return f
}

// names resolves actor and organization names for events. Lookup failures
// are logged and the raw ids shown instead.
func (h *Handler) names(ctx context.Context, events []audit.Event) (users, orgs map[primitive.ObjectID]string) {
	users = map[primitive.ObjectID]string{}
	orgs = map[primitive.ObjectID]string{}

	var userIDs, orgIDs []primitive.ObjectID
	for _, e := range events {
		if e.ActorID != nil && !slices.Contains(userIDs, *e.ActorID) {
			userIDs = append(userIDs, *e.ActorID)
		}
		if e.OrganizationID != nil && !slices.Contains(orgIDs, *e.OrganizationID) {
			orgIDs = append(orgIDs, *e.OrganizationID)
		}
	}

	if len(userIDs) > 0 {
		us, err := h.Users.Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}}, options.Find().SetProjection(bson.M{"full_name": 1}))
		if err != nil {
			h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		}
		for _, u := range us {
			users[u.ID] = u.FullName
		}
	}
	if len(orgIDs) > 0 {
		names, err := h.Organizations.NamesByID(ctx, orgIDs)
		if err != nil {
			h.Log.Warn("failed to fetch org names for audit log", zap.Error(err))
		}
		for id, n := range names {
			orgs[id] = n
		}
	}
	return users, orgs
}

func nameOr(names map[primitive.ObjectID]string, id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	if n, ok := names[*id]; ok && n != "" {
		return n
	}
	return id.Hex()
}

// ServeList handles GET /audit - displays the audit log list with filtering.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	scope := orgscope.FromUser(u)
	if !gates.Authorize(w, r, gates.View, gates.Resource{Kind: gates.AuditLog, OrganizationID: scope.OrgID}, "/dashboard") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	page := paging.Parse(r)
	page.Size = pageSize
	filter := queryFilter(r, scope, page)

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events failed", err, "", "/dashboard")
		return
	}
	total, err := h.Events.Count(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count audit events failed", err, "", "/dashboard")
		return
	}
	users, orgs := h.names(ctx, events)

	data := listData{
		BaseVM:     viewdata.New(r, "auditlog.title", "/dashboard"),
		Category:   filter.Category,
		EventType:  filter.EventType,
		StartDate:  query.Get(r, "start_date"),
		EndDate:    query.Get(r, "end_date"),
		Categories: audit.Categories,
		EventTypes: eventTypesForCategory(filter.Category),
		Paging:     paging.NewView(r, page, total, len(events)),
	}
	if scope.All {
		if filter.OrganizationID != nil {
			data.OrgID = filter.OrganizationID.Hex()
		}
		all, err := h.Organizations.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load organizations failed", err, "", "/dashboard")
			return
		}
		for _, o := range all {
			data.Orgs = append(data.Orgs, option{ID: o.ID.Hex(), Label: o.Name})
		}
	}

	for _, e := range events {
		item := listItem{
			ID:        e.ID.Hex(),
			Timestamp: e.CreatedAt,
			Category:  e.Category,
			EventType: e.EventType,
			ActorName: nameOr(users, e.ActorID),
			OrgName:   nameOr(orgs, e.OrganizationID),
			IP:        e.IP,
			Success:   e.Success,
			Reason:    e.FailureReason,
			Details:   e.Details,
		}
		if e.TargetID != nil {
			item.TargetID = e.TargetID.Hex()
		}
		data.Items = append(data.Items, item)
	}

	viewkit.Render(w, r, "auditlog_list", data)
}
