package users

import (
	"context"
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgscope"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/search"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// listFilter scopes the query to what u may see and applies ?q= and ?role=.
func listFilter(u *auth.SessionUser, q, role string) bson.M {
	f := orgscope.FromUser(u).Filter(bson.M{})
	for k, v := range search.People(q, "full_name_ci", "email") {
		f[k] = v
	}
	if models.IsValidRole(role) {
		f["role"] = role
	}
	return f
}

// rolesFor lists the roles u may assign.
func rolesFor(u *auth.SessionUser) []string {
	if u.IsSuperAdmin() {
		return models.Roles
	}
	return []string{models.RoleAdmin, models.RoleManager, models.RoleTenant}
}

// ServeList handles GET /users.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	q := query.Search(r, "q")
	role := query.Get(r, "role")
	page := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	filter := listFilter(u, q, role)
	total, err := h.Users.Count(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count users failed", err, "", "/dashboard")
		return
	}
	find := page.ApplyToFind(options.Find().SetSort(search.PeopleSort(q, "full_name_ci", "email")))
	users, err := h.Users.Find(ctx, filter, find)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "find users failed", err, "", "/dashboard")
		return
	}

	var names map[primitive.ObjectID]string
	if u.IsSuperAdmin() {
		var orgIDs []primitive.ObjectID
		for _, usr := range users {
			if usr.OrganizationID != nil {
				orgIDs = append(orgIDs, *usr.OrganizationID)
			}
		}
		if names, err = h.Organizations.NamesByID(ctx, orgIDs); err != nil {
			h.ErrLog.LogServerError(w, r, "load organization names failed", err, "", "/dashboard")
			return
		}
	}

	data := listData{
		BaseVM:    viewdata.New(r, "users.title", "/dashboard"),
		Q:         q,
		Role:      role,
		Roles:     rolesFor(u),
		ShowOrg:   u.IsSuperAdmin(),
		Paging:    paging.NewView(r, page, total, len(users)),
	}
	data.CanCreate = !data.ReadOnly && gates.CanRequest(r, gates.Create, gates.Resource{Kind: gates.Users})
	for _, usr := range users {
		res := gates.Resource{Kind: gates.Users, Status: usr.Status}
		item := listItem{
			ID:        usr.ID.Hex(),
			Name:      usr.FullName,
			Email:     usr.Email,
			Role:      usr.Role,
			Status:    usr.Status,
			LastLogin: usr.LastLoginAt,
		}
		if usr.OrganizationID != nil {
			res.OrganizationID = *usr.OrganizationID
			item.OrgName = names[*usr.OrganizationID]
		}
		editable := u.IsSuperAdmin() || usr.Role != models.RoleSuperAdmin
		item.CanUpdate = editable && gates.CanRequest(r, gates.Update, res)
		item.CanToggle = editable && usr.ID.Hex() != u.ID && gates.CanRequest(r, gates.Update, res)
		data.Items = append(data.Items, item)
	}

	viewkit.Render(w, r, "users_list", data)
}
