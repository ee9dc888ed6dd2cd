package tariffs

import (
	"context"
	"net/http"
	"net/url"
	"time"

	tariffstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/tariffs"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/gates"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/orgscope"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// sortOrder is the parsed ?sort=&dir= pair. Unknown fields fall back to
// newest first.
type sortOrder struct {
	Key  string
	Desc bool
}

func parseSort(r *http.Request) sortOrder {
	key := query.Get(r, "sort")
	if _, ok := tariffstore.SortFields[key]; !ok {
		return sortOrder{Key: "active_from", Desc: true}
	}
	return sortOrder{Key: key, Desc: query.Get(r, "dir") == "desc"}
}

func (s sortOrder) bson() bson.D {
	dir := 1
	if s.Desc {
		dir = -1
	}
	return bson.D{{Key: tariffstore.SortFields[s.Key], Value: dir}, {Key: "_id", Value: dir}}
}

// columns builds header links. Clicking the active column flips direction;
// any other column starts ascending. Paging restarts at 1.
func columns(r *http.Request, loc *i18n.Localizer, s sortOrder) []column {
	keys := []struct{ key, label string }{
		{"name", "columns.name"},
		{"type", "columns.type"},
		{"active_from", "columns.active_from"},
		{"active_until", "columns.active_until"},
	}
	out := make([]column, 0, len(keys)+1)
	for _, k := range keys {
		q := url.Values{}
		for name, vs := range r.URL.Query() {
			q[name] = vs
		}
		q.Del("page")
		q.Set("sort", k.key)
		dir := "asc"
		if k.key == s.Key && !s.Desc {
			dir = "desc"
		}
		q.Set("dir", dir)
		out = append(out, column{
			Label:  loc.T(k.label),
			URL:    r.URL.Path + "?" + q.Encode(),
			Active: k.key == s.Key,
			Desc:   s.Desc,
		})
	}
	return out
}

// ServeList handles GET /tariffs.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	loc := i18n.Current(r.Context())
	page := paging.Parse(r)
	order := parseSort(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	provs, names, err := h.providerOptions(ctx, u)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load providers failed", err, "", "/dashboard")
		return
	}

	filter := orgscope.FromUser(u).Filter(bson.M{})
	providerID := query.Get(r, "provider")
	if oid, err := primitive.ObjectIDFromHex(providerID); err == nil {
		filter["provider_id"] = oid
	} else {
		providerID = ""
	}

	total, err := h.Tariffs.Count(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count tariffs failed", err, "", "/dashboard")
		return
	}
	ts, err := h.Tariffs.Find(ctx, filter, page.ApplyToFind(options.Find().SetSort(order.bson())))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "find tariffs failed", err, "", "/dashboard")
		return
	}

	data := listData{
		BaseVM:     viewdata.New(r, "tariffs.title", "/dashboard"),
		ProviderID: providerID,
		Providers:  provs,
		Columns:    columns(r, loc, order),
		Paging:     paging.NewView(r, page, total, len(ts)),
	}
	data.CanCreate = !data.ReadOnly && gates.CanRequest(r, gates.Create, gates.Resource{Kind: gates.Tariffs})
	now := time.Now().UTC()
	for _, t := range ts {
		item := listItem{
			ID:          t.ID.Hex(),
			Name:        t.Name,
			Type:        t.Configuration.Type,
			ActiveFrom:  t.ActiveFrom,
			ActiveUntil: t.ActiveUntil,
			Current:     t.IsActiveOn(now),
			CanUpdate:   !data.ReadOnly && gates.CanRequest(r, gates.Update, gates.Resource{Kind: gates.Tariffs, OrganizationID: t.OrganizationID}),
		}
		if t.ProviderID != nil {
			item.Provider = names[*t.ProviderID]
		}
		data.Items = append(data.Items, item)
	}

	viewkit.Render(w, r, "tariffs_list", data)
}

// providerOptions lists the providers visible to u with a name lookup.
func (h *Handler) providerOptions(ctx context.Context, u *auth.SessionUser) ([]option, map[primitive.ObjectID]string, error) {
	ps, err := h.Providers.Find(ctx, orgscope.FromUser(u).Filter(bson.M{}),
		options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}).SetLimit(500))
	if err != nil {
		return nil, nil, err
	}
	opts := make([]option, 0, len(ps))
	names := make(map[primitive.ObjectID]string, len(ps))
	for _, p := range ps {
		opts = append(opts, option{ID: p.ID.Hex(), Label: p.Name})
		names[p.ID] = p.Name
	}
	return opts, names, nil
}
