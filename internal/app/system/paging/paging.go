// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the number of rows shown in paged lists.
const PageSize = 20

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// Parse reads ?page= from r. Missing or invalid values mean page 1.
func Parse(r *http.Request) Page {
	p := Page{Number: 1, Size: PageSize}
	if s := query.Get(r, "page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			p.Number = n
		}
	}
	return p
}

// Skip is the number of documents before this page.
func (p Page) Skip() int64 { return int64((p.Number - 1) * p.Size) }

// Limit is the page size as Mongo expects it.
func (p Page) Limit() int64 { return int64(p.Size) }

// ApplyToFind sets skip and limit on find.
func (p Page) ApplyToFind(find *options.FindOptions) *options.FindOptions {
	return find.SetSkip(p.Skip()).SetLimit(p.Limit())
}

// View is what the pagination component renders.
type View struct {
	Page    int
	Pages   int
	Total   int64
	From    int
	To      int
	PrevURL string
	NextURL string
}

// NewView computes page links for total rows, keeping r's other query
// parameters (search, filters, sort) intact.
func NewView(r *http.Request, p Page, total int64, shown int) View {
	pages := int((total + int64(p.Size) - 1) / int64(p.Size))
	if pages < 1 {
		pages = 1
	}
	v := View{Page: p.Number, Pages: pages, Total: total}
	if shown > 0 {
		v.From = int(p.Skip()) + 1
		v.To = int(p.Skip()) + shown
	}
	if p.Number > 1 {
		v.PrevURL = pageURL(r, p.Number-1)
	}
	if p.Number < pages {
		v.NextURL = pageURL(r, p.Number+1)
	}
	return v
}

func pageURL(r *http.Request, n int) string {
	q := url.Values{}
	for k, vs := range r.URL.Query() {
		q[k] = vs
	}
	q.Set("page", strconv.Itoa(n))
	return r.URL.Path + "?" + q.Encode()
}
