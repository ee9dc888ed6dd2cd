package viewkit_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/resources"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invoiceTable = `{{define "test_invoice_table"}}{{if .Rows}}` +
	`{{template "data_table_open" (dict "ID" "invoices" "Columns" (list "Number" "Status" "Total"))}}` +
	`{{range .Rows}}<tr data-row="{{.Number}}"><td>{{.Number}}</td>` +
	`<td>{{template "status_badge" (dict "Kind" "invoice" "Status" .Status)}}</td>` +
	`<td>{{money .Total}}</td><td>{{date .Issued}}</td></tr>{{end}}` +
	`{{template "data_table_close"}}` +
	`{{else}}{{template "empty_state" (dict "Message" "No invoices yet" "ActionHref" "/invoices/generate" "ActionLabel" "Generate")}}{{end}}{{end}}`

type row struct {
	Number string
	Status string
	Total  decimal.Decimal
	Issued time.Time
}

func newEngine(t *testing.T) *viewkit.Engine {
	t.Helper()
	resources.LoadSharedTemplates()
	viewkit.Register(viewkit.Set{
		Name:     "viewkit_test",
		FS:       fstest.MapFS{"table.gohtml": {Data: []byte(invoiceTable)}},
		Patterns: []string{"*.gohtml"},
	})
	e := viewkit.New(i18n.MustLoad("en"), nil)
	require.NoError(t, e.Boot())
	return e
}

func render(t *testing.T, e *viewkit.Engine, locale string, rows []row) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, e.Execute(&buf, locale, "test_invoice_table", map[string]any{"Rows": rows}))
	return buf.String()
}

func sampleRows() []row {
	issued := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	return []row{
		{Number: "INV-202403-0002", Status: "paid", Total: decimal.RequireFromString("1234.5"), Issued: issued},
		{Number: "INV-202403-0001", Status: "draft", Total: decimal.RequireFromString("0.85"), Issued: issued},
	}
}

func TestDataTable_RowsInOrder(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		locale string
		want   []string
	}{
		{"en", []string{
			`<table class="data-table">`,
			`<th>Number</th><th>Status</th><th>Total</th>`,
			`<span class="badge badge-green" data-status="paid">Paid</span>`,
			`<span class="badge badge-gray" data-status="draft">Draft</span>`,
			`€1,234.50`,
			`€0.85`,
			`2024-03-05`,
		}},
		{"lt", []string{
			`<span class="badge badge-green" data-status="paid">Apmokėta</span>`,
			`<span class="badge badge-gray" data-status="draft">Juodraštis</span>`,
			`1 234,50 €`,
			`0,85 €`,
		}},
		{"ru", []string{
			`05.03.2024`,
			`1 234,50 €`,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			out := render(t, e, tt.locale, sampleRows())
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			assert.NotContains(t, out, "data-empty-state")

			first := strings.Index(out, `data-row="INV-202403-0002"`)
			second := strings.Index(out, `data-row="INV-202403-0001"`)
			require.True(t, first >= 0 && second >= 0)
			assert.Less(t, first, second, "rows must keep the given order")
		})
	}
}

func TestDataTable_EmptyState(t *testing.T) {
	e := newEngine(t)

	for _, locale := range []string{"en", "lt"} {
		out := render(t, e, locale, nil)
		assert.Contains(t, out, "data-empty-state")
		assert.Contains(t, out, "No invoices yet")
		assert.Contains(t, out, `href="/invoices/generate"`)
		assert.NotContains(t, out, "<table")
	}
}

func TestStatusBadge_UnknownStatus(t *testing.T) {
	e := newEngine(t)
	out := render(t, e, "en", []row{{Number: "INV-1", Status: "on_hold", Total: decimal.Zero}})
	assert.Contains(t, out, `<span class="badge badge-gray" data-status="on_hold">On Hold</span>`)
	assert.Contains(t, out, `€0.00`)
}

func TestRenderStatus_UsesRequestLocale(t *testing.T) {
	e := newEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	req = req.WithContext(i18n.WithLocalizer(req.Context(), i18n.MustLoad("en").For("lt")))
	rec := httptest.NewRecorder()
	e.RenderStatus(rec, req, http.StatusUnprocessableEntity, "test_invoice_table", map[string]any{"Rows": sampleRows()})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Juodraštis")
}

func TestRenderStatus_UnknownTemplate(t *testing.T) {
	e := newEngine(t)
	rec := httptest.NewRecorder()
	e.RenderStatus(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "no_such_template", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
