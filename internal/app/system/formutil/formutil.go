// Package formutil provides helpers for form re-rendering with validation errors.
//
// When a form submission fails validation, the form is re-rendered with
// the user's previously entered values, the per-field messages from
// formval and all the context data needed for the form (dropdowns, etc.).
//
// Example usage:
//
//	type meterForm struct {
//		formutil.Base
//		Serial string
//		Types  []option
//	}
//
//	data := meterForm{Serial: in.Serial}
//	formutil.SetBase(&data.Base, r, "meters.new_title", "/meters")
//	data.Errors = formval.Validate(i18n.Current(r.Context()), in)
//	viewkit.RenderStatus(w, r, http.StatusUnprocessableEntity, "meters_form", data)
package formutil

import (
	"net/http"
	"strings"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/formval"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/limits"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/money"
	"github.com/shopspring/decimal"
)

// DateLayout is the layout of <input type="date"> values.
const DateLayout = "2006-01-02"

// Base contains common fields for form pages that can be embedded in form data structs.
type Base struct {
	viewdata.BaseVM

	// Errors holds per-field messages; templates show the first one.
	Errors formval.ErrorBag
	// Error is a form-level message shown above the fields.
	Error string
}

// SetBase populates the layout fields. titleKey is a message key.
func SetBase(b *Base, r *http.Request, titleKey, backDefault string) {
	b.BaseVM = viewdata.New(r, titleKey, backDefault)
	if b.Errors == nil {
		b.Errors = formval.ErrorBag{}
	}
}

// SetError sets the form-level message.
func (b *Base) SetError(msg string) {
	b.Error = msg
}

// HasErrors reports whether anything needs the user's attention.
func (b Base) HasErrors() bool {
	return b.Error != "" || b.Errors.Any()
}

// ParseForm parses a urlencoded body of at most max bytes (limits.MaxFormSize
// when max <= 0).
func ParseForm(w http.ResponseWriter, r *http.Request, max int64) error {
	if max <= 0 {
		max = limits.MaxFormSize
	}
	r.Body = http.MaxBytesReader(w, r.Body, max)
	return r.ParseForm()
}

// Value returns the trimmed form value of key.
func Value(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

// ParseDate parses a YYYY-MM-DD value as midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// ParseOptionalDate is ParseDate for optional inputs: an empty value gives
// nil and ok.
func ParseOptionalDate(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	t, ok := ParseDate(s)
	if !ok {
		return nil, false
	}
	return &t, true
}

// ParseDecimal parses a number typed with either decimal separator.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	d, err := money.Parse(s)
	return d, err == nil
}

// FormatDate renders t for a date input; zero gives "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

// FormatOptionalDate is FormatDate for optional dates.
func FormatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatDate(*t)
}
