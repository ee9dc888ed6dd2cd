// internal/app/system/formval/formval.go

// Package formval validates form structs and collects per-field messages.
// Templates show the first message of a field via ErrorBag.First.
package formval

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/tariff"
	"github.com/go-playground/validator/v10"
)

// ErrorBag maps a form field name to its messages in the order found.
type ErrorBag map[string][]string

// First returns the first message for field, or "".
func (b ErrorBag) First(field string) string {
	if msgs := b[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Has reports whether field has a message.
func (b ErrorBag) Has(field string) bool { return len(b[field]) > 0 }

// Any reports whether the bag holds any message.
func (b ErrorBag) Any() bool { return len(b) > 0 }

// Add appends a message for field.
func (b ErrorBag) Add(field, msg string) { b[field] = append(b[field], msg) }

var (
	once sync.Once
	v    *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their form name so they line up with inputs.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return v
}

// Validate checks s's validate tags and returns localized messages.
func Validate(l *i18n.Localizer, s any) ErrorBag {
	bag := ErrorBag{}
	err := engine().Struct(s)
	if err == nil {
		return bag
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		bag.Add("_form", l.T("validation.invalid"))
		return bag
	}
	for _, fe := range verrs {
		bag.Add(fe.Field(), message(l, fe))
	}
	return bag
}

// AddTariffErrors merges tariff field errors (message keys) into b.
func (b ErrorBag) AddTariffErrors(l *i18n.Localizer, fe tariff.FieldErrors) {
	for field, key := range fe {
		b.Add(field, l.T(key))
	}
}

func message(l *i18n.Localizer, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return l.T("validation.required")
	case "email":
		return l.T("validation.email")
	case "min":
		if fe.Kind() == reflect.String {
			return l.T("validation.min_length", fe.Param())
		}
		return l.T("validation.min", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return l.T("validation.max_length", fe.Param())
		}
		return l.T("validation.max", fe.Param())
	case "oneof":
		return l.T("validation.oneof")
	case "gte":
		return l.T("validation.min", fe.Param())
	case "lte":
		return l.T("validation.max", fe.Param())
	case "gtfield":
		return l.T("validation.after_field")
	case "numeric", "number":
		return l.T("validation.numeric")
	case "hexadecimal", "mongodb":
		return l.T("validation.invalid")
	default:
		return l.T("validation.invalid")
	}
}
