package viewkit

import (
	"errors"
	"html/template"
	"strings"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/money"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Badge is a status label with its colour class.
type Badge struct {
	Label string
	Class string
}

var badgeClasses = map[string]string{
	"draft":     "badge-gray",
	"finalized": "badge-blue",
	"paid":      "badge-green",
	"active":    "badge-green",
	"expired":   "badge-red",
	"missing":   "badge-red",
	"suspended": "badge-amber",
	"cancelled": "badge-gray",
	"disabled":  "badge-gray",
	"inactive":  "badge-gray",
	"overdue":   "badge-red",
}

func funcsFor(l *i18n.Localizer) template.FuncMap {
	titler := cases.Title(language.Make(l.Locale))
	return template.FuncMap{
		"t":      l.T,
		"locale": func() string { return l.Locale },
		"money": func(v any) string {
			d, ok := toDecimal(v)
			if !ok {
				return ""
			}
			return l.Money(d)
		},
		"number": func(v any, places int) string {
			d, ok := toDecimal(v)
			if !ok {
				return ""
			}
			return l.Number(d, int32(places))
		},
		"date": func(v any) string {
			t, ok := toTime(v)
			if !ok {
				return ""
			}
			return l.Date(t)
		},
		"datetime": func(v any) string {
			t, ok := toTime(v)
			if !ok {
				return ""
			}
			return l.DateTime(t)
		},
		"badge": func(kind, status string) Badge {
			key := "status." + kind + "." + status
			label := l.T(key)
			if label == key {
				label = titler.String(strings.ReplaceAll(status, "_", " "))
			}
			class, ok := badgeClasses[status]
			if !ok {
				class = "badge-gray"
			}
			return Badge{Label: label, Class: class}
		},
		"title": func(s string) string { return titler.String(strings.ReplaceAll(s, "_", " ")) },
		"dict":  dict,
		"list":  func(v ...any) []any { return v },
		"add":   func(a, b int) int { return a + b },
		"when": func(cond bool, v string) string {
			if cond {
				return v
			}
			return ""
		},
	}
}

func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict needs key/value pairs")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, errors.New("dict keys must be strings")
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero, false
		}
		return *x, true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case float64:
		return decimal.NewFromFloat(x), true
	case string:
		d, err := money.Parse(x)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil || x.IsZero() {
			return time.Time{}, false
		}
		return *x, true
	default:
		return time.Time{}, false
	}
}
