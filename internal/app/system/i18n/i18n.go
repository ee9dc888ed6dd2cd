// internal/app/system/i18n/i18n.go

// Package i18n loads the UI message catalogs and negotiates the request
// locale. Catalogs are embedded YAML files, one per locale, whose nested
// keys are flattened with dots ("nav.dashboard").
package i18n

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/money"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// Default is the locale used when nothing else matches.
const Default = "en"

// Supported lists the UI locales in switcher order.
var Supported = []string{"en", "lt", "ru"}

// Names are the locale switcher labels, in each language's own script.
var Names = map[string]string{
	"en": "English",
	"lt": "Lietuvių",
	"ru": "Русский",
}

var dateLayouts = map[string]string{
	"en": "2006-01-02",
	"lt": "2006-01-02",
	"ru": "02.01.2006",
}

// IsSupported reports whether locale has a catalog.
func IsSupported(locale string) bool {
	for _, l := range Supported {
		if l == locale {
			return true
		}
	}
	return false
}

// Bundle holds every locale's messages.
type Bundle struct {
	def      string
	cat      *catalog.Builder
	matcher  language.Matcher
	tags     map[string]language.Tag
	messages map[string]map[string]string
	missing  map[string][]string
}

// Load reads the embedded catalogs. def must be a supported locale.
func Load(def string) (*Bundle, error) {
	if def == "" {
		def = Default
	}
	if !IsSupported(def) {
		return nil, fmt.Errorf("unsupported default locale %q", def)
	}

	b := &Bundle{
		def:      def,
		cat:      catalog.NewBuilder(catalog.Fallback(language.MustParse(def))),
		tags:     make(map[string]language.Tag, len(Supported)),
		messages: make(map[string]map[string]string, len(Supported)),
		missing:  make(map[string][]string),
	}

	// The matcher's first tag is its fallback, so the default goes first.
	ordered := append([]string{def}, without(Supported, def)...)
	tags := make([]language.Tag, 0, len(ordered))
	for _, loc := range ordered {
		tag := language.MustParse(loc)
		b.tags[loc] = tag
		tags = append(tags, tag)

		raw, err := localesFS.ReadFile(path.Join("locales", loc+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("read %s catalog: %w", loc, err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("parse %s catalog: %w", loc, err)
		}
		flat := map[string]string{}
		flatten("", tree, flat)
		b.messages[loc] = flat
	}
	b.matcher = language.NewMatcher(tags)

	// Keys absent from a locale are served in the default language.
	base := b.messages[def]
	for _, loc := range Supported {
		msgs := b.messages[loc]
		for key, text := range base {
			if _, ok := msgs[key]; !ok {
				msgs[key] = text
				b.missing[loc] = append(b.missing[loc], key)
			}
		}
		sort.Strings(b.missing[loc])
		for key, text := range msgs {
			if err := b.cat.SetString(b.tags[loc], key, text); err != nil {
				return nil, fmt.Errorf("catalog %s/%s: %w", loc, key, err)
			}
		}
	}
	return b, nil
}

// MustLoad is Load for tests and package-level wiring.
func MustLoad(def string) *Bundle {
	b, err := Load(def)
	if err != nil {
		panic(err)
	}
	return b
}

// Default returns the bundle's fallback locale.
func (b *Bundle) Default() string { return b.def }

// Missing returns the keys a locale borrows from the default catalog.
func (b *Bundle) Missing(locale string) []string { return b.missing[locale] }

// Has reports whether key exists in the default catalog.
func (b *Bundle) Has(key string) bool {
	_, ok := b.messages[b.def][key]
	return ok
}

// Negotiate picks the best supported locale for an Accept-Language header.
func (b *Bundle) Negotiate(acceptLanguage string) string {
	if strings.TrimSpace(acceptLanguage) == "" {
		return b.def
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return b.def
	}
	_, idx, conf := b.matcher.Match(prefs...)
	if conf == language.No {
		return b.def
	}
	ordered := append([]string{b.def}, without(Supported, b.def)...)
	return ordered[idx]
}

// Localizer formats messages, money and dates for one locale.
type Localizer struct {
	Locale string
	bundle *Bundle
	p      *message.Printer
}

// For returns a Localizer; unsupported locales get the default.
func (b *Bundle) For(locale string) *Localizer {
	if !IsSupported(locale) {
		locale = b.def
	}
	return &Localizer{
		Locale: locale,
		bundle: b,
		p:      message.NewPrinter(b.tags[locale], message.Catalog(b.cat)),
	}
}

// T translates key, formatting args with the message's printf verbs.
// Unknown keys are returned as-is so gaps are visible on the page.
func (l *Localizer) T(key string, args ...any) string {
	if _, ok := l.bundle.messages[l.Locale][key]; !ok {
		return key
	}
	return l.p.Sprintf(key, args...)
}

// Money formats an amount in euros with two decimals.
func (l *Localizer) Money(d decimal.Decimal) string {
	return money.Format(d, l.Locale)
}

// Number formats a decimal with the locale's separators.
func (l *Localizer) Number(d decimal.Decimal, places int32) string {
	return money.FormatNumber(d, places, l.Locale)
}

// DateLayout is the locale's date layout.
func (l *Localizer) DateLayout() string {
	if layout, ok := dateLayouts[l.Locale]; ok {
		return layout
	}
	return "2006-01-02"
}

// Date formats t with the locale's date layout. Zero times render empty.
func (l *Localizer) Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(l.DateLayout())
}

// DateTime formats t with date and minutes.
func (l *Localizer) DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(l.DateLayout() + " 15:04")
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

func without(list []string, drop string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}
