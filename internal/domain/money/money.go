// internal/domain/money/money.go
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the only billing currency the platform issues invoices in.
const Currency = "EUR"

// Round rounds half away from zero to the given number of places.
func Round(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// Cents rounds an amount to two places.
func Cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Parse reads a user-entered amount. Both "1234.5" and "1234,5" are accepted;
// a single comma is treated as the decimal separator.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return decimal.NewFromString(s)
}

// MustParse is Parse for constants and fixtures.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

type separators struct {
	decimal  string
	group    string
	symbolAt string // "prefix" or "suffix"
}

var localeSeparators = map[string]separators{
	"en": {decimal: ".", group: ",", symbolAt: "prefix"},
	"lt": {decimal: ",", group: " ", symbolAt: "suffix"},
	"ru": {decimal: ",", group: " ", symbolAt: "suffix"},
}

func sepsFor(locale string) separators {
	if s, ok := localeSeparators[locale]; ok {
		return s
	}
	return localeSeparators["en"]
}

// FormatNumber renders d with exactly `places` fraction digits using the
// locale's separators, without a currency sign.
func FormatNumber(d decimal.Decimal, places int32, locale string) string {
	seps := sepsFor(locale)
	raw := d.StringFixed(places)

	neg := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	intPart, frac, _ := strings.Cut(raw, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(seps.group)
		}
		b.WriteRune(r)
	}
	out := b.String()
	if places > 0 {
		out += seps.decimal + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// Format renders an amount with exactly two decimals and the euro sign in
// the locale's position: "€1,234.50" (en) or "1 234,50 €" (lt, ru).
func Format(d decimal.Decimal, locale string) string {
	num := FormatNumber(d, 2, locale)
	if sepsFor(locale).symbolAt == "suffix" {
		return num + " €"
	}
	if strings.HasPrefix(num, "-") {
		return "-€" + strings.TrimPrefix(num, "-")
	}
	return "€" + num
}

// Sum adds all amounts.
func Sum(ds ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, d := range ds {
		total = total.Add(d)
	}
	return total
}
