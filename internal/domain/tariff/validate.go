// internal/domain/tariff/validate.go
package tariff

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/money"
	"github.com/shopspring/decimal"
)

// ErrInvalidConfiguration matches any FieldErrors via errors.Is.
var ErrInvalidConfiguration = errors.New("invalid tariff configuration")

var (
	zoneIDPattern   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	remoteIDPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_.]+$`)
	maxRate         = decimal.RequireFromString("999999.9999")
)

// FieldErrors maps a form field to a message key. Keys are looked up in the
// "validation" catalog by the rendering layer.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "invalid tariff: " + strings.Join(parts, "; ")
}

// Is lets callers test with errors.Is(err, ErrInvalidConfiguration).
func (fe FieldErrors) Is(target error) bool { return target == ErrInvalidConfiguration }

func (fe FieldErrors) add(field, key string) {
	if _, exists := fe[field]; !exists {
		fe[field] = key
	}
}

// ValidateConfiguration checks a pricing rule. It returns nil or FieldErrors.
func ValidateConfiguration(cfg models.TariffConfiguration) error {
	fe := FieldErrors{}
	validateConfiguration(cfg, fe)
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func validateConfiguration(cfg models.TariffConfiguration, fe FieldErrors) {
	if cfg.Currency != "" && cfg.Currency != money.Currency {
		fe.add("configuration.currency", "validation.tariff.currency")
	}

	switch cfg.Type {
	case "":
		fe.add("configuration.type", "validation.required")
	case models.TariffFlat:
		if cfg.Rate.IsNegative() || cfg.Rate.GreaterThan(maxRate) {
			fe.add("configuration.rate", "validation.tariff.rate_range")
		}
	case models.TariffTimeOfUse:
		validateZones(cfg, fe)
	default:
		fe.add("configuration.type", "validation.tariff.type")
	}

	if cfg.FixedFee != nil && (cfg.FixedFee.IsNegative() || cfg.FixedFee.GreaterThan(maxRate)) {
		fe.add("configuration.fixed_fee", "validation.tariff.rate_range")
	}
}

func validateZones(cfg models.TariffConfiguration, fe FieldErrors) {
	if len(cfg.Zones) == 0 {
		fe.add("configuration.zones", "validation.tariff.zones_required")
		return
	}

	seen := make(map[string]bool, len(cfg.Zones))
	for i, z := range cfg.Zones {
		prefix := fmt.Sprintf("configuration.zones.%d.", i)

		switch {
		case z.ID == "":
			fe.add(prefix+"id", "validation.required")
		case len(z.ID) > 50 || !zoneIDPattern.MatchString(z.ID):
			fe.add(prefix+"id", "validation.tariff.zone_id")
		case seen[z.ID]:
			fe.add(prefix+"id", "validation.tariff.zone_duplicate")
		}
		seen[z.ID] = true

		if _, err := ParseClock(z.Start); err != nil {
			fe.add(prefix+"start", "validation.tariff.clock")
		}
		if _, err := ParseClock(z.End); err != nil {
			fe.add(prefix+"end", "validation.tariff.clock")
		}
		if z.Rate.IsNegative() || z.Rate.GreaterThan(maxRate) {
			fe.add(prefix+"rate", "validation.tariff.rate_range")
		}
	}

	switch cfg.WeekendLogic {
	case "", models.WeekendNightRate, models.WeekendDayRate, models.WeekendWeekendRate:
	default:
		fe.add("configuration.weekend_logic", "validation.tariff.weekend_logic")
	}
}

// Validate checks a whole tariff record, including its configuration.
func Validate(t models.Tariff) error {
	fe := FieldErrors{}

	name := strings.TrimSpace(t.Name)
	switch {
	case name == "":
		fe.add("name", "validation.required")
	case len(name) > 255:
		fe.add("name", "validation.tariff.name_length")
	}

	if t.RemoteID != "" && (len(t.RemoteID) > 255 || !remoteIDPattern.MatchString(t.RemoteID)) {
		fe.add("remote_id", "validation.tariff.remote_id")
	}

	if t.ActiveFrom.IsZero() {
		fe.add("active_from", "validation.required")
	}
	if t.ActiveUntil != nil && !t.ActiveUntil.After(t.ActiveFrom) {
		fe.add("active_until", "validation.tariff.until_after_from")
	}

	validateConfiguration(t.Configuration, fe)

	if len(fe) == 0 {
		return nil
	}
	return fe
}

// CoversFullDay reports whether the zones of a time-of-use configuration
// together cover all 1440 minutes of a day.
func CoversFullDay(cfg models.TariffConfiguration) bool {
	var covered [24 * 60]bool
	for _, z := range cfg.Zones {
		start, err1 := ParseClock(z.Start)
		end, err2 := ParseClock(z.End)
		if err1 != nil || err2 != nil {
			continue
		}
		for m := 0; m < len(covered); m++ {
			if inBand(m, start, end) {
				covered[m] = true
			}
		}
	}
	for _, c := range covered {
		if !c {
			return false
		}
	}
	return true
}

// Sample returns a timestamp on the given weekday at hh:mm, useful for
// previewing zone prices.
func Sample(weekday time.Weekday, hh, mm int) time.Time {
	// 2024-01-01 was a Monday.
	base := time.Date(2024, 1, 1, hh, mm, 0, 0, time.UTC)
	offset := (int(weekday) + 6) % 7
	return base.AddDate(0, 0, offset)
}
