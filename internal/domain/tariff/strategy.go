// internal/domain/tariff/strategy.go
package tariff

import (
	"strconv"
	"strings"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/shopspring/decimal"
)

// Strategy prices consumption for one tariff type.
type Strategy interface {
	Supports(tariffType string) bool
	Calculate(cfg models.TariffConfiguration, consumption decimal.Decimal, at time.Time) decimal.Decimal
}

// FlatRate charges a single rate for every unit.
type FlatRate struct{}

func (FlatRate) Supports(tariffType string) bool { return tariffType == models.TariffFlat }

func (FlatRate) Calculate(cfg models.TariffConfiguration, consumption decimal.Decimal, _ time.Time) decimal.Decimal {
	return consumption.Mul(cfg.Rate)
}

// TimeOfUse charges the rate of the zone that applies at the given moment.
type TimeOfUse struct{}

func (TimeOfUse) Supports(tariffType string) bool { return tariffType == models.TariffTimeOfUse }

func (s TimeOfUse) Calculate(cfg models.TariffConfiguration, consumption decimal.Decimal, at time.Time) decimal.Decimal {
	zone, ok := ZoneAt(cfg, at)
	if !ok {
		return decimal.Zero
	}
	return consumption.Mul(zone.Rate)
}

// weekendZone maps weekend logic to the zone id it selects.
var weekendZone = map[string]string{
	models.WeekendNightRate:   "night",
	models.WeekendDayRate:     "day",
	models.WeekendWeekendRate: "weekend",
}

// ZoneAt selects the zone of a time-of-use configuration that applies at t.
// On Saturday and Sunday the weekend logic picks its named zone when that
// zone exists. Otherwise the first zone whose [start, end) band contains
// the time of day wins, and when none does the first zone is used.
// ok is false only when the configuration has no zones.
func ZoneAt(cfg models.TariffConfiguration, at time.Time) (models.TariffZone, bool) {
	if len(cfg.Zones) == 0 {
		return models.TariffZone{}, false
	}

	if IsWeekend(at) && cfg.WeekendLogic != "" {
		if id, ok := weekendZone[cfg.WeekendLogic]; ok {
			for _, z := range cfg.Zones {
				if z.ID == id {
					return z, true
				}
			}
		}
	}

	minute := at.Hour()*60 + at.Minute()
	for _, z := range cfg.Zones {
		start, err1 := ParseClock(z.Start)
		end, err2 := ParseClock(z.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if inBand(minute, start, end) {
			return z, true
		}
	}

	return cfg.Zones[0], true
}

// inBand reports whether minute falls in [start, end), wrapping at midnight
// when end <= start.
func inBand(minute, start, end int) bool {
	if start == end {
		return true
	}
	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ParseClock converts "HH:MM" to minutes after midnight.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) != 2 || len(m) != 2 {
		return 0, ErrBadClock
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, ErrBadClock
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, ErrBadClock
	}
	return hh*60 + mm, nil
}
