// Package circulation computes the hot-water circulation fee ("gyvatukas")
// charged to apartments in a building. Summer months are priced from the
// building size; heating-season months reuse the stored summer average
// scaled by a seasonal factor.
package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrInvalidBuilding is returned for buildings whose apartment count cannot
// be priced.
var ErrInvalidBuilding = errors.New("building apartment count out of range")

// Config tunes the calculation. Zero values are replaced by defaults.
type Config struct {
	Rate             decimal.Decimal
	SummerMonths     []time.Month
	PeakWinterMonths []time.Month
	ShoulderMonths   []time.Month
	PeakFactor       decimal.Decimal
	ShoulderFactor   decimal.Decimal
	WinterFactor     decimal.Decimal
	LargeBuilding    int
	SmallBuilding    int
	LargeFactor      decimal.Decimal
	SmallFactor      decimal.Decimal
	MaxApartments    int
	AverageValidity  time.Duration
	CacheTTL         time.Duration
}

// DefaultConfig returns the standard Vilnius circulation parameters.
func DefaultConfig() Config {
	return Config{
		Rate:             decimal.NewFromInt(15),
		SummerMonths:     []time.Month{time.May, time.June, time.July, time.August, time.September},
		PeakWinterMonths: []time.Month{time.December, time.January, time.February},
		ShoulderMonths:   []time.Month{time.October, time.November, time.March, time.April},
		PeakFactor:       decimal.RequireFromString("1.3"),
		ShoulderFactor:   decimal.RequireFromString("1.15"),
		WinterFactor:     decimal.RequireFromString("1.2"),
		LargeBuilding:    50,
		SmallBuilding:    10,
		LargeFactor:      decimal.RequireFromString("0.95"),
		SmallFactor:      decimal.RequireFromString("1.1"),
		MaxApartments:    1000,
		AverageValidity:  365 * 24 * time.Hour,
		CacheTTL:         24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Rate.IsZero() {
		c.Rate = d.Rate
	}
	if len(c.SummerMonths) == 0 {
		c.SummerMonths = d.SummerMonths
	}
	if len(c.PeakWinterMonths) == 0 {
		c.PeakWinterMonths = d.PeakWinterMonths
	}
	if len(c.ShoulderMonths) == 0 {
		c.ShoulderMonths = d.ShoulderMonths
	}
	if c.PeakFactor.IsZero() {
		c.PeakFactor = d.PeakFactor
	}
	if c.ShoulderFactor.IsZero() {
		c.ShoulderFactor = d.ShoulderFactor
	}
	if c.WinterFactor.IsZero() {
		c.WinterFactor = d.WinterFactor
	}
	if c.LargeBuilding == 0 {
		c.LargeBuilding = d.LargeBuilding
	}
	if c.SmallBuilding == 0 {
		c.SmallBuilding = d.SmallBuilding
	}
	if c.LargeFactor.IsZero() {
		c.LargeFactor = d.LargeFactor
	}
	if c.SmallFactor.IsZero() {
		c.SmallFactor = d.SmallFactor
	}
	if c.MaxApartments == 0 {
		c.MaxApartments = d.MaxApartments
	}
	if c.AverageValidity == 0 {
		c.AverageValidity = d.AverageValidity
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = d.CacheTTL
	}
	return c
}

// AverageSaver persists a recomputed summer average on the building.
type AverageSaver interface {
	SaveCirculationAverage(ctx context.Context, buildingID primitive.ObjectID, avg decimal.Decimal, at time.Time) error
}

// Cache holds computed monthly values.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Del(key string)
}

// Calculator computes circulation fees.
type Calculator struct {
	cfg   Config
	saver AverageSaver
	cache Cache
	log   *zap.Logger
	now   func() time.Time
}

// New builds a Calculator. saver and cache may be nil.
func New(cfg Config, saver AverageSaver, cache Cache, log *zap.Logger) *Calculator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Calculator{cfg: cfg.withDefaults(), saver: saver, cache: cache, log: log, now: time.Now}
}

// WithClock overrides the time source.
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	c.now = now
	return c
}

// IsSummer reports whether month is outside the heating season.
func (c *Calculator) IsSummer(month time.Time) bool {
	return contains(c.cfg.SummerMonths, month.Month())
}

// Calculate returns the building's circulation amount for the month that
// contains `month`.
func (c *Calculator) Calculate(ctx context.Context, b *models.Building, month time.Time) (decimal.Decimal, error) {
	kind := "winter"
	if c.IsSummer(month) {
		kind = "summer"
	}
	key := cacheKey(kind, b.ID, month)

	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			if d, ok := v.(decimal.Decimal); ok {
				return d, nil
			}
		}
	}

	var (
		v   decimal.Decimal
		err error
	)
	if kind == "summer" {
		v, err = c.summer(b)
	} else {
		v, err = c.winter(ctx, b, month)
	}
	if err != nil {
		return decimal.Zero, err
	}

	if c.cache != nil {
		c.cache.Set(key, v, c.cfg.CacheTTL)
	}
	return v, nil
}

// PerApartment splits the building amount evenly, rounded to cents.
func (c *Calculator) PerApartment(ctx context.Context, b *models.Building, month time.Time) (decimal.Decimal, error) {
	total, err := c.Calculate(ctx, b, month)
	if err != nil {
		return decimal.Zero, err
	}
	return total.Div(decimal.NewFromInt(int64(b.TotalApartments))).Round(2), nil
}

func (c *Calculator) summer(b *models.Building) (decimal.Decimal, error) {
	if err := c.validate(b); err != nil {
		return decimal.Zero, err
	}
	base := decimal.NewFromInt(int64(b.TotalApartments)).Mul(c.cfg.Rate)
	return floorZero(c.buildingFactor(b, base)), nil
}

func (c *Calculator) winter(ctx context.Context, b *models.Building, month time.Time) (decimal.Decimal, error) {
	if err := c.validate(b); err != nil {
		return decimal.Zero, err
	}
	avg, err := c.SummerAverage(ctx, b)
	if err != nil {
		return decimal.Zero, err
	}
	adjusted := avg.Mul(c.seasonFactor(month))
	return floorZero(c.buildingFactor(b, adjusted)), nil
}

// SummerAverage returns the stored average when it is still fresh, or
// recomputes it from the last complete summer and stores it.
func (c *Calculator) SummerAverage(ctx context.Context, b *models.Building) (decimal.Decimal, error) {
	now := c.now()
	if b.CirculationSummerAverage != nil && b.CirculationCalculatedAt != nil &&
		b.CirculationCalculatedAt.After(now.Add(-c.cfg.AverageValidity)) {
		return *b.CirculationSummerAverage, nil
	}
	return c.RecalculateSummerAverage(ctx, b)
}

// RecalculateSummerAverage averages the summer months of the previous year.
func (c *Calculator) RecalculateSummerAverage(ctx context.Context, b *models.Building) (decimal.Decimal, error) {
	if err := c.validate(b); err != nil {
		return decimal.Zero, err
	}

	year := c.now().Year() - 1
	total := decimal.Zero
	months := 0
	for range c.cfg.SummerMonths {
		v, err := c.summer(b)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(v)
		months++
	}

	avg := c.cfg.Rate
	if months > 0 {
		avg = total.Div(decimal.NewFromInt(int64(months))).Round(2)
	}

	now := c.now()
	b.CirculationSummerAverage = &avg
	b.CirculationCalculatedAt = &now

	if c.saver != nil {
		if err := c.saver.SaveCirculationAverage(ctx, b.ID, avg, now); err != nil {
			return decimal.Zero, fmt.Errorf("save summer average: %w", err)
		}
	}

	c.log.Info("circulation summer average stored",
		zap.String("building_id", b.ID.Hex()),
		zap.String("average", avg.String()),
		zap.Int("months", months),
		zap.Int("summer_year", year))

	return avg, nil
}

// ClearBuilding drops cached values for the two years around now.
func (c *Calculator) ClearBuilding(buildingID primitive.ObjectID) {
	if c.cache == nil {
		return
	}
	start := c.now().AddDate(0, -24, 0)
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := c.now().AddDate(0, 12, 0)
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		c.cache.Del(cacheKey("summer", buildingID, m))
		c.cache.Del(cacheKey("winter", buildingID, m))
	}
}

func (c *Calculator) validate(b *models.Building) error {
	if b.TotalApartments <= 0 || b.TotalApartments > c.cfg.MaxApartments {
		return fmt.Errorf("%w: building %s has %d apartments", ErrInvalidBuilding, b.ID.Hex(), b.TotalApartments)
	}
	return nil
}

func (c *Calculator) buildingFactor(b *models.Building, v decimal.Decimal) decimal.Decimal {
	switch {
	case b.TotalApartments > c.cfg.LargeBuilding:
		return v.Mul(c.cfg.LargeFactor)
	case b.TotalApartments < c.cfg.SmallBuilding:
		return v.Mul(c.cfg.SmallFactor)
	default:
		return v
	}
}

func (c *Calculator) seasonFactor(month time.Time) decimal.Decimal {
	switch {
	case contains(c.cfg.PeakWinterMonths, month.Month()):
		return c.cfg.PeakFactor
	case contains(c.cfg.ShoulderMonths, month.Month()):
		return c.cfg.ShoulderFactor
	default:
		return c.cfg.WinterFactor
	}
}

func cacheKey(kind string, buildingID primitive.ObjectID, month time.Time) string {
	return fmt.Sprintf("circulation:%s:%s:%s", kind, buildingID.Hex(), month.Format("2006-01"))
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func contains(months []time.Month, m time.Month) bool {
	for _, x := range months {
		if x == m {
			return true
		}
	}
	return false
}
