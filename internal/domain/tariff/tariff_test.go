package tariff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dayNight(weekend string) models.TariffConfiguration {
	return models.TariffConfiguration{
		Type:     models.TariffTimeOfUse,
		Currency: "EUR",
		Zones: []models.TariffZone{
			{ID: "day", Start: "07:00", End: "23:00", Rate: dec("0.20")},
			{ID: "night", Start: "23:00", End: "07:00", Rate: dec("0.10")},
		},
		WeekendLogic: weekend,
	}
}

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFlatRate(t *testing.T) {
	r := NewResolver(nil)
	cfg := models.TariffConfiguration{Type: models.TariffFlat, Rate: dec("0.15")}

	got := r.CalculateCost(cfg, dec("100"), time.Now())
	assert.True(t, got.Equal(dec("15")), "got %s", got)
}

func TestTimeOfUse_DayAndNight(t *testing.T) {
	r := NewResolver(nil)
	cfg := dayNight("")

	tests := []struct {
		name string
		when string
		want string
	}{
		{"weekday afternoon is day", "2024-01-15 14:00", "20"},
		{"day zone starts inclusive", "2024-01-15 07:00", "20"},
		{"day zone end is exclusive", "2024-01-15 23:00", "10"},
		{"night crosses midnight", "2024-01-15 02:30", "10"},
		{"last minute before day", "2024-01-15 06:59", "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.CalculateCost(cfg, dec("100"), at(tt.when))
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestTimeOfUse_DecimalConsumption(t *testing.T) {
	r := NewResolver(nil)
	cfg := dayNight("")

	got := r.CalculateCost(cfg, dec("123.45"), at("2024-01-15 12:00"))
	assert.True(t, got.Equal(dec("24.69")), "got %s", got)

	got = r.CalculateCost(cfg, dec("87.654"), at("2024-01-15 12:00"))
	assert.True(t, got.Equal(dec("17.5308")), "got %s", got)
}

func TestTimeOfUse_WeekendLogic(t *testing.T) {
	r := NewResolver(nil)
	saturdayNoon := at("2024-01-13 12:00")
	sundayNoon := at("2024-01-14 12:00")

	got := r.CalculateCost(dayNight(models.WeekendNightRate), dec("100"), saturdayNoon)
	assert.True(t, got.Equal(dec("10")), "saturday night rate, got %s", got)

	got = r.CalculateCost(dayNight(models.WeekendNightRate), dec("100"), sundayNoon)
	assert.True(t, got.Equal(dec("10")), "sunday night rate, got %s", got)

	got = r.CalculateCost(dayNight(models.WeekendDayRate), dec("100"), at("2024-01-13 02:00"))
	assert.True(t, got.Equal(dec("20")), "day rate at night on weekend, got %s", got)

	weekend := dayNight(models.WeekendWeekendRate)
	weekend.Zones = append(weekend.Zones, models.TariffZone{ID: "weekend", Start: "00:00", End: "00:00", Rate: dec("0.05")})
	got = r.CalculateCost(weekend, dec("100"), saturdayNoon)
	assert.True(t, got.Equal(dec("5")), "weekend zone, got %s", got)

	// Weekday ignores weekend logic.
	got = r.CalculateCost(dayNight(models.WeekendNightRate), dec("100"), at("2024-01-15 12:00"))
	assert.True(t, got.Equal(dec("20")), "weekday, got %s", got)
}

func TestTimeOfUse_WeekendZoneMissingFallsBackToTime(t *testing.T) {
	r := NewResolver(nil)
	got := r.CalculateCost(dayNight(models.WeekendWeekendRate), dec("100"), at("2024-01-13 12:00"))
	assert.True(t, got.Equal(dec("20")), "got %s", got)
}

func TestTimeOfUse_ThreeTier(t *testing.T) {
	r := NewResolver(nil)
	cfg := models.TariffConfiguration{
		Type: models.TariffTimeOfUse,
		Zones: []models.TariffZone{
			{ID: "peak", Start: "17:00", End: "21:00", Rate: dec("0.30")},
			{ID: "day", Start: "07:00", End: "17:00", Rate: dec("0.20")},
			{ID: "night", Start: "21:00", End: "07:00", Rate: dec("0.10")},
		},
	}

	assert.True(t, r.CalculateCost(cfg, dec("10"), at("2024-01-16 18:00")).Equal(dec("3")))
	assert.True(t, r.CalculateCost(cfg, dec("10"), at("2024-01-16 09:00")).Equal(dec("2")))
	assert.True(t, r.CalculateCost(cfg, dec("10"), at("2024-01-16 22:00")).Equal(dec("1")))
}

func TestTimeOfUse_NoMatchUsesFirstZone(t *testing.T) {
	r := NewResolver(nil)
	cfg := models.TariffConfiguration{
		Type: models.TariffTimeOfUse,
		Zones: []models.TariffZone{
			{ID: "morning", Start: "06:00", End: "09:00", Rate: dec("0.25")},
		},
	}
	got := r.CalculateCost(cfg, dec("100"), at("2024-01-16 15:00"))
	assert.True(t, got.Equal(dec("25")), "got %s", got)

	cfg.Zones = nil
	assert.True(t, r.CalculateCost(cfg, dec("100"), at("2024-01-16 15:00")).IsZero())
}

func TestCalculateCost_UnknownTypesCostNothing(t *testing.T) {
	r := NewResolver(nil)
	for _, typ := range []string{"", "unknown_type"} {
		cfg := models.TariffConfiguration{Type: typ, Rate: dec("0.15")}
		assert.True(t, r.CalculateCost(cfg, dec("100"), time.Now()).IsZero(), "type %q", typ)
	}
}

type fixedStrategy struct{ cost decimal.Decimal }

func (fixedStrategy) Supports(t string) bool { return t == "custom_type" }
func (s fixedStrategy) Calculate(models.TariffConfiguration, decimal.Decimal, time.Time) decimal.Decimal {
	return s.cost
}

func TestCalculateCost_CustomStrategy(t *testing.T) {
	r := NewResolver(nil, fixedStrategy{cost: dec("42")})
	got := r.CalculateCost(models.TariffConfiguration{Type: "custom_type"}, dec("100"), time.Now())
	assert.True(t, got.Equal(dec("42")))

	// Custom strategies replace the defaults.
	assert.True(t, r.CalculateCost(models.TariffConfiguration{Type: models.TariffFlat, Rate: dec("1")}, dec("1"), time.Now()).IsZero())
}

type listerFunc func(ctx context.Context, id primitive.ObjectID) ([]models.Tariff, error)

func (f listerFunc) ListByProvider(ctx context.Context, id primitive.ObjectID) ([]models.Tariff, error) {
	return f(ctx, id)
}

func TestResolve(t *testing.T) {
	providerID := primitive.NewObjectID()
	older := models.Tariff{ID: primitive.NewObjectID(), Name: "2024", ActiveFrom: at("2024-01-01 00:00")}
	newer := models.Tariff{ID: primitive.NewObjectID(), Name: "mid-2024", ActiveFrom: at("2024-06-01 00:00")}
	until := at("2024-03-31 00:00")
	expired := models.Tariff{ID: primitive.NewObjectID(), Name: "q1", ActiveFrom: at("2024-01-01 00:00"), ActiveUntil: &until}
	future := models.Tariff{ID: primitive.NewObjectID(), Name: "2025", ActiveFrom: at("2025-01-01 00:00")}

	r := NewResolver(listerFunc(func(_ context.Context, id primitive.ObjectID) ([]models.Tariff, error) {
		require.Equal(t, providerID, id)
		return []models.Tariff{older, newer, expired, future}, nil
	}))

	got, err := r.Resolve(context.Background(), providerID, at("2024-07-15 00:00"))
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID, "most recent active tariff wins")

	got, err = r.Resolve(context.Background(), providerID, at("2024-02-15 00:00"))
	require.NoError(t, err)
	assert.Contains(t, []primitive.ObjectID{older.ID, expired.ID}, got.ID)

	got, err = r.Resolve(context.Background(), providerID, at("2024-03-31 00:00"))
	require.NoError(t, err)
	assert.Contains(t, []primitive.ObjectID{older.ID, expired.ID}, got.ID, "active_until is inclusive")

	_, err = r.Resolve(context.Background(), providerID, at("2023-06-15 00:00"))
	assert.True(t, errors.Is(err, ErrNoActiveTariff))
}

func TestValidateConfiguration(t *testing.T) {
	assert.NoError(t, ValidateConfiguration(dayNight(models.WeekendNightRate)))
	assert.NoError(t, ValidateConfiguration(models.TariffConfiguration{Type: models.TariffFlat, Currency: "EUR", Rate: dec("0.15")}))

	tests := []struct {
		name  string
		cfg   models.TariffConfiguration
		field string
	}{
		{"missing type", models.TariffConfiguration{}, "configuration.type"},
		{"unknown type", models.TariffConfiguration{Type: "tiered"}, "configuration.type"},
		{"negative flat rate", models.TariffConfiguration{Type: models.TariffFlat, Rate: dec("-1")}, "configuration.rate"},
		{"rate above max", models.TariffConfiguration{Type: models.TariffFlat, Rate: dec("1000000")}, "configuration.rate"},
		{"wrong currency", models.TariffConfiguration{Type: models.TariffFlat, Currency: "USD"}, "configuration.currency"},
		{"no zones", models.TariffConfiguration{Type: models.TariffTimeOfUse}, "configuration.zones"},
		{"bad zone id", models.TariffConfiguration{Type: models.TariffTimeOfUse, Zones: []models.TariffZone{{ID: "day zone", Start: "07:00", End: "23:00"}}}, "configuration.zones.0.id"},
		{"bad clock", models.TariffConfiguration{Type: models.TariffTimeOfUse, Zones: []models.TariffZone{{ID: "day", Start: "7:00", End: "23:00"}}}, "configuration.zones.0.start"},
		{"hour out of range", models.TariffConfiguration{Type: models.TariffTimeOfUse, Zones: []models.TariffZone{{ID: "day", Start: "07:00", End: "24:00"}}}, "configuration.zones.0.end"},
		{"duplicate zone", models.TariffConfiguration{Type: models.TariffTimeOfUse, Zones: []models.TariffZone{
			{ID: "day", Start: "07:00", End: "23:00"}, {ID: "day", Start: "23:00", End: "07:00"},
		}}, "configuration.zones.1.id"},
		{"bad weekend logic", func() models.TariffConfiguration { c := dayNight("apply_holiday"); return c }(), "configuration.weekend_logic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfiguration(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))

			var fe FieldErrors
			require.True(t, errors.As(err, &fe))
			assert.Contains(t, fe, tt.field)
		})
	}
}

func TestValidateTariff(t *testing.T) {
	from := at("2024-01-01 00:00")
	before := at("2023-12-31 00:00")

	err := Validate(models.Tariff{
		Name:          "",
		RemoteID:      "bad id!",
		ActiveFrom:    from,
		ActiveUntil:   &before,
		Configuration: models.TariffConfiguration{Type: models.TariffFlat, Rate: dec("0.1")},
	})
	var fe FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "validation.required", fe["name"])
	assert.Equal(t, "validation.tariff.remote_id", fe["remote_id"])
	assert.Equal(t, "validation.tariff.until_after_from", fe["active_until"])

	assert.NoError(t, Validate(models.Tariff{
		Name:          "Ignitis 2024",
		RemoteID:      "ign-2024.v1",
		ActiveFrom:    from,
		Configuration: models.TariffConfiguration{Type: models.TariffFlat, Rate: dec("0.1")},
	}))
}

func TestCoversFullDay(t *testing.T) {
	assert.True(t, CoversFullDay(dayNight("")))

	gap := models.TariffConfiguration{Type: models.TariffTimeOfUse, Zones: []models.TariffZone{
		{ID: "day", Start: "07:00", End: "22:00"},
		{ID: "night", Start: "23:00", End: "07:00"},
	}}
	assert.False(t, CoversFullDay(gap))
}

func TestSample(t *testing.T) {
	assert.Equal(t, time.Saturday, Sample(time.Saturday, 12, 0).Weekday())
	assert.Equal(t, time.Monday, Sample(time.Monday, 12, 0).Weekday())
	assert.Equal(t, time.Sunday, Sample(time.Sunday, 8, 30).Weekday())
	assert.Equal(t, 8, Sample(time.Sunday, 8, 30).Hour())
}
