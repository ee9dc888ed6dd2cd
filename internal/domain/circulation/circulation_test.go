package circulation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memCache struct {
	mu sync.Mutex
	m  map[string]any
}

func newMemCache() *memCache { return &memCache{m: map[string]any{}} }

func (c *memCache) Get(k string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[k]
	return v, ok
}
func (c *memCache) Set(k string, v any, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[k] = v
}
func (c *memCache) Del(k string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, k)
}

type recordingSaver struct {
	calls int
	avg   decimal.Decimal
}

func (s *recordingSaver) SaveCirculationAverage(_ context.Context, _ primitive.ObjectID, avg decimal.Decimal, _ time.Time) error {
	s.calls++
	s.avg = avg
	return nil
}

var fixedNow = time.Date(2024, time.November, 10, 12, 0, 0, 0, time.UTC)

func newCalc(saver AverageSaver, cache Cache) *Calculator {
	return New(Config{}, saver, cache, nil).WithClock(func() time.Time { return fixedNow })
}

func building(apartments int) *models.Building {
	return &models.Building{ID: primitive.NewObjectID(), TotalApartments: apartments}
}

func month(m time.Month) time.Time { return time.Date(2024, m, 1, 0, 0, 0, 0, time.UTC) }

func TestSummer_BuildingFactors(t *testing.T) {
	c := newCalc(nil, nil)
	ctx := context.Background()

	tests := []struct {
		apartments int
		want       string
	}{
		{20, "300"},  // 20 x 15
		{60, "855"},  // 60 x 15 x 0.95
		{5, "82.5"},  // 5 x 15 x 1.1
		{10, "150"},  // boundary, no factor
		{50, "750"},  // boundary, no factor
	}
	for _, tt := range tests {
		got, err := c.Calculate(ctx, building(tt.apartments), month(time.July))
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "%d apartments: got %s", tt.apartments, got)
	}
}

func TestWinter_UsesStoredAverage(t *testing.T) {
	saver := &recordingSaver{}
	c := newCalc(saver, nil)
	ctx := context.Background()

	avg := decimal.NewFromInt(300)
	calculated := fixedNow.AddDate(0, -2, 0)
	b := building(20)
	b.CirculationSummerAverage = &avg
	b.CirculationCalculatedAt = &calculated

	got, err := c.Calculate(ctx, b, month(time.January))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(390)), "peak winter: got %s", got)

	got, err = c.Calculate(ctx, b, month(time.November))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(345)), "shoulder: got %s", got)

	assert.Equal(t, 0, saver.calls, "fresh average is not recomputed")
}

func TestWinter_RecomputesStaleAverage(t *testing.T) {
	saver := &recordingSaver{}
	c := newCalc(saver, nil)

	old := decimal.NewFromInt(1)
	stale := fixedNow.AddDate(-2, 0, 0)
	b := building(20)
	b.CirculationSummerAverage = &old
	b.CirculationCalculatedAt = &stale

	got, err := c.Calculate(context.Background(), b, month(time.December))
	require.NoError(t, err)

	assert.Equal(t, 1, saver.calls)
	assert.True(t, saver.avg.Equal(decimal.NewFromInt(300)), "average %s", saver.avg)
	assert.True(t, got.Equal(decimal.NewFromInt(390)), "got %s", got)
	require.NotNil(t, b.CirculationSummerAverage)
	assert.True(t, b.CirculationSummerAverage.Equal(decimal.NewFromInt(300)))
}

func TestCalculate_RejectsInvalidBuildings(t *testing.T) {
	c := newCalc(nil, nil)
	for _, n := range []int{0, -3, 1001} {
		_, err := c.Calculate(context.Background(), building(n), month(time.June))
		assert.True(t, errors.Is(err, ErrInvalidBuilding), "%d apartments", n)
	}
}

func TestCalculate_CachesAndClears(t *testing.T) {
	cache := newMemCache()
	c := newCalc(nil, cache)
	b := building(20)

	_, err := c.Calculate(context.Background(), b, month(time.June))
	require.NoError(t, err)
	_, ok := cache.Get(cacheKey("summer", b.ID, month(time.June)))
	assert.True(t, ok)

	c.ClearBuilding(b.ID)
	_, ok = cache.Get(cacheKey("summer", b.ID, month(time.June)))
	assert.False(t, ok)
}

func TestPerApartment(t *testing.T) {
	c := newCalc(nil, nil)
	got, err := c.PerApartment(context.Background(), building(20), month(time.June))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(15)), "got %s", got)

	got, err = c.PerApartment(context.Background(), building(7), month(time.June))
	require.NoError(t, err)
	// 7 x 15 x 1.1 / 7 = 16.5
	assert.True(t, got.Equal(decimal.RequireFromString("16.5")), "got %s", got)
}

func TestDistribute(t *testing.T) {
	shares := []Share{
		{PropertyID: primitive.NewObjectID(), AreaSqm: decimal.NewFromInt(50)},
		{PropertyID: primitive.NewObjectID(), AreaSqm: decimal.NewFromInt(30)},
		{PropertyID: primitive.NewObjectID(), AreaSqm: decimal.NewFromInt(20)},
	}

	equal := Distribute(decimal.NewFromInt(100), shares, ByEqualShare)
	require.Len(t, equal, 3)
	assert.Equal(t, "33.33", equal[0].Amount.String())
	assert.Equal(t, "33.33", equal[1].Amount.String())
	assert.Equal(t, "33.34", equal[2].Amount.String())

	byArea := Distribute(decimal.NewFromInt(100), shares, ByArea)
	assert.Equal(t, "50", byArea[0].Amount.String())
	assert.Equal(t, "30", byArea[1].Amount.String())
	assert.Equal(t, "20", byArea[2].Amount.String())

	sum := decimal.Zero
	for _, s := range Distribute(decimal.RequireFromString("999.99"), shares, ByEqualShare) {
		sum = sum.Add(s.Amount)
	}
	assert.True(t, sum.Equal(decimal.RequireFromString("999.99")))

	assert.Nil(t, Distribute(decimal.Zero, shares, ByEqualShare))
	assert.Nil(t, Distribute(decimal.NewFromInt(10), nil, ByEqualShare))
}
