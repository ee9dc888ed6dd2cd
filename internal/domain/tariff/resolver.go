// internal/domain/tariff/resolver.go
package tariff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNoActiveTariff is returned when a provider has no tariff covering a date.
	ErrNoActiveTariff = errors.New("no active tariff for provider on date")
	// ErrBadClock is returned for zone times that are not "HH:MM".
	ErrBadClock = errors.New("time must be HH:MM")
)

// Lister loads the tariffs published for a provider.
type Lister interface {
	ListByProvider(ctx context.Context, providerID primitive.ObjectID) ([]models.Tariff, error)
}

// Resolver finds the tariff that applies to a provider on a date and prices
// consumption with the strategy matching the tariff type.
type Resolver struct {
	tariffs    Lister
	strategies []Strategy
}

// NewResolver builds a Resolver. With no strategies it falls back to flat
// and time-of-use pricing.
func NewResolver(tariffs Lister, strategies ...Strategy) *Resolver {
	if len(strategies) == 0 {
		strategies = []Strategy{FlatRate{}, TimeOfUse{}}
	}
	return &Resolver{tariffs: tariffs, strategies: strategies}
}

// Resolve returns the tariff active for the provider at the given date. When
// several overlap, the one that became active most recently wins.
func (r *Resolver) Resolve(ctx context.Context, providerID primitive.ObjectID, at time.Time) (models.Tariff, error) {
	if r.tariffs == nil {
		return models.Tariff{}, ErrNoActiveTariff
	}
	list, err := r.tariffs.ListByProvider(ctx, providerID)
	if err != nil {
		return models.Tariff{}, fmt.Errorf("list tariffs: %w", err)
	}
	t, ok := PickActive(list, at)
	if !ok {
		return models.Tariff{}, fmt.Errorf("%w (provider %s, %s)", ErrNoActiveTariff, providerID.Hex(), at.Format("2006-01-02"))
	}
	return t, nil
}

// CalculateCost prices consumption under cfg. Unknown, empty or missing
// tariff types cost nothing.
func (r *Resolver) CalculateCost(cfg models.TariffConfiguration, consumption decimal.Decimal, at time.Time) decimal.Decimal {
	if cfg.Type == "" {
		return decimal.Zero
	}
	for _, s := range r.strategies {
		if s.Supports(cfg.Type) {
			return s.Calculate(cfg, consumption, at)
		}
	}
	return decimal.Zero
}

// PickActive chooses the tariff active at `at` with the latest ActiveFrom.
func PickActive(tariffs []models.Tariff, at time.Time) (models.Tariff, bool) {
	var (
		best  models.Tariff
		found bool
	)
	for _, t := range tariffs {
		if !t.IsActiveOn(at) {
			continue
		}
		if !found || t.ActiveFrom.After(best.ActiveFrom) {
			best = t
			found = true
		}
	}
	return best, found
}
