package admin

import (
	"context"
	"fmt"
	"testing"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/billing"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/domain/tariff"
	"github.com/stretchr/testify/assert"
)

func TestIsBillingProblem(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no property", billing.ErrNoProperty, true},
		{"no provider", fmt.Errorf("%w %q", billing.ErrNoProvider, "electricity"), true},
		{"no tariff", tariff.ErrNoActiveTariff, true},
		{"missing reading", &billing.MissingReadingError{}, true},
		{"store timeout", fmt.Errorf("load provider %q: %w", "electricity", context.DeadlineExceeded), false},
		{"property store timeout", fmt.Errorf("load property: %w", context.DeadlineExceeded), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isBillingProblem(tt.err))
		})
	}
}
