package i18n

import (
	"context"
	"sync"
)

type ctxKey struct{}

var (
	defaultOnce   sync.Once
	defaultBundle *Bundle
)

// Shared returns the process-wide bundle, loading it on first use.
func Shared() *Bundle {
	defaultOnce.Do(func() {
		if defaultBundle == nil {
			defaultBundle = MustLoad(Default)
		}
	})
	return defaultBundle
}

// SetShared installs b as the process-wide bundle. Call before serving.
func SetShared(b *Bundle) {
	defaultOnce.Do(func() {})
	defaultBundle = b
}

// WithLocalizer returns ctx carrying l.
func WithLocalizer(ctx context.Context, l *Localizer) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// Current returns the request's localizer, or the default locale's.
func Current(ctx context.Context) *Localizer {
	if l, ok := ctx.Value(ctxKey{}).(*Localizer); ok && l != nil {
		return l
	}
	b := Shared()
	return b.For(b.Default())
}

// T translates key in the context's locale.
func T(ctx context.Context, key string, args ...any) string {
	return Current(ctx).T(key, args...)
}
