package i18n

import (
	"net/http"
)

// Resolver returns a locale preference for the request, or "" for none.
type Resolver func(r *http.Request) string

// Middleware picks the request locale and stores its Localizer in the
// context. Resolvers are tried in order (session choice, then the user's
// saved preference); Accept-Language negotiation and finally the bundle's
// default apply when none yields a supported locale.
func Middleware(b *Bundle, resolvers ...Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := Resolve(b, r, resolvers...)
			w.Header().Set("Content-Language", loc)
			next.ServeHTTP(w, r.WithContext(WithLocalizer(r.Context(), b.For(loc))))
		})
	}
}

// Resolve applies the Middleware order without touching the request.
func Resolve(b *Bundle, r *http.Request, resolvers ...Resolver) string {
	for _, res := range resolvers {
		if res == nil {
			continue
		}
		if loc := res(r); IsSupported(loc) {
			return loc
		}
	}
	return b.Negotiate(r.Header.Get("Accept-Language"))
}
