// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Limiter counts requests per key in fixed windows. It is safe for
// concurrent use.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// Quota is the outcome of one Take.
type Quota struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the wait until the window resets, in whole seconds (at
// least 1).
func (q Quota) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(q.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// New allows limit requests per key in each window of period.
func New(limit int, period time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
	go l.sweep(2 * period)
	return l
}

// Take counts one request against key.
func (l *Limiter) Take(key string) Quota {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.windows[key] = w
	}
	if w.count >= l.limit {
		return Quota{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
	}
	w.count++
	return Quota{Allowed: true, Remaining: l.limit - w.count, ResetAt: w.resetAt}
}

// Allow is Take reduced to its verdict.
func (l *Limiter) Allow(key string) bool {
	return l.Take(key).Allowed
}

// Reset clears the counter for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

func (l *Limiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := l.now()
		for key, w := range l.windows {
			if now.After(w.resetAt) {
				delete(l.windows, key)
			}
		}
		l.mu.Unlock()
	}
}

// ClientIP is the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// LoginLimiter throttles sign-in attempts per client IP and per email, so
// neither one address nor one targeted account can be hammered.
type LoginLimiter struct {
	ipLimiter    *Limiter
	emailLimiter *Limiter
}

// Reasons returned by LoginLimiter.Check; they are message keys.
const (
	ReasonIP    = "login.rate_limited_ip"
	ReasonEmail = "login.rate_limited_email"
)

// NewLoginLimiter allows 10 attempts per IP per minute and 5 per email per
// five minutes.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		ipLimiter:    New(10, time.Minute),
		emailLimiter: New(5, 5*time.Minute),
	}
}

// NewLoginLimiterWithConfig creates a LoginLimiter with custom windows.
func NewLoginLimiterWithConfig(ipLimit int, ipWindow time.Duration, emailLimit int, emailWindow time.Duration) *LoginLimiter {
	return &LoginLimiter{
		ipLimiter:    New(ipLimit, ipWindow),
		emailLimiter: New(emailLimit, emailWindow),
	}
}

// Check reports whether a sign-in attempt may proceed, and if not the
// message key explaining why.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	if !ll.ipLimiter.Allow(ClientIP(r)) {
		return false, ReasonIP
	}
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		if !ll.emailLimiter.Allow(key) {
			return false, ReasonEmail
		}
	}
	return true, ""
}

// ResetEmail clears an account's counter after a successful sign-in.
func (ll *LoginLimiter) ResetEmail(email string) {
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		ll.emailLimiter.Reset(key)
	}
}

// KeyFunc picks the bucket a request is counted in.
type KeyFunc func(r *http.Request) string

// Middleware rejects requests over the limit. Allowed responses carry
// X-RateLimit-Remaining; blocked requests get Retry-After and are passed to
// onLimit, which renders the response.
func Middleware(l *Limiter, key KeyFunc, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := l.Take(key(r))
			if !q.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(q.RetryAfter(l.now())))
				onLimit(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(q.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}
