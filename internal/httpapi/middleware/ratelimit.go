package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// tokenBucket: per-client bucket (max tokens = burst, refill rate per second).
type tokenBucket struct {
	tokens float64
	last   time.Time
}

type limiter struct {
	rate      float64 // tokens per second
	burst     float64
	ttl       time.Duration
	mu        sync.Mutex
	m         map[string]*tokenBucket
	lastSweep time.Time
	now       func() time.Time
}

func newLimiter(rps float64, burst int, ttl time.Duration) *limiter {
	if burst < 1 {
		burst = 1
	}
	return &limiter{
		rate:  rps,
		burst: float64(burst),
		ttl:   ttl,
		m:     make(map[string]*tokenBucket),
		now:   time.Now,
	}
}

func (l *limiter) allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.ttl {
		l.sweep(now)
	}

	tb := l.m[key]
	if tb == nil {
		tb = &tokenBucket{tokens: l.burst, last: now}
		l.m[key] = tb
	}
	// refill
	elapsed := now.Sub(tb.last).Seconds()
	tb.tokens = min(l.burst, tb.tokens+elapsed*l.rate)
	tb.last = now

	if tb.tokens < 1.0 {
		return false
	}
	tb.tokens -= 1.0
	return true
}

// sweep drops buckets idle for longer than ttl. Caller holds mu.
func (l *limiter) sweep(now time.Time) {
	for k, tb := range l.m {
		if now.Sub(tb.last) > l.ttl {
			delete(l.m, k)
		}
	}
	l.lastSweep = now
}

// RateLimit returns a middleware that rate-limits by remote IP.
// Example: RateLimit(120, 60) => 120 req/min with burst 60
func RateLimit(reqPerMin int, burst int) func(http.Handler) http.Handler {
	if reqPerMin <= 0 {
		// disabled
		return func(next http.Handler) http.Handler { return next }
	}
	rps := float64(reqPerMin) / 60.0
	l := newLimiter(rps, burst, 10*time.Minute)
	retryAfter := strconv.Itoa(max(1, 60/reqPerMin))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(clientIP(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", retryAfter)
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	// honor X-Forwarded-For if behind a proxy
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
