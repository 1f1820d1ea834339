package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/time/rate"

	"github.com/conjugo/conjugo/internal/adapters/http/dto"
	"github.com/conjugo/conjugo/internal/adapters/metrics"
)

// RateLimiter enforces each key's requests-per-minute budget with a token
// bucket. Limiters are created lazily per key and kept for the process
// lifetime; keys are few enough that the map never needs eviction.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{limiters: make(map[string]*rate.Limiter)}
}

func (l *RateLimiter) limiter(keyID string, perMinute int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[keyID]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(perMinute)/60, perMinute)
	l.limiters[keyID] = lim
	return lim
}

// Middleware runs after APIKeyAuth. Keys with no rate limit configured pass
// through untouched.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := GetAPIKey(r.Context())
		if key == nil || key.RateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		if !l.limiter(key.ID, key.RateLimit).Allow() {
			metrics.RateLimitedTotal.Inc()
			retryAfter := 60 / key.RateLimit
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, dto.CodeRateLimited, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
