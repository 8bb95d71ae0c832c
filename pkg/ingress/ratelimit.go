package ingress

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/etcmint/mintgate/pkg/apierr"
	"github.com/etcmint/mintgate/pkg/log"
	"github.com/etcmint/mintgate/pkg/metrics"
)

// RateLimiter applies a per-client budget of max requests per window.
// State is process-local; each client gets its own token bucket sized to
// the full window budget.
type RateLimiter struct {
	window time.Duration
	max    int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates a limiter allowing max requests per window.
func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		window:   window,
		max:      max,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow consumes one slot of the client's budget. It also reports the
// remaining budget for response headers.
func (rl *RateLimiter) Allow(client string) (allowed bool, remaining int) {
	rl.mu.Lock()
	limiter, ok := rl.limiters[client]
	if !ok {
		// Refill rate spreads the budget across the window; burst covers
		// the whole budget so a fresh client can spend it immediately.
		limiter = rate.NewLimiter(rate.Limit(float64(rl.max)/rl.window.Seconds()), rl.max)
		rl.limiters[client] = limiter
	}
	rl.mu.Unlock()

	allowed = limiter.Allow()
	remaining = int(limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining
}

// StartCleanupJob periodically drops idle client buckets so the map stays
// bounded on long-running processes.
func (rl *RateLimiter) StartCleanupJob(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.mu.Lock()
				if len(rl.limiters) > 10000 {
					log.Info(fmt.Sprintf("clearing rate limiter buckets (count: %d)", len(rl.limiters)))
					rl.limiters = make(map[string]*rate.Limiter)
				}
				rl.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

// Middleware enforces the budget keyed by remote network identity.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		allowed, remaining := rl.Allow(client)

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.max))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			metrics.RateLimitRejections.Inc()
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
			WriteError(w, r, apierr.RateLimited())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client network identity from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
