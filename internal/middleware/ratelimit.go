package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coverwise/marketcore/internal/cache"
	"github.com/coverwise/marketcore/pkg/problem"
)

// RateLimiter throttles per client IP over a sliding window. Counters live
// in the cache layer, so with a Redis-backed cache the limit holds across
// API instances.
type RateLimiter struct {
	cache  cache.Cache
	limit  int64
	window time.Duration
	log    *slog.Logger
}

// NewRateLimiter creates a rate limiter allowing limit requests per window.
func NewRateLimiter(c cache.Cache, limit int, window time.Duration, log *slog.Logger) *RateLimiter {
	return &RateLimiter{
		cache:  c,
		limit:  int64(limit),
		window: window,
		log:    log,
	}
}

// Middleware returns the rate limiting middleware handler.
// NOTE: This should be used AFTER chi's RealIP middleware which safely
// sets RemoteAddr from X-Forwarded-For when behind trusted proxies.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r.RemoteAddr)

		count, err := rl.cache.IncrementCounter(r.Context(), "ratelimit:"+ip, rl.window)
		if err != nil {
			// Counter backend down. Failing open keeps the API available.
			rl.log.Warn("rate limit counter failed", "err", err)
			next.ServeHTTP(w, r)
			return
		}

		if count > rl.limit {
			w.Header().Set("Retry-After", "60")
			problem.Write(w, http.StatusTooManyRequests, "Rate Limit Exceeded",
				"Too many requests. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from a RemoteAddr, handling bracketed IPv6.
func clientIP(remoteAddr string) string {
	ip := remoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		if strings.Count(ip, ":") > 1 {
			if bracketIdx := strings.LastIndex(ip, "]:"); bracketIdx != -1 {
				ip = ip[1:bracketIdx]
			}
		} else {
			ip = ip[:idx]
		}
	}
	return ip
}
