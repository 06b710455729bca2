package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SecurityHeaders adds OWASP-recommended security headers to all responses
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security",
				"max-age=31536000; includeSubDomains")
		}
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// RateLimitConfig holds configuration for the per-IP limiter.
type RateLimitConfig struct {
	RequestsPerMin int      // maximum requests allowed per minute
	BurstSize      int      // maximum burst of requests allowed
	TrustedProxies []string // trusted proxy IPs (for X-Forwarded-For)
}

// RateLimit implements token bucket rate limiting per client IP. This is the
// transport-layer limiter protecting the listener; the router carries its own
// per-caller fixed-window limiter independent of it.
//
// X-Forwarded-For is only trusted when the direct peer is a configured
// trusted proxy, so clients cannot spoof their way past the limiter.
func RateLimit(ctx context.Context, cfg RateLimitConfig) func(http.Handler) http.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	clients := make(map[string]*client)
	mu := &sync.Mutex{}

	// Cleanup goroutine: remove stale client entries.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				mu.Lock()
				for ip, c := range clients {
					if time.Since(c.lastSeen) > 3*time.Minute {
						delete(clients, ip)
					}
				}
				mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r, cfg.TrustedProxies)

			mu.Lock()
			if _, exists := clients[ip]; !exists {
				clients[ip] = &client{
					limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerMin)/60.0, cfg.BurstSize),
				}
			}
			clients[ip].lastSeen = time.Now()
			limiter := clients[ip].limiter
			mu.Unlock()

			if !limiter.Allow() {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request. Proxy headers are
// honored only when the direct peer is in trustedProxies.
func getClientIP(r *http.Request, trustedProxies []string) string {
	directIP := r.RemoteAddr
	if idx := strings.LastIndex(directIP, ":"); idx > 0 {
		directIP = directIP[:idx]
	}

	if len(trustedProxies) == 0 {
		return directIP
	}

	isTrustedProxy := false
	for _, trustedIP := range trustedProxies {
		if directIP == trustedIP {
			isTrustedProxy = true
			break
		}
	}
	if !isTrustedProxy {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return directIP
}
