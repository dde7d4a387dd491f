// ABOUTME: In-memory sliding window rate limiter keyed by client address
// ABOUTME: Rejected requests get a 429 with a Retry-After hint

package ratelimit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Limiter tracks request timestamps per client over a sliding window.
type Limiter struct {
	mu        sync.Mutex
	clients   map[string][]time.Time
	limit     int
	window    time.Duration
	logger    *slog.Logger
	now       func() time.Time
	lastSweep time.Time
}

// NewLimiter allows limit requests per client within the window.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		clients: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		logger:  slog.Default().With("component", "ratelimit"),
		now:     time.Now,
	}
}

// Allow records a request for the client and reports whether it is within
// the limit. When rejected, retryAfter says how long until a slot opens.
func (l *Limiter) Allow(client string) (allowed bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	if now.Sub(l.lastSweep) >= l.window {
		l.sweepLocked(cutoff)
		l.lastSweep = now
	}

	stamps := l.clients[client]
	live := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= l.limit {
		l.clients[client] = live
		return false, live[0].Add(l.window).Sub(now)
	}

	l.clients[client] = append(live, now)
	return true, 0
}

// sweepLocked drops clients whose requests all aged out of the window, so the
// map does not grow without bound across distinct client addresses. Caller
// holds l.mu.
func (l *Limiter) sweepLocked(cutoff time.Time) {
	for client, stamps := range l.clients {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(l.clients, client)
		}
	}
}

// Middleware enforces the limit per client IP.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r)

		allowed, retryAfter := l.Allow(client)
		if !allowed {
			seconds := int(retryAfter.Seconds()) + 1
			l.logger.Warn("rate limit exceeded", "client", client, "retry_after_s", seconds)

			w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":    "RATE_LIMITED",
				"message": "too many requests",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
