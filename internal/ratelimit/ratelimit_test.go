// ABOUTME: Tests for the sliding window rate limiter

package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinLimit(t *testing.T) {
	l := NewLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("1.2.3.4")
		assert.True(t, allowed)
	}

	allowed, retryAfter := l.Allow("1.2.3.4")
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestClientsAreIndependent(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	allowed, _ := l.Allow("1.2.3.4")
	assert.True(t, allowed)
	allowed, _ = l.Allow("1.2.3.4")
	assert.False(t, allowed)

	allowed, _ = l.Allow("5.6.7.8")
	assert.True(t, allowed)
}

func TestWindowSlides(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	base := time.Now()
	l.now = func() time.Time { return base }

	allowed, _ := l.Allow("1.2.3.4")
	assert.True(t, allowed)

	l.now = func() time.Time { return base.Add(30 * time.Second) }
	allowed, _ = l.Allow("1.2.3.4")
	assert.False(t, allowed)

	l.now = func() time.Time { return base.Add(61 * time.Second) }
	allowed, _ = l.Allow("1.2.3.4")
	assert.True(t, allowed)
}

func TestStaleClientsAreEvicted(t *testing.T) {
	l := NewLimiter(5, time.Minute)
	base := time.Now()
	l.now = func() time.Time { return base }

	l.Allow("1.2.3.4")
	l.Allow("5.6.7.8")
	l.Allow("9.10.11.12")
	assert.Len(t, l.clients, 3)

	// Two windows later only the returning client remains tracked.
	l.now = func() time.Time { return base.Add(2 * time.Minute) }
	allowed, _ := l.Allow("1.2.3.4")
	assert.True(t, allowed)
	assert.Len(t, l.clients, 1)
}

func TestMiddlewareReturns429(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4:5678"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
}
