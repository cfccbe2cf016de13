package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-company/pkg/authz"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(burst int, rate float64, ttl time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(burst, rate, ttl)
	l.now = clock.Now
	return l, clock
}

func TestLimiterAllow(t *testing.T) {
	l, clock := newTestLimiter(5, 1, 0)

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("a"), "request %d", i+1)
	}
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys have separate buckets")

	clock.Advance(2 * time.Second)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	clock.Advance(time.Hour)
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("a"))
	}
	assert.False(t, l.Allow("a"), "refill is capped at burst")
}

func TestLimiterReset(t *testing.T) {
	l, _ := newTestLimiter(1, 0.01, 0)
	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))

	l.Reset("a")
	assert.True(t, l.Allow("a"))
}

func TestLimiterSweep(t *testing.T) {
	l, clock := newTestLimiter(1, 1, time.Minute)
	l.Allow("old")
	clock.Advance(45 * time.Second)
	l.Allow("new")
	clock.Advance(30 * time.Second)

	l.Sweep()
	assert.Equal(t, 1, l.Len())
}

func TestLimiterConcurrentAccess(t *testing.T) {
	l, _ := newTestLimiter(100, 0, 0)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if l.Allow("shared") {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), allowed.Load())
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestByIP(t *testing.T) {
	m := NewMiddleware(Config{Enabled: true, PerIP: 2, BucketTTL: time.Hour})
	h := m.ByIP(okHandler())

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	rec := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code)
}

func TestByActorSharesCompanyBudget(t *testing.T) {
	m := NewMiddleware(Config{Enabled: true, PerActor: 10, PerCompany: 3, BucketTTL: time.Hour})
	h := m.ByActor(okHandler())

	send := func(actor *authz.Actor) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if actor != nil {
			req = req.WithContext(authz.WithActor(req.Context(), *actor))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	alice := &authz.Actor{Username: "alice", Role: authz.RoleEmployee, CompanyID: 7}
	bob := &authz.Actor{Username: "bob", Role: authz.RoleAdmin, CompanyID: 7}
	carol := &authz.Actor{Username: "carol", Role: authz.RoleEmployee, CompanyID: 8}

	assert.Equal(t, http.StatusOK, send(alice))
	assert.Equal(t, http.StatusOK, send(bob))
	assert.Equal(t, http.StatusOK, send(alice))
	assert.Equal(t, http.StatusTooManyRequests, send(bob))
	assert.Equal(t, http.StatusOK, send(carol))
	assert.Equal(t, http.StatusOK, send(nil), "anonymous requests pass through")
}

func TestDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	cfg.PerIP = 1
	h := NewMiddleware(cfg).ByIP(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", ClientIP(req, 0))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "192.0.2.1", ClientIP(req, 0), "headers are ignored without trusted proxies")

	assert.Equal(t, "10.0.0.1", ClientIP(req, 1))
	assert.Equal(t, "203.0.113.9", ClientIP(req, 2))
	assert.Equal(t, "192.0.2.1", ClientIP(req, 3), "too few hops")

	req.Header.Add("X-Forwarded-For", "172.16.0.4")
	assert.Equal(t, "172.16.0.4", ClientIP(req, 1))
}

func TestByIPIgnoresSpoofedForwardedFor(t *testing.T) {
	for _, trusted := range []int{0, 1} {
		m := NewMiddleware(Config{Enabled: true, PerIP: 2, BucketTTL: time.Hour, TrustedProxies: trusted})
		h := m.ByIP(okHandler())

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.9:5555"
			// The client rotates the left-most entry; the proxy appends the real peer.
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d, 203.0.113.7", i))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes, "trusted proxies %d", trusted)
	}
}
