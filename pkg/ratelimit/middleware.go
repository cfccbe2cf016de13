package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/simple-company/pkg/authz"
	"github.com/tendant/simple-company/pkg/errors"
)

// Config holds rate limiting settings. Rates are requests per minute.
type Config struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" env-default:"true"`

	// Per client IP, checked before authentication
	PerIP int `env:"RATE_LIMIT_PER_IP" env-default:"300"`
	// Per authenticated user
	PerActor int `env:"RATE_LIMIT_PER_ACTOR" env-default:"200"`
	// Shared by all users of one company
	PerCompany int `env:"RATE_LIMIT_PER_COMPANY" env-default:"1000"`

	BucketTTL time.Duration `env:"RATE_LIMIT_BUCKET_TTL" env-default:"1h"`

	// Number of reverse proxies in front of the service that append to
	// X-Forwarded-For. Zero means the header is ignored.
	TrustedProxies int `env:"RATE_LIMIT_TRUSTED_PROXIES" env-default:"0"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		PerIP:      300,
		PerActor:   200,
		PerCompany: 1000,
		BucketTTL:  time.Hour,
	}
}

// Middleware limits requests per client IP, per actor and per company.
// A limit of zero disables that dimension.
type Middleware struct {
	config  Config
	ip      *Limiter
	actor   *Limiter
	company *Limiter
}

func NewMiddleware(config Config) *Middleware {
	return &Middleware{
		config:  config,
		ip:      perMinute(config.PerIP, config.BucketTTL),
		actor:   perMinute(config.PerActor, config.BucketTTL),
		company: perMinute(config.PerCompany, config.BucketTTL),
	}
}

func perMinute(n int, ttl time.Duration) *Limiter {
	if n <= 0 {
		return nil
	}
	return NewLimiter(n, float64(n)/60.0, ttl)
}

// Run sweeps idle buckets until ctx is done.
func (m *Middleware) Run(ctx context.Context) {
	for _, l := range []*Limiter{m.ip, m.actor, m.company} {
		if l != nil {
			go l.Run(ctx)
		}
	}
	<-ctx.Done()
}

// ByIP limits requests per client address. Mount it before authentication
// so unauthenticated floods are rejected early.
func (m *Middleware) ByIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.config.Enabled && m.ip != nil {
			ip := ClientIP(r, m.config.TrustedProxies)
			if !m.ip.Allow(ip) {
				m.exceeded(w, r, "ip", ip)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ByActor limits requests per authenticated user and per company. It must
// run after authz.Authenticate. Super admins without a company are only
// limited per user.
func (m *Middleware) ByActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := authz.ActorFrom(r.Context())
		if !m.config.Enabled || !ok {
			next.ServeHTTP(w, r)
			return
		}
		if m.actor != nil && !m.actor.Allow(actor.Username) {
			m.exceeded(w, r, "actor", actor.Username)
			return
		}
		if m.company != nil && actor.CompanyID > 0 {
			key := strconv.FormatInt(actor.CompanyID, 10)
			if !m.company.Allow(key) {
				m.exceeded(w, r, "company", key)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) exceeded(w http.ResponseWriter, r *http.Request, scope, key string) {
	slog.Warn("Rate limit exceeded", "scope", scope, "key", key, "method", r.Method, "path", r.URL.Path)
	w.Header().Set("Retry-After", "60")
	errors.WriteHTTP(w, r, errors.New(errors.ErrCodeRateLimited, "too many requests").
		WithDetail("scope", scope))
}

// ClientIP returns the address of the client. With no trusted proxies it is
// the host part of RemoteAddr. With n trusted proxies it is the n-th
// X-Forwarded-For entry counted from the right, since entries left of the
// proxies' own are supplied by the client. Too few entries fall back to
// RemoteAddr.
func ClientIP(r *http.Request, trustedProxies int) string {
	if trustedProxies > 0 {
		var hops []string
		for _, v := range r.Header.Values("X-Forwarded-For") {
			for _, hop := range strings.Split(v, ",") {
				if hop = strings.TrimSpace(hop); hop != "" {
					hops = append(hops, hop)
				}
			}
		}
		if len(hops) >= trustedProxies {
			return hops[len(hops)-trustedProxies]
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
