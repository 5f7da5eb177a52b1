package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/Aimecol/hforher/pkg/errors"
	"github.com/Aimecol/hforher/pkg/httputil"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorStore keeps one token bucket per client IP and forgets clients
// idle for longer than ttl.
type visitorStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

func newVisitorStore(rps float64, burst int, ttl time.Duration) *visitorStore {
	return &visitorStore{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *visitorStore) limiter(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[ip] = v
	}
	v.lastSeen = s.now()
	return v.limiter
}

func (s *visitorStore) evictIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	for ip, v := range s.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(s.visitors, ip)
		}
	}
}

func (s *visitorStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimiter enforces a per-IP token bucket. Call Run in a goroutine to
// evict idle clients until ctx is cancelled.
type RateLimiter struct {
	store   *visitorStore
	trusted []netip.Prefix
	logger  *slog.Logger
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithTrustedProxies lists the CIDRs of reverse proxies whose
// X-Forwarded-For and X-Real-IP headers are believed. Without it the
// limiter keys on the peer address alone.
func WithTrustedProxies(cidrs []string) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.trusted = parsePrefixes(cidrs, rl.logger)
	}
}

// NewRateLimiter allows rps requests per second with the given burst.
func NewRateLimiter(rps float64, burst int, l *slog.Logger, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		store:  newVisitorStore(rps, burst, 3*time.Minute),
		logger: l,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Run evicts idle visitors every ttl until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.store.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.store.evictIdle()
		}
	}
}

// Handler rejects requests over the limit with a 429 envelope.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, rl.trusted)
		if !rl.store.limiter(ip).Allow() {
			rl.logger.WarnContext(r.Context(), "rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "1")
			httputil.WriteError(w, r, apperrors.RateLimited(), rl.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the peer address unless the peer is a trusted proxy. Then the
// X-Forwarded-For chain is walked from the right and the first hop outside
// the trusted ranges wins, falling back to X-Real-IP.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	host := peerHost(r)
	peer, err := netip.ParseAddr(host)
	if err != nil || !containsAddr(trusted, peer) {
		return host
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			if !containsAddr(trusted, addr) {
				return addr.Unmap().String()
			}
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	return peer.Unmap().String()
}
