package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/keithlinneman/reqtiming/internal/pipeline"
	"github.com/keithlinneman/reqtiming/internal/xerrors"
)

// ErrRateLimited is the failure a refused request carries. It maps to 429.
var ErrRateLimited = xerrors.WithStatus(xerrors.New("rate limited"), http.StatusTooManyRequests)

// visitor is one address's bucket.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// first-denial hook already fired; reset on eviction
	logged bool
}

// IPLimiter holds per-IP limiters.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond   rate.Limit
	burst       int
	ttl         time.Duration
	maxVisitors int
	now         func() time.Time

	// capacity hook already fired; reset when eviction frees room
	capacityHit bool

	// OnFirstDenied runs once per visitor on its first refusal.
	OnFirstDenied func(ip string)
	// OnDenied runs on every refusal.
	OnDenied func(ip string)
	// OnCapacity runs once when a new address is refused because the
	// visitor table is full.
	OnCapacity func()
}

type Option func(*IPLimiter)

// WithRate sets the refill rate and bucket size. WithRate(10, 50) allows
// 50 requests at once, then 10 per second.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTTL sets how long an idle address keeps its bucket.
func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithMaxVisitors bounds the visitor table. New addresses are refused
// while it is full. 0 means unbounded.
func WithMaxVisitors(n int) Option {
	return func(l *IPLimiter) { l.maxVisitors = n }
}

// WithOnCapacity sets the hook for the table filling up.
func WithOnCapacity(fn func()) Option {
	return func(l *IPLimiter) { l.OnCapacity = fn }
}

// WithOnFirstDenied sets the once-per-visitor hook, used for logging.
func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.OnFirstDenied = fn }
}

// WithOnDenied sets the per-refusal hook, used for counting.
func WithOnDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.OnDenied = fn }
}

// New creates an IPLimiter whose eviction loop stops with ctx.
func New(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		visitors:    make(map[string]*visitor),
		perSecond:   10,
		burst:       30,
		ttl:         5 * time.Minute,
		maxVisitors: 100000,
		now:         time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	go l.cleanup(ctx)
	return l
}

// Allow reports whether ip is within its budget, consuming one token.
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok && l.maxVisitors > 0 && len(l.visitors) >= l.maxVisitors {
		fire := !l.capacityHit
		l.capacityHit = true
		l.mu.Unlock()
		if fire && l.OnCapacity != nil {
			l.OnCapacity()
		}
		if l.OnDenied != nil {
			l.OnDenied(ip)
		}
		return false
	}
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = l.now()
	allowed := v.limiter.Allow()
	first := !allowed && !v.logged
	if first {
		v.logged = true
	}
	// hooks may be slow; never run them under the lock
	l.mu.Unlock()

	if allowed {
		return true
	}
	if first && l.OnFirstDenied != nil {
		l.OnFirstDenied(ip)
	}
	if l.OnDenied != nil {
		l.OnDenied(ip)
	}
	return false
}

// Len is the number of tracked addresses.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *IPLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(l.now())
		}
	}
}

func (l *IPLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
		}
	}
	if l.maxVisitors <= 0 || len(l.visitors) < l.maxVisitors {
		l.capacityHit = false
	}
}

// Before refuses requests from addresses over budget.
func (l *IPLimiter) Before(req *pipeline.Request) error {
	if !l.Allow(req.RemoteAddr) {
		return ErrRateLimited
	}
	return nil
}

// After leaves the outcome alone.
func (l *IPLimiter) After(_ *pipeline.Request, out pipeline.Outcome) pipeline.Outcome {
	return out
}
