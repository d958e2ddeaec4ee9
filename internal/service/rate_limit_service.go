package service

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Rate limit identity kinds, also used as metric labels.
const (
	IdentityIP  = "ip"
	IdentityKey = "key"
)

// RateLimitDecision is the outcome of one rate limit check.
type RateLimitDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
	Kind       string
}

// RateLimiter counts a request against identity and decides whether it may
// proceed. Peek reports the same decision for the next request without
// counting one.
type RateLimiter interface {
	Allow(ctx context.Context, identity string, limit int) (RateLimitDecision, error)
	Peek(ctx context.Context, identity string, limit int) (RateLimitDecision, error)
}

type windowCounter interface {
	Increment(ctx context.Context, identity string, window time.Duration) (int64, time.Duration, error)
	Current(ctx context.Context, identity string) (int64, time.Duration, error)
}

// RedisWindowLimiter is a fixed-window limiter shared by every API instance.
type RedisWindowLimiter struct {
	counter windowCounter
	window  time.Duration
}

// NewRedisWindowLimiter constructs the limiter.
func NewRedisWindowLimiter(counter windowCounter, window time.Duration) *RedisWindowLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisWindowLimiter{counter: counter, window: window}
}

// Allow implements RateLimiter.
func (l *RedisWindowLimiter) Allow(ctx context.Context, identity string, limit int) (RateLimitDecision, error) {
	count, ttl, err := l.counter.Increment(ctx, identity, l.window)
	if err != nil {
		return RateLimitDecision{}, err
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitDecision{
		Allowed:    count <= int64(limit),
		Limit:      limit,
		Remaining:  remaining,
		ResetAfter: ttl,
	}, nil
}

// Peek implements RateLimiter.
func (l *RedisWindowLimiter) Peek(ctx context.Context, identity string, limit int) (RateLimitDecision, error) {
	count, ttl, err := l.counter.Current(ctx, identity)
	if err != nil {
		return RateLimitDecision{}, err
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitDecision{
		Allowed:    count < int64(limit),
		Limit:      limit,
		Remaining:  remaining,
		ResetAfter: ttl,
	}, nil
}

// LocalWindowLimiter keeps one token bucket per identity in process memory.
// The bucket holds limit tokens and refills limit per window, which
// approximates the fixed window when Redis is not configured. Buckets idle for
// a whole window are full again and get dropped by a sweep that runs at most
// once per window.
type LocalWindowLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	buckets   map[string]*localBucket
	lastSweep time.Time
	now       func() time.Time
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalWindowLimiter constructs the limiter.
func NewLocalWindowLimiter(window time.Duration) *LocalWindowLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &LocalWindowLimiter{window: window, buckets: make(map[string]*localBucket), now: time.Now}
}

func (l *LocalWindowLimiter) bucket(identity string, limit int, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) >= l.window {
		for id, b := range l.buckets {
			if now.Sub(b.lastSeen) >= l.window {
				delete(l.buckets, id)
			}
		}
		l.lastSweep = now
	}
	b, ok := l.buckets[identity]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(limit)), limit)}
		l.buckets[identity] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Allow implements RateLimiter.
func (l *LocalWindowLimiter) Allow(_ context.Context, identity string, limit int) (RateLimitDecision, error) {
	if limit <= 0 {
		return RateLimitDecision{Allowed: false, Limit: limit, ResetAfter: l.window}, nil
	}
	now := l.now()
	limiter := l.bucket(identity, limit, now)
	allowed := limiter.AllowN(now, 1)
	return l.decision(limiter, limit, now, allowed), nil
}

// Peek implements RateLimiter.
func (l *LocalWindowLimiter) Peek(_ context.Context, identity string, limit int) (RateLimitDecision, error) {
	if limit <= 0 {
		return RateLimitDecision{Allowed: false, Limit: limit, ResetAfter: l.window}, nil
	}
	l.mu.Lock()
	b, ok := l.buckets[identity]
	l.mu.Unlock()
	if !ok {
		return RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := l.now()
	return l.decision(b.limiter, limit, now, b.limiter.TokensAt(now) >= 1), nil
}

func (l *LocalWindowLimiter) decision(limiter *rate.Limiter, limit int, now time.Time, allowed bool) RateLimitDecision {
	tokens := limiter.TokensAt(now)
	remaining := int(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}
	reset := time.Duration(0)
	if missing := float64(limit) - tokens; missing > 0 {
		reset = time.Duration(missing * float64(l.window) / float64(limit))
	}
	return RateLimitDecision{Allowed: allowed, Limit: limit, Remaining: remaining, ResetAfter: reset}
}

// RateLimitPolicy holds the per-window quotas.
type RateLimitPolicy struct {
	AnonymousLimit int
	APIKeyLimit    int
}

// RateLimitService picks the caller identity and quota for public requests.
type RateLimitService struct {
	limiter RateLimiter
	policy  RateLimitPolicy
	metrics *MetricsService
	logger  *zap.Logger
}

// NewRateLimitService constructs the service.
func NewRateLimitService(limiter RateLimiter, policy RateLimitPolicy, metrics *MetricsService, logger *zap.Logger) *RateLimitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.AnonymousLimit <= 0 {
		policy.AnonymousLimit = 10
	}
	if policy.APIKeyLimit <= 0 {
		policy.APIKeyLimit = 100
	}
	return &RateLimitService{limiter: limiter, policy: policy, metrics: metrics, logger: logger}
}

// Check counts one request. apiKey must already be verified; an empty key
// limits by client IP. Limiter failures let the request through.
func (s *RateLimitService) Check(ctx context.Context, clientIP, apiKey string) RateLimitDecision {
	kind, identity, limit := IdentityIP, IdentityIP+":"+clientIP, s.policy.AnonymousLimit
	if key := strings.TrimSpace(apiKey); key != "" {
		kind, identity, limit = IdentityKey, IdentityKey+":"+HashIdentity(key), s.policy.APIKeyLimit
	}
	decision, err := s.limiter.Allow(ctx, identity, limit)
	if err != nil {
		s.logger.Warn("rate limiter unavailable, allowing request", zap.String("kind", kind), zap.Error(err))
		return RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit, Kind: kind}
	}
	decision.Kind = kind
	if !decision.Allowed {
		s.metrics.RecordRateLimited(kind)
	}
	return decision
}

// Exhausted reports whether clientIP has used up its anonymous quota without
// counting a request. Limiter failures report false.
func (s *RateLimitService) Exhausted(ctx context.Context, clientIP string) (RateLimitDecision, bool) {
	limit := s.policy.AnonymousLimit
	decision, err := s.limiter.Peek(ctx, IdentityIP+":"+clientIP, limit)
	if err != nil {
		s.logger.Warn("rate limiter unavailable, skipping quota check", zap.String("kind", IdentityIP), zap.Error(err))
		return RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit, Kind: IdentityIP}, false
	}
	decision.Kind = IdentityIP
	if decision.Allowed {
		return decision, false
	}
	s.metrics.RecordRateLimited(IdentityIP)
	return decision, true
}
