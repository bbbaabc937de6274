package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"fairgate/internal/ratelimit/metrics"
	dErrors "fairgate/pkg/domain-errors"
)

// Limiter enforces the two-scope limit policy. A shared counter is
// preferred; the in-memory counter covers single-instance deployments and
// degraded operation. With RequireShared set, a shared-counter failure
// refuses requests instead of falling back, because per-instance counting
// multiplies the effective limit by the fleet size.
type Limiter struct {
	shared        Counter
	memory        Counter
	window        time.Duration
	originLimit   int64
	identityLimit int64
	requireShared bool
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithSharedCounter sets the cross-instance counter.
func WithSharedCounter(counter Counter) LimiterOption {
	return func(l *Limiter) { l.shared = counter }
}

// WithWindow sets the counting window.
func WithWindow(window time.Duration) LimiterOption {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
	}
}

// WithLimits sets the per-scope request allowances. Non-positive values
// disable the scope.
func WithLimits(origin, identity int64) LimiterOption {
	return func(l *Limiter) {
		l.originLimit = origin
		l.identityLimit = identity
	}
}

// WithRequireShared fails closed when the shared counter is missing or down.
func WithRequireShared(require bool) LimiterOption {
	return func(l *Limiter) { l.requireShared = require }
}

// WithMetrics attaches Prometheus metrics. Nil metrics are a no-op.
func WithMetrics(m *metrics.Metrics) LimiterOption {
	return func(l *Limiter) { l.metrics = m }
}

// WithLogger sets the logger used for degradation warnings.
func WithLogger(logger *slog.Logger) LimiterOption {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLimiter builds a Limiter. The memory fallback is always present.
func NewLimiter(memory Counter, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		memory:        memory,
		window:        DefaultWindow,
		originLimit:   120,
		identityLimit: 60,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Allow admits or rejects one request. The origin scope runs first; the
// identity scope is skipped when identity is empty (the request will fail
// validation later anyway, and guests are origin-limited only).
func (l *Limiter) Allow(ctx context.Context, origin, identity string) error {
	if err := l.consume(ctx, ScopeOrigin, origin, l.originLimit); err != nil {
		return err
	}
	if identity == "" {
		return nil
	}
	return l.consume(ctx, ScopeIdentity, identity, l.identityLimit)
}

func (l *Limiter) consume(ctx context.Context, scope, key string, limit int64) error {
	if key == "" || limit <= 0 {
		return nil
	}
	scopedKey := scope + ":" + key

	counter := l.memory
	if l.shared != nil {
		count, remaining, err := l.shared.Incr(ctx, scopedKey, l.window)
		if err == nil {
			return l.decide(scope, count, limit, remaining)
		}
		if l.requireShared {
			return dErrors.Wrap(err, dErrors.CodeBackendUnavailable, "rate limit backend unavailable").
				WithRetryAfter(1)
		}
		l.metrics.ObserveSharedFallback()
		l.logger.Warn("shared rate limit counter unavailable, falling back to memory",
			"scope", scope, "error", err)
	} else if l.requireShared {
		return dErrors.New(dErrors.CodeBackendUnavailable, "rate limit backend unavailable").
			WithRetryAfter(1)
	}

	count, remaining, err := counter.Incr(ctx, scopedKey, l.window)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "memory rate limit counter")
	}
	return l.decide(scope, count, limit, remaining)
}

func (l *Limiter) decide(scope string, count, limit int64, remaining time.Duration) error {
	allowed := count <= limit
	l.metrics.ObserveDecision(scope, allowed)
	if allowed {
		return nil
	}
	retryAfter := int(remaining.Seconds())
	if remaining > 0 && remaining < time.Second {
		retryAfter = 1
	}
	if retryAfter < 1 {
		retryAfter = 1
	}
	return dErrors.New(dErrors.CodeRateLimited, "rate limit exceeded for "+scope).
		WithReason("rate_limited").
		WithRetryAfter(retryAfter)
}
