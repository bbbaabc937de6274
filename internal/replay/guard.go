package replay

import (
	"context"
	"log/slog"
	"time"

	dErrors "fairgate/pkg/domain-errors"
)

// Guard enforces single use of a proof across whatever backends are
// configured. A shared store is preferred; the in-memory store is a
// fallback for single-instance deployments. When RequireShared is set a
// shared-store failure refuses the request instead of degrading, because a
// silent fallback would let replays through on other instances.
type Guard struct {
	shared        ClaimStore
	memory        ClaimStore
	requireShared bool
	ttl           time.Duration
	logger        *slog.Logger
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithSharedStore sets the cross-instance claim store.
func WithSharedStore(store ClaimStore) GuardOption {
	return func(g *Guard) { g.shared = store }
}

// WithRequireShared fails closed when the shared store is missing or down.
func WithRequireShared(require bool) GuardOption {
	return func(g *Guard) { g.requireShared = require }
}

// WithTTL sets the claim hold duration.
func WithTTL(ttl time.Duration) GuardOption {
	return func(g *Guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for degradation warnings.
func WithLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGuard builds a Guard. The memory fallback is always present.
func NewGuard(memory ClaimStore, opts ...GuardOption) *Guard {
	g := &Guard{
		memory: memory,
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Claim reserves the key or explains why it cannot. A nil return means the
// caller holds the only reservation for the TTL window.
func (g *Guard) Claim(ctx context.Context, key string) error {
	if key == "" {
		return dErrors.New(dErrors.CodeReplay, "empty proof identifier")
	}

	if g.shared != nil {
		ok, err := g.shared.Claim(ctx, key, g.ttl)
		if err == nil {
			if !ok {
				return dErrors.New(dErrors.CodeReplay, "proof already used")
			}
			return nil
		}
		if g.requireShared {
			return dErrors.Wrap(err, dErrors.CodeBackendUnavailable, "replay store unavailable")
		}
		g.logger.Warn("shared replay store unavailable, falling back to memory", "error", err)
	} else if g.requireShared {
		return dErrors.New(dErrors.CodeBackendUnavailable, "replay store unavailable")
	}

	ok, err := g.memory.Claim(ctx, key, g.ttl)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "memory replay store")
	}
	if !ok {
		return dErrors.New(dErrors.CodeReplay, "proof already used")
	}
	return nil
}
