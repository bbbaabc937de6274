package ratelimit

import (
	"context"
	"sync"
	"time"

	"fairgate/internal/platform/clock"
)

type bucket struct {
	windowStart time.Time
	count       int64
}

// MemoryCounter is a process-local fixed-window counter. Like the memory
// replay store it only protects a single instance.
type MemoryCounter struct {
	clk clock.Clock

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemoryCounter builds a counter reading time from clk.
func NewMemoryCounter(clk clock.Clock) *MemoryCounter {
	return &MemoryCounter{
		clk:     clk,
		buckets: make(map[string]*bucket),
	}
}

// Incr counts one request for key, opening a fresh window when the previous
// one has elapsed. Stale buckets are swept lazily on each call.
func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	now := c.clk.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, b := range c.buckets {
		if now.Sub(b.windowStart) >= window {
			delete(c.buckets, k)
		}
	}

	b, ok := c.buckets[key]
	if !ok {
		b = &bucket{windowStart: now}
		c.buckets[key] = b
	}
	b.count++
	remaining := window - now.Sub(b.windowStart)
	return b.count, remaining, nil
}
