package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript bundles the increment and the window expiry into one atomic
// round trip. EXPIRE only fires on the first hit, which is what makes the
// window fixed rather than sliding.
var incrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisCounter is a shared fixed-window counter.
type RedisCounter struct {
	client redis.Cmdable
	prefix string
}

// NewRedisCounter builds a counter on an established client.
func NewRedisCounter(client redis.Cmdable) *RedisCounter {
	return &RedisCounter{client: client, prefix: "shield:rate"}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	res, err := incrScript.Run(ctx, c.client, []string{c.prefix + ":" + key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis rate incr: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return 0, 0, fmt.Errorf("redis rate incr: unexpected reply %T", res)
	}
	count, _ := vals[0].(int64)
	ttlMs, _ := vals[1].(int64)
	if ttlMs < 0 {
		ttlMs = window.Milliseconds()
	}
	return count, time.Duration(ttlMs) * time.Millisecond, nil
}
