package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore claims keys atomically with SET NX EX. The reservation and its
// expiry are a single command, so two racing requests can never both win.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore builds a store on an established client. The prefix
// selects the replay domain; an empty prefix defaults to the proof domain.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = KeyPrefixProof
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ok, err := s.client.SetNX(ctx, s.prefix+":"+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim: %w", err)
	}
	return ok, nil
}
