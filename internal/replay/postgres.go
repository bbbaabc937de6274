package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"fairgate/internal/platform/clock"
)

// Schema for the claims table. Applied by deployment tooling, kept here so
// the store and its table definition travel together.
const Schema = `
CREATE TABLE IF NOT EXISTS replay_claims (
	claim_key  TEXT PRIMARY KEY,
	expires_at TIMESTAMPTZ NOT NULL
);
`

// PostgresStore persists claims durably. Unlike the cache-backed stores a
// restart does not forget reservations, which hardened deployments may
// require for long quote windows.
type PostgresStore struct {
	pool   *pgxpool.Pool
	clk    clock.Clock
	prefix string
}

// NewPostgresStore builds a store on an established pool. The prefix
// selects the replay domain; an empty prefix defaults to the proof domain.
func NewPostgresStore(pool *pgxpool.Pool, clk clock.Clock, prefix string) *PostgresStore {
	if prefix == "" {
		prefix = KeyPrefixProof
	}
	return &PostgresStore{pool: pool, clk: clk, prefix: prefix}
}

// Claim inserts the key, taking over rows whose reservation has lapsed. The
// insert-or-steal is a single statement so concurrent claimers serialize on
// the row.
func (s *PostgresStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.clk.Now()

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO replay_claims (claim_key, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (claim_key) DO UPDATE SET
			expires_at = EXCLUDED.expires_at
		WHERE replay_claims.expires_at <= $3
	`, s.prefix+":"+key, now.Add(ttl), now)
	if err != nil {
		return false, fmt.Errorf("postgres claim: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
