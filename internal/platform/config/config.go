// Package config builds runtime configuration from the environment so main
// stays lean. Every knob has a safe default; hardened mode tightens the
// fail-open/fail-closed defaults for shared backends and key provisioning.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "fairgate/pkg/platform/strings"
)

// Config captures the full configuration surface of the oracle service.
type Config struct {
	Addr     string
	Hardened bool

	RedisURL    string
	PostgresDSN string

	KafkaBrokers []string
	AuditTopic   string

	// Rate limiting: fixed window, evaluated origin scope then identity scope.
	RateWindow             time.Duration
	OriginLimit            int
	IdentityLimit          int
	RateLimitRequireShared bool

	// Quote replay guard and proof-identifier replay store.
	ReplayTTL           time.Duration
	ReplayRequireShared bool

	// Attestation verification.
	ProviderAllowlist   []string
	ProviderKeys        map[string]string
	RequireContextMatch bool

	// Oracle key provisioning.
	OraclePrivateKey       string
	OracleKeypairPath      string
	OracleRequireStaticKey bool
	OracleAllowEphemeral   bool

	// Economic defaults applied when the request omits overrides.
	DefaultInitialPrice     uint64
	DefaultSalesVelocityBPS int64
	DefaultTimeElapsed      uint64
	ProofTTL                time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	hardened := boolEnv("FAIRGATE_HARDENED", false)

	return Config{
		Addr:     stringEnv("FAIRGATE_ADDR", ":8080"),
		Hardened: hardened,

		RedisURL:    os.Getenv("REDIS_URL"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		KafkaBrokers: listEnv("KAFKA_BROKERS"),
		AuditTopic:   stringEnv("FAIRGATE_AUDIT_TOPIC", "fairgate.audit.security"),

		RateWindow:             secondsEnv("FAIRGATE_RATE_WINDOW_SECS", 60),
		OriginLimit:            positiveIntEnv("FAIRGATE_RATE_LIMIT_PER_ORIGIN", 120),
		IdentityLimit:          positiveIntEnv("FAIRGATE_RATE_LIMIT_PER_IDENTITY", 60),
		RateLimitRequireShared: boolEnv("FAIRGATE_RATE_LIMIT_REQUIRE_SHARED", false),

		ReplayTTL:           secondsEnv("FAIRGATE_REPLAY_TTL_SECS", 300),
		ReplayRequireShared: boolEnv("FAIRGATE_REPLAY_REQUIRE_SHARED", hardened),

		ProviderAllowlist:   pstrings.DedupeAndTrimLower(listEnv("FAIRGATE_PROVIDER_ALLOWLIST")),
		ProviderKeys:        pairsEnv("FAIRGATE_PROVIDER_KEYS"),
		RequireContextMatch: boolEnv("FAIRGATE_REQUIRE_CONTEXT_MATCH", true),

		OraclePrivateKey:       os.Getenv("ORACLE_PRIVATE_KEY"),
		OracleKeypairPath:      os.Getenv("ORACLE_KEYPAIR_PATH"),
		OracleRequireStaticKey: boolEnv("ORACLE_REQUIRE_STATIC_KEY", hardened),
		OracleAllowEphemeral:   boolEnv("ORACLE_ALLOW_EPHEMERAL", false),

		DefaultInitialPrice:     uint64Env("FAIRGATE_DEFAULT_INITIAL_PRICE", 1_000_000_000),
		DefaultSalesVelocityBPS: int64Env("FAIRGATE_DEFAULT_SALES_VELOCITY_BPS", 5_000),
		DefaultTimeElapsed:      uint64Env("FAIRGATE_DEFAULT_TIME_ELAPSED", 12),
		ProofTTL:                secondsEnv("FAIRGATE_PROOF_TTL_SECS", 300),
	}
}

func stringEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func boolEnv(name string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(name)) {
	case "1", "true":
		return true
	case "0", "false":
		return false
	}
	return fallback
}

func positiveIntEnv(name string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func secondsEnv(name string, fallbackSecs int) time.Duration {
	return time.Duration(positiveIntEnv(name, fallbackSecs)) * time.Second
}

func uint64Env(name string, fallback uint64) uint64 {
	v, err := strconv.ParseUint(os.Getenv(name), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func int64Env(name string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(name), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

// pairsEnv parses "name:value,name:value" lists, e.g. provider signing keys
// as "github:<hex>,spotify:<hex>".
func pairsEnv(name string) map[string]string {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || k == "" || v == "" {
			continue
		}
		out[strings.ToLower(k)] = v
	}
	return out
}

func listEnv(name string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	return pstrings.DedupeAndTrim(strings.Split(raw, ","))
}
