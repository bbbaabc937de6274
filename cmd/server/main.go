package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"fairgate/internal/botcheck"
	"fairgate/internal/oracle"
	"fairgate/internal/platform/clock"
	"fairgate/internal/platform/config"
	"fairgate/internal/platform/httpserver"
	"fairgate/internal/platform/kafka"
	"fairgate/internal/platform/logger"
	platformmetrics "fairgate/internal/platform/metrics"
	"fairgate/internal/platform/middleware"
	platformredis "fairgate/internal/platform/redis"
	"fairgate/internal/quote"
	quotehandler "fairgate/internal/quote/handler"
	quotemetrics "fairgate/internal/quote/metrics"
	"fairgate/internal/ratelimit"
	ratelimitmetrics "fairgate/internal/ratelimit/metrics"
	"fairgate/internal/replay"
	"fairgate/internal/verifier"
	"fairgate/pkg/platform/audit"
	"fairgate/pkg/platform/httputil"
)

// main wires the dependency graph and owns the process lifecycle. Domain
// logic lives under internal/.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("redis connected")
	}

	var pool *pgxpool.Pool
	if cfg.PostgresDSN != "" {
		pool, err = pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		if _, err := pool.Exec(ctx, replay.Schema); err != nil {
			return fmt.Errorf("ensure replay schema: %w", err)
		}
		log.Info("postgres connected")
	}

	signer, err := oracle.NewSigner(oracle.Options{
		PrivateKey:    cfg.OraclePrivateKey,
		KeypairPath:   cfg.OracleKeypairPath,
		RequireStatic: cfg.OracleRequireStaticKey && !cfg.OracleAllowEphemeral,
	})
	if err != nil {
		return fmt.Errorf("provision oracle key: %w", err)
	}
	log.Info("oracle key ready", "pubkey", signer.PublicKeyHex(), "ephemeral", signer.Ephemeral())

	var publisher audit.Publisher = audit.NewMemoryPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := kafka.NewPublisher(cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kp.Close()
		publisher = kp
		log.Info("kafka audit publisher ready", "topic", cfg.AuditTopic)
	}

	clk := clock.System()

	// Shared claim stores: postgres when configured, redis otherwise. Each
	// guard gets its own namespace so proof identifiers and quote uniq keys
	// can never collide across domains.
	sharedClaims := func(prefix string) replay.ClaimStore {
		switch {
		case pool != nil:
			return replay.NewPostgresStore(pool, clk, prefix)
		case redisClient != nil:
			return replay.NewRedisStore(redisClient.Client, prefix)
		}
		return nil
	}

	guardOpts := func(prefix string) []replay.GuardOption {
		opts := []replay.GuardOption{
			replay.WithTTL(cfg.ReplayTTL),
			replay.WithRequireShared(cfg.ReplayRequireShared),
			replay.WithLogger(log),
		}
		if store := sharedClaims(prefix); store != nil {
			opts = append(opts, replay.WithSharedStore(store))
		}
		return opts
	}
	proofGuard := replay.NewGuard(replay.NewMemoryStore(clk), guardOpts(replay.KeyPrefixProof)...)
	quoteGuard := replay.NewGuard(replay.NewMemoryStore(clk), guardOpts(replay.KeyPrefixQuote)...)

	providerKeys, err := decodeProviderKeys(cfg.ProviderKeys)
	if err != nil {
		return fmt.Errorf("parse provider keys: %w", err)
	}
	bundleVerifier := verifier.New(
		verifier.NewJWSChecker(providerKeys),
		proofGuard,
		verifier.WithAllowlist(cfg.ProviderAllowlist),
		verifier.WithHardened(cfg.Hardened),
		verifier.WithContextMatch(cfg.RequireContextMatch),
		verifier.WithLogger(log),
	)

	limiterOpts := []ratelimit.LimiterOption{
		ratelimit.WithWindow(cfg.RateWindow),
		ratelimit.WithLimits(int64(cfg.OriginLimit), int64(cfg.IdentityLimit)),
		ratelimit.WithRequireShared(cfg.RateLimitRequireShared),
		ratelimit.WithMetrics(ratelimitmetrics.New()),
		ratelimit.WithLogger(log),
	}
	if redisClient != nil {
		limiterOpts = append(limiterOpts, ratelimit.WithSharedCounter(ratelimit.NewRedisCounter(redisClient.Client)))
	}
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryCounter(clk), limiterOpts...)

	service := quote.NewService(
		bundleVerifier,
		limiter,
		botcheck.New(log),
		quoteGuard,
		signer,
		quote.Economics{
			InitialPrice:     cfg.DefaultInitialPrice,
			SalesVelocityBPS: cfg.DefaultSalesVelocityBPS,
			TimeElapsed:      cfg.DefaultTimeElapsed,
			ZKProvider:       1,
			ProofTTL:         cfg.ProofTTL,
		},
		quote.WithLogger(log),
		quote.WithMetrics(quotemetrics.New()),
		quote.WithPublisher(publisher),
	)

	router := chi.NewRouter()
	router.Use(middleware.Metadata)
	router.Use(platformmetrics.NewHTTP().Middleware)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", healthHandler(redisClient, pool))
	quotehandler.New(service, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("fairgate oracle listening", "addr", cfg.Addr, "hardened", cfg.Hardened)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func decodeProviderKeys(raw map[string]string) (map[string]ed25519.PublicKey, error) {
	keys := make(map[string]ed25519.PublicKey, len(raw))
	for provider, encoded := range raw {
		decoded, err := hex.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", provider, err)
		}
		if len(decoded) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("provider %s: key must be %d bytes", provider, ed25519.PublicKeySize)
		}
		keys[provider] = ed25519.PublicKey(decoded)
	}
	return keys, nil
}

func healthHandler(redisClient *platformredis.Client, pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				status["status"] = "degraded"
				status["redis"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				status["status"] = "degraded"
				status["postgres"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, code, status)
	}
}
