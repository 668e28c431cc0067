package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fast-shipment/matching-api/internal/adapters/httpapi"
	"github.com/fast-shipment/matching-api/internal/adapters/kafka"
	memeventbus "github.com/fast-shipment/matching-api/internal/adapters/memory/eventbus"
	memidempotency "github.com/fast-shipment/matching-api/internal/adapters/memory/idempotency"
	memmatchcache "github.com/fast-shipment/matching-api/internal/adapters/memory/matchcache"
	memmatchrepo "github.com/fast-shipment/matching-api/internal/adapters/memory/matchrepo"
	memofferrepo "github.com/fast-shipment/matching-api/internal/adapters/memory/offerrepo"
	memshipmentrepo "github.com/fast-shipment/matching-api/internal/adapters/memory/shipmentrepo"
	postgres "github.com/fast-shipment/matching-api/internal/adapters/postgres"
	pgidempotency "github.com/fast-shipment/matching-api/internal/adapters/postgres/idempotency"
	pgmatchrepo "github.com/fast-shipment/matching-api/internal/adapters/postgres/matchrepo"
	pgofferrepo "github.com/fast-shipment/matching-api/internal/adapters/postgres/offerrepo"
	pgshipmentrepo "github.com/fast-shipment/matching-api/internal/adapters/postgres/shipmentrepo"
	redisadapter "github.com/fast-shipment/matching-api/internal/adapters/redis"
	"github.com/fast-shipment/matching-api/internal/app/matching"
	"github.com/fast-shipment/matching-api/internal/app/offers"
	"github.com/fast-shipment/matching-api/internal/app/shipments"
	"github.com/fast-shipment/matching-api/internal/match"
	"github.com/fast-shipment/matching-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/fast-shipment/matching-api/internal/platform/clock"
	"github.com/fast-shipment/matching-api/internal/platform/config"
	"github.com/fast-shipment/matching-api/internal/ports/out/eventbus"
	idempotencyport "github.com/fast-shipment/matching-api/internal/ports/out/idempotency"
	"github.com/fast-shipment/matching-api/internal/ports/out/matchcache"
	matchrepoport "github.com/fast-shipment/matching-api/internal/ports/out/matchrepo"
	offerrepoport "github.com/fast-shipment/matching-api/internal/ports/out/offerrepo"
	shipmentrepoport "github.com/fast-shipment/matching-api/internal/ports/out/shipmentrepo"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	var authMW func(http.Handler) http.Handler
	switch cfg.Auth.Mode {
	case "dev":
		logger.Warn("auth running in dev mode, do not use in production")
		authMW = httpapi.NewDevAuthMiddleware(cfg.Auth.DevSubject)
	default:
		verifier := jwtverifier.New(cfg.Auth.JWT.ToJWTConfig())
		authMW = httpapi.NewAuthMiddleware(verifier)
	}

	clk := platformclock.NewSystemClock()

	var (
		offerRepo    offerrepoport.Repository
		shipmentRepo shipmentrepoport.Repository
		matchRepo    matchrepoport.Repository
		idemStore    idempotencyport.Store
		cleanup      []func()
	)

	switch cfg.Storage.Backend {
	case "postgres":
		if cfg.Postgres.Migrate {
			if err := postgres.Migrate(migrateDSN(cfg.Postgres.DSN)); err != nil {
				logger.Error("run migrations", "error", err)
				os.Exit(1)
			}
		}
		pool, err := postgres.NewPool(context.Background(), cfg.Postgres.DSN, postgres.PoolOptions{
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			logger.Error("open postgres", "error", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)

		offerRepo = pgofferrepo.NewRepo(pool)
		shipmentRepo = pgshipmentrepo.NewRepo(pool)
		matchRepo = pgmatchrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	default:
		offerRepo = memofferrepo.NewRepo()
		shipmentRepo = memshipmentrepo.NewRepo()
		matchRepo = memmatchrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	}

	var bus eventbus.Publisher
	if cfg.Kafka.Enabled {
		pub := kafka.NewPublisher(kafka.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		cleanup = append(cleanup, func() { _ = pub.Close() })
		bus = pub
	} else {
		bus = memeventbus.NewRecorder()
	}

	var cache matchcache.Cache
	if cfg.Match.CacheSuggestion {
		if cfg.Redis.Enabled {
			rc, err := redisadapter.NewCache(redisadapter.Config{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err != nil {
				logger.Error("open redis", "error", err)
				os.Exit(1)
			}
			cleanup = append(cleanup, func() { _ = rc.Close() })
			cache = rc
		} else {
			cache = memmatchcache.NewCache()
		}
	}

	matchingSvc := matching.NewService(offerRepo, shipmentRepo, matchRepo, clk, matching.Options{
		Config:       matchConfig(cfg.Match),
		Bus:          bus,
		Cache:        cache,
		CacheTTL:     cfg.Match.SuggestionTTL,
		FetchTimeout: cfg.Match.FetchTimeout,
		Logger:       logger,
	})
	// Anchor edits drop the anchor's cached suggestions.
	offersSvc := offers.NewService(offerRepo, clk,
		offers.WithChangeListener(matchingSvc.InvalidateSuggestionsForOffer))
	shipmentsSvc := shipments.NewService(shipmentRepo, clk,
		shipments.WithChangeListener(matchingSvc.InvalidateSuggestionsForShipment))

	api := httpapi.NewServer(offersSvc, shipmentsSvc, matchingSvc, idemStore)
	handler := httpapi.NewRouter(api, authMW)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("api listening", "port", cfg.HTTP.Port, "storage", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	for i := len(cleanup) - 1; i >= 0; i-- {
		cleanup[i]()
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func matchConfig(m config.Match) match.Config {
	cfg := match.Config{
		Weights: match.Weights{
			Route:    m.RouteWeight,
			Date:     m.DateWeight,
			Capacity: m.CapacityWeight,
			Type:     m.TypeWeight,
		},
		MinScore: m.MinScore,
		TopN:     m.TopN,
	}
	if m.OverCapacity == "exclude" {
		cfg.OverCapacity = match.OverCapacityExclude
	} else {
		cfg.OverCapacity = match.OverCapacityZero
	}
	return cfg
}

// migrateDSN rewrites a postgres:// DSN to the pgx5:// scheme golang-migrate
// expects.
func migrateDSN(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") {
		return "pgx5://" + strings.TrimPrefix(dsn, "postgres://")
	}
	if strings.HasPrefix(dsn, "postgresql://") {
		return "pgx5://" + strings.TrimPrefix(dsn, "postgresql://")
	}
	return dsn
}
