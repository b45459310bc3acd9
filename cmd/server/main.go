package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"venuegraph/internal/aggregator"
	"venuegraph/internal/audit"
	"venuegraph/internal/ingest"
	"venuegraph/internal/platform/config"
	"venuegraph/internal/platform/httpserver"
	"venuegraph/internal/platform/logger"
	"venuegraph/internal/platform/postgres"
	platformredis "venuegraph/internal/platform/redis"
	"venuegraph/internal/quality"
	"venuegraph/internal/refresh"
	"venuegraph/internal/registry"
	registrymetrics "venuegraph/internal/registry/metrics"
	"venuegraph/internal/scorecache"
	httptransport "venuegraph/internal/transport/http"
	"venuegraph/pkg/geo"
)

// main wires the stores, services and background loops, then runs the HTTP
// server until interrupted. Business logic lives in the internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when a DSN is configured, in-memory otherwise.
	var (
		db       *sql.DB
		venues   registry.VenueStore
		events   registry.EventStore
		contexts aggregator.ContextStore
	)
	if cfg.PostgresDSN != "" {
		db, err = postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		venues = registry.NewPostgresVenueStore(db)
		events = registry.NewPostgresEventStore(db)
		contexts = aggregator.NewPostgresContextStore(db)
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		venues = registry.NewInMemoryVenueStore()
		events = registry.NewInMemoryEventStore()
		contexts = aggregator.NewInMemoryContextStore()
	}

	// Score caches: one per layer, redis-backed when configured.
	var spending, college, combined scorecache.Cache
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		spending = scorecache.NewRedisCache(redisClient.Client, "spending")
		college = scorecache.NewRedisCache(redisClient.Client, "college")
		combined = scorecache.NewRedisCache(redisClient.Client, "combined")
	} else {
		spending = scorecache.NewMemoryCache()
		college = scorecache.NewMemoryCache()
		combined = scorecache.NewMemoryCache()
	}

	auditPublisher, err := buildAuditPublisher(ctx, cfg, db, log)
	if err != nil {
		return err
	}

	regOpts := []registry.Option{
		registry.WithLogger(log),
		registry.WithMetrics(registrymetrics.New()),
		registry.WithAudit(auditPublisher),
	}
	if db != nil {
		regOpts = append(regOpts, registry.WithDB(db))
	}
	reg := registry.NewService(venues, events, registry.NewMatcher(registry.DefaultConfig()), regOpts...)

	qc := quality.New(quality.WithLogger(log))
	agg := aggregator.NewService(venues, events, contexts, aggregator.WithLogger(log))
	engine := scorecache.NewEngine(spending, college, combined, scorecache.WithLogger(log))

	buffer := ingest.NewBuffer(0)
	if len(cfg.KafkaBrokers) > 0 {
		consumer, err := ingest.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup, buffer, log)
		if err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("ingest consumer stopped", "error", err)
			}
		}()
	} else {
		log.Warn("no kafka brokers configured, ingestion disabled")
	}

	orch := refresh.New(buffer, qc, reg, agg, engine,
		refresh.WithLogger(log),
		refresh.WithMetrics(refresh.NewMetrics()),
		refresh.WithWorkers(cfg.ValidateWorkers),
		refresh.WithDeadline(cfg.RefreshDeadline),
		refresh.WithStaleAfter(cfg.StaleAfter),
	)
	go refreshLoop(ctx, orch, cfg.RefreshInterval, log)

	if cfg.AdminTokenKey == "" {
		log.Warn("admin_token_key is empty, refresh endpoint tokens are not secure")
	}
	tokens := httptransport.NewTokenService(cfg.AdminTokenKey, "venuegraph")
	handler := httptransport.New(agg, orch, geo.Bounds{
		North: cfg.Bounds.North,
		South: cfg.Bounds.South,
		East:  cfg.Bounds.East,
		West:  cfg.Bounds.West,
	}, log)
	router := httptransport.NewRouter(handler, tokens, log)

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting venuegraph", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// buildAuditPublisher routes match events to kafka when brokers are
// configured, keeping the registration path decoupled through a worker.
// Without brokers, events land in the match_audit table when postgres is
// available, and in memory otherwise.
func buildAuditPublisher(ctx context.Context, cfg *config.Config, db *sql.DB, log *slog.Logger) (*audit.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		if db != nil {
			return audit.NewPublisher(audit.NewPostgresStore(db)), nil
		}
		return audit.NewPublisher(audit.NewInMemoryStore()), nil
	}

	sink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
	if err != nil {
		return nil, fmt.Errorf("start audit sink: %w", err)
	}

	inbox := audit.NewChannelStore(0)
	worker := audit.NewWorker(sink, inbox.Inbox())
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()
	return audit.NewPublisher(inbox), nil
}

// refreshLoop triggers an initial refresh on startup, then one per interval.
// Skipped and partial runs are the orchestrator's call.
func refreshLoop(ctx context.Context, orch *refresh.Orchestrator, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := orch.Refresh(ctx, false)
		if err != nil {
			log.Error("scheduled refresh failed", "error", err)
		} else if !status.Skipped {
			log.Info("scheduled refresh complete",
				"registered", status.Registered,
				"events", status.Events,
				"partial", status.Partial,
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
