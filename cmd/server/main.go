package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jaypee15/veirifire/internal/audit"
	badgehandler "github.com/jaypee15/veirifire/internal/badge/handler"
	badgemetrics "github.com/jaypee15/veirifire/internal/badge/metrics"
	badgeservice "github.com/jaypee15/veirifire/internal/badge/service"
	badgestore "github.com/jaypee15/veirifire/internal/badge/store"
	orghandler "github.com/jaypee15/veirifire/internal/org/handler"
	orgmetrics "github.com/jaypee15/veirifire/internal/org/metrics"
	orgservice "github.com/jaypee15/veirifire/internal/org/service"
	orgstore "github.com/jaypee15/veirifire/internal/org/store"
	"github.com/jaypee15/veirifire/internal/platform/config"
	"github.com/jaypee15/veirifire/internal/platform/database"
	"github.com/jaypee15/veirifire/internal/platform/health"
	"github.com/jaypee15/veirifire/internal/platform/httpserver"
	"github.com/jaypee15/veirifire/internal/platform/kafka/producer"
	"github.com/jaypee15/veirifire/internal/platform/logger"
	platformredis "github.com/jaypee15/veirifire/internal/platform/redis"
	"github.com/jaypee15/veirifire/pkg/platform/middleware/request"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal feature packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing veirifire",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"base_url", cfg.BaseURL,
	)

	// Postgres is optional: without DATABASE_URL everything runs on the
	// in-memory stores, which is enough for local development.
	pool, err := database.New(database.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}

	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}

	auditSink, auditCleanup := buildAuditSink(cfg, log)
	auditor := audit.NewPublisher(auditSink,
		audit.WithAsyncBuffer(1024),
		audit.WithPublisherLogger(log),
	)

	badgeM := badgemetrics.New()
	orgM := orgmetrics.New()

	var orgStore orgstore.Store = orgstore.NewInMemory()
	var badgeStore badgestore.Store = badgestore.NewInMemory()
	if pool != nil {
		orgStore = orgstore.NewPostgres(pool.DB())
		badgeStore = badgestore.NewPostgres(pool.DB())
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	orgSvc := orgservice.NewService(orgStore,
		orgservice.WithLogger(log),
		orgservice.WithAuditor(auditor),
		orgservice.WithMetrics(orgM),
	)

	badgeOpts := []badgeservice.Option{
		badgeservice.WithLogger(log),
		badgeservice.WithAuditor(auditor),
		badgeservice.WithMetrics(badgeM),
	}
	if rdb != nil {
		badgeOpts = append(badgeOpts,
			badgeservice.WithVerificationCache(badgestore.NewRedisCache(rdb.Client, cfg.Redis.CacheTTL, badgeM)),
		)
	}
	badgeSvc := badgeservice.NewService(badgeStore, orgSvc, cfg.BaseURL, badgeOpts...)

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("postgres", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	}
	if rdb != nil {
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return rdb.Health(ctx)
		})
	}

	router := chi.NewRouter()
	router.Use(request.Recovery(log))
	router.Use(request.RequestID)
	router.Use(request.RequestTime)
	router.Use(request.ClientIP)
	router.Use(request.Logger(log))
	router.Use(request.Timeout(30 * time.Second))

	healthHandler.Register(router)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	badgehandler.New(badgeSvc, log).Register(router)
	orghandler.New(orgSvc, log).Register(router)

	if rdb != nil {
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				rdb.RecordPoolStats()
			}
		}()
	}

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	auditor.Close()
	auditCleanup()
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error("redis close failed", "error", err)
		}
	}
	if pool != nil {
		if err := pool.Close(); err != nil {
			log.Error("database close failed", "error", err)
		}
	}

	log.Info("server stopped")
}

// buildAuditSink picks the audit event destination. With Kafka configured
// events go to the audit topic; otherwise they stay in process memory, which
// keeps local development honest about what would be published.
func buildAuditSink(cfg config.Server, log *slog.Logger) (audit.Store, func()) {
	if cfg.Kafka.Brokers == "" {
		log.Warn("KAFKA_BROKERS not set, audit events stay in memory")
		return audit.NewInMemoryStore(), func() {}
	}

	p, err := producer.New(cfg.Kafka, log)
	if err != nil {
		log.Error("kafka producer init failed", "error", err)
		os.Exit(1)
	}
	cleanup := func() {
		if err := p.Close(); err != nil {
			log.Error("kafka producer close failed", "error", err)
		}
	}
	return audit.NewKafkaStore(p, cfg.Kafka.AuditTopic), cleanup
}
