// Command scheduler runs the SEO automation core: keyword monitoring,
// priority ranking, content generation, duplicate scanning, and retention
// cleanup, all on fixed daily schedules with shared daily API budgets.
//
// It also serves the operator API (manual triggers, emergency stop, status)
// plus health and metrics endpoints.
//
// Usage:
//
//	go run ./cmd/scheduler [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikohMick/SEO-MACHINE/internal/audit"
	"github.com/MikohMick/SEO-MACHINE/internal/clients/keywordapi"
	"github.com/MikohMick/SEO-MACHINE/internal/clients/openai"
	"github.com/MikohMick/SEO-MACHINE/internal/clients/wordpress"
	"github.com/MikohMick/SEO-MACHINE/internal/jobs"
	"github.com/MikohMick/SEO-MACHINE/internal/keywords"
	"github.com/MikohMick/SEO-MACHINE/internal/ledger"
	"github.com/MikohMick/SEO-MACHINE/internal/monitor"
	"github.com/MikohMick/SEO-MACHINE/internal/notify"
	"github.com/MikohMick/SEO-MACHINE/internal/pipeline"
	"github.com/MikohMick/SEO-MACHINE/internal/queue"
	"github.com/MikohMick/SEO-MACHINE/internal/ranker"
	"github.com/MikohMick/SEO-MACHINE/internal/scheduler"
	"github.com/MikohMick/SEO-MACHINE/internal/server"
	"github.com/MikohMick/SEO-MACHINE/pkg/config"
	"github.com/MikohMick/SEO-MACHINE/pkg/health"
	"github.com/MikohMick/SEO-MACHINE/pkg/kafka"
	"github.com/MikohMick/SEO-MACHINE/pkg/logger"
	"github.com/MikohMick/SEO-MACHINE/pkg/metrics"
	"github.com/MikohMick/SEO-MACHINE/pkg/middleware"
	"github.com/MikohMick/SEO-MACHINE/pkg/postgres"
	"github.com/MikohMick/SEO-MACHINE/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting scheduler service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage and messaging.
	pg, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	rdb, err := redis.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	auditProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AuditEvents)
	defer auditProducer.Close()
	notifyProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Notifications)
	defer notifyProducer.Close()

	m := metrics.New()

	// Core components.
	auditStore := audit.NewStore(pg, auditProducer, m)
	keywordStore := keywords.NewStore(pg)
	duplicateScanner := keywords.NewDuplicateScanner(pg)
	budget := ledger.NewPostgresLedger(pg, map[ledger.API]int{
		ledger.APIKeyword: cfg.KeywordAPI.DailyLimit,
		ledger.APIContent: cfg.ContentAPI.DailyLimit,
	})

	volumeClient := keywordapi.New(cfg.KeywordAPI, rdb, auditStore)
	contentClient := openai.New(cfg.ContentAPI, auditStore)
	site := wordpress.New(cfg.WordPress, auditStore)
	notifier := notify.NewKafkaNotifier(notifyProducer)

	emergency := scheduler.NewEmergencyStop(rdb)
	halted := emergency.Engaged

	mon := monitor.New(keywordStore, volumeClient, budget, notifier, halted, monitor.Config{
		BatchSize:      cfg.Monitoring.BatchSize,
		SurgeThreshold: cfg.Monitoring.SurgeThreshold,
		MinSurgeVolume: cfg.Monitoring.MinSurgeVolume,
		Staleness:      time.Duration(cfg.Monitoring.StalenessWindowDays) * 24 * time.Hour,
	}, m)

	rank := ranker.New(keywordStore)
	builder := queue.NewBuilder(keywordStore, cfg.Monitoring.SurgeThreshold,
		time.Duration(cfg.Content.SurgeWindowHours)*time.Hour)
	pipe := pipeline.New(contentClient, site, keywordStore, auditStore, budget, halted,
		pipeline.Config{
			DailyLimit:   cfg.Content.DailyLimit,
			ExcerptWords: cfg.Content.ExcerptWordLimit,
		}, m)
	importer := keywords.NewImporter(site, volumeClient, budget, keywordStore)

	runner := jobs.NewRunner(mon, pipe, builder, rank, auditStore, duplicateScanner,
		importer, site, budget, cfg.Cleanup, m)

	// Schedules: monitoring in the early morning, content through the day,
	// ranking overnight, housekeeping on the weekend.
	sched := scheduler.New(emergency, m)
	sched.Register(jobs.JobMonitoring, scheduler.DailyAt(0, 6), runner.RunMonitoring)
	sched.Register(jobs.JobContent, scheduler.DailyAt(0, 9, 12, 15, 18, 21), runner.RunContent)
	sched.Register(jobs.JobPriority, scheduler.DailyAt(0, 2), runner.RunPriority)
	sched.Register(jobs.JobCleanup, scheduler.WeeklyAt(time.Sunday, 3, 0), runner.RunCleanup)
	sched.Register(jobs.JobDuplicates, scheduler.DailyAt(0, 4), runner.RunDuplicates)
	sched.Register(jobs.JobImport, nil, runner.RunImport)

	go func() {
		if err := sched.Start(ctx); err != nil {
			slog.Error("scheduler error", "error", err)
		}
	}()

	// Health checks over the hard dependencies.
	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := pg.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if err := rdb.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "producers active"}
	})

	// Operator API.
	api := server.New(sched, pipe, budget, keywordStore, auditStore, duplicateScanner, cfg.Monitoring)

	mux := http.NewServeMux()
	api.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("scheduler service listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("scheduler service stopped")
}
