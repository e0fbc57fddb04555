// Command notifier delivers operator notifications. It consumes the
// notifications topic and forwards each message over SMTP, so the scheduler
// never blocks on a mail server.
//
// Usage:
//
//	go run ./cmd/notifier [-config configs/development.yaml]
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

	"github.com/MikohMick/SEO-MACHINE/internal/notify"
	"github.com/MikohMick/SEO-MACHINE/pkg/config"
	"github.com/MikohMick/SEO-MACHINE/pkg/health"
	"github.com/MikohMick/SEO-MACHINE/pkg/kafka"
	"github.com/MikohMick/SEO-MACHINE/pkg/logger"
	"github.com/MikohMick/SEO-MACHINE/pkg/middleware"
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
	slog.Info("starting notifier service", "topic", cfg.Kafka.Topics.Notifications)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mailer := notify.NewMailer(cfg.Notify,
		os.Getenv("SEO_SMTP_USERNAME"), os.Getenv("SEO_SMTP_PASSWORD"))

	handler := func(ctx context.Context, key, value []byte) error {
		n, err := kafka.DecodeJSON[notify.Notification](value)
		if err != nil {
			// A malformed message will never decode; drop it rather than
			// wedging the partition.
			slog.Error("notification dropped, undecodable", "key", string(key), "error", err)
			return nil
		}
		if err := mailer.Send(n); err != nil {
			return err
		}
		return nil
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.Notifications, handler)
	defer consumer.Close()

	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("consumer error", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port+1),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("notifier service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("notifier service stopped")
}
