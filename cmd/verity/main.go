// Command verity owns the marketplace database schema: it applies the
// registered idempotent migrations, reports schema readiness, and serves the
// admin API.
//
// Modes:
//
//	verity migrate   apply pending migrations and exit (default)
//	verity status    print journal state for every registered migration
//	verity serve     run the admin HTTP API and the audit outbox worker
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"verity/internal/audit"
	auditmetrics "verity/internal/audit/metrics"
	"verity/internal/audit/publisher"
	auditpg "verity/internal/audit/store/postgres"
	auditworker "verity/internal/audit/worker"
	"verity/internal/inspect"
	inspectmetrics "verity/internal/inspect/metrics"
	"verity/internal/migrate"
	"verity/internal/migrate/lock"
	migratemetrics "verity/internal/migrate/metrics"
	"verity/internal/platform/config"
	"verity/internal/platform/httpserver"
	"verity/internal/platform/logger"
	platformmetrics "verity/internal/platform/metrics"
	"verity/internal/platform/postgres"
	platformredis "verity/internal/platform/redis"
	httptransport "verity/internal/transport/http"
	"verity/pkg/platform/middleware/auth"
)

const version = "0.4.0"

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	mode := "migrate"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	if err := run(mode, cfg, log); err != nil {
		log.Error("fatal", "mode", mode, "error", err)
		os.Exit(1)
	}
}

func run(mode string, cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditStore := auditpg.New(db)
	if err := auditStore.EnsureSchema(ctx); err != nil {
		return err
	}

	opts := []migrate.Option{
		migrate.WithMetrics(migratemetrics.New()),
		migrate.WithAuditor(audit.NewRecorder(auditStore)),
	}
	if redisClient != nil {
		opts = append(opts, migrate.WithLock(lock.NewRedisMutex(redisClient.Client, cfg.Redis.LockTTL)))
	}
	runner := migrate.NewRunner(migrate.NewPostgres(db), log, opts...)
	svc := migrate.NewService(runner)

	switch mode {
	case "migrate":
		result, err := svc.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("run %s: applied %d, skipped %d\n", result.RunID, len(result.Applied), len(result.Skipped))
		return nil

	case "status":
		entries, err := svc.Status(ctx)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(entries)

	case "serve":
		return serve(ctx, cfg, log, db, redisClient, svc, auditStore)

	default:
		return fmt.Errorf("unknown mode %q (want migrate, status, or serve)", mode)
	}
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger, db *sql.DB, redisClient *platformredis.Client, svc *migrate.Service, auditStore *auditpg.Store) error {
	platformmetrics.New(version)

	schemaSvc := inspect.NewService(inspect.New(db), audit.NewRecorder(auditStore), log,
		inspect.WithMetrics(inspectmetrics.New()))

	var handlerOpts []httptransport.HandlerOption
	if redisClient != nil {
		handlerOpts = append(handlerOpts, httptransport.WithRedisHealth(redisClient))
	}
	handler := httptransport.NewHandler(svc, schemaSvc, db, log, handlerOpts...)
	router := httptransport.NewRouter(handler, auth.NewHMACValidator(cfg.JWTSigningKey))
	srv := httpserver.New(cfg.Addr, router)

	if cfg.AutoMigrate {
		if _, err := svc.Run(ctx); err != nil {
			return err
		}
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := publisher.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer sink.Close()

		w := auditworker.New(auditStore, sink, log, cfg.Kafka.DrainInterval,
			auditworker.WithMetrics(auditmetrics.New()))
		go func() {
			if err := w.Run(workerCtx); err != nil && workerCtx.Err() == nil {
				log.Error("audit worker stopped", "error", err)
			}
		}()
	}

	log.Info("starting verity", "addr", cfg.Addr, "version", version)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
