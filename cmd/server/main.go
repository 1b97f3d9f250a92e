// Command server runs the regulatory reporting portal: the HTTP API, the
// validation worker, the timeout sweeper, and the audit writer. Backing
// services are optional in development; anything unconfigured falls back to
// an in-process equivalent.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"regportal/internal/access"
	accessstore "regportal/internal/access/store"
	"regportal/internal/audit"
	"regportal/internal/events"
	"regportal/internal/jwt_token"
	"regportal/internal/platform/config"
	"regportal/internal/platform/httpserver"
	"regportal/internal/platform/logger"
	"regportal/internal/platform/postgres"
	platformredis "regportal/internal/platform/redis"
	reporthandler "regportal/internal/report/handler"
	reportmetrics "regportal/internal/report/metrics"
	"regportal/internal/report/service"
	reportstore "regportal/internal/report/store"
	"regportal/internal/storage"
	httptransport "regportal/internal/transport/http"
	"regportal/internal/validation"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	reports := newReportStore(db, log)
	grants := newGrantStore(db, log)
	auditStore := newAuditStore(db, log)

	queue, dequeuer := newValidationQueue(redisClient, log)
	publisher, err := newEventPublisher(ctx, cfg, log)
	if err != nil {
		return err
	}
	if closer, ok := publisher.(interface{ Close() }); ok {
		defer closer.Close()
	}

	uploads, err := newUploadProvider(ctx, cfg, log)
	if err != nil {
		return err
	}

	metrics := reportmetrics.New()
	auditPub := audit.NewPublisher(cfg.AuditBuffer, log, metrics.AuditDropped.Inc)
	auditWorker := audit.NewWorker(auditStore, auditPub.Inbox(), log)

	svc, err := service.New(service.Config{
		Store:    reports,
		Access:   access.NewEvaluator(grants),
		Queue:    queue,
		Uploads:  uploads,
		Auditor:  auditPub,
		Events:   publisher,
		Metrics:  metrics,
		Logger:   log,
		Deadline: cfg.ValidationDeadline,
	})
	if err != nil {
		return err
	}

	sweeper := service.NewSweeper(service.SweeperConfig{
		Store:    reports,
		Events:   publisher,
		Auditor:  auditPub,
		Metrics:  metrics,
		Logger:   log,
		Interval: cfg.SweepInterval,
	})
	validationWorker := validation.NewWorker(dequeuer, validation.NewBasicEngine(), svc, log)

	router := httptransport.NewRouter(httptransport.Dependencies{
		Reports:   reporthandler.New(svc, log),
		Validator: jwttoken.NewJWTService(cfg.JWTSigningKey, "regportal", "regportal-api"),
		Logger:    log,
		Health:    healthCheck(ctx, db, redisClient),
	})
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return validationWorker.Run(ctx) })
	g.Go(func() error { return sweeper.Run(ctx) })
	g.Go(func() error { return auditWorker.Run(ctx) })

	return g.Wait()
}

func newReportStore(db *sql.DB, log *slog.Logger) reportstore.Store {
	if db != nil {
		return reportstore.NewPostgres(db)
	}
	log.Warn("DATABASE_URL not set, using in-memory report store")
	return reportstore.NewInMemory()
}

func newGrantStore(db *sql.DB, log *slog.Logger) access.GrantStore {
	if db != nil {
		return accessstore.NewPostgres(db)
	}
	log.Warn("DATABASE_URL not set, using in-memory grant store")
	return accessstore.NewInMemory()
}

func newAuditStore(db *sql.DB, log *slog.Logger) audit.Store {
	if db != nil {
		return audit.NewPostgresStore(db)
	}
	log.Warn("DATABASE_URL not set, using in-memory audit store")
	return audit.NewInMemoryStore()
}

func newValidationQueue(client *platformredis.Client, log *slog.Logger) (validation.Queue, validation.Dequeuer) {
	if client != nil {
		q := validation.NewRedisQueue(client.Client, "")
		return q, q
	}
	log.Warn("REDIS_URL not set, using in-process validation queue")
	q := validation.NewChannelQueue(256)
	return q, q
}

func newEventPublisher(ctx context.Context, cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, lifecycle events stay in-process")
		return events.NewInMemory(), nil
	}
	return events.NewKafka(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
}

func newUploadProvider(ctx context.Context, cfg config.Config, log *slog.Logger) (storage.Provider, error) {
	if cfg.StorageEndpoint == "" {
		log.Warn("S3_ENDPOINT not set, using stub upload targets")
		return storage.NewStub(), nil
	}
	provider, err := storage.NewMinio(ctx, storage.MinioConfig{
		Endpoint:  cfg.StorageEndpoint,
		Bucket:    cfg.StorageBucket,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		UseSSL:    cfg.StorageUseSSL,
	})
	if err != nil {
		log.Warn("object store unavailable, using stub upload targets", "error", err)
		return storage.NewStub(), nil
	}
	return provider, nil
}

func healthCheck(ctx context.Context, db *sql.DB, redisClient *platformredis.Client) func() error {
	return func() error {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if db != nil {
			if err := db.PingContext(checkCtx); err != nil {
				return err
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(checkCtx); err != nil {
				return err
			}
		}
		return nil
	}
}
