package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"amlguard/internal/audittrail"
	auditmetrics "amlguard/internal/audittrail/metrics"
	auditservice "amlguard/internal/audittrail/service"
	auditstore "amlguard/internal/audittrail/store"
	jwttoken "amlguard/internal/jwt_token"
	"amlguard/internal/platform/config"
	"amlguard/internal/platform/httpserver"
	"amlguard/internal/platform/kafka"
	"amlguard/internal/platform/logger"
	platformmetrics "amlguard/internal/platform/metrics"
	platformredis "amlguard/internal/platform/redis"
	"amlguard/internal/profile"
	profilemetrics "amlguard/internal/profile/metrics"
	profileservice "amlguard/internal/profile/service"
	"amlguard/internal/registry"
	registrymetrics "amlguard/internal/registry/metrics"
	registryservice "amlguard/internal/registry/service"
	registrystore "amlguard/internal/registry/store"
	"amlguard/internal/security"
	securitymetrics "amlguard/internal/security/metrics"
	securityservice "amlguard/internal/security/service"
	"amlguard/internal/supervision"
	supervisionservice "amlguard/internal/supervision/service"
	"amlguard/pkg/platform/audit/publisher"
	kafkasink "amlguard/pkg/platform/audit/publishers/kafka"
)

// infra holds the optional external clients so they can be closed on exit.
type infra struct {
	db       *sql.DB
	pool     *pgxpool.Pool
	redis    *platformredis.Client
	producer *kafka.Producer
}

func (i *infra) close(log *slog.Logger) {
	if i.producer != nil {
		i.producer.Close()
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Warn("close redis", "error", err)
		}
	}
	if i.pool != nil {
		i.pool.Close()
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			log.Warn("close postgres", "error", err)
		}
	}
}

// app is the fully wired process.
type app struct {
	log         *slog.Logger
	infra       *infra
	publisher   *publisher.Publisher
	registry    *registry.Service
	security    *security.Service
	auditTrail  *audittrail.Service
	profile     *profile.Service
	supervision *supervision.Service
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	if cfg.UsesDevSigningKey() {
		log.Warn("using the development JWT signing key; set AMLGUARD_JWT_SIGNING_KEY in production")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.infra.close(log)
	defer a.publisher.Close()

	jwts := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, tokenIssuer, tokenAudience)
	router := newRouter(a, jwts, platformmetrics.New())
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	g.Go(func() error {
		return ignoreCancel(a.registry.StartSweep(gctx, cfg.Workers.SweepInterval))
	})
	g.Go(func() error {
		return ignoreCancel(a.security.StartSweep(gctx, cfg.Workers.SweepInterval))
	})

	log.Info("amlguard started",
		"version", version,
		"addr", cfg.Server.Addr,
		"storage", cfg.Storage.Backend,
		"redis", cfg.Redis.URL != "",
		"kafka", len(cfg.Kafka.Brokers) > 0,
	)
	if err := g.Wait(); err != nil {
		log.Error("amlguard stopped with error", "error", err)
		return err
	}
	log.Info("amlguard stopped")
	return nil
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// build connects the configured backends and constructs every module.
func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	in := &infra{}
	fail := func(err error) (*app, error) {
		in.close(log)
		return nil, err
	}

	registryStore, auditStore, err := openStores(ctx, cfg, in)
	if err != nil {
		return fail(err)
	}

	auditTrail := audittrail.NewService(auditStore,
		auditservice.WithLogger(log),
		auditservice.WithMetrics(auditmetrics.New()),
	)

	pubOpts := []publisher.Option{
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(cfg.Workers.AuditBuffer),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return fail(fmt.Errorf("connect kafka: %w", err))
		}
		in.producer = producer
		if err := producer.EnsureTopic(ctx, cfg.Kafka.AuditTopic); err != nil {
			return fail(fmt.Errorf("ensure audit topic: %w", err))
		}
		pubOpts = append(pubOpts, publisher.WithSink(kafkasink.NewSink(producer, cfg.Kafka.AuditTopic)))
	}
	auditPublisher := publisher.NewPublisher(auditTrail, pubOpts...)

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fail(fmt.Errorf("connect redis: %w", err))
	}
	in.redis = redisClient
	var failures securityservice.FailureWindow
	if redisClient != nil {
		failures = security.NewFailureWindow(redisClient.Client, cfg.Escalation.Window, log)
	} else {
		failures = security.NewFailureWindow(nil, cfg.Escalation.Window, log)
	}

	registrySvc := registry.NewService(registryStore,
		registryservice.WithLogger(log),
		registryservice.WithAuditPublisher(auditPublisher),
		registryservice.WithMetrics(registrymetrics.New()),
	)
	securitySvc, err := security.NewService(security.InMemoryStores(), failures,
		securityservice.WithLogger(log),
		securityservice.WithAuditPublisher(auditPublisher),
		securityservice.WithMetrics(securitymetrics.New()),
		securityservice.WithEscalation(cfg.Escalation.Threshold, cfg.Escalation.Window),
	)
	if err != nil {
		auditPublisher.Close()
		return fail(err)
	}
	profileSvc := profile.NewService(
		profileservice.WithLogger(log),
		profileservice.WithAuditPublisher(auditPublisher),
		profileservice.WithMetrics(profilemetrics.New()),
	)
	supervisionSvc := supervision.NewService(registrySvc, securitySvc, auditTrail,
		supervisionservice.WithLogger(log),
	)

	return &app{
		log:         log,
		infra:       in,
		publisher:   auditPublisher,
		registry:    registrySvc,
		security:    securitySvc,
		auditTrail:  auditTrail,
		profile:     profileSvc,
		supervision: supervisionSvc,
	}, nil
}

// openStores returns the registry and audit trail stores for the configured
// backend, running schema migrations for PostgreSQL.
func openStores(ctx context.Context, cfg config.Config, in *infra) (registryservice.Store, auditservice.Store, error) {
	if cfg.Storage.Backend != config.StoragePostgres {
		return registrystore.NewInMemory(), auditstore.NewInMemory(), nil
	}

	db, err := sql.Open("postgres", cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	in.db = db
	if err := db.PingContext(ctx); err != nil {
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	entities := registrystore.NewPostgres(db)
	if err := entities.Migrate(ctx); err != nil {
		return nil, nil, fmt.Errorf("migrate registry: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit pool: %w", err)
	}
	in.pool = pool
	trail := auditstore.NewPostgres(pool)
	if err := trail.Migrate(ctx); err != nil {
		return nil, nil, fmt.Errorf("migrate audit trail: %w", err)
	}
	return entities, trail, nil
}
