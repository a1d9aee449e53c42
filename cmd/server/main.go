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

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"fieldreg/internal/audit"
	"fieldreg/internal/options"
	"fieldreg/internal/platform/config"
	"fieldreg/internal/platform/httpserver"
	"fieldreg/internal/platform/logger"
	"fieldreg/internal/platform/metrics"
	"fieldreg/internal/platform/redis"
	"fieldreg/internal/platform/restclient"
	"fieldreg/internal/records"
	"fieldreg/internal/registration"
	"fieldreg/internal/session"
	httptransport "fieldreg/internal/transport/http"
)

// main wires the registration API: remote records and options, the current
// actor store, the audit pipeline and the HTTP server.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	rest, err := restclient.New(cfg.Remote.BaseURL,
		restclient.WithTimeout(cfg.Remote.Timeout),
		restclient.WithLogger(log),
	)
	if err != nil {
		return err
	}
	recs := records.NewClient(rest, log, m)
	checks := map[string]httptransport.HealthCheck{}

	store, closeStore, err := sessionStore(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	sink, closeSink, err := auditSink(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeSink()
	publisher := audit.NewPublisher(cfg.Audit.Buffer, audit.WithLogger(log), audit.WithMetrics(m))
	worker := audit.NewWorker(sink, publisher.Inbox(), log, m)

	sessions := session.NewService(store, recs, session.WithLogger(log), session.WithAudit(publisher))
	forms := registration.NewFormStore(cfg.Server.FormIdleTTL, m)
	service := registration.New(recs, sessions, forms, registration.Config{
		Options:   options.NewHTTPRepository(rest, log, m),
		Resolver:  recs,
		Debounce:  cfg.Lookup.Debounce,
		MinDigits: cfg.Lookup.MinDigits,
		Location:  limaLocation(log),
	}, registration.WithLogger(log), registration.WithMetrics(m), registration.WithAudit(publisher))

	handler := httptransport.New(service, sessions, log, m, cfg.Server.RequestTimeout)
	srv := httpserver.New(cfg.Server, httptransport.NewRouter(handler, reg, checks), log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting fieldreg", "addr", cfg.Server.Addr, "session_store", cfg.Session.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return forms.Run(gctx, time.Minute)
	})
	g.Go(func() error {
		// The worker drains the inbox until the publisher is closed below.
		return worker.Run(context.WithoutCancel(gctx))
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		publisher.Close()
		if err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("server stopped")
		return nil
	})
	return g.Wait()
}

// sessionStore opens the configured current-actor store and registers its
// health check.
func sessionStore(ctx context.Context, cfg config.Config, log *slog.Logger, checks map[string]httptransport.HealthCheck) (session.Store, func(), error) {
	noop := func() {}
	switch cfg.Session.Store {
	case "", "memory":
		return session.NewMemoryStore(), noop, nil
	case "file":
		return session.NewFileStore(cfg.Session.Path), noop, nil
	case "redis":
		client, err := redis.New(ctx, cfg.Redis, log)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, errors.New("session store redis requires REDIS_URL")
		}
		checks["redis"] = client.Health
		return session.NewRedisStore(client.Client, session.WithTTL(cfg.Session.TTL)), func() { _ = client.Close() }, nil
	case "postgres":
		if cfg.DB.URL == "" {
			return nil, nil, errors.New("session store postgres requires DATABASE_URL")
		}
		db, err := sql.Open("pgx", cfg.DB.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		store := session.NewPostgresStore(db, session.WithTable(cfg.DB.Table))
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		checks["postgres"] = db.PingContext
		return store, func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
}

// auditSink publishes to Kafka when brokers are configured and keeps events
// in memory otherwise.
func auditSink(ctx context.Context, cfg config.Config, log *slog.Logger, checks map[string]httptransport.HealthCheck) (audit.Sink, func(), error) {
	if len(cfg.Audit.Brokers) == 0 {
		log.Info("audit events kept in memory; set KAFKA_BROKERS to publish them")
		return audit.NewMemorySink(), func() {}, nil
	}
	sink, err := audit.NewKafkaSink(cfg.Audit.Brokers, cfg.Audit.Topic)
	if err != nil {
		return nil, nil, err
	}
	if err := sink.EnsureTopic(ctx, 1, 1); err != nil {
		sink.Close()
		return nil, nil, err
	}
	checks["kafka"] = sink.Ping
	return sink, sink.Close, nil
}

func limaLocation(log *slog.Logger) *time.Location {
	loc, err := time.LoadLocation("America/Lima")
	if err != nil {
		log.Warn("America/Lima unavailable, using a fixed UTC-5 zone", "error", err)
		return time.FixedZone("PET", -5*60*60)
	}
	return loc
}
