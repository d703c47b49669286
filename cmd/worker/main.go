package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/lead-engine/internal/analytics"
	"github.com/ignite/lead-engine/internal/config"
	"github.com/ignite/lead-engine/internal/domain"
	"github.com/ignite/lead-engine/internal/engagement"
	"github.com/ignite/lead-engine/internal/outreach"
	"github.com/ignite/lead-engine/internal/pkg/distlock"
	"github.com/ignite/lead-engine/internal/pkg/logger"
	"github.com/ignite/lead-engine/internal/ratelimit"
	"github.com/ignite/lead-engine/internal/sequence"
	"github.com/ignite/lead-engine/internal/storage"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// The worker owns the sequence scheduler: every tick it sends all due steps
// through the rate limiter and circuit breaker, advancing contact state
// only on successful dispatch.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log := logger.New("worker")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Error("invalid redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	limiter := ratelimit.New(redisClient, cfg.RateLimit.Limits())

	emailCh, err := outreach.NewSESChannel(outreach.SESConfig{
		AccessKey: cfg.SES.AccessKey,
		SecretKey: cfg.SES.SecretKey,
		Region:    cfg.SES.Region,
		FromName:  cfg.SES.FromName,
		FromEmail: cfg.SES.FromEmail,
	})
	if err != nil {
		log.Error("failed to init SES channel", "error", err)
		os.Exit(1)
	}
	breakerCfg := outreach.BreakerConfig{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Cooldown:         cfg.Breaker.Cooldown(),
	}
	guard := outreach.NewGuard(emailCh, breakerCfg)

	senders := map[domain.Channel]engagement.Sender{domain.ChannelEmail: guard}
	if cfg.Social.WebhookURL != "" {
		socialCh := outreach.NewWebhookChannel("social", cfg.Social.WebhookURL, nil)
		senders[domain.ChannelSocial] = outreach.NewGuard(socialCh, breakerCfg)
	}
	engine := engagement.NewEngine(senders, limiter, store, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	aggregator, err := analytics.NewAggregator(ctx, store)
	if err != nil {
		log.Error("failed to load analytics state", "error", err)
		os.Exit(1)
	}

	manager, err := sequence.NewManager(ctx, store, guard, limiter, aggregator)
	if err != nil {
		log.Error("failed to load sequence state", "error", err)
		os.Exit(1)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	// The scheduler lock keeps a step from double-sending when several
	// workers run against the same store.
	lock := distlock.New(redisClient, nil, "sequence-scheduler", 2*cfg.Scheduler.TickInterval())

	ticker := time.NewTicker(cfg.Scheduler.TickInterval())
	defer ticker.Stop()

	log.Info("scheduler started", "tick", cfg.Scheduler.TickInterval().String())
	for {
		select {
		case <-ticker.C:
			held, err := lock.Acquire(ctx)
			if err != nil {
				log.Error("scheduler lock unavailable", "error", err)
				continue
			}
			if !held {
				log.Debug("another worker holds the scheduler lock")
				continue
			}
			report := manager.ProcessDue(ctx)
			plans, err := engine.ExecuteDuePlans(ctx)
			if err != nil {
				log.Error("plan execution pass failed", "error", err)
			}
			if err := lock.Release(ctx); err != nil {
				log.Warn("failed to release scheduler lock", "error", err)
			}
			if report.Due > 0 {
				log.Info("processed due steps",
					"due", report.Due, "succeeded", report.Succeeded, "failed", report.Failed)
			}
			if plans.Due > 0 {
				log.Info("executed due plans",
					"due", plans.Due, "succeeded", plans.Succeeded, "failed", plans.Failed)
			}
		case sig := <-done:
			log.Info("received signal, stopping", "signal", sig.String())
			cancel()
			return
		}
	}
}

// openStore selects the document store backend from config.
func openStore(cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.Storage.Type {
	case "postgres":
		if cfg.Storage.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("storage type postgres requires DATABASE_URL")
		}
		db, err := sql.Open("postgres", cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}

		store, err := storage.NewPostgresStore(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil
	default:
		store, err := storage.NewFileStore(cfg.Storage.LocalPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}
