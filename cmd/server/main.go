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
	"github.com/ignite/lead-engine/internal/api"
	"github.com/ignite/lead-engine/internal/config"
	"github.com/ignite/lead-engine/internal/domain"
	"github.com/ignite/lead-engine/internal/engagement"
	"github.com/ignite/lead-engine/internal/leads"
	"github.com/ignite/lead-engine/internal/outreach"
	"github.com/ignite/lead-engine/internal/pkg/logger"
	"github.com/ignite/lead-engine/internal/ratelimit"
	"github.com/ignite/lead-engine/internal/sequence"
	"github.com/ignite/lead-engine/internal/storage"

	_ "github.com/lib/pq" // PostgreSQL driver
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log := logger.New("main")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	// Document store
	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Redis backs rate limiting, research caches, and health checks
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Error("invalid redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	limiter := ratelimit.New(redisClient, cfg.RateLimit.Limits())

	// Outreach channels behind circuit breakers
	breakerCfg := outreach.BreakerConfig{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Cooldown:         cfg.Breaker.Cooldown(),
	}
	senders := map[domain.Channel]engagement.Sender{}

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
	emailGuard := outreach.NewGuard(emailCh, breakerCfg)
	senders[domain.ChannelEmail] = emailGuard

	if cfg.Social.WebhookURL != "" {
		socialCh := outreach.NewWebhookChannel("social", cfg.Social.WebhookURL, nil)
		senders[domain.ChannelSocial] = outreach.NewGuard(socialCh, breakerCfg)
	}

	// Research pipeline
	merger := leads.NewMerger(leads.NewFingerprinter(), cfg.Research.MaxSeenIdentifiers)
	var sources []leads.Source
	if len(cfg.Research.DirectoryFeeds) > 0 {
		sources = append(sources, leads.NewFeedSource(cfg.Research.DirectoryFeeds))
	}
	researchCfg := leads.DefaultResearcherConfig()
	researchCfg.BatchSize = cfg.Research.BatchSize
	researchCfg.MinQualityScore = cfg.Research.MinQualityScore
	researcher := leads.NewResearcher(researchCfg, sources, nil, merger, redisClient)

	engine := engagement.NewEngine(senders, limiter, store, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	aggregator, err := analytics.NewAggregator(ctx, store)
	if err != nil {
		log.Error("failed to load analytics state", "error", err)
		os.Exit(1)
	}

	seqManager, err := sequence.NewManager(ctx, store, emailGuard, limiter, aggregator)
	if err != nil {
		log.Error("failed to load sequence state", "error", err)
		os.Exit(1)
	}
	health := api.NewHealthChecker(store, redisClient)
	handlers := api.NewHandlers(store, researcher, engine, seqManager, aggregator, health)
	server := api.NewServer(cfg.Server, handlers)

	// Graceful shutdown on SIGINT/SIGTERM
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server exited", "error", err)
			cancel()
		}
	}()

	select {
	case sig := <-done:
		log.Info("received signal", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
	log.Info("server stopped")
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
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
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
