// Package config loads engine configuration from a YAML file with
// environment-variable overrides for credentials.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the engagement engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	SES       SESConfig       `yaml:"ses"`
	Social    SocialConfig    `yaml:"social"`
	Research  ResearchConfig  `yaml:"research"`
	RateLimit RateLimitConfig `yaml:"rate_limits"`
	Breaker   BreakerConfig   `yaml:"circuit_breaker"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig holds the embedding HTTP API settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RedisConfig holds the Redis connection for rate limiting and caches.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// StorageConfig selects the document store backend.
type StorageConfig struct {
	Type        string `yaml:"type"` // "local" or "postgres"
	LocalPath   string `yaml:"local_path"`
	DatabaseURL string `yaml:"database_url"`
}

// SESConfig holds the email channel credentials and sender identity.
type SESConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	FromName  string `yaml:"from_name"`
	FromEmail string `yaml:"from_email"`
}

// SocialConfig holds the social outreach hand-off endpoint. Empty disables
// the social channel.
type SocialConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// ResearchConfig tunes lead admission.
type ResearchConfig struct {
	BatchSize          int                 `yaml:"batch_size"`
	MinQualityScore    float64             `yaml:"min_data_quality_score"`
	MaxSeenIdentifiers int                 `yaml:"max_seen_identifiers"`
	DirectoryFeeds     map[string][]string `yaml:"directory_feeds"`
}

// RateLimitConfig holds per-channel hourly send caps.
type RateLimitConfig struct {
	EmailPerHour  int `yaml:"email"`
	SocialPerHour int `yaml:"social"`
}

// Limits returns the per-channel hourly caps the rate limiter consumes.
func (c RateLimitConfig) Limits() map[string]int {
	return map[string]int{
		"email":  c.EmailPerHour,
		"social": c.SocialPerHour,
	}
}

// BreakerConfig holds circuit breaker tuning.
type BreakerConfig struct {
	FailureThreshold uint32 `yaml:"failure_threshold"`
	CooldownSeconds  int    `yaml:"recovery_timeout_seconds"`
}

// Cooldown returns the breaker cooldown as a duration.
func (c BreakerConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// SchedulerConfig holds the worker's processing cadence.
type SchedulerConfig struct {
	TickIntervalSeconds int `yaml:"tick_interval_seconds"`
}

// TickInterval returns the processing cadence as a duration.
func (c SchedulerConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// Load reads and validates the YAML config at path, filling defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379/0"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data"
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.Research.BatchSize == 0 {
		cfg.Research.BatchSize = 50
	}
	if cfg.Research.MinQualityScore == 0 {
		cfg.Research.MinQualityScore = 0.3
	}
	if cfg.Research.MaxSeenIdentifiers == 0 {
		cfg.Research.MaxSeenIdentifiers = 100000
	}
	if cfg.RateLimit.EmailPerHour == 0 {
		cfg.RateLimit.EmailPerHour = 50
	}
	if cfg.RateLimit.SocialPerHour == 0 {
		cfg.RateLimit.SocialPerHour = 30
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 5
	}
	if cfg.Breaker.CooldownSeconds == 0 {
		cfg.Breaker.CooldownSeconds = 300
	}
	if cfg.Scheduler.TickIntervalSeconds == 0 {
		cfg.Scheduler.TickIntervalSeconds = 60
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads the config file then applies environment overrides for
// secrets and connection strings. A .env file is honored when present.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Storage.DatabaseURL = url
	}
	if key := os.Getenv("AWS_SES_ACCESS_KEY"); key != "" {
		cfg.SES.AccessKey = key
	}
	if key := os.Getenv("AWS_SES_SECRET_KEY"); key != "" {
		cfg.SES.SecretKey = key
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.SES.Region = region
	}
	if from := os.Getenv("SES_FROM_EMAIL"); from != "" {
		cfg.SES.FromEmail = from
	}
	if url := os.Getenv("SOCIAL_WEBHOOK_URL"); url != "" {
		cfg.Social.WebhookURL = url
	}
	return cfg, nil
}
