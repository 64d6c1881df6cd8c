// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
// It is loaded once at startup and immutable thereafter.
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Queue          QueueConfig          `mapstructure:"queue"`
	Archive        ArchiveConfig        `mapstructure:"archive"`
	Pipeline       PipelineConfig       `mapstructure:"pipeline"`
	Classification ClassificationConfig `mapstructure:"classification"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

// ServerConfig controls the probe/metrics HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// QueueConfig selects and configures the message source and the
// dead-letter topic.
type QueueConfig struct {
	Provider        string `mapstructure:"provider"`
	ProjectID       string `mapstructure:"project_id"`
	SubscriptionID  string `mapstructure:"subscription_id"`
	SourceTopic     string `mapstructure:"source_topic"`
	DeadLetterTopic string `mapstructure:"dead_letter_topic"`
}

// ArchiveConfig governs the downstream archive API and the delivery
// engine's retry and circuit-breaker behavior.
type ArchiveConfig struct {
	Endpoint           string `mapstructure:"endpoint"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	MaxAttempts        int    `mapstructure:"max_attempts"`
	BackoffBaseMs      int    `mapstructure:"backoff_base_ms"`
	BackoffMaxMs       int    `mapstructure:"backoff_max_ms"`
	BreakerThreshold   int    `mapstructure:"breaker_threshold"`
	BreakerOpenSeconds int    `mapstructure:"breaker_open_seconds"`
	AppID              string `mapstructure:"app_id"`
	AppToken           string `mapstructure:"app_token"`
	CompanyName        string `mapstructure:"company_name"`
	ArchiveType        string `mapstructure:"archive_type"`
	Domain             string `mapstructure:"domain"`
	RetentionPeriod    int    `mapstructure:"retention_period"`
	SiteName           string `mapstructure:"site_name"`
}

// PipelineConfig sizes the worker pool and shutdown behavior.
type PipelineConfig struct {
	Workers              int `mapstructure:"workers"`
	ShutdownGraceSeconds int `mapstructure:"shutdown_grace_seconds"`
}

// ClassificationRule maps one channel id to an archival category pair.
type ClassificationRule struct {
	ChannelID    string `mapstructure:"channel_id"`
	ClassifyName string `mapstructure:"classfyname"`
	Classify     string `mapstructure:"classfy"`
}

// ClassificationConfig is the static channel-to-category table. The
// default entry is mandatory; startup fails without it.
type ClassificationConfig struct {
	Rules   []ClassificationRule `mapstructure:"rules"`
	Default ClassificationRule   `mapstructure:"default"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HYDOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("queue.provider", "memory")
	v.SetDefault("archive.timeout_seconds", 30)
	v.SetDefault("archive.max_attempts", 3)
	v.SetDefault("archive.backoff_base_ms", 1000)
	v.SetDefault("archive.backoff_max_ms", 30000)
	v.SetDefault("archive.breaker_threshold", 5)
	v.SetDefault("archive.breaker_open_seconds", 30)
	v.SetDefault("archive.archive_type", "17")
	v.SetDefault("archive.retention_period", 30)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.shutdown_grace_seconds", 30)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values; a failure here is fatal at startup.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.Queue.Provider {
	case "memory":
	case "pubsub":
		if c.Queue.ProjectID == "" || c.Queue.SubscriptionID == "" {
			return fmt.Errorf("queue.project_id and queue.subscription_id are required for the pubsub provider")
		}
		if c.Queue.DeadLetterTopic == "" {
			return fmt.Errorf("queue.dead_letter_topic is required for the pubsub provider")
		}
	default:
		return fmt.Errorf("unknown queue provider: %s", c.Queue.Provider)
	}
	if c.Archive.Endpoint == "" {
		return fmt.Errorf("archive.endpoint is required")
	}
	if !strings.HasPrefix(c.Archive.Endpoint, "http://") && !strings.HasPrefix(c.Archive.Endpoint, "https://") {
		return fmt.Errorf("archive.endpoint must start with http:// or https://")
	}
	if c.Archive.AppToken == "" {
		return fmt.Errorf("archive.app_token is required")
	}
	if c.Archive.Domain == "" {
		return fmt.Errorf("archive.domain is required")
	}
	if c.Archive.TimeoutSeconds <= 0 {
		return fmt.Errorf("archive.timeout_seconds must be > 0")
	}
	if c.Archive.MaxAttempts <= 0 {
		return fmt.Errorf("archive.max_attempts must be > 0")
	}
	if c.Archive.BreakerThreshold <= 0 {
		return fmt.Errorf("archive.breaker_threshold must be > 0")
	}
	if c.Archive.BreakerOpenSeconds <= 0 {
		return fmt.Errorf("archive.breaker_open_seconds must be > 0")
	}
	if c.Archive.RetentionPeriod <= 0 {
		return fmt.Errorf("archive.retention_period must be > 0")
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be > 0")
	}
	if c.Classification.Default.ClassifyName == "" || c.Classification.Default.Classify == "" {
		return fmt.Errorf("classification.default entry with classfyname and classfy is required")
	}
	for i, r := range c.Classification.Rules {
		if r.ChannelID == "" {
			return fmt.Errorf("classification.rules[%d] is missing channel_id", i)
		}
	}
	return nil
}

// Timeout returns the archive HTTP timeout as a duration.
func (c ArchiveConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BackoffBase returns the first retry delay.
func (c ArchiveConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMs) * time.Millisecond
}

// BackoffMax returns the retry delay cap.
func (c ArchiveConfig) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxMs) * time.Millisecond
}

// BreakerOpenDuration returns how long an opened circuit rejects calls.
func (c ArchiveConfig) BreakerOpenDuration() time.Duration {
	return time.Duration(c.BreakerOpenSeconds) * time.Second
}

// ShutdownGrace returns the drain window allowed to in-flight workers.
func (c PipelineConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds) * time.Second
}
