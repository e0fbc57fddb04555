// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Monitoring, Content, APIs, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	KeywordAPI KeywordAPIConfig `yaml:"keywordApi"`
	ContentAPI ContentAPIConfig `yaml:"contentApi"`
	WordPress  WordPressConfig  `yaml:"wordpress"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Content    ContentConfig    `yaml:"content"`
	Cleanup    CleanupConfig    `yaml:"cleanup"`
	Notify     NotifyConfig     `yaml:"notify"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds the operator HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AuditEvents   string `yaml:"auditEvents"`
	Notifications string `yaml:"notifications"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KeywordAPIConfig holds credentials and limits for the keyword-volume
// service (a RapidAPI-hosted suggestion endpoint).
type KeywordAPIConfig struct {
	BaseURL    string        `yaml:"baseUrl"`
	Host       string        `yaml:"host"`
	APIKey     string        `yaml:"apiKey"`
	Locale     string        `yaml:"locale"`
	Language   string        `yaml:"language"`
	DailyLimit int           `yaml:"dailyLimit"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ContentAPIConfig holds credentials and limits for the content-generation
// service (an OpenAI-compatible chat-completions endpoint).
type ContentAPIConfig struct {
	BaseURL     string        `yaml:"baseUrl"`
	APIKey      string        `yaml:"apiKey"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"maxTokens"`
	Temperature float64       `yaml:"temperature"`
	DailyLimit  int           `yaml:"dailyLimit"`
	Timeout     time.Duration `yaml:"timeout"`
}

// WordPressConfig holds the publish collaborator's REST API settings.
type WordPressConfig struct {
	BaseURL     string        `yaml:"baseUrl"`
	Username    string        `yaml:"username"`
	AppPassword string        `yaml:"appPassword"`
	CategoryID  int           `yaml:"categoryId"`
	Timeout     time.Duration `yaml:"timeout"`
}

// MonitoringConfig controls keyword monitoring behaviour.
type MonitoringConfig struct {
	BatchSize           int     `yaml:"batchSize"`
	SurgeThreshold      float64 `yaml:"surgeThreshold"`
	StalenessWindowDays int     `yaml:"stalenessWindowDays"`
	MinSurgeVolume      int     `yaml:"minSurgeVolume"`
}

// ContentConfig controls content generation behaviour.
type ContentConfig struct {
	DailyLimit       int `yaml:"dailyLimit"`
	ExcerptWordLimit int `yaml:"excerptWordLimit"`
	SurgeWindowHours int `yaml:"surgeWindowHours"`
}

// CleanupConfig controls retention for audit data.
type CleanupConfig struct {
	APILogRetentionDays  int `yaml:"apiLogRetentionDays"`
	ContentRetentionDays int `yaml:"contentRetentionDays"`
}

// NotifyConfig controls operator notification delivery (used by the
// notifier binary).
type NotifyConfig struct {
	SMTPHost string   `yaml:"smtpHost"`
	SMTPPort int      `yaml:"smtpPort"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "seomachine",
			User:            "seomachine",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "seomachine-group",
			Topics: KafkaTopics{
				AuditEvents:   "seo-audit-events",
				Notifications: "seo-notifications",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 6 * time.Hour,
		},
		KeywordAPI: KeywordAPIConfig{
			BaseURL:    "https://twinword-keyword-suggestion-v1.p.rapidapi.com/suggest/",
			Host:       "twinword-keyword-suggestion-v1.p.rapidapi.com",
			Locale:     "US",
			Language:   "en",
			DailyLimit: 67,
			Timeout:    30 * time.Second,
		},
		ContentAPI: ContentAPIConfig{
			BaseURL:     "https://api.openai.com/v1/chat/completions",
			Model:       "gpt-4o-mini",
			MaxTokens:   800,
			Temperature: 0.7,
			DailyLimit:  333,
			Timeout:     30 * time.Second,
		},
		WordPress: WordPressConfig{
			Timeout: 30 * time.Second,
		},
		Monitoring: MonitoringConfig{
			BatchSize:           86,
			SurgeThreshold:      25,
			StalenessWindowDays: 7,
			MinSurgeVolume:      50,
		},
		Content: ContentConfig{
			DailyLimit:       5,
			ExcerptWordLimit: 300,
			SurgeWindowHours: 24,
		},
		Cleanup: CleanupConfig{
			APILogRetentionDays:  30,
			ContentRetentionDays: 90,
		},
		Notify: NotifyConfig{
			SMTPPort: 587,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate enforces the recognised option ranges. Out-of-range values are
// configuration errors surfaced immediately, never clamped.
func (c *Config) Validate() error {
	if c.Monitoring.SurgeThreshold < 5 || c.Monitoring.SurgeThreshold > 100 {
		return fmt.Errorf("monitoring.surgeThreshold must be within [5, 100], got %v", c.Monitoring.SurgeThreshold)
	}
	if c.Content.DailyLimit < 1 || c.Content.DailyLimit > 50 {
		return fmt.Errorf("content.dailyLimit must be within [1, 50], got %d", c.Content.DailyLimit)
	}
	if c.Monitoring.StalenessWindowDays < 1 {
		return fmt.Errorf("monitoring.stalenessWindowDays must be positive, got %d", c.Monitoring.StalenessWindowDays)
	}
	if c.Monitoring.BatchSize < 1 {
		return fmt.Errorf("monitoring.batchSize must be positive, got %d", c.Monitoring.BatchSize)
	}
	if c.KeywordAPI.DailyLimit < 1 {
		return fmt.Errorf("keywordApi.dailyLimit must be positive, got %d", c.KeywordAPI.DailyLimit)
	}
	if c.ContentAPI.DailyLimit < 1 {
		return fmt.Errorf("contentApi.dailyLimit must be positive, got %d", c.ContentAPI.DailyLimit)
	}
	if c.Cleanup.APILogRetentionDays < 1 || c.Cleanup.ContentRetentionDays < 1 {
		return fmt.Errorf("cleanup retention days must be positive")
	}
	if c.Content.ExcerptWordLimit < 50 {
		return fmt.Errorf("content.excerptWordLimit must be at least 50, got %d", c.Content.ExcerptWordLimit)
	}
	return nil
}

// applyEnvOverrides reads SEO_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SEO_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SEO_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SEO_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SEO_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SEO_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SEO_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SEO_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("SEO_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SEO_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SEO_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SEO_KEYWORD_API_KEY"); v != "" {
		cfg.KeywordAPI.APIKey = v
	}
	if v := os.Getenv("SEO_OPENAI_API_KEY"); v != "" {
		cfg.ContentAPI.APIKey = v
	}
	if v := os.Getenv("SEO_WP_BASE_URL"); v != "" {
		cfg.WordPress.BaseURL = v
	}
	if v := os.Getenv("SEO_WP_USERNAME"); v != "" {
		cfg.WordPress.Username = v
	}
	if v := os.Getenv("SEO_WP_APP_PASSWORD"); v != "" {
		cfg.WordPress.AppPassword = v
	}
	if v := os.Getenv("SEO_SURGE_THRESHOLD"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Monitoring.SurgeThreshold = t
		}
	}
	if v := os.Getenv("SEO_DAILY_CONTENT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Content.DailyLimit = n
		}
	}
	if v := os.Getenv("SEO_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SEO_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
