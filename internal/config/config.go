package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/outreach-tracker/internal/domain"
)

// Config holds all configuration for the application. It is loaded once at
// startup and handed to constructors; nothing reads it as global state.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Log       LogConfig       `yaml:"log"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Worker    WorkerConfig    `yaml:"worker"`
	Content   ContentConfig   `yaml:"content"`
	Notify    NotifyConfig    `yaml:"notify"`
	Gmail     GmailConfig     `yaml:"gmail"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetime returns the pool connection lifetime as a duration
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// RedisConfig holds the optional Redis used for distributed locks.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact reports whether PII redaction is on (default true).
func (c LogConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// LifecycleConfig holds the interval defaults given to new users.
type LifecycleConfig struct {
	DefaultFollowupDays   int `yaml:"default_followup_days"`
	DefaultLastchanceDays int `yaml:"default_lastchance_days"`
}

// Intervals returns the defaults as domain settings.
func (c LifecycleConfig) Intervals() domain.IntervalSettings {
	return domain.IntervalSettings{FollowupDays: c.DefaultFollowupDays, LastchanceDays: c.DefaultLastchanceDays}
}

// WorkerConfig controls the follow-up sweep
type WorkerConfig struct {
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
	SweepBatchSize       int `yaml:"sweep_batch_size"`
	LockTTLMinutes       int `yaml:"lock_ttl_minutes"`
}

// SweepInterval returns the sweep period as a duration
func (c WorkerConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// LockTTL returns the distributed lock TTL as a duration
func (c WorkerConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMinutes) * time.Minute
}

// ContentConfig selects and configures the drafting backend
type ContentConfig struct {
	Provider       string  `yaml:"provider"` // "template" or "bedrock"
	BedrockModelID string  `yaml:"bedrock_model_id"`
	Region         string  `yaml:"region"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
}

// NotifyConfig selects the owner-notification transport
type NotifyConfig struct {
	Transport string     `yaml:"transport"` // "ses", "smtp", "amqp" or "log"
	FromEmail string     `yaml:"from_email"`
	FromName  string     `yaml:"from_name"`
	SES       SESConfig  `yaml:"ses"`
	SMTP      SMTPConfig `yaml:"smtp"`
	AMQP      AMQPConfig `yaml:"amqp"`
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SMTPConfig holds SMTP relay settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// AMQPConfig holds the broker used to hand notifications to a mail worker
type AMQPConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

// GmailConfig holds Gmail API settings for reply detection
type GmailConfig struct {
	ClientID          string  `yaml:"client_id"`
	ClientSecret      string  `yaml:"client_secret"`
	APIBaseURL        string  `yaml:"api_base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxRetries        int     `yaml:"max_retries"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c GmailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ArchiveConfig controls where sweep reports are kept
type ArchiveConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	S3Bucket      string `yaml:"s3_bucket"`
	Region        string `yaml:"region"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied, for binaries
// started without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Lifecycle.DefaultFollowupDays == 0 {
		cfg.Lifecycle.DefaultFollowupDays = domain.DefaultFollowupDays
	}
	if cfg.Lifecycle.DefaultLastchanceDays == 0 {
		cfg.Lifecycle.DefaultLastchanceDays = domain.DefaultLastchanceDays
	}
	if cfg.Worker.SweepIntervalMinutes == 0 {
		cfg.Worker.SweepIntervalMinutes = 15
	}
	if cfg.Worker.SweepBatchSize == 0 {
		cfg.Worker.SweepBatchSize = 500
	}
	if cfg.Worker.LockTTLMinutes == 0 {
		cfg.Worker.LockTTLMinutes = 10
	}
	if cfg.Content.Provider == "" {
		cfg.Content.Provider = "template"
	}
	if cfg.Content.BedrockModelID == "" {
		cfg.Content.BedrockModelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	}
	if cfg.Content.Region == "" {
		cfg.Content.Region = "us-east-1"
	}
	if cfg.Content.MaxTokens == 0 {
		cfg.Content.MaxTokens = 1000
	}
	if cfg.Content.Temperature == 0 {
		cfg.Content.Temperature = 0.7
	}
	if cfg.Notify.Transport == "" {
		cfg.Notify.Transport = "log"
	}
	if cfg.Notify.FromName == "" {
		cfg.Notify.FromName = "Outreach Tracker"
	}
	if cfg.Notify.SES.Region == "" {
		cfg.Notify.SES.Region = "us-west-2"
	}
	if cfg.Notify.SES.TimeoutSeconds == 0 {
		cfg.Notify.SES.TimeoutSeconds = 30
	}
	if cfg.Notify.SMTP.Port == 0 {
		cfg.Notify.SMTP.Port = 587
	}
	if cfg.Notify.AMQP.Queue == "" {
		cfg.Notify.AMQP.Queue = "outreach.notifications"
	}
	if cfg.Gmail.APIBaseURL == "" {
		cfg.Gmail.APIBaseURL = "https://gmail.googleapis.com"
	}
	if cfg.Gmail.RequestsPerSecond == 0 {
		cfg.Gmail.RequestsPerSecond = 5
	}
	if cfg.Gmail.MaxRetries == 0 {
		cfg.Gmail.MaxRetries = 3
	}
	if cfg.Gmail.TimeoutSeconds == 0 {
		cfg.Gmail.TimeoutSeconds = 15
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "us-east-1"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// Validate checks values that would otherwise fail late at runtime.
func (cfg *Config) Validate() error {
	if err := cfg.Lifecycle.Intervals().Validate(); err != nil {
		return fmt.Errorf("lifecycle: %w", err)
	}
	switch cfg.Content.Provider {
	case "template", "bedrock":
	default:
		return fmt.Errorf("content.provider: unknown provider %q", cfg.Content.Provider)
	}
	switch cfg.Notify.Transport {
	case "log":
	case "ses", "smtp":
		if cfg.Notify.FromEmail == "" {
			return fmt.Errorf("notify.from_email is required for transport %q", cfg.Notify.Transport)
		}
	case "amqp":
		if cfg.Notify.AMQP.URL == "" {
			return fmt.Errorf("notify.amqp.url is required for transport amqp")
		}
	default:
		return fmt.Errorf("notify.transport: unknown transport %q", cfg.Notify.Transport)
	}
	if cfg.Worker.SweepBatchSize < 1 {
		return fmt.Errorf("worker.sweep_batch_size must be positive")
	}
	if cfg.Archive.Enabled && cfg.Archive.DynamoDBTable == "" && cfg.Archive.S3Bucket == "" {
		return fmt.Errorf("archive: enabled without dynamodb_table or s3_bucket")
	}
	return nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("CONTENT_PROVIDER"); v != "" {
		cfg.Content.Provider = v
	}
	if v := os.Getenv("BEDROCK_MODEL_ID"); v != "" {
		cfg.Content.BedrockModelID = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Content.Region = v
		cfg.Archive.Region = v
	}
	if v := os.Getenv("NOTIFY_TRANSPORT"); v != "" {
		cfg.Notify.Transport = v
	}
	if v := os.Getenv("SENDER_EMAIL"); v != "" {
		cfg.Notify.FromEmail = v
	}
	if v := os.Getenv("SENDER_NAME"); v != "" {
		cfg.Notify.FromName = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Notify.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Notify.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Notify.SES.Region = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Notify.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		cfg.Notify.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Notify.SMTP.Password = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.Notify.AMQP.URL = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Gmail.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Gmail.ClientSecret = v
	}
	if v := os.Getenv("ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.S3Bucket = v
	}
	if v := os.Getenv("ARCHIVE_DYNAMODB_TABLE"); v != "" {
		cfg.Archive.DynamoDBTable = v
	}

	return cfg, nil
}
