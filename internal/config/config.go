package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Logging     LoggingConfig
	Redis       RedisConfig
	Scylla      ScyllaConfig
	Kafka       KafkaConfig
	Telegram    TelegramConfig
	Match       MatchConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type ScyllaConfig struct {
	Enabled  bool
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// Telegram update delivery modes.
const (
	TelegramModePolling = "polling"
	TelegramModeWebhook = "webhook"
)

// TelegramConfig selects how inbound updates are delivered: "polling" runs
// a long-poll loop, "webhook" registers WebhookURL and serves WebhookPath.
type TelegramConfig struct {
	Token       string
	Mode        string
	PollTimeout int
	WebhookURL  string
	WebhookPath string
}

type MatchConfig struct {
	ReapInterval   time.Duration
	IdleThreshold  time.Duration
	RateWindow     time.Duration
	RateMax        int
	ForbiddenWords []string
}

// LoadConfig reads configuration from the environment, with .env support
// for local development.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
		},
		Scylla: ScyllaConfig{
			Enabled:  getEnvBool("SCYLLA_ENABLED", false),
			Nodes:    getEnvSlice("SCYLLA_NODES", []string{"localhost:9042"}),
			Keyspace: getEnv("SCYLLA_KEYSPACE", "match_history"),
			Username: getEnv("SCYLLA_USERNAME", ""),
			Password: getEnv("SCYLLA_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "match-events"),
		},
		Telegram: TelegramConfig{
			Token:       getEnv("BOT_TOKEN", ""),
			Mode:        getEnv("TELEGRAM_MODE", TelegramModePolling),
			PollTimeout: getEnvInt("TELEGRAM_POLL_TIMEOUT", 60),
			WebhookURL:  getEnv("WEBHOOK_URL", ""),
			WebhookPath: getEnv("WEBHOOK_PATH", "/telegram/webhook"),
		},
		Match: MatchConfig{
			ReapInterval:   getEnvDuration("MATCH_REAP_INTERVAL", 5*time.Minute),
			IdleThreshold:  getEnvDuration("MATCH_IDLE_THRESHOLD", 5*time.Minute),
			RateWindow:     getEnvDuration("MATCH_RATE_WINDOW", time.Second),
			RateMax:        getEnvInt("MATCH_RATE_MAX", 1),
			ForbiddenWords: getEnvSlice("MATCH_FORBIDDEN_WORDS", []string{"spam", "badword"}),
		},
	}
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	switch c.Telegram.Mode {
	case TelegramModePolling:
	case TelegramModeWebhook:
		if c.Telegram.WebhookURL == "" {
			return fmt.Errorf("WEBHOOK_URL is required in webhook mode")
		}
	default:
		return fmt.Errorf("TELEGRAM_MODE must be polling or webhook, got %q", c.Telegram.Mode)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return !c.IsProduction()
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
