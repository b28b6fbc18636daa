package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	platformstrings "stewardship/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr                string
	DatabaseURL         string
	TxTimeout           time.Duration
	StatementLayoutFile string
	LogLevel            string
	LogFormat           string
	Redis               RedisConfig
	Kafka               KafkaConfig
}

// RedisConfig configures the reconciliation summary cache. An empty URL
// selects the in-process cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	SummaryTTL   time.Duration
	// KeyPrefix namespaces every key this service writes so a shared Redis
	// can host several congregations.
	KeyPrefix string
}

// KafkaConfig configures the audit sink. No brokers means audit events are logged.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:                envOr("STEWARDSHIP_ADDR", ":8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		StatementLayoutFile: os.Getenv("STATEMENT_LAYOUT_FILE"),
		LogLevel:            envOr("LOG_LEVEL", "info"),
		LogFormat:           envOr("LOG_FORMAT", "json"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			KeyPrefix:    envOr("REDIS_KEY_PREFIX", "stewardship"),
		},
		Kafka: KafkaConfig{
			Brokers:    platformstrings.SplitList(os.Getenv("KAFKA_BROKERS"), ","),
			AuditTopic: envOr("AUDIT_TOPIC", "stewardship.audit"),
		},
	}

	var err error
	if cfg.TxTimeout, err = durationEnv("TX_TIMEOUT", 5*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.SummaryTTL, err = durationEnv("SUMMARY_TTL", 7*24*time.Hour); err != nil {
		return Server{}, err
	}
	if raw := os.Getenv("REDIS_POOL_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Server{}, fmt.Errorf("REDIS_POOL_SIZE must be a positive integer, got %q", raw)
		}
		cfg.Redis.PoolSize = n
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return d, nil
}
