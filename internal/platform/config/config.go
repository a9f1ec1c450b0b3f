package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string

	// BaseURL is the externally reachable root of this service. It is baked
	// into each badge's hosted verification URL at issuance time, so it must
	// be the URL relying parties can actually dereference.
	BaseURL string

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
}

// RedisConfig holds the verification cache connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig holds the audit event sink settings.
type KafkaConfig struct {
	Brokers         string
	AuditTopic      string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("VEIRIFIRE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	baseURL := strings.TrimRight(os.Getenv("VEIRIFIRE_BASE_URL"), "/")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	cacheTTL := 30 * time.Second
	if v := os.Getenv("VERIFY_CACHE_TTL"); v != "" {
		if duration, err := time.ParseDuration(v); err == nil {
			cacheTTL = duration
		}
	}

	auditTopic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "veirifire.audit"
	}

	return Server{
		Addr:        addr,
		Environment: environment,
		BaseURL:     baseURL,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			CacheTTL:     cacheTTL,
		},
		Kafka: KafkaConfig{
			Brokers:         os.Getenv("KAFKA_BROKERS"),
			AuditTopic:      auditTopic,
			Acks:            "all",
			Retries:         3,
			DeliveryTimeout: 10 * time.Second,
		},
	}
}
