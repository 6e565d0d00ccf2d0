// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a development default.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the top-level runtime configuration.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string
	Redis         RedisConfig
	Kafka         KafkaConfig
	Registry      RegistryConfig
	Verification  VerificationConfig
}

// RegistryConfig configures the external business registry client.
// An empty base URL wires the deterministic mock client instead.
type RegistryConfig struct {
	BaseURL string
	APIKey  string
}

// RedisConfig configures the registry validation cache.
// An empty URL disables Redis and falls back to the in-memory cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig configures the decision-log outbox relay.
// Empty brokers disable the relay; the synchronous decision log still runs.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	RelayInterval time.Duration
}

// VerificationConfig carries the verification policy knobs.
type VerificationConfig struct {
	TokenTTL               time.Duration
	ReverificationInterval time.Duration
	TokenRetention         time.Duration
	ResolverTimeout        time.Duration
	RegistryTimeout        time.Duration
	SweepInterval          time.Duration
	MaxResolverFailures    int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:          envString("CTN_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("CTN_DATABASE_URL"),
		JWTSigningKey: envString("CTN_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Redis: RedisConfig{
			URL:          os.Getenv("CTN_REDIS_URL"),
			PoolSize:     envInt("CTN_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CTN_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("CTN_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("CTN_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("CTN_REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     envDuration("CTN_REGISTRY_CACHE_TTL", 15*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:       envList("CTN_KAFKA_BROKERS"),
			Topic:         envString("CTN_KAFKA_DECISION_TOPIC", "ctn.authz.decisions"),
			RelayInterval: envDuration("CTN_KAFKA_RELAY_INTERVAL", 5*time.Second),
		},
		Registry: RegistryConfig{
			BaseURL: os.Getenv("CTN_REGISTRY_BASE_URL"),
			APIKey:  os.Getenv("CTN_REGISTRY_API_KEY"),
		},
		Verification: VerificationConfig{
			TokenTTL:               envDuration("CTN_DNS_TOKEN_TTL", 24*time.Hour),
			ReverificationInterval: envDuration("CTN_DNS_REVERIFICATION_INTERVAL", 90*24*time.Hour),
			TokenRetention:         envDuration("CTN_DNS_TOKEN_RETENTION", 30*24*time.Hour),
			ResolverTimeout:        envDuration("CTN_DNS_RESOLVER_TIMEOUT", 5*time.Second),
			RegistryTimeout:        envDuration("CTN_REGISTRY_TIMEOUT", 5*time.Second),
			SweepInterval:          envDuration("CTN_SWEEP_INTERVAL", 15*time.Minute),
			MaxResolverFailures:    envInt("CTN_DNS_MAX_RESOLVER_FAILURES", 3),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
