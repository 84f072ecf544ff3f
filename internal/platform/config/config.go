package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the broker binary needs from its environment.
// Front-end listeners, token policy, vault access, and audit delivery are all
// set here so main stays lean.
type Config struct {
	// Listen addresses, one per protocol front-end plus the ops surface.
	MCPAddr string
	A2AAddr string
	ACPAddr string
	OpsAddr string

	// Token policy.
	JWTSecret         string
	DefaultTTLMinutes int
	MaxTTLMinutes     int

	// Vault gateway.
	VaultHost    string
	VaultToken   string
	VaultID      string
	VaultTimeout time.Duration
	// DemoVault swaps the HTTP gateway for a seeded in-memory fake so the
	// binary runs without a reachable vault.
	DemoVault bool

	// Audit delivery.
	CollectorURL   string
	CollectorToken string
	AuditLogFile   string
	KafkaBrokers   string
	KafkaTopic     string

	// Session storage. RedisAddr empty selects the in-memory store.
	RedisAddr     string
	SessionMaxAge time.Duration

	// A2A front-end bearer token.
	A2ABearerToken string
}

// FromEnv builds a Config from environment variables with development defaults.
func FromEnv() Config {
	return Config{
		MCPAddr: envOr("BROKER_MCP_ADDR", ":8000"),
		A2AAddr: envOr("BROKER_A2A_ADDR", ":8002"),
		ACPAddr: envOr("BROKER_ACP_ADDR", ":8001"),
		OpsAddr: envOr("BROKER_OPS_ADDR", ":9090"),

		JWTSecret:         envOr("JWT_SECRET_KEY", ""),
		DefaultTTLMinutes: envInt("TOKEN_TTL_MINUTES", 5),
		MaxTTLMinutes:     envInt("TOKEN_MAX_TTL_MINUTES", 15),

		VaultHost:    os.Getenv("VAULT_CONNECT_HOST"),
		VaultToken:   os.Getenv("VAULT_CONNECT_TOKEN"),
		VaultID:      os.Getenv("VAULT_ID"),
		VaultTimeout: envDuration("VAULT_TIMEOUT", 10*time.Second),
		DemoVault:    os.Getenv("VAULT_DEMO_MODE") == "true",

		CollectorURL:   os.Getenv("EVENTS_API_URL"),
		CollectorToken: os.Getenv("EVENTS_API_TOKEN"),
		AuditLogFile:   envOr("AUDIT_LOG_FILE", "logs/audit.log"),
		KafkaBrokers:   os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:     envOr("KAFKA_AUDIT_TOPIC", "keyrelay.audit"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		SessionMaxAge: envDuration("SESSION_MAX_AGE", 24*time.Hour),

		A2ABearerToken: envOr("A2A_BEARER_TOKEN", "dev-token-change-in-production"),
	}
}

func envOr(key, fallback string) string {
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
