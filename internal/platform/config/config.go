// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a development default; production overrides
// them through the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server and its background workers need.
type Config struct {
	Addr          string
	JWTSigningKey string

	DatabaseURL string
	RedisURL    string

	KafkaBrokers []string
	KafkaTopic   string

	StorageEndpoint  string
	StorageBucket    string
	StorageAccessKey string
	StorageSecretKey string
	StorageUseSSL    bool

	// ValidationDeadline bounds how long a PENDING attempt may wait for an
	// outcome before the sweeper times it out.
	ValidationDeadline time.Duration
	// SweepInterval is how often the sweeper scans for overdue attempts.
	SweepInterval time.Duration

	// AuditBuffer sizes the audit event channel. Emission is best-effort;
	// a full buffer drops the event rather than blocking the operation.
	AuditBuffer int
}

// FromEnv reads configuration from the environment.
func FromEnv() Config {
	return Config{
		Addr:          envOr("REGPORTAL_ADDR", ":8080"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		KafkaBrokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOr("KAFKA_TOPIC", "report-lifecycle"),

		StorageEndpoint:  envOr("S3_ENDPOINT", "localhost:9000"),
		StorageBucket:    envOr("S3_BUCKET", "regportal-files"),
		StorageAccessKey: envOr("S3_ACCESS_KEY", "minio"),
		StorageSecretKey: envOr("S3_SECRET_KEY", "miniosecret"),
		StorageUseSSL:    os.Getenv("S3_USE_SSL") == "true",

		ValidationDeadline: durationOr("VALIDATION_DEADLINE", 5*time.Minute),
		SweepInterval:      durationOr("SWEEP_INTERVAL", 30*time.Second),

		AuditBuffer: intOr("AUDIT_BUFFER", 1024),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
