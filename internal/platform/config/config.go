package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "agencyhub/pkg/platform/strings"
)

// Server captures process-level configuration. Every section has development
// defaults so `go run ./cmd/server` works without any environment.
type Server struct {
	Addr            string
	Environment     string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Stats    StatsConfig
	Auth     AuthConfig
}

// DatabaseConfig selects the store. An empty URL runs the in-memory store.
type DatabaseConfig struct {
	URL             string
	Driver          string // "postgres" (lib/pq) or "pgx"
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
	TxTimeout       time.Duration
	TxMaxRetries    uint64
	AutoMigrate     bool
}

// RedisConfig configures the stats cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the outbox relay. No brokers disables it.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	Partitions    int32
	Replication   int16
	RelayInterval time.Duration
	RelayBatch    int
}

// StatsConfig points at the recruiter performance stats collaborator.
// An empty URL disables enrichment.
type StatsConfig struct {
	URL              string
	Timeout          time.Duration
	CacheTTL         time.Duration
	FailureThreshold int
}

// AuthConfig holds identity-provider and platform-admin settings.
type AuthConfig struct {
	JWTSigningKey  string
	JWTIssuer      string
	AdminTokenHash string // bcrypt hash; empty disables /admin routes
}

// IsProduction reports whether development defaults must be refused.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:            getEnv("AGENCYHUB_ADDR", ":8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 15*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Driver:          getEnv("DATABASE_DRIVER", "postgres"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnectTimeout:  getDuration("DATABASE_CONNECT_TIMEOUT", 30*time.Second),
			TxTimeout:       getDuration("DATABASE_TX_TIMEOUT", 5*time.Second),
			TxMaxRetries:    uint64(getInt("DATABASE_TX_MAX_RETRIES", 3)),
			AutoMigrate:     getBool("DATABASE_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       getList("KAFKA_BROKERS"),
			Topic:         getEnv("KAFKA_TOPIC", "agencyhub.membership-events"),
			Partitions:    int32(getInt("KAFKA_TOPIC_PARTITIONS", 3)),
			Replication:   int16(getInt("KAFKA_TOPIC_REPLICATION", 1)),
			RelayInterval: getDuration("OUTBOX_RELAY_INTERVAL", 2*time.Second),
			RelayBatch:    getInt("OUTBOX_RELAY_BATCH", 100),
		},
		Stats: StatsConfig{
			URL:              os.Getenv("STATS_URL"),
			Timeout:          getDuration("STATS_TIMEOUT", 2*time.Second),
			CacheTTL:         getDuration("STATS_CACHE_TTL", 5*time.Minute),
			FailureThreshold: getInt("STATS_FAILURE_THRESHOLD", 5),
		},
		Auth: AuthConfig{
			// Development default; override in production.
			JWTSigningKey:  getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:      os.Getenv("JWT_ISSUER"),
			AdminTokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}

func getList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	return platformstrings.DedupeAndTrim(strings.Split(raw, ","))
}
