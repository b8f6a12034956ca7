package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers        []string
	KafkaLifecycleTopic string

	// Auth
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTTTL      time.Duration

	// OIDC (optional hospital SSO)
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string

	// Triage
	TriageRulesPath string

	// Assignment
	DirectoryCacheTTL time.Duration

	// Notifications
	BroadcastBuffer int
	WSWriteTimeout  time.Duration
	WSPingInterval  time.Duration

	// Rate limiting
	RateLimitRPS   int
	RateLimitBurst int
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "santerelay"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "santerelay123"),
		PostgresDB:       getEnv("POSTGRES_DB", "santerelay"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:        getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaLifecycleTopic: getEnv("KAFKA_LIFECYCLE_TOPIC", "referral.lifecycle"),

		JWTSecret:   getEnv("JWT_SECRET", "change-me-in-production"),
		JWTIssuer:   getEnv("JWT_ISSUER", "santerelay"),
		JWTAudience: getEnv("JWT_AUDIENCE", "santerelay-api"),
		JWTTTL:      getDuration("JWT_TTL", 12*time.Hour),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),

		TriageRulesPath: getEnv("TRIAGE_RULES_PATH", ""),

		DirectoryCacheTTL: getDuration("DIRECTORY_CACHE_TTL", 1*time.Minute),

		BroadcastBuffer: getIntEnv("BROADCAST_BUFFER", 32),
		WSWriteTimeout:  getDuration("WS_WRITE_TIMEOUT", 10*time.Second),
		WSPingInterval:  getDuration("WS_PING_INTERVAL", 30*time.Second),

		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
