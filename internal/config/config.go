// Package config loads server settings from the environment. A .env file in
// the working directory is read first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the server configuration
type Config struct {
	Port        string
	Environment string

	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RateLimitPerMinute int

	AWSRegion  string
	AWSBucket  string
	CDNBaseURL string

	ElasticsearchURL string
	SearchBackend    string

	OTelEnabled      bool
	OTelEndpoint     string
	OTelSamplingRate float64

	LogLevel string
	LogFile  string
}

// LoadDotEnv reads .env into the process environment. A missing file is not
// an error; the returned bool reports whether one was loaded.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load builds a Config from the environment. JWT_SECRET is required.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "8787"),
		Environment:        getEnvOrDefault("ENVIRONMENT", "development"),
		DatabaseURL:        DatabaseURL(),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		RedisHost:          os.Getenv("REDIS_HOST"),
		RedisPort:          getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		AWSRegion:          getEnvOrDefault("AWS_REGION", "us-east-1"),
		AWSBucket:          os.Getenv("AWS_BUCKET"),
		CDNBaseURL:         os.Getenv("CDN_BASE_URL"),
		ElasticsearchURL:   os.Getenv("ELASTICSEARCH_URL"),
		SearchBackend:      strings.ToLower(getEnvOrDefault("SEARCH_BACKEND", "postgres")),
		OTelEnabled:        getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTelSamplingRate:   getEnvFloat("OTEL_SAMPLING_RATE", 1.0),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:            getEnvOrDefault("LOG_FILE", "projecty.log"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	ttl, err := time.ParseDuration(getEnvOrDefault("JWT_TTL", "720h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	cfg.JWTTTL = ttl

	switch cfg.SearchBackend {
	case "postgres", "elasticsearch":
	default:
		return nil, fmt.Errorf("unknown SEARCH_BACKEND %q", cfg.SearchBackend)
	}

	return cfg, nil
}

// DatabaseURL returns DATABASE_URL, or a DSN assembled from the DB_* variables
func DatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnvOrDefault("DB_HOST", "localhost"),
		getEnvOrDefault("DB_PORT", "5432"),
		getEnvOrDefault("DB_USER", "postgres"),
		getEnvOrDefault("DB_PASSWORD", ""),
		getEnvOrDefault("DB_NAME", "projecty"),
		getEnvOrDefault("DB_SSLMODE", "disable"),
	)
}

// IsDevelopment reports whether verbose SQL logging should be on
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// RedisEnabled reports whether a Redis host was configured
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
