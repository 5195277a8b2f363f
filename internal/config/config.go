package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config is all runtime configuration, read from environment variables.
type Config struct {
	// PostgreSQL
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPass     string
	DBPoolSize int

	// Redis (pub/sub broker)
	RedisHost string
	RedisPort int
	RedisPass string

	// MinIO object storage
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioPublicURL string
	MinioUseSSL    bool
	PresignTTL     time.Duration

	// JWT
	JWTSecret     string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration

	// Server
	APIPort       int
	APIThreads    int
	MaxFileSizeMB int64
}

// FromEnv loads configuration, applying defaults for everything except
// JWT_SECRET which must be set and at least 16 characters.
func FromEnv() (*Config, error) {
	c := &Config{
		DBHost:     env("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     env("DB_NAME", "messenger"),
		DBUser:     env("DB_USER", "messenger"),
		DBPass:     env("DB_PASS", ""),
		DBPoolSize: envInt("DB_POOL_SIZE", 10),

		RedisHost: env("REDIS_HOST", "localhost"),
		RedisPort: envInt("REDIS_PORT", 6379),
		RedisPass: env("REDIS_PASS", ""),

		MinioEndpoint:  env("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: env("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: env("MINIO_SECRET_KEY", ""),
		MinioBucket:    env("MINIO_BUCKET", "messenger-files"),
		MinioPublicURL: env("MINIO_PUBLIC_URL", ""),
		MinioUseSSL:    env("MINIO_USE_SSL", "") == "true",
		PresignTTL:     time.Duration(envInt("MINIO_PRESIGN_TTL", 3600)) * time.Second,

		JWTSecret:     env("JWT_SECRET", ""),
		JWTAccessTTL:  time.Duration(envInt("JWT_ACCESS_TTL", 3600)) * time.Second,
		JWTRefreshTTL: time.Duration(envInt("JWT_REFRESH_TTL", 604800)) * time.Second,

		APIPort:       envInt("API_PORT", 8080),
		APIThreads:    envInt("API_THREADS", 0),
		MaxFileSizeMB: int64(envInt("MAX_FILE_SIZE_MB", 50)),
	}

	if len(c.JWTSecret) < 16 {
		return nil, fmt.Errorf("JWT_SECRET is not set or too short (min 16 chars)")
	}
	if c.DBPoolSize < 1 {
		c.DBPoolSize = 10
	}
	return c, nil
}

// DatabaseURL assembles a pgx connection string from the DB_* variables.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPass),
		c.DBHost, c.DBPort, c.DBName)
}

// RedisAddr is the host:port pair for the Redis client.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// MaxFileSizeBytes is the upload cap in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
