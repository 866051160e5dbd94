package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// Server-side encryption modes understood by the object store backends.
const (
	SSEKMS    = "aws:kms"
	SSEAES256 = "AES256"
	SSENone   = "none"
)

// StorageConfig holds object store settings. Backend selects the implementation
// registered in the storage package ("minio", "s3" or "memory").
type StorageConfig struct {
	Backend       string
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	SSE           string
	SSEKMSKeyID   string
	PublicBaseURL string
	TimeoutSec    int
}

// Timeout is the bound applied to every backend call.
func (c StorageConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// RateLimitConfig configures the per-user token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables and an optional config file.
type AppConfig struct {
	Port      string
	LogLevel  string
	Database  DatabaseConfig
	Storage   StorageConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

var validBackends = []string{"minio", "s3", "memory"}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("app.port", "8080")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("db.host", "")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime_sec", 300)

	v.SetDefault("object_store.backend", "minio")
	v.SetDefault("object_store.endpoint", "")
	v.SetDefault("object_store.region", "us-east-1")
	v.SetDefault("object_store.access_key", "")
	v.SetDefault("object_store.secret_key", "")
	v.SetDefault("object_store.bucket", "")
	v.SetDefault("object_store.use_ssl", false)
	v.SetDefault("object_store.sse", SSEKMS)
	v.SetDefault("object_store.sse_kms_key_id", "")
	v.SetDefault("object_store.public_base_url", "")
	v.SetDefault("object_store.timeout_sec", 10)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("rate_limit.rps", 5.0)
	v.SetDefault("rate_limit.burst", 10)

	// db.host <- DB_HOST, object_store.bucket <- OBJECT_STORE_BUCKET, ...
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.AddConfigPath(".")

	return v
}

// Load reads configuration from environment variables and, when present, a
// config.{yaml,toml,json} file in the working directory.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence over the file.
func Load() (*AppConfig, error) {
	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return &AppConfig{
		Port:     v.GetString("app.port"),
		LogLevel: v.GetString("app.log_level"),
		Database: DatabaseConfig{
			Host:               v.GetString("db.host"),
			Port:               v.GetString("db.port"),
			User:               v.GetString("db.user"),
			Password:           v.GetString("db.password"),
			Name:               v.GetString("db.name"),
			SSLMode:            v.GetString("db.sslmode"),
			MaxOpenConns:       v.GetInt("db.max_open_conns"),
			MaxIdleConns:       v.GetInt("db.max_idle_conns"),
			ConnMaxLifetimeSec: v.GetInt("db.conn_max_lifetime_sec"),
		},
		Storage: StorageConfig{
			Backend:       v.GetString("object_store.backend"),
			Endpoint:      v.GetString("object_store.endpoint"),
			Region:        v.GetString("object_store.region"),
			AccessKey:     v.GetString("object_store.access_key"),
			SecretKey:     v.GetString("object_store.secret_key"),
			Bucket:        v.GetString("object_store.bucket"),
			UseSSL:        v.GetBool("object_store.use_ssl"),
			SSE:           v.GetString("object_store.sse"),
			SSEKMSKeyID:   v.GetString("object_store.sse_kms_key_id"),
			PublicBaseURL: v.GetString("object_store.public_base_url"),
			TimeoutSec:    v.GetInt("object_store.timeout_sec"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			TokenTTL:  v.GetDuration("auth.token_ttl"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("rate_limit.rps"),
			Burst:             v.GetInt("rate_limit.burst"),
		},
	}, nil
}

// Validate reports settings the server cannot start with.
func (c *AppConfig) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("AUTH_TOKEN_TTL must be positive")
	}

	known := false
	for _, b := range validBackends {
		if c.Storage.Backend == b {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown object store backend %q", c.Storage.Backend)
	}

	switch c.Storage.SSE {
	case SSEKMS:
		if c.Storage.SSEKMSKeyID == "" && c.Storage.Backend != "memory" {
			return errors.New("OBJECT_STORE_SSE_KMS_KEY_ID is required when OBJECT_STORE_SSE is aws:kms")
		}
	case SSEAES256, SSENone:
	default:
		return fmt.Errorf("unknown server-side encryption mode %q", c.Storage.SSE)
	}

	if c.Storage.TimeoutSec <= 0 {
		return errors.New("OBJECT_STORE_TIMEOUT_SEC must be positive")
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}
