package config

import (
	"os"
	"strconv"
	"time"
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

// MinIOConfig holds object storage settings for the raw snapshot archive.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// KaiterraConfig holds upstream Kaiterra REST v1 API settings.
// AuthMethod selects the scheme: "url" passes the developer key as a query
// parameter, "hmac" signs each request with the client secret key.
type KaiterraConfig struct {
	BaseURL    string
	AuthMethod string
	APIKey     string
	ClientID   string
	HMACKey    string
}

// PollerConfig controls the background ingest loop.
type PollerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port     string
	Database DatabaseConfig
	MinIO    MinIOConfig
	Kaiterra KaiterraConfig
	Poller   PollerConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port: getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "airq-snapshots"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Kaiterra: KaiterraConfig{
			BaseURL:    getEnv("KAITERRA_BASE_URL", "https://api.kaiterra.com/v1/"),
			AuthMethod: getEnv("KAITERRA_AUTH", "url"),
			APIKey:     getEnv("KAITERRA_API_KEY", ""),
			ClientID:   getEnv("KAITERRA_CLIENT_ID", ""),
			HMACKey:    getEnv("KAITERRA_HMAC_KEY", ""),
		},
		Poller: PollerConfig{
			Enabled:  getEnvBool("POLL_ENABLED", true),
			Interval: time.Duration(getEnvInt("POLL_INTERVAL_SEC", 60)) * time.Second,
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
