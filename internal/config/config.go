package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration settings for a batch geocoding run. It is
// built once at startup and passed by reference; nothing mutates it
// afterwards.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - HealthPort: The port for the monitoring server (/healthz, /metrics).
// - ProviderType: The geocoding provider to use (nominatim, google, visicom).
// - APIKey: The API key for the provider (required for Google and Visicom).
// - ProviderRateLimit: Requests-per-second cap passed to providers that take one.
// - RequestDelay: Minimum spacing between network-call starts.
// - BatchSize: Newly cached successes between cache flushes.
// - MaxRetries: Attempts per address for transient errors.
// - RetryDelay: Base delay between retry attempts.
// - CacheBackend: Cache storage backend (file or postgres).
// - CachePath: Path of the file cache artifact.
// - OutputPath: Path of the annotated output artifact.
// - Database: PostgreSQL settings for the postgres cache backend.
type Config struct {
	Env               string
	HealthPort        int
	ProviderType      string
	APIKey            string
	ProviderRateLimit int
	RequestDelay      time.Duration
	BatchSize         int
	MaxRetries        int
	RetryDelay        time.Duration
	CacheBackend      string
	CachePath         string
	OutputPath        string
	Database          PostgresConfig
}

// PostgresConfig struct holds the configuration details for connecting to a
// PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// Cache backend names accepted by the configuration.
const (
	CacheBackendFile     = "file"
	CacheBackendPostgres = "postgres"
)

// MustLoad loads the configuration from GEOCODER_* environment variables with
// sane defaults and panics on malformed values.
func MustLoad() *Config {
	v := viper.New()
	v.SetEnvPrefix("GEOCODER")
	v.AutomaticEnv()

	v.SetDefault("env", "production")
	v.SetDefault("health_port", 8080)
	v.SetDefault("provider_type", "nominatim")
	v.SetDefault("provider_rate_limit", 0)
	v.SetDefault("request_delay", "1.1s")
	v.SetDefault("batch_size", 20)
	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_delay", "2s")
	v.SetDefault("cache_backend", CacheBackendFile)
	v.SetDefault("cache_path", "geocoding_cache.json")
	v.SetDefault("output_path", "geocoded_addresses.json")

	// Database settings keep their conventional plain names.
	_ = v.BindEnv("db_host", "DB_HOST")
	_ = v.BindEnv("db_port", "DB_PORT")
	_ = v.BindEnv("db_user", "DB_USERNAME")
	_ = v.BindEnv("db_password", "DB_PASSWORD")
	_ = v.BindEnv("db_name", "DB_NAME")
	v.SetDefault("db_port", "5432")

	requestDelay := v.GetDuration("request_delay")
	if requestDelay <= 0 {
		panic("failed to parse request delay from configuration")
	}

	retryDelay := v.GetDuration("retry_delay")
	if retryDelay <= 0 {
		panic("failed to parse retry delay from configuration")
	}

	batchSize := v.GetInt("batch_size")
	if batchSize <= 0 {
		panic("failed to parse batch size from configuration, must be a positive integer")
	}

	maxRetries := v.GetInt("max_retries")
	if maxRetries <= 0 {
		panic("failed to parse max retries from configuration, must be a positive integer")
	}

	healthPort := v.GetInt("health_port")
	if healthPort <= 0 {
		panic("failed to parse port for monitoring server from configuration")
	}

	backend := v.GetString("cache_backend")
	if backend != CacheBackendFile && backend != CacheBackendPostgres {
		panic("unknown cache backend in configuration, must be file or postgres")
	}

	return &Config{
		Env:               v.GetString("env"),
		HealthPort:        healthPort,
		ProviderType:      v.GetString("provider_type"),
		APIKey:            v.GetString("provider_key"),
		ProviderRateLimit: v.GetInt("provider_rate_limit"),
		RequestDelay:      requestDelay,
		BatchSize:         batchSize,
		MaxRetries:        maxRetries,
		RetryDelay:        retryDelay,
		CacheBackend:      backend,
		CachePath:         v.GetString("cache_path"),
		OutputPath:        v.GetString("output_path"),
		Database: PostgresConfig{
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			Name:     v.GetString("db_name"),
		},
	}
}
