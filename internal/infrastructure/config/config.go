package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Security SecurityConfig `mapstructure:"security"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// StorageConfig selects and configures the persistence adapter.
// Backend "file" keeps tasks and order in JSON files under Dir; backend
// "sql" uses the Driver/DSN pair (sqlite by default, postgres supported).
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
}

// CacheConfig configures the offline cache gateway. Version is the single
// cache-invalidation mechanism: bumping it purges entries stored under the
// previous tag on the next activation.
type CacheConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Version string   `mapstructure:"version"`
	Origin  string   `mapstructure:"origin"`
	Assets  []string `mapstructure:"assets"`
}

// SyncConfig configures the remote document-store client
type SyncConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	// Configure viper
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	setDefaults()

	// Bind environment variables
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "ProTodo")
	viper.SetDefault("app.version", "2.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Storage defaults
	viper.SetDefault("storage.backend", "file")
	viper.SetDefault("storage.dir", "./data")
	viper.SetDefault("storage.driver", "sqlite")
	viper.SetDefault("storage.dsn", "./data/protodo.db")

	// Cache defaults: the shell asset manifest served cache-first
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.version", "pro-todo-v1")
	viper.SetDefault("cache.origin", "")
	viper.SetDefault("cache.assets", []string{
		"/",
		"/index.html",
		"/style.css",
		"/app.js",
		"/manifest.webmanifest",
		"/assets/icon-192.png",
		"/assets/icon-512.png",
	})

	// Sync defaults
	viper.SetDefault("sync.enabled", false)
	viper.SetDefault("sync.base_url", "")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "json")
	viper.SetDefault("logger.output", "stdout")

	// Security defaults
	viper.SetDefault("security.cors_allowed_origins", "*")
	viper.SetDefault("security.rate_limit_requests", 100)
	viper.SetDefault("security.rate_limit_window", "1m")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
}

func bindEnvVars() {
	// App
	viper.BindEnv("app.name", "APP_NAME")
	viper.BindEnv("app.version", "APP_VERSION")
	viper.BindEnv("app.environment", "APP_ENVIRONMENT")
	viper.BindEnv("app.debug", "APP_DEBUG")

	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	viper.BindEnv("server.idle_timeout", "SERVER_IDLE_TIMEOUT")

	// Storage
	viper.BindEnv("storage.backend", "STORAGE_BACKEND")
	viper.BindEnv("storage.dir", "STORAGE_DIR")
	viper.BindEnv("storage.driver", "STORAGE_DRIVER")
	viper.BindEnv("storage.dsn", "STORAGE_DSN")

	// Cache
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.version", "CACHE_VERSION")
	viper.BindEnv("cache.origin", "CACHE_ORIGIN")

	// Sync
	viper.BindEnv("sync.enabled", "SYNC_ENABLED")
	viper.BindEnv("sync.base_url", "SYNC_BASE_URL")

	// Logger
	viper.BindEnv("logger.level", "LOG_LEVEL")
	viper.BindEnv("logger.format", "LOG_FORMAT")
	viper.BindEnv("logger.output", "LOG_OUTPUT")

	// Security
	viper.BindEnv("security.cors_allowed_origins", "CORS_ALLOWED_ORIGINS")
	viper.BindEnv("security.rate_limit_requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("security.rate_limit_window", "RATE_LIMIT_WINDOW")

	// Metrics
	viper.BindEnv("metrics.enabled", "ENABLE_METRICS")
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	switch cfg.Storage.Backend {
	case "file":
		if cfg.Storage.Dir == "" {
			return fmt.Errorf("storage dir is required for the file backend")
		}
	case "sql":
		if cfg.Storage.Driver != "sqlite" && cfg.Storage.Driver != "postgres" {
			return fmt.Errorf("storage driver must be sqlite or postgres")
		}
		if cfg.Storage.DSN == "" {
			return fmt.Errorf("storage dsn is required for the sql backend")
		}
	default:
		return fmt.Errorf("storage backend must be file or sql")
	}

	if cfg.Cache.Enabled {
		if cfg.Cache.Version == "" {
			return fmt.Errorf("cache version tag is required when the cache gateway is enabled")
		}
		if cfg.Cache.Origin == "" {
			return fmt.Errorf("cache origin is required when the cache gateway is enabled")
		}
	}

	if cfg.Sync.Enabled && cfg.Sync.BaseURL == "" {
		return fmt.Errorf("sync base_url is required when sync is enabled")
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (cfg *AppConfig) IsDevelopment() bool {
	return cfg.Environment == "development"
}

// IsProduction returns true if the environment is production
func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}
