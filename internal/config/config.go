package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server       ServerConfig
	Log          LogConfig
	Docstore     DocstoreConfig
	Cache        CacheConfig
	Edge         EdgeConfig
	Invalidation InvalidationConfig
	Rates        RatesConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// PublicBaseURL is the site's public origin, used for origin
	// revalidation calls.
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:""`

	// AllowedOrigins is the CORS allow-list for browser callers.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// DocstoreConfig holds document store connection settings.
type DocstoreConfig struct {
	BaseURL   string        `envconfig:"DOCSTORE_BASE_URL" default:""`
	ProjectID string        `envconfig:"DOCSTORE_PROJECT_ID" default:""`
	APIKey    string        `envconfig:"DOCSTORE_API_KEY" default:""`
	Timeout   time.Duration `envconfig:"DOCSTORE_TIMEOUT" default:"30s"`
	PageSize  int           `envconfig:"DOCSTORE_PAGE_SIZE" default:"100"`
}

// CacheConfig holds edge cache store settings.
type CacheConfig struct {
	Type string `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// EdgeConfig holds edge provider (zone purge API) settings.
type EdgeConfig struct {
	BaseURL  string        `envconfig:"EDGE_API_BASE_URL" default:""`
	ZoneID   string        `envconfig:"EDGE_ZONE_ID" default:""`
	APIToken string        `envconfig:"EDGE_API_TOKEN" default:""`
	TagPurge bool          `envconfig:"EDGE_TAG_PURGE" default:"false"`
	Timeout  time.Duration `envconfig:"EDGE_TIMEOUT" default:"10s"`
}

// InvalidationConfig holds the shared-secret settings for privileged
// cache operations.
type InvalidationConfig struct {
	Secret             string        `envconfig:"INVALIDATION_SECRET" default:""`
	RevalidationSecret string        `envconfig:"REVALIDATION_SECRET" default:""`
	Timeout            time.Duration `envconfig:"INVALIDATION_TIMEOUT" default:"10s"`
}

// RatesConfig holds currency rate source settings.
type RatesConfig struct {
	URL      string        `envconfig:"RATES_URL" default:""`
	Currency string        `envconfig:"RATES_CURRENCY" default:"EUR"`
	TTL      time.Duration `envconfig:"RATES_TTL" default:"1h"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// HasCredentials reports whether the edge provider can actually be called.
func (e *EdgeConfig) HasCredentials() bool {
	return e.ZoneID != "" && e.APIToken != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Invalidation.Secret == "" {
		return nil, fmt.Errorf("INVALIDATION_SECRET is required")
	}
	if cfg.Docstore.ProjectID == "" {
		return nil, fmt.Errorf("DOCSTORE_PROJECT_ID is required")
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
