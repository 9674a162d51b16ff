package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/sirosfoundation/go-citizen-client/pkg/logging"
)

// Build environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Runtime platforms
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
	PlatformWeb     = "web"
)

// Config represents the application configuration
type Config struct {
	// Environment is the build environment: development or production.
	// Request logging in the HTTP gateway is only installed in development.
	Environment string `yaml:"environment" envconfig:"ENVIRONMENT"`
	// Platform is the runtime platform: android, ios, web or empty.
	Platform string `yaml:"platform" envconfig:"PLATFORM"`
	// RuntimeHost is the host the web client was served from, if any.
	RuntimeHost string `yaml:"runtime_host" envconfig:"RUNTIME_HOST"`

	API     APIConfig      `yaml:"api" envconfig:"API"`
	Logging logging.Config `yaml:"logging" envconfig:"LOGGING"`
	Storage StorageConfig  `yaml:"storage" envconfig:"STORAGE"`
	MockAPI MockAPIConfig  `yaml:"mock_api" envconfig:"MOCK_API"`
}

// APIConfig contains backend endpoint configuration
type APIConfig struct {
	// URL is a single backend base URL override.
	URL string `yaml:"url" envconfig:"URL"`
	// URLs is a comma-separated list of base URL overrides (highest precedence).
	URLs string `yaml:"urls" envconfig:"URLS"`
	// Timeout is the default request timeout (seconds).
	Timeout int `yaml:"timeout" envconfig:"TIMEOUT"`
	// HealthTimeout is the timeout of the health probe (seconds).
	HealthTimeout int `yaml:"health_timeout" envconfig:"HEALTH_TIMEOUT"`
}

// RequestTimeout returns the default request timeout
func (c APIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// ProbeTimeout returns the health probe timeout
func (c APIConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.HealthTimeout) * time.Second
}

// expoEnv holds the public Expo variables shared with the mobile build.
type expoEnv struct {
	APIURL  string `envconfig:"API_URL"`
	APIURLs string `envconfig:"API_URLS"`
}

// StorageConfig contains session persistence configuration
type StorageConfig struct {
	Type    string        `yaml:"type" envconfig:"TYPE"` // memory, file, redis, mongodb
	File    FileConfig    `yaml:"file" envconfig:"FILE"`
	Redis   RedisConfig   `yaml:"redis" envconfig:"REDIS"`
	MongoDB MongoDBConfig `yaml:"mongodb" envconfig:"MONGODB"`
}

// FileConfig contains file-backed storage configuration
type FileConfig struct {
	// envconfig falls back to the bare tag name, so avoid clashing with $PATH.
	Path string `yaml:"path" envconfig:"LOCATION"`
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	Address   string `yaml:"address" envconfig:"ADDRESS"`
	Password  string `yaml:"password" envconfig:"PASSWORD"`
	DB        int    `yaml:"db" envconfig:"DB"`
	KeyPrefix string `yaml:"key_prefix" envconfig:"KEY_PREFIX"`
}

// MongoDBConfig contains MongoDB-specific configuration
type MongoDBConfig struct {
	URI        string `yaml:"uri" envconfig:"URI"`
	Database   string `yaml:"database" envconfig:"DATABASE"`
	Collection string `yaml:"collection" envconfig:"COLLECTION"`
	Timeout    int    `yaml:"timeout" envconfig:"TIMEOUT"` // seconds
}

// MockAPIConfig configures the development backend
type MockAPIConfig struct {
	Host           string              `yaml:"host" envconfig:"HOST"`
	Port           int                 `yaml:"port" envconfig:"PORT"`
	JWTSecret      string              `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	TokenExpiryMin int                 `yaml:"token_expiry_minutes" envconfig:"TOKEN_EXPIRY_MINUTES"`
	RateLimit      AuthRateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// Address returns the development backend address
func (c *MockAPIConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthRateLimitConfig configures login throttling on the development backend
type AuthRateLimitConfig struct {
	Enabled        bool `yaml:"enabled" envconfig:"ENABLED"`
	MaxAttempts    int  `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS"`
	WindowSeconds  int  `yaml:"window_seconds" envconfig:"WINDOW_SECONDS"`
	LockoutSeconds int  `yaml:"lockout_seconds" envconfig:"LOCKOUT_SECONDS"`
}

// SetDefaults fills zero values
func (c *AuthRateLimitConfig) SetDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.WindowSeconds <= 0 {
		c.WindowSeconds = 60
	}
	if c.LockoutSeconds <= 0 {
		c.LockoutSeconds = 300
	}
}

// Load loads configuration from file, .env and environment variables
func Load(configFile string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Load from YAML file if provided (overrides defaults)
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// .env never overrides variables already set in the process environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays CITIZEN_* variables, then the EXPO_PUBLIC_* overrides.
func applyEnv(cfg *Config) error {
	if err := envconfig.Process("CITIZEN", cfg); err != nil {
		return fmt.Errorf("failed to process environment variables: %w", err)
	}

	var expo expoEnv
	if err := envconfig.Process("EXPO_PUBLIC", &expo); err != nil {
		return fmt.Errorf("failed to process EXPO_PUBLIC variables: %w", err)
	}
	if expo.APIURL != "" {
		cfg.API.URL = expo.APIURL
	}
	if expo.APIURLs != "" {
		cfg.API.URLs = expo.APIURLs
	}
	return nil
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible default values
func defaultConfig() *Config {
	return &Config{
		Environment: EnvProduction,
		API: APIConfig{
			Timeout:       30,
			HealthTimeout: 15,
		},
		Logging: logging.DefaultConfig(),
		Storage: StorageConfig{
			Type: "file",
			File: FileConfig{
				Path: defaultSessionPath(),
			},
			Redis: RedisConfig{
				Address:   "localhost:6379",
				KeyPrefix: "citizen:session:",
			},
			MongoDB: MongoDBConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "citizen_client",
				Collection: "session_kv",
				Timeout:    10,
			},
		},
		MockAPI: MockAPIConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			TokenExpiryMin: 60,
			RateLimit: AuthRateLimitConfig{
				Enabled:        true,
				MaxAttempts:    10,
				WindowSeconds:  60,
				LockoutSeconds: 300,
			},
		},
	}
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".citizen-session.json"
	}
	return dir + string(os.PathSeparator) + "citizen-client" + string(os.PathSeparator) + "session.json"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("invalid environment: %s (must be development or production)", c.Environment)
	}

	switch c.Platform {
	case "", PlatformAndroid, PlatformIOS, PlatformWeb:
	default:
		return fmt.Errorf("invalid platform: %s (must be android, ios, web or empty)", c.Platform)
	}

	if c.API.Timeout <= 0 || c.API.HealthTimeout <= 0 {
		return fmt.Errorf("api timeouts must be positive")
	}

	switch c.Storage.Type {
	case "memory", "redis":
	case "file":
		if c.Storage.File.Path == "" {
			return fmt.Errorf("storage file path is required when using file storage")
		}
	case "mongodb":
		if c.Storage.MongoDB.URI == "" {
			return fmt.Errorf("mongodb uri is required when using mongodb storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory, file, redis, or mongodb)", c.Storage.Type)
	}

	return nil
}

// IsDevelopment reports whether this is a development build
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}
