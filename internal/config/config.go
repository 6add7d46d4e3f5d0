// Package config provides configuration management for Grid Mapper.
//
// This package handles loading configuration from multiple sources:
//   - YAML configuration files
//   - Environment variables (with GM_ prefix)
//   - .env files
//   - Default values
//
// # Configuration Sources Priority
//
// Configuration is loaded in the following order (later sources override earlier ones):
//  1. Default values (hardcoded)
//  2. Configuration files (./config.yaml, ./configs/config.yaml, ~/.gridmapper/config.yaml, /etc/gridmapper/config.yaml)
//  3. .env files
//  4. Environment variables (GM_ prefix)
//
// # Usage Example
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
//
// # Environment Variables
//
// Environment variables override all other configuration sources.
// Use GM_ prefix and underscores for nested keys:
//   - GM_SERVER_PORT=8080
//   - GM_STORAGE_BACKEND=s3
//   - GM_STORAGE_BUCKET=contest-maps
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// InsecureDefaultSecret is the placeholder signing and JWT secret. It is
// rejected wherever a secret protects something.
const InsecureDefaultSecret = "change-me-in-production"

// Storage backends.
const (
	BackendS3         = "s3"
	BackendFilesystem = "filesystem"
)

// Config is the root configuration structure for Grid Mapper.
type Config struct {
	// Server contains HTTP server configuration
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Generation bounds a single map generation
	Generation GenerationConfig `mapstructure:"generation" yaml:"generation"`

	// Render sizes the produced maps
	Render RenderConfig `mapstructure:"render" yaml:"render"`

	// Storage selects and configures the artifact store
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// RefData points at override band and continent tables
	RefData RefDataConfig `mapstructure:"refdata" yaml:"refdata"`

	// Logging contains logging settings
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Security contains security and rate limiting settings
	Security SecurityConfig `mapstructure:"security" yaml:"security"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Host is the server bind address (default: 0.0.0.0)
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the server listen port (default: 8080)
	Port int `mapstructure:"port" yaml:"port"`

	// ReadTimeout is the maximum duration for reading requests
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing responses
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// ShutdownTimeout is the maximum duration for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// Debug enables debug logging and detailed error responses
	Debug bool `mapstructure:"debug" yaml:"debug"`

	// BodyLimit caps request bodies, in echo's size notation (e.g. "10M")
	BodyLimit string `mapstructure:"body_limit" yaml:"body_limit"`

	// PublicBaseURL is the externally reachable URL used in filesystem download links
	PublicBaseURL string `mapstructure:"public_base_url" yaml:"public_base_url"`

	// TLSEnabled enables HTTPS
	TLSEnabled bool `mapstructure:"tls_enabled" yaml:"tls_enabled"`

	// TLSCert is the path to the TLS certificate file
	TLSCert string `mapstructure:"tls_cert" yaml:"tls_cert"`

	// TLSKey is the path to the TLS private key file
	TLSKey string `mapstructure:"tls_key" yaml:"tls_key"`
}

// GenerationConfig bounds one generation request.
type GenerationConfig struct {
	// Timeout is the deadline for parsing, rendering and uploading one log
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// MaxLogBytes is the largest decoded log accepted
	MaxLogBytes int64 `mapstructure:"max_log_bytes" yaml:"max_log_bytes"`

	// FallbackThreshold is the failed-line share that triggers the other log dialect
	FallbackThreshold float64 `mapstructure:"fallback_threshold" yaml:"fallback_threshold"`
}

// RenderConfig sizes the produced maps.
type RenderConfig struct {
	// Workers is the number of groups rendered and uploaded concurrently
	Workers int `mapstructure:"workers" yaml:"workers"`

	// Width of each map in pixels
	Width int `mapstructure:"width" yaml:"width"`

	// MarkerRadius of contact markers in pixels
	MarkerRadius float64 `mapstructure:"marker_radius" yaml:"marker_radius"`
}

// StorageConfig configures the artifact store.
type StorageConfig struct {
	// Backend is "s3" or "filesystem"
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Path is the filesystem backend's root directory
	Path string `mapstructure:"path" yaml:"path"`

	// Bucket is the S3 bucket
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// Region is the AWS region of the bucket
	Region string `mapstructure:"region" yaml:"region"`

	// Prefix is prepended to every object key
	Prefix string `mapstructure:"prefix" yaml:"prefix"`

	// URLTTL is how long download links stay valid
	URLTTL time.Duration `mapstructure:"url_ttl" yaml:"url_ttl"`

	// Retention is how long the filesystem backend keeps maps; 0 keeps them forever
	Retention time.Duration `mapstructure:"retention" yaml:"retention"`

	// PruneInterval is how often expired maps are removed
	PruneInterval time.Duration `mapstructure:"prune_interval" yaml:"prune_interval"`

	// SigningSecret signs filesystem download links
	SigningSecret string `mapstructure:"signing_secret" yaml:"signing_secret"`

	// Endpoint overrides the S3 endpoint (S3-compatible stores)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// UsePathStyle addresses buckets by path instead of virtual host
	UsePathStyle bool `mapstructure:"use_path_style" yaml:"use_path_style"`

	// AccessKeyID and SecretAccessKey are static credentials; empty uses the
	// default AWS credential chain
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
}

// RefDataConfig points at override reference tables; empty uses the embedded ones.
type RefDataConfig struct {
	BandsFile      string `mapstructure:"bands_file" yaml:"bands_file"`
	ContinentsFile string `mapstructure:"continents_file" yaml:"continents_file"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error)
	Level string `mapstructure:"level" yaml:"level"`

	// Format is the log format (json, text)
	Format string `mapstructure:"format" yaml:"format"`

	// Output is the log output destination (stdout, stderr, or a file path)
	Output string `mapstructure:"output" yaml:"output"`
}

// SecurityConfig contains security and rate limiting settings.
type SecurityConfig struct {
	// RateLimit is the maximum requests per second per client
	RateLimit int `mapstructure:"rate_limit" yaml:"rate_limit"`

	// AllowedOrigins are the CORS allowed origins
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// AuthEnabled requires a JWT or API key on the generate endpoint
	AuthEnabled bool `mapstructure:"auth_enabled" yaml:"auth_enabled"`

	// JWTSecret is the secret key for signing JWT tokens
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// JWTExpiration is the JWT token expiration duration (default: 24h)
	JWTExpiration time.Duration `mapstructure:"jwt_expiration" yaml:"jwt_expiration"`

	// APIKeyHashes are bcrypt hashes of accepted API keys
	APIKeyHashes []string `mapstructure:"api_key_hashes" yaml:"api_key_hashes"`
}

var cfg *Config

// Load reads configuration from a file and environment variables.
// If cfgFile is empty, it searches for config.yaml in standard locations.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (GM_ prefix)
//  2. .env file
//  3. Configuration file
//  4. Default values
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.gridmapper")
		v.AddConfigPath("/etc/gridmapper")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			// An explicit file that does not exist falls back to defaults
			if !isFileNotFoundError(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.MergeInConfig() // Ignore error if .env file doesn't exist

	v.SetEnvPrefix("GM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.body_limit", "10M")
	v.SetDefault("server.public_base_url", "")
	v.SetDefault("server.tls_enabled", false)

	v.SetDefault("generation.timeout", "4m30s")
	v.SetDefault("generation.max_log_bytes", 5<<20)
	v.SetDefault("generation.fallback_threshold", 0.5)

	v.SetDefault("render.workers", 4)
	v.SetDefault("render.width", 1600)
	v.SetDefault("render.marker_radius", 5.0)

	v.SetDefault("storage.backend", BackendFilesystem)
	v.SetDefault("storage.path", "./maps")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.url_ttl", "1h")
	v.SetDefault("storage.retention", "24h")
	v.SetDefault("storage.prune_interval", "15m")
	v.SetDefault("storage.signing_secret", InsecureDefaultSecret)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.use_path_style", false)
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")

	v.SetDefault("refdata.bands_file", "")
	v.SetDefault("refdata.continents_file", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("security.rate_limit", 100)
	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.auth_enabled", false)
	v.SetDefault("security.jwt_secret", InsecureDefaultSecret)
	v.SetDefault("security.jwt_expiration", "24h")
	v.SetDefault("security.api_key_hashes", []string{})
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.Generation.Timeout <= 0 {
		return fmt.Errorf("generation timeout must be positive")
	}
	if cfg.Generation.MaxLogBytes <= 0 {
		return fmt.Errorf("generation max_log_bytes must be positive")
	}
	if cfg.Generation.FallbackThreshold <= 0 || cfg.Generation.FallbackThreshold > 1 {
		return fmt.Errorf("generation fallback_threshold must be in (0, 1]: %g", cfg.Generation.FallbackThreshold)
	}

	if cfg.Render.Workers < 1 {
		return fmt.Errorf("render workers must be at least 1: %d", cfg.Render.Workers)
	}
	if cfg.Render.Width < 200 || cfg.Render.Width > 8000 {
		return fmt.Errorf("render width out of range: %d", cfg.Render.Width)
	}

	switch cfg.Storage.Backend {
	case BackendS3:
		if cfg.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required for the s3 backend")
		}
	case BackendFilesystem:
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the filesystem backend")
		}
		if cfg.Server.PublicBaseURL != "" && insecureSecret(cfg.Storage.SigningSecret) {
			return fmt.Errorf("storage signing_secret must be set to a private value when server public_base_url is set")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}
	if cfg.Storage.URLTTL <= 0 {
		return fmt.Errorf("storage url_ttl must be positive")
	}
	if cfg.Storage.Retention < 0 {
		return fmt.Errorf("storage retention must not be negative")
	}
	if cfg.Storage.Retention > 0 && cfg.Storage.Retention < cfg.Storage.URLTTL {
		return fmt.Errorf("storage retention %s is shorter than url_ttl %s", cfg.Storage.Retention, cfg.Storage.URLTTL)
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging format: %q", cfg.Logging.Format)
	}

	if cfg.Security.AuthEnabled && cfg.Security.JWTSecret == "" && len(cfg.Security.APIKeyHashes) == 0 {
		return fmt.Errorf("auth is enabled but neither jwt_secret nor api_key_hashes is set")
	}
	if cfg.Security.AuthEnabled && cfg.Security.JWTSecret == InsecureDefaultSecret {
		return fmt.Errorf("auth is enabled with the placeholder jwt_secret")
	}

	return nil
}

func insecureSecret(secret string) bool {
	return strings.TrimSpace(secret) == "" || secret == InsecureDefaultSecret
}

// Get returns the most recently loaded configuration.
func Get() *Config {
	return cfg
}

// isFileNotFoundError checks if an error is a file not found error.
func isFileNotFoundError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr, os.ErrNotExist)
	}
	return false
}
