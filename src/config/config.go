package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"dashboard-sync/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the YAML file.
const (
	EnvAPIURL             = "DASHBOARD_API_URL"
	EnvLogLevel           = "DASHBOARD_LOG_LEVEL"
	EnvDBConnectionString = "DASHBOARD_DB_CONNECTION_STRING"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from raw YAML, applying defaults and
// environment overrides.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()
	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills optional fields left empty in the file.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "dashboard-sync"
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.API.StreamPath == "" {
		c.API.StreamPath = "/ws"
	}
	if c.API.RequestTimeout == 0 {
		c.API.RequestTimeout = 10
	}
	if c.API.ConcurrentRequests == 0 {
		c.API.ConcurrentRequests = 4
	}
	if c.Stream.ReconnectDelayMs == 0 {
		c.Stream.ReconnectDelayMs = 3000
	}
	if c.Stream.HandshakeTimeoutSeconds == 0 {
		c.Stream.HandshakeTimeoutSeconds = 10
	}
	if c.Bootstrap.RetryDelayMs == 0 {
		c.Bootstrap.RetryDelayMs = 1000
	}
	if c.Relay.Host == "" {
		c.Relay.Host = "127.0.0.1"
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "none"
	}
	if c.TradeFeedSize == 0 {
		c.TradeFeedSize = 100
	}
	if c.MarketMIC == "" {
		c.MarketMIC = "xnse"
	}
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides file values with the DASHBOARD_* environment variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = strings.ToUpper(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDBConnectionString)); v != "" {
		c.Storage.DBConnectionString = v
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARNING", "ERROR":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	// Validate API configuration
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url cannot be empty")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid api base url: %s", c.API.BaseURL)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("api base url must be http or https, got %q", u.Scheme)
	}
	if !strings.HasPrefix(c.API.StreamPath, "/") {
		return fmt.Errorf("stream path must start with '/': %s", c.API.StreamPath)
	}
	if c.API.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.API.ConcurrentRequests <= 0 {
		return fmt.Errorf("concurrent requests must be greater than 0")
	}

	// Validate Stream configuration
	if c.Stream.ReconnectDelayMs <= 0 {
		return fmt.Errorf("reconnect delay must be greater than 0")
	}
	if c.Stream.PingIntervalSeconds < 0 {
		return fmt.Errorf("ping interval cannot be negative")
	}
	if c.Stream.HandshakeTimeoutSeconds <= 0 {
		return fmt.Errorf("handshake timeout must be greater than 0")
	}

	if c.Bootstrap.Retries < 0 {
		return fmt.Errorf("bootstrap retries cannot be negative")
	}

	// Validate Relay configuration
	if c.Relay.Enabled && (c.Relay.Port <= 1024 || c.Relay.Port > 65535) {
		return fmt.Errorf("invalid relay port number: %d (must be between 1025 and 65535)", c.Relay.Port)
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "none":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}

	if c.TradeFeedSize < 0 {
		return fmt.Errorf("trade feed size cannot be negative")
	}

	return nil
}

// -----------------------------------------------------------------------------

// WriteYAML encodes the effective configuration, defaults and environment
// overrides included.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c.MConfig); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// -----------------------------------------------------------------------------

// Save writes the effective configuration to path. The file may hold the
// journal connection string, so it is created owner-only.
func (c *Config) Save(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", path, err)
	}
	if err := c.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
