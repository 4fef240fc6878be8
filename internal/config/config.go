// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the PubChem MCP server.
type Config struct {
	// HTTP transport bind address
	Host string `envconfig:"HOST" default:"127.0.0.1"`
	Port int    `envconfig:"PORT" default:"8000"`

	// Transport selection; the --stdio flag sets this too
	Stdio bool `envconfig:"MCP_STDIO" default:"false"`

	// PubChem upstream
	PubChemBaseURL   string        `envconfig:"PUBCHEM_BASE_URL" default:"https://pubchem.ncbi.nlm.nih.gov/rest/pug"`
	PubChemTimeout   time.Duration `envconfig:"PUBCHEM_TIMEOUT" default:"10s"`
	PubChemUserAgent string        `envconfig:"PUBCHEM_USER_AGENT" default:"pubchem-mcp/0.1.0"`

	// Inbound protection on the HTTP transport
	RateLimitRPS    float64       `envconfig:"RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST" default:"20"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Observability
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv reads configuration from the environment only.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.PubChemTimeout <= 0 {
		return fmt.Errorf("PUBCHEM_TIMEOUT must be positive, got %s", c.PubChemTimeout)
	}
	if c.PubChemBaseURL == "" {
		return fmt.Errorf("PUBCHEM_BASE_URL is required")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit settings must not be negative")
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
