// Package config provides service settings from environment variables and
// the error catalog consulted by the error boundary.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ServiceConfig holds configuration for the errorgate service.
type ServiceConfig struct {
	Port              string        `envconfig:"PORT" default:"8080"`
	MetricsPort       string        `envconfig:"METRICS_PORT" default:"9090"`
	CatalogPath       string        `envconfig:"ERROR_CATALOG_PATH" default:"configs/errors.yaml"`
	ShutdownDrainWait time.Duration `envconfig:"SHUTDOWN_DRAIN_WAIT" default:"5s"` // Time to wait for load balancer to drain (0 to skip)
	APIKeyFile        string        `envconfig:"API_KEY_FILE"`

	ReportURL        string `envconfig:"ERROR_REPORT_URL"` // Webhook for server-side failures, empty disables reporting
	ReportKeyFile    string `envconfig:"ERROR_REPORT_KEY_FILE"`
	ReportBufferSize int    `envconfig:"ERROR_REPORT_BUFFER_SIZE" default:"256"`
	ReportWorkers    int    `envconfig:"ERROR_REPORT_WORKERS" default:"2"`

	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"0"` // 0 disables rate limiting
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"20"`

	// Resolved from the *_FILE settings.
	APIKey    string `ignored:"true"`
	ReportKey string `ignored:"true"`
}

// LoadServiceConfig loads service configuration from environment variables.
func LoadServiceConfig() (*ServiceConfig, error) {
	cfg := &ServiceConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.APIKey = GetSecretFile(cfg.APIKeyFile)
	cfg.ReportKey = GetSecretFile(cfg.ReportKeyFile)
	return cfg, nil
}

func (c *ServiceConfig) validate() error {
	if c.ReportBufferSize < 1 {
		return fmt.Errorf("ERROR_REPORT_BUFFER_SIZE must be positive, got %d", c.ReportBufferSize)
	}
	if c.ReportWorkers < 1 {
		return fmt.Errorf("ERROR_REPORT_WORKERS must be positive, got %d", c.ReportWorkers)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative, got %v", c.RateLimitRPS)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive when rate limiting, got %d", c.RateLimitBurst)
	}
	return nil
}
