package report

import (
	"math"
	"time"
)

// Hardcoded delivery defaults - these rarely need tuning.
const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultDeliverTimeout = 30 * time.Second
	defaultSource         = "errorgate"
)

// Config holds configuration for the reporter.
type Config struct {
	URL         string        // webhook receiving events
	SigningKey  string        // HMAC key, empty = unsigned
	Source      string        // CloudEvent source (default: "errorgate")
	BufferSize  int           // pending reports buffer (default: 256)
	Workers     int           // concurrent delivery goroutines (default: 2)
	HTTPTimeout time.Duration // per-request timeout (default: 10s)

	MaxRetries     int           // retries after the first attempt (default: 3, negative = none)
	InitialBackoff time.Duration // default: 100ms
	MaxBackoff     time.Duration // default: 5s
}

// withDefaults fills in zero values with defaults.
func (c Config) withDefaults() Config {
	if c.Source == "" {
		c.Source = defaultSource
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 256
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	return c
}

// backoff calculates exponential backoff for a given attempt.
// Attempt 1 returns initial, attempt 2 returns initial*2, etc.
func (c Config) backoff(attempt int) time.Duration {
	if attempt < 1 {
		return c.InitialBackoff
	}
	d := float64(c.InitialBackoff) * math.Pow(2.0, float64(attempt-1))
	if d > float64(c.MaxBackoff) {
		d = float64(c.MaxBackoff)
	}
	return time.Duration(d)
}
