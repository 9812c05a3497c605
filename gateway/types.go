package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
)

// StatusClientClosedRequest is returned when the caller cancelled the request
// or its deadline passed before the provider answered.
const StatusClientClosedRequest = 499

// Error kinds carried in ErrorResponse.Kind.
const (
	KindCancelled = "cancelled"
	KindInvalid   = "invalid"
	KindBackend   = "backend"
	KindInternal  = "internal"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
	Kind   string `json:"kind"`
}

// Classify maps an error to its HTTP status and kind.
func Classify(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, KindInternal
	case errors.IsCancelled(err):
		return StatusClientClosedRequest, KindCancelled
	case errors.IsBackendError(err):
		return http.StatusBadGateway, KindBackend
	case errors.IsInvalid(err):
		return http.StatusBadRequest, KindInvalid
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

// Config holds configuration for the HTTP gateway
type Config struct {
	// Addr is the listen address (default ":8080")
	Addr string `json:"addr" yaml:"addr"`

	// EnableCORS enables CORS headers (default: false, requires explicit cors_origins)
	EnableCORS bool `json:"enable_cors" yaml:"enable_cors"`

	// CORSOrigins lists allowed CORS origins (required when EnableCORS is true)
	// Use ["*"] for development only
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`

	// MaxRequestSize limits request body size in bytes (default: 1MB)
	MaxRequestSize int64 `json:"max_request_size,omitempty" yaml:"max_request_size,omitempty"`

	// RequestTimeout bounds every provider call (default: "30s")
	RequestTimeout string `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`

	// ProbeTimeout bounds every source health probe (default: "5s")
	ProbeTimeout string `json:"probe_timeout,omitempty" yaml:"probe_timeout,omitempty"`

	// ProbeInterval is the time between health probe rounds (default: "30s")
	ProbeInterval string `json:"probe_interval,omitempty" yaml:"probe_interval,omitempty"`

	requestTimeout time.Duration
	probeTimeout   time.Duration
	probeInterval  time.Duration
}

// Validate ensures the gateway configuration is valid and fills defaults.
func (c *Config) Validate() error {
	if c.Addr == "" {
		c.Addr = ":8080"
	}

	// Validate max request size
	if c.MaxRequestSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"max_request_size cannot be negative")
	}
	if c.MaxRequestSize == 0 {
		c.MaxRequestSize = 1024 * 1024 // 1MB default
	}
	if c.MaxRequestSize > 100*1024*1024 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"max_request_size cannot exceed 100MB")
	}

	// CORS requires explicit origin configuration for security
	if c.EnableCORS && len(c.CORSOrigins) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"enable_cors requires explicit cors_origins configuration (use [\"*\"] for development only)")
	}

	var err error
	if c.requestTimeout, err = parseTimeout("request_timeout", c.RequestTimeout, 30*time.Second); err != nil {
		return err
	}
	if c.probeTimeout, err = parseTimeout("probe_timeout", c.ProbeTimeout, 5*time.Second); err != nil {
		return err
	}
	if c.probeInterval, err = parseTimeout("probe_interval", c.ProbeInterval, 30*time.Second); err != nil {
		return err
	}
	return nil
}

// parseTimeout parses a duration string, allowing 100ms to 10m.
func parseTimeout(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.WrapInvalid(err, "Config", "Validate",
			fmt.Sprintf("invalid %s format: %s", field, value))
	}
	if d < 100*time.Millisecond || d > 10*time.Minute {
		return 0, errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("%s must be between 100ms and 10m", field))
	}
	return d, nil
}

// RequestTimeoutDuration returns the parsed request timeout. Call Validate first.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return c.requestTimeout
}

// ProbeTimeoutDuration returns the parsed probe timeout. Call Validate first.
func (c *Config) ProbeTimeoutDuration() time.Duration {
	return c.probeTimeout
}

// ProbeIntervalDuration returns the parsed probe interval. Call Validate first.
func (c *Config) ProbeIntervalDuration() time.Duration {
	return c.probeInterval
}

// DefaultConfig returns default gateway configuration
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		EnableCORS:     false, // Disabled by default (requires explicit configuration)
		CORSOrigins:    []string{},
		MaxRequestSize: 1024 * 1024, // 1MB
		RequestTimeout: "30s",
		ProbeTimeout:   "5s",
		ProbeInterval:  "30s",
	}
}
