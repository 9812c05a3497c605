package config

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/gateway"
	"github.com/reactodia/reactodia-workspace-sub004/provider/decorated"
	"github.com/reactodia/reactodia-workspace-sub004/provider/memory"
)

// Source types
const (
	SourceMemory = "memory" // N-Triples / N-Quads files loaded into an in-memory dataset
	SourceRemote = "remote" // another graphdata gateway
)

// Cache store types
const (
	StoreMemory = "memory"
	StoreNATS   = "nats"
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
)

// Config represents the complete application configuration
type Config struct {
	Version    string           `json:"version" yaml:"version"` // Semantic version (e.g., "1.0.0")
	Sources    []SourceConfig   `json:"sources" yaml:"sources"`
	Composite  CompositeConfig  `json:"composite" yaml:"composite"`
	Decorators DecoratorsConfig `json:"decorators" yaml:"decorators"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	Gateway    gateway.Config   `json:"gateway" yaml:"gateway"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// SourceConfig describes one backing data source.
type SourceConfig struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`

	// Files are loaded into a memory source. Gzipped files end in ".gz".
	Files []string `json:"files,omitempty" yaml:"files,omitempty"`
	// Memory overrides the predicates a memory source reads.
	Memory memory.Config `json:"memory,omitempty" yaml:"memory,omitempty"`

	// URL is the base URL of a remote gateway.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	// Timeout bounds each remote request (default "30s").
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// TimeoutDuration returns the parsed remote timeout, zero when unset.
func (s SourceConfig) TimeoutDuration() time.Duration {
	d, _ := parseDurationWithDays(s.Timeout)
	return d
}

// CompositeConfig controls merging of several sources.
type CompositeConfig struct {
	// Enabled merges all sources. Required when more than one source is configured.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// DecoratorsConfig lists interceptors applied around every source. Nil
// sections are disabled.
type DecoratorsConfig struct {
	Delay     *DelayConfig     `json:"delay,omitempty" yaml:"delay,omitempty"`
	Retry     *RetryConfig     `json:"retry,omitempty" yaml:"retry,omitempty"`
	RateLimit *RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	Audit     bool             `json:"audit" yaml:"audit"`
	Metrics   bool             `json:"metrics" yaml:"metrics"`
}

// DelayConfig injects artificial latency.
type DelayConfig struct {
	Distribution string `json:"distribution" yaml:"distribution"` // constant, uniform or exponential
	Mean         string `json:"mean,omitempty" yaml:"mean,omitempty"`
	Min          string `json:"min,omitempty" yaml:"min,omitempty"`
	Max          string `json:"max,omitempty" yaml:"max,omitempty"`
}

// Interceptor converts the section into a decorated.DelayConfig.
func (d DelayConfig) Interceptor() (decorated.DelayConfig, error) {
	var out decorated.DelayConfig
	out.Distribution = decorated.Distribution(d.Distribution)
	if out.Distribution == "" {
		out.Distribution = decorated.DistributionConstant
	}
	for _, f := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"mean", d.Mean, &out.Mean},
		{"min", d.Min, &out.Min},
		{"max", d.Max, &out.Max},
	} {
		v, err := parseOptionalDuration("decorators.delay."+f.name, f.value)
		if err != nil {
			return out, err
		}
		*f.dst = v
	}
	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

// RetryConfig retries transient source failures with exponential backoff.
type RetryConfig struct {
	MaxAttempts  int    `json:"max_attempts" yaml:"max_attempts"`
	InitialDelay string `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	MaxDelay     string `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
}

// Policy converts the section into an errors.RetryConfig.
func (r RetryConfig) Policy() (errors.RetryConfig, error) {
	policy := errors.DefaultRetryConfig()
	if r.MaxAttempts < 1 {
		return policy, errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"decorators.retry.max_attempts must be at least 1")
	}
	policy.MaxRetries = r.MaxAttempts - 1

	initial, err := parseOptionalDuration("decorators.retry.initial_delay", r.InitialDelay)
	if err != nil {
		return policy, err
	}
	if initial > 0 {
		policy.InitialDelay = initial
	}
	maxDelay, err := parseOptionalDuration("decorators.retry.max_delay", r.MaxDelay)
	if err != nil {
		return policy, err
	}
	if maxDelay > 0 {
		policy.MaxDelay = maxDelay
	}
	if policy.MaxDelay < policy.InitialDelay {
		return policy, errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"decorators.retry.max_delay must be >= initial_delay")
	}
	return policy, nil
}

// RateLimitConfig caps calls per source.
type RateLimitConfig struct {
	RPS   float64 `json:"rps" yaml:"rps"`
	Burst int     `json:"burst" yaml:"burst"`
}

// CacheConfig configures the persistent read-through cache.
type CacheConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Store   string `json:"store" yaml:"store"` // memory, nats, sqlite or badger

	// Path is the sqlite file or badger directory.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	NATSURL      string `json:"nats_url,omitempty" yaml:"nats_url,omitempty"`
	BucketPrefix string `json:"bucket_prefix,omitempty" yaml:"bucket_prefix,omitempty"`

	// NATSToken and NATSUser/NATSPassword are alternative ways to
	// authenticate. Prefer the GRAPHDATA_NATS_* environment variables over
	// writing them to a file.
	NATSToken    string `json:"nats_token,omitempty" yaml:"nats_token,omitempty"`
	NATSUser     string `json:"nats_user,omitempty" yaml:"nats_user,omitempty"`
	NATSPassword string `json:"nats_password,omitempty" yaml:"nats_password,omitempty"`

	// NATSCircuitThreshold consecutive connect failures stop further attempts
	// for NATSCircuitBackoff (default "30s"). Zero keeps the client default.
	NATSCircuitThreshold int32  `json:"nats_circuit_threshold,omitempty" yaml:"nats_circuit_threshold,omitempty"`
	NATSCircuitBackoff   string `json:"nats_circuit_backoff,omitempty" yaml:"nats_circuit_backoff,omitempty"`

	// MaxEntries bounds each in-memory store; zero is unbounded.
	MaxEntries int `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`

	SchemaVersion    int  `json:"schema_version" yaml:"schema_version"`
	CacheTextLookups bool `json:"cache_text_lookups" yaml:"cache_text_lookups"`
}

// NATSCircuitBackoffDuration returns the parsed circuit backoff, 30s when unset.
func (c CacheConfig) NATSCircuitBackoffDuration() time.Duration {
	d, _ := parseDurationWithDays(c.NATSCircuitBackoff)
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json or text
}

// DefaultConfig returns the configuration used when no file is given: an empty
// memory source served on the default gateway address.
func DefaultConfig() *Config {
	return &Config{
		Version:   "1.0.0",
		Sources:   []SourceConfig{},
		Composite: CompositeConfig{Enabled: true},
		Cache: CacheConfig{
			Enabled:       false,
			Store:         StoreMemory,
			BucketPrefix:  "GRAPHDATA",
			SchemaVersion: 1,
		},
		Gateway: gateway.DefaultConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration and fills defaults. Every failure is an
// invalid error.
func (c *Config) Validate() error {
	if c.Version != "" {
		if _, _, _, err := parseSemVer(c.Version); err != nil {
			return errors.WrapInvalid(err, "Config", "Validate", "version")
		}
	}

	if len(c.Sources) == 0 {
		return invalid("at least one source is required")
	}
	if len(c.Sources) > 1 && !c.Composite.Enabled {
		return invalid("composite.enabled is required with more than one source")
	}
	seen := make(map[string]bool, len(c.Sources))
	for i := range c.Sources {
		if err := c.Sources[i].validate(); err != nil {
			return err
		}
		if seen[c.Sources[i].Name] {
			return invalid(fmt.Sprintf("duplicate source name %q", c.Sources[i].Name))
		}
		seen[c.Sources[i].Name] = true
	}

	if err := c.Decorators.validate(); err != nil {
		return err
	}
	if err := c.Cache.validate(); err != nil {
		return err
	}
	if err := c.Gateway.Validate(); err != nil {
		return err
	}
	return c.Log.validate()
}

func (s *SourceConfig) validate() error {
	if s.Name == "" {
		return invalid("source name cannot be empty")
	}
	switch s.Type {
	case SourceMemory:
		if len(s.Files) == 0 {
			return invalid(fmt.Sprintf("source %s: memory source requires files", s.Name))
		}
	case SourceRemote:
		if s.URL == "" {
			return invalid(fmt.Sprintf("source %s: remote source requires url", s.Name))
		}
		if _, err := parseOptionalDuration("sources."+s.Name+".timeout", s.Timeout); err != nil {
			return err
		}
	default:
		return invalid(fmt.Sprintf("source %s: unknown type %q", s.Name, s.Type))
	}
	return nil
}

func (d *DecoratorsConfig) validate() error {
	if d.Delay != nil {
		if _, err := d.Delay.Interceptor(); err != nil {
			return err
		}
	}
	if d.Retry != nil {
		if _, err := d.Retry.Policy(); err != nil {
			return err
		}
	}
	if d.RateLimit != nil {
		if d.RateLimit.RPS <= 0 {
			return invalid("decorators.rate_limit.rps must be positive")
		}
		if d.RateLimit.Burst <= 0 {
			d.RateLimit.Burst = 1
		}
	}
	return nil
}

func (c *CacheConfig) validate() error {
	if c.Store == "" {
		c.Store = StoreMemory
	}
	if !c.Enabled {
		return nil
	}
	switch c.Store {
	case StoreMemory:
	case StoreSQLite, StoreBadger:
		if c.Path == "" {
			return invalid(fmt.Sprintf("cache.path is required for the %s store", c.Store))
		}
	case StoreNATS:
		if c.NATSURL == "" {
			return invalid("cache.nats_url is required for the nats store")
		}
		if c.NATSToken != "" && c.NATSUser != "" {
			return invalid("cache.nats_token and cache.nats_user are mutually exclusive")
		}
		if c.NATSPassword != "" && c.NATSUser == "" {
			return invalid("cache.nats_password requires cache.nats_user")
		}
		if c.NATSCircuitThreshold < 0 {
			return invalid("cache.nats_circuit_threshold cannot be negative")
		}
		if _, err := parseOptionalDuration("cache.nats_circuit_backoff", c.NATSCircuitBackoff); err != nil {
			return err
		}
	default:
		return invalid(fmt.Sprintf("unknown cache store %q", c.Store))
	}
	if c.SchemaVersion < 0 {
		return invalid("cache.schema_version cannot be negative")
	}
	if c.MaxEntries < 0 {
		return invalid("cache.max_entries cannot be negative")
	}
	return nil
}

func (l *LogConfig) validate() error {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "json"
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(l.Level)) {
		return invalid(fmt.Sprintf("unknown log level %q", l.Level))
	}
	if l.Format != "json" && l.Format != "text" {
		return invalid(fmt.Sprintf("unknown log format %q", l.Format))
	}
	return nil
}

// SourceNames lists the configured source names in order.
func (c *Config) SourceNames() []string {
	names := make([]string, len(c.Sources))
	for i, s := range c.Sources {
		names[i] = s.Name
	}
	return names
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	// Use JSON marshaling/unmarshaling for deep copy
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

func invalid(msg string) error {
	return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", msg)
}

func parseOptionalDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := parseDurationWithDays(value)
	if err != nil {
		return 0, errors.WrapInvalid(err, "Config", "Validate", fmt.Sprintf("invalid %s: %s", field, value))
	}
	if d < 0 {
		return 0, invalid(field + " cannot be negative")
	}
	return d, nil
}

// parseDurationWithDays parses durations that may include days (e.g., "14d")
func parseDurationWithDays(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days := strings.TrimSuffix(s, "d")
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// CompareVersions compares two semver version strings
// Returns:
//
//	-1 if v1 < v2
//	 0 if v1 == v2
//	 1 if v1 > v2
//	error if either version is invalid
func CompareVersions(v1, v2 string) (int, error) {
	major1, minor1, patch1, err := parseSemVer(v1)
	if err != nil {
		return 0, fmt.Errorf("invalid version '%s': %w", v1, err)
	}
	major2, minor2, patch2, err := parseSemVer(v2)
	if err != nil {
		return 0, fmt.Errorf("invalid version '%s': %w", v2, err)
	}

	for _, pair := range [][2]int{{major1, major2}, {minor1, minor2}, {patch1, patch2}} {
		if pair[0] > pair[1] {
			return 1, nil
		}
		if pair[0] < pair[1] {
			return -1, nil
		}
	}
	return 0, nil
}

// parseSemVer parses a semantic version string (e.g., "1.2.3")
// Returns major, minor, patch, error
func parseSemVer(version string) (int, int, int, error) {
	if version == "" {
		return 0, 0, 0, fmt.Errorf("version cannot be empty")
	}

	// Remove 'v' prefix if present
	version = strings.TrimPrefix(version, "v")

	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("version must be in format 'major.minor.patch', got '%s'", version)
	}

	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid version component '%s': %w", part, err)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}
