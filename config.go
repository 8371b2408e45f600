package byok

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hengadev/byok/internal/ratelimit"
)

// Environment variable names.
const (
	// EnvConfigPath points at the YAML configuration file.
	EnvConfigPath = "BYOK_CONFIG_PATH"

	// EnvAuditMaxEvents overrides the audit ring size.
	EnvAuditMaxEvents = "BYOK_AUDIT_MAX_EVENTS"

	// EnvLookupTimeout overrides the user-store lookup timeout, as a Go
	// duration string.
	EnvLookupTimeout = "BYOK_LOOKUP_TIMEOUT"
)

// Default rate-limit budgets per operation class.
var defaultRateLimits = map[string]ratelimit.ClassConfig{
	OpCredentialMutation: {Limit: 10, Window: time.Minute},
	OpCredentialTest:     {Limit: 5, Window: time.Minute},
	OpCredentialRead:     {Limit: 120, Window: time.Minute},
}

// FileConfig is the YAML-file shape of the subsystem configuration.
type FileConfig struct {
	RateLimits map[string]struct {
		Limit  int    `yaml:"limit"`
		Window string `yaml:"window"`
	} `yaml:"rate_limits"`
	AuditMaxEvents int    `yaml:"audit_max_events"`
	LookupTimeout  string `yaml:"lookup_timeout"`
}

// Config is the resolved runtime configuration for a Manager.
type Config struct {
	RateLimits     map[string]ratelimit.ClassConfig
	AuditMaxEvents int
	LookupTimeout  time.Duration

	userStore UserCredentialStore
	operator  OperatorSource
	sink      AuditSink
	recorder  *Recorder
	logger    *slog.Logger
	testers   map[Provider]ProviderTester
}

// ensureMaps initializes the map fields a caller-constructed zero Config
// leaves nil, so options can write into them.
func (c *Config) ensureMaps() {
	if c.RateLimits == nil {
		c.RateLimits = make(map[string]ratelimit.ClassConfig, len(defaultRateLimits))
	}
	if c.testers == nil {
		c.testers = defaultTesters()
	}
}

func defaultConfig() *Config {
	limits := make(map[string]ratelimit.ClassConfig, len(defaultRateLimits))
	for k, v := range defaultRateLimits {
		limits[k] = v
	}
	return &Config{
		RateLimits:     limits,
		AuditMaxEvents: DefaultMaxEvents,
		LookupTimeout:  2 * time.Second,
		operator:       EnvOperatorSource{},
		testers:        defaultTesters(),
	}
}

// LoadConfig reads the YAML configuration at path, after loading a .env file
// if one exists (missing .env files are not an error), then applies
// environment overrides. An empty path falls back to EnvConfigPath and, when
// that too is unset, to pure defaults.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrInvalidConfiguration, err)
		}
		var fc FileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config file: %v", ErrInvalidConfiguration, err)
		}
		if err := cfg.applyFile(fc); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(fc FileConfig) error {
	for class, rl := range fc.RateLimits {
		window, err := time.ParseDuration(rl.Window)
		if err != nil {
			return fmt.Errorf("%w: rate limit window for %q: %v", ErrInvalidConfiguration, class, err)
		}
		if window <= 0 {
			return fmt.Errorf("%w: rate limit window for %q must be positive", ErrInvalidConfiguration, class)
		}
		if rl.Limit < 0 {
			return fmt.Errorf("%w: rate limit for %q cannot be negative", ErrInvalidConfiguration, class)
		}
		c.RateLimits[class] = ratelimit.ClassConfig{Limit: rl.Limit, Window: window}
	}
	if fc.AuditMaxEvents > 0 {
		c.AuditMaxEvents = fc.AuditMaxEvents
	}
	if fc.LookupTimeout != "" {
		d, err := time.ParseDuration(fc.LookupTimeout)
		if err != nil {
			return fmt.Errorf("%w: lookup_timeout: %v", ErrInvalidConfiguration, err)
		}
		c.LookupTimeout = d
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAuditMaxEvents); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidConfiguration, EnvAuditMaxEvents, v)
		}
		c.AuditMaxEvents = n
	}
	if v := os.Getenv(EnvLookupTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %s must be a positive duration, got %q", ErrInvalidConfiguration, EnvLookupTimeout, v)
		}
		c.LookupTimeout = d
	}
	return nil
}
