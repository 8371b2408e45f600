package byok

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hengadev/byok/internal/ratelimit"
)

// Option configures a Manager at construction time.
type Option func(*Config) error

// WithUserStore attaches the authenticated-user credential store.
func WithUserStore(store UserCredentialStore) Option {
	return func(c *Config) error {
		if store == nil {
			return fmt.Errorf("%w: user store cannot be nil", ErrInvalidConfiguration)
		}
		c.userStore = store
		return nil
	}
}

// WithOperatorSource replaces the environment-variable operator fallback,
// e.g. with a Vault- or Secrets-Manager-backed source.
func WithOperatorSource(source OperatorSource) Option {
	return func(c *Config) error {
		if source == nil {
			return fmt.Errorf("%w: operator source cannot be nil", ErrInvalidConfiguration)
		}
		c.operator = source
		return nil
	}
}

// WithAuditSink attaches an external append-only audit sink. Emission is
// best-effort and never blocks credential operations.
func WithAuditSink(sink AuditSink) Option {
	return func(c *Config) error {
		if sink == nil {
			return fmt.Errorf("%w: audit sink cannot be nil", ErrInvalidConfiguration)
		}
		c.sink = sink
		return nil
	}
}

// WithRecorder injects a pre-built Recorder, letting tests and embedding
// services own the metrics instance.
func WithRecorder(rec *Recorder) Option {
	return func(c *Config) error {
		if rec == nil {
			return fmt.Errorf("%w: recorder cannot be nil", ErrInvalidConfiguration)
		}
		c.recorder = rec
		return nil
	}
}

// WithRateLimit sets the budget for one operation class.
func WithRateLimit(class string, limit int, window time.Duration) Option {
	return func(c *Config) error {
		if limit < 0 {
			return fmt.Errorf("%w: rate limit for %q cannot be negative", ErrInvalidConfiguration, class)
		}
		if window <= 0 {
			return fmt.Errorf("%w: rate limit window for %q must be positive", ErrInvalidConfiguration, class)
		}
		c.RateLimits[class] = ratelimit.ClassConfig{Limit: limit, Window: window}
		return nil
	}
}

// WithLookupTimeout bounds the authenticated-store lookup during resolution.
func WithLookupTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("%w: lookup timeout must be positive", ErrInvalidConfiguration)
		}
		c.LookupTimeout = d
		return nil
	}
}

// WithLogger sets the structured logger. The Manager wraps it in a redacting
// handler so credential-shaped values can never reach log output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			return fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfiguration)
		}
		c.logger = logger
		return nil
	}
}

// WithTester replaces the built-in HTTP tester for one provider, e.g. with an
// SDK-backed implementation from providers/upstream.
func WithTester(provider Provider, tester ProviderTester) Option {
	return func(c *Config) error {
		if !provider.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
		}
		if tester == nil {
			return fmt.Errorf("%w: tester cannot be nil", ErrInvalidConfiguration)
		}
		c.testers[provider] = tester
		return nil
	}
}
