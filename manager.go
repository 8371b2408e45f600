package byok

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hengadev/byok/internal/monitoring"
	"github.com/hengadev/byok/internal/ratelimit"
	"github.com/hengadev/byok/internal/redact"
)

// UserCredentialStore extends read-only lookup with the mutations the
// credential endpoints need. Implementations encrypt before persisting and
// never write plaintext back to storage.
type UserCredentialStore interface {
	UserCredentialLookup
	StoreCredential(ctx context.Context, userID string, provider Provider, plaintext string) error
	DeleteCredential(ctx context.Context, userID string, provider Provider) error
}

// Manager is the server-side composition root: rate limiter in front,
// resolution engine behind it, recorder observing everything. One Manager
// serves concurrent requests; it holds no per-request credential state.
type Manager struct {
	limiter  *ratelimit.Limiter
	resolver *Resolver
	recorder *Recorder
	store    UserCredentialStore
	testers  map[Provider]ProviderTester
	logger   *slog.Logger
}

// NewManager builds a Manager from options layered over defaults: env-var
// operator fallback, no-op user store, built-in HTTP testers, and a fresh
// Recorder.
func NewManager(opts ...Option) (*Manager, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return newManager(cfg)
}

// NewManagerFromConfig builds a Manager from a loaded Config plus options.
// A zero-value Config is valid; its nil maps are initialized before any
// option writes into them.
func NewManagerFromConfig(cfg *Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.ensureMaps()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return newManager(cfg)
}

func newManager(cfg *Config) (*Manager, error) {
	recorder := cfg.recorder
	if recorder == nil {
		recorder = NewRecorder(cfg.AuditMaxEvents)
	}
	if cfg.sink != nil {
		recorder.SetSink(cfg.sink)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = monitoring.Redacting(logger).With(slog.String("component", "byok"))

	var lookup UserCredentialLookup = NopUserLookup{}
	if cfg.userStore != nil {
		lookup = cfg.userStore
	}

	return &Manager{
		limiter:  ratelimit.New(cfg.RateLimits),
		resolver: NewResolver(lookup, cfg.operator, recorder, cfg.LookupTimeout, logger),
		recorder: recorder,
		store:    cfg.userStore,
		testers:  cfg.testers,
		logger:   logger,
	}, nil
}

// Resolve rate-limits the read class and then runs the precedence algorithm.
// A Source None result is returned as-is; callers needing a credential treat
// it as "no credential configured".
func (m *Manager) Resolve(ctx context.Context, req Request) (ResolvedCredential, error) {
	if err := m.check(OpCredentialRead, req.PrincipalID); err != nil {
		return ResolvedCredential{}, err
	}
	return m.resolver.Resolve(ctx, req), nil
}

// TestKey resolves a credential for the calling principal and performs one
// minimal live call against the provider. The returned error text is redacted
// and truncated; the request that was sent is never echoed. Success records
// an AuditEvent with action "used".
func (m *Manager) TestKey(ctx context.Context, req Request) (TestResult, error) {
	// The rate-limit decision comes before any credential material is
	// touched; a denied request never reaches the resolution engine.
	if err := m.check(OpCredentialTest, req.PrincipalID); err != nil {
		return TestResult{}, err
	}

	resolved := m.resolver.Resolve(ctx, req)
	if resolved.Source == SourceNone {
		m.recorder.RecordUsage(SourceNone, req.Provider, false, "no credential configured")
		return TestResult{Success: false, Error: "no credential configured"}, ErrNoCredential
	}

	tester, ok := m.testers[req.Provider]
	if !ok {
		return TestResult{}, fmt.Errorf("%w: no tester for %q", ErrInvalidConfiguration, req.Provider)
	}

	err := tester.Test(ctx, resolved.Plaintext)
	if err != nil {
		msg := truncate(m.recorder.Redact(err.Error()), maxTestErrLen)
		m.recorder.RecordUsage(resolved.Source, req.Provider, false, msg)
		m.recorder.Record(AuditEvent{
			PrincipalID: req.PrincipalID,
			Provider:    req.Provider,
			Action:      ActionTested,
			Metadata:    map[string]string{"outcome": "failure", "error": msg},
		})
		return TestResult{Success: false, Error: msg}, fmt.Errorf("%w: %s", ErrUpstreamTestFailed, msg)
	}

	m.recorder.RecordUsage(resolved.Source, req.Provider, true, "")
	m.recorder.Record(AuditEvent{
		PrincipalID: req.PrincipalID,
		Provider:    req.Provider,
		Action:      ActionUsed,
		Metadata:    map[string]string{"outcome": "success", "source": string(resolved.Source)},
	})
	return TestResult{Success: true}, nil
}

// SaveUserCredential screens and persists an authenticated user's credential,
// returning the masked display form. The store encrypts before writing.
func (m *Manager) SaveUserCredential(ctx context.Context, principalID string, provider Provider, plaintext string) (string, error) {
	if err := m.check(OpCredentialMutation, principalID); err != nil {
		return "", err
	}
	if m.store == nil {
		return "", fmt.Errorf("%w: no user store configured", ErrInvalidConfiguration)
	}
	if !provider.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if plaintext == "" {
		return "", fmt.Errorf("%w: empty credential", ErrInvalidConfiguration)
	}
	if redact.IsSuspicious(plaintext) {
		return "", ErrSuspiciousCredential
	}
	if err := m.store.StoreCredential(ctx, principalID, provider, plaintext); err != nil {
		return "", fmt.Errorf("failed to store credential: %w", err)
	}
	m.recorder.Record(AuditEvent{
		PrincipalID: principalID,
		Provider:    provider,
		Action:      ActionRotated,
		Metadata:    map[string]string{"masked": MaskKey(plaintext)},
	})
	return MaskKey(plaintext), nil
}

// DeleteUserCredential removes an authenticated user's stored credential.
func (m *Manager) DeleteUserCredential(ctx context.Context, principalID string, provider Provider) error {
	if err := m.check(OpCredentialMutation, principalID); err != nil {
		return err
	}
	if m.store == nil {
		return fmt.Errorf("%w: no user store configured", ErrInvalidConfiguration)
	}
	if err := m.store.DeleteCredential(ctx, principalID, provider); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	m.recorder.Record(AuditEvent{
		PrincipalID: principalID,
		Provider:    provider,
		Action:      ActionDeleted,
	})
	return nil
}

// Recorder exposes the audit and metrics recorder for dashboards.
func (m *Manager) Recorder() *Recorder { return m.recorder }

func (m *Manager) check(class, principalID string) error {
	d := m.limiter.Check(class, principalID)
	if d.Allowed {
		return nil
	}
	m.logger.Warn("rate limit exceeded",
		slog.String("class", class),
		slog.String("principal", principalID),
	)
	return &RateLimitError{Class: class, RetryAfter: d.RetryAfter}
}
