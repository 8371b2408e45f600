package byok_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/byok"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "byok.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := byok.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, byok.DefaultMaxEvents, cfg.AuditMaxEvents)
	assert.Equal(t, 2*time.Second, cfg.LookupTimeout)

	mutation := cfg.RateLimits[byok.OpCredentialMutation]
	assert.Equal(t, 10, mutation.Limit)
	assert.Equal(t, time.Minute, mutation.Window)

	test := cfg.RateLimits[byok.OpCredentialTest]
	assert.Equal(t, 5, test.Limit)

	read := cfg.RateLimits[byok.OpCredentialRead]
	assert.Equal(t, 120, read.Limit)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `
rate_limits:
  credential_test:
    limit: 3
    window: 30s
audit_max_events: 250
lookup_timeout: 500ms
`)

	cfg, err := byok.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.RateLimits[byok.OpCredentialTest].Limit)
	assert.Equal(t, 30*time.Second, cfg.RateLimits[byok.OpCredentialTest].Window)
	// Classes the file does not mention keep their defaults.
	assert.Equal(t, 10, cfg.RateLimits[byok.OpCredentialMutation].Limit)
	assert.Equal(t, 250, cfg.AuditMaxEvents)
	assert.Equal(t, 500*time.Millisecond, cfg.LookupTimeout)
}

func TestLoadConfigInvalidFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "malformed yaml",
			content: "rate_limits: [not a map",
		},
		{
			name: "bad window duration",
			content: `
rate_limits:
  credential_test:
    limit: 3
    window: fortnight
`,
		},
		{
			name: "negative limit",
			content: `
rate_limits:
  credential_test:
    limit: -1
    window: 1m
`,
		},
		{
			name: "zero window",
			content: `
rate_limits:
  credential_test:
    limit: 3
    window: 0s
`,
		},
		{
			name:    "bad lookup timeout",
			content: "lookup_timeout: soon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			_, err := byok.LoadConfig(path)
			assert.ErrorIs(t, err, byok.ErrInvalidConfiguration)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := byok.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, byok.ErrInvalidConfiguration)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv(byok.EnvAuditMaxEvents, "42")
	t.Setenv(byok.EnvLookupTimeout, "750ms")

	cfg, err := byok.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.AuditMaxEvents)
	assert.Equal(t, 750*time.Millisecond, cfg.LookupTimeout)
}

func TestLoadConfigEnvPath(t *testing.T) {
	path := writeConfigFile(t, "audit_max_events: 77\n")
	t.Setenv(byok.EnvConfigPath, path)

	cfg, err := byok.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 77, cfg.AuditMaxEvents)
}

func TestLoadConfigInvalidEnv(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "non-numeric audit size", key: byok.EnvAuditMaxEvents, value: "many"},
		{name: "zero audit size", key: byok.EnvAuditMaxEvents, value: "0"},
		{name: "bad lookup timeout", key: byok.EnvLookupTimeout, value: "whenever"},
		{name: "negative lookup timeout", key: byok.EnvLookupTimeout, value: "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := byok.LoadConfig("")
			assert.ErrorIs(t, err, byok.ErrInvalidConfiguration)
		})
	}
}

func TestOptionValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  byok.Option
	}{
		{name: "nil user store", opt: byok.WithUserStore(nil)},
		{name: "nil operator source", opt: byok.WithOperatorSource(nil)},
		{name: "nil audit sink", opt: byok.WithAuditSink(nil)},
		{name: "nil recorder", opt: byok.WithRecorder(nil)},
		{name: "nil logger", opt: byok.WithLogger(nil)},
		{name: "nil tester", opt: byok.WithTester(byok.ProviderOpenAI, nil)},
		{name: "negative rate limit", opt: byok.WithRateLimit(byok.OpCredentialTest, -1, time.Minute)},
		{name: "zero rate window", opt: byok.WithRateLimit(byok.OpCredentialTest, 5, 0)},
		{name: "zero lookup timeout", opt: byok.WithLookupTimeout(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := byok.NewManager(tt.opt)
			assert.ErrorIs(t, err, byok.ErrInvalidConfiguration)
		})
	}
}

func TestOptionUnknownTesterProvider(t *testing.T) {
	_, err := byok.NewManager(byok.WithTester("aol", &byok.StaticTester{}))
	assert.ErrorIs(t, err, byok.ErrUnknownProvider)
}

func TestNewManagerFromConfigZeroValue(t *testing.T) {
	m, err := byok.NewManagerFromConfig(&byok.Config{},
		byok.WithTester(byok.ProviderOpenAI, &byok.StaticTester{}),
		byok.WithRateLimit(byok.OpCredentialTest, 1, time.Minute),
	)
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestNewManagerFromConfig(t *testing.T) {
	cfg, err := byok.LoadConfig("")
	require.NoError(t, err)

	rec := byok.NewRecorder(10)
	m, err := byok.NewManagerFromConfig(cfg, byok.WithRecorder(rec))
	require.NoError(t, err)
	assert.Same(t, rec, m.Recorder())
}
