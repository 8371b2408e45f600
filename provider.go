package byok

import (
	"fmt"
	"strings"
)

// Provider identifies a supported upstream AI service.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderGoogle     Provider = "google"
	ProviderMistral    Provider = "mistral"
	ProviderOpenRouter Provider = "openrouter"
)

// Providers lists every supported provider in a stable order.
func Providers() []Provider {
	return []Provider{
		ProviderOpenAI,
		ProviderAnthropic,
		ProviderGoogle,
		ProviderMistral,
		ProviderOpenRouter,
	}
}

// ParseProvider canonicalizes a provider identifier. Comparison is
// case-insensitive and ignores surrounding whitespace.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
	return p, nil
}

// Valid reports whether p is one of the supported providers.
func (p Provider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderMistral, ProviderOpenRouter:
		return true
	}
	return false
}

func (p Provider) String() string { return string(p) }

// Scope is the lifetime tier under which an encrypted credential is stored
// client-side.
type Scope int

const (
	// ScopeTab holds key material purely in process memory. Lost on reload.
	ScopeTab Scope = iota
	// ScopeSession survives navigation within one browsing session but not a
	// full restart.
	ScopeSession
	// ScopePersistent survives restarts. Backed by a passphrase-derived key;
	// unrecoverable without the passphrase.
	ScopePersistent
)

func (s Scope) String() string {
	switch s {
	case ScopeTab:
		return "tab"
	case ScopeSession:
		return "session"
	case ScopePersistent:
		return "persistent"
	default:
		return "unknown"
	}
}

// Source tags where a resolved credential came from.
type Source string

const (
	SourceUserStore   Source = "user_store"
	SourceGuestHeader Source = "guest_header"
	SourceEnvironment Source = "environment"
	SourceNone        Source = "none"
)

// Transport headers carrying a guest-supplied credential pair.
const (
	// HeaderProviderID names the provider the guest credential belongs to.
	HeaderProviderID = "X-Provider-Id"
	// HeaderProviderKey carries the guest credential value.
	HeaderProviderKey = "X-Provider-Api-Key"
)

// Operation classes for rate limiting. Mutations and live provider tests have
// independent budgets so cheap reads are not penalized by expensive
// round-trips.
const (
	OpCredentialMutation = "credential_mutation"
	OpCredentialTest     = "credential_test"
	OpCredentialRead     = "credential_read"
)
