package byok

import (
	"context"
	"fmt"
	"sync"
)

// Test doubles for wiring a Manager without external collaborators. These are
// exported so embedding services can use them in their own tests.

// MemoryUserStore is an in-memory UserCredentialStore. Plaintext is encrypted
// under a per-instance random key so even the test double never holds raw
// credentials at rest.
type MemoryUserStore struct {
	mu      sync.RWMutex
	key     []byte
	bundles map[string]EncryptedBundle

	// FailLookups makes every Lookup return LookupTransientError, simulating
	// an unavailable backing store.
	FailLookups bool
}

// NewMemoryUserStore creates an empty store.
func NewMemoryUserStore() (*MemoryUserStore, error) {
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	return &MemoryUserStore{key: key, bundles: make(map[string]EncryptedBundle)}, nil
}

func (s *MemoryUserStore) Lookup(ctx context.Context, userID string, provider Provider) LookupResult {
	if s.FailLookups {
		return LookupResult{Status: LookupTransientError, Err: fmt.Errorf("store unavailable")}
	}
	if err := ctx.Err(); err != nil {
		return LookupResult{Status: LookupTransientError, Err: err}
	}
	s.mu.RLock()
	bundle, ok := s.bundles[userID+"\x00"+string(provider)]
	s.mu.RUnlock()
	if !ok {
		return LookupResult{Status: LookupNotFound}
	}
	plaintext, err := Decrypt(bundle, s.key)
	if err != nil {
		return LookupResult{Status: LookupTransientError, Err: err}
	}
	return LookupResult{Status: LookupFound, Plaintext: plaintext}
}

func (s *MemoryUserStore) StoreCredential(ctx context.Context, userID string, provider Provider, plaintext string) error {
	bundle, err := Encrypt(plaintext, s.key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.bundles[userID+"\x00"+string(provider)] = bundle
	s.mu.Unlock()
	return nil
}

func (s *MemoryUserStore) DeleteCredential(ctx context.Context, userID string, provider Provider) error {
	s.mu.Lock()
	delete(s.bundles, userID+"\x00"+string(provider))
	s.mu.Unlock()
	return nil
}

// StaticTester is a ProviderTester returning a fixed outcome.
type StaticTester struct {
	Err   error
	Calls int
}

func (t *StaticTester) Test(ctx context.Context, apiKey string) error {
	t.Calls++
	return t.Err
}

// CollectingSink records every event it receives, for assertions.
type CollectingSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *CollectingSink) Record(event AuditEvent) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

// Events returns a copy of the received events.
func (s *CollectingSink) Events() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}
