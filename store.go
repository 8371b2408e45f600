package byok

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hengadev/errsx"

	"github.com/hengadev/byok/internal/redact"
)

// LoadResult is what a successful Load returns. The plaintext lives only in
// the caller's hands; the store retains nothing but the encrypted bundle.
type LoadResult struct {
	Masked    string
	Plaintext string
}

// Store is the client-side scoped credential store. Tab and session scopes
// are backed by random keys that never leave process memory; the persistent
// scope is backed by a passphrase-derived key and survives restarts only as
// salt-bearing encrypted bundles. Losing the passphrase makes that data
// unrecoverable by design.
type Store struct {
	tabKey     []byte
	sessionKey []byte

	tab        Namespace
	session    Namespace
	persistent Namespace

	// One lock per (scope, provider) so a load cannot race a concurrent save
	// of the same slot while unrelated providers proceed independently.
	locks sync.Map // string -> *sync.Mutex

	screen bool
}

// StoreOption configures a Store.
type StoreOption func(*Store) error

// WithSessionKey supplies the session-scope key so separate Store instances
// within one browsing session share session-scoped credentials.
func WithSessionKey(key []byte) StoreOption {
	return func(s *Store) error {
		if len(key) != KeyLength {
			return fmt.Errorf("%w: session key must be %d bytes, got %d", ErrInvalidConfiguration, KeyLength, len(key))
		}
		s.sessionKey = key
		return nil
	}
}

// WithPersistentNamespace swaps the persistent-scope backing storage, e.g.
// for a namespace that writes bundles to disk.
func WithPersistentNamespace(ns Namespace) StoreOption {
	return func(s *Store) error {
		if ns == nil {
			return fmt.Errorf("%w: persistent namespace cannot be nil", ErrInvalidConfiguration)
		}
		s.persistent = ns
		return nil
	}
}

// WithoutSuspiciousScreen disables the placeholder-value screen on Save.
func WithoutSuspiciousScreen() StoreOption {
	return func(s *Store) error {
		s.screen = false
		return nil
	}
}

// NewStore creates a store with fresh tab and session keys and in-memory
// namespaces for all three scopes.
func NewStore(opts ...StoreOption) (*Store, error) {
	tabKey, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	sessionKey, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	s := &Store{
		tabKey:     tabKey,
		sessionKey: sessionKey,
		tab:        NewMemoryNamespace(),
		session:    NewMemoryNamespace(),
		persistent: NewMemoryNamespace(),
		screen:     true,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Save encrypts plaintext under the scope's key and stores the bundle,
// returning the masked display form. Persistent scope requires a passphrase.
func (s *Store) Save(provider Provider, plaintext string, scope Scope, passphrase string) (string, error) {
	var errs errsx.Map
	if !provider.Valid() {
		errs.Set("provider", fmt.Sprintf("unknown provider %q", provider))
	}
	if plaintext == "" {
		errs.Set("credential", "credential value cannot be empty")
	}
	if scope == ScopePersistent && passphrase == "" {
		errs.Set("passphrase", "persistent scope requires a passphrase")
	}
	if err := errs.AsError(); err != nil {
		return "", err
	}
	if s.screen && redact.IsSuspicious(plaintext) {
		return "", ErrSuspiciousCredential
	}

	unlock := s.lock(scope, provider)
	defer unlock()

	var (
		bundle EncryptedBundle
		err    error
	)
	switch scope {
	case ScopeTab:
		bundle, err = Encrypt(plaintext, s.tabKey)
	case ScopeSession:
		bundle, err = Encrypt(plaintext, s.sessionKey)
	case ScopePersistent:
		bundle, err = EncryptWithPassphrase(plaintext, passphrase)
	default:
		return "", fmt.Errorf("%w: unknown scope %d", ErrInvalidConfiguration, scope)
	}
	if err != nil {
		return "", err
	}
	s.namespace(scope).Set(provider, bundle)
	return MaskKey(plaintext), nil
}

// Load decrypts the credential stored for provider under scope. Loading from
// the persistent scope with a wrong or missing passphrase fails with a
// decryption error; it never yields a default or garbage plaintext.
func (s *Store) Load(provider Provider, scope Scope, passphrase string) (LoadResult, error) {
	unlock := s.lock(scope, provider)
	defer unlock()
	return s.loadLocked(provider, scope, passphrase)
}

// Active returns the credential that takes effect for provider when several
// scopes hold one: Tab > Session > Persistent, shortest-lived first. The
// passphrase is only consulted if resolution reaches the persistent scope.
func (s *Store) Active(provider Provider, passphrase string) (LoadResult, error) {
	for _, scope := range []Scope{ScopeTab, ScopeSession, ScopePersistent} {
		unlock := s.lock(scope, provider)
		res, err := s.loadLocked(provider, scope, passphrase)
		unlock()
		if err == nil {
			return res, nil
		}
		if !IsNotFound(err) {
			return LoadResult{}, err
		}
	}
	return LoadResult{}, ErrCredentialNotFound
}

// Clear wipes the provider's credential from all three scopes.
func (s *Store) Clear(provider Provider) {
	for _, scope := range []Scope{ScopeTab, ScopeSession, ScopePersistent} {
		unlock := s.lock(scope, provider)
		s.namespace(scope).Delete(provider)
		unlock()
	}
}

// Has reports whether a bundle exists for provider under scope, without
// touching key material.
func (s *Store) Has(provider Provider, scope Scope) bool {
	_, ok := s.namespace(scope).Get(provider)
	return ok
}

func (s *Store) loadLocked(provider Provider, scope Scope, passphrase string) (LoadResult, error) {
	bundle, ok := s.namespace(scope).Get(provider)
	if !ok {
		return LoadResult{}, ErrCredentialNotFound
	}

	var (
		plaintext string
		err       error
	)
	switch scope {
	case ScopeTab:
		plaintext, err = Decrypt(bundle, s.tabKey)
	case ScopeSession:
		plaintext, err = Decrypt(bundle, s.sessionKey)
	case ScopePersistent:
		if passphrase == "" {
			return LoadResult{}, ErrPassphraseRequired
		}
		plaintext, err = DecryptWithPassphrase(bundle, passphrase)
	default:
		return LoadResult{}, fmt.Errorf("%w: unknown scope %d", ErrInvalidConfiguration, scope)
	}
	if err != nil {
		return LoadResult{}, err
	}
	return LoadResult{Masked: MaskKey(plaintext), Plaintext: plaintext}, nil
}

func (s *Store) namespace(scope Scope) Namespace {
	switch scope {
	case ScopeTab:
		return s.tab
	case ScopeSession:
		return s.session
	default:
		return s.persistent
	}
}

func (s *Store) lock(scope Scope, provider Provider) func() {
	key := scope.String() + "\x00" + string(provider)
	v, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// IsNotFound reports whether err is a store miss rather than a failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCredentialNotFound)
}
