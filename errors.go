package byok

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Crypto errors
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrMissingSalt      = errors.New("bundle carries no salt for passphrase derivation")

	// Store errors
	ErrCredentialNotFound   = errors.New("credential not found")
	ErrPassphraseRequired   = errors.New("passphrase required for persistent scope")
	ErrSuspiciousCredential = errors.New("credential value looks like a placeholder")
	ErrUnknownProvider      = errors.New("unknown provider")

	// Server-side errors
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrNoCredential       = errors.New("no credential available")
	ErrUpstreamTestFailed = errors.New("upstream credential test failed")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// RateLimitError is returned when a fixed window for an operation class is
// exhausted. RetryAfter is the remaining time until the window resets.
type RateLimitError struct {
	Class      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: retry after %s", e.Class, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimitExceeded }

// IsDecryptionError reports whether err stems from a failed decryption (bad
// key, wrong or absent passphrase, corrupted ciphertext, missing required
// salt). Decryption errors are never retried automatically.
func IsDecryptionError(err error) bool {
	return errors.Is(err, ErrDecryptionFailed) ||
		errors.Is(err, ErrMissingSalt) ||
		errors.Is(err, ErrPassphraseRequired)
}

// IsRetryableError reports whether the caller may retry the operation after a
// delay. Only rate-limit denials qualify.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsNoCredential reports whether err is the expected "resolution exhausted"
// outcome rather than a failure.
func IsNoCredential(err error) bool {
	return errors.Is(err, ErrNoCredential)
}

// IsConfigurationError reports whether err represents a configuration problem.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}
