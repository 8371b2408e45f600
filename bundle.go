package byok

import (
	"encoding/json"
	"fmt"
)

// Bundle format versions. Version is bumped whenever the algorithm or
// derivation parameters change so old bundles stay decryptable.
const (
	BundleVersion   = 1
	AlgorithmAESGCM = "aes-256-gcm"
)

// EncryptedBundle is the only serializable form of a credential. The
// plaintext itself never appears in any persisted or transmitted structure.
//
// SaltB64 is present if and only if the bundle was produced via passphrase
// derivation; decrypting a salt-less bundle with a passphrase is a hard
// error, never a silent fallback.
type EncryptedBundle struct {
	CiphertextB64 string `json:"ciphertext"`
	IVB64         string `json:"iv"`
	SaltB64       string `json:"salt,omitempty"`
	Algorithm     string `json:"algorithm"`
	Version       int    `json:"version"`
}

// Validate checks the structural invariants of a bundle before any
// cryptographic work is attempted.
func (b EncryptedBundle) Validate() error {
	if b.CiphertextB64 == "" {
		return fmt.Errorf("%w: empty ciphertext", ErrDecryptionFailed)
	}
	if b.IVB64 == "" {
		return fmt.Errorf("%w: empty IV", ErrDecryptionFailed)
	}
	if b.Algorithm != AlgorithmAESGCM {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrDecryptionFailed, b.Algorithm)
	}
	if b.Version < 1 || b.Version > BundleVersion {
		return fmt.Errorf("%w: unsupported bundle version %d", ErrDecryptionFailed, b.Version)
	}
	return nil
}

// HasSalt reports whether the bundle was produced via passphrase derivation.
func (b EncryptedBundle) HasSalt() bool { return b.SaltB64 != "" }

// MarshalBundle serializes a bundle for storage.
func MarshalBundle(b EncryptedBundle) ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bundle: %w", err)
	}
	return data, nil
}

// UnmarshalBundle deserializes a stored bundle and validates it.
func UnmarshalBundle(data []byte) (EncryptedBundle, error) {
	var b EncryptedBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return EncryptedBundle{}, fmt.Errorf("%w: malformed bundle: %v", ErrDecryptionFailed, err)
	}
	if err := b.Validate(); err != nil {
		return EncryptedBundle{}, err
	}
	return b, nil
}
