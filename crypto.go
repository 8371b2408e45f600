package byok

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"runtime"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyLength is the symmetric key size in bytes (AES-256).
	KeyLength = 32
	// SaltLength is the random salt size for passphrase derivation.
	SaltLength = 16
	// DefaultIterations is the PBKDF2 iteration count for version 1 bundles.
	DefaultIterations = 210_000

	maskChar         = '*'
	maskVisibleChars = 4
)

// GenerateKey produces a fresh random symmetric key with no derivation.
// Used for tab- and session-scoped secrets that must not survive a restart.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeyLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// GenerateSalt produces a fresh random salt for passphrase derivation.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a symmetric key from a passphrase using PBKDF2-SHA256.
// The same passphrase, salt and iteration count always derive the same key;
// distinct salts derive distinct keys even for identical passphrases.
func DeriveKey(passphrase string, salt []byte, iterations int) []byte {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return pbkdf2.Key([]byte(passphrase), salt, iterations, KeyLength, sha256.New)
}

// Encrypt performs authenticated AES-GCM encryption of plaintext under key,
// generating a fresh random IV per call. Encrypting the same plaintext twice
// under the same key yields different ciphertexts.
func Encrypt(plaintext string, key []byte) (EncryptedBundle, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return EncryptedBundle{}, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return EncryptedBundle{}, fmt.Errorf("%w: IV generation: %v", ErrEncryptionFailed, err)
	}
	return sealBundle(gcm, iv, plaintext), nil
}

// EncryptWithIV encrypts under a caller-supplied IV. Reusing an IV under the
// same key breaks GCM; callers outside of tests should use Encrypt.
func EncryptWithIV(plaintext string, key, iv []byte) (EncryptedBundle, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return EncryptedBundle{}, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	if len(iv) != gcm.NonceSize() {
		return EncryptedBundle{}, fmt.Errorf("%w: IV must be %d bytes, got %d", ErrEncryptionFailed, gcm.NonceSize(), len(iv))
	}
	return sealBundle(gcm, iv, plaintext), nil
}

// Decrypt reverses Encrypt. It fails with ErrDecryptionFailed on an
// authentication-tag mismatch, malformed base64 or truncated ciphertext. It
// never partially succeeds.
func Decrypt(bundle EncryptedBundle, key []byte) (string, error) {
	if err := bundle.Validate(); err != nil {
		return "", err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	iv, err := base64.StdEncoding.DecodeString(bundle.IVB64)
	if err != nil {
		return "", fmt.Errorf("%w: malformed IV: %v", ErrDecryptionFailed, err)
	}
	if len(iv) != gcm.NonceSize() {
		return "", fmt.Errorf("%w: IV must be %d bytes, got %d", ErrDecryptionFailed, gcm.NonceSize(), len(iv))
	}
	ciphertext, err := base64.StdEncoding.DecodeString(bundle.CiphertextB64)
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext: %v", ErrDecryptionFailed, err)
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// EncryptWithPassphrase derives a key from the passphrase under a fresh salt
// and encrypts plaintext with it. The salt travels inside the bundle.
func EncryptWithPassphrase(plaintext, passphrase string) (EncryptedBundle, error) {
	if passphrase == "" {
		return EncryptedBundle{}, fmt.Errorf("%w: empty passphrase", ErrEncryptionFailed)
	}
	salt, err := GenerateSalt()
	if err != nil {
		return EncryptedBundle{}, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	key := DeriveKey(passphrase, salt, DefaultIterations)
	defer ZeroBytes(key)

	bundle, err := Encrypt(plaintext, key)
	if err != nil {
		return EncryptedBundle{}, err
	}
	bundle.SaltB64 = base64.StdEncoding.EncodeToString(salt)
	return bundle, nil
}

// DecryptWithPassphrase re-derives the key from the bundle's salt and
// decrypts. A bundle without a salt is a hard error: it was not produced via
// passphrase derivation and no fallback key exists.
func DecryptWithPassphrase(bundle EncryptedBundle, passphrase string) (string, error) {
	if !bundle.HasSalt() {
		return "", ErrMissingSalt
	}
	salt, err := base64.StdEncoding.DecodeString(bundle.SaltB64)
	if err != nil {
		return "", fmt.Errorf("%w: malformed salt: %v", ErrDecryptionFailed, err)
	}
	key := DeriveKey(passphrase, salt, DefaultIterations)
	defer ZeroBytes(key)
	return Decrypt(bundle, key)
}

// MaskKey returns a full-length-preserving masked display form of a secret.
// Secrets of eight characters or fewer are fully masked; longer secrets keep
// their first and last four characters.
func MaskKey(secret string) string {
	n := len(secret)
	if n == 0 {
		return ""
	}
	if n <= 2*maskVisibleChars {
		return strings.Repeat(string(maskChar), n)
	}
	return secret[:maskVisibleChars] +
		strings.Repeat(string(maskChar), n-2*maskVisibleChars) +
		secret[n-maskVisibleChars:]
}

// ZeroBytes overwrites key material so it does not linger in memory.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func sealBundle(gcm cipher.AEAD, iv []byte, plaintext string) EncryptedBundle {
	ciphertext := gcm.Seal(nil, iv, []byte(plaintext), nil)
	return EncryptedBundle{
		CiphertextB64: base64.StdEncoding.EncodeToString(ciphertext),
		IVB64:         base64.StdEncoding.EncodeToString(iv),
		Algorithm:     AlgorithmAESGCM,
		Version:       BundleVersion,
	}
}
