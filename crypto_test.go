package byok_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/byok"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := byok.GenerateKey()
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "typical api key", plaintext: "sk-proj-Zx9Yw8Vu7Ts6Rq5Po4Nm3Lk2Jh1Gf0De"},
		{name: "short string", plaintext: "x"},
		{name: "unicode", plaintext: "clé-secrète-日本語"},
		{name: "long string", plaintext: strings.Repeat("a1b2c3d4", 128)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle, err := byok.Encrypt(tt.plaintext, key)
			require.NoError(t, err)
			assert.Equal(t, byok.AlgorithmAESGCM, bundle.Algorithm)
			assert.Equal(t, byok.BundleVersion, bundle.Version)
			assert.Empty(t, bundle.SaltB64, "raw-key bundles carry no salt")

			got, err := byok.Decrypt(bundle, key)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, got)
		})
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	key, err := byok.GenerateKey()
	require.NoError(t, err)

	first, err := byok.Encrypt("same plaintext", key)
	require.NoError(t, err)
	second, err := byok.Encrypt("same plaintext", key)
	require.NoError(t, err)

	assert.NotEqual(t, first.IVB64, second.IVB64)
	assert.NotEqual(t, first.CiphertextB64, second.CiphertextB64)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	key, err := byok.GenerateKey()
	require.NoError(t, err)
	otherKey, err := byok.GenerateKey()
	require.NoError(t, err)

	bundle, err := byok.Encrypt("secret-value-123", key)
	require.NoError(t, err)

	got, err := byok.Decrypt(bundle, otherKey)
	assert.ErrorIs(t, err, byok.ErrDecryptionFailed)
	assert.Empty(t, got, "wrong-key decryption must never return garbage plaintext")
}

func TestDecryptCorruptedBundle(t *testing.T) {
	key, err := byok.GenerateKey()
	require.NoError(t, err)
	bundle, err := byok.Encrypt("secret-value-123", key)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(b *byok.EncryptedBundle)
	}{
		{name: "flipped ciphertext", mutate: func(b *byok.EncryptedBundle) {
			b.CiphertextB64 = "AAAA" + b.CiphertextB64[4:]
		}},
		{name: "invalid base64 ciphertext", mutate: func(b *byok.EncryptedBundle) {
			b.CiphertextB64 = "!!!not-base64!!!"
		}},
		{name: "invalid base64 iv", mutate: func(b *byok.EncryptedBundle) {
			b.IVB64 = "!!!not-base64!!!"
		}},
		{name: "empty ciphertext", mutate: func(b *byok.EncryptedBundle) {
			b.CiphertextB64 = ""
		}},
		{name: "unsupported algorithm", mutate: func(b *byok.EncryptedBundle) {
			b.Algorithm = "rot13"
		}},
		{name: "unsupported version", mutate: func(b *byok.EncryptedBundle) {
			b.Version = 99
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corrupted := bundle
			tt.mutate(&corrupted)
			_, err := byok.Decrypt(corrupted, key)
			assert.ErrorIs(t, err, byok.ErrDecryptionFailed)
		})
	}
}

func TestPassphraseRoundTrip(t *testing.T) {
	bundle, err := byok.EncryptWithPassphrase("sk-proj-RealLookingKey12345678", "correct horse")
	require.NoError(t, err)
	assert.True(t, bundle.HasSalt(), "passphrase bundles must carry their salt")

	got, err := byok.DecryptWithPassphrase(bundle, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "sk-proj-RealLookingKey12345678", got)

	_, err = byok.DecryptWithPassphrase(bundle, "battery staple")
	assert.ErrorIs(t, err, byok.ErrDecryptionFailed)
}

func TestDecryptWithPassphraseRequiresSalt(t *testing.T) {
	key, err := byok.GenerateKey()
	require.NoError(t, err)
	bundle, err := byok.Encrypt("secret-value-123", key)
	require.NoError(t, err)

	_, err = byok.DecryptWithPassphrase(bundle, "any passphrase")
	assert.ErrorIs(t, err, byok.ErrMissingSalt, "salt-less bundle must be a hard error, not a fallback")
}

func TestDeriveKeyProperties(t *testing.T) {
	saltA, err := byok.GenerateSalt()
	require.NoError(t, err)
	saltB, err := byok.GenerateSalt()
	require.NoError(t, err)

	keyA1 := byok.DeriveKey("passphrase", saltA, byok.DefaultIterations)
	keyA2 := byok.DeriveKey("passphrase", saltA, byok.DefaultIterations)
	keyB := byok.DeriveKey("passphrase", saltB, byok.DefaultIterations)

	assert.Equal(t, keyA1, keyA2, "same passphrase+salt must derive the same key")
	assert.NotEqual(t, keyA1, keyB, "different salts must derive different keys")
	assert.Len(t, keyA1, byok.KeyLength)
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{name: "empty", secret: "", want: ""},
		{name: "single char", secret: "a", want: "*"},
		{name: "exactly eight", secret: "12345678", want: "********"},
		{name: "nine chars", secret: "123456789", want: "1234*6789"},
		{name: "typical key", secret: "sk-abcdef123456", want: "sk-a*******3456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := byok.MaskKey(tt.secret)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, len(tt.secret), "masked form must preserve length")
		})
	}
}

func TestBundleSerializationRoundTrip(t *testing.T) {
	bundle, err := byok.EncryptWithPassphrase("sk-proj-RealLookingKey12345678", "pw")
	require.NoError(t, err)

	raw, err := byok.MarshalBundle(bundle)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-proj-RealLookingKey12345678")

	got, err := byok.UnmarshalBundle(raw)
	require.NoError(t, err)
	assert.Equal(t, bundle, got)
}
