package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/byok"
	"github.com/hengadev/byok/providers/userstore/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	key, err := byok.GenerateKey()
	require.NoError(t, err)
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "credentials.db"), key)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenRejectsBadKey(t *testing.T) {
	_, err := sqlite.Open(filepath.Join(t.TempDir(), "credentials.db"), []byte("short"))
	assert.ErrorIs(t, err, byok.ErrInvalidConfiguration)
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	plaintext := "sk-proj-Zx9Yw8Vu7Ts6Rq5Po4Nm3Lk2"

	require.NoError(t, store.StoreCredential(ctx, "user-1", byok.ProviderOpenAI, plaintext))

	res := store.Lookup(ctx, "user-1", byok.ProviderOpenAI)
	require.Equal(t, byok.LookupFound, res.Status)
	assert.Equal(t, plaintext, res.Plaintext)
}

func TestLookupMiss(t *testing.T) {
	store := newTestStore(t)
	res := store.Lookup(context.Background(), "user-1", byok.ProviderOpenAI)
	assert.Equal(t, byok.LookupNotFound, res.Status)
	assert.Empty(t, res.Plaintext)
}

func TestUpsertReplacesCredential(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreCredential(ctx, "user-1", byok.ProviderAnthropic, "sk-ant-REDACTED"))
	require.NoError(t, store.StoreCredential(ctx, "user-1", byok.ProviderAnthropic, "sk-ant-REDACTED"))

	res := store.Lookup(ctx, "user-1", byok.ProviderAnthropic)
	require.Equal(t, byok.LookupFound, res.Status)
	assert.Equal(t, "sk-ant-REDACTED", res.Plaintext)
}

func TestDeleteCredential(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreCredential(ctx, "user-1", byok.ProviderOpenAI, "sk-proj-Zx9Yw8Vu7Ts6Rq5Po4Nm3Lk2"))
	require.NoError(t, store.DeleteCredential(ctx, "user-1", byok.ProviderOpenAI))

	res := store.Lookup(ctx, "user-1", byok.ProviderOpenAI)
	assert.Equal(t, byok.LookupNotFound, res.Status)

	// Deleting again is not an error.
	assert.NoError(t, store.DeleteCredential(ctx, "user-1", byok.ProviderOpenAI))
}

func TestProvidersAreIndependentRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreCredential(ctx, "user-1", byok.ProviderOpenAI, "sk-proj-Zx9Yw8Vu7Ts6Rq5Po4Nm3Lk2"))
	require.NoError(t, store.StoreCredential(ctx, "user-1", byok.ProviderAnthropic, "sk-ant-REDACTED"))
	require.NoError(t, store.DeleteCredential(ctx, "user-1", byok.ProviderOpenAI))

	res := store.Lookup(ctx, "user-1", byok.ProviderAnthropic)
	assert.Equal(t, byok.LookupFound, res.Status)
}

func TestRowsHoldNoPlaintext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.db")
	key, err := byok.GenerateKey()
	require.NoError(t, err)
	store, err := sqlite.Open(path, key)
	require.NoError(t, err)

	ctx := context.Background()
	plaintext := "sk-proj-Zx9Yw8Vu7Ts6Rq5Po4Nm3Lk2"
	require.NoError(t, store.StoreCredential(ctx, "user-1", byok.ProviderOpenAI, plaintext))
	require.NoError(t, store.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), plaintext)
}

func TestLookupAfterWrongKeyIsTransient(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.db")
	ctx := context.Background()

	key1, err := byok.GenerateKey()
	require.NoError(t, err)
	store, err := sqlite.Open(path, key1)
	require.NoError(t, err)
	require.NoError(t, store.StoreCredential(ctx, "user-1", byok.ProviderOpenAI, "sk-proj-Zx9Yw8Vu7Ts6Rq5Po4Nm3Lk2"))
	require.NoError(t, store.Close())

	key2, err := byok.GenerateKey()
	require.NoError(t, err)
	store, err = sqlite.Open(path, key2)
	require.NoError(t, err)
	defer store.Close()

	res := store.Lookup(ctx, "user-1", byok.ProviderOpenAI)
	assert.Equal(t, byok.LookupTransientError, res.Status)
	assert.True(t, byok.IsDecryptionError(res.Err))
}
