// Package sqlite implements the authenticated-user credential store on
// SQLite. Rows are keyed by (user_id, provider) and hold only encrypted
// bundles; the plaintext is encrypted under a server-side master key before
// it touches the database and is never written back.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hengadev/byok"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_credentials (
	user_id    TEXT NOT NULL,
	provider   TEXT NOT NULL,
	bundle     TEXT NOT NULL,
	is_active  INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, provider)
);`

// Store reads and writes per-user credentials in SQLite.
type Store struct {
	db  *sql.DB
	key []byte
}

// Open opens (or creates) the database at path and ensures the schema.
// masterKey encrypts credentials at rest and must be byok.KeyLength bytes.
func Open(path string, masterKey []byte) (*Store, error) {
	if len(masterKey) != byok.KeyLength {
		return nil, fmt.Errorf("%w: master key must be %d bytes, got %d",
			byok.ErrInvalidConfiguration, byok.KeyLength, len(masterKey))
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	key := make([]byte, len(masterKey))
	copy(key, masterKey)
	return &Store{db: db, key: key}, nil
}

// Close releases the database handle and wipes the master key copy.
func (s *Store) Close() error {
	byok.ZeroBytes(s.key)
	return s.db.Close()
}

// Lookup returns the decrypted credential for (userID, provider). Database
// failures surface as a transient status so the resolver falls through
// instead of failing the request.
func (s *Store) Lookup(ctx context.Context, userID string, provider byok.Provider) byok.LookupResult {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT bundle FROM user_credentials WHERE user_id = ? AND provider = ? AND is_active = 1`,
		userID, string(provider),
	).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return byok.LookupResult{Status: byok.LookupNotFound}
	case err != nil:
		return byok.LookupResult{Status: byok.LookupTransientError, Err: err}
	}

	bundle, err := byok.UnmarshalBundle([]byte(raw))
	if err != nil {
		return byok.LookupResult{Status: byok.LookupTransientError, Err: err}
	}
	plaintext, err := byok.Decrypt(bundle, s.key)
	if err != nil {
		return byok.LookupResult{Status: byok.LookupTransientError, Err: err}
	}
	return byok.LookupResult{Status: byok.LookupFound, Plaintext: plaintext}
}

// StoreCredential encrypts plaintext under the master key and upserts the
// row, reactivating a previously deactivated credential.
func (s *Store) StoreCredential(ctx context.Context, userID string, provider byok.Provider, plaintext string) error {
	bundle, err := byok.Encrypt(plaintext, s.key)
	if err != nil {
		return err
	}
	raw, err := byok.MarshalBundle(bundle)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_credentials (user_id, provider, bundle, is_active, updated_at)
		VALUES (?, ?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, provider)
		DO UPDATE SET bundle = excluded.bundle, is_active = 1, updated_at = CURRENT_TIMESTAMP`,
		userID, string(provider), string(raw),
	)
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// DeleteCredential removes the row. Deleting a missing row is not an error.
func (s *Store) DeleteCredential(ctx context.Context, userID string, provider byok.Provider) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_credentials WHERE user_id = ? AND provider = ?`,
		userID, string(provider),
	)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

var _ byok.UserCredentialStore = (*Store)(nil)
