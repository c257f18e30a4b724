package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ericfisherdev/baghound/internal/domain/model"
	"github.com/ericfisherdev/baghound/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// Credential blobs are serialized to JSON and encrypted with AES-256-GCM
// before write, decrypted after read.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewCredentialRepo creates a CredentialRepo. key must be 32 bytes for
// AES-256-GCM, or nil to disable the backend (all operations return
// ErrEncryptionKeyNotSet).
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

// Put stores or replaces the credentials for the given account.
func (r *CredentialRepo) Put(ctx context.Context, accountName string, creds model.Credentials) error {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials for %q: %w", accountName, err)
	}

	encrypted, err := r.encrypt(plaintext)
	if err != nil {
		return err
	}

	const query = `INSERT OR REPLACE INTO account_credentials (account_name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
	if _, err := r.db.Writer.ExecContext(ctx, query, accountName, encrypted); err != nil {
		return fmt.Errorf("store credentials for %q: %w", accountName, err)
	}
	return nil
}

// LoadAll returns the credentials of every loadable account. Rows that fail
// to decrypt or parse are skipped with a warning, matching the loading
// contract: only pollable accounts surface.
func (r *CredentialRepo) LoadAll(ctx context.Context) (map[string]model.Credentials, error) {
	if r.key == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT account_name, value FROM account_credentials ORDER BY account_name`
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	creds := make(map[string]model.Credentials)
	for rows.Next() {
		var name, encrypted string
		if err := rows.Scan(&name, &encrypted); err != nil {
			return nil, fmt.Errorf("scan credentials row: %w", err)
		}

		plaintext, err := r.decrypt(encrypted)
		if err != nil {
			slog.Warn("skipping account with undecryptable credentials", "account", name, "error", err)
			continue
		}

		var c model.Credentials
		if err := json.Unmarshal(plaintext, &c); err != nil {
			slog.Warn("skipping account with corrupt credentials", "account", name, "error", err)
			continue
		}
		if !c.Complete() {
			slog.Warn("skipping account with incomplete credentials", "account", name)
			continue
		}
		creds[name] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// Delete removes the credentials for the given account.
func (r *CredentialRepo) Delete(ctx context.Context, accountName string) error {
	const query = `DELETE FROM account_credentials WHERE account_name = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, accountName); err != nil {
		return fmt.Errorf("delete credentials for %q: %w", accountName, err)
	}
	return nil
}

// encrypt encrypts plaintext with AES-256-GCM and returns a base64-encoded
// string containing the nonce prepended to the ciphertext.
func (r *CredentialRepo) encrypt(plaintext []byte) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *CredentialRepo) decrypt(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("gcm.Open: %w", err)
	}

	return plaintext, nil
}
