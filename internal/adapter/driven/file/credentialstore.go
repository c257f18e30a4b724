// Package file implements credential loading from a directory of account
// folders, one subdirectory per account with a credentials.json inside.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ericfisherdev/baghound/internal/domain/model"
	"github.com/ericfisherdev/baghound/internal/domain/port/driven"
)

// credentialsFileName is the expected file inside each account folder.
const credentialsFileName = "credentials.json"

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore loads account credentials from a directory tree:
//
//	<dir>/<account-name>/credentials.json
//
// Folders with a missing, corrupt, or incomplete credentials file are
// skipped with a warning and never surface to the registry.
type CredentialStore struct {
	dir string
}

// NewCredentialStore creates a CredentialStore rooted at dir, creating the
// directory if it does not exist yet.
func NewCredentialStore(dir string) (*CredentialStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create accounts directory %s: %w", dir, err)
	}
	return &CredentialStore{dir: dir}, nil
}

// Dir returns the accounts directory root.
func (s *CredentialStore) Dir() string {
	return s.dir
}

// LoadAll scans the accounts directory and returns the credentials of every
// loadable account, keyed by folder name.
func (s *CredentialStore) LoadAll(ctx context.Context) (map[string]model.Credentials, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read accounts directory %s: %w", s.dir, err)
	}

	creds := make(map[string]model.Credentials)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()
		c, err := s.loadOne(name)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("skipping account with unreadable credentials",
					"account", name, "error", err)
			}
			continue
		}
		if !c.Complete() {
			slog.Warn("skipping account with incomplete credentials", "account", name)
			continue
		}
		creds[name] = c
	}

	return creds, nil
}

func (s *CredentialStore) loadOne(name string) (model.Credentials, error) {
	path := filepath.Join(s.dir, name, credentialsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Credentials{}, err
	}

	var c model.Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return model.Credentials{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}
