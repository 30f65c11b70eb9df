// Package file persists the OAuth2 credential as a JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// DefaultFileName is used when only a directory is configured.
const DefaultFileName = "token.json"

// CredentialStore reads and writes the credential file as a whole.
// Writes go to a temporary file that is renamed over the target, so a
// crash never leaves a half-written access and refresh token pair.
type CredentialStore struct {
	mu   sync.Mutex
	path string
}

// NewCredentialStore creates a store for path.
// If path is empty, defaults to ~/.ledgersync/token.json.
func NewCredentialStore(path string) (*CredentialStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".ledgersync", DefaultFileName)
	}
	return &CredentialStore{path: path}, nil
}

// Path returns the credential file location.
func (s *CredentialStore) Path() string { return s.path }

// Load reads the credential file.
func (s *CredentialStore) Load(_ context.Context) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.CorruptStateError{Path: s.path, Err: err}
	}

	var cred domain.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, &domain.CorruptStateError{Path: s.path, Err: err}
	}
	if cred.AccessToken == "" {
		return nil, &domain.CorruptStateError{Path: s.path, Err: errors.New("missing access_token")}
	}
	if cred.ObtainedAt.IsZero() {
		return nil, &domain.CorruptStateError{Path: s.path, Err: errors.New("missing obtained_at")}
	}
	return &cred, nil
}

// Save replaces the credential file.
func (s *CredentialStore) Save(_ context.Context, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename has succeeded.
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}
