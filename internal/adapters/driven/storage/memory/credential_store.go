package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore is an in-memory implementation of driven.CredentialStore.
type CredentialStore struct {
	mu    sync.RWMutex
	cred  *domain.Credential
	saves int
}

// NewCredentialStore creates a new in-memory credential store.
// A nil cred starts the store empty.
func NewCredentialStore(cred *domain.Credential) *CredentialStore {
	s := &CredentialStore{}
	if cred != nil {
		c := *cred
		s.cred = &c
	}
	return s
}

// Load returns the stored credential.
func (s *CredentialStore) Load(_ context.Context) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return nil, domain.ErrNotFound
	}
	c := *s.cred
	return &c, nil
}

// Save replaces the stored credential.
func (s *CredentialStore) Save(_ context.Context, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = &cred
	s.saves++
	return nil
}

// Saves returns how many times Save has been called.
func (s *CredentialStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
