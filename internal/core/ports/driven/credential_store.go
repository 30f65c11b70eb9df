package driven

import (
	"context"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

// CredentialStore persists the single OAuth2 credential.
// The record is always read and written as a whole.
type CredentialStore interface {
	// Load returns the persisted credential.
	// Returns domain.ErrNotFound when nothing has been saved yet and a
	// *domain.CorruptStateError when the stored contents are unusable.
	Load(ctx context.Context) (*domain.Credential, error)

	// Save replaces the persisted credential.
	Save(ctx context.Context, cred domain.Credential) error
}
