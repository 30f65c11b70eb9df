package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

// AuthRequest is a prepared authorisation-code request.
type AuthRequest struct {
	// URL is the consent page to open in a browser.
	URL string

	// State must come back unchanged on the callback.
	State string

	// Verifier is the PKCE code verifier to send with the code exchange.
	Verifier string
}

// TokenService manages the lifecycle of the persisted OAuth2 credential.
type TokenService interface {
	// BeginAuthorization prepares a consent URL with fresh state and PKCE values.
	BeginAuthorization() (*AuthRequest, error)

	// Authorize exchanges an authorisation code and persists the credential.
	Authorize(ctx context.Context, code, verifier string) (*domain.Credential, error)

	// Load returns the persisted credential. found is false when none exists.
	Load(ctx context.Context) (cred *domain.Credential, found bool, err error)

	// Refresh exchanges the credential's refresh token and persists the result.
	Refresh(ctx context.Context, cred *domain.Credential) (*domain.Credential, error)

	// GetValid returns a credential valid for at least buffer, refreshing if needed.
	GetValid(ctx context.Context, buffer time.Duration) (*domain.Credential, error)

	// State reports where the credential is in its lifecycle.
	State(ctx context.Context) domain.TokenState
}
