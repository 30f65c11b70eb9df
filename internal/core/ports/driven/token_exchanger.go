package driven

import (
	"context"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

// TokenExchanger talks to the authorisation server's token endpoint.
// Rejected exchanges are returned as *domain.AuthExchangeFailedError.
type TokenExchanger interface {
	// AuthCodeURL builds the consent URL for the authorisation-code grant.
	AuthCodeURL(state, codeChallenge string) string

	// ExchangeCode trades an authorisation code for a token grant.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*domain.TokenGrant, error)

	// Refresh trades a refresh token for a new token grant.
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenGrant, error)
}
