package driven

import "context"

// TokenProvider provides access tokens for authenticated API calls.
// Implementations handle token refresh transparently.
type TokenProvider interface {
	// AccessToken returns a bearer token valid for at least the refresh buffer.
	AccessToken(ctx context.Context) (string, error)
}
