package domain

import "time"

// DefaultTokenTTL is used when the token endpoint omits expires_in.
const DefaultTokenTTL int64 = 1800

// DefaultRefreshBuffer is the safety margin subtracted from expiry before
// a credential is treated as expiring.
const DefaultRefreshBuffer = 300 * time.Second

// Credential is the persisted OAuth2 credential for one tenant.
// It is replaced as a whole on every refresh and never deleted automatically.
type Credential struct {
	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is used to obtain new access tokens.
	RefreshToken string `json:"refresh_token"`
	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`
	// ObtainedAt is when the access token was issued.
	ObtainedAt time.Time `json:"obtained_at"`
	// TTLSeconds is the access token lifetime reported by the server.
	TTLSeconds int64 `json:"ttl_seconds"`
	// Scope is the space-separated scope granted, when reported.
	Scope string `json:"scope,omitempty"`
}

// Expiry returns the instant the access token stops being accepted.
func (c Credential) Expiry() time.Time {
	return c.ObtainedAt.Add(time.Duration(c.TTLSeconds) * time.Second)
}

// IsExpiring reports whether the credential is inside the refresh buffer
// (or past expiry) at the given instant.
func (c Credential) IsExpiring(now time.Time, buffer time.Duration) bool {
	return !now.Before(c.Expiry().Add(-buffer))
}

// HasRefreshToken returns true if a refresh token is available.
func (c Credential) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// TokenGrant is a successful response from the token endpoint.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	// ExpiresIn is the lifetime in seconds; zero when the server omitted it.
	ExpiresIn int64
	Scope     string
}

// TokenState is a position in the credential lifecycle.
type TokenState string

const (
	// TokenAbsent means no authorisation has been performed yet.
	TokenAbsent TokenState = "absent"
	// TokenValid means the access token is usable beyond the buffer.
	TokenValid TokenState = "valid"
	// TokenExpiring means the access token is within the buffer or expired.
	TokenExpiring TokenState = "expiring"
	// TokenInvalid means a refresh was rejected; re-authorisation is required.
	TokenInvalid TokenState = "invalid"
)
