package services

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/oauth2"
)

// stateLength is the number of random bytes in the CSRF state.
const stateLength = 32

// pkce holds the values of one authorisation attempt.
type pkce struct {
	verifier  string
	challenge string
	state     string
}

// newPKCE creates a verifier, its S256 challenge and a CSRF state.
func newPKCE() (pkce, error) {
	state, err := generateState()
	if err != nil {
		return pkce{}, err
	}
	verifier := oauth2.GenerateVerifier()
	return pkce{
		verifier:  verifier,
		challenge: oauth2.S256ChallengeFromVerifier(verifier),
		state:     state,
	}, nil
}

// generateState creates a random state parameter for CSRF protection.
func generateState() (string, error) {
	b := make([]byte, stateLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
