package services

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewPKCE(t *testing.T) {
	p, err := newPKCE()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(p.verifier), 43, "verifier below RFC 7636 minimum")
	assert.LessOrEqual(t, len(p.verifier), 128)
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(p.verifier), p.challenge)
	assert.NotEqual(t, p.verifier, p.state)

	decoded, err := base64.RawURLEncoding.DecodeString(p.challenge)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)
}

func TestNewPKCE_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		p, err := newPKCE()
		require.NoError(t, err)
		assert.False(t, seen[p.verifier], "duplicate verifier")
		assert.False(t, seen[p.state], "duplicate state")
		seen[p.verifier] = true
		seen[p.state] = true
	}
}

func TestS256Challenge_KnownVector(t *testing.T) {
	// RFC 7636 appendix B.
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		oauth2.S256ChallengeFromVerifier("dBjftJeZ4CVP-mJ92K1rqZeLBEoM1mRKeeWaLE8CkNU"))
}

func TestGenerateState(t *testing.T) {
	state, err := generateState()
	require.NoError(t, err)

	assert.Len(t, state, 43)
	assert.False(t, strings.ContainsAny(state, "=+/"), "state must be unpadded base64url")

	decoded, err := base64.RawURLEncoding.DecodeString(state)
	require.NoError(t, err)
	assert.Len(t, decoded, stateLength)
}
