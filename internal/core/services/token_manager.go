package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driven"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driving"
	"github.com/custodia-labs/ledgersync/internal/logger"
)

// Ensure TokenManager implements the interfaces.
var (
	_ driving.TokenService = (*TokenManager)(nil)
	_ driven.TokenProvider = (*TokenManager)(nil)
)

// errNoRefreshToken is wrapped when an expiring credential cannot be renewed.
var errNoRefreshToken = errors.New("credential has no refresh token")

// TokenManager owns the persisted credential and decides when to renew it.
// After a rejected refresh it stays Invalid until Authorize succeeds.
type TokenManager struct {
	store     driven.CredentialStore
	exchanger driven.TokenExchanger
	buffer    time.Duration
	now       func() time.Time

	mu      sync.Mutex
	cred    *domain.Credential
	invalid error

	// unsaved is set while the cached credential differs from the store.
	unsaved bool
}

// NewTokenManager creates a token manager.
// A zero buffer selects domain.DefaultRefreshBuffer.
func NewTokenManager(
	store driven.CredentialStore,
	exchanger driven.TokenExchanger,
	buffer time.Duration,
) *TokenManager {
	if buffer <= 0 {
		buffer = domain.DefaultRefreshBuffer
	}
	return &TokenManager{
		store:     store,
		exchanger: exchanger,
		buffer:    buffer,
		now:       time.Now,
	}
}

// BeginAuthorization prepares a consent URL with fresh state and PKCE values.
func (m *TokenManager) BeginAuthorization() (*driving.AuthRequest, error) {
	p, err := newPKCE()
	if err != nil {
		return nil, fmt.Errorf("generate pkce: %w", err)
	}
	return &driving.AuthRequest{
		URL:      m.exchanger.AuthCodeURL(p.state, p.challenge),
		State:    p.state,
		Verifier: p.verifier,
	}, nil
}

// Authorize exchanges an authorisation code and persists the credential.
func (m *TokenManager) Authorize(ctx context.Context, code, verifier string) (*domain.Credential, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorisation code is required", domain.ErrInvalidInput)
	}

	grant, err := m.exchanger.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return nil, fmt.Errorf("exchange authorisation code: %w", err)
	}

	cred := credentialFromGrant(grant, m.now(), "")

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}
	m.cred = &cred
	m.invalid = nil
	m.unsaved = false

	logger.Info("authorised, access token expires %s", cred.Expiry().Format(time.RFC3339))
	out := cred
	return &out, nil
}

// Load returns the persisted credential. Absence is not an error.
func (m *TokenManager) Load(ctx context.Context) (*domain.Credential, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cred, err := m.loadLocked(ctx)
	if err != nil {
		return nil, false, err
	}
	if cred == nil {
		return nil, false, nil
	}
	out := *cred
	return &out, true, nil
}

// Refresh exchanges the credential's refresh token and persists the result.
// A rejected exchange leaves the manager Invalid.
func (m *TokenManager) Refresh(ctx context.Context, cred *domain.Credential) (*domain.Credential, error) {
	if cred == nil {
		return nil, domain.ErrNoCredential
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.refreshLocked(ctx, *cred)
	if err != nil {
		return nil, err
	}
	out := *next
	return &out, nil
}

// GetValid returns a credential valid for at least buffer, refreshing if needed.
func (m *TokenManager) GetValid(ctx context.Context, buffer time.Duration) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.invalid != nil {
		return nil, m.invalid
	}

	cred, err := m.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, domain.ErrNoCredential
	}
	if err := m.flushLocked(ctx); err != nil {
		return nil, err
	}

	if !cred.IsExpiring(m.now(), buffer) {
		out := *cred
		return &out, nil
	}

	logger.Debug("access token expires %s, refreshing", cred.Expiry().Format(time.RFC3339))
	next, err := m.refreshLocked(ctx, *cred)
	if err != nil {
		return nil, err
	}
	out := *next
	return &out, nil
}

// AccessToken returns a bearer token valid for at least the configured buffer.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	cred, err := m.GetValid(ctx, m.buffer)
	if err != nil {
		return "", err
	}
	return cred.AccessToken, nil
}

// State reports where the credential is in its lifecycle.
func (m *TokenManager) State(ctx context.Context) domain.TokenState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.invalid != nil {
		return domain.TokenInvalid
	}
	cred, err := m.loadLocked(ctx)
	if err != nil {
		return domain.TokenInvalid
	}
	if cred == nil {
		return domain.TokenAbsent
	}
	if cred.IsExpiring(m.now(), m.buffer) {
		return domain.TokenExpiring
	}
	return domain.TokenValid
}

// loadLocked returns the cached credential, reading the store on first use.
// Caller must hold mu.
func (m *TokenManager) loadLocked(ctx context.Context) (*domain.Credential, error) {
	if m.cred != nil {
		return m.cred, nil
	}
	cred, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	m.cred = cred
	return cred, nil
}

// flushLocked persists a cached credential the store has not accepted yet.
// The old refresh token is spent by then, so callers get the error until a
// save succeeds. Caller must hold mu.
func (m *TokenManager) flushLocked(ctx context.Context) error {
	if !m.unsaved || m.cred == nil {
		return nil
	}
	if err := m.store.Save(ctx, *m.cred); err != nil {
		logger.Warn("refreshed credential not saved: %v", err)
		return fmt.Errorf("save refreshed credential: %w", err)
	}
	m.unsaved = false
	return nil
}

// refreshLocked performs the refresh grant. Caller must hold mu.
func (m *TokenManager) refreshLocked(ctx context.Context, cred domain.Credential) (*domain.Credential, error) {
	if !cred.HasRefreshToken() {
		m.invalid = &domain.AuthExchangeFailedError{Err: errNoRefreshToken}
		return nil, m.invalid
	}

	grant, err := m.exchanger.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exchangeErr *domain.AuthExchangeFailedError
		if !errors.As(err, &exchangeErr) {
			exchangeErr = &domain.AuthExchangeFailedError{Err: err}
		}
		m.invalid = fmt.Errorf("refresh token: %w", exchangeErr)
		logger.Error("token refresh rejected: %v", exchangeErr)
		return nil, m.invalid
	}

	next := credentialFromGrant(grant, m.now(), cred.RefreshToken)
	m.cred = &next
	m.unsaved = true

	if err := m.flushLocked(ctx); err != nil {
		return nil, err
	}

	logger.Info("access token refreshed, expires %s", next.Expiry().Format(time.RFC3339))
	return &next, nil
}

// credentialFromGrant builds a credential obtained at now. The previous
// refresh token is kept when the grant omits one.
func credentialFromGrant(grant *domain.TokenGrant, now time.Time, previousRefresh string) domain.Credential {
	ttl := grant.ExpiresIn
	if ttl <= 0 {
		ttl = domain.DefaultTokenTTL
	}
	refresh := grant.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return domain.Credential{
		AccessToken:  grant.AccessToken,
		RefreshToken: refresh,
		TokenType:    grant.TokenType,
		ObtainedAt:   now.UTC(),
		TTLSeconds:   ttl,
		Scope:        grant.Scope,
	}
}
