// Package oauth provides OAuth2 token exchange against the authorisation server.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driven"
)

// Ensure Exchanger implements the interface.
var _ driven.TokenExchanger = (*Exchanger)(nil)

// maxErrorBody caps the response body kept on a failed exchange.
const maxErrorBody = 2048

// Exchanger performs authorisation-code and refresh-token grants.
type Exchanger struct {
	config *oauth2.Config
	client *http.Client
	now    func() time.Time
}

// NewExchanger creates an exchanger from the OAuth settings.
// The client secret is sent with HTTP basic auth.
func NewExchanger(settings domain.OAuthSettings, timeout time.Duration) *Exchanger {
	if timeout <= 0 {
		timeout = domain.DefaultRequestTimeout
	}
	return &Exchanger{
		config: &oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			RedirectURL:  settings.RedirectURI,
			Scopes:       settings.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   settings.AuthURL,
				TokenURL:  settings.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// AuthCodeURL builds the consent URL with an S256 PKCE challenge.
func (e *Exchanger) AuthCodeURL(state, codeChallenge string) string {
	return e.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode trades an authorisation code for a token grant.
func (e *Exchanger) ExchangeCode(ctx context.Context, code, codeVerifier string) (*domain.TokenGrant, error) {
	var opts []oauth2.AuthCodeOption
	if codeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(codeVerifier))
	}
	tok, err := e.config.Exchange(e.withClient(ctx), code, opts...)
	if err != nil {
		return nil, exchangeError(err)
	}
	return e.grantFromToken(tok), nil
}

// Refresh trades a refresh token for a new token grant.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (*domain.TokenGrant, error) {
	if refreshToken == "" {
		return nil, &domain.AuthExchangeFailedError{Err: errors.New("empty refresh token")}
	}
	// An empty access token forces the source to refresh.
	src := e.config.TokenSource(e.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, exchangeError(err)
	}
	return e.grantFromToken(tok), nil
}

func (e *Exchanger) withClient(ctx context.Context) context.Context {
	if e.client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, e.client)
}

func (e *Exchanger) grantFromToken(tok *oauth2.Token) *domain.TokenGrant {
	grant := &domain.TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if tok.ExpiresIn > 0 {
		grant.ExpiresIn = tok.ExpiresIn
	} else if !tok.Expiry.IsZero() {
		grant.ExpiresIn = int64(math.Round(tok.Expiry.Sub(e.now()).Seconds()))
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		grant.Scope = scope
	}
	return grant
}

// exchangeError converts an oauth2 failure into a domain error.
func exchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		out := &domain.AuthExchangeFailedError{
			Body: truncate(strings.TrimSpace(string(retrieveErr.Body)), maxErrorBody),
			Err:  err,
		}
		if retrieveErr.Response != nil {
			out.Status = retrieveErr.Response.StatusCode
		}
		return out
	}
	return &domain.AuthExchangeFailedError{Err: fmt.Errorf("token request: %w", err)}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
