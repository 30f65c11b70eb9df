package xero

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driven"
	"github.com/custodia-labs/ledgersync/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.TenantDirectory = (*Client)(nil)

const (
	// HeaderTenantID scopes a request to one organisation.
	HeaderTenantID = "Xero-tenant-id"

	// HeaderIfModifiedSince limits results to records changed after a date.
	HeaderIfModifiedSince = "If-Modified-Since"

	// maxErrorBody caps the response body kept in an APIError.
	maxErrorBody = 512
)

// Client performs authenticated requests against the accounting API.
type Client struct {
	http           *http.Client
	baseURL        string
	connectionsURL string
	tenantID       string
	limiter        *RateLimiter
	maxRetries     int
}

// NewClient creates an API client. Bearer tokens come from provider on
// every request through an oauth2.Transport.
func NewClient(ctx context.Context, settings domain.APISettings, provider driven.TokenProvider) *Client {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultRequestTimeout
	}
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: NewTokenSource(ctx, provider),
			Base:   http.DefaultTransport,
		},
		Timeout: timeout,
	}
	return newClient(httpClient, settings)
}

func newClient(httpClient *http.Client, settings domain.APISettings) *Client {
	return &Client{
		http:           httpClient,
		baseURL:        strings.TrimRight(settings.BaseURL, "/"),
		connectionsURL: settings.ConnectionsURL,
		tenantID:       settings.TenantID,
		limiter:        NewRateLimiter(settings.RequestsPerSecond, settings.DefaultRetryAfter),
		maxRetries:     settings.MaxRateLimitRetries,
	}
}

// TenantID returns the tenant requests are scoped to.
func (c *Client) TenantID() string { return c.tenantID }

// SetTenantID scopes subsequent requests to tenantID.
func (c *Client) SetTenantID(tenantID string) { c.tenantID = tenantID }

// Get requests endpoint relative to the base URL and decodes the JSON body.
// Numbers are decoded as json.Number.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, header http.Header) (any, error) {
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}
	return c.getJSON(ctx, u, header, true)
}

// Connections lists the tenants the credential has been granted.
func (c *Client) Connections(ctx context.Context) ([]domain.Tenant, error) {
	doc, err := c.getJSON(ctx, c.connectionsURL, nil, false)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("list connections: unexpected response %T", doc)
	}

	tenants := make([]domain.Tenant, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		tenants = append(tenants, domain.Tenant{
			ID:   stringField(obj, "tenantId"),
			Type: stringField(obj, "tenantType"),
			Name: stringField(obj, "tenantName"),
		})
	}
	return tenants, nil
}

// getJSON issues a GET, retrying the same request on 429 up to maxRetries times.
func (c *Client) getJSON(ctx context.Context, rawURL string, header http.Header, scoped bool) (any, error) {
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if scoped && c.tenantID != "" {
			req.Header.Set(HeaderTenantID, c.tenantID)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}

		if rlErr := c.limiter.CheckRateLimit(resp); rlErr != nil {
			drain(resp)
			rlErr.Attempts = attempt
			if attempt > c.maxRetries {
				return nil, rlErr
			}
			logger.Warn("rate limited on %s, retrying in %s (attempt %d of %d)",
				redact(rawURL), rlErr.RetryAfter, attempt, c.maxRetries)
			if err := c.limiter.Backoff(ctx, rlErr.RetryAfter); err != nil {
				return nil, err
			}
			continue
		}

		return decodeResponse(resp)
	}
}

func decodeResponse(resp *http.Response) (any, error) {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    msg,
			URL:        redact(resp.Request.URL.String()),
		}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return doc, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

// redact drops the query string from a URL for logging.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// formatModifiedSince renders a configured modified-since value for the API.
// Dates and timestamps are normalised; anything else is sent verbatim.
func formatModifiedSince(value string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Format("2006-01-02T15:04:05")
		}
	}
	return value
}
