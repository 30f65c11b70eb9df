package xero

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

// staticProvider implements driven.TokenProvider for testing.
type staticProvider struct {
	token string
	err   error
}

func (p *staticProvider) AccessToken(context.Context) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.token, nil
}

// sleepRecorder replaces real backoff sleeps.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.sleeps...)
}

func testAPISettings(baseURL string) domain.APISettings {
	return domain.APISettings{
		BaseURL:             baseURL,
		ConnectionsURL:      baseURL + "/connections",
		TenantID:            "tenant-1",
		MaxRateLimitRetries: 3,
		DefaultRetryAfter:   5 * time.Second,
		Timeout:             5 * time.Second,
	}
}

func newTestClient(t *testing.T, server *httptest.Server, provider *staticProvider) (*Client, *sleepRecorder) {
	t.Helper()
	if provider == nil {
		provider = &staticProvider{token: "test-token"}
	}
	c := NewClient(context.Background(), testAPISettings(server.URL), provider)
	rec := &sleepRecorder{}
	c.limiter.sleep = rec.sleep
	return c, rec
}
