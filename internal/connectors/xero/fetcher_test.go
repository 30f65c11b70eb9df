package xero

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

// pagedServer serves items numbered from 1, pageSize per page, total items overall.
// failPage, when set, returns 500 for that page.
func pagedServer(t *testing.T, total, failPage int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
		if page == failPage {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var items []string
		for i := (page-1)*size + 1; i <= page*size && i <= total; i++ {
			items = append(items, fmt.Sprintf(`{"ContactID":"c%d"}`, i))
		}
		body := `{"Contacts":[`
		for i, it := range items {
			if i > 0 {
				body += ","
			}
			body += it
		}
		_, _ = w.Write([]byte(body + `]}`))
	}))
}

func contactsResource(pageSize int) domain.Resource {
	return domain.Resource{Name: "Contacts", Endpoint: "Contacts", Paginated: true, PageSize: pageSize}
}

func ids(items []any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.(map[string]any)["ContactID"].(string))
	}
	return out
}

func TestFetcher_FullThenShortPage(t *testing.T) {
	var calls atomic.Int32
	server := pagedServer(t, 3, 0, &calls)
	defer server.Close()

	c, _ := newTestClient(t, server, nil)
	f := NewFetcher(c, testAPISettings(server.URL), domain.ExportSettings{})

	result, err := f.Fetch(context.Background(), contactsResource(2))
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load(), "stops after the short page")
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids(result.Items))
	assert.Equal(t, 2, result.Pages)
	assert.False(t, result.Truncated)
}

func TestFetcher_ExactMultipleEndsOnEmptyPage(t *testing.T) {
	var calls atomic.Int32
	server := pagedServer(t, 4, 0, &calls)
	defer server.Close()

	c, _ := newTestClient(t, server, nil)
	f := NewFetcher(c, testAPISettings(server.URL), domain.ExportSettings{})

	result, err := f.Fetch(context.Background(), contactsResource(2))
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, result.Items, 4)
}

func TestFetcher_TruncateOnTransportError(t *testing.T) {
	var calls atomic.Int32
	server := pagedServer(t, 10, 2, &calls)
	defer server.Close()

	c, _ := newTestClient(t, server, nil)
	f := NewFetcher(c, testAPISettings(server.URL), domain.ExportSettings{OnTransportError: domain.PolicyTruncate})

	result, err := f.Fetch(context.Background(), contactsResource(2))
	require.NoError(t, err)

	assert.True(t, result.Truncated)
	assert.Equal(t, []string{"c1", "c2"}, ids(result.Items))
	assert.ErrorIs(t, result.Cause, domain.ErrTransport)

	var transportErr *domain.TransportError
	require.ErrorAs(t, result.Cause, &transportErr)
	assert.Equal(t, 2, transportErr.Page)
}

func TestFetcher_FailPolicy(t *testing.T) {
	var calls atomic.Int32
	server := pagedServer(t, 10, 2, &calls)
	defer server.Close()

	c, _ := newTestClient(t, server, nil)
	f := NewFetcher(c, testAPISettings(server.URL), domain.ExportSettings{OnTransportError: domain.PolicyFail})

	result, err := f.Fetch(context.Background(), contactsResource(2))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestFetcher_AuthFailureNeverTruncated(t *testing.T) {
	var calls atomic.Int32
	server := pagedServer(t, 10, 0, &calls)
	defer server.Close()

	provider := &staticProvider{err: &domain.AuthExchangeFailedError{Status: 400}}
	c, _ := newTestClient(t, server, provider)
	f := NewFetcher(c, testAPISettings(server.URL), domain.ExportSettings{OnTransportError: domain.PolicyTruncate})

	_, err := f.Fetch(context.Background(), contactsResource(2))
	assert.ErrorIs(t, err, domain.ErrAuthExchangeFailed)
	assert.Zero(t, calls.Load())
}

func TestFetcher_UnauthorizedPageAbortsRun(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("page") == "2" {
			http.Error(w, "AuthenticationUnsuccessful", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"Contacts":[{"ContactID":"c1"},{"ContactID":"c2"}]}`))
	}))
	defer server.Close()

	c, _ := newTestClient(t, server, nil)
	f := NewFetcher(c, testAPISettings(server.URL), domain.ExportSettings{OnTransportError: domain.PolicyTruncate})

	result, err := f.Fetch(context.Background(), contactsResource(2))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrAuthExchangeFailed)
	assert.True(t, domain.IsFatal(err))

	var authErr *domain.AuthExchangeFailedError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.Contains(t, authErr.Body, "AuthenticationUnsuccessful")
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetcher_RateLimitExhaustedTruncates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server, nil)
	f := NewFetcher(c, testAPISettings(server.URL), domain.ExportSettings{})

	result, err := f.Fetch(context.Background(), contactsResource(2))
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.True(t, IsRateLimited(result.Cause))
	assert.Empty(t, result.Items)
}

func TestFetcher_CancelledContext(t *testing.T) {
	var calls atomic.Int32
	server := pagedServer(t, 10, 0, &calls)
	defer server.Close()

	c, _ := newTestClient(t, server, nil)
	f := NewFetcher(c, testAPISettings(server.URL), domain.ExportSettings{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, contactsResource(2))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFetcher_NonPaginated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`{"Accounts":[{"AccountID":"a1"},{"AccountID":"a2"}]}`))
	}))
	defer server.Close()

	c, _ := newTestClient(t, server, nil)
	f := NewFetcher(c, testAPISettings(server.URL), domain.ExportSettings{})

	result, err := f.Fetch(context.Background(), domain.Resource{Name: "Accounts", Endpoint: "Accounts"})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 1, result.Pages)
}

func TestFetcher_ModifiedSince(t *testing.T) {
	t.Run("header by default", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "2025-01-01T00:00:00", r.Header.Get(HeaderIfModifiedSince))
			_, _ = w.Write([]byte(`{"Accounts":[]}`))
		}))
		defer server.Close()

		c, _ := newTestClient(t, server, nil)
		f := NewFetcher(c, testAPISettings(server.URL), domain.ExportSettings{ModifiedSince: "2025-01-01"})

		_, err := f.Fetch(context.Background(), domain.Resource{Name: "Accounts", Endpoint: "Accounts"})
		require.NoError(t, err)
	})

	t.Run("query parameter when configured", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get(HeaderIfModifiedSince))
			assert.Equal(t, "2024-06-30T00:00:00", r.URL.Query().Get("ModifiedAfter"))
			_, _ = w.Write([]byte(`{"Accounts":[]}`))
		}))
		defer server.Close()

		api := testAPISettings(server.URL)
		api.ModifiedSinceParam = "ModifiedAfter"
		c, _ := newTestClient(t, server, nil)
		f := NewFetcher(c, api, domain.ExportSettings{ModifiedSince: "2025-01-01"})

		res := domain.Resource{Name: "Accounts", Endpoint: "Accounts", ModifiedSince: "2024-06-30"}
		_, err := f.Fetch(context.Background(), res)
		require.NoError(t, err)
	})
}
