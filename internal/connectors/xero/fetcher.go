package xero

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driven"
	"github.com/custodia-labs/ledgersync/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.ResourceFetcher = (*Fetcher)(nil)

// Fetcher pages through collection endpoints.
type Fetcher struct {
	client             *Client
	policy             domain.TransportErrorPolicy
	modifiedSince      string
	modifiedSinceParam string
}

// NewFetcher creates a fetcher. modifiedSince applies to resources that do
// not set their own filter; modifiedSinceParam selects a query parameter
// instead of the If-Modified-Since header.
func NewFetcher(client *Client, api domain.APISettings, export domain.ExportSettings) *Fetcher {
	policy := export.OnTransportError
	if !policy.IsValid() {
		policy = domain.PolicyTruncate
	}
	return &Fetcher{
		client:             client,
		policy:             policy,
		modifiedSince:      export.ModifiedSince,
		modifiedSinceParam: api.ModifiedSinceParam,
	}
}

// Fetch retrieves every item of res in server order.
//
// Paginated resources are requested from page 1 until a page returns fewer
// items than the page size. A failed page either truncates the result or
// fails the resource, depending on the transport error policy.
// Authentication failures and cancellation always fail.
func (f *Fetcher) Fetch(ctx context.Context, res domain.Resource) (*driven.FetchResult, error) {
	query, header := f.baseRequest(res)
	result := &driven.FetchResult{}

	if !res.Paginated {
		doc, err := f.client.Get(ctx, res.Endpoint, query, header)
		if err != nil {
			return f.fail(ctx, res, 1, result, err)
		}
		result.Items = domain.MatchShape(doc, res.RootKey()).Items
		result.Pages = 1
		return result, nil
	}

	pageSize := res.EffectivePageSize()
	query.Set("pageSize", strconv.Itoa(pageSize))

	for page := 1; ; page++ {
		query.Set("page", strconv.Itoa(page))

		doc, err := f.client.Get(ctx, res.Endpoint, query, header)
		if err != nil {
			return f.fail(ctx, res, page, result, err)
		}

		items := domain.MatchShape(doc, res.RootKey()).Items
		result.Items = append(result.Items, items...)
		result.Pages++
		logger.Debug("%s page %d: %d items", res.Name, page, len(items))

		if len(items) < pageSize {
			break
		}
	}
	return result, nil
}

func (f *Fetcher) baseRequest(res domain.Resource) (url.Values, http.Header) {
	query := url.Values{}
	for k, v := range res.Params {
		query.Set(k, v)
	}

	header := http.Header{}
	since := res.ModifiedSince
	if since == "" {
		since = f.modifiedSince
	}
	if since != "" {
		formatted := formatModifiedSince(since)
		if f.modifiedSinceParam != "" {
			if query.Get(f.modifiedSinceParam) == "" {
				query.Set(f.modifiedSinceParam, formatted)
			}
		} else {
			header.Set(HeaderIfModifiedSince, formatted)
		}
	}
	return query, header
}

// fail applies the transport error policy to a failed page.
func (f *Fetcher) fail(
	ctx context.Context,
	res domain.Resource,
	page int,
	result *driven.FetchResult,
	err error,
) (*driven.FetchResult, error) {
	if domain.IsFatal(err) {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if IsUnauthorized(err) {
		var apiErr *APIError
		errors.As(err, &apiErr)
		return nil, &domain.AuthExchangeFailedError{Status: apiErr.StatusCode, Body: apiErr.Message, Err: err}
	}

	transportErr := &domain.TransportError{Resource: res.Name, Page: page, Err: err}
	if f.policy == domain.PolicyFail {
		return nil, transportErr
	}
	if IsRateLimited(err) {
		logger.Warn("%s: rate limit retries exhausted on page %d", res.Name, page)
	}

	logger.Warn("%v; keeping %d items from %d pages", transportErr, len(result.Items), result.Pages)
	result.Truncated = true
	result.Cause = transportErr
	return result, nil
}
