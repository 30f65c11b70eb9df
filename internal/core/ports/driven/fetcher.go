package driven

import (
	"context"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

// FetchResult is the concatenation of every page fetched for a resource.
type FetchResult struct {
	// Items are the root items in server order.
	Items []any

	// Pages is the number of pages that returned successfully.
	Pages int

	// Truncated is set when pagination stopped early on a transport error.
	Truncated bool

	// Cause is the transport error that truncated the result.
	Cause error
}

// ResourceFetcher pages through a collection endpoint.
type ResourceFetcher interface {
	// Fetch retrieves every item of a resource.
	// Authentication failures are always returned as errors.
	Fetch(ctx context.Context, res domain.Resource) (*FetchResult, error)
}

// TenantDirectory lists the tenants a credential can access.
type TenantDirectory interface {
	Connections(ctx context.Context) ([]domain.Tenant, error)
}

// TenantScope selects the tenant subsequent requests are made for.
type TenantScope interface {
	TenantID() string
	SetTenantID(id string)
}
