package driving

import (
	"context"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

// ExportService runs the fetch, normalise and write pipeline.
type ExportService interface {
	// Export processes the named resources, or every configured resource
	// when names is empty. Each resource is attempted once. The returned
	// error is non-nil only for setup failures and fatal auth errors; the
	// report is returned alongside in the latter case.
	Export(ctx context.Context, names []string) (*domain.RunReport, error)
}

// TenantService resolves which tenant requests are scoped to.
type TenantService interface {
	// List returns every tenant the credential can access.
	List(ctx context.Context) ([]domain.Tenant, error)

	// Resolve returns the configured tenant, or the first organisation.
	Resolve(ctx context.Context) (domain.Tenant, error)
}
