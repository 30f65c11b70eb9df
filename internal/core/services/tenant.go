package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driven"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driving"
)

// Ensure TenantResolver implements the interface.
var _ driving.TenantService = (*TenantResolver)(nil)

// TenantResolver picks the tenant an export runs against.
type TenantResolver struct {
	directory  driven.TenantDirectory
	configured string
}

// NewTenantResolver creates a resolver. A non-empty configuredID is used
// as-is without asking the directory.
func NewTenantResolver(directory driven.TenantDirectory, configuredID string) *TenantResolver {
	return &TenantResolver{directory: directory, configured: configuredID}
}

// List returns every tenant the credential can access.
func (r *TenantResolver) List(ctx context.Context) ([]domain.Tenant, error) {
	tenants, err := r.directory.Connections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, nil
}

// Resolve returns the configured tenant, or the first organisation.
func (r *TenantResolver) Resolve(ctx context.Context) (domain.Tenant, error) {
	if r.configured != "" {
		return domain.Tenant{ID: r.configured, Type: domain.TenantTypeOrganisation}, nil
	}
	tenants, err := r.List(ctx)
	if err != nil {
		return domain.Tenant{}, err
	}
	tenant, ok := domain.FirstOrganisation(tenants)
	if !ok {
		return domain.Tenant{}, domain.ErrNoTenant
	}
	return tenant, nil
}
