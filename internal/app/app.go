// Package app wires settings, adapters and services into the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	csvsink "github.com/custodia-labs/ledgersync/internal/adapters/driven/sink/csv"
	"github.com/custodia-labs/ledgersync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ledgersync/internal/adapters/driven/oauth"
	credfile "github.com/custodia-labs/ledgersync/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/ledgersync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ledgersync/internal/adapters/driven/storage/sqlstore"
	"github.com/custodia-labs/ledgersync/internal/adapters/driving/cli"
	"github.com/custodia-labs/ledgersync/internal/connectors/xero"
	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driven"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driving"
	"github.com/custodia-labs/ledgersync/internal/core/services"
	"github.com/custodia-labs/ledgersync/internal/logger"
	"github.com/custodia-labs/ledgersync/internal/normalisers/tabular"
)

// LoadSettings reads .env, the settings file and the environment, fills in
// the resource catalogue and validates the result.
func LoadSettings(opts cli.Options) (domain.Settings, error) {
	if err := file.LoadEnvFile(""); err != nil {
		return domain.Settings{}, err
	}

	path, required := opts.ConfigPath, opts.ConfigPath != ""
	if path == "" {
		p, err := file.DefaultPath()
		if err != nil {
			return domain.Settings{}, err
		}
		path = p
	}

	settings, err := file.Load(path, required)
	if err != nil {
		return domain.Settings{}, err
	}
	settings.Resources = ResolveResources(settings.Resources, xero.DefaultResources())

	if settings.OAuth.ClientSecret == "" && opts.ReadSecret != nil {
		secret, err := opts.ReadSecret()
		if err != nil {
			return domain.Settings{}, err
		}
		settings.OAuth.ClientSecret = secret
	}

	if err := settings.Validate(); err != nil {
		return domain.Settings{}, fmt.Errorf("settings %s: %w", path, err)
	}
	return settings, nil
}

// ResolveResources returns catalogue when none are configured. A configured
// entry without an endpoint takes the catalogue definition of that name,
// keeping any fields it sets itself.
func ResolveResources(configured, catalogue []domain.Resource) []domain.Resource {
	if len(configured) == 0 {
		return catalogue
	}
	out := make([]domain.Resource, 0, len(configured))
	for _, r := range configured {
		if r.Endpoint == "" {
			if base, ok := findResource(catalogue, r.Name); ok {
				r = mergeResource(base, r)
			}
		}
		out = append(out, r)
	}
	return out
}

func findResource(resources []domain.Resource, name string) (domain.Resource, bool) {
	for _, r := range resources {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return domain.Resource{}, false
}

func mergeResource(base, override domain.Resource) domain.Resource {
	if override.PageSize > 0 {
		base.PageSize = override.PageSize
	}
	if override.PrimaryKey != "" {
		base.PrimaryKey = override.PrimaryKey
	}
	if override.ModifiedSince != "" {
		base.ModifiedSince = override.ModifiedSince
	}
	if len(override.Params) > 0 {
		base.Params = override.Params
	}
	if len(override.Expand) > 0 {
		base.Expand = override.Expand
	}
	return base
}

// Bootstrap builds the CLI services. Token refreshes made by the API client
// run under opts.Context. Sinks are opened on the first export so credential
// commands never touch the database.
func Bootstrap(opts cli.Options) (*cli.Services, error) {
	settings, err := LoadSettings(opts)
	if err != nil {
		return nil, err
	}

	store, err := credfile.NewCredentialStore(settings.Credentials.Path)
	if err != nil {
		return nil, err
	}
	exchanger := oauth.NewExchanger(settings.OAuth, settings.API.Timeout)
	tokens := services.NewTokenManager(store, exchanger, settings.Credentials.RefreshBuffer)

	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	client := xero.NewClient(ctx, settings.API, tokens)
	fetcher := xero.NewFetcher(client, settings.API, settings.Export)
	tenants := services.NewTenantResolver(client, settings.API.TenantID)
	normaliser := tabular.New()

	export := &deferredExport{open: func() (driving.ExportService, []driven.Sink, error) {
		sinks, err := OpenSinks(settings.Sinks)
		if err != nil {
			return nil, nil, err
		}
		runner := services.NewExportRunner(fetcher, normaliser, sinks, settings.Resources).
			WithTenant(tenants, client)
		return runner, sinks, nil
	}}
	dryRun := services.NewExportRunner(fetcher, normaliser, []driven.Sink{memory.NewTableSink()}, settings.Resources).
		WithTenant(tenants, client)

	return &cli.Services{
		Token:       tokens,
		Export:      export,
		Tenants:     tenants,
		DryRun:      dryRun,
		RedirectURI: settings.OAuth.RedirectURI,
		Resources:   settings.Resources,
		Close:       export.Close,
	}, nil
}

// OpenSinks creates every enabled sink.
func OpenSinks(settings domain.SinkSettings) ([]driven.Sink, error) {
	var sinks []driven.Sink
	if settings.CSV.Enabled {
		s, err := csvsink.New(settings.CSV.Dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if settings.Store.Enabled {
		s, err := sqlstore.Open(settings.Store)
		if err != nil {
			closeSinks(sinks)
			return nil, fmt.Errorf("open %s sink: %w", settings.Store.Driver, err)
		}
		logger.Debug("store sink: %s", s.Target())
		sinks = append(sinks, s)
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("%w: no sink enabled", domain.ErrInvalidInput)
	}
	return sinks, nil
}

func closeSinks(sinks []driven.Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// deferredExport opens its sinks on first use.
type deferredExport struct {
	open func() (driving.ExportService, []driven.Sink, error)

	mu     sync.Mutex
	runner driving.ExportService
	sinks  []driven.Sink
}

func (d *deferredExport) Export(ctx context.Context, names []string) (*domain.RunReport, error) {
	d.mu.Lock()
	if d.runner == nil {
		runner, sinks, err := d.open()
		if err != nil {
			d.mu.Unlock()
			return nil, err
		}
		d.runner, d.sinks = runner, sinks
	}
	runner := d.runner
	d.mu.Unlock()

	return runner.Export(ctx, names)
}

// Close closes any opened sinks.
func (d *deferredExport) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := closeSinks(d.sinks)
	d.sinks = nil
	return err
}
