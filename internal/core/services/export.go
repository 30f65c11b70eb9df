package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driven"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driving"
	"github.com/custodia-labs/ledgersync/internal/logger"
)

// Ensure ExportRunner implements the interface.
var _ driving.ExportService = (*ExportRunner)(nil)

// ExportRunner fetches, normalises and writes each configured resource.
// A failing resource is recorded and the run moves on; only fatal auth
// errors stop it.
type ExportRunner struct {
	fetcher    driven.ResourceFetcher
	normaliser driven.Normaliser
	sinks      []driven.Sink
	resources  []domain.Resource

	// tenants and scope are optional. When both are set and no tenant is
	// scoped yet, the run resolves one first.
	tenants driving.TenantService
	scope   driven.TenantScope

	now   func() time.Time
	newID func() string
}

// NewExportRunner creates an export service.
func NewExportRunner(
	fetcher driven.ResourceFetcher,
	normaliser driven.Normaliser,
	sinks []driven.Sink,
	resources []domain.Resource,
) *ExportRunner {
	return &ExportRunner{
		fetcher:    fetcher,
		normaliser: normaliser,
		sinks:      sinks,
		resources:  resources,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// WithTenant resolves the tenant through tenants and applies it to scope.
func (e *ExportRunner) WithTenant(tenants driving.TenantService, scope driven.TenantScope) *ExportRunner {
	e.tenants = tenants
	e.scope = scope
	return e
}

// Export processes the named resources, or all of them when names is empty.
func (e *ExportRunner) Export(ctx context.Context, names []string) (*domain.RunReport, error) {
	selected, err := e.selectResources(names)
	if err != nil {
		return nil, err
	}
	if len(e.sinks) == 0 {
		return nil, fmt.Errorf("%w: no sinks configured", domain.ErrInvalidInput)
	}

	report := &domain.RunReport{RunID: e.newID(), StartedAt: e.now()}
	logger.SetRunID(report.RunID)
	defer logger.SetRunID("")
	defer func() { report.FinishedAt = e.now() }()

	tenantID, err := e.resolveTenant(ctx)
	if err != nil {
		report.Aborted = err
		return report, err
	}
	report.TenantID = tenantID
	logger.Info("export started: %d resources, tenant %s", len(selected), tenantID)

	for _, res := range selected {
		if err := ctx.Err(); err != nil {
			report.Aborted = err
			return report, err
		}

		result, err := e.exportResource(ctx, res)
		report.Resources = append(report.Resources, result)
		if err != nil {
			logger.Error("export aborted at %s: %v", res.Name, err)
			report.Aborted = err
			return report, err
		}
	}

	logger.Info("export finished: %d of %d resources failed", report.FailedCount(), len(report.Resources))
	return report, nil
}

// exportResource runs one resource. The returned error is set only when
// the run must stop; everything else is recorded in the result.
func (e *ExportRunner) exportResource(ctx context.Context, res domain.Resource) (domain.ResourceResult, error) {
	result := domain.ResourceResult{Resource: res.Name}
	logger.Section(res.Name)

	fetched, err := e.fetcher.Fetch(ctx, res)
	if err != nil {
		result.Err = fmt.Errorf("fetch %s: %w", res.Name, err)
		if stopsRun(ctx, err) {
			return result, err
		}
		logger.Error("%v", result.Err)
		return result, nil
	}
	result.Items = len(fetched.Items)
	result.Pages = fetched.Pages
	result.Truncated = fetched.Truncated
	if fetched.Truncated {
		logger.Warn("%s: partial result after %d pages: %v", res.Name, fetched.Pages, fetched.Cause)
	}
	if len(fetched.Items) == 0 {
		logger.Info("%s: no items", res.Name)
		return result, nil
	}

	tables, err := e.normaliser.NormaliseResource(fetched.Items, res)
	if err != nil {
		result.Err = fmt.Errorf("normalise %s: %w", res.Name, err)
		logger.Error("%v", result.Err)
		return result, nil
	}

	for _, name := range tableOrder(tables, res.RootKey()) {
		table := tables[name]
		opts := driven.WriteOptions{PrimaryKey: res.PrimaryKeyFor(name)}
		for _, sink := range e.sinks {
			tr := e.writeTable(ctx, sink, table, opts)
			result.Tables = append(result.Tables, tr)
			if tr.Err != nil && stopsRun(ctx, tr.Err) {
				return result, tr.Err
			}
		}
	}
	return result, nil
}

func (e *ExportRunner) writeTable(ctx context.Context, sink driven.Sink, table *domain.FlatTable, opts driven.WriteOptions) domain.TableResult {
	tr := domain.TableResult{Table: table.Name, Sink: sink.Name()}

	out, err := sink.Write(ctx, table, opts)
	switch {
	case err != nil:
		tr.Status = domain.TableFailed
		tr.Err = err
		logger.Error("write %s to %s: %v", table.Name, sink.Name(), err)
	case out.Skipped:
		tr.Status = domain.TableSkipped
		logger.Debug("%s: %s sink skipped %s", table.Name, sink.Name(), out.Reason)
	default:
		tr.Status = domain.TableWritten
		tr.Rows = out.Rows
		tr.Destination = out.Destination
		logger.Info("%s: %d rows to %s", table.Name, out.Rows, out.Destination)
	}
	return tr
}

func (e *ExportRunner) resolveTenant(ctx context.Context) (string, error) {
	if e.scope == nil {
		return "", nil
	}
	if id := e.scope.TenantID(); id != "" || e.tenants == nil {
		return id, nil
	}
	tenant, err := e.tenants.Resolve(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve tenant: %w", err)
	}
	e.scope.SetTenantID(tenant.ID)
	return tenant.ID, nil
}

func (e *ExportRunner) selectResources(names []string) ([]domain.Resource, error) {
	if len(names) == 0 {
		if len(e.resources) == 0 {
			return nil, fmt.Errorf("%w: no resources configured", domain.ErrInvalidInput)
		}
		return e.resources, nil
	}

	selected := make([]domain.Resource, 0, len(names))
	var unknown []string
	for _, name := range names {
		res, ok := findResource(e.resources, name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		selected = append(selected, res)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown resource %s", domain.ErrInvalidInput, strings.Join(unknown, ", "))
	}
	return selected, nil
}

func findResource(resources []domain.Resource, name string) (domain.Resource, bool) {
	for _, r := range resources {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return domain.Resource{}, false
}

// stopsRun reports whether err ends the whole run.
func stopsRun(ctx context.Context, err error) bool {
	if domain.IsFatal(err) {
		return true
	}
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// tableOrder returns the root table first and the children sorted.
func tableOrder(tables map[string]*domain.FlatTable, root string) []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		if name != root {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := tables[root]; ok {
		names = append([]string{root}, names...)
	}
	return names
}
