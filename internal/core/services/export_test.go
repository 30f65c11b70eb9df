package services

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ledgersync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driven"
	"github.com/custodia-labs/ledgersync/internal/logger"
	"github.com/custodia-labs/ledgersync/internal/normalisers/tabular"
)

// fakeFetcher returns canned results per resource name.
type fakeFetcher struct {
	results map[string]*driven.FetchResult
	errs    map[string]error
	calls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, res domain.Resource) (*driven.FetchResult, error) {
	f.calls = append(f.calls, res.Name)
	if err := f.errs[res.Name]; err != nil {
		return nil, err
	}
	if r, ok := f.results[res.Name]; ok {
		return r, nil
	}
	return &driven.FetchResult{}, nil
}

// failingSink fails every write of the listed tables.
type failingSink struct {
	fail map[string]error
}

func (s *failingSink) Name() string { return "failing" }

func (s *failingSink) Write(_ context.Context, t *domain.FlatTable, _ driven.WriteOptions) (*driven.WriteResult, error) {
	if err := s.fail[t.Name]; err != nil {
		return nil, err
	}
	return &driven.WriteResult{Destination: t.Name, Rows: t.Len()}, nil
}

func (s *failingSink) Close() error { return nil }

// recordingSink records the options each table was written with.
type recordingSink struct {
	keys map[string]string
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Write(_ context.Context, t *domain.FlatTable, opts driven.WriteOptions) (*driven.WriteResult, error) {
	if s.keys == nil {
		s.keys = make(map[string]string)
	}
	s.keys[t.Name] = opts.PrimaryKey
	return &driven.WriteResult{Destination: t.Name, Rows: t.Len()}, nil
}

func (s *recordingSink) Close() error { return nil }

type fakeScope struct{ id string }

func (s *fakeScope) TenantID() string      { return s.id }
func (s *fakeScope) SetTenantID(id string) { s.id = id }

var (
	invoicesResource = domain.Resource{
		Name:       "Invoices",
		Endpoint:   "Invoices",
		PrimaryKey: "InvoiceID",
		Paginated:  true,
		Expand:     []domain.ExpandRule{{Field: "LineItems", ParentID: "InvoiceID", PrimaryKey: "LineItemID"}},
	}
	contactsResource = domain.Resource{Name: "Contacts", Endpoint: "Contacts", PrimaryKey: "ContactID", Paginated: true}
	accountsResource = domain.Resource{Name: "Accounts", Endpoint: "Accounts", PrimaryKey: "AccountID"}
)

func invoiceItems() []any {
	return []any{
		map[string]any{
			"InvoiceID": "i1",
			"Total":     10.0,
			"LineItems": []any{map[string]any{"LineItemID": "l1"}, map[string]any{"LineItemID": "l2"}},
		},
	}
}

func newTestRunner(fetcher driven.ResourceFetcher, sinks ...driven.Sink) *ExportRunner {
	r := NewExportRunner(fetcher, tabular.New(), sinks,
		[]domain.Resource{invoicesResource, contactsResource, accountsResource})
	r.newID = func() string { return "run-1" }
	r.now = func() time.Time { return baseTime }
	return r
}

func TestExport_WritesEveryTable(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]*driven.FetchResult{
		"Invoices": {Items: invoiceItems(), Pages: 1},
	}}
	sink := memory.NewTableSink()
	runner := newTestRunner(fetcher, sink)

	report, err := runner.Export(context.Background(), []string{"invoices"})
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.False(t, report.Failed())
	require.Len(t, report.Resources, 1)

	res := report.Resources[0]
	assert.Equal(t, "Invoices", res.Resource)
	assert.Equal(t, 1, res.Items)
	require.Len(t, res.Tables, 2)
	assert.Equal(t, "Invoices", res.Tables[0].Table)
	assert.Equal(t, "Invoices_LineItems", res.Tables[1].Table)
	assert.Equal(t, domain.TableWritten, res.Tables[1].Status)
	assert.Equal(t, 2, res.Tables[1].Rows)

	assert.Equal(t, []string{"Invoices", "Invoices_LineItems"}, sink.Names())
	child, ok := sink.Table("Invoices_LineItems")
	require.True(t, ok)
	assert.Equal(t, "i1", child.Rows[0]["InvoiceID"])
}

func TestExport_PassesPrimaryKeys(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]*driven.FetchResult{
		"Invoices": {Items: invoiceItems(), Pages: 1},
	}}
	sink := &recordingSink{}

	_, err := newTestRunner(fetcher, sink).Export(context.Background(), []string{"Invoices"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"Invoices": "InvoiceID", "Invoices_LineItems": "LineItemID"}, sink.keys)
}

func TestExport_IsolatesResourceFailures(t *testing.T) {
	fetcher := &fakeFetcher{
		results: map[string]*driven.FetchResult{
			"Invoices": {Items: invoiceItems(), Pages: 1},
			"Accounts": {Items: []any{map[string]any{"AccountID": "a1"}}, Pages: 1},
		},
		errs: map[string]error{
			"Contacts": &domain.TransportError{Resource: "Contacts", Page: 1, Err: errors.New("boom")},
		},
	}
	runner := newTestRunner(fetcher, memory.NewTableSink())

	report, err := runner.Export(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Invoices", "Contacts", "Accounts"}, fetcher.calls)
	require.Len(t, report.Resources, 3)
	assert.False(t, report.Resources[0].Failed())
	assert.ErrorIs(t, report.Resources[1].Err, domain.ErrTransport)
	assert.False(t, report.Resources[2].Failed())
	assert.Equal(t, 1, report.FailedCount())
	assert.True(t, report.Failed())
	assert.Nil(t, report.Aborted)
}

func TestExport_IsolatesSinkFailures(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]*driven.FetchResult{
		"Invoices": {Items: invoiceItems(), Pages: 1},
	}}
	sink := &failingSink{fail: map[string]error{
		"Invoices": &domain.SchemaMismatchError{Table: "Invoices", Column: "InvoiceID"},
	}}

	report, err := newTestRunner(fetcher, sink).Export(context.Background(), []string{"Invoices"})
	require.NoError(t, err)

	tables := report.Resources[0].Tables
	require.Len(t, tables, 2)
	assert.Equal(t, domain.TableFailed, tables[0].Status)
	assert.ErrorIs(t, tables[0].Err, domain.ErrSchemaMismatch)
	assert.Equal(t, domain.TableWritten, tables[1].Status)
	assert.True(t, report.Failed())
}

func TestExport_FatalErrorAborts(t *testing.T) {
	fatal := &domain.AuthExchangeFailedError{Status: 400, Body: "invalid_grant"}
	fetcher := &fakeFetcher{errs: map[string]error{"Invoices": fatal}}

	report, err := newTestRunner(fetcher, memory.NewTableSink()).Export(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthExchangeFailed)

	require.NotNil(t, report)
	assert.Equal(t, []string{"Invoices"}, fetcher.calls, "no resource attempted after a fatal error")
	assert.ErrorIs(t, report.Aborted, domain.ErrAuthExchangeFailed)
	assert.True(t, report.Failed())
}

func TestExport_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher := &fakeFetcher{}

	report, err := newTestRunner(fetcher, memory.NewTableSink()).Export(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fetcher.calls)
	assert.ErrorIs(t, report.Aborted, context.Canceled)
}

func TestExport_TruncatedAndEmptyResources(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]*driven.FetchResult{
		"Contacts": {
			Items:     []any{map[string]any{"ContactID": "c1"}},
			Pages:     1,
			Truncated: true,
			Cause:     &domain.TransportError{Resource: "Contacts", Page: 2, Err: errors.New("reset")},
		},
	}}
	sink := memory.NewTableSink()

	report, err := newTestRunner(fetcher, sink).Export(context.Background(), []string{"Contacts", "Accounts"})
	require.NoError(t, err)

	assert.True(t, report.Resources[0].Truncated)
	assert.Len(t, report.Resources[0].Tables, 1)
	assert.Empty(t, report.Resources[1].Tables)
	assert.Equal(t, []string{"Contacts"}, sink.Names())
}

func TestExport_UnknownResource(t *testing.T) {
	_, err := newTestRunner(&fakeFetcher{}, memory.NewTableSink()).Export(context.Background(), []string{"Invoices", "Nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "Nope")
}

func TestExport_NoSinks(t *testing.T) {
	_, err := newTestRunner(&fakeFetcher{}).Export(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExport_ResolvesTenant(t *testing.T) {
	dir := &fakeDirectory{tenants: []domain.Tenant{
		{ID: "p1", Type: "PRACTICE"},
		{ID: "org-1", Type: domain.TenantTypeOrganisation, Name: "Demo"},
	}}
	scope := &fakeScope{}
	runner := newTestRunner(&fakeFetcher{}, memory.NewTableSink()).
		WithTenant(NewTenantResolver(dir, ""), scope)

	report, err := runner.Export(context.Background(), []string{"Accounts"})
	require.NoError(t, err)

	assert.Equal(t, "org-1", scope.id)
	assert.Equal(t, "org-1", report.TenantID)
}

func TestExport_TenantResolutionFailureAborts(t *testing.T) {
	runner := newTestRunner(&fakeFetcher{}, memory.NewTableSink()).
		WithTenant(NewTenantResolver(&fakeDirectory{}, ""), &fakeScope{})

	report, err := runner.Export(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNoTenant)
	assert.ErrorIs(t, report.Aborted, domain.ErrNoTenant)
}

func TestExport_RunIDLogged(t *testing.T) {
	var buf syncBuffer
	logger.SetOutput(&buf)
	logger.SetVerbose(true)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
		logger.SetVerbose(false)
	})

	_, err := newTestRunner(&fakeFetcher{}, memory.NewTableSink()).Export(context.Background(), []string{"Accounts"})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "[run run-1]")
}
