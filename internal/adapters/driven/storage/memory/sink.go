package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driven"
)

// Ensure TableSink implements the interface.
var _ driven.Sink = (*TableSink)(nil)

// TableSink keeps written tables in memory. Used for dry runs.
type TableSink struct {
	mu     sync.RWMutex
	tables map[string]*domain.FlatTable
	order  []string
}

// NewTableSink creates a new in-memory sink.
func NewTableSink() *TableSink {
	return &TableSink{
		tables: make(map[string]*domain.FlatTable),
	}
}

// Name returns "memory".
func (s *TableSink) Name() string { return "memory" }

// Write records the table, replacing any earlier table with the same name.
func (s *TableSink) Write(_ context.Context, table *domain.FlatTable, _ driven.WriteOptions) (*driven.WriteResult, error) {
	if table == nil || table.IsEmpty() {
		return &driven.WriteResult{Skipped: true, Reason: "empty table"}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[table.Name]; !ok {
		s.order = append(s.order, table.Name)
	}
	s.tables[table.Name] = table
	return &driven.WriteResult{Destination: table.Name, Rows: table.Len()}, nil
}

// Table returns a recorded table.
func (s *TableSink) Table(name string) (*domain.FlatTable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	return t, ok
}

// Names returns recorded table names in write order.
func (s *TableSink) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Close is a no-op.
func (s *TableSink) Close() error { return nil }
