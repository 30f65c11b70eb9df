package driven

import (
	"context"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

// WriteOptions configures a single table write.
type WriteOptions struct {
	// PrimaryKey is the upsert key. Sinks that need one skip tables without it.
	PrimaryKey string
}

// WriteResult describes what a sink did with a table.
type WriteResult struct {
	// Destination is the file path or table name written.
	Destination string

	// Rows is the number of rows written.
	Rows int

	// Skipped is set when the sink had nothing to do.
	Skipped bool

	// Reason explains a skip.
	Reason string

	// DroppedColumns lists columns the destination does not have.
	DroppedColumns []string
}

// Sink persists flat tables.
type Sink interface {
	// Name identifies the sink in reports and logs.
	Name() string

	// Write persists one table.
	Write(ctx context.Context, table *domain.FlatTable, opts WriteOptions) (*WriteResult, error)

	// Close releases any held resources.
	Close() error
}
