// Package csv writes flat tables as CSV files, one file per table.
//
// Files are named after the lowercased table name inside the configured
// directory. The header is the table's column union in first-seen order and
// missing values are written as empty cells. Each write replaces the file.
package csv

import (
	"context"
	stdcsv "encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driven"
	"github.com/custodia-labs/ledgersync/internal/logger"
)

// Ensure Sink implements the interface.
var _ driven.Sink = (*Sink)(nil)

// Sink writes tables into a directory.
type Sink struct {
	dir string
}

// New creates a CSV sink rooted at dir, creating it if needed.
func New(dir string) (*Sink, error) {
	if dir == "" {
		return nil, fmt.Errorf("csv sink: %w: empty directory", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	return &Sink{dir: dir}, nil
}

// Name returns "csv".
func (s *Sink) Name() string { return "csv" }

// Dir returns the output directory.
func (s *Sink) Dir() string { return s.dir }

// PathFor returns the file a table is written to.
func (s *Sink) PathFor(table string) string {
	return filepath.Join(s.dir, strings.ToLower(table)+".csv")
}

// Write replaces the table's file with the current rows. Empty tables are
// skipped and leave any existing file untouched.
func (s *Sink) Write(ctx context.Context, table *domain.FlatTable, _ driven.WriteOptions) (*driven.WriteResult, error) {
	if table == nil || table.IsEmpty() {
		return &driven.WriteResult{Skipped: true, Reason: "empty table"}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.PathFor(table.Name)
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // gone after rename

	w := stdcsv.NewWriter(tmp)
	if err := w.Write(table.Columns); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing header of %s: %w", path, err)
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			record[i] = formatCell(row[col])
		}
		if err := w.Write(record); err != nil {
			tmp.Close()
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, fmt.Errorf("replacing %s: %w", path, err)
	}

	logger.Debug("wrote %d rows to %s", table.Len(), path)
	return &driven.WriteResult{Destination: path, Rows: table.Len()}, nil
}

// Close is a no-op.
func (s *Sink) Close() error { return nil }

// formatCell renders one value. Missing values are empty.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
