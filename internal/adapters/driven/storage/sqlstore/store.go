package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driven"
	"github.com/custodia-labs/ledgersync/internal/logger"
)

// DefaultSQLiteFile is the database file used when no DSN is configured.
const DefaultSQLiteFile = "ledgersync.db"

// Ensure Store implements the interface.
var _ driven.Sink = (*Store)(nil)

// Store is a relational table sink.
type Store struct {
	db      *sql.DB
	dialect Dialect
	target  string
}

// Open creates a store from sink settings. An empty driver selects SQLite.
func Open(settings domain.StoreSinkSettings) (*Store, error) {
	driver := settings.Driver
	if driver == "" {
		driver = domain.DriverSQLite
	}
	d, err := DialectFor(driver, settings.DisableRLS)
	if err != nil {
		return nil, err
	}

	dsn, target := settings.DSN, string(driver)
	switch driver {
	case domain.DriverSQLite:
		if dsn, err = sqlitePath(dsn); err != nil {
			return nil, err
		}
		target = dsn
		// WAL mode so readers are not blocked during an export
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	case domain.DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("%w: postgres store requires a dsn", domain.ErrInvalidInput)
		}
	}

	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", driver, err)
	}
	return &Store{db: db, dialect: d, target: target}, nil
}

// NewSQLiteStore opens a SQLite database file, creating its directory.
// If path is empty, defaults to ~/.ledgersync/ledgersync.db.
func NewSQLiteStore(path string) (*Store, error) {
	return Open(domain.StoreSinkSettings{Driver: domain.DriverSQLite, DSN: path})
}

// sqlitePath resolves the database file and creates its directory.
func sqlitePath(path string) (string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".ledgersync", DefaultSQLiteFile)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return path, nil
}

// Name returns the dialect name.
func (s *Store) Name() string { return string(s.dialect.Name()) }

// Target returns the database file path, or "postgres".
func (s *Store) Target() string { return s.target }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Write upserts the table's rows keyed by opts.PrimaryKey.
func (s *Store) Write(ctx context.Context, table *domain.FlatTable, opts driven.WriteOptions) (*driven.WriteResult, error) {
	if table == nil || table.IsEmpty() {
		return &driven.WriteResult{Skipped: true, Reason: "empty table"}, nil
	}
	if opts.PrimaryKey == "" {
		return &driven.WriteResult{Skipped: true, Reason: "no primary key"}, nil
	}

	pk, ok := matchColumn(table.Columns, opts.PrimaryKey)
	if !ok {
		return nil, &domain.SchemaMismatchError{Table: table.Name, Column: opts.PrimaryKey, Reason: "primary key column not in table"}
	}
	rows, err := dedupe(table, pk)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	exists, err := s.dialect.TableExists(ctx, tx, table.Name)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := s.createTable(ctx, tx, table, pk); err != nil {
			return nil, err
		}
	}

	destColumns, err := s.dialect.Columns(ctx, tx, table.Name)
	if err != nil {
		return nil, err
	}
	columns, dropped := selectColumns(table.Columns, destColumns)
	if len(dropped) > 0 {
		logger.Warn("%s: dropping columns missing from destination table: %s", table.Name, strings.Join(dropped, ", "))
	}
	destPK, ok := matchColumn(destColumns, pk)
	if !ok {
		return nil, &domain.SchemaMismatchError{Table: table.Name, Column: pk, Reason: "primary key column not in destination"}
	}

	stmt, err := tx.PrepareContext(ctx, buildUpsert(s.dialect, table.Name, columns, destPK))
	if err != nil {
		return nil, fmt.Errorf("preparing upsert into %s: %w", table.Name, err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for _, row := range rows {
		for i, c := range columns {
			v, err := bindValue(row[c.source])
			if err != nil {
				return nil, fmt.Errorf("encoding %s.%s: %w", table.Name, c.source, err)
			}
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return nil, fmt.Errorf("upserting into %s: %w", table.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	logger.Debug("upserted %d rows into %s", len(rows), table.Name)
	return &driven.WriteResult{Destination: table.Name, Rows: len(rows), DroppedColumns: dropped}, nil
}

func (s *Store) createTable(ctx context.Context, tx *sql.Tx, table *domain.FlatTable, pk string) error {
	types := table.ColumnTypes()
	defs := make([]string, 0, len(table.Columns)+1)
	for _, c := range table.Columns {
		def := s.dialect.Quote(c) + " " + s.dialect.ColumnType(types[c])
		if c == pk {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs, "PRIMARY KEY ("+s.dialect.Quote(pk)+")")

	ddl := fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", s.dialect.Quote(table.Name), strings.Join(defs, ",\n\t"))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating table %s: %w", table.Name, err)
	}
	for _, stmt := range s.dialect.AfterCreate(table.Name) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("configuring table %s: %w", table.Name, err)
		}
	}
	logger.Info("created table %s", table.Name)
	return nil
}

// column pairs a table column with its destination name.
type column struct {
	source string
	dest   string
}

// selectColumns keeps the table columns present in the destination,
// matched case-insensitively.
func selectColumns(columns, dest []string) ([]column, []string) {
	var (
		kept    []column
		dropped []string
	)
	for _, c := range columns {
		if d, ok := matchColumn(dest, c); ok {
			kept = append(kept, column{source: c, dest: d})
			continue
		}
		dropped = append(dropped, c)
	}
	return kept, dropped
}

// matchColumn finds name in columns, exact match first.
func matchColumn(columns []string, name string) (string, bool) {
	for _, c := range columns {
		if c == name {
			return c, true
		}
	}
	for _, c := range columns {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// dedupe checks every row carries the key and collapses rows sharing one.
// The later row wins but keeps the position of the first occurrence.
func dedupe(table *domain.FlatTable, pk string) ([]domain.Row, error) {
	index := make(map[string]int, len(table.Rows))
	out := make([]domain.Row, 0, len(table.Rows))
	for i, row := range table.Rows {
		id, ok := row.Get(pk)
		if !ok {
			return nil, &domain.SchemaMismatchError{
				Table:  table.Name,
				Column: pk,
				Reason: fmt.Sprintf("row %d has no primary key", i),
			}
		}
		key := fmt.Sprint(id)
		if at, seen := index[key]; seen {
			out[at] = row
			continue
		}
		index[key] = len(out)
		out = append(out, row)
	}
	return out, nil
}

// buildUpsert renders INSERT ... ON CONFLICT (pk) DO UPDATE.
func buildUpsert(d Dialect, table string, columns []column, pk string) string {
	names := make([]string, len(columns))
	params := make([]string, len(columns))
	var updates []string
	for i, c := range columns {
		q := d.Quote(c.dest)
		names[i] = q
		params[i] = d.Placeholder(i + 1)
		if c.dest != pk {
			updates = append(updates, q+" = excluded."+q)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) ",
		d.Quote(table), strings.Join(names, ", "), strings.Join(params, ", "), d.Quote(pk))
	if len(updates) == 0 {
		b.WriteString("DO NOTHING")
	} else {
		b.WriteString("DO UPDATE SET " + strings.Join(updates, ", "))
	}
	return b.String()
}

// bindValue converts a cell into a driver value. Composites become JSON text.
func bindValue(v any) (any, error) {
	switch v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return v, nil
	}
}
