package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect hides the differences between the supported databases.
type Dialect interface {
	// Name is the settings value selecting this dialect.
	Name() domain.StoreDriver

	// DriverName is the database/sql driver name.
	DriverName() string

	// Quote quotes an identifier.
	Quote(ident string) string

	// Placeholder returns the bind parameter for the 1-based position n.
	Placeholder(n int) string

	// ColumnType maps an inferred column type to a column definition type.
	ColumnType(t domain.ColumnType) string

	// TableExists reports whether the table is present.
	TableExists(ctx context.Context, q querier, table string) (bool, error)

	// Columns returns the destination table's column names.
	Columns(ctx context.Context, q querier, table string) ([]string, error)

	// AfterCreate returns statements run after creating a table.
	AfterCreate(table string) []string
}

// DialectFor returns the dialect for a driver name.
func DialectFor(driver domain.StoreDriver, disableRLS bool) (Dialect, error) {
	switch driver {
	case domain.DriverSQLite:
		return sqliteDialect{}, nil
	case domain.DriverPostgres:
		return postgresDialect{disableRLS: disableRLS}, nil
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", domain.ErrInvalidInput, driver)
	}
}

// ==================== SQLite ====================

type sqliteDialect struct{}

func (sqliteDialect) Name() domain.StoreDriver { return domain.DriverSQLite }

func (sqliteDialect) DriverName() string { return "sqlite" }

func (sqliteDialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) ColumnType(t domain.ColumnType) string {
	switch t {
	case domain.ColumnInteger, domain.ColumnBoolean:
		return "INTEGER"
	case domain.ColumnFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (sqliteDialect) TableExists(ctx context.Context, q querier, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return n > 0, nil
}

func (sqliteDialect) Columns(ctx context.Context, q querier, table string) ([]string, error) {
	return scanNames(ctx, q, table, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
}

func (sqliteDialect) AfterCreate(string) []string { return nil }

// ==================== PostgreSQL ====================

type postgresDialect struct {
	disableRLS bool
}

func (postgresDialect) Name() domain.StoreDriver { return domain.DriverPostgres }

func (postgresDialect) DriverName() string { return "postgres" }

func (postgresDialect) Quote(ident string) string { return pq.QuoteIdentifier(ident) }

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) ColumnType(t domain.ColumnType) string {
	switch t {
	case domain.ColumnInteger:
		return "BIGINT"
	case domain.ColumnFloat:
		return "DOUBLE PRECISION"
	case domain.ColumnBoolean:
		return "BOOLEAN"
	case domain.ColumnTimestamp:
		return "DATE"
	default:
		return "TEXT"
	}
}

func (postgresDialect) TableExists(ctx context.Context, q querier, table string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return exists, nil
}

func (postgresDialect) Columns(ctx context.Context, q querier, table string) ([]string, error) {
	return scanNames(ctx, q, table, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, table)
}

func (d postgresDialect) AfterCreate(table string) []string {
	if !d.disableRLS {
		return nil
	}
	return []string{"ALTER TABLE " + d.Quote(table) + " DISABLE ROW LEVEL SECURITY"}
}

func scanNames(ctx context.Context, q querier, table, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	var names []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning column of %s: %w", table, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns of %s: %w", table, err)
	}
	return names, nil
}
