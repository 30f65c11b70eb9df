package domain

import (
	"sort"
	"time"
)

// DateLayout is the normalised calendar date representation.
const DateLayout = "2006-01-02"

// Row is one flattened record. A missing key or a nil value is "missing".
type Row map[string]any

// Get returns the value of column and whether it is present and non-nil.
func (r Row) Get(column string) (any, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// ColumnType is the inferred storage type of a column.
type ColumnType string

// Column types in narrowest-first order.
const (
	ColumnInteger   ColumnType = "integer"
	ColumnFloat     ColumnType = "float"
	ColumnBoolean   ColumnType = "boolean"
	ColumnTimestamp ColumnType = "timestamp"
	ColumnString    ColumnType = "string"
)

// RelationLink connects a child table to its parent through a copied id column.
type RelationLink struct {
	// Parent is the parent table name.
	Parent string

	// ForeignKey is the parent's identifier column, copied into every child row.
	ForeignKey string
}

// FlatTable is a named collection of rows sharing a column set.
// Columns are kept in first-seen order across rows.
type FlatTable struct {
	Name    string
	Columns []string
	Rows    []Row

	// Link is set for child tables produced by expansion.
	Link *RelationLink

	// PrimaryKey is the declared key column, empty when unknown.
	PrimaryKey string

	seen map[string]struct{}
}

// NewFlatTable creates an empty table.
func NewFlatTable(name string) *FlatTable {
	return &FlatTable{Name: name, seen: make(map[string]struct{})}
}

// Append adds a row. Columns listed in lead are registered first, the
// remaining new keys of the row follow in sorted order.
func (t *FlatTable) Append(row Row, lead ...string) {
	if t.seen == nil {
		t.seen = make(map[string]struct{}, len(t.Columns))
		for _, c := range t.Columns {
			t.seen[c] = struct{}{}
		}
	}
	for _, c := range lead {
		if _, ok := row[c]; ok {
			t.addColumn(c)
		}
	}
	keys := make([]string, 0, len(row))
	for k := range row {
		if _, ok := t.seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.addColumn(k)
	}
	t.Rows = append(t.Rows, row)
}

func (t *FlatTable) addColumn(name string) {
	if _, ok := t.seen[name]; ok {
		return
	}
	t.seen[name] = struct{}{}
	t.Columns = append(t.Columns, name)
}

// Len returns the number of rows.
func (t *FlatTable) Len() int { return len(t.Rows) }

// IsEmpty reports whether the table has no rows.
func (t *FlatTable) IsEmpty() bool { return len(t.Rows) == 0 }

// HasColumn reports whether name is one of the table's columns.
func (t *FlatTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// DropColumn removes a column from the header and from every row.
func (t *FlatTable) DropColumn(name string) {
	out := t.Columns[:0]
	for _, c := range t.Columns {
		if c != name {
			out = append(out, c)
		}
	}
	t.Columns = out
	delete(t.seen, name)
	for _, r := range t.Rows {
		delete(r, name)
	}
}

// ColumnTypes infers a type per column from every non-missing value.
// Integers widen to float; any other mix, and all-missing columns, is string.
func (t *FlatTable) ColumnTypes() map[string]ColumnType {
	types := make(map[string]ColumnType, len(t.Columns))
	for _, c := range t.Columns {
		var (
			current ColumnType
			seen    bool
		)
		for _, r := range t.Rows {
			v, ok := r.Get(c)
			if !ok {
				continue
			}
			vt := ValueType(v)
			if !seen {
				current, seen = vt, true
				continue
			}
			current = widen(current, vt)
			if current == ColumnString {
				break
			}
		}
		if !seen {
			current = ColumnString
		}
		types[c] = current
	}
	return types
}

// ValueType classifies a single non-missing value.
func ValueType(v any) ColumnType {
	switch x := v.(type) {
	case int, int32, int64:
		return ColumnInteger
	case float32, float64:
		return ColumnFloat
	case bool:
		return ColumnBoolean
	case time.Time:
		return ColumnTimestamp
	case string:
		if len(x) == len(DateLayout) {
			if _, err := time.Parse(DateLayout, x); err == nil {
				return ColumnTimestamp
			}
		}
		return ColumnString
	default:
		return ColumnString
	}
}

func widen(a, b ColumnType) ColumnType {
	if a == b {
		return a
	}
	if (a == ColumnInteger && b == ColumnFloat) || (a == ColumnFloat && b == ColumnInteger) {
		return ColumnFloat
	}
	return ColumnString
}
