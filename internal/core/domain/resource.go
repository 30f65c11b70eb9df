package domain

import (
	"fmt"
	"strings"
)

// DefaultPageSize is the page size used when a resource does not set one.
const DefaultPageSize = 100

// ResourceKind distinguishes plain collections from report documents.
type ResourceKind string

// Resource kinds.
const (
	// KindCollection is a list endpoint normalised into related tables.
	KindCollection ResourceKind = "collection"

	// KindReport is a report endpoint flattened into a single table.
	KindReport ResourceKind = "report"
)

// IsValid returns true if the kind is recognised.
func (k ResourceKind) IsValid() bool {
	return k == KindCollection || k == KindReport
}

// ExpandRule designates a nested list field for extraction into a child table.
type ExpandRule struct {
	// Field is the list-valued column to extract.
	Field string

	// ParentID is the parent identifier copied into every child row.
	ParentID string

	// PrimaryKey is the child table's key for store sinks. Empty means
	// the child table is written to file sinks only.
	PrimaryKey string
}

// ChildTable returns the name of the table produced for this rule.
func (r ExpandRule) ChildTable(root string) string {
	return root + "_" + r.Field
}

// Resource describes one collection endpoint to export.
type Resource struct {
	// Name is the logical resource and root table name (e.g. "Invoices").
	Name string

	// Endpoint is the path relative to the API base URL.
	Endpoint string

	// ItemsKey is the response field holding the items. Defaults to Name.
	ItemsKey string

	// PrimaryKey is the root table's key column for store sinks.
	PrimaryKey string

	// Paginated enables the page loop.
	Paginated bool

	// PageSize is the number of items per page.
	PageSize int

	Kind ResourceKind

	// Params are extra query parameters sent with every request.
	Params map[string]string

	// ModifiedSince limits the fetch to records changed after this instant.
	ModifiedSince string

	// Expand lists the nested fields extracted into child tables.
	Expand []ExpandRule
}

// RootKey returns the response field holding the items.
func (r Resource) RootKey() string {
	if r.ItemsKey != "" {
		return r.ItemsKey
	}
	return r.Name
}

// EffectivePageSize returns the page size, falling back to DefaultPageSize.
func (r Resource) EffectivePageSize() int {
	if r.PageSize > 0 {
		return r.PageSize
	}
	return DefaultPageSize
}

// PrimaryKeyFor returns the declared key of a table produced from this resource.
func (r Resource) PrimaryKeyFor(table string) string {
	if table == r.RootKey() {
		return r.PrimaryKey
	}
	for _, rule := range r.Expand {
		if rule.ChildTable(r.RootKey()) == table {
			return rule.PrimaryKey
		}
	}
	return ""
}

// Validate checks the descriptor is usable.
func (r Resource) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: resource name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(r.Endpoint) == "" {
		return fmt.Errorf("%w: resource %s: endpoint is required", ErrInvalidInput, r.Name)
	}
	if r.Kind != "" && !r.Kind.IsValid() {
		return fmt.Errorf("%w: resource %s: unknown kind %q", ErrInvalidInput, r.Name, r.Kind)
	}
	if r.PageSize < 0 {
		return fmt.Errorf("%w: resource %s: page size must not be negative", ErrInvalidInput, r.Name)
	}
	for _, rule := range r.Expand {
		if rule.Field == "" {
			return fmt.Errorf("%w: resource %s: expand rule without field", ErrInvalidInput, r.Name)
		}
	}
	return nil
}
