package driven

import "github.com/custodia-labs/ledgersync/internal/core/domain"

// Normaliser turns fetched items into flat tables keyed by table name.
type Normaliser interface {
	// NormaliseResource flattens the items of one resource.
	// An empty item list yields an empty map, not an error.
	NormaliseResource(items []any, res domain.Resource) (map[string]*domain.FlatTable, error)
}
