package tabular

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
	"github.com/custodia-labs/ledgersync/internal/core/ports/driven"
	"github.com/custodia-labs/ledgersync/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser flattens documents into related tables.
// It holds no state; the same document always yields the same tables.
type Normaliser struct{}

// New creates a new tabular normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// NormaliseResource flattens the fetched items of res.
func (n *Normaliser) NormaliseResource(items []any, res domain.Resource) (map[string]*domain.FlatTable, error) {
	if res.Kind == domain.KindReport {
		table, err := FlattenReport(items, res.Name)
		if err != nil {
			return nil, err
		}
		if table.IsEmpty() {
			return map[string]*domain.FlatTable{}, nil
		}
		return map[string]*domain.FlatTable{table.Name: table}, nil
	}

	tables, err := n.Normalise(items, res.RootKey(), res.Expand)
	if err != nil {
		return nil, err
	}
	if root, ok := tables[res.RootKey()]; ok {
		root.PrimaryKey = res.PrimaryKey
	}
	return tables, nil
}

// Normalise flattens doc into a table named rootKey plus one child table per
// applicable expand rule. An empty document yields an empty map.
func (n *Normaliser) Normalise(doc any, rootKey string, rules []domain.ExpandRule) (map[string]*domain.FlatTable, error) {
	result := make(map[string]*domain.FlatTable)

	shape := domain.MatchShape(doc, rootKey)
	if shape.Kind == domain.ShapeEmpty {
		return result, nil
	}
	logger.Debug("normalising %s: %d items (%s)", rootKey, len(shape.Items), shape.Kind)

	parent := domain.NewFlatTable(rootKey)
	for _, item := range shape.Items {
		if item == nil {
			continue
		}
		parent.Append(flattenItem(item))
	}
	if parent.IsEmpty() {
		return result, nil
	}
	result[rootKey] = parent

	for _, rule := range rules {
		if !parent.HasColumn(rule.Field) {
			continue
		}
		parentID := resolveParentID(parent, rule, rootKey)
		if parentID == "" {
			logger.Debug("skipping expansion of %s.%s: no parent id column", rootKey, rule.Field)
			continue
		}

		child := expand(parent, rule, rootKey, parentID)
		parent.DropColumn(rule.Field)
		if !child.IsEmpty() {
			result[child.Name] = child
		}
	}

	for name, table := range result {
		if err := serialiseComposites(table); err != nil {
			return nil, fmt.Errorf("serialise %s: %w", name, err)
		}
		normaliseDates(table)
	}
	return result, nil
}

// resolveParentID picks the rule's parent id column, falling back to
// lower(rootKey)+"ID". Empty means the expansion cannot be linked.
func resolveParentID(parent *domain.FlatTable, rule domain.ExpandRule, rootKey string) string {
	if rule.ParentID != "" && parent.HasColumn(rule.ParentID) {
		return rule.ParentID
	}
	fallback := strings.ToLower(rootKey) + "ID"
	if parent.HasColumn(fallback) {
		return fallback
	}
	return ""
}

// expand builds the child table for rule. Rows whose parent id is missing
// are dropped rather than linked to nothing.
func expand(parent *domain.FlatTable, rule domain.ExpandRule, rootKey, parentID string) *domain.FlatTable {
	child := domain.NewFlatTable(rule.ChildTable(rootKey))
	child.Link = &domain.RelationLink{Parent: rootKey, ForeignKey: parentID}
	child.PrimaryKey = rule.PrimaryKey

	for _, row := range parent.Rows {
		id, ok := row.Get(parentID)
		if !ok || isComposite(id) {
			continue
		}
		for _, element := range elements(row[rule.Field]) {
			childRow := flattenItem(element)
			childRow[parentID] = id
			child.Append(childRow, parentID)
		}
	}
	return child
}

// elements returns the members of a list value. A lone object counts as a
// one-element list; nil members are skipped.
func elements(v any) []any {
	switch x := v.(type) {
	case []any:
		out := make([]any, 0, len(x))
		for _, el := range x {
			if el != nil {
				out = append(out, el)
			}
		}
		return out
	case map[string]any:
		return []any{x}
	case nil:
		return nil
	default:
		return []any{x}
	}
}
