package domain

import "sort"

// ShapeKind names where a response document keeps its items.
type ShapeKind int

// Shapes in the order they are tried.
const (
	// ShapeEmpty means the document holds no items.
	ShapeEmpty ShapeKind = iota

	// ShapeNamedArray is {"<rootKey>": [...]}.
	ShapeNamedArray

	// ShapeNestedBody is {"Body": {"<rootKey>": [...]}}.
	ShapeNestedBody

	// ShapeBareArray is a top-level array.
	ShapeBareArray

	// ShapeFirstArray is an object whose first non-empty array field holds the items.
	ShapeFirstArray

	// ShapeSingleObject is an object treated as the only item.
	ShapeSingleObject
)

// String returns the shape name.
func (k ShapeKind) String() string {
	switch k {
	case ShapeNamedArray:
		return "named-array"
	case ShapeNestedBody:
		return "nested-body"
	case ShapeBareArray:
		return "bare-array"
	case ShapeFirstArray:
		return "first-array"
	case ShapeSingleObject:
		return "single-object"
	default:
		return "empty"
	}
}

// Shape is the matched variant together with the extracted items.
type Shape struct {
	Kind ShapeKind

	// Key is the field the items came from, if any.
	Key string

	Items []any
}

// MatchShape extracts the root items of doc.
// Candidates are evaluated in a fixed order and the first match wins.
func MatchShape(doc any, rootKey string) Shape {
	switch d := doc.(type) {
	case []any:
		if len(d) == 0 {
			return Shape{Kind: ShapeEmpty}
		}
		return Shape{Kind: ShapeBareArray, Items: d}
	case map[string]any:
		if len(d) == 0 {
			return Shape{Kind: ShapeEmpty}
		}
		if v, ok := d[rootKey]; ok {
			return fromField(ShapeNamedArray, rootKey, v)
		}
		if body, ok := d["Body"].(map[string]any); ok {
			if v, ok := body[rootKey]; ok {
				return fromField(ShapeNestedBody, rootKey, v)
			}
		}
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if arr, ok := d[k].([]any); ok && len(arr) > 0 {
				return Shape{Kind: ShapeFirstArray, Key: k, Items: arr}
			}
		}
		return Shape{Kind: ShapeSingleObject, Items: []any{d}}
	default:
		return Shape{Kind: ShapeEmpty}
	}
}

func fromField(kind ShapeKind, key string, v any) Shape {
	switch x := v.(type) {
	case []any:
		if len(x) == 0 {
			return Shape{Kind: ShapeEmpty, Key: key}
		}
		return Shape{Kind: kind, Key: key, Items: x}
	case map[string]any:
		return Shape{Kind: kind, Key: key, Items: []any{x}}
	default:
		return Shape{Kind: ShapeEmpty, Key: key}
	}
}
