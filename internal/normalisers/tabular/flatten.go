package tabular

import (
	"encoding/json"
	"strconv"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

// valueColumn holds a non-object item.
const valueColumn = "value"

// flattenItem turns one item into a row. Objects are flattened with dotted
// keys, anything else is stored under "value".
func flattenItem(item any) domain.Row {
	row := domain.Row{}
	obj, ok := item.(map[string]any)
	if !ok {
		row[valueColumn] = scalar(item)
		return row
	}
	flattenInto(row, "", obj)
	return row
}

func flattenInto(row domain.Row, prefix string, obj map[string]any) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(row, key, nested)
			continue
		}
		row[key] = scalar(v)
	}
}

// scalar converts decoded JSON numbers; other values pass through.
func scalar(v any) any {
	switch x := v.(type) {
	case json.Number:
		return number(x)
	case map[string]any:
		if len(x) == 0 {
			return nil
		}
		return x
	default:
		return v
	}
}

// number returns int64 for integral literals and float64 otherwise.
func number(n json.Number) any {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return string(n)
}

func isComposite(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

// serialiseComposites replaces remaining object and list values with
// canonical JSON text. encoding/json sorts object keys.
func serialiseComposites(t *domain.FlatTable) error {
	for _, row := range t.Rows {
		for k, v := range row {
			if !isComposite(v) {
				continue
			}
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			row[k] = string(data)
		}
	}
	return nil
}
