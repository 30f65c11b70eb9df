package tabular

import (
	"fmt"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

// Report columns.
const (
	ColReportID   = "ReportID"
	ColReportName = "ReportName"
	ColReportDate = "ReportDate"
	ColSection    = "Section"
	ColRowType    = "RowType"
	ColAccount    = "Account"
	ColAccountID  = "AccountID"
)

var reportLead = []string{ColReportID, ColReportName, ColReportDate, ColSection, ColRowType, ColAccount, ColAccountID}

// FlattenReport turns report documents into one table named name.
//
// doc may be a {"Reports": [...]} envelope, a list of reports or a single
// report. Every row that has cells becomes one table row: the first cell is
// the Account (with its AccountID attribute, if any) and the rest become
// Column_1..Column_n. Rows nested in a section carry the section title.
func FlattenReport(doc any, name string) (*domain.FlatTable, error) {
	table := domain.NewFlatTable(name)

	for _, item := range domain.MatchShape(doc, "Reports").Items {
		report, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("flatten report %s: unexpected item %T", name, item)
		}
		base := domain.Row{
			ColReportID:   scalar(report["ReportID"]),
			ColReportName: scalar(report["ReportName"]),
			ColReportDate: scalar(report["ReportDate"]),
		}
		for _, r := range listOf(report["Rows"]) {
			row, ok := r.(map[string]any)
			if !ok {
				continue
			}
			if nested, ok := row["Rows"].([]any); ok {
				title, _ := row["Title"].(string)
				for _, sr := range nested {
					if sub, ok := sr.(map[string]any); ok {
						appendReportRow(table, base, title, sub)
					}
				}
				continue
			}
			appendReportRow(table, base, "", row)
		}
	}

	if err := serialiseComposites(table); err != nil {
		return nil, fmt.Errorf("flatten report %s: %w", name, err)
	}
	return table, nil
}

func appendReportRow(table *domain.FlatTable, base domain.Row, section string, row map[string]any) {
	cells, ok := row["Cells"].([]any)
	if !ok {
		return
	}

	out := make(domain.Row, len(base)+len(cells)+3)
	for k, v := range base {
		if v != nil {
			out[k] = v
		}
	}
	out[ColSection] = section
	out[ColRowType] = scalar(row["RowType"])

	columns := make([]string, 0, len(cells))
	for i, c := range cells {
		cell, ok := c.(map[string]any)
		if !ok {
			continue
		}
		col := fmt.Sprintf("Column_%d", i)
		if i == 0 {
			col = ColAccount
			if id, ok := attributeValue(cell); ok {
				out[ColAccountID] = id
			}
		}
		out[col] = scalar(cell["Value"])
		columns = append(columns, col)
	}

	table.Append(out, append(append([]string(nil), reportLead...), columns...)...)
}

// attributeValue returns the first attribute value of a cell.
func attributeValue(cell map[string]any) (any, bool) {
	attrs := listOf(cell["Attributes"])
	if len(attrs) == 0 {
		return nil, false
	}
	first, ok := attrs[0].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := first["Value"]
	if !ok || v == nil {
		return nil, false
	}
	return scalar(v), true
}

func listOf(v any) []any {
	l, _ := v.([]any)
	return l
}
