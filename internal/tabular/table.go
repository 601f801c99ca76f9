// Package tabular converts between the nested-table tree reported by
// extraction and the flat, column_path-addressed cell model that gets
// persisted. Flatten and Reconstruct are inverses over the flat form:
// Flatten(Reconstruct(Flatten(t))) == Flatten(t) for any well-formed t.
// The flat set is the canonical form; reconstruction may synthesize header
// labels but never moves a cell.
package tabular

import (
	"patro/internal/domain"
)

// Column is one node of the column-header tree. Only leaf columns hold cell
// data; interior nodes exist purely to describe header grouping.
type Column struct {
	Label    string   `json:"label"`
	Children []Column `json:"children,omitempty"`
}

// Cell is one data cell in the tree form, keyed by the column_path of its
// leaf column.
type Cell struct {
	Path    domain.ColumnPath `json:"column_path"`
	Text    string            `json:"text"`
	RowSpan int               `json:"rowspan"`
	ColSpan int               `json:"colspan"`
}

// Row is one data row.
type Row struct {
	Cells []Cell `json:"cells"`
}

// Table is the nested display/export form of a table block.
type Table struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// IsEmpty reports whether the table has neither columns nor rows.
func (t Table) IsEmpty() bool {
	return len(t.Columns) == 0 && len(t.Rows) == 0
}
