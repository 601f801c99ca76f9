package tabular

import (
	"patro/internal/domain"
	"patro/internal/port"
)

// headerRowNumber marks header cells in the flat form. Data rows are
// 0-based; headers sit above them at -1.
const headerRowNumber = -1

// Flatten converts a table tree into the flat cell model. Column paths are
// assigned by pre-order traversal (dense 0-based sibling indices), so the
// output is canonical regardless of how the input paths were numbered.
// Every column node, interior and leaf alike, yields one header cell at row -1
// carrying its label; every (row, leaf column) pair yields exactly one data
// cell. Cells the source did not provide become empty 1x1 cells: the
// flattener records spans but never invents covered text. Duplicate source
// cells for one (row, leaf column) resolve last-wins.
func Flatten(t Table) []domain.TableCell {
	var cells []domain.TableCell
	var leaves []domain.ColumnPath

	var walk func(cols []Column, prefix domain.ColumnPath)
	walk = func(cols []Column, prefix domain.ColumnPath) {
		for i, col := range cols {
			path := append(append(domain.ColumnPath{}, prefix...), i)
			cells = append(cells, domain.TableCell{
				RowNumber:  headerRowNumber,
				ColumnPath: path,
				Text:       col.Label,
				RowSpan:    1,
				ColSpan:    1,
				IsHeader:   true,
			})
			if len(col.Children) == 0 {
				leaves = append(leaves, path)
				continue
			}
			walk(col.Children, path)
		}
	}
	walk(t.Columns, nil)

	for rowNum, row := range t.Rows {
		// Last-wins: later duplicates for one leaf overwrite earlier ones.
		byKey := make(map[string]Cell, len(row.Cells))
		for _, c := range row.Cells {
			if len(c.Path) == 0 {
				continue
			}
			byKey[c.Path.Key()] = c
		}
		for _, leaf := range leaves {
			out := domain.TableCell{
				RowNumber:  rowNum,
				ColumnPath: leaf,
				RowSpan:    1,
				ColSpan:    1,
			}
			if c, ok := byKey[leaf.Key()]; ok {
				out.Text = c.Text
				out.RowSpan = clampSpan(c.RowSpan)
				out.ColSpan = clampSpan(c.ColSpan)
			}
			cells = append(cells, out)
		}
	}

	return cells
}

// FromExtraction builds the tree form from the path-annotated headers and
// rows the extraction API reports. Header nodes become the column tree
// (interior nodes inferred from path prefixes); rows keep their reported
// order by row_index. Entries with empty paths are dropped; the root never
// holds data.
func FromExtraction(td port.TableData) Table {
	labels := make(map[string]string, len(td.Headers))
	var paths []domain.ColumnPath
	seen := make(map[string]bool)

	addPath := func(p domain.ColumnPath) {
		for i := 1; i <= len(p); i++ {
			prefix := p[:i]
			if k := prefix.Key(); !seen[k] {
				seen[k] = true
				paths = append(paths, append(domain.ColumnPath{}, prefix...))
			}
		}
	}

	for _, h := range td.Headers {
		p := domain.ColumnPath(h.ColumnPath)
		if len(p) == 0 {
			continue
		}
		labels[p.Key()] = h.Text
		addPath(p)
	}
	for _, row := range td.Rows {
		for _, c := range row.Cells {
			p := domain.ColumnPath(c.ColumnPath)
			if len(p) == 0 {
				continue
			}
			addPath(p)
		}
	}

	columns, remap := buildTree(paths, labels)
	t := Table{Columns: columns}

	rows := make([]port.TableRow, len(td.Rows))
	copy(rows, td.Rows)
	sortRowsByIndex(rows)

	for _, row := range rows {
		var r Row
		for _, c := range row.Cells {
			canonical, ok := remap[domain.ColumnPath(c.ColumnPath).Key()]
			if !ok {
				continue
			}
			r.Cells = append(r.Cells, Cell{
				Path:    canonical,
				Text:    c.Text,
				RowSpan: clampSpan(c.RowSpan),
				ColSpan: clampSpan(c.ColSpan),
			})
		}
		t.Rows = append(t.Rows, r)
	}

	return t
}

func sortRowsByIndex(rows []port.TableRow) {
	// Insertion sort keeps the reported order stable for equal indices.
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j-1].RowIndex > rows[j].RowIndex; j-- {
			rows[j-1], rows[j] = rows[j], rows[j-1]
		}
	}
}

func clampSpan(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
