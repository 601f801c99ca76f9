package tabular

import (
	"sort"

	"patro/internal/domain"
)

// Reconstruct rebuilds the nested display/export form from the flat cell
// set of one table block. Columns are grouped by shared path prefixes,
// siblings ordered by their last path component ascending, and labels
// recovered from the header cells flattening emitted (a synthetic label is
// used only for columns that never had one). Rows come back ordered by
// row_number ascending with cells in column-path order. Cell placement is
// exact; an empty cell set yields an empty table.
func Reconstruct(cells []domain.TableCell) Table {
	labels := make(map[string]string)
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

	dataByRow := make(map[int][]domain.TableCell)
	var rowNumbers []int
	for _, c := range cells {
		if len(c.ColumnPath) == 0 {
			continue
		}
		if c.IsHeader || c.RowNumber < 0 {
			labels[c.ColumnPath.Key()] = c.Text
			addPath(c.ColumnPath)
			continue
		}
		addPath(c.ColumnPath)
		if _, ok := dataByRow[c.RowNumber]; !ok {
			rowNumbers = append(rowNumbers, c.RowNumber)
		}
		dataByRow[c.RowNumber] = append(dataByRow[c.RowNumber], c)
	}

	columns, remap := buildTree(paths, labels)

	t := Table{Columns: columns}

	sort.Ints(rowNumbers)
	for _, rowNum := range rowNumbers {
		rowCells := dataByRow[rowNum]
		sort.SliceStable(rowCells, func(i, j int) bool {
			return rowCells[i].ColumnPath.Less(rowCells[j].ColumnPath)
		})
		var r Row
		for _, c := range rowCells {
			canonical, ok := remap[c.ColumnPath.Key()]
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

// buildTree turns the observed set of column paths into a dense column tree
// and returns the mapping from original path keys to canonical dense paths.
// Sibling order follows the last path component ascending; after
// canonicalization sibling indices are 0-based and gap-free, matching what
// Flatten assigns on its pre-order walk.
func buildTree(paths []domain.ColumnPath, labels map[string]string) ([]Column, map[string]domain.ColumnPath) {
	children := make(map[string][]int)
	childSeen := make(map[string]bool)
	for _, p := range paths {
		parentKey := p[:len(p)-1].Key()
		k := p.Key()
		if childSeen[k] {
			continue
		}
		childSeen[k] = true
		children[parentKey] = append(children[parentKey], p[len(p)-1])
	}
	for _, idxs := range children {
		sort.Ints(idxs)
	}

	remap := make(map[string]domain.ColumnPath, len(paths))

	var build func(origPrefix, densePrefix domain.ColumnPath) []Column
	build = func(origPrefix, densePrefix domain.ColumnPath) []Column {
		idxs := children[origPrefix.Key()]
		cols := make([]Column, 0, len(idxs))
		for pos, idx := range idxs {
			orig := append(append(domain.ColumnPath{}, origPrefix...), idx)
			dense := append(append(domain.ColumnPath{}, densePrefix...), pos)
			remap[orig.Key()] = dense

			label, ok := labels[orig.Key()]
			if !ok {
				label = "Column " + dense.Key()
			}
			cols = append(cols, Column{
				Label:    label,
				Children: build(orig, dense),
			})
		}
		if len(cols) == 0 {
			return nil
		}
		return cols
	}

	return build(nil, nil), remap
}
