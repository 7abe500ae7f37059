// Package etl implements the file-to-store transform steps: loading CSV parts,
// coercing numeric columns and unpivoting wide topic columns.
package etl

// Table is an in-memory row set. Cells are nil (NULL), string (untyped source
// value), float64 or int64 (after normalization).
type Table struct {
	Columns []string
	Rows    [][]any

	index map[string]int
}

// NewTable creates an empty table with the given columns.
func NewTable(columns []string) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of a column, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	if t.index == nil {
		t.reindex()
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// AppendRow adds a row. Short rows are padded with NULLs.
func (t *Table) AppendRow(row []any) {
	if len(row) < len(t.Columns) {
		padded := make([]any, len(t.Columns))
		copy(padded, row)
		row = padded
	}
	t.Rows = append(t.Rows, row)
}

// Value returns the cell at (row, column), or nil if the column is absent.
func (t *Table) Value(row int, column string) any {
	i := t.ColumnIndex(column)
	if i < 0 || i >= len(t.Rows[row]) {
		return nil
	}
	return t.Rows[row][i]
}

// Project returns the rows restricted to columns, in that order.
// Columns missing from the table yield NULL cells.
func (t *Table) Project(columns []string) [][]any {
	idx := make([]int, len(columns))
	for j, c := range columns {
		idx[j] = t.ColumnIndex(c)
	}

	out := make([][]any, len(t.Rows))
	for r, row := range t.Rows {
		projected := make([]any, len(columns))
		for j, i := range idx {
			if i >= 0 && i < len(row) {
				projected[j] = row[i]
			}
		}
		out[r] = projected
	}
	return out
}

// Concat appends the rows of parts in order. Columns are unioned in
// first-seen order; cells for columns a part lacks are NULL.
func Concat(parts ...*Table) *Table {
	var columns []string
	seen := make(map[string]struct{})
	for _, p := range parts {
		for _, c := range p.Columns {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			columns = append(columns, c)
		}
	}

	out := NewTable(columns)
	for _, p := range parts {
		mapping := make([]int, len(p.Columns))
		for i, c := range p.Columns {
			mapping[i] = out.ColumnIndex(c)
		}
		for _, row := range p.Rows {
			merged := make([]any, len(columns))
			for i, v := range row {
				if i < len(mapping) {
					merged[mapping[i]] = v
				}
			}
			out.Rows = append(out.Rows, merged)
		}
	}
	return out
}
