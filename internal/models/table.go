package models

import (
	"sort"
)

// Missing marks a cell that has no usable value. Derived fields that could not
// be parsed, and fields null-padded by a left join, carry this marker. Filters
// and aggregates treat Missing as "excluded", never as a match.
const Missing = ""

// Table is an immutable, uniformly-schemaed collection of rows, analogous to a
// relational table. Cells are strings as parsed from the source CSV; numeric
// interpretation happens at the aggregation site. Operations never mutate a
// Table in place; every join, derivation, or filter produces a new one.
type Table struct {
	name  string
	cols  []string
	index map[string]int
	rows  [][]string
}

// NewTable creates a table with the given name, column list, and rows.
// Rows shorter than the column list are padded with Missing; longer rows are
// truncated. Duplicate column names keep the first occurrence.
func NewTable(name string, cols []string, rows [][]string) *Table {
	columns := make([]string, len(cols))
	copy(columns, cols)

	index := make(map[string]int, len(columns))
	for i, col := range columns {
		if _, exists := index[col]; !exists {
			index[col] = i
		}
	}

	normalized := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) == len(columns) {
			normalized[i] = row
			continue
		}
		fixed := make([]string, len(columns))
		copy(fixed, row)
		normalized[i] = fixed
	}

	return &Table{
		name:  name,
		cols:  columns,
		index: index,
		rows:  normalized,
	}
}

// Name returns the table's dataset name.
func (t *Table) Name() string {
	return t.name
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.cols))
	copy(cols, t.cols)
	return cols
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(col string) bool {
	_, ok := t.index[col]
	return ok
}

// ColumnIndex returns the position of a column, or false if absent.
func (t *Table) ColumnIndex(col string) (int, bool) {
	i, ok := t.index[col]
	return i, ok
}

// Row returns row i. The returned slice is shared with the table and must not
// be modified.
func (t *Table) Row(i int) []string {
	return t.rows[i]
}

// Value returns the cell at row i in the named column, or Missing if the
// column does not exist.
func (t *Table) Value(i int, col string) string {
	idx, ok := t.index[col]
	if !ok {
		return Missing
	}
	return t.rows[i][idx]
}

// Values returns every cell of a column in row order.
// Returns a SchemaError if the column is absent.
func (t *Table) Values(col string) ([]string, error) {
	idx, ok := t.index[col]
	if !ok {
		return nil, &SchemaError{Table: t.name, Columns: []string{col}}
	}
	values := make([]string, len(t.rows))
	for i, row := range t.rows {
		values[i] = row[idx]
	}
	return values, nil
}

// DistinctValues returns the sorted set of non-missing values in a column.
// It backs the option domains the presentation layer offers for each filter
// dimension. Returns a SchemaError if the column is absent.
func (t *Table) DistinctValues(col string) ([]string, error) {
	idx, ok := t.index[col]
	if !ok {
		return nil, &SchemaError{Table: t.name, Columns: []string{col}}
	}

	seen := make(map[string]bool)
	for _, row := range t.rows {
		if row[idx] != Missing {
			seen[row[idx]] = true
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

// Filter returns a new table containing the rows for which keep returns true.
// The schema is unchanged.
func (t *Table) Filter(name string, keep func(row []string) bool) *Table {
	var rows [][]string
	for _, row := range t.rows {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	return &Table{
		name:  name,
		cols:  t.cols,
		index: t.index,
		rows:  rows,
	}
}

// Head returns a new table with at most n rows, keeping source order. Used to
// cap large result sets (e.g. geolocation points) for interactive rendering.
func (t *Table) Head(n int) *Table {
	if n < 0 || n >= len(t.rows) {
		return t
	}
	return &Table{
		name:  t.name,
		cols:  t.cols,
		index: t.index,
		rows:  t.rows[:n],
	}
}

// RequireColumns verifies every named column is present, returning a single
// SchemaError listing all that are absent.
func (t *Table) RequireColumns(cols ...string) error {
	var missing []string
	for _, col := range cols {
		if _, ok := t.index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Table: t.name, Columns: missing}
	}
	return nil
}
