package dataprocessing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "covidprep/internal/errors"
)

// Row is one record, positional against the owning table's columns
type Row []Value

// Table is an ordered, in-memory sequence of rows sharing one column list.
// Every operation keeps row order unless it is an explicit sort.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// NewTable creates an empty table with the given columns.
// Duplicate names panic since they would make lookups ambiguous.
func NewTable(columns ...string) *Table {
	t := &Table{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if _, dup := t.index[c]; dup {
			panic(fmt.Sprintf("dataprocessing: duplicate column %q", c))
		}
		t.index[c] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t
}

// Columns returns a copy of the column names in order
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Has reports whether the table has column col
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Require returns a MissingColumn error naming every absent column
func (t *Table) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return apperrors.MissingColumns(missing...)
	}
	return nil
}

// AppendRow adds a row. The number of values must match the column count.
func (t *Table) AppendRow(values ...Value) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.columns))
	}
	t.rows = append(t.rows, append(Row(nil), values...))
	return nil
}

// Get returns the cell at row r, column col. Unknown columns read as null.
func (t *Table) Get(r int, col string) Value {
	i, ok := t.index[col]
	if !ok {
		return NullValue()
	}
	return t.rows[r][i]
}

// Set replaces the cell at row r, column col
func (t *Table) Set(r int, col string, v Value) error {
	i, ok := t.index[col]
	if !ok {
		return apperrors.MissingColumns(col)
	}
	t.rows[r][i] = v
	return nil
}

// Column returns a copy of every cell in col
func (t *Table) Column(col string) ([]Value, error) {
	i, ok := t.index[col]
	if !ok {
		return nil, apperrors.MissingColumns(col)
	}
	out := make([]Value, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out, nil
}

// SetColumn replaces col with values, appending it when absent
func (t *Table) SetColumn(col string, values []Value) error {
	if len(values) != len(t.rows) {
		return fmt.Errorf("column %q has %d values, table has %d rows", col, len(values), len(t.rows))
	}
	i, ok := t.index[col]
	if !ok {
		i = t.addColumn(col)
	}
	for r := range t.rows {
		t.rows[r][i] = values[r]
	}
	return nil
}

// Derive computes col for every row from fn, appending it when absent
func (t *Table) Derive(col string, fn func(r RowView) Value) {
	values := make([]Value, len(t.rows))
	for r := range t.rows {
		values[r] = fn(RowView{table: t, index: r})
	}
	// lengths always match
	_ = t.SetColumn(col, values)
}

func (t *Table) addColumn(col string) int {
	i := len(t.columns)
	t.columns = append(t.columns, col)
	t.index[col] = i
	for r := range t.rows {
		t.rows[r] = append(t.rows[r], NullValue())
	}
	return i
}

// Drop removes the named columns. Columns that are not present are ignored.
func (t *Table) Drop(cols ...string) {
	remove := make(map[int]bool, len(cols))
	for _, c := range cols {
		if i, ok := t.index[c]; ok {
			remove[i] = true
		}
	}
	if len(remove) == 0 {
		return
	}

	keep := make([]int, 0, len(t.columns)-len(remove))
	for i := range t.columns {
		if !remove[i] {
			keep = append(keep, i)
		}
	}

	columns := make([]string, len(keep))
	index := make(map[string]int, len(keep))
	for j, i := range keep {
		columns[j] = t.columns[i]
		index[t.columns[i]] = j
	}
	for r, row := range t.rows {
		next := make(Row, len(keep))
		for j, i := range keep {
			next[j] = row[i]
		}
		t.rows[r] = next
	}
	t.columns = columns
	t.index = index
}

// Rename changes a column name in place
func (t *Table) Rename(from, to string) error {
	i, ok := t.index[from]
	if !ok {
		return apperrors.MissingColumns(from)
	}
	if _, clash := t.index[to]; clash && from != to {
		return fmt.Errorf("column %q already exists", to)
	}
	delete(t.index, from)
	t.columns[i] = to
	t.index[to] = i
	return nil
}

// Filter returns a new table with the rows for which keep is true, in order
func (t *Table) Filter(keep func(r RowView) bool) *Table {
	out := t.emptyLike()
	for r, row := range t.rows {
		if keep(RowView{table: t, index: r}) {
			out.rows = append(out.rows, append(Row(nil), row...))
		}
	}
	return out
}

// SortBy returns a new table stably sorted ascending on cols, nulls last
func (t *Table) SortBy(cols ...string) (*Table, error) {
	if err := t.Require(cols...); err != nil {
		return nil, err
	}
	keys := make([]int, len(cols))
	for k, c := range cols {
		keys[k] = t.index[c]
	}

	out := t.Clone()
	sort.SliceStable(out.rows, func(a, b int) bool {
		for _, k := range keys {
			if c := Compare(out.rows[a][k], out.rows[b][k]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return out, nil
}

// Group is one distinct key and the row positions carrying it, in table order
type Group struct {
	Key  []Value
	Rows []int
}

// HasNullKey reports whether any key component is null
func (g Group) HasNullKey() bool {
	for _, v := range g.Key {
		if v.IsNull() {
			return true
		}
	}
	return false
}

// Groups partitions the rows by the values of cols. Groups appear in order of
// first appearance and rows within a group keep table order.
func (t *Table) Groups(cols ...string) ([]Group, error) {
	if err := t.Require(cols...); err != nil {
		return nil, err
	}
	keys := make([]int, len(cols))
	for k, c := range cols {
		keys[k] = t.index[c]
	}

	var groups []Group
	byKey := make(map[string]int)
	var b strings.Builder
	for r, row := range t.rows {
		b.Reset()
		for _, k := range keys {
			v := row[k]
			b.WriteByte(byte(v.Kind()))
			b.WriteString(v.String())
			b.WriteByte(0x1f)
		}
		key := b.String()
		g, ok := byKey[key]
		if !ok {
			g = len(groups)
			byKey[key] = g
			kv := make([]Value, len(keys))
			for j, k := range keys {
				kv[j] = row[k]
			}
			groups = append(groups, Group{Key: kv})
		}
		groups[g].Rows = append(groups[g].Rows, r)
	}
	return groups, nil
}

// Clone returns a deep copy
func (t *Table) Clone() *Table {
	out := t.emptyLike()
	out.rows = make([]Row, len(t.rows))
	for r, row := range t.rows {
		out.rows[r] = append(Row(nil), row...)
	}
	return out
}

// Head returns a copy of the first n rows
func (t *Table) Head(n int) *Table {
	if n > len(t.rows) {
		n = len(t.rows)
	}
	if n < 0 {
		n = 0
	}
	out := t.emptyLike()
	for _, row := range t.rows[:n] {
		out.rows = append(out.rows, append(Row(nil), row...))
	}
	return out
}

// Records returns the rows as string slices in column order, the way they are written
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.rows))
	for r, row := range t.rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = v.String()
		}
		out[r] = rec
	}
	return out
}

func (t *Table) emptyLike() *Table {
	return NewTable(t.columns...)
}

// RowView is a read-only handle on one row of a table
type RowView struct {
	table *Table
	index int
}

// Index returns the row position
func (v RowView) Index() int { return v.index }

// Get returns the cell in col, null when the column is unknown
func (v RowView) Get(col string) Value {
	return v.table.Get(v.index, col)
}

// Float returns the numeric cell in col
func (v RowView) Float(col string) (float64, bool) {
	return v.Get(col).Float()
}

// Date returns the date cell in col
func (v RowView) Date(col string) (time.Time, bool) {
	return v.Get(col).Date()
}

// Str returns the string cell in col
func (v RowView) Str(col string) (string, bool) {
	return v.Get(col).Str()
}
