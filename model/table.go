package model

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/blnkfinance/recon/reconerr"
	"github.com/shopspring/decimal"
)

// ColumnType is the declared type of every non-null value in a column.
type ColumnType int

const (
	StringColumn ColumnType = iota
	NumberColumn
	TimeColumn
)

func (c ColumnType) String() string {
	switch c {
	case NumberColumn:
		return "number"
	case TimeColumn:
		return "time"
	default:
		return "string"
	}
}

// Accepts reports whether a value of kind k may be stored in a column of type c.
func (c ColumnType) Accepts(k Kind) bool {
	switch k {
	case KindNull:
		return true
	case KindString:
		return c == StringColumn
	case KindNumber:
		return c == NumberColumn
	case KindTime:
		return c == TimeColumn
	}
	return false
}

func (c ColumnType) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Table is an in-memory record table with named typed columns. Rows keep
// insertion order. Derived tables share no mutable state with their source.
type Table struct {
	columns []Column
	index   map[string]int
	rows    [][]Value
}

// NewTable creates an empty table with the given columns in order.
func NewTable(columns ...Column) (*Table, error) {
	t := &Table{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if c.Name == "" {
			return nil, reconerr.InvalidColumn("", "column name is empty")
		}
		if _, ok := t.index[c.Name]; ok {
			return nil, reconerr.InvalidColumn(c.Name, "declared more than once")
		}
		t.index[c.Name] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// AddRow appends a row. values must line up with the columns and each
// non-null value must match its column type.
func (t *Table) AddRow(values ...Value) error {
	if len(values) != len(t.columns) {
		return reconerr.InvalidArgument("row", "expected %d values, got %d", len(t.columns), len(values))
	}
	for i, v := range values {
		if !t.columns[i].Type.Accepts(v.Kind()) {
			return reconerr.TypeMismatch(t.columns[i].Name, "expected %s, got %s", t.columns[i].Type, v.Kind())
		}
	}
	row := make([]Value, len(values))
	copy(row, values)
	t.rows = append(t.rows, row)
	return nil
}

// AddRecord appends a row from a column-name map. Columns absent from the map are null.
func (t *Table) AddRecord(record map[string]Value) error {
	values := make([]Value, len(t.columns))
	for name, v := range record {
		i, ok := t.index[name]
		if !ok {
			return reconerr.InvalidColumn(name, "not declared in table")
		}
		values[i] = v
	}
	return t.AddRow(values...)
}

func (t *Table) Len() int { return len(t.rows) }

// Columns returns a copy of the column list.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	i, ok := t.index[name]
	if !ok {
		return -1
	}
	return i
}

// Value returns the cell at (row, name). A column the table does not have reads as null.
func (t *Table) Value(row int, name string) Value {
	i, ok := t.index[name]
	if !ok {
		return Null()
	}
	return t.rows[row][i]
}

// At returns the cell at (row, col) by position.
func (t *Table) At(row, col int) Value {
	return t.rows[row][col]
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []Value {
	out := make([]Value, len(t.rows[i]))
	copy(out, t.rows[i])
	return out
}

// RowAt returns a read-only view of row i.
func (t *Table) RowAt(i int) Row {
	return Row{table: t, index: i}
}

// RequireColumns checks that every column in specs exists with the given type.
func (t *Table) RequireColumns(specs ...Column) error {
	for _, spec := range specs {
		c, ok := t.Column(spec.Name)
		if !ok {
			return reconerr.InvalidColumn(spec.Name, "required column is missing")
		}
		if c.Type != spec.Type {
			return reconerr.TypeMismatch(spec.Name, "expected %s column, got %s", spec.Type, c.Type)
		}
	}
	return nil
}

// Empty returns a table with the same columns and no rows.
func (t *Table) Empty() *Table {
	return &Table{columns: t.Columns(), index: copyIndex(t.index)}
}

// Subset returns a new table holding the given rows in the given order.
func (t *Table) Subset(indices []int) *Table {
	out := t.Empty()
	out.rows = make([][]Value, 0, len(indices))
	for _, i := range indices {
		out.rows = append(out.rows, t.Row(i))
	}
	return out
}

// Filter returns the rows for which keep returns true, in order.
func (t *Table) Filter(keep func(r Row) bool) *Table {
	var indices []int
	for i := range t.rows {
		if keep(t.RowAt(i)) {
			indices = append(indices, i)
		}
	}
	return t.Subset(indices)
}

// Where is Filter on a single column.
func (t *Table) Where(name string, keep func(v Value) bool) *Table {
	return t.Filter(func(r Row) bool { return keep(r.Get(name)) })
}

// SortedBy returns a stably sorted copy.
func (t *Table) SortedBy(less func(a, b Row) bool) *Table {
	indices := make([]int, len(t.rows))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(i, j int) bool {
		return less(t.RowAt(indices[i]), t.RowAt(indices[j]))
	})
	return t.Subset(indices)
}

// WithColumn returns a copy with an extra column computed per row.
func (t *Table) WithColumn(col Column, compute func(r Row) Value) (*Table, error) {
	if t.HasColumn(col.Name) {
		return nil, reconerr.InvalidColumn(col.Name, "already exists")
	}
	out, err := NewTable(append(t.Columns(), col)...)
	if err != nil {
		return nil, err
	}
	for i := range t.rows {
		v := compute(t.RowAt(i))
		if err := out.AddRow(append(t.Row(i), v)...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Sum adds up the finite numeric values of a column, skipping nulls. A missing or
// non-numeric column sums to zero.
func (t *Table) Sum(name string) decimal.Decimal {
	total := decimal.Zero
	i, ok := t.index[name]
	if !ok {
		return total
	}
	for _, row := range t.rows {
		if f, ok := row[i].AsFloat(); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			total = total.Add(decimal.NewFromFloat(f))
		}
	}
	return total
}

// Floats returns the non-null numeric values of a column with their row indices.
func (t *Table) Floats(name string) (values []float64, rows []int) {
	i, ok := t.index[name]
	if !ok {
		return nil, nil
	}
	for r, row := range t.rows {
		if f, ok := row[i].AsFloat(); ok {
			values = append(values, f)
			rows = append(rows, r)
		}
	}
	return values, rows
}

// ValueSet returns the set of distinct values in a column.
func (t *Table) ValueSet(name string) ValueSet {
	set := ValueSet{}
	i, ok := t.index[name]
	if !ok {
		return set
	}
	for _, row := range t.rows {
		set[TupleKey(row[i])] = struct{}{}
	}
	return set
}

// Group is one distinct key tuple and the rows that carry it.
type Group struct {
	Key  []Value
	Rows []int
}

// GroupBy partitions rows by the values of the named columns. Groups are
// returned in order of first appearance.
func (t *Table) GroupBy(names ...string) []Group {
	idx := make([]int, len(names))
	for k, name := range names {
		idx[k] = t.ColumnIndex(name)
	}
	var groups []Group
	pos := map[string]int{}
	for r, row := range t.rows {
		key := make([]Value, len(idx))
		for k, i := range idx {
			if i >= 0 {
				key[k] = row[i]
			}
		}
		tk := TupleKey(key...)
		g, ok := pos[tk]
		if !ok {
			g = len(groups)
			pos[tk] = g
			groups = append(groups, Group{Key: key})
		}
		groups[g].Rows = append(groups[g].Rows, r)
	}
	return groups
}

// MarshalJSON renders the table as its column list plus row arrays.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := t.rows
	if rows == nil {
		rows = [][]Value{}
	}
	return json.Marshal(struct {
		Columns []Column  `json:"columns"`
		Rows    [][]Value `json:"rows"`
	}{Columns: t.columns, Rows: rows})
}

// Row is a read-only view of one table row.
type Row struct {
	table *Table
	index int
}

func (r Row) Index() int { return r.index }

func (r Row) Get(name string) Value { return r.table.Value(r.index, name) }

// Float returns the number in name, or 0 and false when it is null or not a number.
func (r Row) Float(name string) (float64, bool) { return r.Get(name).AsFloat() }

func (r Row) Text(name string) (string, bool) { return r.Get(name).AsString() }

func (r Row) Time(name string) (time.Time, bool) { return r.Get(name).AsTime() }

// ValueSet is a set of values keyed by TupleKey.
type ValueSet map[string]struct{}

func (s ValueSet) Contains(v Value) bool {
	_, ok := s[TupleKey(v)]
	return ok
}

func copyIndex(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
