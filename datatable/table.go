// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package datatable

import (
	"fmt"
	"sort"
)

// Table is an ordered, row-indexed table of typed values.
// Every row carries a stable integer index that survives filtering.
// A Table is never mutated once handed out by Where, Select or Limit.
type Table struct {
	columns  []Column
	position map[string]int
	indices  []int
	rows     [][]Value
	seen     map[int]struct{}
	metadata Metadata
}

// NewTable creates an empty table with the given columns.
func NewTable(columns []Column) (*Table, error) {
	t := &Table{
		columns:  make([]Column, 0, len(columns)),
		position: make(map[string]int, len(columns)),
		seen:     make(map[int]struct{}),
		metadata: Metadata{},
	}
	for _, c := range columns {
		if _, exists := t.position[c.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c.Name)
		}
		t.position[c.Name] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// NewFromRecords builds a table from records, assigning indices 0..n-1.
// Column order follows the order in which keys are first seen; keys of a
// single record are taken in sorted order since maps are unordered.
// A column holding both ints and floats becomes float; any other mix of
// types becomes string.
func NewFromRecords(records []Record) (*Table, error) {
	indices := make([]int, len(records))
	for i := range records {
		indices[i] = i
	}
	return NewFromIndexedRecords(indices, records)
}

// NewFromIndexedRecords is like NewFromRecords with explicit row indices.
func NewFromIndexedRecords(indices []int, records []Record) (*Table, error) {
	if len(indices) != len(records) {
		return nil, fmt.Errorf("%w: %d indices for %d records", ErrInvalidRow, len(indices), len(records))
	}

	// First pass settles every column type so equal numbers end up with
	// equal keys whichever record introduced the column.
	var columns []Column
	known := make(map[string]int)
	typed := make(map[string]bool)
	for _, rec := range records {
		for _, name := range sortedKeys(rec) {
			v := NewValue(rec[name])
			pos, exists := known[name]
			if !exists {
				known[name] = len(columns)
				columns = append(columns, Column{Name: name, Type: v.Type})
				typed[name] = !v.IsNull
				continue
			}
			if v.IsNull {
				continue
			}
			if !typed[name] {
				columns[pos].Type = v.Type
				typed[name] = true
				continue
			}
			columns[pos].Type = widen(columns[pos].Type, v.Type)
		}
	}

	t, err := NewTable(columns)
	if err != nil {
		return nil, err
	}
	for i, rec := range records {
		values := make([]Value, len(columns))
		for c, col := range columns {
			raw, ok := rec[col.Name]
			if !ok || raw == nil {
				values[c] = NewNullValue(col.Type)
				continue
			}
			values[c] = coerce(NewValue(raw), col.Type)
		}
		if err := t.Append(indices[i], values); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// widen returns the type holding values of both a and b: int and float
// give float, any other mix gives string.
func widen(a, b DataType) DataType {
	switch {
	case a == b:
		return a
	case (a == TypeInt || a == TypeFloat) && (b == TypeInt || b == TypeFloat):
		return TypeFloat
	default:
		return TypeString
	}
}

// coerce converts v to the column type settled by widen.
func coerce(v Value, target DataType) Value {
	if v.IsNull || v.Type == target {
		return v
	}
	switch target {
	case TypeFloat:
		if f, ok := v.Float(); ok {
			return NewValue(f)
		}
	case TypeString:
		return NewValue(v.Formatted)
	}
	return v
}

func sortedKeys(rec Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Append adds a row with the given index. The index must be unused.
func (t *Table) Append(index int, values []Value) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("%w: row has %d values, table has %d columns", ErrInvalidColumn, len(values), len(t.columns))
	}
	if _, dup := t.seen[index]; dup {
		return fmt.Errorf("%w: duplicate index %d", ErrInvalidRow, index)
	}
	row := make([]Value, len(values))
	copy(row, values)
	t.seen[index] = struct{}{}
	t.indices = append(t.indices, index)
	t.rows = append(t.rows, row)
	return nil
}

// RowCount implements DataSource.
func (t *Table) RowCount() int {
	return len(t.rows)
}

// ColumnCount implements DataSource.
func (t *Table) ColumnCount() int {
	return len(t.columns)
}

// ColumnName implements DataSource.
func (t *Table) ColumnName(col int) (string, error) {
	if col < 0 || col >= len(t.columns) {
		return "", ErrInvalidColumn
	}
	return t.columns[col].Name, nil
}

// ColumnType implements DataSource.
func (t *Table) ColumnType(col int) (DataType, error) {
	if col < 0 || col >= len(t.columns) {
		return TypeString, ErrInvalidColumn
	}
	return t.columns[col].Type, nil
}

// Cell implements DataSource.
func (t *Table) Cell(row, col int) (Value, error) {
	if row < 0 || row >= len(t.rows) {
		return Value{}, ErrInvalidRow
	}
	if col < 0 || col >= len(t.columns) {
		return Value{}, ErrInvalidColumn
	}
	return t.rows[row][col], nil
}

// Row implements DataSource. The returned slice is a copy.
func (t *Table) Row(row int) ([]Value, error) {
	if row < 0 || row >= len(t.rows) {
		return nil, ErrInvalidRow
	}
	out := make([]Value, len(t.rows[row]))
	copy(out, t.rows[row])
	return out, nil
}

// Metadata implements DataSource.
func (t *Table) Metadata() Metadata {
	return t.metadata
}

// Columns returns the column definitions.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, error) {
	pos, ok := t.position[name]
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return pos, nil
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.position[name]
	return ok
}

// Index returns the stable index of the row at the given position.
func (t *Table) Index(row int) (int, error) {
	if row < 0 || row >= len(t.indices) {
		return 0, ErrInvalidRow
	}
	return t.indices[row], nil
}

// Indices returns the stable row indices in table order.
func (t *Table) Indices() []int {
	out := make([]int, len(t.indices))
	copy(out, t.indices)
	return out
}

// Column returns all values of the named column in row order.
func (t *Table) Column(name string) ([]Value, error) {
	pos, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[pos]
	}
	return out, nil
}

// Distinct returns the distinct values of a column in first-seen order.
func (t *Table) Distinct(name string) ([]Value, error) {
	values, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(values))
	var out []Value
	for _, v := range values {
		if _, ok := seen[v.Key()]; ok {
			continue
		}
		seen[v.Key()] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// Where returns a new table holding the rows that pass the filter.
// Row indices are preserved.
func (t *Table) Where(f Filter) (*Table, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil filter", ErrInvalidFilter)
	}
	out := t.emptyLike(t.columns)
	names := t.ColumnNames()
	for i, row := range t.rows {
		passes, err := f.Evaluate(row, names)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", t.indices[i], err)
		}
		if passes {
			out.appendUnchecked(t.indices[i], row)
		}
	}
	return out, nil
}

// Select returns a new table restricted to the named columns.
func (t *Table) Select(names ...string) (*Table, error) {
	positions := make([]int, len(names))
	columns := make([]Column, len(names))
	for i, name := range names {
		pos, err := t.ColumnIndex(name)
		if err != nil {
			return nil, err
		}
		positions[i] = pos
		columns[i] = t.columns[pos]
	}
	out := t.emptyLike(columns)
	for i, row := range t.rows {
		projected := make([]Value, len(positions))
		for j, pos := range positions {
			projected[j] = row[pos]
		}
		out.appendUnchecked(t.indices[i], projected)
	}
	return out, nil
}

// Limit returns a new table holding at most n leading rows.
func (t *Table) Limit(n int) *Table {
	if n < 0 || n > len(t.rows) {
		n = len(t.rows)
	}
	out := t.emptyLike(t.columns)
	for i := 0; i < n; i++ {
		out.appendUnchecked(t.indices[i], t.rows[i])
	}
	return out
}

// Records returns the rows as records keyed by row index order.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.rows))
	for i, row := range t.rows {
		rec := make(Record, len(t.columns))
		for c, col := range t.columns {
			rec[col.Name] = row[c].Interface()
		}
		out[i] = rec
	}
	return out
}

func (t *Table) emptyLike(columns []Column) *Table {
	out := &Table{
		columns:  make([]Column, len(columns)),
		position: make(map[string]int, len(columns)),
		seen:     make(map[int]struct{}),
		metadata: Metadata{},
	}
	copy(out.columns, columns)
	for i, c := range columns {
		out.position[c.Name] = i
	}
	for k, v := range t.metadata {
		out.metadata[k] = v
	}
	return out
}

// appendUnchecked shares the row slice; rows are never mutated in place.
func (t *Table) appendUnchecked(index int, row []Value) {
	t.seen[index] = struct{}{}
	t.indices = append(t.indices, index)
	t.rows = append(t.rows, row)
}
