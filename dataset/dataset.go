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

// Package dataset catalogues measurement files through a metadata table,
// groups the rows, loads and stacks the numeric data of each group and
// reduces or transforms the stacked arrays.
package dataset

import (
	"fmt"

	"github.com/magpierre/measureset/datatable"
	"github.com/magpierre/measureset/internal/query"
	"github.com/magpierre/measureset/readers"
)

// DefaultPointerColumn is the column holding data file names unless
// configured otherwise.
const DefaultPointerColumn = "filename"

// Dataset is a metadata table plus what is needed to find and read the
// data file behind every row.
type Dataset struct {
	table     *datatable.Table
	locations Locations
	pointer   string
	reader    Reader
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithPointerColumn sets the column holding data file names.
func WithPointerColumn(name string) Option {
	return func(d *Dataset) {
		d.pointer = name
	}
}

// WithReader sets the reader used by GetData.
func WithReader(r Reader) Option {
	return func(d *Dataset) {
		d.reader = r
	}
}

// New builds a dataset over table. Every row index of table must have a
// directory in locations. A nil table is treated as empty.
func New(locations Locations, table *datatable.Table, opts ...Option) (*Dataset, error) {
	if table == nil {
		empty, err := datatable.NewTable(nil)
		if err != nil {
			return nil, err
		}
		table = empty
	}
	d := &Dataset{
		table:     table,
		locations: locations,
		pointer:   DefaultPointerColumn,
		reader:    readers.CSV(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.pointer == "" {
		return nil, configErrorf("pointer column name is empty")
	}
	if d.reader == nil {
		return nil, configErrorf("reader is nil")
	}
	if err := locations.validate(table.Indices()); err != nil {
		return nil, err
	}
	return d, nil
}

// Table returns the metadata table.
func (d *Dataset) Table() *datatable.Table {
	return d.table
}

// Locations returns the path resolution map.
func (d *Dataset) Locations() Locations {
	return d.locations
}

// PointerColumn returns the name of the column holding data file names.
func (d *Dataset) PointerColumn() string {
	return d.pointer
}

// Reader returns the configured reader.
func (d *Dataset) Reader() Reader {
	return d.reader
}

// Len returns the number of metadata rows.
func (d *Dataset) Len() int {
	return d.table.RowCount()
}

// IsEmpty reports whether the dataset has no rows.
func (d *Dataset) IsEmpty() bool {
	return d.table.RowCount() == 0
}

// Path returns the resolved data file path of the row with the given
// index.
func (d *Dataset) Path(index int) (string, error) {
	pos, err := d.table.ColumnIndex(d.pointer)
	if err != nil {
		return "", configErrorf("pointer column %q not in table", d.pointer)
	}
	for row, idx := range d.table.Indices() {
		if idx != index {
			continue
		}
		v, err := d.table.Cell(row, pos)
		if err != nil {
			return "", err
		}
		if v.IsNull {
			return "", configErrorf("row %d has no %s", index, d.pointer)
		}
		return d.locations.Resolve(index, v.Formatted)
	}
	return "", fmt.Errorf("%w: index %d", datatable.ErrInvalidRow, index)
}

// WithTable returns a dataset sharing this one's sidecar over a new
// table. Indices of table must be covered by the current locations.
func (d *Dataset) WithTable(table *datatable.Table) (*Dataset, error) {
	return New(d.locations.Restrict(table.Indices()), table, WithPointerColumn(d.pointer), WithReader(d.reader))
}

// Filter returns a dataset holding the rows that pass f. Row indices and
// their directories are preserved.
func (d *Dataset) Filter(f datatable.Filter) (*Dataset, error) {
	table, err := d.table.Where(f)
	if err != nil {
		return nil, err
	}
	return d.WithTable(table)
}

// Query filters with a search expression such as
// "preset_voltage_v >= 1 AND sample = 'A'".
func (d *Dataset) Query(expr string) (*Dataset, error) {
	f, err := query.NewParser(d.table.ColumnNames()).Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	return d.Filter(f)
}

// Summarize returns the distinct values of every column except the
// pointer column.
func (d *Dataset) Summarize() map[string]*ValueSet {
	out := make(map[string]*ValueSet)
	for _, name := range d.table.ColumnNames() {
		if name == d.pointer {
			continue
		}
		values, _ := d.table.Column(name)
		out[name] = NewValueSet(values...)
	}
	return out
}
