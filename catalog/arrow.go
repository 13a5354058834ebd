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

package catalog

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/magpierre/measureset/datatable"
)

// IndexColumn holds the row indices when a table is stored in Arrow form.
const IndexColumn = "__index__"

var timestampType = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}

// ToArrow converts a metadata table to an Arrow table. Row indices are
// kept in IndexColumn when withIndex is set. The caller releases the
// result.
func ToArrow(t *datatable.Table, withIndex bool) arrow.Table {
	pool := memory.NewGoAllocator()
	columns := t.Columns()

	var fields []arrow.Field
	var arrays []arrow.Array
	if withIndex {
		b := array.NewInt64Builder(pool)
		for _, idx := range t.Indices() {
			b.Append(int64(idx))
		}
		fields = append(fields, arrow.Field{Name: IndexColumn, Type: arrow.PrimitiveTypes.Int64})
		arrays = append(arrays, b.NewArray())
		b.Release()
	}

	for _, col := range columns {
		values, _ := t.Column(col.Name)
		dt := arrowType(storageType(values, col.Type))
		builder := array.NewBuilder(pool, dt)
		for _, v := range values {
			appendValue(builder, v)
		}
		fields = append(fields, arrow.Field{Name: col.Name, Type: dt, Nullable: true})
		arrays = append(arrays, builder.NewArray())
		builder.Release()
	}

	schema := arrow.NewSchema(fields, nil)
	cols := make([]arrow.Column, len(arrays))
	for i, arr := range arrays {
		chunked := arrow.NewChunked(arr.DataType(), []arrow.Array{arr})
		cols[i] = *arrow.NewColumn(fields[i], chunked)
		chunked.Release()
		arr.Release()
	}
	return array.NewTable(schema, cols, int64(t.RowCount()))
}

// storageType widens the declared column type so every value fits:
// mixed ints and floats become float, any other mix becomes string.
func storageType(values []datatable.Value, declared datatable.DataType) datatable.DataType {
	dt := declared
	for _, v := range values {
		if v.IsNull || v.Type == dt {
			continue
		}
		numeric := (dt == datatable.TypeInt || dt == datatable.TypeFloat) &&
			(v.Type == datatable.TypeInt || v.Type == datatable.TypeFloat)
		if numeric {
			dt = datatable.TypeFloat
			continue
		}
		return datatable.TypeString
	}
	return dt
}

func arrowType(dt datatable.DataType) arrow.DataType {
	switch dt {
	case datatable.TypeInt:
		return arrow.PrimitiveTypes.Int64
	case datatable.TypeFloat:
		return arrow.PrimitiveTypes.Float64
	case datatable.TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case datatable.TypeTimestamp:
		return timestampType
	default:
		return arrow.BinaryTypes.String
	}
}

// appendValue appends a metadata value to a builder created by arrowType.
func appendValue(builder array.Builder, v datatable.Value) {
	if v.IsNull {
		builder.AppendNull()
		return
	}
	switch b := builder.(type) {
	case *array.Int64Builder:
		if i, ok := v.Raw.(int64); ok {
			b.Append(i)
			return
		}
	case *array.Float64Builder:
		if f, ok := v.Float(); ok {
			b.Append(f)
			return
		}
	case *array.BooleanBuilder:
		if x, ok := v.Raw.(bool); ok {
			b.Append(x)
			return
		}
	case *array.TimestampBuilder:
		if ts, ok := v.Raw.(time.Time); ok {
			b.Append(arrow.Timestamp(ts.UnixNano()))
			return
		}
	case *array.StringBuilder:
		b.Append(v.Formatted)
		return
	}
	builder.AppendNull()
}

// FromArrow converts an Arrow table to a metadata table. When the table
// has an IndexColumn it supplies the row indices, otherwise rows are
// numbered from zero.
func FromArrow(tbl arrow.Table) (*datatable.Table, error) {
	schema := tbl.Schema()
	indexPos := -1
	var columns []datatable.Column
	var positions []int
	for i, field := range schema.Fields() {
		if field.Name == IndexColumn {
			indexPos = i
			continue
		}
		columns = append(columns, datatable.Column{Name: field.Name, Type: tableType(field.Type)})
		positions = append(positions, i)
	}

	out, err := datatable.NewTable(columns)
	if err != nil {
		return nil, err
	}

	tr := array.NewTableReader(tbl, tbl.NumRows())
	defer tr.Release()

	next := 0
	for tr.Next() {
		rec := tr.Record()
		for row := 0; row < int(rec.NumRows()); row++ {
			index := next
			if indexPos >= 0 {
				idx, ok := cellValue(rec.Column(indexPos), row).(int64)
				if !ok {
					return nil, fmt.Errorf("%w: %s must be a non-null int64", datatable.ErrInvalidRow, IndexColumn)
				}
				index = int(idx)
			}
			next++

			values := make([]datatable.Value, len(positions))
			for c, pos := range positions {
				raw := cellValue(rec.Column(pos), row)
				if raw == nil {
					values[c] = datatable.NewNullValue(columns[c].Type)
					continue
				}
				values[c] = datatable.NewValue(raw)
			}
			if err := out.Append(index, values); err != nil {
				return nil, err
			}
		}
	}
	if err := tr.Err(); err != nil {
		return nil, fmt.Errorf("error reading table: %w", err)
	}
	return out, nil
}

func tableType(dt arrow.DataType) datatable.DataType {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return datatable.TypeInt
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return datatable.TypeFloat
	case arrow.BOOL:
		return datatable.TypeBool
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return datatable.TypeTimestamp
	default:
		return datatable.TypeString
	}
}

// cellValue returns the Go value at pos, or nil for nulls. Types without
// a metadata counterpart are returned as strings.
func cellValue(col arrow.Array, pos int) interface{} {
	if col.IsNull(pos) {
		return nil
	}

	switch c := col.(type) {
	case *array.String:
		return c.Value(pos)
	case *array.LargeString:
		return c.Value(pos)
	case *array.Binary:
		return string(c.Value(pos))
	case *array.Boolean:
		return c.Value(pos)
	case *array.Int8:
		return int64(c.Value(pos))
	case *array.Int16:
		return int64(c.Value(pos))
	case *array.Int32:
		return int64(c.Value(pos))
	case *array.Int64:
		return c.Value(pos)
	case *array.Uint8:
		return int64(c.Value(pos))
	case *array.Uint16:
		return int64(c.Value(pos))
	case *array.Uint32:
		return int64(c.Value(pos))
	case *array.Uint64:
		return int64(c.Value(pos))
	case *array.Float16:
		return float64(c.Value(pos).Float32())
	case *array.Float32:
		return float64(c.Value(pos))
	case *array.Float64:
		return c.Value(pos)
	case *array.Date32:
		return c.Value(pos).ToTime().UTC()
	case *array.Date64:
		return c.Value(pos).ToTime().UTC()
	case *array.Timestamp:
		unit := c.DataType().(*arrow.TimestampType).Unit
		return c.Value(pos).ToTime(unit).UTC()
	case *array.Decimal128:
		return c.Value(pos).BigInt().String()
	default:
		return c.ValueStr(pos)
	}
}
