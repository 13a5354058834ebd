package readers

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// appendRecord appends every column of rec to out. Nulls become NaN.
func appendRecord(out map[string][]float64, rec arrow.Record) error {
	for i, field := range rec.Schema().Fields() {
		values, err := floatValues(rec.Column(i))
		if err != nil {
			return fmt.Errorf("%w: %s has type %s", err, field.Name, field.Type)
		}
		out[field.Name] = append(out[field.Name], values...)
	}
	return nil
}

// tableColumns converts every column of tbl.
func tableColumns(tbl arrow.Table) (map[string][]float64, error) {
	out := make(map[string][]float64, tbl.NumCols())
	for i := 0; i < int(tbl.NumCols()); i++ {
		field := tbl.Schema().Field(i)
		values := make([]float64, 0, tbl.NumRows())
		for _, chunk := range tbl.Column(i).Data().Chunks() {
			v, err := floatValues(chunk)
			if err != nil {
				return nil, fmt.Errorf("%w: %s has type %s", err, field.Name, field.Type)
			}
			values = append(values, v...)
		}
		out[field.Name] = values
	}
	return out, nil
}

func floatValues(col arrow.Array) ([]float64, error) {
	at, ok := floatAccessor(col)
	if !ok {
		return nil, ErrNotNumeric
	}
	out := make([]float64, col.Len())
	for i := range out {
		if col.IsNull(i) {
			out[i] = math.NaN()
			continue
		}
		out[i] = at(i)
	}
	return out, nil
}

// floatAccessor returns a float64 view of a numeric Arrow column.
func floatAccessor(col arrow.Array) (func(int) float64, bool) {
	switch c := col.(type) {
	case *array.Float64:
		return c.Value, true
	case *array.Float32:
		return func(i int) float64 { return float64(c.Value(i)) }, true
	case *array.Float16:
		return func(i int) float64 { return float64(c.Value(i).Float32()) }, true
	case *array.Int8:
		return func(i int) float64 { return float64(c.Value(i)) }, true
	case *array.Int16:
		return func(i int) float64 { return float64(c.Value(i)) }, true
	case *array.Int32:
		return func(i int) float64 { return float64(c.Value(i)) }, true
	case *array.Int64:
		return func(i int) float64 { return float64(c.Value(i)) }, true
	case *array.Uint8:
		return func(i int) float64 { return float64(c.Value(i)) }, true
	case *array.Uint16:
		return func(i int) float64 { return float64(c.Value(i)) }, true
	case *array.Uint32:
		return func(i int) float64 { return float64(c.Value(i)) }, true
	case *array.Uint64:
		return func(i int) float64 { return float64(c.Value(i)) }, true
	default:
		return nil, false
	}
}
