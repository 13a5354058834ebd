package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/magpierre/measureset/datatable"
)

// CompOp is a comparison operator.
type CompOp int

const (
	OpEqual CompOp = iota
	OpNotEqual
	OpGreater
	OpLess
	OpGreaterEqual
	OpLessEqual
	OpContains
	OpIn
)

// String returns the operator symbol.
func (op CompOp) String() string {
	switch op {
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpGreater:
		return ">"
	case OpLess:
		return "<"
	case OpGreaterEqual:
		return ">="
	case OpLessEqual:
		return "<="
	case OpContains:
		return "~"
	case OpIn:
		return "in"
	default:
		return fmt.Sprintf("op(%d)", op)
	}
}

// ColumnFilter compares one column against one or more values.
type ColumnFilter struct {
	Column string
	Op     CompOp
	Values []datatable.Value
}

// Compare builds a ColumnFilter from a raw comparison value.
func Compare(column string, op CompOp, value interface{}) *ColumnFilter {
	return &ColumnFilter{Column: column, Op: op, Values: []datatable.Value{datatable.NewValue(value)}}
}

// Eq passes rows whose column equals value.
func Eq(column string, value interface{}) *ColumnFilter {
	return Compare(column, OpEqual, value)
}

// In passes rows whose column equals any of values.
func In(column string, values ...interface{}) *ColumnFilter {
	f := &ColumnFilter{Column: column, Op: OpIn}
	for _, v := range values {
		f.Values = append(f.Values, datatable.NewValue(v))
	}
	return f
}

// Evaluate implements the Filter interface.
func (f *ColumnFilter) Evaluate(row []datatable.Value, columnNames []string) (bool, error) {
	cell, err := lookup(f.Column, row, columnNames)
	if err != nil {
		return false, err
	}
	if len(f.Values) == 0 {
		return false, fmt.Errorf("%w: %s has no comparison value", datatable.ErrInvalidFilter, f.Column)
	}

	switch f.Op {
	case OpEqual:
		return equal(cell, f.Values[0]), nil
	case OpNotEqual:
		return !equal(cell, f.Values[0]), nil
	case OpIn:
		for _, v := range f.Values {
			if equal(cell, v) {
				return true, nil
			}
		}
		return false, nil
	case OpContains:
		if cell.IsNull {
			return false, nil
		}
		return strings.Contains(strings.ToLower(cell.Formatted), strings.ToLower(f.Values[0].Formatted)), nil
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		if cell.IsNull || f.Values[0].IsNull {
			return false, nil
		}
		cmp, err := order(cell, f.Values[0])
		if err != nil {
			return false, fmt.Errorf("column %s: %w", f.Column, err)
		}
		switch f.Op {
		case OpGreater:
			return cmp > 0, nil
		case OpLess:
			return cmp < 0, nil
		case OpGreaterEqual:
			return cmp >= 0, nil
		default:
			return cmp <= 0, nil
		}
	default:
		return false, fmt.Errorf("%w: unknown operator %d", datatable.ErrInvalidFilter, f.Op)
	}
}

// Description implements the Filter interface.
func (f *ColumnFilter) Description() string {
	if f.Op == OpIn {
		parts := make([]string, len(f.Values))
		for i, v := range f.Values {
			parts[i] = v.String()
		}
		return fmt.Sprintf("%s in [%s]", f.Column, strings.Join(parts, ", "))
	}
	if len(f.Values) == 0 {
		return f.Column + " " + f.Op.String()
	}
	return fmt.Sprintf("%s %s %s", f.Column, f.Op, f.Values[0])
}

func lookup(column string, row []datatable.Value, columnNames []string) (datatable.Value, error) {
	for i, name := range columnNames {
		if name == column {
			if i >= len(row) {
				return datatable.Value{}, datatable.ErrInvalidColumn
			}
			return row[i], nil
		}
	}
	return datatable.Value{}, fmt.Errorf("%w: %s", datatable.ErrColumnNotFound, column)
}

// equal compares numerically when both sides are numbers, otherwise by
// typed identity.
func equal(a, b datatable.Value) bool {
	if a.IsNull || b.IsNull {
		return a.IsNull && b.IsNull
	}
	af, aok := a.Float()
	bf, bok := b.Float()
	if aok && bok {
		return af == bf
	}
	return a.Equal(b)
}

func order(a, b datatable.Value) (int, error) {
	af, aok := a.Float()
	bf, bok := b.Float()
	switch {
	case aok && bok:
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		}
		return 0, nil
	case a.Type == datatable.TypeTimestamp && b.Type == datatable.TypeTimestamp:
		return a.Raw.(time.Time).Compare(b.Raw.(time.Time)), nil
	case a.Type == datatable.TypeString && b.Type == datatable.TypeString:
		return strings.Compare(a.Raw.(string), b.Raw.(string)), nil
	default:
		return 0, fmt.Errorf("%w: %s and %s", datatable.ErrTypeMismatch, a.Type, b.Type)
	}
}
