package filter

import (
	"fmt"
	"strings"

	"github.com/magpierre/measureset/datatable"
)

// LogicOp represents a logical operator for combining filters.
type LogicOp int

const (
	// LogicAND requires all filters to pass.
	LogicAND LogicOp = iota
	// LogicOR requires at least one filter to pass.
	LogicOR
)

// String returns the string representation of a LogicOp.
func (op LogicOp) String() string {
	switch op {
	case LogicAND:
		return "AND"
	case LogicOR:
		return "OR"
	default:
		return fmt.Sprintf("unknown(%d)", op)
	}
}

// CompositeFilter combines multiple filters with AND or OR logic.
type CompositeFilter struct {
	// Filters is the list of filters to combine.
	Filters []datatable.Filter

	// Logic specifies how to combine the filters (AND or OR).
	Logic LogicOp
}

// And combines filters so that all must pass.
func And(filters ...datatable.Filter) *CompositeFilter {
	return &CompositeFilter{Filters: filters, Logic: LogicAND}
}

// Or combines filters so that at least one must pass.
func Or(filters ...datatable.Filter) *CompositeFilter {
	return &CompositeFilter{Filters: filters, Logic: LogicOR}
}

// Evaluate implements the Filter interface.
func (f *CompositeFilter) Evaluate(row []datatable.Value, columnNames []string) (bool, error) {
	if len(f.Filters) == 0 {
		return true, nil // Empty filter passes all rows
	}

	switch f.Logic {
	case LogicAND:
		for _, filter := range f.Filters {
			passes, err := filter.Evaluate(row, columnNames)
			if err != nil {
				return false, err
			}
			if !passes {
				return false, nil
			}
		}
		return true, nil

	case LogicOR:
		for _, filter := range f.Filters {
			passes, err := filter.Evaluate(row, columnNames)
			if err != nil {
				return false, err
			}
			if passes {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, fmt.Errorf("%w: unknown logic operator %d", datatable.ErrInvalidFilter, f.Logic)
	}
}

// Description implements the Filter interface.
func (f *CompositeFilter) Description() string {
	if len(f.Filters) == 0 {
		return "empty filter"
	}

	descriptions := make([]string, len(f.Filters))
	for i, filter := range f.Filters {
		descriptions[i] = filter.Description()
	}

	logicStr := f.Logic.String()
	return "(" + strings.Join(descriptions, " "+logicStr+" ") + ")"
}

// NotFilter inverts another filter.
type NotFilter struct {
	Filter datatable.Filter
}

// Not returns a filter passing exactly the rows f rejects.
func Not(f datatable.Filter) *NotFilter {
	return &NotFilter{Filter: f}
}

// Evaluate implements the Filter interface.
func (f *NotFilter) Evaluate(row []datatable.Value, columnNames []string) (bool, error) {
	passes, err := f.Filter.Evaluate(row, columnNames)
	if err != nil {
		return false, err
	}
	return !passes, nil
}

// Description implements the Filter interface.
func (f *NotFilter) Description() string {
	return "NOT " + f.Filter.Description()
}
