package datatable

// DataSource provides read-only access to tabular data.
// All methods should return errors rather than panic.
type DataSource interface {
	// RowCount returns the total number of rows in the data source.
	RowCount() int

	// ColumnCount returns the total number of columns in the data source.
	ColumnCount() int

	// ColumnName returns the name of the column at the given index.
	// Returns ErrInvalidColumn if col is out of range.
	ColumnName(col int) (string, error)

	// ColumnType returns the data type of the column at the given index.
	// Returns ErrInvalidColumn if col is out of range.
	ColumnType(col int) (DataType, error)

	// Cell returns the value at the specified row and column.
	// Returns ErrInvalidRow if row is out of range.
	// Returns ErrInvalidColumn if col is out of range.
	Cell(row, col int) (Value, error)

	// Row returns all values for the specified row.
	// Returns ErrInvalidRow if row is out of range.
	Row(row int) ([]Value, error)

	// Metadata returns optional metadata about the data source.
	// Returns an empty Metadata map if no metadata is available.
	Metadata() Metadata
}

// Filter decides whether a row is kept.
type Filter interface {
	// Evaluate reports whether the row passes. columnNames is aligned
	// with row.
	Evaluate(row []Value, columnNames []string) (bool, error)

	// Description returns a human readable form of the filter.
	Description() string
}

// FilterFunc adapts a plain function to the Filter interface.
type FilterFunc func(row []Value, columnNames []string) (bool, error)

// Evaluate implements the Filter interface.
func (f FilterFunc) Evaluate(row []Value, columnNames []string) (bool, error) {
	return f(row, columnNames)
}

// Description implements the Filter interface.
func (f FilterFunc) Description() string {
	return "func"
}
