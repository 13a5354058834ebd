package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Array is an immutable numeric array holding either a stack of member
// rows, shape (members, samples), or a single reduced row, shape
// (samples,). Accessors return copies.
type Array struct {
	m      *mat.Dense // nil when the array holds no values
	rows   int
	cols   int
	vector bool
}

// NewVector returns a one-dimensional array.
func NewVector(values []float64) Array {
	a := Array{rows: 1, cols: len(values), vector: true}
	if len(values) > 0 {
		a.m = mat.NewDense(1, len(values), append([]float64(nil), values...))
	}
	return a
}

// NewMatrix stacks rows into a two-dimensional array. All rows must have
// the same length.
func NewMatrix(rows [][]float64) (Array, error) {
	if len(rows) == 0 {
		return Array{}, nil
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return Array{}, fmt.Errorf("%w: row %d has %d samples, expected %d", ErrSchemaMismatch, i, len(r), cols)
		}
		data = append(data, r...)
	}
	a := Array{rows: len(rows), cols: cols}
	if cols > 0 {
		a.m = mat.NewDense(len(rows), cols, data)
	}
	return a, nil
}

// FromDense wraps a copy of m as a two-dimensional array.
func FromDense(m mat.Matrix) Array {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return Array{rows: r, cols: c}
	}
	return Array{m: mat.DenseCopyOf(m), rows: r, cols: c}
}

// Shape returns (members, samples) for stacked arrays and (samples,) for
// reduced ones.
func (a Array) Shape() []int {
	if a.vector {
		return []int{a.cols}
	}
	return []int{a.rows, a.cols}
}

// IsVector reports whether the array is one-dimensional.
func (a Array) IsVector() bool {
	return a.vector
}

// Members returns the size of axis 0 of a stacked array, or 1 for a
// vector.
func (a Array) Members() int {
	return a.rows
}

// Samples returns the number of values per member.
func (a Array) Samples() int {
	return a.cols
}

// At returns the value at member i, sample j.
func (a Array) At(i, j int) float64 {
	if a.m == nil {
		panic("dataset: index out of range on empty array")
	}
	return a.m.At(i, j)
}

// Row returns a copy of member i.
func (a Array) Row(i int) []float64 {
	if a.m == nil {
		if i < 0 || i >= a.rows {
			panic("dataset: row index out of range")
		}
		return []float64{}
	}
	return mat.Row(nil, i, a.m)
}

// Rows returns a copy of all members.
func (a Array) Rows() [][]float64 {
	out := make([][]float64, a.rows)
	for i := range out {
		out[i] = a.Row(i)
	}
	return out
}

// Values returns the array flattened in row-major order.
func (a Array) Values() []float64 {
	out := make([]float64, 0, a.rows*a.cols)
	for i := 0; i < a.rows; i++ {
		out = append(out, a.Row(i)...)
	}
	return out
}

// Dense returns a copy of the data as a gonum matrix, or nil when empty.
func (a Array) Dense() *mat.Dense {
	if a.m == nil {
		return nil
	}
	return mat.DenseCopyOf(a.m)
}

// Clone returns a deep copy.
func (a Array) Clone() Array {
	out := a
	if a.m != nil {
		out.m = mat.DenseCopyOf(a.m)
	}
	return out
}

// Mean reduces a stacked array along the member axis. A vector is
// returned unchanged since it already holds a single row.
func (a Array) Mean() (Array, error) {
	if a.vector {
		return a.Clone(), nil
	}
	if a.rows == 0 {
		return Array{}, ErrEmptyGroup
	}
	sum := make([]float64, a.cols)
	for i := 0; i < a.rows; i++ {
		if a.m != nil {
			floats.Add(sum, a.m.RawRowView(i))
		}
	}
	floats.Scale(1/float64(a.rows), sum)
	return NewVector(sum), nil
}

// Equal reports whether both arrays have the same shape and values.
func (a Array) Equal(b Array) bool {
	if a.vector != b.vector || a.rows != b.rows || a.cols != b.cols {
		return false
	}
	if a.m == nil || b.m == nil {
		return a.m == nil && b.m == nil
	}
	return mat.Equal(a.m, b.m)
}

// String formats the array for logs and error messages.
func (a Array) String() string {
	var sb strings.Builder
	writeRow := func(row []float64) {
		sb.WriteByte('[')
		for j, v := range row {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		sb.WriteByte(']')
	}
	if a.vector {
		writeRow(a.Row(0))
		return sb.String()
	}
	sb.WriteByte('[')
	for i := 0; i < a.rows; i++ {
		writeRow(a.Row(i))
	}
	sb.WriteByte(']')
	return sb.String()
}
