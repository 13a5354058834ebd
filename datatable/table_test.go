package datatable

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	return []Record{
		{"filename": "a.csv", "sample": "A", "voltage": 1},
		{"filename": "b.csv", "sample": "B", "voltage": 2.5},
		{"filename": "c.csv", "sample": "A", "voltage": nil},
	}
}

func TestNewFromRecords(t *testing.T) {
	table, err := NewFromRecords(sampleRecords())
	require.NoError(t, err)

	assert.Equal(t, 3, table.RowCount())
	assert.Equal(t, []string{"filename", "sample", "voltage"}, table.ColumnNames())
	assert.Equal(t, []int{0, 1, 2}, table.Indices())

	typ, err := table.ColumnType(2)
	require.NoError(t, err)
	assert.Equal(t, TypeFloat, typ, "ints and floats share a float column")

	cell, err := table.Cell(2, 2)
	require.NoError(t, err)
	assert.True(t, cell.IsNull)
}

func TestNewFromRecordsNullFirst(t *testing.T) {
	table, err := NewFromRecords([]Record{{"v": nil}, {"v": 3}})
	require.NoError(t, err)
	typ, err := table.ColumnType(0)
	require.NoError(t, err)
	assert.Equal(t, TypeInt, typ)
}

func TestNewFromIndexedRecords(t *testing.T) {
	table, err := NewFromIndexedRecords([]int{10, 4}, []Record{{"a": 1}, {"a": 2}})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 4}, table.Indices())

	_, err = NewFromIndexedRecords([]int{1, 1}, []Record{{"a": 1}, {"a": 2}})
	assert.True(t, errors.Is(err, ErrInvalidRow))

	_, err = NewFromIndexedRecords([]int{1}, []Record{{"a": 1}, {"a": 2}})
	assert.True(t, errors.Is(err, ErrInvalidRow))
}

func TestNewTableDuplicateColumn(t *testing.T) {
	_, err := NewTable([]Column{{Name: "a"}, {Name: "a"}})
	assert.True(t, errors.Is(err, ErrDuplicateColumn))
}

func TestAppend(t *testing.T) {
	table, err := NewTable([]Column{{Name: "a", Type: TypeInt}})
	require.NoError(t, err)

	require.NoError(t, table.Append(7, []Value{NewValue(1)}))
	assert.True(t, errors.Is(table.Append(7, []Value{NewValue(2)}), ErrInvalidRow))
	assert.True(t, errors.Is(table.Append(8, []Value{NewValue(2), NewValue(3)}), ErrInvalidColumn))
}

func TestDataSourceBounds(t *testing.T) {
	table, err := NewFromRecords(sampleRecords())
	require.NoError(t, err)

	_, err = table.Cell(5, 0)
	assert.True(t, errors.Is(err, ErrInvalidRow))
	_, err = table.Cell(0, 9)
	assert.True(t, errors.Is(err, ErrInvalidColumn))
	_, err = table.ColumnName(-1)
	assert.True(t, errors.Is(err, ErrInvalidColumn))
	_, err = table.Column("missing")
	assert.True(t, errors.Is(err, ErrColumnNotFound))
	assert.NotNil(t, table.Metadata())
}

func TestWhereKeepsIndices(t *testing.T) {
	table, err := NewFromRecords(sampleRecords())
	require.NoError(t, err)

	sampleA := FilterFunc(func(row []Value, names []string) (bool, error) {
		return row[1].Formatted == "A", nil
	})
	filtered, err := table.Where(sampleA)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, filtered.Indices())
	assert.Equal(t, 3, table.RowCount(), "source table is untouched")

	again, err := filtered.Where(sampleA)
	require.NoError(t, err)
	assert.Equal(t, filtered.Records(), again.Records())

	_, err = table.Where(nil)
	assert.True(t, errors.Is(err, ErrInvalidFilter))
}

func TestWherePropagatesErrors(t *testing.T) {
	table, err := NewFromRecords(sampleRecords())
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = table.Where(FilterFunc(func([]Value, []string) (bool, error) { return false, boom }))
	assert.True(t, errors.Is(err, boom))
}

func TestSelectAndLimit(t *testing.T) {
	table, err := NewFromIndexedRecords([]int{3, 1, 2}, sampleRecords())
	require.NoError(t, err)

	selected, err := table.Select("sample")
	require.NoError(t, err)
	assert.Equal(t, []string{"sample"}, selected.ColumnNames())
	assert.Equal(t, []int{3, 1, 2}, selected.Indices())

	_, err = table.Select("missing")
	assert.Error(t, err)

	limited := table.Limit(2)
	assert.Equal(t, []int{3, 1}, limited.Indices())
	assert.Equal(t, 3, table.Limit(-1).RowCount())
}

func TestDistinct(t *testing.T) {
	table, err := NewFromRecords(sampleRecords())
	require.NoError(t, err)

	values, err := table.Distinct("sample")
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "A", values[0].Raw)
	assert.Equal(t, "B", values[1].Raw)
}

func TestIntColumnWidensToFloat(t *testing.T) {
	table, err := NewFromRecords([]Record{{"v": 1}, {"v": 1.0}, {"v": 1.5}})
	require.NoError(t, err)

	typ, err := table.ColumnType(0)
	require.NoError(t, err)
	assert.Equal(t, TypeFloat, typ)

	values, err := table.Distinct("v")
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, 1.0, values[0].Raw)
	assert.Equal(t, 1.5, values[1].Raw)
}

func TestMixedColumnBecomesString(t *testing.T) {
	table, err := NewFromRecords([]Record{{"v": 3}, {"v": "x"}})
	require.NoError(t, err)

	values, err := table.Column("v")
	require.NoError(t, err)
	assert.Equal(t, TypeString, values[0].Type)
	assert.Equal(t, "3", values[0].Raw)
}

func TestFloatColumnWidensInts(t *testing.T) {
	table, err := NewFromRecords([]Record{{"v": 1.5}, {"v": 2}})
	require.NoError(t, err)

	values, err := table.Column("v")
	require.NoError(t, err)
	assert.Equal(t, TypeFloat, values[1].Type)
	assert.Equal(t, 2.0, values[1].Raw)
}

func TestValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		raw       interface{}
		typ       DataType
		formatted string
	}{
		{"x", TypeString, "x"},
		{int32(4), TypeInt, "4"},
		{uint8(4), TypeInt, "4"},
		{float32(0.5), TypeFloat, "0.5"},
		{true, TypeBool, "true"},
		{ts, TypeTimestamp, "2024-03-01T12:00:00Z"},
		{[]int{1}, TypeString, "[1]"},
	}
	for _, tt := range tests {
		v := NewValue(tt.raw)
		assert.Equal(t, tt.typ, v.Type, "%v", tt.raw)
		assert.Equal(t, tt.formatted, v.Formatted, "%v", tt.raw)
	}

	assert.True(t, NewValue(int64(4)).Equal(NewValue(4)))
	assert.False(t, NewValue("4").Equal(NewValue(4)))
	assert.Equal(t, NewNullValue(TypeInt).Key(), NewNullValue(TypeString).Key())
	assert.Equal(t, "<null>", NewValue(nil).String())

	f, ok := NewValue(3).Float()
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)
	_, ok = NewValue("3").Float()
	assert.False(t, ok)
}
