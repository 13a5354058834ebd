package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/measureset/datatable"
)

var columns = []string{"sample", "voltage", "taken"}

func row(sample interface{}, voltage interface{}, taken interface{}) []datatable.Value {
	return []datatable.Value{datatable.NewValue(sample), datatable.NewValue(voltage), datatable.NewValue(taken)}
}

func TestColumnFilter(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	r := row("Alpha", 2.5, day)

	tests := []struct {
		name   string
		filter *ColumnFilter
		want   bool
	}{
		{"equal", Eq("sample", "Alpha"), true},
		{"equal numeric across types", Eq("voltage", 2.5), true},
		{"not equal", Compare("sample", OpNotEqual, "Beta"), true},
		{"greater", Compare("voltage", OpGreater, 2), true},
		{"less equal", Compare("voltage", OpLessEqual, 2.5), true},
		{"less", Compare("voltage", OpLess, 1), false},
		{"string order", Compare("sample", OpGreaterEqual, "Al"), true},
		{"contains ignores case", Compare("sample", OpContains, "ALP"), true},
		{"in", In("sample", "Beta", "Alpha"), true},
		{"not in", In("sample", "Beta"), false},
		{"time order", Compare("taken", OpGreater, day.Add(-time.Hour)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.filter.Evaluate(r, columns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColumnFilterNulls(t *testing.T) {
	r := row(nil, nil, nil)

	got, err := Eq("sample", nil).Evaluate(r, columns)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Compare("voltage", OpGreater, 1).Evaluate(r, columns)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestColumnFilterErrors(t *testing.T) {
	r := row("A", 1, "x")

	_, err := Eq("missing", 1).Evaluate(r, columns)
	assert.True(t, errors.Is(err, datatable.ErrColumnNotFound))

	_, err = Compare("sample", OpGreater, 1).Evaluate(r, columns)
	assert.True(t, errors.Is(err, datatable.ErrTypeMismatch))

	_, err = (&ColumnFilter{Column: "sample", Op: OpEqual}).Evaluate(r, columns)
	assert.True(t, errors.Is(err, datatable.ErrInvalidFilter))
}

func TestComposite(t *testing.T) {
	r := row("A", 3, "x")

	pass, err := And(Eq("sample", "A"), Compare("voltage", OpGreater, 2)).Evaluate(r, columns)
	require.NoError(t, err)
	assert.True(t, pass)

	pass, err = And(Eq("sample", "A"), Eq("voltage", 1)).Evaluate(r, columns)
	require.NoError(t, err)
	assert.False(t, pass)

	pass, err = Or(Eq("sample", "B"), Eq("voltage", 3)).Evaluate(r, columns)
	require.NoError(t, err)
	assert.True(t, pass)

	pass, err = Not(Eq("sample", "A")).Evaluate(r, columns)
	require.NoError(t, err)
	assert.False(t, pass)

	pass, err = And().Evaluate(r, columns)
	require.NoError(t, err)
	assert.True(t, pass)
}

func TestDescription(t *testing.T) {
	assert.Equal(t, "sample == A", Eq("sample", "A").Description())
	assert.Equal(t, "sample in [A, B]", In("sample", "A", "B").Description())
	assert.Contains(t, Or(Eq("a", 1), Eq("b", 2)).Description(), "OR")
}
