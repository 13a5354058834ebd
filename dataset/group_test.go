package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/measureset/datatable"
)

func TestGroupByPartitions(t *testing.T) {
	ds, err := New(SingleDir("/data"), sampleTable(t))
	require.NoError(t, err)

	groups, err := ds.GroupBy("voltage")
	require.NoError(t, err)
	require.Len(t, groups, 2)

	seen := make(map[int]int)
	for _, g := range groups {
		for _, m := range g.Members {
			seen[m.Index]++
		}
	}
	assert.Equal(t, map[int]int{0: 1, 1: 1, 2: 1, 3: 1}, seen)

	// first-seen order of keys and members
	assert.Equal(t, []Member{{0, "a.csv"}, {2, "c.csv"}}, groups[0].Members)
	assert.Equal(t, []Member{{1, "b.csv"}, {3, "d.csv"}}, groups[1].Members)
	assert.Equal(t, 2, groups[0].Definition["sample"].Len())
	assert.NotContains(t, groups[0].Definition, "filename")
}

func TestGroupBySingleColumn(t *testing.T) {
	ds, err := New(SingleDir("/data"), sampleTable(t))
	require.NoError(t, err)

	groups, err := ds.GroupBy("sample")
	require.NoError(t, err)
	require.Len(t, groups, 3)

	for i, want := range []string{"A", "B", "C"} {
		v, ok := groups[i].Definition["sample"].Single()
		require.True(t, ok, "group %d", i)
		assert.Equal(t, want, v.Raw)
		require.Len(t, groups[i].Key, 1)
		assert.Equal(t, want, groups[i].Key[0].Raw)
	}
}

func TestGroupByMixedNumbers(t *testing.T) {
	table, err := datatable.NewFromRecords([]datatable.Record{
		{"filename": "a.csv", "voltage": 1},
		{"filename": "b.csv", "voltage": 1.0},
		{"filename": "c.csv", "voltage": 1.5},
	})
	require.NoError(t, err)
	ds, err := New(SingleDir("/data"), table)
	require.NoError(t, err)

	groups, err := ds.GroupBy("voltage")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, []Member{{0, "a.csv"}, {1, "b.csv"}}, groups[0].Members)
	assert.Equal(t, []Member{{2, "c.csv"}}, groups[1].Members)

	assert.Equal(t, 2, ds.Summarize()["voltage"].Len())

	ones, err := ds.Query("voltage = 1")
	require.NoError(t, err)
	assert.Equal(t, 2, ones.Len())
}

func TestGroupByTuple(t *testing.T) {
	ds, err := New(SingleDir("/data"), sampleTable(t))
	require.NoError(t, err)

	groups, err := ds.GroupBy("sample", "voltage")
	require.NoError(t, err)
	require.Len(t, groups, 4)
	for _, g := range groups {
		assert.Len(t, g.Members, 1)
		assert.Equal(t, 1, g.Definition["sample"].Len())
		assert.Equal(t, 1, g.Definition["voltage"].Len())
	}
}

func TestGroupByNullKey(t *testing.T) {
	table, err := datatable.NewFromRecords([]datatable.Record{
		{"filename": "a.csv", "sample": "A"},
		{"filename": "b.csv", "sample": nil},
		{"filename": "c.csv", "sample": nil},
	})
	require.NoError(t, err)
	ds, err := New(SingleDir("/data"), table)
	require.NoError(t, err)

	groups, err := ds.GroupBy("sample")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Len(t, groups[1].Members, 2)
}

func TestGroupByErrors(t *testing.T) {
	ds, err := New(SingleDir("/data"), sampleTable(t))
	require.NoError(t, err)

	_, err = ds.GroupBy()
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = ds.GroupBy("missing")
	assert.ErrorIs(t, err, ErrConfiguration)

	other, err := New(SingleDir("/data"), sampleTable(t), WithPointerColumn("path"))
	require.NoError(t, err)
	_, err = other.GroupBy("sample")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestValueSet(t *testing.T) {
	s := NewValueSet(datatable.NewValue("x"), datatable.NewValue("y"), datatable.NewValue("x"))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "{x, y}", s.String())

	other := NewValueSet(datatable.NewValue("y"), datatable.NewValue("x"))
	assert.True(t, s.Equal(other))

	_, ok := s.Single()
	assert.False(t, ok)
}
