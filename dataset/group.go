package dataset

import (
	"sort"
	"strings"

	"github.com/magpierre/measureset/datatable"
)

// ValueSet is a set of distinct values kept in first-seen order.
type ValueSet struct {
	values []datatable.Value
	keys   map[string]struct{}
}

// NewValueSet returns a set holding the distinct values given.
func NewValueSet(values ...datatable.Value) *ValueSet {
	s := &ValueSet{keys: make(map[string]struct{})}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts v unless an equal value is already present.
func (s *ValueSet) Add(v datatable.Value) {
	k := v.Key()
	if _, ok := s.keys[k]; ok {
		return
	}
	s.keys[k] = struct{}{}
	s.values = append(s.values, v)
}

// Contains reports whether v is in the set.
func (s *ValueSet) Contains(v datatable.Value) bool {
	_, ok := s.keys[v.Key()]
	return ok
}

// Len returns the number of distinct values.
func (s *ValueSet) Len() int {
	return len(s.values)
}

// Values returns the values in first-seen order.
func (s *ValueSet) Values() []datatable.Value {
	out := make([]datatable.Value, len(s.values))
	copy(out, s.values)
	return out
}

// Single returns the only value of a singleton set.
func (s *ValueSet) Single() (datatable.Value, bool) {
	if len(s.values) != 1 {
		return datatable.Value{}, false
	}
	return s.values[0], true
}

// Equal reports whether both sets hold the same values, in any order.
func (s *ValueSet) Equal(other *ValueSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for k := range s.keys {
		if _, ok := other.keys[k]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s *ValueSet) Clone() *ValueSet {
	return NewValueSet(s.values...)
}

// String formats the set as {a, b}.
func (s *ValueSet) String() string {
	parts := make([]string, len(s.values))
	for i, v := range s.values {
		parts[i] = v.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Definition maps descriptor columns to the distinct values seen across
// the members of a group.
type Definition map[string]*ValueSet

// Clone returns a deep copy.
func (d Definition) Clone() Definition {
	out := make(Definition, len(d))
	for k, v := range d {
		out[k] = v.Clone()
	}
	return out
}

// Keys returns the column names in sorted order.
func (d Definition) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether both definitions have the same columns and sets.
func (d Definition) Equal(other Definition) bool {
	if len(d) != len(other) {
		return false
	}
	for k, v := range d {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// restrict keeps only the named columns. Unknown names are ignored.
func (d Definition) restrict(labels []string) Definition {
	out := make(Definition, len(labels))
	for _, l := range labels {
		if v, ok := d[l]; ok {
			out[l] = v
		}
	}
	return out
}

// Member is one row of a group.
type Member struct {
	// Index is the original row index.
	Index int
	// Filename is the row's pointer column value.
	Filename string
}

// Group is a set of rows sharing the values of the grouping columns.
type Group struct {
	// Key holds the grouping column values in grouping column order.
	Key []datatable.Value
	// Definition holds every non-pointer column collapsed to its
	// distinct values.
	Definition Definition
	// Members lists the rows in table order.
	Members []Member
}

// GroupBy partitions the rows by the values of columns. Groups come out
// in the order their key is first seen; members keep table order. Null
// keys form their own group.
func (d *Dataset) GroupBy(columns ...string) ([]Group, error) {
	if len(columns) == 0 {
		return nil, configErrorf("no grouping columns")
	}
	keyPos := make([]int, len(columns))
	for i, c := range columns {
		pos, err := d.table.ColumnIndex(c)
		if err != nil {
			return nil, configErrorf("group by %q: %v", c, err)
		}
		keyPos[i] = pos
	}
	pointerPos, err := d.table.ColumnIndex(d.pointer)
	if err != nil {
		return nil, configErrorf("pointer column %q not in table", d.pointer)
	}
	names := d.table.ColumnNames()

	var groups []Group
	byKey := make(map[string]int)
	for row := 0; row < d.table.RowCount(); row++ {
		values, err := d.table.Row(row)
		if err != nil {
			return nil, err
		}
		index, _ := d.table.Index(row)

		key := make([]datatable.Value, len(keyPos))
		for i, pos := range keyPos {
			key[i] = values[pos]
		}
		k := groupKey(key)
		gi, ok := byKey[k]
		if !ok {
			gi = len(groups)
			byKey[k] = gi
			groups = append(groups, Group{Key: key, Definition: make(Definition)})
		}
		g := &groups[gi]

		pointer := values[pointerPos]
		if pointer.IsNull {
			return nil, configErrorf("row %d has no %s", index, d.pointer)
		}
		g.Members = append(g.Members, Member{Index: index, Filename: pointer.Formatted})

		for c, name := range names {
			if c == pointerPos {
				continue
			}
			set, ok := g.Definition[name]
			if !ok {
				set = NewValueSet()
				g.Definition[name] = set
			}
			set.Add(values[c])
		}
	}
	return groups, nil
}

// groupKey encodes the grouping values. A single grouping column is keyed
// by its scalar value; several columns by the tuple of values.
func groupKey(values []datatable.Value) string {
	if len(values) == 1 {
		return values[0].Key()
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.Key()
	}
	return "(" + strings.Join(parts, "\x1f") + ")"
}
