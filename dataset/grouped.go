package dataset

import (
	"fmt"
	"sort"
)

// Data maps data column names to arrays.
type Data map[string]Array

// Clone returns a deep copy.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v.Clone()
	}
	return out
}

// Columns returns the column names in sorted order.
func (d Data) Columns() []string {
	names := make([]string, 0, len(d))
	for k := range d {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Entry is one loaded group.
type Entry struct {
	// Key is the group position, counted from zero.
	Key int
	// Definition describes the group.
	Definition Definition
	// Data holds the group's arrays.
	Data Data
}

// Options are keyword options handed to a Transform.
type Options map[string]interface{}

// Transform maps a group's data to new data.
type Transform func(data Data, opts Options) (Data, error)

// Step pairs a transform with its options.
type Step struct {
	// Name identifies the step in errors. Optional.
	Name      string
	Transform Transform
	Options   Options
}

// Chain pairs transforms with options. options must be nil or have one
// entry per transform.
func Chain(transforms []Transform, options []Options) ([]Step, error) {
	if options != nil && len(options) != len(transforms) {
		return nil, configErrorf("%d transforms but %d option sets", len(transforms), len(options))
	}
	steps := make([]Step, len(transforms))
	for i, t := range transforms {
		steps[i] = Step{Transform: t}
		if options != nil {
			steps[i].Options = options[i]
		}
	}
	return steps, nil
}

// Grouped is the result of GetData: an ordered list of groups keyed by
// position.
type Grouped struct {
	entries []Entry
}

// NewGrouped builds a Grouped from entries, renumbering keys from zero.
func NewGrouped(entries []Entry) *Grouped {
	g := &Grouped{entries: make([]Entry, len(entries))}
	for i, e := range entries {
		e.Key = i
		g.entries[i] = e
	}
	return g
}

// Len returns the number of groups.
func (g *Grouped) Len() int {
	return len(g.entries)
}

// Entry returns a copy of the group with the given key.
func (g *Grouped) Entry(key int) (Entry, bool) {
	if key < 0 || key >= len(g.entries) {
		return Entry{}, false
	}
	return g.entries[key].clone(), true
}

// Entries returns copies of the groups in key order. Changing them does
// not affect g.
func (g *Grouped) Entries() []Entry {
	out := make([]Entry, len(g.entries))
	for i, e := range g.entries {
		out[i] = e.clone()
	}
	return out
}

// ToMapping returns the groups keyed by position. Definitions and data
// are deep copies.
func (g *Grouped) ToMapping() map[int]Entry {
	out := make(map[int]Entry, len(g.entries))
	for _, e := range g.entries {
		out[e.Key] = e.clone()
	}
	return out
}

func (e Entry) clone() Entry {
	return Entry{Key: e.Key, Definition: e.Definition.Clone(), Data: e.Data.Clone()}
}

// Mean averages every array over its member axis. Unless inPlace, the
// receiver is left untouched and a new Grouped is returned.
func (g *Grouped) Mean(inPlace bool) (*Grouped, error) {
	return g.each(inPlace, func(key int, data Data) (Data, error) {
		out := make(Data, len(data))
		for name, a := range data {
			m, err := a.Mean()
			if err != nil {
				return nil, fmt.Errorf("group %d column %s: %w", key, name, err)
			}
			out[name] = m
		}
		return out, nil
	})
}

// Apply runs steps in order on every group's data, each step receiving
// the output of the previous one. Definitions are carried unchanged.
func (g *Grouped) Apply(steps []Step, inPlace bool) (*Grouped, error) {
	for i, s := range steps {
		if s.Transform == nil {
			return nil, configErrorf("step %d has no transform", i)
		}
	}
	return g.each(inPlace, func(key int, data Data) (Data, error) {
		for i, s := range steps {
			out, err := s.Transform(data, s.Options)
			if err != nil {
				return nil, fmt.Errorf("group %d step %s: %w", key, stepName(i, s), err)
			}
			if out == nil {
				return nil, configErrorf("group %d step %s returned no data", key, stepName(i, s))
			}
			data = out
		}
		return data, nil
	})
}

func stepName(i int, s Step) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%d", i)
}

// each computes new data for every group and either swaps it into the
// receiver or returns it as a fresh Grouped. Nothing is swapped when any
// group fails.
func (g *Grouped) each(inPlace bool, fn func(key int, data Data) (Data, error)) (*Grouped, error) {
	results := make([]Data, len(g.entries))
	for i, e := range g.entries {
		out, err := fn(e.Key, e.Data.Clone())
		if err != nil {
			return nil, err
		}
		results[i] = out
	}
	if inPlace {
		for i := range g.entries {
			g.entries[i].Data = results[i]
		}
		return g, nil
	}
	entries := make([]Entry, len(g.entries))
	for i, e := range g.entries {
		entries[i] = Entry{Key: e.Key, Definition: e.Definition.Clone(), Data: results[i]}
	}
	return &Grouped{entries: entries}, nil
}
