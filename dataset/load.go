package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// GetDataOptions controls GetData.
type GetDataOptions struct {
	// GroupBy lists the grouping columns. When empty every distinct
	// filename forms its own group.
	GroupBy []string

	// LabelBy restricts each group definition to the named columns.
	// Nil keeps every column; names not in the table are ignored.
	LabelBy []string
}

// GetData groups the rows, reads every member's data file and stacks the
// columns of each group into (members, samples) arrays. A group with a
// single member holds (samples,) vectors instead. Every file must
// carry the column set of the first file read. Any failure aborts the
// whole retrieval.
func (d *Dataset) GetData(ctx context.Context, opts GetDataOptions) (*Grouped, error) {
	columns := opts.GroupBy
	if len(columns) == 0 {
		columns = []string{d.pointer}
	}
	groups, err := d.GroupBy(columns...)
	if err != nil {
		return nil, err
	}

	var schema []string
	entries := make([]Entry, 0, len(groups))
	for gi, g := range groups {
		stacked := make(map[string][][]float64)
		for _, m := range g.Members {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			path, err := d.locations.Resolve(m.Index, m.Filename)
			if err != nil {
				return nil, err
			}
			data, err := d.reader.Read(ctx, path)
			if err != nil {
				return nil, &DataReadError{Reader: d.reader.Name(), Path: path, Err: err}
			}

			got := columnNames(data)
			if schema == nil {
				schema = got
			} else if !sameColumns(schema, got) {
				return nil, fmt.Errorf("%w: group %d file %s has columns [%s], expected [%s]",
					ErrSchemaMismatch, gi, path, strings.Join(got, ", "), strings.Join(schema, ", "))
			}
			for name, values := range data {
				stacked[name] = append(stacked[name], values)
			}
		}

		arrays := make(Data, len(stacked))
		for name, rows := range stacked {
			if len(rows) == 1 {
				arrays[name] = NewVector(rows[0])
				continue
			}
			a, err := NewMatrix(rows)
			if err != nil {
				return nil, fmt.Errorf("group %d column %s: %w", gi, name, err)
			}
			arrays[name] = a
		}

		def := g.Definition
		if opts.LabelBy != nil {
			def = def.restrict(opts.LabelBy)
		}
		entries = append(entries, Entry{Definition: def, Data: arrays})
		slog.Debug("loaded group", "group", gi, "members", len(g.Members), "columns", len(arrays))
	}
	return NewGrouped(entries), nil
}

func columnNames(data map[string][]float64) []string {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sameColumns compares two sorted name lists.
func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
