// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	delta_sharing "github.com/magpierre/go_delta_sharing_client"

	"github.com/magpierre/measureset/datatable"
	"github.com/magpierre/measureset/internal/query"
)

// SharedSource names a table published over Delta Sharing.
type SharedSource struct {
	// Profile is the content of a Delta Sharing profile file.
	Profile string
	Share   string
	Schema  string
	Table   string
	// FileID selects one file of the table; empty loads every file.
	FileID string
}

// SharedOptions narrows what ImportShared returns.
type SharedOptions struct {
	// Columns to keep; empty keeps all.
	Columns []string
	// Query filters the rows, e.g. "sample = 'A'".
	Query string
	// Limit caps the number of rows per file; zero means no limit.
	Limit int64
	// TimeoutSeconds bounds every sharing server call. Defaults to 60.
	TimeoutSeconds int
}

// ImportShared loads metadata rows from a Delta Sharing table. Rows are
// numbered in file order.
func ImportShared(ctx context.Context, src SharedSource, opts SharedOptions) (*datatable.Table, error) {
	ds, err := delta_sharing.NewSharingClientV2FromString(src.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create Delta Sharing client: %w", err)
	}
	table := delta_sharing.Table{Name: src.Table, Share: src.Share, Schema: src.Schema}

	listCtx, cancel := timeoutContext(ctx, opts.TimeoutSeconds)
	resp, err := ds.ListFilesInTable(listCtx, table)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", src.Table, err)
	}

	var out *datatable.Table
	for _, f := range resp.AddFiles {
		if src.FileID != "" && f.Id != src.FileID {
			continue
		}
		loadCtx, cancel := timeoutContext(ctx, opts.TimeoutSeconds)
		arrowTable, err := delta_sharing.LoadArrowTable(loadCtx, ds, table, f.Id)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to load file %s: %w", f.Id, err)
		}
		part, err := sharedRows(arrowTable, opts)
		arrowTable.Release()
		if err != nil {
			return nil, fmt.Errorf("file %s: %w", f.Id, err)
		}
		if out, err = appendRows(out, part); err != nil {
			return nil, err
		}
		slog.Debug("imported shared file", "table", src.Table, "file", f.Id, "rows", part.RowCount())
	}
	if out == nil {
		if src.FileID != "" {
			return nil, fmt.Errorf("file %s not found in %s", src.FileID, src.Table)
		}
		return datatable.NewTable(nil)
	}
	return out, nil
}

// ListShared returns the tables visible through a Delta Sharing profile.
func ListShared(ctx context.Context, profile string, timeoutSeconds int) ([]SharedSource, error) {
	client, err := delta_sharing.NewSharingClientV2FromString(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create Delta Sharing client: %w", err)
	}
	ctx, cancel := timeoutContext(ctx, timeoutSeconds)
	defer cancel()
	tables, _, err := client.ListAllTables_V2(ctx, 0, "", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list all tables: %w", err)
	}
	out := make([]SharedSource, len(tables))
	for i, t := range tables {
		out[i] = SharedSource{Share: t.Share, Schema: t.Schema, Table: t.Name}
	}
	return out, nil
}

// sharedRows applies the query options to one loaded file and converts
// it to metadata rows.
func sharedRows(tbl arrow.Table, opts SharedOptions) (*datatable.Table, error) {
	tbl, err := applyQueryOptions(tbl, opts)
	if err != nil {
		return nil, err
	}
	defer tbl.Release()

	rows, err := FromArrow(tbl)
	if err != nil {
		return nil, err
	}
	if opts.Query == "" {
		return rows, nil
	}
	f, err := query.NewParser(rows.ColumnNames()).Parse(opts.Query)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	return rows.Where(f)
}

// applyQueryOptions applies column selection and row limiting to the
// Arrow table. The result must be released by the caller.
func applyQueryOptions(table arrow.Table, opts SharedOptions) (arrow.Table, error) {
	table.Retain()

	if len(opts.Columns) > 0 {
		schema := table.Schema()
		wanted := make(map[string]bool, len(opts.Columns))
		for _, name := range opts.Columns {
			wanted[name] = true
		}

		var fields []arrow.Field
		var columns []arrow.Column
		for i, field := range schema.Fields() {
			if wanted[field.Name] {
				fields = append(fields, field)
				columns = append(columns, *table.Column(i))
			}
		}
		if len(fields) == 0 {
			table.Release()
			return nil, fmt.Errorf("no matching columns found")
		}

		selected := array.NewTable(arrow.NewSchema(fields, nil), columns, table.NumRows())
		table.Release()
		table = selected
	}

	if opts.Limit > 0 && opts.Limit < table.NumRows() {
		numCols := int(table.NumCols())
		columns := make([]arrow.Column, numCols)
		for i := 0; i < numCols; i++ {
			col := table.Column(i)
			var chunks []arrow.Array
			rowCount := int64(0)
			for _, chunk := range col.Data().Chunks() {
				if rowCount >= opts.Limit {
					break
				}
				remaining := opts.Limit - rowCount
				if int64(chunk.Len()) <= remaining {
					chunks = append(chunks, chunk)
					rowCount += int64(chunk.Len())
				} else {
					chunks = append(chunks, array.NewSlice(chunk, 0, remaining))
					rowCount += remaining
				}
			}
			chunked := arrow.NewChunked(col.DataType(), chunks)
			columns[i] = *arrow.NewColumn(col.Field(), chunked)
		}

		limited := array.NewTable(table.Schema(), columns, opts.Limit)
		table.Release()
		table = limited
	}

	return table, nil
}

// appendRows appends the rows of part to acc, renumbering them after the
// rows already present. Both tables must have the same columns.
func appendRows(acc, part *datatable.Table) (*datatable.Table, error) {
	if acc == nil {
		return renumber(part, 0)
	}
	if fmt.Sprint(acc.ColumnNames()) != fmt.Sprint(part.ColumnNames()) {
		return nil, fmt.Errorf("%w: shared files have different columns", datatable.ErrInvalidColumn)
	}
	next := acc.RowCount()
	for row := 0; row < part.RowCount(); row++ {
		values, _ := part.Row(row)
		if err := acc.Append(next+row, values); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func renumber(t *datatable.Table, start int) (*datatable.Table, error) {
	out, err := datatable.NewTable(t.Columns())
	if err != nil {
		return nil, err
	}
	for row := 0; row < t.RowCount(); row++ {
		values, _ := t.Row(row)
		if err := out.Append(start+row, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// timeoutContext derives a context bounding one Delta Sharing API call.
// timeoutSeconds <= 0 means 60 seconds.
func timeoutContext(parent context.Context, timeoutSeconds int) (context.Context, context.CancelFunc) {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}
	return context.WithTimeout(parent, time.Duration(timeoutSeconds)*time.Second)
}
