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
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/magpierre/measureset/dataset"
)

// ExportFormat represents the supported export formats
type ExportFormat int

const (
	FormatParquet ExportFormat = iota
	FormatCSV
	FormatJSON
)

// Columns leading every exported table.
const (
	GroupColumn  = "__group__"
	MemberColumn = "__member__"
	SampleColumn = "__sample__"
)

// FormatForPath picks the export format from the file extension.
func FormatForPath(path string) (ExportFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return FormatParquet, nil
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("unsupported export format %q", filepath.Ext(path))
	}
}

// ExportGrouped writes g to path in long format: one row per group,
// member and sample, with the group definition as label columns and one
// column per data column. Missing samples (NaN) are written as nulls.
// The format follows the file extension.
func ExportGrouped(g *dataset.Grouped, path string) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	table := GroupedTable(g)
	defer table.Release()

	switch format {
	case FormatParquet:
		err = ExportToParquet(table, path)
	case FormatCSV:
		err = ExportToCSV(table, path)
	default:
		err = ExportToJSON(table, path)
	}
	if err != nil {
		// drop the partial file
		os.Remove(path)
		return err
	}
	return nil
}

// GroupedTable flattens g into an Arrow table. Labels hold the single
// value of a definition entry, or the whole set when there are several.
// The caller releases the result.
func GroupedTable(g *dataset.Grouped) arrow.Table {
	entries := g.Entries()
	labels, data := groupedColumns(entries)

	fields := []arrow.Field{
		{Name: GroupColumn, Type: arrow.PrimitiveTypes.Int64},
		{Name: MemberColumn, Type: arrow.PrimitiveTypes.Int64},
		{Name: SampleColumn, Type: arrow.PrimitiveTypes.Int64},
	}
	for _, l := range labels {
		fields = append(fields, arrow.Field{Name: l, Type: arrow.BinaryTypes.String, Nullable: true})
	}
	for _, d := range data {
		fields = append(fields, arrow.Field{Name: d, Type: arrow.PrimitiveTypes.Float64, Nullable: true})
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	for _, e := range entries {
		members, samples := entryExtent(e.Data)
		for m := 0; m < members; m++ {
			for s := 0; s < samples; s++ {
				b.Field(0).(*array.Int64Builder).Append(int64(e.Key))
				b.Field(1).(*array.Int64Builder).Append(int64(m))
				b.Field(2).(*array.Int64Builder).Append(int64(s))
				for i, l := range labels {
					lb := b.Field(3 + i).(*array.StringBuilder)
					if set, ok := e.Definition[l]; ok {
						lb.Append(labelString(set))
					} else {
						lb.AppendNull()
					}
				}
				for i, d := range data {
					db := b.Field(3 + len(labels) + i).(*array.Float64Builder)
					a, ok := e.Data[d]
					if !ok || m >= a.Members() || s >= a.Samples() {
						db.AppendNull()
						continue
					}
					if v := a.At(m, s); !math.IsNaN(v) {
						db.Append(v)
					} else {
						db.AppendNull()
					}
				}
			}
		}
	}

	rec := b.NewRecord()
	defer rec.Release()
	return array.NewTableFromRecords(schema, []arrow.Record{rec})
}

func labelString(set *dataset.ValueSet) string {
	if v, ok := set.Single(); ok {
		return v.String()
	}
	return set.String()
}

// groupedColumns returns the sorted union of label and data column names.
func groupedColumns(entries []dataset.Entry) (labels, data []string) {
	ls := make(map[string]struct{})
	ds := make(map[string]struct{})
	for _, e := range entries {
		for k := range e.Definition {
			ls[k] = struct{}{}
		}
		for k := range e.Data {
			ds[k] = struct{}{}
		}
	}
	return sortedSet(ls), sortedSet(ds)
}

func sortedSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// entryExtent returns the largest member and sample counts of a group.
func entryExtent(data dataset.Data) (members, samples int) {
	for _, a := range data {
		members = max(members, a.Members())
		samples = max(samples, a.Samples())
	}
	return members, samples
}

// ExportToParquet exports the Arrow table to a Parquet file
func ExportToParquet(table arrow.Table, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(table.Schema(), file, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.WriteTable(table, max(table.NumRows(), 1)); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write table to parquet: %w", err)
	}
	return writer.Close()
}

// ExportToCSV exports the Arrow table to a CSV file
func ExportToCSV(table arrow.Table, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	schema := table.Schema()
	headers := make([]string, schema.NumFields())
	for i, field := range schema.Fields() {
		headers[i] = field.Name
	}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	tr := array.NewTableReader(table, table.NumRows())
	defer tr.Release()

	for tr.Next() {
		rec := tr.Record()
		for rowIdx := 0; rowIdx < int(rec.NumRows()); rowIdx++ {
			row := make([]string, rec.NumCols())
			for colIdx, col := range rec.Columns() {
				row[colIdx] = formatCell(col, rowIdx)
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}
	if tr.Err() != nil {
		return fmt.Errorf("error reading table: %w", tr.Err())
	}

	writer.Flush()
	return writer.Error()
}

// ExportToJSON exports the Arrow table to a JSON file
func ExportToJSON(table arrow.Table, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	tr := array.NewTableReader(table, table.NumRows())
	defer tr.Release()

	records := make([]map[string]interface{}, 0, table.NumRows())
	schema := table.Schema()
	for tr.Next() {
		rec := tr.Record()
		for rowIdx := 0; rowIdx < int(rec.NumRows()); rowIdx++ {
			record := make(map[string]interface{}, rec.NumCols())
			for colIdx, col := range rec.Columns() {
				v := cellValue(col, rowIdx)
				if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
					v = nil
				}
				record[schema.Field(colIdx).Name] = v
			}
			records = append(records, record)
		}
	}
	if tr.Err() != nil {
		return fmt.Errorf("error reading table: %w", tr.Err())
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// formatCell converts an Arrow column value at a specific position to a
// string. Nulls are empty.
func formatCell(col arrow.Array, pos int) string {
	switch v := cellValue(col, pos).(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
