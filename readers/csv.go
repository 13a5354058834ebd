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

package readers

import (
	"bytes"
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

type csvReader struct {
	opts options
}

// CSV returns a reader for delimited text with a header row. Every column
// is parsed as float64; empty cells and NA become NaN. The separator is
// detected from the header unless fixed with WithComma.
func CSV(opts ...Option) Reader {
	return &csvReader{opts: buildOptions(opts)}
}

func (r *csvReader) Name() string { return "csv" }

func (r *csvReader) Read(ctx context.Context, path string) (map[string][]float64, error) {
	data, err := readAll(ctx, r.opts.opener, path)
	if err != nil {
		return nil, err
	}
	return parseCSV(data, r.opts.comma)
}

func parseCSV(data []byte, comma rune) (map[string][]float64, error) {
	line := firstLine(data)
	if strings.TrimSpace(line) == "" {
		return nil, errors.New("missing header row")
	}
	if comma == 0 {
		comma = DetectSeparator(line)
	}

	header, err := parseHeader(line, comma)
	if err != nil {
		return nil, err
	}
	fields := make([]arrow.Field, len(header))
	for i, name := range header {
		fields[i] = arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64, Nullable: true}
	}

	rdr := csv.NewReader(bytes.NewReader(data), arrow.NewSchema(fields, nil),
		csv.WithHeader(true),
		csv.WithComma(comma),
		csv.WithChunk(-1),
		csv.WithAllocator(memory.NewGoAllocator()),
		csv.WithNullReader(true, "", "NA", "null"),
	)
	defer rdr.Release()

	out := make(map[string][]float64, len(header))
	for _, name := range header {
		out[name] = []float64{}
	}
	for rdr.Next() {
		if err := appendRecord(out, rdr.Record()); err != nil {
			return nil, err
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CSV (separator %s): %w", separatorName(comma), err)
	}
	return out, nil
}

func firstLine(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i]
	}
	return strings.TrimSuffix(string(data), "\r")
}

func parseHeader(line string, comma rune) ([]string, error) {
	r := stdcsv.NewReader(strings.NewReader(line))
	r.Comma = comma
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	seen := make(map[string]struct{}, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("header column %d is empty", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate header column %q", name)
		}
		seen[name] = struct{}{}
		header[i] = name
	}
	return header, nil
}

// DetectSeparator picks the most frequent common separator in the header
// line, preferring comma on ties.
func DetectSeparator(line string) rune {
	detected, maxCount := ',', 0
	for _, sep := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(sep)); n > maxCount {
			detected, maxCount = sep, n
		}
	}
	return detected
}

// separatorName returns a human-readable name for the separator
func separatorName(sep rune) string {
	switch sep {
	case ',':
		return "comma"
	case ';':
		return "semicolon"
	case '\t':
		return "tab"
	case '|':
		return "pipe"
	default:
		return string(sep)
	}
}
