package readers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

type jsonReader struct {
	opts options
}

// JSON returns a reader for files holding either an object of column
// arrays, {"a": [1, 2]}, or an array of row objects, [{"a": 1}, {"a": 2}].
// null becomes NaN.
func JSON(opts ...Option) Reader {
	return &jsonReader{opts: buildOptions(opts)}
}

func (r *jsonReader) Name() string { return "json" }

func (r *jsonReader) Read(ctx context.Context, path string) (map[string][]float64, error) {
	data, err := readAll(ctx, r.opts.opener, path)
	if err != nil {
		return nil, err
	}

	var columns map[string][]*float64
	if err := json.Unmarshal(data, &columns); err == nil {
		out := make(map[string][]float64, len(columns))
		for name, values := range columns {
			out[name] = derefAll(values)
		}
		if err := checkLengths(out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var rows []map[string]*float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("JSON file is empty or has no records")
	}
	out := make(map[string][]float64)
	for name := range rows[0] {
		out[name] = make([]float64, 0, len(rows))
	}
	for i, row := range rows {
		if len(row) != len(out) {
			return nil, fmt.Errorf("record %d has %d fields, expected %d", i, len(row), len(out))
		}
		for name, v := range row {
			if _, ok := out[name]; !ok {
				return nil, fmt.Errorf("record %d has unexpected field %q", i, name)
			}
			out[name] = append(out[name], deref(v))
		}
	}
	return out, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func derefAll(values []*float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = deref(v)
	}
	return out
}

func checkLengths(columns map[string][]float64) error {
	n := -1
	for name, values := range columns {
		if n >= 0 && len(values) != n {
			return fmt.Errorf("column %s has %d values, expected %d", name, len(values), n)
		}
		n = len(values)
	}
	return nil
}
