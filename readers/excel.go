package readers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

type excelReader struct {
	opts options
}

// Excel returns a reader for workbooks whose first row names the columns
// and whose remaining rows hold numbers. Blank cells become NaN.
func Excel(opts ...Option) Reader {
	return &excelReader{opts: buildOptions(opts)}
}

func (r *excelReader) Name() string { return "excel" }

func (r *excelReader) Read(ctx context.Context, path string) (map[string][]float64, error) {
	data, err := readAll(ctx, r.opts.opener, path)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := r.opts.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	header := rows[0]
	out := make(map[string][]float64, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("header column %d is empty", i+1)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("duplicate header column %q", name)
		}
		header[i] = name
		out[name] = make([]float64, 0, len(rows)-1)
	}

	for rowIdx, row := range rows[1:] {
		// GetRows trims trailing empty cells
		for i, name := range header {
			var cell string
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			if cell == "" {
				out[name] = append(out[name], math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s row %d value %q", ErrNotNumeric, name, rowIdx+2, cell)
			}
			out[name] = append(out[name], v)
		}
	}
	return out, nil
}
