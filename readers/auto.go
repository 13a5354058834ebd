package readers

import (
	"context"
	"fmt"
)

type autoReader struct {
	byFormat map[Format]Reader
}

// Auto returns a reader that picks CSV, Parquet, Excel or JSON from the
// file extension.
func Auto(opts ...Option) Reader {
	return &autoReader{byFormat: map[Format]Reader{
		FormatCSV:     CSV(opts...),
		FormatParquet: Parquet(opts...),
		FormatExcel:   Excel(opts...),
		FormatJSON:    JSON(opts...),
	}}
}

func (r *autoReader) Name() string { return "auto" }

func (r *autoReader) Read(ctx context.Context, path string) (map[string][]float64, error) {
	format := DetectFormat(path)
	reader, ok := r.byFormat[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return reader.Read(ctx, path)
}
