package readers

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

type parquetReader struct {
	opts options
}

// Parquet returns a reader for Parquet files with numeric columns.
func Parquet(opts ...Option) Reader {
	return &parquetReader{opts: buildOptions(opts)}
}

func (r *parquetReader) Name() string { return "parquet" }

func (r *parquetReader) Read(ctx context.Context, path string) (map[string][]float64, error) {
	data, err := readAll(ctx, r.opts.opener, path)
	if err != nil {
		return nil, err
	}

	pf, err := file.NewParquetReader(bytes.NewReader(data), file.WithReadProps(parquet.NewReaderProperties(nil)))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pf.Close()

	arrowReader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	defer table.Release()

	return tableColumns(table)
}
