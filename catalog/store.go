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

// Package catalog persists, generates, archives, imports and exports
// measurement catalogues: metadata tables describing the data files of a
// directory.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/hashicorp/go-multierror"

	"github.com/magpierre/measureset/datatable"
	"github.com/magpierre/measureset/dataset"
)

// DefaultMetadataFile is the name of the metadata file in a catalogued
// directory.
const DefaultMetadataFile = "meta_data.parquet"

// Result is a dataset together with the non-fatal problems met while
// producing it.
type Result struct {
	Dataset *dataset.Dataset

	// Diagnostics collects non-fatal problems; nil when there were none.
	Diagnostics *multierror.Error
}

// SaveOptions controls Save.
type SaveOptions struct {
	// FileName defaults to DefaultMetadataFile.
	FileName string
	// Overwrite replaces an existing metadata file.
	Overwrite bool
}

// Save writes the metadata table of ds into dir and returns the file
// path. An existing file is only replaced when Overwrite is set. A failed
// write leaves no file behind.
func Save(dir string, ds *dataset.Dataset, opts SaveOptions) (string, error) {
	name := opts.FileName
	if name == "" {
		name = DefaultMetadataFile
	}
	path := filepath.Join(dir, name)

	err := writeFile(path, opts.Overwrite, func(w io.Writer) error {
		return writeTable(w, ds.Table())
	})
	if err != nil {
		return "", err
	}
	slog.Info("saved metadata", "path", path, "rows", ds.Len())
	return path, nil
}

// writeFile creates path and fills it with write. Unless overwrite is
// set an existing file is an ErrExists error. The file is removed when
// write or close fails.
func writeFile(path string, overwrite bool, write func(io.Writer) error) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return fmt.Errorf("failed to create metadata file: %w", err)
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to close metadata file: %w", err)
	}
	return nil
}

// writeTable writes t as Parquet, keeping row indices.
func writeTable(w io.Writer, t *datatable.Table) error {
	table := ToArrow(t, true)
	defer table.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(table.Schema(), w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.WriteTable(table, max(table.NumRows(), 1)); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write table to parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// readTable reads a table written by writeTable.
func readTable(ctx context.Context, r parquet.ReaderAtSeeker) (*datatable.Table, error) {
	pf, err := file.NewParquetReader(r)
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
	return FromArrow(table)
}

// LoadOptions controls Load.
type LoadOptions struct {
	// FileName defaults to DefaultMetadataFile.
	FileName string
	// PointerColumn defaults to dataset.DefaultPointerColumn.
	PointerColumn string
	// Reader defaults to the dataset default reader.
	Reader dataset.Reader
}

// Load reads the metadata file of dir. A missing file is not fatal: the
// result holds an empty dataset and an ErrNoMetadata diagnostic. Archives
// lying in dir are reported as diagnostics since they may be what the
// caller meant to open.
func Load(ctx context.Context, dir string, opts LoadOptions) (*Result, error) {
	name := opts.FileName
	if name == "" {
		name = DefaultMetadataFile
	}
	path := filepath.Join(dir, name)

	res := &Result{}
	for _, archive := range findArchives(dir) {
		slog.Warn("archive found in directory, use ReadArchive to open it", "archive", archive)
		res.Diagnostics = multierror.Append(res.Diagnostics, fmt.Errorf("archive present: %s", archive))
	}

	var table *datatable.Table
	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("no metadata found, starting empty", "path", path)
		res.Diagnostics = multierror.Append(res.Diagnostics, fmt.Errorf("%w: %s", ErrNoMetadata, path))
	case err != nil:
		return nil, fmt.Errorf("failed to open metadata file: %w", err)
	default:
		defer f.Close()
		table, err = readTable(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	ds, err := dataset.New(dataset.SingleDir(dir), table, datasetOptions(opts.PointerColumn, opts.Reader)...)
	if err != nil {
		return nil, err
	}
	res.Dataset = ds
	return res, nil
}

func datasetOptions(pointer string, reader dataset.Reader) []dataset.Option {
	var opts []dataset.Option
	if pointer != "" {
		opts = append(opts, dataset.WithPointerColumn(pointer))
	}
	if reader != nil {
		opts = append(opts, dataset.WithReader(reader))
	}
	return opts
}

func findArchives(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ArchiveExt) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}
