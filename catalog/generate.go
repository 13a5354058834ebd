package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/magpierre/measureset/datatable"
	"github.com/magpierre/measureset/dataset"
)

// Mapper derives the metadata of one data file. It receives the file
// name and the directory holding it.
type Mapper func(filename, dir string) (map[string]interface{}, error)

// FileMapper adapts a mapper that only needs the file name.
func FileMapper(fn func(filename string) (map[string]interface{}, error)) Mapper {
	return func(filename, _ string) (map[string]interface{}, error) {
		return fn(filename)
	}
}

// Generator builds a catalogue by running a Mapper over the files of a
// directory.
type Generator struct {
	Mapper Mapper

	// PointerColumn is the key the mapper is expected to fill with the
	// file name. Defaults to dataset.DefaultPointerColumn.
	PointerColumn string

	// MetadataFile is skipped while listing. Defaults to
	// DefaultMetadataFile.
	MetadataFile string

	// Reader is attached to the generated dataset.
	Reader dataset.Reader

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Generate maps every file of dir. Files the mapper fails on are logged,
// skipped and reported as diagnostics; so is a result lacking the pointer
// column. Rows are numbered in directory order.
func (g *Generator) Generate(ctx context.Context, dir string) (*Result, error) {
	if g.Mapper == nil {
		return nil, errors.New("generator has no mapper")
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pointer := g.PointerColumn
	if pointer == "" {
		pointer = dataset.DefaultPointerColumn
	}

	files, err := dataFiles(dir, g.metadataFile())
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var records []datatable.Record
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meta, err := g.Mapper(name, dir)
		if err != nil {
			logger.Warn("unable to process file", "file", name, "error", err)
			res.Diagnostics = multierror.Append(res.Diagnostics, fmt.Errorf("%s: %w", name, err))
			continue
		}
		records = append(records, datatable.Record(meta))
	}

	table, err := datatable.NewFromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("build metadata: %w", err)
	}
	if !table.HasColumn(pointer) {
		logger.Warn("mapper output has no pointer column, data retrieval will be impossible", "column", pointer)
		res.Diagnostics = multierror.Append(res.Diagnostics, fmt.Errorf("%w: %q", ErrMissingPointerColumn, pointer))
	}

	ds, err := dataset.New(dataset.SingleDir(dir), table, datasetOptions(pointer, g.Reader)...)
	if err != nil {
		return nil, err
	}
	res.Dataset = ds
	logger.Info("generated metadata", "dir", dir, "rows", table.RowCount(), "skipped", len(files)-table.RowCount())
	return res, nil
}

func (g *Generator) metadataFile() string {
	if g.MetadataFile != "" {
		return g.MetadataFile
	}
	return DefaultMetadataFile
}

// dataFiles lists the regular files of dir in name order, leaving out the
// metadata file, archives and hidden files.
func dataFiles(dir, metadataFile string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == metadataFile || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ArchiveExt) {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// SampleFileName returns the first data file of dir, which helps when
// writing a mapper. It returns "" when the directory holds none.
func SampleFileName(dir string) (string, error) {
	files, err := dataFiles(dir, DefaultMetadataFile)
	if err != nil || len(files) == 0 {
		return "", err
	}
	return files[0], nil
}
