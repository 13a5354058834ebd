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

// Package readers loads measurement data files into named numeric
// columns. Files may be CSV, Parquet, Excel or JSON and may live on the
// local disk or in an S3 compatible object store.
package readers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnsupportedFormat is returned for files whose format cannot be
	// detected.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNotNumeric is returned for data columns that do not hold numbers.
	ErrNotNumeric = errors.New("column is not numeric")
	// ErrUnknownReader is returned by Lookup for unregistered names.
	ErrUnknownReader = errors.New("unknown reader")
)

// Reader loads one data file into named numeric columns.
type Reader interface {
	Name() string
	Read(ctx context.Context, path string) (map[string][]float64, error)
}

// Opener opens the raw bytes behind a path.
type Opener interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, path string) (io.ReadCloser, error)

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return f(ctx, path)
}

// LocalFiles opens paths on the local file system.
var LocalFiles Opener = OpenerFunc(func(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
})

// Option configures a reader.
type Option func(*options)

type options struct {
	opener Opener
	comma  rune // zero means detect
	sheet  string
}

func buildOptions(opts []Option) options {
	o := options{opener: LocalFiles}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithOpener sets where file bytes come from.
func WithOpener(opener Opener) Option {
	return func(o *options) {
		if opener != nil {
			o.opener = opener
		}
	}
}

// WithComma fixes the CSV separator instead of detecting it.
func WithComma(comma rune) Option {
	return func(o *options) {
		o.comma = comma
	}
}

// WithSheet selects the Excel sheet to read. The first sheet is used by
// default.
func WithSheet(name string) Option {
	return func(o *options) {
		o.sheet = name
	}
}

// Format represents the type of data file
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatParquet
	FormatExcel
	FormatJSON
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatParquet:
		return "parquet"
	case FormatExcel:
		return "excel"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// DetectFormat determines the type of file based on its extension.
func DetectFormat(p string) Format {
	switch strings.ToLower(path.Ext(p)) {
	case ".csv", ".tsv", ".txt", ".dat":
		return FormatCSV
	case ".parquet":
		return FormatParquet
	case ".xlsx", ".xlsm":
		return FormatExcel
	case ".json":
		return FormatJSON
	default:
		return FormatUnknown
	}
}

// Factory builds a reader from options.
type Factory func(opts ...Option) Reader

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"csv":     func(opts ...Option) Reader { return CSV(opts...) },
		"parquet": func(opts ...Option) Reader { return Parquet(opts...) },
		"excel":   func(opts ...Option) Reader { return Excel(opts...) },
		"json":    func(opts ...Option) Reader { return JSON(opts...) },
		"auto":    func(opts ...Option) Reader { return Auto(opts...) },
	}
)

// Register makes a reader available to Lookup under name.
func Register(name string, factory Factory) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		return fmt.Errorf("reader %q already registered", name)
	}
	registry[name] = factory
	return nil
}

// Lookup builds the reader registered under name.
func Lookup(name string, opts ...Option) (Reader, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReader, name)
	}
	return factory(opts...), nil
}

// Names returns the registered reader names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// readAll opens path and returns its content.
func readAll(ctx context.Context, opener Opener, path string) ([]byte, error) {
	rc, err := opener.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}
