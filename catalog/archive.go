package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/magpierre/measureset/dataset"
	"github.com/magpierre/measureset/readers"
)

// ArchiveExt is the file extension of catalogue archives.
const ArchiveExt = ".mset"

// An archive is a YAML manifest, the reader name and a Parquet metadata
// body, separated by two fixed markers.
var (
	readerMarker = []byte("\n########\n")
	bodyMarker   = []byte("\n##|##|##|##\n")
)

const archiveVersion = 1

type manifest struct {
	Version       int              `yaml:"version"`
	PointerColumn string           `yaml:"pointer_column"`
	BaseDir       *string          `yaml:"base_dir,omitempty"`
	Locations     map[string][]int `yaml:"locations,omitempty"`
}

// WriteArchive bundles ds with its pointer column, reader name and
// locations into a single file at path.
func WriteArchive(path string, ds *dataset.Dataset) error {
	m := manifest{Version: archiveVersion, PointerColumn: ds.PointerColumn()}
	locs := ds.Locations()
	if locs.IsSingle() {
		dir, _ := locs.Dir(0)
		m.BaseDir = &dir
	} else {
		m.Locations = locs.Mapping(ds.Table().Indices())
	}

	head, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(head)
	buf.Write(readerMarker)
	buf.WriteString(ds.Reader().Name())
	buf.Write(bodyMarker)
	if err := writeTable(&buf, ds.Table()); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}

// ArchiveOptions controls ReadArchive.
type ArchiveOptions struct {
	// Reader replaces the reader named in the archive. Needed when the
	// archive names a reader that is not registered.
	Reader dataset.Reader

	// ReaderOptions are passed to the registered reader.
	ReaderOptions []readers.Option
}

// ReadArchive restores a dataset written by WriteArchive.
func ReadArchive(ctx context.Context, path string, opts ArchiveOptions) (*dataset.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	head, rest, ok := bytes.Cut(raw, readerMarker)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotArchive, path)
	}
	readerName, body, ok := bytes.Cut(rest, bodyMarker)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotArchive, path)
	}

	var m manifest
	if err := yaml.Unmarshal(head, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if m.Version != archiveVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrNotArchive, m.Version)
	}

	reader := opts.Reader
	if reader == nil {
		r, err := readers.Lookup(strings.TrimSpace(string(readerName)), opts.ReaderOptions...)
		if err != nil {
			return nil, err
		}
		reader = r
	}

	table, err := readTable(ctx, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var locs dataset.Locations
	if m.BaseDir != nil {
		locs = dataset.SingleDir(*m.BaseDir)
	} else {
		locs, err = dataset.DirIndex(m.Locations)
		if err != nil {
			return nil, err
		}
	}
	return dataset.New(locs, table, dataset.WithPointerColumn(m.PointerColumn), dataset.WithReader(reader))
}
