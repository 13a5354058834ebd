package catalog

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/measureset/datatable"
	"github.com/magpierre/measureset/dataset"
	"github.com/magpierre/measureset/internal/filter"
)

func sampleDataset(t *testing.T, dir string) *dataset.Dataset {
	t.Helper()
	table, err := datatable.NewFromRecords([]datatable.Record{
		{"filename": "a.csv", "sample": "A", "voltage": 1.5, "run": 1},
		{"filename": "b.csv", "sample": "A", "voltage": 2.5, "run": 2},
		{"filename": "c.csv", "sample": "B", "voltage": 1.5, "run": 3},
		{"filename": "d.csv", "sample": "C", "voltage": nil, "run": 4},
	})
	require.NoError(t, err)
	ds, err := dataset.New(dataset.SingleDir(dir), table)
	require.NoError(t, err)
	return ds
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x,y\n1,2\n"), 0o644))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ds := sampleDataset(t, dir)
	filtered, err := ds.Filter(filter.In("sample", "A", "C"))
	require.NoError(t, err)

	path, err := Save(dir, filtered, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultMetadataFile), path)

	res, err := Load(context.Background(), dir, LoadOptions{})
	require.NoError(t, err)
	assert.Nil(t, res.Diagnostics)

	got := res.Dataset.Table()
	assert.Equal(t, []int{0, 1, 3}, got.Indices())
	assert.Equal(t, filtered.Table().ColumnNames(), got.ColumnNames())
	assert.Equal(t, filtered.Table().Records(), got.Records())

	p, err := res.Dataset.Path(3)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "d.csv"), p)
}

func TestSaveRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	ds := sampleDataset(t, dir)

	_, err := Save(dir, ds, SaveOptions{})
	require.NoError(t, err)

	_, err = Save(dir, ds, SaveOptions{})
	assert.True(t, errors.Is(err, ErrExists))

	_, err = Save(dir, ds, SaveOptions{Overwrite: true})
	assert.NoError(t, err)
}

func TestSaveFailureLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultMetadataFile)
	boom := errors.New("disk full")

	err := writeFile(path, false, func(w io.Writer) error {
		if _, err := w.Write([]byte("PAR1")); err != nil {
			return err
		}
		return boom
	})
	assert.True(t, errors.Is(err, boom))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	err = writeFile(path, false, func(w io.Writer) error {
		_, err := w.Write([]byte("ok"))
		return err
	})
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(raw))
}

func TestLoadMissingMetadata(t *testing.T) {
	dir := t.TempDir()

	res, err := Load(context.Background(), dir, LoadOptions{})
	require.NoError(t, err)
	require.NotNil(t, res.Diagnostics)
	assert.True(t, errors.Is(res.Diagnostics, ErrNoMetadata))
	assert.Equal(t, 0, res.Dataset.Len())
}

func TestLoadReportsArchives(t *testing.T) {
	dir := t.TempDir()
	_, err := Save(dir, sampleDataset(t, dir), SaveOptions{})
	require.NoError(t, err)
	touch(t, dir, "old"+ArchiveExt)

	res, err := Load(context.Background(), dir, LoadOptions{})
	require.NoError(t, err)
	require.NotNil(t, res.Diagnostics)
	require.Len(t, res.Diagnostics.Errors, 1)
	assert.Contains(t, res.Diagnostics.Errors[0].Error(), "old"+ArchiveExt)
	assert.Equal(t, 4, res.Dataset.Len())
}

func TestLoadCustomPointerColumn(t *testing.T) {
	dir := t.TempDir()
	_, err := Save(dir, sampleDataset(t, dir), SaveOptions{FileName: "catalog.parquet"})
	require.NoError(t, err)

	res, err := Load(context.Background(), dir, LoadOptions{FileName: "catalog.parquet", PointerColumn: "sample"})
	require.NoError(t, err)
	assert.Equal(t, "sample", res.Dataset.PointerColumn())
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.csv", "b.csv", "bad.csv", DefaultMetadataFile, ".hidden", "old" + ArchiveExt} {
		touch(t, dir, name)
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	var seen []string
	g := &Generator{Mapper: func(filename, d string) (map[string]interface{}, error) {
		seen = append(seen, filename)
		assert.Equal(t, dir, d)
		if filename == "bad.csv" {
			return nil, errors.New("cannot parse name")
		}
		return map[string]interface{}{"filename": filename, "sample": strings.TrimSuffix(filename, ".csv")}, nil
	}}

	res, err := g.Generate(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.csv", "b.csv", "bad.csv"}, seen)
	require.NotNil(t, res.Diagnostics)
	require.Len(t, res.Diagnostics.Errors, 1)
	assert.Contains(t, res.Diagnostics.Errors[0].Error(), "bad.csv")

	assert.Equal(t, 2, res.Dataset.Len())
	assert.Equal(t, []int{0, 1}, res.Dataset.Table().Indices())
	p, err := res.Dataset.Path(1)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b.csv"), p)
}

func TestGenerateMissingPointerColumn(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.csv")

	g := &Generator{Mapper: FileMapper(func(filename string) (map[string]interface{}, error) {
		return map[string]interface{}{"name": filename}, nil
	})}

	res, err := g.Generate(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, res.Diagnostics)
	assert.True(t, errors.Is(res.Diagnostics, ErrMissingPointerColumn))
	assert.Equal(t, 1, res.Dataset.Len())
}

func TestGenerateWithoutMapper(t *testing.T) {
	_, err := (&Generator{}).Generate(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestSampleFileName(t *testing.T) {
	dir := t.TempDir()

	name, err := SampleFileName(dir)
	require.NoError(t, err)
	assert.Empty(t, name)

	touch(t, dir, "z.csv")
	touch(t, dir, "m.csv")
	touch(t, dir, DefaultMetadataFile)

	name, err = SampleFileName(dir)
	require.NoError(t, err)
	assert.Equal(t, "m.csv", name)
}

func TestArchiveRoundTripSingleDir(t *testing.T) {
	dir := t.TempDir()
	ds := sampleDataset(t, "/data/run1")
	path := filepath.Join(dir, "run1"+ArchiveExt)

	require.NoError(t, WriteArchive(path, ds))

	got, err := ReadArchive(context.Background(), path, ArchiveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "csv", got.Reader().Name())
	assert.Equal(t, ds.PointerColumn(), got.PointerColumn())
	assert.Equal(t, ds.Table().Records(), got.Table().Records())

	p, err := got.Path(2)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data/run1", "c.csv"), p)
}

func TestArchiveRoundTripDirIndex(t *testing.T) {
	dir := t.TempDir()
	table, err := datatable.NewFromIndexedRecords([]int{4, 9}, []datatable.Record{
		{"file": "x.csv"},
		{"file": "y.csv"},
	})
	require.NoError(t, err)
	locs, err := dataset.DirIndex(map[string][]int{"/first": {4}, "s3://bucket/second": {9}})
	require.NoError(t, err)
	ds, err := dataset.New(locs, table, dataset.WithPointerColumn("file"))
	require.NoError(t, err)

	path := filepath.Join(dir, "mixed"+ArchiveExt)
	require.NoError(t, WriteArchive(path, ds))

	got, err := ReadArchive(context.Background(), path, ArchiveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "file", got.PointerColumn())
	assert.Equal(t, []int{4, 9}, got.Table().Indices())

	p, err := got.Path(9)
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/second/y.csv", p)
}

func TestArchiveReaderOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a"+ArchiveExt)
	require.NoError(t, WriteArchive(path, sampleDataset(t, dir)))

	custom := dataset.NewReader("custom", func(context.Context, string) (map[string][]float64, error) {
		return nil, nil
	})
	got, err := ReadArchive(context.Background(), path, ArchiveOptions{Reader: custom})
	require.NoError(t, err)
	assert.Equal(t, "custom", got.Reader().Name())
}

func TestReadArchiveRejectsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "plain.csv")

	_, err := ReadArchive(context.Background(), filepath.Join(dir, "plain.csv"), ArchiveOptions{})
	assert.True(t, errors.Is(err, ErrNotArchive))
}

func TestArrowRoundTrip(t *testing.T) {
	table, err := datatable.NewFromIndexedRecords([]int{7, 3}, []datatable.Record{
		{"name": "a", "count": 1, "ok": true, "ratio": 0.5},
		{"name": "b", "count": 2, "ok": false, "ratio": nil},
	})
	require.NoError(t, err)

	arrowTable := ToArrow(table, true)
	defer arrowTable.Release()
	assert.Equal(t, IndexColumn, arrowTable.Schema().Field(0).Name)

	got, err := FromArrow(arrowTable)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 3}, got.Indices())
	assert.Equal(t, table.Columns(), got.Columns())
	assert.Equal(t, table.Records(), got.Records())

	withoutIndex := ToArrow(table, false)
	defer withoutIndex.Release()
	renumbered, err := FromArrow(withoutIndex)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, renumbered.Indices())
}

func TestToArrowMixedColumn(t *testing.T) {
	table, err := datatable.NewTable([]datatable.Column{{Name: "v", Type: datatable.TypeInt}})
	require.NoError(t, err)
	require.NoError(t, table.Append(0, []datatable.Value{datatable.NewValue(1)}))
	require.NoError(t, table.Append(1, []datatable.Value{datatable.NewValue(2.5)}))

	arrowTable := ToArrow(table, false)
	defer arrowTable.Release()

	got, err := FromArrow(arrowTable)
	require.NoError(t, err)
	values, err := got.Column("v")
	require.NoError(t, err)
	assert.Equal(t, 1.0, values[0].Raw)
	assert.Equal(t, 2.5, values[1].Raw)
}
