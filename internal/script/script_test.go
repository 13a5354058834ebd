package script

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/measureset/dataset"
)

const mapperSrc = `package mapper

import (
	"fmt"
	"strings"
)

func Map(filename string) (map[string]interface{}, error) {
	parts := strings.Split(strings.TrimSuffix(filename, ".csv"), "_")
	if len(parts) != 2 {
		return nil, fmt.Errorf("unexpected name %q", filename)
	}
	return map[string]interface{}{"filename": filename, "sample": parts[0], "run": parts[1]}, nil
}
`

const pathMapperSrc = `package mapper

func MapPath(filename, dir string) (map[string]interface{}, error) {
	return map[string]interface{}{"filename": filename, "dir": dir}, nil
}
`

const transformSrc = `package steps

import "fmt"

func Scale(data map[string][][]float64, opts map[string]interface{}) (map[string][][]float64, error) {
	factor := 2.0
	if f, ok := opts["factor"].(float64); ok {
		factor = f
	}
	out := make(map[string][][]float64, len(data))
	for name, rows := range data {
		scaled := make([][]float64, len(rows))
		for i, row := range rows {
			scaled[i] = make([]float64, len(row))
			for j, v := range row {
				scaled[i][j] = v * factor
			}
		}
		out[name] = scaled
	}
	return out, nil
}

func Fail(data map[string][][]float64, opts map[string]interface{}) (map[string][][]float64, error) {
	return nil, fmt.Errorf("always fails")
}

func Wrong(x int) int { return x }
`

func writeScript(t *testing.T, src string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "script.go")
	require.NoError(t, os.WriteFile(p, []byte(src), 0o644))
	return p
}

func TestLoadMapper(t *testing.T) {
	m, err := LoadMapper(writeScript(t, mapperSrc))
	require.NoError(t, err)

	meta, err := m("A_3.csv", "/data")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"filename": "A_3.csv", "sample": "A", "run": "3"}, meta)

	_, err = m("broken.csv", "/data")
	assert.Error(t, err)
}

func TestLoadMapperWithPath(t *testing.T) {
	m, err := LoadMapper(writeScript(t, pathMapperSrc))
	require.NoError(t, err)

	meta, err := m("a.csv", "/data")
	require.NoError(t, err)
	assert.Equal(t, "/data", meta["dir"])
}

func TestLoadMapperMissing(t *testing.T) {
	_, err := LoadMapper(writeScript(t, transformSrc))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTransform(t *testing.T) {
	s, err := Load(writeScript(t, transformSrc))
	require.NoError(t, err)
	assert.Equal(t, "steps", s.Package())

	scale, err := s.Transform("Scale")
	require.NoError(t, err)

	m, err := dataset.NewMatrix([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	in := dataset.Data{"m": m, "v": dataset.NewVector([]float64{1, 2})}

	out, err := scale(in, dataset.Options{"factor": 10.0})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{10, 20}, {30, 40}}, out["m"].Rows())
	assert.True(t, out["v"].IsVector())
	assert.Equal(t, []float64{10, 20}, out["v"].Values())

	_, err = s.Transform("Wrong")
	assert.Error(t, err)
	_, err = s.Transform("Absent")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStepsApply(t *testing.T) {
	s, err := Load(writeScript(t, transformSrc))
	require.NoError(t, err)

	steps, err := s.Steps("Scale", "Scale")
	require.NoError(t, err)

	g := dataset.NewGrouped([]dataset.Entry{{Definition: dataset.Definition{}, Data: dataset.Data{"v": dataset.NewVector([]float64{1, 2})}}})
	out, err := g.Apply(steps, false)
	require.NoError(t, err)
	e, ok := out.Entry(0)
	require.True(t, ok)
	assert.Equal(t, []float64{4, 8}, e.Data["v"].Values())

	fail, err := s.Steps("Fail")
	require.NoError(t, err)
	_, err = g.Apply(fail, false)
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("bad.go", "not go at all")
	assert.Error(t, err)

	_, err = Parse("undefined.go", "package x\nfunc F() int { return y }\n")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.go"))
	assert.Error(t, err)
}
