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

// Package script loads metadata mappers and data transforms from Go
// source files interpreted at run time.
//
// A mapper script declares
//
//	func Map(filename string) (map[string]interface{}, error)
//
// or, when it needs the directory too,
//
//	func MapPath(filename, dir string) (map[string]interface{}, error)
//
// A transform script declares any number of functions of the form
//
//	func Name(data map[string][][]float64, opts map[string]interface{}) (map[string][][]float64, error)
package script

import (
	"bytes"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io"
	"os"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/magpierre/measureset/catalog"
	"github.com/magpierre/measureset/dataset"
)

// ErrNotFound is returned when a script lacks the requested function.
var ErrNotFound = errors.New("function not found in script")

// Names of the mapper entry points.
const (
	MapFunc     = "Map"
	MapPathFunc = "MapPath"
)

type (
	mapFunc       = func(string) (map[string]interface{}, error)
	mapPathFunc   = func(string, string) (map[string]interface{}, error)
	transformFunc = func(map[string][][]float64, map[string]interface{}) (map[string][][]float64, error)
)

// Script is an interpreted source file.
type Script struct {
	path   string
	pkg    string
	interp *interp.Interpreter
	output *bytes.Buffer
}

// Option configures Load.
type Option func(*interp.Options)

// WithOutput sends what the script prints to w instead of keeping it in
// memory.
func WithOutput(w io.Writer) Option {
	return func(o *interp.Options) {
		o.Stdout = w
		o.Stderr = w
	}
}

// Load reads and evaluates the script at path.
func Load(path string, opts ...Option) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Parse(path, string(src), opts...)
}

// Parse evaluates src. name is only used in messages.
func Parse(name, src string, opts ...Option) (*Script, error) {
	f, err := parser.ParseFile(token.NewFileSet(), name, src, parser.PackageClauseOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	var output bytes.Buffer
	options := interp.Options{Stdout: &output, Stderr: &output}
	for _, opt := range opts {
		opt(&options)
	}

	i := interp.New(options)
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("error loading stdlib: %w", err)
	}
	if _, err := i.Eval(src); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &Script{path: name, pkg: f.Name.Name, interp: i, output: &output}, nil
}

// Package returns the package name declared by the script.
func (s *Script) Package() string {
	return s.pkg
}

// Output returns what the script printed so far, unless WithOutput was
// given.
func (s *Script) Output() string {
	return s.output.String()
}

func (s *Script) lookup(name string) (interface{}, error) {
	v, err := s.interp.Eval(s.pkg + "." + name)
	if err != nil || !v.IsValid() {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, s.path)
	}
	return v.Interface(), nil
}

// Mapper returns the script's MapPath function, or its Map function when
// there is no MapPath.
func (s *Script) Mapper() (catalog.Mapper, error) {
	if fn, err := s.lookup(MapPathFunc); err == nil {
		mp, ok := fn.(mapPathFunc)
		if !ok {
			return nil, fmt.Errorf("%s has type %T, want func(string, string) (map[string]interface{}, error)", MapPathFunc, fn)
		}
		return catalog.Mapper(mp), nil
	}

	fn, err := s.lookup(MapFunc)
	if err != nil {
		return nil, err
	}
	m, ok := fn.(mapFunc)
	if !ok {
		return nil, fmt.Errorf("%s has type %T, want func(string) (map[string]interface{}, error)", MapFunc, fn)
	}
	return catalog.FileMapper(m), nil
}

// Transform returns the named function as a dataset transform.
func (s *Script) Transform(name string) (dataset.Transform, error) {
	fn, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	t, ok := fn.(transformFunc)
	if !ok {
		return nil, fmt.Errorf("%s has type %T, want func(map[string][][]float64, map[string]interface{}) (map[string][][]float64, error)", name, fn)
	}
	return wrapTransform(t), nil
}

// Steps returns one step per name, in order.
func (s *Script) Steps(names ...string) ([]dataset.Step, error) {
	steps := make([]dataset.Step, len(names))
	for i, name := range names {
		t, err := s.Transform(name)
		if err != nil {
			return nil, err
		}
		steps[i] = dataset.Step{Name: name, Transform: t}
	}
	return steps, nil
}

// LoadMapper loads the mapper of the script at path.
func LoadMapper(path string) (catalog.Mapper, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	return s.Mapper()
}

// LoadTransform loads the named transform of the script at path.
func LoadTransform(path, name string) (dataset.Transform, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	return s.Transform(name)
}

// wrapTransform converts arrays to rows and back. Vectors travel as a
// single row and stay vectors when a single row comes back.
func wrapTransform(fn transformFunc) dataset.Transform {
	return func(data dataset.Data, opts dataset.Options) (dataset.Data, error) {
		in := make(map[string][][]float64, len(data))
		for name, a := range data {
			in[name] = a.Rows()
		}
		out, err := fn(in, map[string]interface{}(opts))
		if err != nil {
			return nil, err
		}
		if out == nil {
			return nil, nil
		}

		result := make(dataset.Data, len(out))
		for name, rows := range out {
			if prev, ok := data[name]; ok && prev.IsVector() && len(rows) == 1 {
				result[name] = dataset.NewVector(rows[0])
				continue
			}
			a, err := dataset.NewMatrix(rows)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
			result[name] = a
		}
		return result, nil
	}
}
