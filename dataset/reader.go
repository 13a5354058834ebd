package dataset

import "context"

// Reader loads one data file into named numeric columns. Every column of
// a file holds the same number of samples.
type Reader interface {
	// Name identifies the reader in logs and errors.
	Name() string
	// Read loads the file at path.
	Read(ctx context.Context, path string) (map[string][]float64, error)
}

// NewReader adapts a function to the Reader interface.
func NewReader(name string, fn func(ctx context.Context, path string) (map[string][]float64, error)) Reader {
	return funcReader{name: name, fn: fn}
}

type funcReader struct {
	name string
	fn   func(ctx context.Context, path string) (map[string][]float64, error)
}

func (r funcReader) Name() string { return r.name }

func (r funcReader) Read(ctx context.Context, path string) (map[string][]float64, error) {
	return r.fn(ctx, path)
}
