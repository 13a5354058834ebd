package dataset

import (
	"errors"
	"fmt"
)

// Errors returned by the dataset package. Match them with errors.Is.
var (
	// ErrConfiguration is returned for malformed construction arguments:
	// duplicate or missing path entries, unknown columns, transform and
	// option lists of different lengths.
	ErrConfiguration = errors.New("configuration error")

	// ErrSchemaMismatch is returned when data files retrieved together do
	// not share the same column set or sample count.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrEmptyGroup is returned when a reduction runs over zero members.
	ErrEmptyGroup = errors.New("empty group")
)

// DataReadError reports a failure of the configured reader on one file.
type DataReadError struct {
	// Reader is the name of the reader that failed.
	Reader string
	// Path is the resolved file path.
	Path string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *DataReadError) Error() string {
	return fmt.Sprintf("error reading %s with reader %q: %v", e.Path, e.Reader, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DataReadError) Unwrap() error {
	return e.Err
}

func configErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
