package catalog

import "errors"

var (
	// ErrExists is returned by Save when the metadata file already exists
	// and overwriting was not requested.
	ErrExists = errors.New("metadata file already exists")

	// ErrNoMetadata is reported by Load when a directory has no metadata
	// file. Load still returns an empty dataset.
	ErrNoMetadata = errors.New("no metadata file")

	// ErrMissingPointerColumn is reported when generated metadata has no
	// pointer column, which makes data retrieval impossible.
	ErrMissingPointerColumn = errors.New("metadata has no pointer column")

	// ErrNotArchive is returned when a file lacks the archive markers.
	ErrNotArchive = errors.New("not a measureset archive")
)
