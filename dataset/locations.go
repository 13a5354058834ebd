package dataset

import (
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Locations maps row indices to the directory holding each row's data
// file. It is either a single directory shared by every row or an
// explicit directory to index list mapping.
type Locations struct {
	single    string
	hasSingle bool
	byIndex   map[int]string
}

// SingleDir returns locations where every row lives under dir.
func SingleDir(dir string) Locations {
	return Locations{single: dir, hasSingle: true}
}

// DirIndex returns locations built from a directory to row indices
// mapping. An index listed under two directories is a configuration
// error.
func DirIndex(dirs map[string][]int) (Locations, error) {
	l := Locations{byIndex: make(map[int]string)}
	for _, dir := range sortedDirs(dirs) {
		for _, idx := range dirs[dir] {
			if prev, dup := l.byIndex[idx]; dup {
				return Locations{}, configErrorf("index %d listed under both %q and %q", idx, prev, dir)
			}
			l.byIndex[idx] = dir
		}
	}
	return l, nil
}

func sortedDirs(dirs map[string][]int) []string {
	keys := make([]string, 0, len(dirs))
	for k := range dirs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsZero reports whether the locations were never configured.
func (l Locations) IsZero() bool {
	return !l.hasSingle && l.byIndex == nil
}

// IsSingle reports whether every row shares one directory.
func (l Locations) IsSingle() bool {
	return l.hasSingle
}

// Dir returns the directory for a row index.
func (l Locations) Dir(index int) (string, bool) {
	if l.hasSingle {
		return l.single, true
	}
	dir, ok := l.byIndex[index]
	return dir, ok
}

// Resolve joins the row's directory with filename. Object store URLs
// such as s3://bucket/prefix are joined with forward slashes.
func (l Locations) Resolve(index int, filename string) (string, error) {
	dir, ok := l.Dir(index)
	if !ok {
		return "", configErrorf("no directory for index %d", index)
	}
	if dir == "" {
		return filename, nil
	}
	if strings.Contains(dir, "://") {
		return strings.TrimSuffix(dir, "/") + "/" + path.Clean("/" + filename)[1:], nil
	}
	return filepath.Join(dir, filename), nil
}

// Mapping returns the directory to index mapping restricted to the given
// indices. Index lists are sorted.
func (l Locations) Mapping(indices []int) map[string][]int {
	out := make(map[string][]int)
	for _, idx := range indices {
		if dir, ok := l.Dir(idx); ok {
			out[dir] = append(out[dir], idx)
		}
	}
	for _, list := range out {
		sort.Ints(list)
	}
	return out
}

// Restrict returns locations covering only the given indices. A single
// directory stays a single directory.
func (l Locations) Restrict(indices []int) Locations {
	if l.hasSingle || l.byIndex == nil {
		return l
	}
	out := Locations{byIndex: make(map[int]string, len(indices))}
	for _, idx := range indices {
		if dir, ok := l.byIndex[idx]; ok {
			out.byIndex[idx] = dir
		}
	}
	return out
}

// validate checks that every index has a directory.
func (l Locations) validate(indices []int) error {
	if l.IsZero() {
		return configErrorf("locations must be a directory or a directory to index mapping")
	}
	if l.hasSingle {
		return nil
	}
	var missing []int
	for _, idx := range indices {
		if _, ok := l.byIndex[idx]; !ok {
			missing = append(missing, idx)
		}
	}
	if len(missing) > 0 {
		return configErrorf("no directory for indices %v", missing)
	}
	return nil
}
