package registry

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// skipDir reports whether a directory is left out of discovery: hidden
// directories and chart exports.
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "charts"
}

// Discover returns every .csv file under root (extension matched
// case-insensitively), sorted by base filename with the full path as
// tie-breaker. root itself is never skipped.
func Discover(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && strings.HasSuffix(strings.ToLower(d.Name()), ".csv") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		bi, bj := filepath.Base(out[i]), filepath.Base(out[j])
		if bi != bj {
			return bi < bj
		}
		return out[i] < out[j]
	})
	return out, nil
}
