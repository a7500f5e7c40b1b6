// Package archive locates the inputs of a run in a package directory: the
// upstream source archive and the spec files to synchronize.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoArchiveFound is returned when a directory holds no source archive.
var ErrNoArchiveFound = errors.New("no archive found")

const (
	archivePattern  = "*.tar.*"
	specFilePattern = "*.spec"
)

// Select returns the path of the most recently modified "*.tar.*" file in
// dir. Entries with the same modification time are ordered by name and the
// last one wins.
func Select(dir string) (string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), archivePattern)
	if err != nil {
		return "", fmt.Errorf("globbing archives: %w", err)
	}

	type candidate struct {
		name string
		info fs.FileInfo
	}
	var candidates []candidate
	for _, name := range matches {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("inspecting archive %s: %w", name, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		candidates = append(candidates, candidate{name: name, info: info})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoArchiveFound, dir)
	}

	sort.Slice(candidates, func(i, j int) bool {
		ti, tj := candidates[i].info.ModTime(), candidates[j].info.ModTime()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return candidates[i].name < candidates[j].name
	})
	return filepath.Join(dir, candidates[len(candidates)-1].name), nil
}

// SpecFiles returns the paths of all "*.spec" files in dir, sorted by name.
func SpecFiles(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), specFilePattern)
	if err != nil {
		return nil, fmt.Errorf("globbing spec files: %w", err)
	}
	sort.Strings(matches)

	paths := make([]string, 0, len(matches))
	for _, name := range matches {
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}
