// Package source supplies ordered file records to the build orchestrator.
// Discovery and reading stay outside the pipeline core; the orchestrator
// only ever consumes the Source interface.
package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/transmute/transmute/pkg/types"
)

// Source produces a lazy, finite, ordered sequence of file records.
// Next returns nil, nil once the sequence is exhausted.
type Source interface {
	Next() (*types.File, error)
}

// Slice serves an in-memory file list, mostly for tests and for re-feeding
// phase output back into the worker pool.
type Slice struct {
	files []*types.File
	pos   int
}

// FromSlice creates a source over the given files
func FromSlice(files []*types.File) *Slice {
	return &Slice{files: files}
}

// Next returns the next file in order
func (s *Slice) Next() (*types.File, error) {
	if s.pos >= len(s.files) {
		return nil, nil
	}
	f := s.files[s.pos]
	s.pos++
	return f, nil
}

// Dir reads a directory tree in deterministic path order. Paths inside the
// produced records are relative to the root.
type Dir struct {
	root  string
	paths []string
	pos   int
}

// FromDir creates a source over all regular files under root.
func FromDir(root string) (*Dir, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan source dir %s: %w", root, err)
	}

	sort.Strings(paths)

	return &Dir{root: root, paths: paths}, nil
}

// Next reads and returns the next file in path order
func (d *Dir) Next() (*types.File, error) {
	if d.pos >= len(d.paths) {
		return nil, nil
	}
	rel := d.paths[d.pos]
	d.pos++

	full := filepath.Join(d.root, filepath.FromSlash(rel))
	contents, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
	}

	f := types.NewFile(rel, contents)
	f.ModifiedAt = info.ModTime()
	return f, nil
}

// Collect drains a source into an ordered slice.
func Collect(s Source) ([]*types.File, error) {
	var files []*types.File
	for {
		f, err := s.Next()
		if err != nil {
			return nil, err
		}
		if f == nil {
			return files, nil
		}
		files = append(files, f)
	}
}
