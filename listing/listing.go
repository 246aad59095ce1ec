// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package listing renders the contents of a directory.
package listing

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Entry describes one member of a directory.
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Renderer writes a listing of entries for the directory served at urlPath.
type Renderer interface {
	Render(w io.Writer, urlPath string, entries []Entry) error
}

// RendererFunc is a func adapter for Renderer.
type RendererFunc func(io.Writer, string, []Entry) error

// Render implements the [Renderer] interface.
func (f RendererFunc) Render(w io.Writer, urlPath string, entries []Entry) error {
	return f(w, urlPath, entries)
}

// ReadDir returns the entries of dir sorted by name. Symbolic links are
// described by their targets and dangling links are left out.
func ReadDir(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		info, err := entryInfo(dir, de)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			Name:    de.Name(),
			IsDir:   info.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

func entryInfo(dir string, de fs.DirEntry) (fs.FileInfo, error) {
	if de.Type()&fs.ModeSymlink == 0 {
		return de.Info()
	}
	return os.Stat(filepath.Join(dir, de.Name()))
}
