// Package fs provides the real filesystem adapter for the stat cache.
package fs

import (
	"errors"
	"io/fs"
	"os"

	"go.trai.ch/zerr"
)

// FileSystem implements ports.FileSystem using os.Stat.
type FileSystem struct{}

// New creates a new FileSystem.
func New() *FileSystem {
	return &FileSystem{}
}

// Stat returns the mtime of path in unix seconds. A missing file is not an
// error; it reports mtime 0.
func (f *FileSystem) Stat(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, zerr.With(zerr.Wrap(err, "stat failed"), "path", path)
	}
	return info.ModTime().Unix(), nil
}
