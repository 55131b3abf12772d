// Package fsutil provides file system helpers for settings documents.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	mapset "github.com/deckarep/golang-set/v2"
)

// ErrTooManyLinks is returned when a symlink chain loops back on itself.
// It matches syscall.ELOOP.
var ErrTooManyLinks = fmt.Errorf("too many levels of symbolic links: %w", syscall.ELOOP)

// LinkError describes a failure while following a symlink chain.
type LinkError struct {
	// Path is the link being resolved when the failure occurred.
	Path string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LinkError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *LinkError) Unwrap() error {
	return e.Err
}

// RealPath follows every symlink in the chain starting at path and returns
// the final target. The target does not need to exist; a path that does not
// exist is returned as is. Cycles return an error matching ErrTooManyLinks.
//
// Only the last path element is followed; symlinked parent directories are
// left to the OS.
func RealPath(path string) (string, error) {
	current := filepath.Clean(path)
	visited := mapset.NewThreadUnsafeSet[string]()

	for {
		info, err := os.Lstat(current)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return current, nil
			}
			return "", &LinkError{Path: current, Err: err}
		}
		if info.Mode()&fs.ModeSymlink == 0 {
			return current, nil
		}

		key := current
		if abs, err := filepath.Abs(current); err == nil {
			key = abs
		}
		if !visited.Add(key) {
			return "", &LinkError{Path: path, Err: ErrTooManyLinks}
		}

		target, err := os.Readlink(current)
		if err != nil {
			return "", &LinkError{Path: current, Err: err}
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(current), target)
		}
		current = filepath.Clean(target)
	}
}

// Exists reports whether path exists without following a final symlink.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
