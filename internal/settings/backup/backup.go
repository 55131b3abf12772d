// Package backup saves files atomically through a temporary file and keeps
// a fixed number of rotated copies of previous saves.
//
// Given a live file F, a save writes F.tmp, shifts F.bkp-1 .. F.bkp-(N-1)
// one slot up (dropping F.bkp-N), moves F to F.bkp-1 and finally renames
// F.tmp to F. Slot 1 always holds the most recent prior save.
package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/dshills/jsettings/internal/settings/fsutil"
)

// DefaultSlots is the number of backup slots kept by DefaultOptions.
const DefaultSlots = 3

// Options configures backup rotation.
type Options struct {
	// Enabled turns rotation on. The temporary file rename happens either way.
	Enabled bool
	// Slots is the number of backups kept. Zero or one keeps a single backup.
	Slots int
}

// DefaultOptions returns rotation enabled with DefaultSlots slots.
func DefaultOptions() Options {
	return Options{Enabled: true, Slots: DefaultSlots}
}

// Op names the step of a save that failed.
type Op string

// Save steps.
const (
	OpResolve Op = "resolve"
	OpWrite   Op = "write"
	OpRotate  Op = "rotate"
	OpRename  Op = "rename"
)

// Error describes a failed save step.
type Error struct {
	// Op is the step that failed.
	Op Op
	// Path is the file the step operated on.
	Path string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("backup %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WriteFunc produces the new file content at tmpPath.
type WriteFunc func(tmpPath string) error

// TempPath returns the temporary file used while saving path.
func TempPath(path string) string {
	return path + ".tmp"
}

// SlotPath returns the name of backup slot n (1-based) for path.
func SlotPath(path string, n int) string {
	return path + ".bkp-" + strconv.Itoa(n)
}

// SaveWithBackup writes path through write and rotates backups according
// to opts. The first failing step aborts the remaining ones; a rotation
// that fails half way leaves the already shifted slots in place.
func SaveWithBackup(path string, opts Options, write WriteFunc) error {
	realPath, err := fsutil.RealPath(path)
	if err != nil {
		return &Error{Op: OpResolve, Path: path, Err: err}
	}

	tmpPath := TempPath(path)
	if err := write(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return &Error{Op: OpWrite, Path: tmpPath, Err: err}
	}

	if opts.Enabled {
		if err := rotate(path, realPath, opts.Slots); err != nil {
			return err
		}
	}

	if err := os.Rename(tmpPath, realPath); err != nil {
		return &Error{Op: OpRename, Path: realPath, Err: err}
	}
	return nil
}

// rotate shifts existing backups up one slot, oldest first, and moves the
// live file into slot 1.
func rotate(path, realPath string, slots int) error {
	if slots > 1 {
		top, err := fsutil.RealPath(SlotPath(path, slots))
		if err != nil {
			return &Error{Op: OpResolve, Path: SlotPath(path, slots), Err: err}
		}
		if err := os.Remove(top); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &Error{Op: OpRotate, Path: top, Err: err}
		}

		for slot := slots - 1; slot >= 1; slot-- {
			from, err := fsutil.RealPath(SlotPath(path, slot))
			if err != nil {
				return &Error{Op: OpResolve, Path: SlotPath(path, slot), Err: err}
			}
			to, err := fsutil.RealPath(SlotPath(path, slot+1))
			if err != nil {
				return &Error{Op: OpResolve, Path: SlotPath(path, slot+1), Err: err}
			}
			if !fsutil.Exists(from) {
				continue
			}
			if err := os.Rename(from, to); err != nil {
				return &Error{Op: OpRotate, Path: from, Err: err}
			}
		}
	}

	if !fsutil.Exists(realPath) {
		return nil
	}
	first := SlotPath(path, 1)
	if err := os.Rename(realPath, first); err != nil {
		return &Error{Op: OpRotate, Path: realPath, Err: err}
	}
	return nil
}

// WriteFile is a WriteFunc body that writes data to path and syncs it.
func WriteFile(path string, data []byte, perm fs.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
