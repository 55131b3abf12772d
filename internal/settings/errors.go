package settings

import (
	"errors"
	"fmt"

	"github.com/dshills/jsettings/internal/settings/jsondoc"
)

// Errors returned by settings operations.
var (
	// ErrExpired indicates the setting's node was removed or its manager closed.
	ErrExpired = errors.New("setting expired")

	// ErrInvalidPointer indicates a malformed JSON Pointer path.
	ErrInvalidPointer = jsondoc.ErrInvalidPointer

	// ErrManagerClosed indicates an operation on a closed manager.
	ErrManagerClosed = errors.New("settings manager closed")

	// ErrNotArray indicates an array operation on a non-array value.
	ErrNotArray = errors.New("value is not an array")

	// ErrCannotOpenFile indicates the settings file could not be opened.
	ErrCannotOpenFile = errors.New("cannot open settings file")

	// ErrFileHandle indicates the settings file could not be resolved or read.
	ErrFileHandle = errors.New("settings file handle error")

	// ErrJSONParse indicates the settings file is not a JSON object.
	ErrJSONParse = errors.New("settings file is not a valid JSON object")

	// ErrSaveFromTemporaryFile indicates a document recovered from the
	// temporary file could not be written back to the primary path.
	ErrSaveFromTemporaryFile = errors.New("cannot save settings recovered from temporary file")
)

// LoadErrorKind categorizes load failures.
type LoadErrorKind uint8

const (
	// LoadErrorCannotOpenFile means the file could not be opened.
	LoadErrorCannotOpenFile LoadErrorKind = iota + 1
	// LoadErrorFileHandle means resolving, sizing or reading the file failed.
	LoadErrorFileHandle
	// LoadErrorJSONParse means the content is not JSON or its root is not an object.
	LoadErrorJSONParse
	// LoadErrorSaveFromTemporaryFile means the recovered document could not be persisted.
	LoadErrorSaveFromTemporaryFile
)

// String returns a human-readable name for the kind.
func (k LoadErrorKind) String() string {
	switch k {
	case LoadErrorCannotOpenFile:
		return "cannot_open_file"
	case LoadErrorFileHandle:
		return "file_handle_error"
	case LoadErrorJSONParse:
		return "json_parse_error"
	case LoadErrorSaveFromTemporaryFile:
		return "save_from_temporary_file_failed"
	default:
		return "unknown"
	}
}

func (k LoadErrorKind) sentinel() error {
	switch k {
	case LoadErrorCannotOpenFile:
		return ErrCannotOpenFile
	case LoadErrorFileHandle:
		return ErrFileHandle
	case LoadErrorJSONParse:
		return ErrJSONParse
	case LoadErrorSaveFromTemporaryFile:
		return ErrSaveFromTemporaryFile
	}
	return nil
}

// LoadError describes a failed load. It matches the sentinel for its kind.
type LoadError struct {
	// Kind categorizes the failure.
	Kind LoadErrorKind
	// Path is the file being loaded.
	Path string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load %s: %s", e.Path, e.Kind.sentinel())
	}
	return fmt.Sprintf("load %s: %s: %v", e.Path, e.Kind.sentinel(), e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is implements error matching for LoadError.
func (e *LoadError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// SaveErrorKind categorizes save failures.
type SaveErrorKind uint8

const (
	// SaveErrorResolve means a path could not be resolved.
	SaveErrorResolve SaveErrorKind = iota + 1
	// SaveErrorWrite means the temporary file could not be written.
	SaveErrorWrite
	// SaveErrorRename means rotating backups or replacing the live file failed.
	SaveErrorRename
)

// String returns a human-readable name for the kind.
func (k SaveErrorKind) String() string {
	switch k {
	case SaveErrorResolve:
		return "resolve"
	case SaveErrorWrite:
		return "write"
	case SaveErrorRename:
		return "rename"
	default:
		return "unknown"
	}
}

// SaveError describes a failed save.
type SaveError struct {
	// Kind categorizes the failure.
	Kind SaveErrorKind
	// Path is the file being saved.
	Path string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s: %s failed: %v", e.Path, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *SaveError) Unwrap() error {
	return e.Err
}

// ExpiredError is returned when a handle's node or manager is gone.
type ExpiredError struct {
	// Path is the setting path.
	Path string
}

// Error implements the error interface.
func (e *ExpiredError) Error() string {
	return fmt.Sprintf("setting %s: %v", e.Path, ErrExpired)
}

// Is implements error matching for ExpiredError.
func (e *ExpiredError) Is(target error) bool {
	return target == ErrExpired
}
