// Package jsondoc holds a JSON document as text and addresses it with
// JSON Pointers (RFC 6901).
//
// Reads go through gjson, writes and deletions through sjson and the
// pretty-printed form through pretty. A Document is not safe for
// concurrent use; callers guard it with their own lock.
package jsondoc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Errors returned by document operations.
var (
	// ErrInvalidJSON indicates the input is not valid JSON text.
	ErrInvalidJSON = errors.New("invalid JSON")

	// ErrNotObject indicates the root of a document is not an object.
	ErrNotObject = errors.New("document root is not an object")

	// ErrInvalidPointer indicates a malformed JSON Pointer.
	ErrInvalidPointer = errors.New("invalid JSON pointer")

	// ErrRootWrite indicates an attempt to replace or delete the root.
	ErrRootWrite = errors.New("cannot write the document root")
)

// PointerError describes a malformed pointer.
type PointerError struct {
	Pointer string
	Reason  string
}

// Error implements the error interface.
func (e *PointerError) Error() string {
	return fmt.Sprintf("invalid JSON pointer %q: %s", e.Pointer, e.Reason)
}

// Is implements error matching for PointerError.
func (e *PointerError) Is(target error) bool {
	return target == ErrInvalidPointer
}

// Indent is the indentation used by Pretty.
const Indent = "    "

var prettyOptions = &pretty.Options{
	Width:    80,
	Prefix:   "",
	Indent:   Indent,
	SortKeys: false,
}

var emptyObject = []byte("{}")

// Document is a JSON object held as text.
type Document struct {
	data []byte
}

// New returns an empty object document.
func New() *Document {
	return &Document{data: bytes.Clone(emptyObject)}
}

// Parse validates data and returns a document over a copy of it.
// The root must be an object.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, ErrNotObject
	}
	return &Document{data: bytes.Clone(data)}, nil
}

// Bytes returns the compact document text. The slice must not be modified.
func (d *Document) Bytes() []byte {
	return d.data
}

// String returns the document text.
func (d *Document) String() string {
	return string(d.data)
}

// Pretty returns the document indented for humans.
func (d *Document) Pretty() []byte {
	return pretty.PrettyOptions(d.data, prettyOptions)
}

// Root returns the whole document as a result.
func (d *Document) Root() gjson.Result {
	return gjson.ParseBytes(d.data)
}

// Get returns the value at ptr. A missing value yields a result whose
// Exists method reports false.
func (d *Document) Get(ptr string) (gjson.Result, error) {
	tokens, err := Split(ptr)
	if err != nil {
		return gjson.Result{}, err
	}
	if len(tokens) == 0 {
		return d.Root(), nil
	}
	return d.lookup(tokens), nil
}

// Has reports whether a value exists at ptr.
func (d *Document) Has(ptr string) bool {
	r, err := d.Get(ptr)
	return err == nil && r.Exists()
}

// Set writes raw JSON text at ptr, creating missing parents. Numeric
// tokens under a missing parent create arrays.
func (d *Document) Set(ptr string, raw string) error {
	tokens, err := Split(ptr)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return ErrRootWrite
	}
	if !gjson.Valid(raw) {
		return fmt.Errorf("value for %s: %w", ptr, ErrInvalidJSON)
	}
	out, err := sjson.SetRawBytes(d.data, toPath(tokens), []byte(raw))
	if err != nil {
		return fmt.Errorf("setting %s: %w", ptr, err)
	}
	d.data = out
	return nil
}

// Delete removes the value at ptr and reports whether something was
// removed.
func (d *Document) Delete(ptr string) (bool, error) {
	tokens, err := Split(ptr)
	if err != nil {
		return false, err
	}
	if len(tokens) == 0 {
		return false, ErrRootWrite
	}
	if !d.lookup(tokens).Exists() {
		return false, nil
	}
	out, err := sjson.DeleteBytes(d.data, toPath(tokens))
	if err != nil {
		return false, fmt.Errorf("deleting %s: %w", ptr, err)
	}
	d.data = out
	return true, nil
}

// ArraySize returns the number of elements of the array at ptr, or 0 when
// the value is missing or not an array.
func (d *Document) ArraySize(ptr string) int {
	r, err := d.Get(ptr)
	if err != nil || !r.IsArray() {
		return 0
	}
	return int(r.Get("#").Int())
}

// Reset empties the document.
func (d *Document) Reset() {
	d.data = bytes.Clone(emptyObject)
}

func (d *Document) lookup(tokens []string) gjson.Result {
	return gjson.GetBytes(d.data, toPath(tokens))
}
