// Package serialize converts typed Go values to JSON text and back.
//
// Scalars, strings, slices, arrays, string-keyed maps, pointers, Pair and
// dynamic (interface) values are handled natively. Other structs go through
// encoding/json. Custom types plug in with Register, which takes precedence
// over every built-in rule, including when the type is nested inside a
// container.
package serialize

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/tidwall/gjson"
)

// Errors returned by conversions.
var (
	// ErrTypeMismatch indicates the JSON value cannot represent the target type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnsupportedType indicates a Go type with no JSON representation.
	ErrUnsupportedType = errors.New("unsupported type")
)

// TypeError is returned when a JSON value does not fit the requested type.
type TypeError struct {
	// Expected is the Go type being produced.
	Expected string
	// Actual describes the JSON value that was found.
	Actual string
	// Reason is an optional detail.
	Reason string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot deserialize %s into %s: %s", e.Actual, e.Expected, e.Reason)
	}
	return fmt.Sprintf("cannot deserialize %s into %s", e.Actual, e.Expected)
}

// Is implements error matching for TypeError.
func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// Rounding selects how floating point JSON numbers narrow into integers.
type Rounding uint8

const (
	// RoundNearest rounds half away from zero.
	RoundNearest Rounding = iota
	// RoundCeil rounds toward positive infinity.
	RoundCeil
	// RoundFloor rounds toward negative infinity.
	RoundFloor
	// RoundTruncate rounds toward zero.
	RoundTruncate
)

// String returns the rounding mode name.
func (r Rounding) String() string {
	switch r {
	case RoundNearest:
		return "nearest"
	case RoundCeil:
		return "ceil"
	case RoundFloor:
		return "floor"
	case RoundTruncate:
		return "truncate"
	default:
		return "unknown"
	}
}

// ParseRounding parses a rounding mode name.
func ParseRounding(s string) (Rounding, error) {
	switch s {
	case "nearest", "round", "":
		return RoundNearest, nil
	case "ceil":
		return RoundCeil, nil
	case "floor":
		return RoundFloor, nil
	case "truncate":
		return RoundTruncate, nil
	}
	return RoundNearest, fmt.Errorf("unknown rounding mode %q", s)
}

// Options tunes deserialization.
type Options struct {
	Rounding Rounding
}

// Codec converts values of one custom type.
type Codec[T any] struct {
	// Serialize returns the JSON text for a value.
	Serialize func(v T) (string, error)
	// Deserialize builds a value from JSON.
	Deserialize func(r gjson.Result, opts Options) (T, error)
	// Equal compares two values. Optional; nil keeps the built-in rule.
	Equal func(a, b T) bool
}

type erasedCodec struct {
	serialize   func(v any) (string, error)
	deserialize func(r gjson.Result, opts Options) (any, error)
	equal       func(a, b any) bool
}

var registry = struct {
	sync.RWMutex
	codecs map[reflect.Type]erasedCodec
}{codecs: make(map[reflect.Type]erasedCodec)}

// Register installs c for T, replacing any earlier registration. Either
// conversion function may be nil to keep the built-in behavior for that
// direction.
func Register[T any](c Codec[T]) {
	var ec erasedCodec
	if c.Serialize != nil {
		ec.serialize = func(v any) (string, error) { return c.Serialize(v.(T)) }
	}
	if c.Deserialize != nil {
		ec.deserialize = func(r gjson.Result, opts Options) (any, error) {
			v, err := c.Deserialize(r, opts)
			return v, err
		}
	}
	if c.Equal != nil {
		ec.equal = func(a, b any) bool { return c.Equal(a.(T), b.(T)) }
	}

	registry.Lock()
	defer registry.Unlock()
	registry.codecs[reflect.TypeFor[T]()] = ec
}


func lookup(t reflect.Type) (erasedCodec, bool) {
	registry.RLock()
	defer registry.RUnlock()
	c, ok := registry.codecs[t]
	return c, ok
}

// Serialize returns the JSON text for v.
func Serialize[T any](v T) (string, error) {
	t := reflect.TypeFor[T]()
	if c, ok := lookup(t); ok && c.serialize != nil {
		return c.serialize(v)
	}
	b, err := encode(nil, reflect.ValueOf(&v).Elem())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Deserialize builds a T from r. On error the zero T is returned.
func Deserialize[T any](r gjson.Result, opts Options) (T, error) {
	var out T
	if !r.Exists() {
		return out, &TypeError{Expected: reflect.TypeFor[T]().String(), Actual: "missing value"}
	}
	if err := decode(r, reflect.ValueOf(&out).Elem(), opts); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// DeserializeString parses JSON text and builds a T from it.
func DeserializeString[T any](raw string, opts Options) (T, error) {
	if !gjson.Valid(raw) {
		var zero T
		return zero, &TypeError{Expected: reflect.TypeFor[T]().String(), Actual: "invalid JSON"}
	}
	return Deserialize[T](gjson.Parse(raw), opts)
}

// kindOf names a JSON value for error messages.
func kindOf(r gjson.Result) string {
	switch {
	case !r.Exists():
		return "missing value"
	case r.IsObject():
		return "object"
	case r.IsArray():
		return "array"
	}
	switch r.Type {
	case gjson.Null:
		return "null"
	case gjson.False, gjson.True:
		return "bool"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	}
	return "value"
}
