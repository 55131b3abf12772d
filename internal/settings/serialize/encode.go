package serialize

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"

	"github.com/tidwall/gjson"
)

var jsonMarshalerType = reflect.TypeFor[json.Marshaler]()

func encode(dst []byte, rv reflect.Value) ([]byte, error) {
	t := rv.Type()
	if c, ok := lookup(t); ok && c.serialize != nil {
		s, err := c.serialize(rv.Interface())
		if err != nil {
			return nil, err
		}
		return append(dst, s...), nil
	}
	if t.Implements(jsonMarshalerType) && t.Kind() != reflect.Interface {
		if t.Kind() == reflect.Pointer && rv.IsNil() {
			return append(dst, "null"...), nil
		}
		return encodeJSON(dst, rv)
	}

	switch t.Kind() {
	case reflect.Bool:
		return strconv.AppendBool(dst, rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.AppendInt(dst, rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.AppendUint(dst, rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %v is not representable in JSON", ErrUnsupportedType, f)
		}
		bits := 64
		if t.Kind() == reflect.Float32 {
			bits = 32
		}
		return appendFloat(dst, f, bits), nil
	case reflect.String:
		return gjson.AppendJSONString(dst, rv.String()), nil
	case reflect.Slice:
		if rv.IsNil() {
			return append(dst, "[]"...), nil
		}
		return encodeArray(dst, rv)
	case reflect.Array:
		return encodeArray(dst, rv)
	case reflect.Map:
		return encodeMap(dst, rv)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return append(dst, "null"...), nil
		}
		return encode(dst, rv.Elem())
	case reflect.Struct:
		if isTuple(t) {
			dst = append(dst, '[')
			for i, f := range tupleFields(rv) {
				if i > 0 {
					dst = append(dst, ',')
				}
				var err error
				if dst, err = encode(dst, f); err != nil {
					return nil, err
				}
			}
			return append(dst, ']'), nil
		}
		return encodeJSON(dst, rv)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

func appendFloat(dst []byte, f float64, bits int) []byte {
	// Keep a fractional marker so the value reads back as a float.
	start := len(dst)
	dst = strconv.AppendFloat(dst, f, 'g', -1, bits)
	for _, c := range dst[start:] {
		if c == '.' || c == 'e' || c == 'E' || c == 'n' || c == 'N' {
			return dst
		}
	}
	return append(dst, ".0"...)
}

func encodeArray(dst []byte, rv reflect.Value) ([]byte, error) {
	dst = append(dst, '[')
	for i := range rv.Len() {
		if i > 0 {
			dst = append(dst, ',')
		}
		var err error
		if dst, err = encode(dst, rv.Index(i)); err != nil {
			return nil, err
		}
	}
	return append(dst, ']'), nil
}

func encodeMap(dst []byte, rv reflect.Value) ([]byte, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w: map key %s", ErrUnsupportedType, rv.Type().Key())
	}
	if rv.IsNil() {
		return append(dst, "{}"...), nil
	}

	keys := rv.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		switch {
		case a.String() < b.String():
			return -1
		case a.String() > b.String():
			return 1
		}
		return 0
	})

	dst = append(dst, '{')
	for i, k := range keys {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = gjson.AppendJSONString(dst, k.String())
		dst = append(dst, ':')
		var err error
		if dst, err = encode(dst, rv.MapIndex(k)); err != nil {
			return nil, err
		}
	}
	return append(dst, '}'), nil
}

func encodeJSON(dst []byte, rv reflect.Value) ([]byte, error) {
	b, err := json.Marshal(rv.Interface())
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", rv.Type(), err)
	}
	return append(dst, b...), nil
}
