package serialize

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var jsonUnmarshalerType = reflect.TypeFor[json.Unmarshaler]()

// decode stores r into rv, which must be settable.
func decode(r gjson.Result, rv reflect.Value, opts Options) error {
	t := rv.Type()
	if c, ok := lookup(t); ok && c.deserialize != nil {
		v, err := c.deserialize(r, opts)
		if err != nil {
			return err
		}
		if v == nil {
			rv.SetZero()
			return nil
		}
		rv.Set(reflect.ValueOf(v))
		return nil
	}
	if t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(jsonUnmarshalerType) {
		return decodeJSON(r, rv)
	}

	mismatch := func(reason string) error {
		return &TypeError{Expected: t.String(), Actual: kindOf(r), Reason: reason}
	}

	switch t.Kind() {
	case reflect.Bool:
		switch {
		case r.Type == gjson.True || r.Type == gjson.False:
			rv.SetBool(r.Bool())
		case r.Type == gjson.Number && isIntegral(r.Raw):
			rv.SetBool(r.Int() == 1)
		default:
			return mismatch("")
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if r.Type != gjson.Number {
			return mismatch("")
		}
		var n int64
		if isIntegral(r.Raw) {
			i, err := strconv.ParseInt(r.Raw, 10, 64)
			if err != nil {
				return mismatch("out of range")
			}
			n = i
		} else {
			f := roundFloat(r.Float(), opts.Rounding)
			if f < math.MinInt64 || f >= math.MaxInt64 {
				return mismatch("out of range")
			}
			n = int64(f)
		}
		if rv.OverflowInt(n) {
			return mismatch("out of range")
		}
		rv.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if r.Type != gjson.Number {
			return mismatch("")
		}
		var n uint64
		if isIntegral(r.Raw) {
			u, err := strconv.ParseUint(r.Raw, 10, 64)
			if err != nil {
				return mismatch("out of range")
			}
			n = u
		} else {
			f := roundFloat(r.Float(), opts.Rounding)
			if f < 0 || f >= math.MaxUint64 {
				return mismatch("out of range")
			}
			n = uint64(f)
		}
		if rv.OverflowUint(n) {
			return mismatch("out of range")
		}
		rv.SetUint(n)

	case reflect.Float32, reflect.Float64:
		if r.Type != gjson.Number {
			return mismatch("")
		}
		rv.SetFloat(r.Float())

	case reflect.String:
		if r.Type != gjson.String {
			return mismatch("")
		}
		rv.SetString(r.Str)

	case reflect.Slice:
		if !r.IsArray() {
			return mismatch("")
		}
		elems := r.Array()
		out := reflect.MakeSlice(t, len(elems), len(elems))
		for i, e := range elems {
			if err := decode(e, out.Index(i), opts); err != nil {
				return err
			}
		}
		rv.Set(out)

	case reflect.Array:
		if !r.IsArray() {
			return mismatch("")
		}
		elems := r.Array()
		if len(elems) != t.Len() {
			return mismatch("expected " + strconv.Itoa(t.Len()) + " elements")
		}
		for i, e := range elems {
			if err := decode(e, rv.Index(i), opts); err != nil {
				return err
			}
		}

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return mismatch("map key must be a string")
		}
		if !r.IsObject() {
			return mismatch("")
		}
		out := reflect.MakeMap(t)
		var err error
		r.ForEach(func(k, v gjson.Result) bool {
			ev := reflect.New(t.Elem()).Elem()
			if err = decode(v, ev, opts); err != nil {
				return false
			}
			kv := reflect.New(t.Key()).Elem()
			kv.SetString(k.String())
			out.SetMapIndex(kv, ev)
			return true
		})
		if err != nil {
			return err
		}
		rv.Set(out)

	case reflect.Pointer:
		if r.Type == gjson.Null {
			rv.SetZero()
			return nil
		}
		p := reflect.New(t.Elem())
		if err := decode(r, p.Elem(), opts); err != nil {
			return err
		}
		rv.Set(p)

	case reflect.Interface:
		if t.NumMethod() != 0 {
			return mismatch("non-empty interface")
		}
		v := Dynamic(r)
		if v == nil {
			rv.SetZero()
			return nil
		}
		rv.Set(reflect.ValueOf(v))

	case reflect.Struct:
		if isTuple(t) {
			if !r.IsArray() {
				return mismatch("")
			}
			elems := r.Array()
			fields := tupleFields(rv)
			if len(elems) != len(fields) {
				return mismatch("expected " + strconv.Itoa(len(fields)) + " elements")
			}
			for i, f := range fields {
				if err := decode(elems[i], f, opts); err != nil {
					return err
				}
			}
			return nil
		}
		return decodeJSON(r, rv)

	default:
		return mismatch("unsupported type")
	}
	return nil
}

func decodeJSON(r gjson.Result, rv reflect.Value) error {
	p := reflect.New(rv.Type())
	if err := json.Unmarshal([]byte(r.Raw), p.Interface()); err != nil {
		return &TypeError{Expected: rv.Type().String(), Actual: kindOf(r), Reason: err.Error()}
	}
	rv.Set(p.Elem())
	return nil
}

// Dynamic converts r into plain Go values: nil, bool, int for integral
// numbers that fit, float64 for other numbers, string, []any and
// map[string]any.
func Dynamic(r gjson.Result) any {
	switch {
	case !r.Exists():
		return nil
	case r.IsObject():
		m := make(map[string]any)
		r.ForEach(func(k, v gjson.Result) bool {
			m[k.String()] = Dynamic(v)
			return true
		})
		return m
	case r.IsArray():
		elems := r.Array()
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = Dynamic(e)
		}
		return out
	}

	switch r.Type {
	case gjson.True, gjson.False:
		return r.Bool()
	case gjson.String:
		return r.Str
	case gjson.Number:
		if isIntegral(r.Raw) {
			if i, err := strconv.ParseInt(r.Raw, 10, 0); err == nil {
				return int(i)
			}
		}
		return r.Float()
	}
	return nil
}

// isIntegral reports whether a JSON number literal has no fraction or
// exponent.
func isIntegral(raw string) bool {
	return raw != "" && !strings.ContainsAny(raw, ".eE")
}

func roundFloat(f float64, mode Rounding) float64 {
	switch mode {
	case RoundCeil:
		return math.Ceil(f)
	case RoundFloor:
		return math.Floor(f)
	case RoundTruncate:
		return math.Trunc(f)
	default:
		return math.Round(f)
	}
}
