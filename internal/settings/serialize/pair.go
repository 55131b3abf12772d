package serialize

import "reflect"

// Pair is serialized as a two element JSON array.
type Pair[A, B any] struct {
	First  A
	Second B
}

// MakePair builds a Pair.
func MakePair[A, B any](first A, second B) Pair[A, B] {
	return Pair[A, B]{First: first, Second: second}
}

func (p *Pair[A, B]) tupleFields() []any {
	return []any{&p.First, &p.Second}
}

// tuple is implemented by pointers to fixed-size heterogeneous values
// encoded as JSON arrays.
type tuple interface {
	tupleFields() []any
}

var tupleType = reflect.TypeFor[tuple]()

// tupleFields returns settable element values of a tuple struct value.
func tupleFields(rv reflect.Value) []reflect.Value {
	ptr := rv
	if rv.CanAddr() {
		ptr = rv.Addr()
	} else {
		ptr = reflect.New(rv.Type())
		ptr.Elem().Set(rv)
	}
	fields := ptr.Interface().(tuple).tupleFields()
	out := make([]reflect.Value, len(fields))
	for i, f := range fields {
		out[i] = reflect.ValueOf(f).Elem()
	}
	return out
}

func isTuple(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(tupleType)
}
