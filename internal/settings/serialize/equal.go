package serialize

import "reflect"

// Equal compares two values of T for change detection.
//
// A codec registered with an Equal function decides for its type. Values
// that are or contain an interface (dynamic values) never compare equal,
// since their contents may not be comparable. Comparable types use ==,
// other slices, maps, arrays and structs are compared deeply.
func Equal[T any](a, b T) bool {
	t := reflect.TypeFor[T]()
	if c, ok := lookup(t); ok && c.equal != nil {
		return c.equal(a, b)
	}
	if containsInterface(t, make(map[reflect.Type]bool)) {
		return false
	}
	if t.Comparable() {
		return any(a) == any(b)
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.Struct:
		return reflect.DeepEqual(a, b)
	}
	return false
}

func containsInterface(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true

	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Slice, reflect.Array, reflect.Pointer:
		return containsInterface(t.Elem(), seen)
	case reflect.Map:
		return containsInterface(t.Key(), seen) || containsInterface(t.Elem(), seen)
	case reflect.Struct:
		for i := range t.NumField() {
			if containsInterface(t.Field(i).Type, seen) {
				return true
			}
		}
	}
	return false
}
