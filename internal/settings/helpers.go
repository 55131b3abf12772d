package settings

import (
	"fmt"
	"slices"
)

// Get reads path once through a throwaway handle. A nil m selects the
// default manager.
func Get[T any](m *Manager, path string) T {
	return NewSetting[T](m, path).Value()
}

// GetOr reads path once, returning def when it holds no usable value.
func GetOr[T any](m *Manager, path string, def T) T {
	return NewSettingWithDefault(m, path, def).Value()
}

// Set writes v to path once through a throwaway handle. A nil m selects
// the default manager.
func Set[T any](m *Manager, path string, v T) error {
	return NewSetting[T](m, path).Set(v)
}

// Append adds v to the end of the slice held by s. It fails with
// ErrNotArray when the path holds something other than an array.
func Append[E any](s *Setting[[]E], v E) error {
	if err := checkArray(s.Data()); err != nil {
		return err
	}
	cur, err := s.Get()
	if err != nil {
		return err
	}
	next := make([]E, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, v)
	return s.Set(next)
}

// RemoveByValue drops every element equal to v from the slice held by s.
// Nothing is written when v is absent.
func RemoveByValue[E comparable](s *Setting[[]E], v E) error {
	if err := checkArray(s.Data()); err != nil {
		return err
	}
	cur, err := s.Get()
	if err != nil {
		return err
	}
	if !slices.Contains(cur, v) {
		return nil
	}
	next := slices.DeleteFunc(slices.Clone(cur), func(e E) bool { return e == v })
	return s.Set(next)
}

// checkArray fails when d holds a value that is not an array. A missing
// value passes.
func checkArray(d *SettingData) error {
	if d == nil {
		return nil
	}
	if r, ok := d.Value(); ok && !r.IsArray() {
		return fmt.Errorf("%s: %w", d.Path(), ErrNotArray)
	}
	return nil
}
