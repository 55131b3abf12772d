package settings

import (
	"runtime"
	"sync"
	"weak"

	"github.com/tidwall/gjson"

	"github.com/dshills/jsettings/internal/settings/serialize"
	"github.com/dshills/jsettings/internal/settings/signal"
)

// staleIteration never matches a node's iteration in practice, forcing the
// next read to go back to the document.
const staleIteration = ^uint64(0)

// Setting is a typed handle to one path of a manager's document.
//
// Reads are cached and only deserialize again after the node reports a
// newer update iteration. A handle outlives its node safely: once the path
// is removed or the manager closed, reads return the last cached value (or
// the default) and writes fail with ErrExpired.
//
// A Setting is safe for concurrent use.
type Setting[T any] struct {
	path  string
	flags Flag
	def   T

	// data is weak; the manager's registry keeps the node alive. Remote
	// handles own a detached node through remote instead.
	data   weak.Pointer[SettingData]
	remote *SettingData
	err    error

	mu         sync.Mutex
	cached     T
	hasCache   bool
	cachedIter uint64

	conns *signal.Holder
}

// NewSetting binds a handle to path in m, with the zero T as default.
// A nil m selects the default manager.
func NewSetting[T any](m *Manager, path string, flags ...Flag) *Setting[T] {
	var def T
	return NewSettingWithDefault(m, path, def, flags...)
}

// NewSettingWithDefault binds a handle to path in m with a default value.
// A nil m selects the default manager.
func NewSettingWithDefault[T any](m *Manager, path string, def T, flags ...Flag) *Setting[T] {
	s := &Setting[T]{
		path:  path,
		flags: combine(flags),
		def:   def,
		conns: &signal.Holder{},
	}
	runtime.AddCleanup(s, func(h *signal.Holder) { h.Clear() }, s.conns)

	if s.flags.Has(Remote) {
		s.remote = newDetachedData(path)
		s.data = weak.Make(s.remote)
		return s
	}

	if m == nil {
		m = Default()
	}
	d, err := m.Data(path)
	if err != nil {
		s.err = err
		m.logger.Warn("Invalid setting", "path", path, "error", err)
		return s
	}
	s.data = weak.Make(d)

	if s.flags.Has(SaveInitialValue) {
		if !m.Has(path) {
			if err := s.Set(def); err != nil {
				m.logger.Warn("Failed to save initial value", "path", path, "error", err)
			}
		}
	}
	return s
}

// Path returns the handle's JSON Pointer.
func (s *Setting[T]) Path() string {
	return s.path
}

// Flags returns the handle's flags.
func (s *Setting[T]) Flags() Flag {
	return s.flags
}

// Data returns the node behind the handle, or nil once it expired.
func (s *Setting[T]) Data() *SettingData {
	d := s.data.Value()
	if d == nil || d.Expired() {
		return nil
	}
	return d
}

// IsValid reports whether the handle is still bound to a live node.
func (s *Setting[T]) IsValid() bool {
	return s.Data() != nil
}

// Get returns the current value. When the node expired, the path holds no
// value or the value has the wrong shape, it returns the last cached value
// or the default together with the reason.
func (s *Setting[T]) Get() (T, error) {
	d := s.Data()

	s.mu.Lock()
	defer s.mu.Unlock()

	if d == nil {
		err := s.err
		if err == nil {
			err = &ExpiredError{Path: s.path}
		}
		if s.hasCache {
			return s.cached, err
		}
		return s.def, err
	}

	iter := d.UpdateIteration()
	if s.hasCache && s.cachedIter == iter {
		return s.cached, nil
	}

	v, ok, err := Unmarshal[T](d)
	if err != nil {
		// Cache the fallback so a bad value is not parsed on every read.
		s.cached, s.hasCache, s.cachedIter = s.def, true, iter
		return s.def, &valueError{path: s.path, err: err}
	}
	if !ok {
		v = s.def
	}
	s.cached, s.hasCache, s.cachedIter = v, true, iter
	return v, nil
}

// Value returns the current value, falling back like Get. Strict builds
// panic instead of falling back.
func (s *Setting[T]) Value() T {
	v, err := s.Get()
	if err != nil && strictMode {
		panic(err)
	}
	return v
}

// Set writes v. The handle observes v immediately, even with
// DoNotWriteToJSON. With CompareBeforeSet an unchanged value is not
// written and nobody is notified.
func (s *Setting[T]) Set(v T) error {
	return s.SetWithArgs(v, SignalArgs{})
}

// SetWithArgs writes v with the given provenance.
func (s *Setting[T]) SetWithArgs(v T, args SignalArgs) error {
	d := s.Data()
	if d == nil {
		if s.err != nil {
			return s.err
		}
		return &ExpiredError{Path: s.path}
	}

	if s.flags.Has(CompareBeforeSet) {
		if cur, err := s.Get(); err == nil && serialize.Equal(cur, v) {
			return nil
		}
	}

	raw, err := serialize.Serialize(v)
	if err != nil {
		return err
	}

	_, err = d.marshal(raw, args, s.flags, func(iter uint64) {
		s.mu.Lock()
		s.cached, s.hasCache, s.cachedIter = v, true, iter
		s.mu.Unlock()
	})
	return err
}

// Default returns the default value.
func (s *Setting[T]) Default() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def
}

// SetDefault replaces the default value. The document is not touched.
func (s *Setting[T]) SetDefault(def T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.def = def
	// A cached fallback may have been the old default.
	s.cachedIter = staleIteration
}

// Reset writes the default value.
func (s *Setting[T]) Reset() error {
	return s.Set(s.Default())
}

// IsDefault reports whether the current value equals the default.
func (s *Setting[T]) IsDefault() bool {
	return serialize.Equal(s.Value(), s.Default())
}

// Equal reports whether the current value equals v.
func (s *Setting[T]) Equal(v T) bool {
	return serialize.Equal(s.Value(), v)
}

// Remove deletes the path and everything below it from the document.
// Every handle bound to those paths expires, this one included.
func (s *Setting[T]) Remove() bool {
	d := s.Data()
	if d == nil {
		return false
	}
	if s.remote != nil {
		s.remote.expire()
		return true
	}
	m := d.Manager()
	if m == nil {
		return false
	}
	return m.Remove(s.path)
}

// Connect calls cb with every new value. When autoInvoke is set cb is also
// called right away with the current value and SourceOnConnect. The
// subscription lasts until the handle is closed.
func (s *Setting[T]) Connect(cb func(T, SignalArgs), autoInvoke bool) *signal.Connection {
	return s.ConnectTo(s.conns, cb, autoInvoke)
}

// ConnectTo is like Connect but h owns the subscription.
func (s *Setting[T]) ConnectTo(h *signal.Holder, cb func(T, SignalArgs), autoInvoke bool) *signal.Connection {
	d := s.Data()
	if d == nil {
		return nil
	}

	// The callback must not reference s, or the node would keep it alive.
	def := s.Default()
	conn := d.Connect(func(u Update) {
		v, err := serialize.Deserialize[T](u.Value, serialize.Options{Rounding: d.rounding()})
		if err != nil {
			v = def
		}
		cb(v, u.Args)
	})
	h.Add(conn)

	if autoInvoke {
		cb(s.Value(), SignalArgs{Source: SourceOnConnect, Path: s.path})
	}
	return conn
}

// ConnectJSON calls cb with the raw JSON of every new value.
func (s *Setting[T]) ConnectJSON(cb func(gjson.Result, SignalArgs), autoInvoke bool) *signal.Connection {
	d := s.Data()
	if d == nil {
		return nil
	}
	conn := d.Connect(func(u Update) { cb(u.Value, u.Args) })
	s.conns.Add(conn)

	if autoInvoke {
		r, _ := d.Value()
		cb(r, SignalArgs{Source: SourceOnConnect, Path: s.path})
	}
	return conn
}

// ConnectSimple calls cb on every update without decoding the value.
func (s *Setting[T]) ConnectSimple(cb func(SignalArgs), autoInvoke bool) *signal.Connection {
	d := s.Data()
	if d == nil {
		return nil
	}
	conn := d.ConnectSimple(cb)
	s.conns.Add(conn)

	if autoInvoke {
		cb(SignalArgs{Source: SourceOnConnect, Path: s.path})
	}
	return conn
}

// Close disconnects the subscriptions owned by the handle.
func (s *Setting[T]) Close() {
	s.conns.Clear()
}

// Clone returns a handle to the same node with the same default and flags
// but its own cache and subscriptions.
func (s *Setting[T]) Clone() *Setting[T] {
	c := &Setting[T]{
		path:   s.path,
		flags:  s.flags,
		def:    s.Default(),
		data:   s.data,
		remote: s.remote,
		err:    s.err,
		conns:  &signal.Holder{},
	}
	runtime.AddCleanup(c, func(h *signal.Holder) { h.Clear() }, c.conns)
	return c
}

// valueError wraps a deserialization failure with the setting path.
type valueError struct {
	path string
	err  error
}

func (e *valueError) Error() string {
	return "setting " + e.path + ": " + e.err.Error()
}

func (e *valueError) Unwrap() error {
	return e.err
}
