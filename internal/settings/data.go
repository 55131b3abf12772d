package settings

import (
	"sync"
	"sync/atomic"
	"weak"

	"github.com/tidwall/gjson"

	"github.com/dshills/jsettings/internal/settings/serialize"
	"github.com/dshills/jsettings/internal/settings/signal"
)

// SettingData is the node for one path of one manager. Every handle bound
// to the same path of the same manager shares one node.
type SettingData struct {
	path    string
	manager weak.Pointer[Manager]

	// detached nodes back Remote settings and keep their value here.
	detached bool
	localMu  sync.RWMutex
	local    string

	expired   atomic.Bool
	iteration atomic.Uint64

	updated signal.Signal[Update]
	simple  signal.Signal[SignalArgs]
}

func newSettingData(m *Manager, path string) *SettingData {
	return &SettingData{
		path:    path,
		manager: weak.Make(m),
	}
}

func newDetachedData(path string) *SettingData {
	return &SettingData{path: path, detached: true}
}

// Path returns the node's JSON Pointer.
func (d *SettingData) Path() string {
	return d.path
}

// UpdateIteration returns the number of writes (and reloads) seen by the
// node. It never decreases.
func (d *SettingData) UpdateIteration() uint64 {
	return d.iteration.Load()
}

// Expired reports whether the node was removed or its manager is gone.
func (d *SettingData) Expired() bool {
	if d.expired.Load() {
		return true
	}
	return !d.detached && d.manager.Value() == nil
}

// Manager returns the owning manager, or nil for detached or expired nodes.
func (d *SettingData) Manager() *Manager {
	if d.detached || d.expired.Load() {
		return nil
	}
	return d.manager.Value()
}

// Value returns the JSON value at the node's path. The second result is
// false when the node expired or the path holds no value.
func (d *SettingData) Value() (gjson.Result, bool) {
	if d.detached {
		d.localMu.RLock()
		raw := d.local
		d.localMu.RUnlock()
		if raw == "" {
			return gjson.Result{}, false
		}
		return gjson.Parse(raw), true
	}

	m := d.Manager()
	if m == nil {
		return gjson.Result{}, false
	}
	r, ok := m.lookup(d.path)
	return r, ok
}

// MarshalJSON writes raw JSON text to the node's path and notifies
// observers. With DoNotWriteToJSON the document is left untouched but
// observers are still notified.
func (d *SettingData) MarshalJSON(raw string, args SignalArgs, flags Flag) error {
	_, err := d.marshal(raw, args, flags, nil)
	return err
}

// marshal writes raw and bumps the iteration. commit, when set, runs with
// the new iteration before observers are notified.
func (d *SettingData) marshal(raw string, args SignalArgs, flags Flag, commit func(iter uint64)) (uint64, error) {
	if !gjson.Valid(raw) {
		return 0, &serialize.TypeError{Expected: "JSON", Actual: "invalid JSON", Reason: d.path}
	}

	var m *Manager
	if !d.detached {
		m = d.Manager()
		if m == nil {
			return 0, &ExpiredError{Path: d.path}
		}
	}

	switch {
	case d.detached:
		d.localMu.Lock()
		d.local = raw
		d.localMu.Unlock()
	case !flags.Has(DoNotWriteToJSON):
		if err := m.write(d, raw); err != nil {
			m.cfg.metrics.ObserveWrite(err)
			return 0, err
		}
	}

	iter := d.iteration.Add(1)
	if commit != nil {
		commit(iter)
	}

	if args.Source == SourceUnset {
		args.Source = SourceSetter
	}
	args.Path = d.path

	if m != nil {
		m.cfg.metrics.ObserveWrite(nil)
		if !flags.Has(DoNotWriteToJSON) && !flags.Has(skipAutoSave) {
			m.saveOnChange()
		}
	}

	value := gjson.Parse(raw)
	d.notify(value, args)
	if m != nil {
		m.changes.Invoke(Change{Path: d.path, Value: value, Args: args})
	}
	return iter, nil
}

// bump invalidates caches without notifying.
func (d *SettingData) bump() {
	d.iteration.Add(1)
}

func (d *SettingData) expire() {
	d.expired.Store(true)
	d.iteration.Add(1)
}

func (d *SettingData) notify(value gjson.Result, args SignalArgs) {
	d.updated.Invoke(Update{Value: value, Args: args})
	d.simple.Invoke(args)
}

// Connect subscribes to the node's updates.
func (d *SettingData) Connect(cb func(Update)) *signal.Connection {
	return d.updated.Connect(cb)
}

// ConnectSimple subscribes to the node's updates without the value.
func (d *SettingData) ConnectSimple(cb func(SignalArgs)) *signal.Connection {
	return d.simple.Connect(cb)
}

func (d *SettingData) rounding() serialize.Rounding {
	if m := d.Manager(); m != nil {
		return m.cfg.rounding
	}
	return serialize.RoundNearest
}

// Unmarshal deserializes the node's value into a T. The bool result is
// false when there is no value to read: the node expired or the path is
// absent. A value of the wrong shape yields an error.
func Unmarshal[T any](d *SettingData) (T, bool, error) {
	var zero T
	r, ok := d.Value()
	if !ok {
		return zero, false, nil
	}
	v, err := serialize.Deserialize[T](r, serialize.Options{Rounding: d.rounding()})
	if err != nil {
		return zero, true, err
	}
	return v, true, nil
}

// Marshal serializes v and writes it to the node.
func Marshal[T any](d *SettingData, v T, args SignalArgs, flags Flag) error {
	raw, err := serialize.Serialize(v)
	if err != nil {
		return err
	}
	return d.MarshalJSON(raw, args, flags)
}
