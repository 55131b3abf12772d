package settings

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/gjson"

	"github.com/dshills/jsettings/internal/settings/jsondoc"
	"github.com/dshills/jsettings/internal/settings/signal"
	"github.com/dshills/jsettings/internal/settings/watcher"
)

// Manager owns one JSON document and the nodes addressing it. Managers are
// independent: they never share a document or a registry.
type Manager struct {
	id     string
	cfg    managerConfig
	logger *slog.Logger

	pathMu sync.RWMutex
	path   string

	// docMu guards doc. Writers hold it exclusively, readers shared.
	docMu sync.RWMutex
	doc   *jsondoc.Document

	// regMu guards data and is never held across I/O or notifications.
	regMu sync.Mutex
	data  map[string]*SettingData

	changes signal.Signal[Change]
	loads   signal.Signal[SignalArgs]

	saveMu   sync.Mutex
	lastHash atomic.Uint64

	watchMu sync.Mutex
	watcher *watcher.Watcher
	cancel  context.CancelFunc

	closed atomic.Bool
}

// NewManager creates a manager with an empty document.
func NewManager(opts ...ManagerOption) *Manager {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		id:   uuid.NewString(),
		cfg:  cfg,
		path: cfg.path,
		doc:  jsondoc.New(),
		data: make(map[string]*SettingData),
	}
	m.logger = logger.With("manager_id", m.id)

	if cfg.watch {
		if err := m.Watch(context.Background()); err != nil {
			m.logger.Warn("Failed to start settings watcher", "path", cfg.path, "error", err)
		}
	}
	return m
}

// ID returns the manager's unique id.
func (m *Manager) ID() string {
	return m.id
}

// Path returns the document file path.
func (m *Manager) Path() string {
	m.pathMu.RLock()
	defer m.pathMu.RUnlock()
	return m.path
}

// SetPath changes the document file path used by Load and Save.
func (m *Manager) SetPath(path string) {
	m.pathMu.Lock()
	defer m.pathMu.Unlock()
	m.path = path
}

// Has reports whether the document holds a value at path.
func (m *Manager) Has(path string) bool {
	m.docMu.RLock()
	defer m.docMu.RUnlock()
	return m.doc.Has(path)
}

// SaveMethod returns when the manager saves on its own.
func (m *Manager) SaveMethod() SaveMethod {
	return m.cfg.saveMethod
}

// Data returns the node for path, creating it on first use. Repeated calls
// with the same path return the same node until the path is removed.
func (m *Manager) Data(path string) (*SettingData, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	if path == "" {
		return nil, &jsondoc.PointerError{Pointer: path, Reason: "settings need a non-root path"}
	}
	if _, err := jsondoc.Split(path); err != nil {
		return nil, err
	}

	m.regMu.Lock()
	defer m.regMu.Unlock()

	if d, ok := m.data[path]; ok {
		return d, nil
	}
	d := newSettingData(m, path)
	m.data[path] = d
	return d, nil
}

// Registered returns the registered paths in lexical order.
func (m *Manager) Registered() []string {
	m.regMu.Lock()
	paths := make([]string, 0, len(m.data))
	for p := range m.data {
		paths = append(paths, p)
	}
	m.regMu.Unlock()

	slices.Sort(paths)
	return paths
}

// nodes returns the registered nodes sorted by path.
func (m *Manager) nodes() []*SettingData {
	m.regMu.Lock()
	nodes := make([]*SettingData, 0, len(m.data))
	for _, d := range m.data {
		nodes = append(nodes, d)
	}
	m.regMu.Unlock()

	slices.SortFunc(nodes, func(a, b *SettingData) int {
		switch {
		case a.path < b.path:
			return -1
		case a.path > b.path:
			return 1
		}
		return 0
	})
	return nodes
}

// Get returns the JSON value at path.
func (m *Manager) Get(path string) (gjson.Result, bool) {
	return m.lookup(path)
}

func (m *Manager) lookup(path string) (gjson.Result, bool) {
	m.docMu.RLock()
	defer m.docMu.RUnlock()

	r, err := m.doc.Get(path)
	if err != nil || !r.Exists() {
		return gjson.Result{}, false
	}
	return r, true
}

// Set writes raw JSON text at path through the path's node, so handles and
// observers see the update.
func (m *Manager) Set(path, raw string, source Source) error {
	d, err := m.Data(path)
	if err != nil {
		return err
	}
	return d.MarshalJSON(raw, SignalArgs{Source: source}, 0)
}

// write stores raw at d's path. The expiry check runs under docMu so a
// concurrent Remove, which expires nodes before deleting, cannot be undone.
func (m *Manager) write(d *SettingData, raw string) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	m.docMu.Lock()
	defer m.docMu.Unlock()
	if d.expired.Load() {
		return &ExpiredError{Path: d.path}
	}
	return m.doc.Set(d.path, raw)
}

// ArraySize returns the length of the array at path, or 0 when the value
// is missing or not an array.
func (m *Manager) ArraySize(path string) int {
	m.docMu.RLock()
	defer m.docMu.RUnlock()
	return m.doc.ArraySize(path)
}

// Remove deletes path and everything below it from the document and the
// registry. Handles bound to any of those paths expire. It reports whether
// anything was removed.
func (m *Manager) Remove(path string) bool {
	if !jsondoc.Valid(path) || path == "" {
		return false
	}

	m.regMu.Lock()
	var removed []*SettingData
	for p, d := range m.data {
		if jsondoc.IsPrefix(path, p) {
			removed = append(removed, d)
			delete(m.data, p)
		}
	}
	m.regMu.Unlock()

	for _, d := range removed {
		d.expire()
	}

	m.docMu.Lock()
	deleted, err := m.doc.Delete(path)
	m.docMu.Unlock()
	if err != nil {
		m.logger.Warn("Failed to remove setting", "path", path, "error", err)
	}

	if deleted {
		m.logger.Debug("Removed setting", "path", path, "nodes", len(removed))
		m.saveOnChange()
	}
	return deleted || len(removed) > 0
}

// Clear empties the document. Registered handles fall back to their
// defaults on their next read.
func (m *Manager) Clear() {
	m.docMu.Lock()
	m.doc.Reset()
	m.docMu.Unlock()

	for _, d := range m.nodes() {
		d.bump()
	}
}

// String returns the compact document text.
func (m *Manager) String() string {
	m.docMu.RLock()
	defer m.docMu.RUnlock()
	return m.doc.String()
}

// Pretty returns the indented document text, as written by Save.
func (m *Manager) Pretty() []byte {
	m.docMu.RLock()
	defer m.docMu.RUnlock()
	return m.doc.Pretty()
}

// OnChange registers an observer for every update to every path.
func (m *Manager) OnChange(cb func(Change)) *signal.Connection {
	return m.changes.Connect(cb)
}

// OnLoad registers an observer called after every successful load or
// external reload, once per document, after the node notifications.
func (m *Manager) OnLoad(cb func(SignalArgs)) *signal.Connection {
	return m.loads.Connect(cb)
}

// Close stops the watcher, saves if the manager saves on exit and expires
// every node. Close is idempotent.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	// Writes fail from here on, so the save below sees a settled document.
	var result *multierror.Error

	if err := m.stopWatch(); err != nil {
		result = multierror.Append(result, err)
	}

	if m.cfg.saveMethod.Has(SaveOnExit) {
		if err := m.Save(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	m.regMu.Lock()
	nodes := make([]*SettingData, 0, len(m.data))
	for _, d := range m.data {
		nodes = append(nodes, d)
	}
	clear(m.data)
	m.regMu.Unlock()

	for _, d := range nodes {
		d.expire()
	}
	m.changes.DisconnectAll()
	m.loads.DisconnectAll()

	m.logger.Debug("Closed settings manager", "path", m.Path(), "nodes", len(nodes))
	return result.ErrorOrNil()
}

func (m *Manager) saveOnChange() {
	if !m.cfg.saveMethod.Has(SaveOnSettingChange) {
		return
	}
	if err := m.Save(); err != nil {
		m.logger.Error("Failed to save settings after change", "path", m.Path(), "error", err)
	}
}
