package settings

import "sync"

var defaultManager struct {
	sync.Mutex
	m    *Manager
	opts []ManagerOption
}

// Default returns the process-wide manager used when a nil manager is
// passed, creating it on first use. It saves on exit by default.
func Default() *Manager {
	defaultManager.Lock()
	defer defaultManager.Unlock()

	if defaultManager.m == nil {
		opts := append([]ManagerOption{WithSaveMethod(SaveOnExit)}, defaultManager.opts...)
		defaultManager.m = NewManager(opts...)
	}
	return defaultManager.m
}

// ConfigureDefault sets the options of the default manager. A default
// manager that already exists is closed and replaced on the next Default
// call.
func ConfigureDefault(opts ...ManagerOption) error {
	defaultManager.Lock()
	m := defaultManager.m
	defaultManager.m = nil
	defaultManager.opts = opts
	defaultManager.Unlock()

	if m == nil {
		return nil
	}
	return m.Close()
}

// CloseDefault closes the default manager. The next Default call creates
// a fresh one.
func CloseDefault() error {
	defaultManager.Lock()
	m := defaultManager.m
	defaultManager.m = nil
	defaultManager.Unlock()

	if m == nil {
		return nil
	}
	return m.Close()
}
