package settings

import (
	"sync"

	"github.com/dshills/jsettings/internal/settings/signal"
)

// Observable is anything backed by a settings node, such as a *Setting[T].
type Observable interface {
	Data() *SettingData
}

// Listener runs one callback whenever any of the settings added to it
// changes, regardless of their value types.
type Listener struct {
	mu    sync.RWMutex
	cb    func()
	conns signal.Holder
}

// NewListener creates a listener that runs cb.
func NewListener(cb func()) *Listener {
	return &Listener{cb: cb}
}

// Add subscribes to obs. With autoInvoke the callback runs right away.
func (l *Listener) Add(obs Observable, autoInvoke bool) {
	d := obs.Data()
	if d == nil {
		return
	}
	l.conns.Add(d.ConnectSimple(func(SignalArgs) { l.Invoke() }))
	if autoInvoke {
		l.Invoke()
	}
}

// Invoke runs the callback.
func (l *Listener) Invoke() {
	l.mu.RLock()
	cb := l.cb
	l.mu.RUnlock()

	if cb != nil {
		cb()
	}
}

// ResetCallback drops the callback. Later updates are ignored.
func (l *Listener) ResetCallback() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cb = nil
}

// SetCallback replaces the callback.
func (l *Listener) SetCallback(cb func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cb = cb
}

// Close unsubscribes from every added setting.
func (l *Listener) Close() {
	l.conns.Clear()
}
