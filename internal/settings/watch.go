package settings

import (
	"context"
	"errors"
	"io/fs"

	"github.com/dshills/jsettings/internal/settings/fsutil"
	"github.com/dshills/jsettings/internal/settings/metrics"
	"github.com/dshills/jsettings/internal/settings/watcher"
)

// ErrAlreadyWatching is returned by Watch when the manager already watches
// its file.
var ErrAlreadyWatching = errors.New("settings: already watching")

// Watch reloads the document whenever its file is changed by someone else.
// Writes made by this manager's own saves are recognized by content hash
// and skipped. Reloads notify nodes with SourceExternal. Watching stops when
// ctx is done or the manager is closed.
func (m *Manager) Watch(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	m.watchMu.Lock()
	defer m.watchMu.Unlock()

	if m.watcher != nil {
		return ErrAlreadyWatching
	}

	path, err := fsutil.RealPath(m.Path())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	w, err := watcher.New(ctx, m.handleFileEvent,
		watcher.WithDebounce(m.cfg.debounce),
		watcher.WithLogger(m.logger),
	)
	if err != nil {
		cancel()
		return err
	}
	if err := w.Add(path); err != nil {
		cancel()
		_ = w.Close()
		return err
	}

	m.watcher = w
	m.cancel = cancel
	context.AfterFunc(ctx, func() {
		m.watchMu.Lock()
		if m.watcher == w {
			m.watcher, m.cancel = nil, nil
		}
		m.watchMu.Unlock()
	})
	m.logger.Debug("Watching settings file", "path", path, "debounce", m.cfg.debounce)
	return nil
}

// Watching reports whether the manager watches its file.
func (m *Manager) Watching() bool {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	return m.watcher != nil
}

// StopWatch stops watching the document file.
func (m *Manager) StopWatch() error {
	return m.stopWatch()
}

func (m *Manager) stopWatch() error {
	m.watchMu.Lock()
	w, cancel := m.watcher, m.cancel
	m.watcher, m.cancel = nil, nil
	m.watchMu.Unlock()

	if w == nil {
		return nil
	}
	cancel()
	return w.Close()
}

func (m *Manager) handleFileEvent(ev watcher.Event) {
	if m.closed.Load() {
		return
	}

	size, changed := m.reloadChanged(ev)
	if !changed {
		return
	}

	// Notify without saveMu so observers may save.
	m.replay(SourceExternal)
	m.logger.Info("Reloaded settings after external change", "path", ev.Path, "op", ev.Op, "bytes", size)
}

// reloadChanged swaps in the file content when it differs from what the
// manager last loaded or saved. It holds saveMu because a save in progress
// has already published its hash but may not have renamed the file yet.
func (m *Manager) reloadChanged(ev watcher.Event) (int, bool) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	hash, data, err := fileHash(ev.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("Failed to read changed settings file", "path", ev.Path, "op", ev.Op, "error", err)
		}
		return 0, false
	}
	if hash == m.lastHash.Load() || len(data) == 0 {
		return 0, false
	}

	if err := m.swapDocument(data); err != nil {
		m.logger.Warn("Ignoring invalid external settings change", "path", ev.Path, "error", err)
		return 0, false
	}
	m.cfg.metrics.ObserveLoad(metrics.ResultOK, len(data))
	return len(data), true
}
