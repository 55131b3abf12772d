package settings

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/dshills/jsettings/internal/settings/backup"
	"github.com/dshills/jsettings/internal/settings/fsutil"
	"github.com/dshills/jsettings/internal/settings/jsondoc"
	"github.com/dshills/jsettings/internal/settings/metrics"
)

// Load reads the document from the manager's path. See LoadFrom.
func (m *Manager) Load() error {
	return m.LoadFrom(m.Path())
}

// LoadFrom reads the document at path and replaces the current one.
//
// An empty file is not an error and leaves the document unchanged. On
// failure the current document is kept. On success every registered node
// is invalidated and nodes whose path exists in the new document are
// notified with SourceUnmarshal, in lexical path order, before LoadFrom
// returns.
func (m *Manager) LoadFrom(path string) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	err := m.loadFile(path, SourceUnmarshal)
	if err == nil || !m.cfg.load.AttemptLoadFromTemporaryFile {
		return err
	}

	tmp := backup.TempPath(path)
	if !fsutil.Exists(tmp) {
		return err
	}
	m.logger.Warn("Failed to load settings, trying temporary file", "path", path, "tmp", tmp, "error", err)

	if tmpErr := m.loadFile(tmp, SourceUnmarshal); tmpErr != nil {
		return err
	}
	if saveErr := m.SaveAs(path); saveErr != nil {
		return &LoadError{Kind: LoadErrorSaveFromTemporaryFile, Path: path, Err: saveErr}
	}
	m.logger.Info("Recovered settings from temporary file", "path", path)
	return nil
}

func (m *Manager) loadFile(path string, source Source) error {
	fail := func(kind LoadErrorKind, err error) error {
		m.cfg.metrics.ObserveLoad(metrics.ResultError, 0)
		m.logger.Debug("Failed to load settings", "path", path, "kind", kind, "error", err)
		return &LoadError{Kind: kind, Path: path, Err: err}
	}

	realPath, err := fsutil.RealPath(path)
	if err != nil {
		return fail(LoadErrorFileHandle, err)
	}

	f, err := os.Open(realPath)
	if err != nil {
		return fail(LoadErrorCannotOpenFile, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fail(LoadErrorFileHandle, err)
	}
	if info.IsDir() {
		return fail(LoadErrorCannotOpenFile, errors.New("is a directory"))
	}
	if info.Size() == 0 {
		m.cfg.metrics.ObserveLoad(metrics.ResultEmpty, 0)
		m.logger.Debug("Settings file is empty", "path", path)
		return nil
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return fail(LoadErrorFileHandle, err)
	}
	if err := m.loadBytes(data, source); err != nil {
		return fail(LoadErrorJSONParse, err)
	}

	m.cfg.metrics.ObserveLoad(metrics.ResultOK, len(data))
	m.logger.Info("Loaded settings", "path", path, "bytes", len(data))
	return nil
}

// loadBytes parses data, swaps it in as the document and notifies nodes.
func (m *Manager) loadBytes(data []byte, source Source) error {
	if err := m.swapDocument(data); err != nil {
		return err
	}
	m.replay(source)
	return nil
}

func (m *Manager) swapDocument(data []byte) error {
	doc, err := jsondoc.Parse(data)
	if err != nil {
		return err
	}

	m.docMu.Lock()
	m.doc = doc
	m.docMu.Unlock()
	m.lastHash.Store(xxhash.Sum64(data))
	return nil
}

// replay invalidates every registered node, then notifies the ones whose
// path holds a value.
func (m *Manager) replay(source Source) {
	nodes := m.nodes()
	for _, d := range nodes {
		d.bump()
	}

	type delivery struct {
		node   *SettingData
		change Change
	}
	var deliveries []delivery

	m.docMu.RLock()
	for _, d := range nodes {
		r, err := m.doc.Get(d.path)
		if err != nil || !r.Exists() {
			continue
		}
		change := Change{Path: d.path, Value: r, Args: SignalArgs{Source: source, Path: d.path}}
		deliveries = append(deliveries, delivery{node: d, change: change})
	}
	m.docMu.RUnlock()

	// Notify outside the lock
	for _, dv := range deliveries {
		dv.node.notify(dv.change.Value, dv.change.Args)
		m.changes.Invoke(dv.change)
	}
	m.loads.Invoke(SignalArgs{Source: source})
}

// Save writes the document to the manager's path. See SaveAs.
func (m *Manager) Save() error {
	return m.SaveAs(m.Path())
}

// SaveAs writes the indented document to path through a temporary file,
// rotating backups as configured. Saves on one manager are serialized.
func (m *Manager) SaveAs(path string) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	data := m.Pretty()
	rotated := m.cfg.backup.Enabled && fsutil.Exists(path)
	start := time.Now()

	prev := m.lastHash.Swap(xxhash.Sum64(data))
	err := backup.SaveWithBackup(path, m.cfg.backup, func(tmp string) error {
		return backup.WriteFile(tmp, data, 0o644)
	})
	if err != nil {
		m.lastHash.Store(prev)
		m.cfg.metrics.ObserveSave(metrics.ResultError, 0, false, time.Since(start))
		m.logger.Error("Failed to save settings", "path", path, "error", err)
		return toSaveError(path, err)
	}

	m.cfg.metrics.ObserveSave(metrics.ResultOK, len(data), rotated, time.Since(start))
	m.logger.Debug("Saved settings", "path", path, "bytes", len(data), "backups", m.cfg.backup.Enabled)
	return nil
}

func toSaveError(path string, err error) error {
	var bErr *backup.Error
	if !errors.As(err, &bErr) {
		return &SaveError{Kind: SaveErrorWrite, Path: path, Err: err}
	}
	kind := SaveErrorRename
	switch bErr.Op {
	case backup.OpResolve:
		kind = SaveErrorResolve
	case backup.OpWrite:
		kind = SaveErrorWrite
	}
	return &SaveError{Kind: kind, Path: path, Err: err}
}

// fileHash returns the hash of the file at path.
func fileHash(path string) (uint64, []byte, error) {
	realPath, err := fsutil.RealPath(path)
	if err != nil {
		return 0, nil, err
	}
	data, err := os.ReadFile(realPath)
	if err != nil {
		return 0, nil, err
	}
	return xxhash.Sum64(data), data, nil
}
