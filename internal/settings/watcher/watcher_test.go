package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func newTestWatcher(t *testing.T, handler Handler) *Watcher {
	t.Helper()
	w, err := New(context.Background(), handler, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "none", Op(0).String())
	assert.Equal(t, "create", OpCreate.String())
	assert.Equal(t, "write|rename", (OpWrite | OpRename).String())
}

func TestConvertOp(t *testing.T) {
	assert.Equal(t, OpCreate, convertOp(fsnotify.Create))
	assert.Equal(t, OpWrite|OpRemove, convertOp(fsnotify.Write|fsnotify.Remove))
	assert.Equal(t, Op(0), convertOp(fsnotify.Chmod))
}

func TestWatcher_WriteIsDebounced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	rec := &recorder{}
	w := newTestWatcher(t, rec.handle)
	require.NoError(t, w.Add(path))

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`), 0o644))
	}

	require.Eventually(t, func() bool { return len(rec.snapshot()) > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	events := rec.snapshot()
	require.Len(t, events, 1)
	abs, _ := filepath.Abs(path)
	assert.Equal(t, abs, events[0].Path)
	assert.True(t, events[0].Op.Has(OpWrite))
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	rec := &recorder{}
	w := newTestWatcher(t, rec.handle)
	require.NoError(t, w.Add(path))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644))
	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, rec.snapshot())

	// Created by rename, as an atomic save does
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(`{}`), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, rec.snapshot()[0].Op.Has(OpCreate))
}

func TestWatcher_HandlerPanicKeepsRunning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	var mu sync.Mutex
	calls := 0
	w := newTestWatcher(t, func(Event) {
		mu.Lock()
		calls++
		mu.Unlock()
		panic("boom")
	})
	require.NoError(t, w.Add(path))

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return calls
	}

	require.NoError(t, os.WriteFile(path, []byte(`1`), 0o644))
	require.Eventually(t, func() bool { return count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`2`), 0o644))
	require.Eventually(t, func() bool { return count() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_AddRemove(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")

	w := newTestWatcher(t, func(Event) {})
	require.NoError(t, w.Add(a))
	require.NoError(t, w.Add(a))
	require.NoError(t, w.Add(b))
	assert.Len(t, w.Watched(), 2)

	require.NoError(t, w.Remove(a))
	assert.ErrorIs(t, w.Remove(a), ErrNotWatching)
	require.NoError(t, w.Remove(b))
	assert.Empty(t, w.Watched())

	assert.Error(t, w.Add(filepath.Join(dir, "missing", "c.json")))
}

func TestWatcher_Close(t *testing.T) {
	w, err := New(context.Background(), func(Event) {})
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Add(filepath.Join(t.TempDir(), "x.json")), ErrWatcherClosed)
}

func TestWatcher_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New(ctx, func(Event) {})
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool {
		return w.Add(filepath.Join(t.TempDir(), "x.json")) == ErrWatcherClosed
	}, 2*time.Second, 10*time.Millisecond)
}
