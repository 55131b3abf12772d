package settings

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceLog struct {
	mu      sync.Mutex
	sources []Source
}

func (l *sourceLog) add(a SignalArgs) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources = append(l.sources, a.Source)
}

func (l *sourceLog) count(src Source) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, s := range l.sources {
		if s == src {
			n++
		}
	}
	return n
}

func TestWatch_ReloadsExternalChanges(t *testing.T) {
	m := newTestManager(t, WithWatch(20*time.Millisecond))
	require.True(t, m.Watching())

	s := NewSettingWithDefault(m, "/theme", "dark")
	log := &sourceLog{}
	s.ConnectSimple(log.add, false)

	writeFile(t, m.Path(), `{"theme": "light"}`)

	require.Eventually(t, func() bool { return s.Value() == "light" }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, log.count(SourceExternal))
}

func TestWatch_ContextCancelStopsWatching(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Save())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Watch(ctx))
	require.True(t, m.Watching())

	cancel()
	require.Eventually(t, func() bool { return !m.Watching() }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Watch(context.Background()))
	assert.True(t, m.Watching())
	require.NoError(t, m.StopWatch())
}

func TestWatch_SkipsOwnSaves(t *testing.T) {
	m := newTestManager(t, WithWatch(20*time.Millisecond))
	s := NewSettingWithDefault(m, "/n", 0)
	log := &sourceLog{}
	s.ConnectSimple(log.add, false)

	require.NoError(t, s.Set(1))
	require.NoError(t, m.Save())
	require.NoError(t, s.Set(2))
	require.NoError(t, m.Save())

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, log.count(SourceExternal))
	assert.Equal(t, 2, s.Value())
}

func TestWatch_IgnoresInvalidContent(t *testing.T) {
	m := newTestManager(t, WithWatch(20*time.Millisecond))
	require.NoError(t, Set(m, "/a", 1))

	writeFile(t, m.Path(), `{"a": `)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, Get[int](m, "/a"))
}

func TestWatch_StartStop(t *testing.T) {
	m := newTestManager(t)
	assert.False(t, m.Watching())

	require.NoError(t, m.Watch(context.Background()))
	assert.ErrorIs(t, m.Watch(context.Background()), ErrAlreadyWatching)

	require.NoError(t, m.StopWatch())
	assert.False(t, m.Watching())
	require.NoError(t, m.StopWatch())

	require.NoError(t, m.Watch(context.Background()))
	require.NoError(t, m.Close())
	assert.False(t, m.Watching())
	assert.ErrorIs(t, m.Watch(context.Background()), ErrManagerClosed)
}
