package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListener(t *testing.T) {
	m := newTestManager(t)
	size := NewSettingWithDefault(m, "/font/size", 12)
	family := NewSettingWithDefault(m, "/font/family", "mono")

	calls := 0
	l := NewListener(func() { calls++ })
	l.Add(size, true)
	l.Add(family, false)
	assert.Equal(t, 1, calls)

	require.NoError(t, size.Set(14))
	require.NoError(t, family.Set("serif"))
	assert.Equal(t, 3, calls)

	l.ResetCallback()
	require.NoError(t, size.Set(15))
	assert.Equal(t, 3, calls)

	other := 0
	l.SetCallback(func() { other++ })
	require.NoError(t, size.Set(16))
	assert.Equal(t, 1, other)

	l.Close()
	require.NoError(t, size.Set(17))
	assert.Equal(t, 1, other)
}

func TestListener_IgnoresExpired(t *testing.T) {
	m := newTestManager(t)
	s := NewSetting[int](m, "/a")
	s.Remove()

	calls := 0
	l := NewListener(func() { calls++ })
	l.Add(s, true)
	assert.Equal(t, 0, calls)
}
