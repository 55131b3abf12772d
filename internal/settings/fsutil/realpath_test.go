package fsutil

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealPath_PlainFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))

	got, err := RealPath(file)
	require.NoError(t, err)
	assert.Equal(t, file, got)
}

func TestRealPath_Missing(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "missing.json")

	got, err := RealPath(file)
	require.NoError(t, err)
	assert.Equal(t, file, got)
}

func TestRealPath_Chain(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.json")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o644))

	// c -> b -> a (relative) -> target
	require.NoError(t, os.Symlink("target.json", filepath.Join(dir, "a")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "a"), filepath.Join(dir, "b")))
	require.NoError(t, os.Symlink("b", filepath.Join(dir, "c")))

	got, err := RealPath(filepath.Join(dir, "c"))
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestRealPath_RelativeTargetInOtherDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	target := filepath.Join(dir, "real.json")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o644))

	require.NoError(t, os.Symlink("../real.json", filepath.Join(sub, "link")))

	got, err := RealPath(filepath.Join(sub, "link"))
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestRealPath_DanglingLink(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink("nowhere.json", link))

	got, err := RealPath(link)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nowhere.json"), got)
}

func TestRealPath_Cycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "A")
	b := filepath.Join(dir, "B")
	require.NoError(t, os.Symlink(b, a))
	require.NoError(t, os.Symlink(a, b))

	_, err := RealPath(a)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooManyLinks)
	assert.ErrorIs(t, err, syscall.ELOOP)

	var linkErr *LinkError
	require.ErrorAs(t, err, &linkErr)
	assert.Equal(t, a, linkErr.Path)
}

func TestRealPath_SelfLink(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "self")
	require.NoError(t, os.Symlink("self", a))

	_, err := RealPath(a)
	assert.ErrorIs(t, err, syscall.ELOOP)
}
