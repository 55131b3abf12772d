package backup

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saver(t *testing.T, path string, opts Options) (save func(payload string) error, calls *int) {
	t.Helper()
	n := 0
	return func(payload string) error {
		return SaveWithBackup(path, opts, func(tmp string) error {
			n++
			return WriteFile(tmp, []byte(payload), 0o644)
		})
	}, &n
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSaveWithBackup_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	save, calls := saver(t, path, Options{Enabled: true, Slots: 3})

	require.NoError(t, save("1"))
	assert.FileExists(t, path)
	assert.NoFileExists(t, SlotPath(path, 1))

	require.NoError(t, save("2"))
	assert.FileExists(t, SlotPath(path, 1))
	assert.NoFileExists(t, SlotPath(path, 2))

	require.NoError(t, save("3"))
	assert.FileExists(t, SlotPath(path, 2))
	assert.NoFileExists(t, SlotPath(path, 3))

	require.NoError(t, save("4"))
	assert.Equal(t, 4, *calls)
	assert.Equal(t, "4", readFile(t, path))
	assert.Equal(t, "3", readFile(t, SlotPath(path, 1)))
	assert.Equal(t, "2", readFile(t, SlotPath(path, 2)))
	assert.Equal(t, "1", readFile(t, SlotPath(path, 3)))
	assert.NoFileExists(t, TempPath(path))
}

func TestSaveWithBackup_SlotContentAfterManySaves(t *testing.T) {
	const slots = 3
	path := filepath.Join(t.TempDir(), "out.json")
	save, _ := saver(t, path, Options{Enabled: true, Slots: slots})

	const saves = 7
	for i := 1; i <= saves; i++ {
		require.NoError(t, save(strconv.Itoa(i)))
	}

	for k := 1; k <= slots; k++ {
		assert.Equal(t, strconv.Itoa(saves-k), readFile(t, SlotPath(path, k)), "slot %d", k)
	}
	assert.NoFileExists(t, SlotPath(path, slots+1))
}

func TestSaveWithBackup_SingleSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	save, _ := saver(t, path, Options{Enabled: true, Slots: 1})

	for i := 1; i <= 4; i++ {
		require.NoError(t, save(strconv.Itoa(i)))
	}

	assert.Equal(t, "4", readFile(t, path))
	assert.Equal(t, "3", readFile(t, SlotPath(path, 1)))
	assert.NoFileExists(t, SlotPath(path, 2))
}

func TestSaveWithBackup_Disabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	save, calls := saver(t, path, Options{Enabled: false, Slots: 3})

	for i := 1; i <= 4; i++ {
		require.NoError(t, save(strconv.Itoa(i)))
	}

	assert.Equal(t, 4, *calls)
	assert.Equal(t, "4", readFile(t, path))
	matches, err := filepath.Glob(path + ".bkp-*")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSaveWithBackup_WriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	save, _ := saver(t, path, Options{Enabled: true, Slots: 3})
	ioErr := errors.New("disk full")

	require.NoError(t, save("1"))
	require.NoError(t, save("2"))

	err := SaveWithBackup(path, Options{Enabled: true, Slots: 3}, func(tmp string) error {
		require.NoError(t, WriteFile(tmp, []byte("partial"), 0o644))
		return ioErr
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ioErr)

	var bErr *Error
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, OpWrite, bErr.Op)

	// Nothing rotated, live file untouched.
	assert.Equal(t, "2", readFile(t, path))
	assert.Equal(t, "1", readFile(t, SlotPath(path, 1)))
	assert.NoFileExists(t, SlotPath(path, 2))
	assert.NoFileExists(t, TempPath(path))

	require.NoError(t, save("3"))
	assert.Equal(t, "1", readFile(t, SlotPath(path, 2)))
}

func TestSaveWithBackup_FollowsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.json")
	link := filepath.Join(dir, "link.json")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))
	require.NoError(t, os.Symlink(target, link))

	err := SaveWithBackup(link, DefaultOptions(), func(tmp string) error {
		return WriteFile(tmp, []byte("new"), 0o644)
	})
	require.NoError(t, err)

	info, err := os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink, "link must survive the save")
	assert.Equal(t, "new", readFile(t, target))
	assert.Equal(t, "old", readFile(t, SlotPath(link, 1)))
}

func TestSaveWithBackup_ResolveFailure(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	require.NoError(t, os.Symlink(b, a))
	require.NoError(t, os.Symlink(a, b))

	called := false
	err := SaveWithBackup(a, DefaultOptions(), func(string) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.ErrorIs(t, err, syscall.ELOOP)

	var bErr *Error
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, OpResolve, bErr.Op)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.True(t, opts.Enabled)
	assert.Equal(t, DefaultSlots, opts.Slots)
}
