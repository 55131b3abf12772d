package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(&errOut)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSetGetCat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	_, err := run(t, "set", path, "/editor/tabSize", "4")
	require.NoError(t, err)
	_, err = run(t, "set", path, "/editor/theme", "dark")
	require.NoError(t, err)
	_, err = run(t, "set", path, "/rulers", "[80, 120]")
	require.NoError(t, err)

	out, err := run(t, "get", path, "/editor/tabSize")
	require.NoError(t, err)
	assert.Equal(t, "4\n", out)

	out, err = run(t, "get", path, "/editor/theme")
	require.NoError(t, err)
	assert.Equal(t, "\"dark\"\n", out)

	out, err = run(t, "cat", path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"editor":{"tabSize":4,"theme":"dark"},"rulers":[80,120]}`, out)

	_, err = run(t, "get", path, "/missing")
	assert.Error(t, err)
}

func TestSet_Backups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	for i := 0; i < 4; i++ {
		_, err := run(t, "set", "--backup-slots", "2", path, "/n", "1")
		require.NoError(t, err)
	}
	assert.FileExists(t, path+".bkp-1")
	assert.FileExists(t, path+".bkp-2")
	assert.NoFileExists(t, path+".bkp-3")

	other := filepath.Join(t.TempDir(), "settings.json")
	for i := 0; i < 2; i++ {
		_, err := run(t, "set", "--no-backup", other, "/n", "1")
		require.NoError(t, err)
	}
	assert.NoFileExists(t, other+".bkp-1")
}

func TestSet_EnvironmentConfig(t *testing.T) {
	t.Setenv("JSETTINGS_NO_BACKUP", "true")
	path := filepath.Join(t.TempDir(), "settings.json")

	for i := 0; i < 2; i++ {
		_, err := run(t, "set", path, "/n", "1")
		require.NoError(t, err)
	}
	assert.NoFileExists(t, path+".bkp-1")
}

func TestRm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":{"b":1},"c":2}`), 0o644))

	_, err := run(t, "rm", path, "/a")
	require.NoError(t, err)

	out, err := run(t, "cat", path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"c":2}`, out)

	_, err = run(t, "rm", path, "/a")
	assert.Error(t, err)
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	toml := filepath.Join(dir, "defaults.toml")
	require.NoError(t, os.WriteFile(toml, []byte("[editor]\ntabSize = 2\n"), 0o644))
	t.Setenv("JSIMPORT_UI_SCALE", "1.5")

	_, err := run(t, "import", "--env-prefix", "JSIMPORT_", path, toml)
	require.NoError(t, err)

	out, err := run(t, "cat", path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"editor":{"tabSize":2},"ui":{"scale":1.5}}`, out)
}

func TestInvalidFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	_, err := run(t, "cat", "--log-level", "loud", path)
	assert.Error(t, err)

	_, err = run(t, "cat", "--backup-slots=-1", path)
	assert.Error(t, err)

	_, err = run(t, "get", path)
	assert.Error(t, err)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cmd := NewRootCommand(&bytes.Buffer{})
	cfg, err := loadConfig(cmd.PersistentFlags())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.True(t, cfg.Backup().Enabled)
	assert.Equal(t, 100*time.Millisecond, cfg.Debounce)
}

func TestCat_RecoversTemporaryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path+".tmp", []byte(`{"recovered":true}`), 0o644))

	out, err := run(t, "cat", path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"recovered":true}`, out)
	assert.FileExists(t, path)
}
