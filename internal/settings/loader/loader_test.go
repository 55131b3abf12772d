package loader

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFS is an in-memory file system for testing.
type memFS struct {
	files map[string][]byte
}

func newMemFS() *memFS {
	return &memFS{files: make(map[string][]byte)}
}

func (m *memFS) add(path, content string) {
	m.files[path] = []byte(content)
}

func (m *memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *memFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0o644 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

func TestTOMLLoader_Load(t *testing.T) {
	memfs := newMemFS()
	memfs.add("/settings.toml", `
[editor]
tabSize = 4
insertSpaces = true
ratio = 0.5

[ui]
theme = "dark"
`)

	values, err := NewTOMLLoaderWithFS(memfs, "/settings.toml").Load()
	require.NoError(t, err)

	editor, ok := values["editor"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(4), editor["tabSize"])
	assert.Equal(t, true, editor["insertSpaces"])
	assert.Equal(t, 0.5, editor["ratio"])
	assert.Equal(t, "dark", values["ui"].(map[string]any)["theme"])
}

func TestTOMLLoader_Missing(t *testing.T) {
	values, err := NewTOMLLoaderWithFS(newMemFS(), "/nope.toml").Load()
	require.NoError(t, err)
	assert.Nil(t, values)
}

func TestTOMLLoader_ParseError(t *testing.T) {
	memfs := newMemFS()
	memfs.add("/bad.toml", "[editor\ntabSize = 4\n")

	_, err := NewTOMLLoaderWithFS(memfs, "/bad.toml").Load()
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "/bad.toml", pe.Path)
	assert.Positive(t, pe.Line)
}

func TestTOMLLoader_Includes(t *testing.T) {
	memfs := newMemFS()
	memfs.add("/conf/main.toml", `
"@include" = ["base.toml"]

[editor]
tabSize = 8
`)
	memfs.add("/conf/base.toml", `
[editor]
tabSize = 2
wordWrap = "on"
`)

	values, err := NewTOMLLoaderWithFS(memfs, "/conf/main.toml").Load()
	require.NoError(t, err)

	editor := values["editor"].(map[string]any)
	assert.Equal(t, int64(8), editor["tabSize"])
	assert.Equal(t, "on", editor["wordWrap"])
	assert.NotContains(t, values, IncludeKey)
}

func TestTOMLLoader_IncludeCycle(t *testing.T) {
	memfs := newMemFS()
	memfs.add("/a.toml", `"@include" = "b.toml"`)
	memfs.add("/b.toml", `"@include" = "a.toml"`)

	_, err := NewTOMLLoaderWithFS(memfs, "/a.toml").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include depth exceeded")
}

func TestTOMLLoader_RealFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = \"x\"\n"), 0o644))

	values, err := NewTOMLLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "x", values["name"])

	values, err = NewTOMLLoader(path).LoadFromReader(strings.NewReader("n = 1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), values["n"])
}

func TestEnvLoader_Load(t *testing.T) {
	l := NewEnvLoaderWithMapping("APP_", map[string]string{"THEME": "/ui/theme"})
	l.environ = func() []string {
		return []string{
			"APP_EDITOR_TAB_SIZE=4",
			"APP_EDITOR_WORD_WRAP=off",
			"APP_UI_RATIO=1.5",
			"APP_LIST=[1,2]",
			"APP_NAME=hello",
			"THEME=dark",
			"OTHER_VAR=x",
			"malformed",
		}
	}

	values, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"editor": map[string]any{"tabSize": int64(4), "wordWrap": false},
		"ui":     map[string]any{"ratio": 1.5, "theme": "dark"},
		"list":   []any{float64(1), float64(2)},
		"name":   "hello",
	}, values)
}

func TestEnvLoader_Mapping(t *testing.T) {
	l := NewEnvLoader("APP_")
	l.AddMapping("APP_SPECIAL", "/a~1b/c")
	l.environ = func() []string { return []string{"APP_SPECIAL=yes"} }

	values, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a/b": map[string]any{"c": true}}, values)

	l.RemoveMapping("APP_SPECIAL")
	values, err = l.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"special": true}, values)
}

func TestFlatten(t *testing.T) {
	got := Flatten(map[string]any{
		"editor": map[string]any{
			"tabSize": 4,
			"font":    map[string]any{"size": 12},
		},
		"a/b":   "x",
		"list":  []any{1, 2},
		"empty": map[string]any{},
	})

	assert.Equal(t, map[string]any{
		"/editor/tabSize":   4,
		"/editor/font/size": 12,
		"/a~1b":             "x",
		"/list":             []any{1, 2},
		"/empty":            map[string]any{},
	}, got)
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{"a": map[string]any{"x": 1, "y": 2}, "b": 1}
	src := map[string]any{"a": map[string]any{"y": 3}, "c": 4}

	got := DeepMerge(dst, src)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"x": 1, "y": 3},
		"b": 1,
		"c": 4,
	}, got)
}
