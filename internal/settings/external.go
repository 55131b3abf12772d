package settings

import (
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"

	"github.com/dshills/jsettings/internal/settings/loader"
	"github.com/dshills/jsettings/internal/settings/serialize"
)

// Apply writes every leaf of values into the document through the nodes
// for their paths, so handles and observers see the import. Nested maps
// are addressed by JSON Pointer; arrays are written whole. Leaves are
// applied in lexical path order and a failing leaf does not stop the
// others. A manager that saves on every change saves once, after the
// last leaf.
func (m *Manager) Apply(values map[string]any, source Source) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	leaves := loader.Flatten(values)
	paths := make([]string, 0, len(leaves))
	for p := range leaves {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	var result *multierror.Error
	written := 0
	for _, p := range paths {
		raw, err := serialize.Serialize(leaves[p])
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", p, err))
			continue
		}
		d, err := m.Data(p)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if err := d.MarshalJSON(raw, SignalArgs{Source: source}, skipAutoSave); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		written++
	}
	if written > 0 {
		m.saveOnChange()
	}

	m.logger.Debug("Applied settings", "source", source, "leaves", len(paths), "written", written)
	return result.ErrorOrNil()
}

// ImportTOML applies the TOML file at path, following "@include" keys.
func (m *Manager) ImportTOML(path string) error {
	values, err := loader.NewTOMLLoader(path).LoadWithIncludes(path, loader.DefaultIncludeDepth)
	if err != nil {
		return err
	}
	return m.Apply(values, SourceExternal)
}

// ApplyEnvironment applies environment variables named prefix + KEY. A
// variable APP_EDITOR_TAB_SIZE with prefix "APP_" sets /editor/tabSize.
func (m *Manager) ApplyEnvironment(prefix string) error {
	values, err := loader.NewEnvLoader(prefix).Load()
	if err != nil {
		return err
	}
	return m.Apply(values, SourceExternal)
}
