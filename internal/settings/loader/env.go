package loader

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/dshills/jsettings/internal/settings/jsondoc"
)

// EnvLoader loads settings from environment variables.
//
// Variables named PREFIX_SECTION_SOME_KEY map to /section/someKey unless
// an explicit mapping names another pointer.
type EnvLoader struct {
	prefix  string            // Environment variable prefix (e.g., "APP_")
	mapping map[string]string // Env var -> JSON Pointer
	environ func() []string
}

// NewEnvLoader creates an environment variable loader.
// The prefix should include the trailing underscore (e.g., "APP_").
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: make(map[string]string),
		environ: os.Environ,
	}
}

// NewEnvLoaderWithMapping creates a loader with explicit variable mappings.
func NewEnvLoaderWithMapping(prefix string, mapping map[string]string) *EnvLoader {
	l := NewEnvLoader(prefix)
	for k, v := range mapping {
		l.mapping[k] = v
	}
	return l
}

// AddMapping maps envVar to a JSON Pointer.
func (l *EnvLoader) AddMapping(envVar, pointer string) {
	l.mapping[envVar] = pointer
}

// RemoveMapping removes an environment variable mapping.
func (l *EnvLoader) RemoveMapping(envVar string) {
	delete(l.mapping, envVar)
}

// Load reads the environment and returns a nested map.
// Note: Empty string values are treated as valid values, not as unset.
func (l *EnvLoader) Load() (map[string]any, error) {
	values := make(map[string]any)

	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}

		ptr, mapped := l.mapping[name]
		if !mapped {
			if l.prefix == "" || !strings.HasPrefix(name, l.prefix) {
				continue
			}
			ptr = l.envToPointer(name)
		}

		tokens, err := jsondoc.Split(ptr)
		if err != nil || len(tokens) == 0 {
			continue
		}
		setByTokens(values, tokens, parseValue(value))
	}

	return values, nil
}

// envToPointer converts APP_EDITOR_TAB_SIZE to /editor/tabSize.
func (l *EnvLoader) envToPointer(env string) string {
	name := strings.TrimPrefix(env, l.prefix)
	parts := strings.Split(name, "_")

	// First part is the section
	section := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return jsondoc.Join(section)
	}

	// Remaining parts form the setting name in camelCase
	key := strings.ToLower(parts[1])
	for _, part := range parts[2:] {
		if part != "" {
			key += strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
		}
	}
	return jsondoc.Join(section, key)
}

// parseValue attempts to parse the string value into an appropriate type.
func parseValue(s string) any {
	if s == "" {
		return s
	}

	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	// Only treat as float with a decimal point, to keep "1e3" style names
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}

	return s
}

// setByTokens sets a value in a nested map, creating intermediate maps.
func setByTokens(data map[string]any, tokens []string, value any) {
	current := data
	for _, tok := range tokens[:len(tokens)-1] {
		next, ok := current[tok].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[tok] = next
		}
		current = next
	}
	current[tokens[len(tokens)-1]] = value
}
