package loader

import "github.com/dshills/jsettings/internal/settings/jsondoc"

// Flatten turns a nested map into JSON Pointer keyed leaves. Arrays and
// empty maps are leaves.
func Flatten(values map[string]any) map[string]any {
	out := make(map[string]any)
	flatten(out, nil, values)
	return out
}

func flatten(out map[string]any, prefix []string, values map[string]any) {
	for k, v := range values {
		tokens := append(prefix[:len(prefix):len(prefix)], k)
		if sub, ok := v.(map[string]any); ok && len(sub) > 0 {
			flatten(out, tokens, sub)
			continue
		}
		out[jsondoc.Join(tokens...)] = v
	}
}
