package jsondoc

import (
	"strings"

	"github.com/tidwall/gjson"
)

// AppendToken is the pointer token that addresses the position past the
// last element of an array.
const AppendToken = "-"

var tokenUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
var tokenEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// Split breaks a JSON Pointer into its unescaped reference tokens.
// The empty pointer addresses the root and yields no tokens.
func Split(ptr string) ([]string, error) {
	if ptr == "" {
		return nil, nil
	}
	if ptr[0] != '/' {
		return nil, &PointerError{Pointer: ptr, Reason: "must start with '/'"}
	}
	raw := strings.Split(ptr[1:], "/")
	tokens := make([]string, len(raw))
	for i, tok := range raw {
		if tok == "" {
			return nil, &PointerError{Pointer: ptr, Reason: "empty reference token"}
		}
		tokens[i] = tokenUnescaper.Replace(tok)
	}
	return tokens, nil
}

// EscapeToken escapes a single reference token for use inside a pointer.
func EscapeToken(tok string) string {
	return tokenEscaper.Replace(tok)
}

// Join builds a pointer from unescaped reference tokens.
func Join(tokens ...string) string {
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteByte('/')
		b.WriteString(EscapeToken(tok))
	}
	return b.String()
}

// IsPrefix reports whether ancestor equals ptr or addresses one of its
// parents. "/a" is a prefix of "/a" and "/a/b" but not of "/ab".
func IsPrefix(ancestor, ptr string) bool {
	if ancestor == "" {
		return true
	}
	if !strings.HasPrefix(ptr, ancestor) {
		return false
	}
	return len(ptr) == len(ancestor) || ptr[len(ancestor)] == '/'
}

// Valid reports whether ptr is a well-formed pointer.
func Valid(ptr string) bool {
	_, err := Split(ptr)
	return err == nil
}

// toPath converts reference tokens into a gjson/sjson path. The append
// token maps to sjson's "-1" index when it is the last token.
func toPath(tokens []string) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		if tok == AppendToken && i == len(tokens)-1 {
			parts[i] = "-1"
			continue
		}
		parts[i] = gjson.Escape(tok)
	}
	return strings.Join(parts, ".")
}
