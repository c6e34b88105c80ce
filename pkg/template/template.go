// Package template renders transform-node templates. The grammar is
// deliberately narrow: "{{path}}" placeholders resolved by dotted-path lookup
// in the accumulated run context. Nothing is executed.
package template

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// Render substitutes every {{path}} placeholder in input with the value found
// at that dotted path in data. A template consisting of exactly one
// placeholder yields the looked-up value itself, preserving its type;
// otherwise values are stringified into the surrounding text.
//
// Unresolvable paths render as an empty string rather than failing the node;
// a malformed template (unclosed placeholder) is an error.
func Render(input string, data map[string]any) (any, error) {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, openDelim) && strings.HasSuffix(trimmed, closeDelim) {
		inner := strings.TrimSpace(trimmed[len(openDelim) : len(trimmed)-len(closeDelim)])
		if isPath(inner) {
			value, _ := Lookup(data, inner)

			return value, nil
		}
	}

	var out strings.Builder

	rest := input

	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			out.WriteString(rest)

			break
		}

		out.WriteString(rest[:start])
		rest = rest[start+len(openDelim):]

		end := strings.Index(rest, closeDelim)
		if end < 0 {
			return nil, fmt.Errorf("unclosed placeholder in template %q", input)
		}

		path := strings.TrimSpace(rest[:end])
		rest = rest[end+len(closeDelim):]

		if !isPath(path) {
			return nil, fmt.Errorf("invalid placeholder %q: only dotted-path lookups are supported", path)
		}

		value, ok := Lookup(data, path)
		if ok {
			out.WriteString(stringify(value))
		}
	}

	return out.String(), nil
}

// Lookup resolves a dotted path ("prev.result.status") in nested maps.
func Lookup(data map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")

	var current any = data

	for _, segment := range segments {
		asMap, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = asMap[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// isPath accepts dotted identifier paths and nothing else. Identifiers are
// letters, digits, underscores and hyphens.
func isPath(s string) bool {
	if s == "" {
		return false
	}

	for _, segment := range strings.Split(s, ".") {
		if segment == "" {
			return false
		}

		for _, r := range segment {
			switch {
			case r >= 'a' && r <= 'z':
			case r >= 'A' && r <= 'Z':
			case r >= '0' && r <= '9':
			case r == '_' || r == '-':
			default:
				return false
			}
		}
	}

	return true
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64, float32, int, int32, int64, bool:
		return fmt.Sprintf("%v", v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	}
}
