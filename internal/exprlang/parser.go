package exprlang

import (
	"fmt"
	"strings"
)

// Parse lexes input into a Template AST. A `${` that is never closed by a
// matching `}` is a syntax error (spec.md §4.1 rule 5: parameters must
// parse as syntactically valid template expressions).
func Parse(input string) (*Template, error) {
	var nodes []Node
	var lit strings.Builder

	i := 0
	for i < len(input) {
		if input[i] == '$' && i+1 < len(input) && input[i+1] == '{' {
			end := strings.IndexByte(input[i+2:], '}')
			if end == -1 {
				return nil, fmt.Errorf("exprlang: unterminated expression starting at byte %d", i)
			}
			if lit.Len() > 0 {
				nodes = append(nodes, Literal{Text: lit.String()})
				lit.Reset()
			}

			raw := strings.TrimSpace(input[i+2 : i+2+end])
			path, err := parsePath(raw)
			if err != nil {
				return nil, fmt.Errorf("exprlang: %w", err)
			}
			nodes = append(nodes, Ref{Path: path, Raw: raw})

			i = i + 2 + end + 1
			continue
		}
		lit.WriteByte(input[i])
		i++
	}
	if lit.Len() > 0 {
		nodes = append(nodes, Literal{Text: lit.String()})
	}

	return &Template{Nodes: nodes}, nil
}

// parsePath splits a dotted reference path and rejects empty segments.
func parsePath(raw string) ([]string, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty expression")
	}
	parts := strings.Split(raw, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid path %q: empty path segment", raw)
		}
	}
	return parts, nil
}

// MustParse parses input and panics on error; reserved for call sites that
// have already validated input (e.g. re-parsing a string the engine
// already accepted).
func MustParse(input string) *Template {
	t, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return t
}
