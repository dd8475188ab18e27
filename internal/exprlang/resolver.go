package exprlang

import (
	"fmt"
	"strings"
)

// Undefined is the literal spliced in for an unresolved reference per
// spec.md §4.3: unresolved references do not abort execution, they
// degrade to the string "undefined" and are recorded as a warning.
const Undefined = "undefined"

// Scope is a variable namespace resolved by dotted path. Top-level keys
// that themselves contain dots (such as "steps.A") are looked up first,
// longest prefix first; a miss descends through nested maps for the
// remaining path segments.
type Scope map[string]any

// Lookup resolves a dotted path against the scope. ok is false if any
// segment along the path is missing or indexes into a non-map value.
func (s Scope) Lookup(path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	for i := len(path); i > 1; i-- {
		if val, ok := s[strings.Join(path[:i], ".")]; ok {
			return descend(val, path[i:])
		}
	}
	val, ok := s[path[0]]
	if !ok {
		return nil, false
	}
	return descend(val, path[1:])
}

func descend(val any, rest []string) (any, bool) {
	if len(rest) == 0 {
		return val, true
	}
	switch v := val.(type) {
	case map[string]any:
		next, ok := v[rest[0]]
		if !ok {
			return nil, false
		}
		return descend(next, rest[1:])
	case Scope:
		return v.Lookup(rest)
	default:
		return nil, false
	}
}

// Warning records one unresolved reference encountered during resolution.
type Warning struct {
	Path string
	Raw  string
}

// Resolve evaluates every node of t against scope. For a whole-expression
// template (exactly one `${...}` reference, no surrounding text), the
// resolved value's original type is returned unchanged. Otherwise every
// reference is stringified and spliced into the surrounding literal text.
// Unresolved references never produce an error; they splice in Undefined
// and are appended to warnings.
func Resolve(t *Template, scope Scope) (any, []Warning) {
	var warnings []Warning

	if ref, ok := t.WholeExpression(); ok {
		val, found := scope.Lookup(ref.Path)
		if !found {
			warnings = append(warnings, Warning{Path: ref.Raw, Raw: ref.Raw})
			return Undefined, warnings
		}
		return val, warnings
	}

	var out string
	for _, n := range t.Nodes {
		switch node := n.(type) {
		case Literal:
			out += node.Text
		case Ref:
			val, found := scope.Lookup(node.Path)
			if !found {
				warnings = append(warnings, Warning{Path: node.Raw, Raw: node.Raw})
				out += Undefined
				continue
			}
			out += stringify(val)
		}
	}
	return out, warnings
}

// ResolveString is a convenience wrapper combining Parse and Resolve for a
// single string value, returning its resolved value and any warnings. A
// parse error is returned as-is (it is a validation-time concern, distinct
// from the warning-only handling of unresolved references).
func ResolveString(raw string, scope Scope) (any, []Warning, error) {
	t, err := Parse(raw)
	if err != nil {
		return nil, nil, err
	}
	val, warnings := Resolve(t, scope)
	return val, warnings, nil
}

// ResolveParameters walks a step's parameter map, resolving every string
// value as a template and leaving non-string values untouched. Nested
// maps and slices are resolved recursively.
func ResolveParameters(params map[string]any, scope Scope) (map[string]any, []Warning, error) {
	out := make(map[string]any, len(params))
	var warnings []Warning
	for k, v := range params {
		resolved, ws, err := resolveValue(v, scope)
		if err != nil {
			return nil, nil, fmt.Errorf("parameter %q: %w", k, err)
		}
		out[k] = resolved
		warnings = append(warnings, ws...)
	}
	return out, warnings, nil
}

func resolveValue(v any, scope Scope) (any, []Warning, error) {
	switch val := v.(type) {
	case string:
		return ResolveString(val, scope)
	case map[string]any:
		resolved, warnings, err := ResolveParameters(val, scope)
		return resolved, warnings, err
	case []any:
		out := make([]any, len(val))
		var warnings []Warning
		for i, item := range val {
			resolved, ws, err := resolveValue(item, scope)
			if err != nil {
				return nil, nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = resolved
			warnings = append(warnings, ws...)
		}
		return out, warnings, nil
	default:
		return v, nil, nil
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
