// Package exprlang implements the agentflow step-parameter expression
// language: `${path.with.dots}` references resolved by dotted lookup
// against a variable map, spliced back either as a whole typed value
// (when the expression is the entire string) or textually (when mixed
// with surrounding literal text).
package exprlang

// Node is one element of a parsed template: either literal text or a
// variable reference.
type Node interface {
	node()
}

// Literal is a run of text with no substitution.
type Literal struct {
	Text string
}

func (Literal) node() {}

// Ref is a parsed `${path.with.dots}` reference.
type Ref struct {
	Path []string
	Raw  string // the original "path.with.dots" text, for error messages
}

func (Ref) node() {}

// Template is a parsed string: a sequence of literal and reference nodes.
type Template struct {
	Nodes []Node
}

// WholeExpression reports whether the template is exactly one reference
// with no surrounding literal text — the case where the resolved value's
// original type is preserved rather than stringified.
func (t *Template) WholeExpression() (*Ref, bool) {
	if len(t.Nodes) != 1 {
		return nil, false
	}
	ref, ok := t.Nodes[0].(Ref)
	if !ok {
		return nil, false
	}
	return &ref, true
}

// HasReferences reports whether the template contains any `${...}` node.
func (t *Template) HasReferences() bool {
	for _, n := range t.Nodes {
		if _, ok := n.(Ref); ok {
			return true
		}
	}
	return false
}
