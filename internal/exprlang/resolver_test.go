package exprlang

import "testing"

func TestResolveWholeExpressionPreservesType(t *testing.T) {
	scope := Scope{
		"steps": map[string]any{
			"fetch": map[string]any{
				"output": map[string]any{
					"amount": 42,
				},
			},
		},
	}

	val, warnings, err := ResolveString("${steps.fetch.output.amount}", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if val != 42 {
		t.Errorf("val = %v (%T), want int 42", val, val)
	}
}

func TestResolveMixedTemplateStringifies(t *testing.T) {
	scope := Scope{"cart": map[string]any{"total": 19.99}}

	val, warnings, err := ResolveString("total: ${cart.total} usd", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	want := "total: 19.99 usd"
	if val != want {
		t.Errorf("val = %q, want %q", val, want)
	}
}

func TestResolveUnresolvedReferenceProducesUndefinedWarning(t *testing.T) {
	val, warnings, err := ResolveString("${missing.path}", Scope{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != Undefined {
		t.Errorf("val = %v, want %q", val, Undefined)
	}
	if len(warnings) != 1 || warnings[0].Raw != "missing.path" {
		t.Errorf("expected one warning for missing.path, got %v", warnings)
	}
}

func TestResolveUnresolvedInMixedTemplate(t *testing.T) {
	val, warnings, err := ResolveString("value is ${missing}", Scope{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "value is undefined"
	if val != want {
		t.Errorf("val = %q, want %q", val, want)
	}
	if len(warnings) != 1 {
		t.Errorf("expected 1 warning, got %d", len(warnings))
	}
}

func TestResolveDescendsThroughNestedMaps(t *testing.T) {
	scope := Scope{
		"a": map[string]any{
			"b": map[string]any{
				"c": "leaf",
			},
		},
	}
	val, _, err := ResolveString("${a.b.c}", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "leaf" {
		t.Errorf("val = %v, want leaf", val)
	}
}

func TestResolveFailsGracefullyOnNonMapDescent(t *testing.T) {
	scope := Scope{"a": "not a map"}
	val, warnings, err := ResolveString("${a.b}", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != Undefined || len(warnings) != 1 {
		t.Errorf("expected undefined + warning descending through a scalar, got val=%v warnings=%v", val, warnings)
	}
}

func TestResolveParametersRecursesNestedStructures(t *testing.T) {
	scope := Scope{"cart": map[string]any{"total": 100}}
	params := map[string]any{
		"amount": "${cart.total}",
		"nested": map[string]any{
			"label": "order: ${cart.total}",
		},
		"tags": []any{"${cart.total}", "static"},
		"flag": true,
	}

	resolved, warnings, err := ResolveParameters(params, scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if resolved["amount"] != 100 {
		t.Errorf("amount = %v, want int 100", resolved["amount"])
	}
	nested, ok := resolved["nested"].(map[string]any)
	if !ok || nested["label"] != "order: 100" {
		t.Errorf("nested.label = %v, want %q", resolved["nested"], "order: 100")
	}
	tags, ok := resolved["tags"].([]any)
	if !ok || tags[0] != 100 || tags[1] != "static" {
		t.Errorf("tags = %v", resolved["tags"])
	}
	if resolved["flag"] != true {
		t.Errorf("flag = %v, want true unchanged", resolved["flag"])
	}
}

func TestResolveParametersPropagatesSyntaxError(t *testing.T) {
	params := map[string]any{"bad": "${unterminated"}
	if _, _, err := ResolveParameters(params, Scope{}); err == nil {
		t.Error("expected syntax error to propagate")
	}
}

func TestValidateSyntax(t *testing.T) {
	if err := ValidateSyntax("${a.b.c} and text"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateSyntax("${a..b}"); err == nil {
		t.Error("expected error for empty path segment")
	}
}

func TestValidateParametersIgnoresMissingVariables(t *testing.T) {
	params := map[string]any{"x": "${not.defined.yet}"}
	if err := ValidateParameters(params); err != nil {
		t.Errorf("missing variables should not fail syntax validation: %v", err)
	}
}
