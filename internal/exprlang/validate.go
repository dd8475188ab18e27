package exprlang

// ValidateSyntax parses raw and discards the result, reporting only
// whether it is a syntactically well-formed template. Used by
// WorkflowEngine.Validate (spec.md §4.1 rule 5) to check step parameters
// without needing a variable scope.
func ValidateSyntax(raw string) error {
	_, err := Parse(raw)
	return err
}

// ValidateParameters recursively validates every string value reachable
// from params, the parameter-map analogue of ValidateSyntax. Resolving
// against an empty scope never fails on missing variables (those degrade
// to warnings, not errors); any error it does return is a genuine syntax
// error.
func ValidateParameters(params map[string]any) error {
	_, _, err := ResolveParameters(params, Scope{})
	return err
}
