// Package engine implements WorkflowEngine: pure, side-effect-free
// validation and deterministic ordering of a workflow's step graph.
package engine

import (
	"fmt"

	"github.com/meowstack/agentflow/internal/exprlang"
	"github.com/meowstack/agentflow/internal/model"
)

// ValidationResult is the outcome of WorkflowEngine.Validate.
type ValidationResult struct {
	OK       bool
	Errors   []string
	Warnings []string
}

// Engine is the WorkflowEngine: validates and orders a workflow's step
// graph. It holds no mutable state; every call is a pure function of its
// arguments, so a single Engine value may be shared across tenants.
type Engine struct {
	// idempotent reports whether a toolId is known to be safe to retry.
	// Optional: when nil, the idempotency warning heuristic (rule 7's
	// sibling warning about RETRY on a non-idempotent payment tool) is
	// skipped.
	idempotent func(toolID string) (isIdempotent bool, known bool)
}

// New creates an Engine. idempotencyLookup may be nil; when provided, it
// backs the "retry policy on a non-idempotent tool" warning heuristic,
// typically wired to a ToolRegistry.
func New(idempotencyLookup func(toolID string) (bool, bool)) *Engine {
	return &Engine{idempotent: idempotencyLookup}
}

// Validate checks every rule in spec.md §4.1. It never mutates workflow
// and never touches external state.
func (e *Engine) Validate(workflow *model.Workflow) ValidationResult {
	var errs, warnings []string

	// Rule 1: at least one step, exactly one TRIGGER.
	if len(workflow.Steps) == 0 {
		errs = append(errs, "workflow must have at least one step")
	}
	triggerCount := 0
	for _, s := range workflow.Steps {
		if s.Kind == model.StepTrigger {
			triggerCount++
		}
	}
	if triggerCount != 1 {
		errs = append(errs, fmt.Sprintf("workflow must have exactly one TRIGGER step, found %d", triggerCount))
	}

	// Rule 2: ids non-empty and unique.
	seen := make(map[string]bool, len(workflow.Steps))
	for i, s := range workflow.Steps {
		if s.ID == "" {
			errs = append(errs, fmt.Sprintf("step[%d]: id is required", i))
			continue
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Sprintf("step[%d]: duplicate id %q", i, s.ID))
			continue
		}
		seen[s.ID] = true
	}

	// Rule 3: every successor reference resolves within the graph.
	for _, s := range workflow.Steps {
		for _, target := range s.Successors.Targets() {
			if !seen[target] {
				errs = append(errs, fmt.Sprintf("step %q: successor %q does not exist", s.ID, target))
			}
		}
	}

	// Rule 6: timeout and retry bounds (Step.Validate already encodes the
	// numeric ranges; surface every per-step problem here).
	for _, s := range workflow.Steps {
		if err := s.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	// Rule 5: parameters parse as syntactically valid template expressions.
	for _, s := range workflow.Steps {
		if err := exprlang.ValidateParameters(s.Parameters); err != nil {
			errs = append(errs, fmt.Sprintf("step %q: %v", s.ID, err))
		}
	}

	// Rule 7: only CONDITION steps may have more than one outgoing successor.
	for _, s := range workflow.Steps {
		if s.Kind != model.StepCondition && len(s.Successors.Targets()) > 1 {
			errs = append(errs, fmt.Sprintf("step %q: only CONDITION steps may have more than one successor", s.ID))
		}
	}

	// Rule 4: every non-trigger step reachable from the trigger. Only
	// meaningful once the graph is otherwise well-formed.
	if len(errs) == 0 {
		reachable := reachableFrom(workflow, workflow.Trigger())
		for _, s := range workflow.Steps {
			if s.Kind == model.StepTrigger {
				continue
			}
			if !reachable[s.ID] {
				errs = append(errs, fmt.Sprintf("step %q is not reachable from the trigger", s.ID))
			}
		}
		warnForIsolatedAndContinue(workflow, reachable, &warnings)
	}

	e.warnNonIdempotentRetry(workflow, &warnings)

	return ValidationResult{OK: len(errs) == 0, Errors: errs, Warnings: warnings}
}

// reachableFrom performs a BFS over successor edges starting at trigger.
func reachableFrom(workflow *model.Workflow, trigger *model.Step) map[string]bool {
	visited := map[string]bool{}
	if trigger == nil {
		return visited
	}
	queue := []string{trigger.ID}
	visited[trigger.ID] = true
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		step := workflow.StepByID(id)
		if step == nil {
			continue
		}
		for _, target := range step.Successors.Targets() {
			if !visited[target] {
				visited[target] = true
				queue = append(queue, target)
			}
		}
	}
	return visited
}

// warnForIsolatedAndContinue appends the non-fatal warnings named in
// spec.md §4.1: isolated subgraphs, and CONTINUE feeding a downstream step
// that references the failed step's output.
func warnForIsolatedAndContinue(workflow *model.Workflow, reachable map[string]bool, warnings *[]string) {
	for _, s := range workflow.Steps {
		if !reachable[s.ID] && s.Kind != model.StepTrigger {
			*warnings = append(*warnings, fmt.Sprintf("step %q is part of an isolated subgraph", s.ID))
		}
	}

	for _, s := range workflow.Steps {
		if s.ErrorPolicy.Kind != model.PolicyContinue {
			continue
		}
		for _, targetID := range s.Successors.Targets() {
			target := workflow.StepByID(targetID)
			if target == nil {
				continue
			}
			if referencesStepOutput(target.Parameters, s.ID) {
				*warnings = append(*warnings, fmt.Sprintf(
					"step %q uses CONTINUE but step %q requires its output", s.ID, target.ID))
			}
		}
	}
}

// referencesStepOutput reports whether any parameter value contains a
// reference to steps.<stepID>.
func referencesStepOutput(params map[string]any, stepID string) bool {
	for _, v := range params {
		if containsReference(v, stepID) {
			return true
		}
	}
	return false
}

func containsReference(v any, stepID string) bool {
	switch val := v.(type) {
	case string:
		t, err := exprlang.Parse(val)
		if err != nil {
			return false
		}
		for _, n := range t.Nodes {
			ref, ok := n.(exprlang.Ref)
			if ok && len(ref.Path) > 1 && ref.Path[0] == "steps" && ref.Path[1] == stepID {
				return true
			}
		}
		return false
	case map[string]any:
		for _, vv := range val {
			if containsReference(vv, stepID) {
				return true
			}
		}
	case []any:
		for _, vv := range val {
			if containsReference(vv, stepID) {
				return true
			}
		}
	}
	return false
}

// warnNonIdempotentRetry implements the heuristic warning for a RETRY
// policy on a step whose tool declares idempotent=false.
func (e *Engine) warnNonIdempotentRetry(workflow *model.Workflow, warnings *[]string) {
	if e.idempotent == nil {
		return
	}
	for _, s := range workflow.Steps {
		if s.ErrorPolicy.Kind != model.PolicyRetry {
			continue
		}
		isIdempotent, known := e.idempotent(s.ToolID)
		if known && !isIdempotent {
			*warnings = append(*warnings, fmt.Sprintf(
				"step %q retries tool %q which is not idempotent", s.ID, s.ToolID))
		}
	}
}
