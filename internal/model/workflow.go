// Package model holds the core data types of the agentic workflow
// orchestrator: workflows, steps, tools, executions, and mandates.
package model

import (
	"fmt"
	"time"
)

// StepKind is the vertex type of a workflow graph.
type StepKind string

const (
	StepTrigger   StepKind = "TRIGGER"
	StepAction    StepKind = "ACTION"
	StepCondition StepKind = "CONDITION"
	StepApproval  StepKind = "APPROVAL"
)

// Valid reports whether k is a recognized step kind.
func (k StepKind) Valid() bool {
	switch k {
	case StepTrigger, StepAction, StepCondition, StepApproval:
		return true
	}
	return false
}

// ErrorPolicyKind names the per-step directive applied on tool failure.
type ErrorPolicyKind string

const (
	PolicyStop     ErrorPolicyKind = "STOP"
	PolicyContinue ErrorPolicyKind = "CONTINUE"
	PolicyRetry    ErrorPolicyKind = "RETRY"
	PolicyRollback ErrorPolicyKind = "ROLLBACK"
)

// ErrorPolicy is a step's error-handling directive.
type ErrorPolicy struct {
	Kind       ErrorPolicyKind `yaml:"kind" json:"kind"`
	MaxRetries int             `yaml:"max_retries,omitempty" json:"maxRetries,omitempty"` // only meaningful for RETRY, 0 < n <= 10
}

// Valid reports whether the error policy is well-formed.
func (p ErrorPolicy) Valid() bool {
	switch p.Kind {
	case PolicyStop, PolicyContinue, PolicyRollback:
		return true
	case PolicyRetry:
		return p.MaxRetries > 0 && p.MaxRetries <= 10
	}
	return false
}

// Conditional is one entry of a CONDITION step's branch table: the first
// expression that evaluates truthy selects its target.
type Conditional struct {
	Expression string `yaml:"expression" json:"expression"`
	TargetID   string `yaml:"target_id" json:"targetId"`
}

// Successors holds a step's three keyed outgoing edges.
type Successors struct {
	OnSuccess   string        `yaml:"on_success,omitempty" json:"onSuccess,omitempty"`
	OnFailure   string        `yaml:"on_failure,omitempty" json:"onFailure,omitempty"`
	Conditional []Conditional `yaml:"conditional,omitempty" json:"conditional,omitempty"`
}

// Targets returns every successor id this step can reach, in a stable order.
func (s Successors) Targets() []string {
	var out []string
	if s.OnSuccess != "" {
		out = append(out, s.OnSuccess)
	}
	if s.OnFailure != "" {
		out = append(out, s.OnFailure)
	}
	for _, c := range s.Conditional {
		if c.TargetID != "" {
			out = append(out, c.TargetID)
		}
	}
	return out
}

// Step is the vertex type in a Workflow graph.
type Step struct {
	ID          string            `yaml:"id" json:"id"`
	Kind        StepKind          `yaml:"kind" json:"kind"`
	ToolID      string            `yaml:"tool_id,omitempty" json:"toolId,omitempty"`
	Parameters  map[string]any    `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	TimeoutMS   int               `yaml:"timeout_ms" json:"timeoutMs"` // 1000 <= t <= 300000
	ErrorPolicy ErrorPolicy       `yaml:"error_policy" json:"errorPolicy"`
	Successors  Successors        `yaml:"successors" json:"successors"`
}

const (
	minStepTimeoutMS = 1000
	maxStepTimeoutMS = 5 * 60 * 1000
)

// Validate checks structural invariants local to the step (spec.md §4.1 rule 6).
func (s *Step) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("step id is required")
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("step %s: invalid kind %q", s.ID, s.Kind)
	}
	if s.TimeoutMS < minStepTimeoutMS || s.TimeoutMS > maxStepTimeoutMS {
		return fmt.Errorf("step %s: timeout_ms %d out of range [%d, %d]", s.ID, s.TimeoutMS, minStepTimeoutMS, maxStepTimeoutMS)
	}
	if !s.ErrorPolicy.Valid() {
		return fmt.Errorf("step %s: invalid error policy %+v", s.ID, s.ErrorPolicy)
	}
	if s.Kind != StepCondition && len(s.Successors.Conditional) > 0 {
		return fmt.Errorf("step %s: only CONDITION steps may declare conditional successors", s.ID)
	}
	return nil
}

// TimeLimitConstraint is the time-boxing portion of a tenant's workflow
// constraints (spec.md §5): "an execution also has an overall deadline
// derived from constraints.timeLimit.maxExecutionTime."
type TimeLimitConstraint struct {
	MaxExecutionTimeMS int `yaml:"max_execution_time_ms,omitempty" json:"maxExecutionTimeMs,omitempty"`
}

// WorkflowConstraints holds the tenant-level limits carried on a workflow.
// Budget/geo/approval constraints are evaluated per step by the relevant
// tool (internal/tools/approval.go); TimeLimit bounds the whole execution,
// so the Orchestrator enforces it directly rather than delegating to a tool.
type WorkflowConstraints struct {
	TimeLimit TimeLimitConstraint `yaml:"time_limit,omitempty" json:"timeLimit,omitempty"`
}

// Workflow is a named, versioned directed graph of steps belonging to a tenant.
type Workflow struct {
	ID        string         `yaml:"id" json:"id"`
	TenantID  string         `yaml:"tenant_id" json:"tenantId"`
	Name      string         `yaml:"name" json:"name"`
	Version   int            `yaml:"version" json:"version"`
	Steps     []*Step        `yaml:"steps" json:"steps"`
	Variables map[string]any `yaml:"variables,omitempty" json:"variables,omitempty"`

	// LoopBound caps how many times a CONDITION loopback may be traversed
	// for a single execution before the Orchestrator aborts it. Zero means
	// the engine default (100) applies.
	LoopBound int `yaml:"loop_bound,omitempty" json:"loopBound,omitempty"`

	// Constraints carries tenant-level limits, notably the execution-wide
	// time limit; see WorkflowConstraints.
	Constraints WorkflowConstraints `yaml:"constraints,omitempty" json:"constraints,omitempty"`
}

// EffectiveMaxExecutionTime returns the workflow's overall execution
// deadline: its own constraints.timeLimit.maxExecutionTime if set, else
// def (the orchestrator-wide default). Zero means unbounded.
func (w *Workflow) EffectiveMaxExecutionTime(def time.Duration) time.Duration {
	if w.Constraints.TimeLimit.MaxExecutionTimeMS > 0 {
		return time.Duration(w.Constraints.TimeLimit.MaxExecutionTimeMS) * time.Millisecond
	}
	return def
}

// EffectiveLoopBound returns the configured loop bound, or the spec default.
func (w *Workflow) EffectiveLoopBound() int {
	if w.LoopBound > 0 {
		return w.LoopBound
	}
	return 100
}

// StepByID returns the step with the given id, or nil.
func (w *Workflow) StepByID(id string) *Step {
	for _, s := range w.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Trigger returns the workflow's single TRIGGER step, or nil if there isn't
// exactly one (callers needing the invariant enforced should go through
// WorkflowEngine.Validate first).
func (w *Workflow) Trigger() *Step {
	var trigger *Step
	count := 0
	for _, s := range w.Steps {
		if s.Kind == StepTrigger {
			count++
			trigger = s
		}
	}
	if count != 1 {
		return nil
	}
	return trigger
}
