package model

import "time"

// ExecutionStatus is the lifecycle state of an Execution.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "PENDING"
	ExecutionRunning   ExecutionStatus = "RUNNING"
	ExecutionCompleted ExecutionStatus = "COMPLETED"
	ExecutionFailed    ExecutionStatus = "FAILED"
	ExecutionCancelled ExecutionStatus = "CANCELLED"
)

// IsTerminal reports whether the status is final.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed || s == ExecutionCancelled
}

// CanTransitionTo enforces the monotonic lifecycle from spec.md §3: no
// state revisits, and RUNNING -> FAILED -> COMPLETED is forbidden (FAILED
// is terminal).
func (s ExecutionStatus) CanTransitionTo(target ExecutionStatus) bool {
	switch s {
	case ExecutionPending:
		return target == ExecutionRunning
	case ExecutionRunning:
		return target == ExecutionCompleted || target == ExecutionFailed || target == ExecutionCancelled
	default:
		return false // terminal states never transition
	}
}

// StepResultStatus is the lifecycle state of a single StepResult.
type StepResultStatus string

const (
	StepResultPending   StepResultStatus = "PENDING"
	StepResultRunning   StepResultStatus = "RUNNING"
	StepResultCompleted StepResultStatus = "COMPLETED"
	StepResultFailed    StepResultStatus = "FAILED"
	StepResultSkipped   StepResultStatus = "SKIPPED"
)

// IsTerminal reports whether the step result status is final.
func (s StepResultStatus) IsTerminal() bool {
	switch s {
	case StepResultCompleted, StepResultFailed, StepResultSkipped:
		return true
	}
	return false
}

// FailureReason is the terminal cause recorded on a failed Execution.
type FailureReason struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	StepID   string `json:"stepId,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
}

// StepResult is the per-step outcome tracked inside an Execution.
type StepResult struct {
	StepID    string           `json:"stepId"`
	Status    StepResultStatus `json:"status"`
	StartedAt time.Time        `json:"startedAt"`
	EndedAt   *time.Time       `json:"endedAt,omitempty"`
	Attempts  int              `json:"attempts"`
	Output    any              `json:"output,omitempty"`
	Error     *FailureReason   `json:"error,omitempty"`
}

// ExecutionContext carries the immutable inputs an Execution was created
// with (tenant/agent identity, request-scoped constraints, etc).
type ExecutionContext map[string]any

// Execution is one live or historical run of a Workflow.
type Execution struct {
	ExecutionID string           `json:"executionId"`
	AgentID     string           `json:"agentId"`
	TenantID    string           `json:"tenantId"`
	WorkflowID  string           `json:"workflowId"`
	StartedAt   time.Time        `json:"startedAt"`
	EndedAt     *time.Time       `json:"endedAt,omitempty"`
	Status      ExecutionStatus  `json:"status"`
	Context     ExecutionContext `json:"context,omitempty"`
	Variables   map[string]any   `json:"variables"`
	StepResults []*StepResult    `json:"stepResults"`
	MandateChainID string        `json:"mandateChainId,omitempty"`
	FailureReason  *FailureReason `json:"failureReason,omitempty"`
	Metrics        *ExecutionMetrics `json:"metrics,omitempty"`

	// visitCount tracks how many times each step id has been traversed, to
	// enforce the workflow's loop bound on CONDITION loopbacks.
	visitCount map[string]int
}

// ExecutionMetrics is the end-of-execution summary spec.md §4.3 names.
type ExecutionMetrics struct {
	TotalSteps      int   `json:"totalSteps"`
	CompletedSteps  int   `json:"completedSteps"`
	FailedSteps     int   `json:"failedSteps"`
	DurationMS      int64 `json:"durationMs"`
	CostAccumulated float64 `json:"costAccumulated"`
}

// NewExecution creates a fresh RUNNING execution seeded with the given
// identity and inputs.
func NewExecution(executionID, agentID, tenantID, workflowID string, ctx ExecutionContext, now time.Time) *Execution {
	return &Execution{
		ExecutionID: executionID,
		AgentID:     agentID,
		TenantID:    tenantID,
		WorkflowID:  workflowID,
		StartedAt:   now,
		Status:      ExecutionPending,
		Context:     ctx,
		Variables:   make(map[string]any),
		visitCount:  make(map[string]int),
	}
}

// Start transitions the execution to RUNNING.
func (e *Execution) Start() error {
	if !e.Status.CanTransitionTo(ExecutionRunning) {
		return &invalidTransitionError{from: string(e.Status), to: string(ExecutionRunning)}
	}
	e.Status = ExecutionRunning
	return nil
}

// Finish transitions the execution to a terminal status and stamps EndedAt.
func (e *Execution) Finish(status ExecutionStatus, now time.Time, reason *FailureReason) error {
	if !e.Status.CanTransitionTo(status) {
		return &invalidTransitionError{from: string(e.Status), to: string(status)}
	}
	e.Status = status
	e.EndedAt = &now
	e.FailureReason = reason
	return nil
}

// VisitCount returns how many times stepID has been dispatched in this
// execution so far (used to enforce the workflow loop bound).
func (e *Execution) VisitCount(stepID string) int {
	if e.visitCount == nil {
		return 0
	}
	return e.visitCount[stepID]
}

// RecordVisit increments the visit counter for stepID and returns the new count.
func (e *Execution) RecordVisit(stepID string) int {
	if e.visitCount == nil {
		e.visitCount = make(map[string]int)
	}
	e.visitCount[stepID]++
	return e.visitCount[stepID]
}

// StepResultByID returns the most recent StepResult for stepID, or nil.
func (e *Execution) StepResultByID(stepID string) *StepResult {
	for i := len(e.StepResults) - 1; i >= 0; i-- {
		if e.StepResults[i].StepID == stepID {
			return e.StepResults[i]
		}
	}
	return nil
}

type invalidTransitionError struct {
	from, to string
}

func (e *invalidTransitionError) Error() string {
	return "invalid transition from " + e.from + " to " + e.to
}
