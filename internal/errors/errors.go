// Package errors provides the structured error taxonomy for agentflow.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Error codes for agentflow operations, grouped by the taxonomy in the design.
const (
	// Workflow validation
	CodeValidation = "VALIDATION_001" // workflow structure or parameters invalid

	// Tool registry
	CodeToolNotFound = "TOOL_001" // no tool registered under the given id
	CodeToolConflict = "TOOL_002" // duplicate registration for a tool id

	// Step execution
	CodeToolExecutionError = "EXEC_001" // tool rejected or threw
	CodeTimeout            = "EXEC_002" // step or execution deadline exceeded
	CodeCancelled          = "EXEC_003" // external cancellation fired

	// Mandate chain
	CodeChainMismatch    = "MANDATE_001" // prevHash disagrees with the last stored record
	CodeSequenceGap      = "MANDATE_002" // non-contiguous sequence numbers on verify
	CodeSignatureInvalid = "MANDATE_003" // signature does not verify

	// Tenant constraints
	CodeConstraintViolation = "CONSTRAINT_001" // budget/geo/approval predicate rejected the step

	// Infrastructure
	CodeStoreUnavailable    = "INFRA_001" // Store degraded
	CodeEventBusUnavailable = "INFRA_002" // EventBus degraded
)

// AgentflowError is the structured error type for agentflow operations.
type AgentflowError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

// Error implements the error interface.
func (e *AgentflowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AgentflowError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *AgentflowError) WithDetail(key string, value any) *AgentflowError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error.
func (e *AgentflowError) WithCause(err error) *AgentflowError {
	e.Cause = err
	return e
}

// MarshalJSON includes the cause's message since errors don't serialize.
func (e *AgentflowError) MarshalJSON() ([]byte, error) {
	type alias AgentflowError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{alias: (*alias)(e)}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// New creates a new AgentflowError.
func New(code, message string) *AgentflowError {
	return &AgentflowError{Code: code, Message: message}
}

// Newf creates a new AgentflowError with a formatted message.
func Newf(code, format string, args ...any) *AgentflowError {
	return &AgentflowError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an underlying error with a code and message.
func Wrap(code, message string, err error) *AgentflowError {
	return &AgentflowError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an underlying error with a formatted message.
func Wrapf(code string, err error, format string, args ...any) *AgentflowError {
	return &AgentflowError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// --- Validation ---

// Validation creates a validation error for a workflow.
func Validation(workflowID string, problems []string) *AgentflowError {
	return Newf(CodeValidation, "workflow %s failed validation: %d problem(s)", workflowID, len(problems)).
		WithDetail("workflow_id", workflowID).
		WithDetail("problems", problems)
}

// --- Tool registry ---

// ToolNotFound creates an error for an unregistered tool id.
func ToolNotFound(toolID string) *AgentflowError {
	return Newf(CodeToolNotFound, "tool not found: %s", toolID).WithDetail("tool_id", toolID)
}

// ToolConflict creates an error for a duplicate tool registration.
func ToolConflict(toolID string) *AgentflowError {
	return Newf(CodeToolConflict, "tool already registered: %s", toolID).WithDetail("tool_id", toolID)
}

// --- Step execution ---

// ToolExecutionError wraps a tool-level failure for a given step.
func ToolExecutionError(stepID, toolID string, err error) *AgentflowError {
	return Wrapf(CodeToolExecutionError, err, "tool %s failed for step %s", toolID, stepID).
		WithDetail("step_id", stepID).
		WithDetail("tool_id", toolID)
}

// Timeout creates an error for a step or execution deadline exceeded.
func Timeout(stepID string, deadline string) *AgentflowError {
	return Newf(CodeTimeout, "step %s exceeded its deadline (%s)", stepID, deadline).
		WithDetail("step_id", stepID).
		WithDetail("deadline", deadline)
}

// Cancelled creates an error for an externally cancelled execution.
func Cancelled(executionID string) *AgentflowError {
	return Newf(CodeCancelled, "execution %s was cancelled", executionID).
		WithDetail("execution_id", executionID)
}

// ExecutionDeadlineExceeded creates an error for an execution that ran past
// its constraints.timeLimit.maxExecutionTime (spec.md §5).
func ExecutionDeadlineExceeded(executionID string, maxExecutionTime time.Duration) *AgentflowError {
	return Newf(CodeTimeout, "execution %s exceeded its max execution time (%s)", executionID, maxExecutionTime).
		WithDetail("execution_id", executionID).
		WithDetail("max_execution_time", maxExecutionTime.String())
}

// --- Mandate chain ---

// ChainMismatch creates an error for a prevHash disagreement.
func ChainMismatch(chainID string, sequence int) *AgentflowError {
	return Newf(CodeChainMismatch, "mandate chain %s: prevHash mismatch at sequence %d", chainID, sequence).
		WithDetail("chain_id", chainID).
		WithDetail("sequence", sequence)
}

// SequenceGap creates an error for non-contiguous mandate sequences.
func SequenceGap(chainID string, expected, got int) *AgentflowError {
	return Newf(CodeSequenceGap, "mandate chain %s: expected sequence %d, got %d", chainID, expected, got).
		WithDetail("chain_id", chainID).
		WithDetail("expected", expected).
		WithDetail("got", got)
}

// SignatureInvalid creates an error for a signature that fails verification.
func SignatureInvalid(mandateID, keyID string) *AgentflowError {
	return Newf(CodeSignatureInvalid, "mandate %s: signature from key %s failed verification", mandateID, keyID).
		WithDetail("mandate_id", mandateID).
		WithDetail("key_id", keyID)
}

// --- Tenant constraints ---

// ConstraintViolation creates an error for a rejected tenant-level predicate.
func ConstraintViolation(stepID, constraint, reason string) *AgentflowError {
	return Newf(CodeConstraintViolation, "step %s violated constraint %s: %s", stepID, constraint, reason).
		WithDetail("step_id", stepID).
		WithDetail("constraint", constraint).
		WithDetail("reason", reason)
}

// --- Infrastructure ---

// StoreUnavailable wraps a Store failure.
func StoreUnavailable(op string, err error) *AgentflowError {
	return Wrapf(CodeStoreUnavailable, err, "store unavailable during %s", op)
}

// EventBusUnavailable wraps an EventBus failure.
func EventBusUnavailable(op string, err error) *AgentflowError {
	return Wrapf(CodeEventBusUnavailable, err, "event bus unavailable during %s", op)
}

// HasCode reports whether err is (or wraps) an AgentflowError with the given code.
func HasCode(err error, code string) bool {
	var aerr *AgentflowError
	if errors.As(err, &aerr) {
		return aerr.Code == code
	}
	return false
}

// Code returns the error code if err is (or wraps) an AgentflowError, else "".
func Code(err error) string {
	var aerr *AgentflowError
	if errors.As(err, &aerr) {
		return aerr.Code
	}
	return ""
}
