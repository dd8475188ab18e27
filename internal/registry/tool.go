// Package registry implements ToolRegistry: a typed dispatch table for
// tools referenced by workflow steps.
package registry

import (
	"context"
	"time"

	"github.com/meowstack/agentflow/internal/model"
)

// RunContext carries per-invocation context into a Tool: the identity of
// the execution driving the call, the step dispatching it, a deadline
// derived from the step's timeout, and cancellation.
type RunContext struct {
	Context     context.Context
	ExecutionID string
	TenantID    string
	UserID      string
	StepID      string
	Deadline    time.Time
}

// Tool is the executable unit referenced by a step's toolId. Execute
// performs the side-effecting work and returns a structured result.
type Tool interface {
	Meta() model.ToolMeta
	Execute(params map[string]any, runCtx RunContext) (any, error)
}

// RollbackTool is the optional extension a Tool implements when it can
// compensate a previously successful Execute call. A Tool that doesn't
// implement it is treated by the orchestrator as having a no-op rollback.
type RollbackTool interface {
	Tool
	Rollback(params map[string]any, result any, runCtx RunContext) error
}
