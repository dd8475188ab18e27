package tools

import (
	"github.com/meowstack/agentflow/internal/errors"
	"github.com/meowstack/agentflow/internal/model"
	"github.com/meowstack/agentflow/internal/registry"
)

// approvalHumanTool backs an APPROVAL step whose decision is made outside
// the orchestrator (a UI or chat action resolves the decision and feeds it
// back in as the "decision" parameter via the variable store); the tool
// itself just turns that decision into a pass/fail outcome the step's
// error policy can react to.
type approvalHumanTool struct{}

// NewApprovalHuman returns the approval_human tool.
func NewApprovalHuman() registry.Tool {
	return approvalHumanTool{}
}

func (t approvalHumanTool) Meta() model.ToolMeta {
	return model.ToolMeta{
		ToolID:      "approval_human",
		Description: "Gates step execution on a human decision resolved upstream.",
		Idempotent:  true,
		ParamSchema: []model.ParamSpec{
			stringParam("prompt", false),
			{Name: "decision", Type: model.ParamString, Required: false, Default: "pending"},
		},
	}
}

func (t approvalHumanTool) Execute(params map[string]any, runCtx registry.RunContext) (any, error) {
	decision := optionalString(params, "decision", "pending")
	if decision != "approved" {
		return nil, errors.ConstraintViolation(runCtx.StepID, "human_approval", "decision was "+decision)
	}
	return map[string]any{"approved": true}, nil
}

// approvalBudgetTool auto-approves a step when its requested amount is
// within a tenant's configured budget limit.
type approvalBudgetTool struct{}

// NewApprovalBudget returns the approval_budget tool.
func NewApprovalBudget() registry.Tool {
	return approvalBudgetTool{}
}

func (t approvalBudgetTool) Meta() model.ToolMeta {
	return model.ToolMeta{
		ToolID:      "approval_budget",
		Description: "Auto-approves a step when its requested amount is within budget.",
		Idempotent:  true,
		ParamSchema: []model.ParamSpec{
			numberParam("amountCents", true),
			numberParam("limitCents", true),
		},
	}
}

func (t approvalBudgetTool) Execute(params map[string]any, runCtx registry.RunContext) (any, error) {
	amount := optionalNumber(params, "amountCents", 0)
	limit := optionalNumber(params, "limitCents", 0)
	if amount > limit {
		return nil, errors.ConstraintViolation(runCtx.StepID, "budget", "amount exceeds limit")
	}
	return map[string]any{"approved": true, "amountCents": amount, "limitCents": limit}, nil
}
