package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/meowstack/agentflow/internal/model"
	"github.com/meowstack/agentflow/internal/registry"
)

type conditionCompareTool struct{}

// NewConditionCompare returns the condition_compare tool: evaluates a
// binary comparison and returns its boolean result for a CONDITION step's
// conditional successors to branch on.
func NewConditionCompare() registry.Tool {
	return conditionCompareTool{}
}

func (t conditionCompareTool) Meta() model.ToolMeta {
	return model.ToolMeta{
		ToolID:      "condition_compare",
		Description: "Evaluates left <operator> right and returns the boolean result.",
		Idempotent:  true,
		ParamSchema: []model.ParamSpec{
			{Name: "left", Type: model.ParamNumber, Required: true},
			stringParam("operator", true),
			{Name: "right", Type: model.ParamNumber, Required: true},
		},
	}
}

func (t conditionCompareTool) Execute(params map[string]any, runCtx registry.RunContext) (any, error) {
	left := optionalNumber(params, "left", 0)
	right := optionalNumber(params, "right", 0)
	op, err := requireString(params, "operator")
	if err != nil {
		return nil, err
	}

	var result bool
	switch op {
	case "==":
		result = left == right
	case "!=":
		result = left != right
	case ">":
		result = left > right
	case ">=":
		result = left >= right
	case "<":
		result = left < right
	case "<=":
		result = left <= right
	default:
		return nil, fmt.Errorf("condition_compare: unknown operator %q", op)
	}
	return map[string]any{"result": result}, nil
}

type delayTool struct{}

// NewDelay returns the delay tool: pauses the step for a fixed duration,
// returning early only when runCtx.Context is cancelled; it does not read
// runCtx.Deadline.
func NewDelay() registry.Tool {
	return delayTool{}
}

func (t delayTool) Meta() model.ToolMeta {
	return model.ToolMeta{
		ToolID:      "delay",
		Description: "Pauses execution for a fixed duration.",
		Idempotent:  true,
		ParamSchema: []model.ParamSpec{
			numberParam("ms", true),
		},
	}
}

func (t delayTool) Execute(params map[string]any, runCtx registry.RunContext) (any, error) {
	ms := optionalNumber(params, "ms", 0)
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()

	ctx := runCtx.Context
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-timer.C:
		return map[string]any{"waitedMs": ms}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type loopCounterTool struct{}

// NewLoopCounter returns the loop_counter tool: advances a loop's
// iteration counter. The caller supplies the counter's current value
// (conventionally via a self-referencing template expression pointing at
// this step's own prior output); the tool is otherwise stateless.
func NewLoopCounter() registry.Tool {
	return loopCounterTool{}
}

func (t loopCounterTool) Meta() model.ToolMeta {
	return model.ToolMeta{
		ToolID:      "loop_counter",
		Description: "Advances a loop iteration counter by one.",
		Idempotent:  true,
		ParamSchema: []model.ParamSpec{
			{Name: "current", Type: model.ParamNumber, Required: false, Default: float64(0)},
		},
	}
}

func (t loopCounterTool) Execute(params map[string]any, runCtx registry.RunContext) (any, error) {
	current := optionalNumber(params, "current", 0)
	return map[string]any{"count": current + 1}, nil
}
