package tools

import (
	"github.com/meowstack/agentflow/internal/model"
	"github.com/meowstack/agentflow/internal/registry"
)

// triggerTool is the shared shape of the three trigger kinds: they never
// perform I/O themselves (the orchestrator's caller supplies the triggering
// event as the execution's initial variables), so Execute just echoes its
// parameters back as the step's recorded output.
type triggerTool struct {
	meta model.ToolMeta
}

func (t triggerTool) Meta() model.ToolMeta { return t.meta }

func (t triggerTool) Execute(params map[string]any, runCtx registry.RunContext) (any, error) {
	return params, nil
}

// NewManualTrigger returns the manual_trigger tool: a workflow started
// directly by a user action, carrying no required parameters.
func NewManualTrigger() registry.Tool {
	return triggerTool{meta: model.ToolMeta{
		ToolID:      "manual_trigger",
		Description: "Workflow started directly by a user or API caller.",
		Idempotent:  true,
	}}
}

// NewWebhookTrigger returns the webhook_trigger tool: a workflow started by
// an inbound webhook delivery.
func NewWebhookTrigger() registry.Tool {
	return triggerTool{meta: model.ToolMeta{
		ToolID:      "webhook_trigger",
		Description: "Workflow started by an inbound webhook delivery.",
		Idempotent:  true,
		ParamSchema: []model.ParamSpec{
			stringParam("source", false),
		},
	}}
}

// NewScheduleTrigger returns the schedule_trigger tool: a workflow started
// by a cron-style schedule firing.
func NewScheduleTrigger() registry.Tool {
	return triggerTool{meta: model.ToolMeta{
		ToolID:      "schedule_trigger",
		Description: "Workflow started by a cron-style schedule firing.",
		Idempotent:  true,
		ParamSchema: []model.ParamSpec{
			stringParam("cron", false),
		},
	}}
}
