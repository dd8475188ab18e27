// Package testutil provides fixtures and test infrastructure shared across
// agentflow's package tests: a linear workflow builder, a test config, and
// the TestLogger in logger.go for asserting on structured log output.
package testutil

import (
	"fmt"
	"testing"

	"github.com/meowstack/agentflow/internal/config"
	"github.com/meowstack/agentflow/internal/model"
)

// NewTestConfig returns a config.Config with test defaults: a small loop
// bound (10) so tests exercise limits quickly, and debug-level logging.
// Mandate TTLs are left at the production defaults.
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Orchestrator.DefaultLoopBound = 10
	cfg.Logging.Level = config.LogLevelDebug
	return cfg
}

// NewLinearWorkflow builds a trigger-then-actions workflow: a manual_trigger
// step followed by one ACTION step per toolID, each wired to the next via
// OnSuccess, STOP error policy, and a 5s timeout. Steps are named "T" then
// "S0", "S1", ...
func NewLinearWorkflow(t *testing.T, id string, toolIDs ...string) *model.Workflow {
	t.Helper()

	stepIDs := make([]string, len(toolIDs))
	for i := range toolIDs {
		stepIDs[i] = stepName(i)
	}

	steps := make([]*model.Step, 0, len(toolIDs)+1)
	trigger := &model.Step{
		ID:          "T",
		Kind:        model.StepTrigger,
		ToolID:      "manual_trigger",
		TimeoutMS:   5000,
		ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyStop},
	}
	if len(stepIDs) > 0 {
		trigger.Successors.OnSuccess = stepIDs[0]
	}
	steps = append(steps, trigger)

	for i, toolID := range toolIDs {
		step := &model.Step{
			ID:          stepIDs[i],
			Kind:        model.StepAction,
			ToolID:      toolID,
			TimeoutMS:   5000,
			ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyStop},
		}
		if i+1 < len(stepIDs) {
			step.Successors.OnSuccess = stepIDs[i+1]
		}
		steps = append(steps, step)
	}

	return &model.Workflow{ID: id, TenantID: "test-tenant", Name: id, Version: 1, Steps: steps}
}

func stepName(i int) string {
	return fmt.Sprintf("S%d", i)
}
