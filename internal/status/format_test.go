package status

import (
	"strings"
	"testing"
	"time"

	"github.com/meowstack/agentflow/internal/model"
)

func TestFormatExecutionCompleted(t *testing.T) {
	now := time.Now()
	ended := now.Add(2 * time.Second)
	exec := &model.Execution{
		ExecutionID: "e1",
		WorkflowID:  "wf-1",
		Status:      model.ExecutionCompleted,
		StartedAt:   now,
		EndedAt:     &ended,
		StepResults: []*model.StepResult{
			{StepID: "T", Status: model.StepResultCompleted},
			{StepID: "A", Status: model.StepResultCompleted},
		},
	}

	out := FormatExecution(NewExecutionSummary(exec), FormatOptions{NoColor: true})
	if !strings.Contains(out, "Execution: e1") {
		t.Errorf("output missing execution id:\n%s", out)
	}
	if !strings.Contains(out, "2/2 steps") {
		t.Errorf("output missing progress count:\n%s", out)
	}
}

func TestFormatExecutionWithErrors(t *testing.T) {
	exec := &model.Execution{
		ExecutionID: "e2",
		WorkflowID:  "wf-1",
		Status:      model.ExecutionFailed,
		StartedAt:   time.Now(),
		StepResults: []*model.StepResult{
			{StepID: "A", Status: model.StepResultFailed, Error: &model.FailureReason{Message: "timed out"}},
		},
	}

	out := FormatExecution(NewExecutionSummary(exec), FormatOptions{NoColor: true})
	if !strings.Contains(out, "A: timed out") {
		t.Errorf("output missing error line:\n%s", out)
	}
}
