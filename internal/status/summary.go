// Package status renders a model.Execution as human-readable CLI output:
// a progress bar, per-status step counts, currently-running steps, and
// failure messages, the same summary/format split the teacher used for
// its workflow-run status display.
package status

import (
	"time"

	"github.com/meowstack/agentflow/internal/model"
)

// ExecutionSummary contains computed information about an execution for display.
type ExecutionSummary struct {
	ExecutionID string
	WorkflowID  string
	Status      model.ExecutionStatus
	StartedAt   time.Time
	EndedAt     *time.Time
	Variables   map[string]any
	StepStats   StepStats
	RunningSteps []RunningStep
	Errors      []string
}

// StepStats contains step count breakdown.
type StepStats struct {
	Total     int
	Completed int
	Running   int
	Pending   int
	Failed    int
	Skipped   int
}

// RunningStep contains info about a currently running step.
type RunningStep struct {
	ID        string
	Attempt   int
	StartedAt time.Time
	Duration  time.Duration
}

// NewExecutionSummary creates a summary from an execution.
func NewExecutionSummary(exec *model.Execution) *ExecutionSummary {
	summary := &ExecutionSummary{
		ExecutionID: exec.ExecutionID,
		WorkflowID:  exec.WorkflowID,
		Status:      exec.Status,
		StartedAt:   exec.StartedAt,
		EndedAt:     exec.EndedAt,
		Variables:   exec.Variables,
		StepStats:   computeStepStats(exec),
	}

	for _, step := range exec.StepResults {
		if step.Status == model.StepResultRunning {
			rs := RunningStep{ID: step.StepID, Attempt: step.Attempts, StartedAt: step.StartedAt}
			rs.Duration = time.Since(step.StartedAt)
			summary.RunningSteps = append(summary.RunningSteps, rs)
		}
		if step.Status == model.StepResultFailed && step.Error != nil {
			summary.Errors = append(summary.Errors, step.StepID+": "+step.Error.Message)
		}
	}

	return summary
}

// computeStepStats tallies up step result statuses.
func computeStepStats(exec *model.Execution) StepStats {
	stats := StepStats{Total: len(exec.StepResults)}
	for _, step := range exec.StepResults {
		switch step.Status {
		case model.StepResultCompleted:
			stats.Completed++
		case model.StepResultRunning:
			stats.Running++
		case model.StepResultPending:
			stats.Pending++
		case model.StepResultFailed:
			stats.Failed++
		case model.StepResultSkipped:
			stats.Skipped++
		}
	}
	return stats
}
