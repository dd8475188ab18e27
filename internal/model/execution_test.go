package model

import (
	"testing"
	"time"
)

func TestExecutionStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to ExecutionStatus
		ok       bool
	}{
		{ExecutionPending, ExecutionRunning, true},
		{ExecutionPending, ExecutionCompleted, false},
		{ExecutionRunning, ExecutionCompleted, true},
		{ExecutionRunning, ExecutionFailed, true},
		{ExecutionRunning, ExecutionCancelled, true},
		{ExecutionRunning, ExecutionPending, false},
		{ExecutionCompleted, ExecutionRunning, false}, // terminal
		{ExecutionFailed, ExecutionCompleted, false},  // terminal, no revisits
		{ExecutionCancelled, ExecutionRunning, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransitionTo(tt.to)
		if got != tt.ok {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestExecutionStatusIsTerminal(t *testing.T) {
	terminal := []ExecutionStatus{ExecutionCompleted, ExecutionFailed, ExecutionCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if ExecutionRunning.IsTerminal() {
		t.Error("RUNNING should not be terminal")
	}
}

func TestExecutionLifecycle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	exec := NewExecution("exec-1", "agent-1", "tenant-1", "wf-1", ExecutionContext{"k": "v"}, now)

	if exec.Status != ExecutionPending {
		t.Fatalf("expected PENDING, got %s", exec.Status)
	}

	if err := exec.Start(); err != nil {
		t.Fatalf("unexpected error starting: %v", err)
	}
	if exec.Status != ExecutionRunning {
		t.Errorf("expected RUNNING, got %s", exec.Status)
	}

	if err := exec.Start(); err == nil {
		t.Error("expected error starting an already-running execution")
	}

	end := now.Add(5 * time.Second)
	if err := exec.Finish(ExecutionCompleted, end, nil); err != nil {
		t.Fatalf("unexpected error finishing: %v", err)
	}
	if exec.Status != ExecutionCompleted {
		t.Errorf("expected COMPLETED, got %s", exec.Status)
	}
	if exec.EndedAt == nil || !exec.EndedAt.Equal(end) {
		t.Error("EndedAt not stamped correctly")
	}

	if err := exec.Finish(ExecutionFailed, end, nil); err == nil {
		t.Error("expected error re-finishing a terminal execution")
	}
}

func TestExecutionVisitCount(t *testing.T) {
	exec := NewExecution("e", "a", "t", "w", nil, time.Now())

	if got := exec.VisitCount("loop-step"); got != 0 {
		t.Fatalf("VisitCount() = %d, want 0", got)
	}

	for i := 1; i <= 3; i++ {
		if got := exec.RecordVisit("loop-step"); got != i {
			t.Errorf("RecordVisit() = %d, want %d", got, i)
		}
	}
	if got := exec.VisitCount("loop-step"); got != 3 {
		t.Errorf("VisitCount() = %d, want 3", got)
	}
	if got := exec.VisitCount("other-step"); got != 0 {
		t.Errorf("VisitCount(other) = %d, want 0", got)
	}
}

func TestExecutionStepResultByID(t *testing.T) {
	exec := NewExecution("e", "a", "t", "w", nil, time.Now())
	exec.StepResults = []*StepResult{
		{StepID: "s1", Status: StepResultCompleted, Attempts: 1},
		{StepID: "s1", Status: StepResultFailed, Attempts: 2},
		{StepID: "s2", Status: StepResultCompleted, Attempts: 1},
	}

	latest := exec.StepResultByID("s1")
	if latest == nil || latest.Status != StepResultFailed || latest.Attempts != 2 {
		t.Errorf("expected latest s1 result to be the FAILED attempt, got %+v", latest)
	}

	if exec.StepResultByID("missing") != nil {
		t.Error("expected nil for unknown step id")
	}
}

func TestStepResultStatusIsTerminal(t *testing.T) {
	terminal := []StepResultStatus{StepResultCompleted, StepResultFailed, StepResultSkipped}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []StepResultStatus{StepResultPending, StepResultRunning} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
