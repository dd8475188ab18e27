package testutil

import (
	"testing"

	"github.com/meowstack/agentflow/internal/model"
)

func TestNewLinearWorkflow(t *testing.T) {
	wf := NewLinearWorkflow(t, "wf-1", "http_request", "email_send")
	if len(wf.Steps) != 3 {
		t.Fatalf("len(Steps) = %d, want 3", len(wf.Steps))
	}
	if wf.Trigger() == nil || wf.Trigger().ID != "T" {
		t.Fatalf("Trigger() = %v, want step T", wf.Trigger())
	}
	if wf.Trigger().Successors.OnSuccess != "S0" {
		t.Errorf("trigger OnSuccess = %q, want S0", wf.Trigger().Successors.OnSuccess)
	}
	last := wf.StepByID("S1")
	if last == nil || last.Successors.OnSuccess != "" {
		t.Errorf("last step should have no successor, got %+v", last)
	}
}

func TestNewLinearWorkflowEmpty(t *testing.T) {
	wf := NewLinearWorkflow(t, "wf-empty")
	if len(wf.Steps) != 1 {
		t.Fatalf("len(Steps) = %d, want 1 (trigger only)", len(wf.Steps))
	}
	if wf.Trigger().Kind != model.StepTrigger {
		t.Errorf("Kind = %v, want TRIGGER", wf.Trigger().Kind)
	}
}

func TestNewTestConfig(t *testing.T) {
	cfg := NewTestConfig(t)
	if cfg.Orchestrator.DefaultLoopBound != 10 {
		t.Errorf("DefaultLoopBound = %d, want 10", cfg.Orchestrator.DefaultLoopBound)
	}
}
