package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestToolNotFoundHasCode(t *testing.T) {
	err := ToolNotFound("http_request")
	if !HasCode(err, CodeToolNotFound) {
		t.Fatalf("expected code %s, got %s", CodeToolNotFound, Code(err))
	}
}

func TestHasCodeUnwrapsWrappedError(t *testing.T) {
	inner := ToolExecutionError("step-1", "payment_stripe", fmt.Errorf("connection reset"))
	wrapped := fmt.Errorf("dispatch failed: %w", inner)

	if !HasCode(wrapped, CodeToolExecutionError) {
		t.Fatalf("expected wrapped error to carry code %s", CodeToolExecutionError)
	}
	if Code(wrapped) != CodeToolExecutionError {
		t.Fatalf("Code() = %q, want %q", Code(wrapped), CodeToolExecutionError)
	}
}

func TestHasCodeFalseForPlainError(t *testing.T) {
	if HasCode(errors.New("boom"), CodeTimeout) {
		t.Fatal("plain error should never match a code")
	}
	if Code(errors.New("boom")) != "" {
		t.Fatal("Code() on a plain error should be empty")
	}
}

func TestWithDetailAccumulates(t *testing.T) {
	err := New(CodeValidation, "bad workflow").
		WithDetail("workflow_id", "wf-1").
		WithDetail("step_id", "step-a")

	if err.Details["workflow_id"] != "wf-1" || err.Details["step_id"] != "step-a" {
		t.Fatalf("details not accumulated: %#v", err.Details)
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	cause := errors.New("socket timeout")
	err := Wrap(CodeToolExecutionError, "tool failed", cause)

	got := err.Error()
	want := fmt.Sprintf("[%s] tool failed: %v", CodeToolExecutionError, cause)
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(CodeTimeout, "timed out", cause)

	if !errors.Is(err, cause) {
		t.Fatal("errors.Is should find the wrapped cause")
	}
}

func TestMandateErrorsCarryChainDetails(t *testing.T) {
	cm := ChainMismatch("chain-1", 2)
	if cm.Details["chain_id"] != "chain-1" || cm.Details["sequence"] != 2 {
		t.Fatalf("ChainMismatch details incomplete: %#v", cm.Details)
	}

	sg := SequenceGap("chain-1", 3, 5)
	if sg.Details["expected"] != 3 || sg.Details["got"] != 5 {
		t.Fatalf("SequenceGap details incomplete: %#v", sg.Details)
	}
}
