package engine

import (
	"testing"

	"github.com/meowstack/agentflow/internal/model"
)

func linearWorkflow() *model.Workflow {
	return &model.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		Steps: []*model.Step{
			{
				ID: "trigger", Kind: model.StepTrigger, TimeoutMS: 1000,
				ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyStop},
				Successors:  model.Successors{OnSuccess: "fetch"},
			},
			{
				ID: "fetch", Kind: model.StepAction, ToolID: "http_request", TimeoutMS: 5000,
				ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyStop},
				Successors:  model.Successors{OnSuccess: "pay"},
			},
			{
				ID: "pay", Kind: model.StepAction, ToolID: "payment_stripe", TimeoutMS: 10000,
				ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyRollback},
			},
		},
	}
}

func TestValidateLinearWorkflowOK(t *testing.T) {
	e := New(nil)
	result := e.Validate(linearWorkflow())
	if !result.OK {
		t.Fatalf("expected OK, got errors: %v", result.Errors)
	}
}

func TestValidateRequiresExactlyOneTrigger(t *testing.T) {
	e := New(nil)

	t.Run("no trigger", func(t *testing.T) {
		wf := linearWorkflow()
		wf.Steps[0].Kind = model.StepAction
		result := e.Validate(wf)
		if result.OK {
			t.Error("expected validation failure with zero triggers")
		}
	})

	t.Run("two triggers", func(t *testing.T) {
		wf := linearWorkflow()
		wf.Steps[1].Kind = model.StepTrigger
		result := e.Validate(wf)
		if result.OK {
			t.Error("expected validation failure with two triggers")
		}
	})
}

func TestValidateDuplicateIDs(t *testing.T) {
	wf := linearWorkflow()
	wf.Steps[1].ID = "trigger"

	result := New(nil).Validate(wf)
	if result.OK {
		t.Error("expected validation failure for duplicate step id")
	}
}

func TestValidateDanglingSuccessor(t *testing.T) {
	wf := linearWorkflow()
	wf.Steps[0].Successors.OnSuccess = "does-not-exist"

	result := New(nil).Validate(wf)
	if result.OK {
		t.Error("expected validation failure for dangling successor")
	}
}

func TestValidateUnreachableStep(t *testing.T) {
	wf := linearWorkflow()
	wf.Steps = append(wf.Steps, &model.Step{
		ID: "orphan", Kind: model.StepAction, ToolID: "delay", TimeoutMS: 1000,
		ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyStop},
	})

	result := New(nil).Validate(wf)
	if result.OK {
		t.Fatal("expected validation failure for unreachable step")
	}
	found := false
	for _, e := range result.Errors {
		if e == `step "orphan" is not reachable from the trigger` {
			found = true
		}
	}
	if !found {
		t.Errorf("expected unreachable-step error, got: %v", result.Errors)
	}
}

func TestValidateTimeoutOutOfRange(t *testing.T) {
	wf := linearWorkflow()
	wf.Steps[1].TimeoutMS = 10

	result := New(nil).Validate(wf)
	if result.OK {
		t.Error("expected validation failure for out-of-range timeout")
	}
}

func TestValidateBadExpressionSyntax(t *testing.T) {
	wf := linearWorkflow()
	wf.Steps[1].Parameters = map[string]any{"url": "${unterminated"}

	result := New(nil).Validate(wf)
	if result.OK {
		t.Error("expected validation failure for malformed template expression")
	}
}

func TestValidateOnlyConditionMayHaveMultipleSuccessors(t *testing.T) {
	wf := linearWorkflow()
	wf.Steps[1].Successors.Conditional = []model.Conditional{{Expression: "${x}", TargetID: "pay"}}

	result := New(nil).Validate(wf)
	if result.OK {
		t.Error("expected validation failure: ACTION step with multiple successors")
	}
}

func TestValidateWarnsOnContinueFeedingDependentOutput(t *testing.T) {
	wf := linearWorkflow()
	wf.Steps[1].ErrorPolicy = model.ErrorPolicy{Kind: model.PolicyContinue}
	wf.Steps[2].Parameters = map[string]any{"amount": "${steps.fetch.output.amount}"}

	result := New(nil).Validate(wf)
	if !result.OK {
		t.Fatalf("expected OK with only a warning, got errors: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a CONTINUE/dependent-output warning")
	}
}

func TestValidateWarnsOnNonIdempotentRetry(t *testing.T) {
	wf := linearWorkflow()
	wf.Steps[2].ErrorPolicy = model.ErrorPolicy{Kind: model.PolicyRetry, MaxRetries: 3}

	lookup := func(toolID string) (bool, bool) {
		if toolID == "payment_stripe" {
			return false, true
		}
		return true, true
	}

	result := New(lookup).Validate(wf)
	if !result.OK {
		t.Fatalf("expected OK, got errors: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a non-idempotent retry warning")
	}
}

func TestOrderLinearWorkflow(t *testing.T) {
	e := New(nil)
	result, err := e.Order(linearWorkflow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"trigger", "fetch", "pay"}
	if len(result.Sequence) != len(want) {
		t.Fatalf("Sequence = %v, want %v", result.Sequence, want)
	}
	for i := range want {
		if result.Sequence[i] != want[i] {
			t.Errorf("Sequence[%d] = %q, want %q", i, result.Sequence[i], want[i])
		}
	}
	if len(result.Loopbacks) != 0 {
		t.Errorf("expected no loopbacks, got %v", result.Loopbacks)
	}
}

func TestOrderTieBreaksByAuthoringOrder(t *testing.T) {
	wf := &model.Workflow{Steps: []*model.Step{
		{ID: "t", Kind: model.StepTrigger, TimeoutMS: 1000, ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyStop},
			Successors: model.Successors{OnSuccess: "c"},
		},
		{ID: "c", Kind: model.StepCondition, TimeoutMS: 1000, ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyStop},
			Successors: model.Successors{Conditional: []model.Conditional{
				{Expression: "${x}", TargetID: "b"},
				{Expression: "${y}", TargetID: "a"},
			}},
		},
		{ID: "a", Kind: model.StepAction, TimeoutMS: 1000, ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyStop}},
		{ID: "b", Kind: model.StepAction, TimeoutMS: 1000, ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyStop}},
	}}

	result, err := New(nil).Order(wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"t", "c", "a", "b"}
	for i := range want {
		if result.Sequence[i] != want[i] {
			t.Errorf("Sequence[%d] = %q, want %q (authoring-order tie-break)", i, result.Sequence[i], want[i])
		}
	}
}

func TestOrderRejectsCycleWithNoConditionOrigin(t *testing.T) {
	wf := &model.Workflow{Steps: []*model.Step{
		{ID: "t", Kind: model.StepTrigger, TimeoutMS: 1000, ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyStop},
			Successors: model.Successors{OnSuccess: "a"}},
		{ID: "a", Kind: model.StepAction, TimeoutMS: 1000, ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyStop},
			Successors: model.Successors{OnSuccess: "b"}},
		{ID: "b", Kind: model.StepAction, TimeoutMS: 1000, ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyStop},
			Successors: model.Successors{OnSuccess: "a"}},
	}}

	if _, err := New(nil).Order(wf); err == nil {
		t.Error("expected cycle-detection error for an ACTION-origin back-edge")
	}
}

func TestOrderAllowsConditionLoopback(t *testing.T) {
	wf := &model.Workflow{Steps: []*model.Step{
		{ID: "t", Kind: model.StepTrigger, TimeoutMS: 1000, ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyStop},
			Successors: model.Successors{OnSuccess: "check"}},
		{ID: "check", Kind: model.StepCondition, TimeoutMS: 1000, ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyStop},
			Successors: model.Successors{Conditional: []model.Conditional{
				{Expression: "${retry}", TargetID: "t"},
				{Expression: "${done}", TargetID: "finish"},
			}}},
		{ID: "finish", Kind: model.StepAction, TimeoutMS: 1000, ErrorPolicy: model.ErrorPolicy{Kind: model.PolicyStop}},
	}}

	result, err := New(nil).Order(wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Loopbacks) != 1 {
		t.Fatalf("expected exactly one loopback edge, got %v", result.Loopbacks)
	}
	if result.Loopbacks[0].FromStepID != "check" || result.Loopbacks[0].ToStepID != "t" {
		t.Errorf("unexpected loopback edge: %+v", result.Loopbacks[0])
	}
	if len(result.Sequence) != 3 {
		t.Errorf("expected all 3 steps ordered, got %v", result.Sequence)
	}
}
