package registry

import (
	"testing"

	"github.com/meowstack/agentflow/internal/errors"
	"github.com/meowstack/agentflow/internal/model"
)

type stubTool struct {
	meta model.ToolMeta
}

func (s stubTool) Meta() model.ToolMeta { return s.meta }

func (s stubTool) Execute(params map[string]any, runCtx RunContext) (any, error) {
	return params, nil
}

func newStub(id string) stubTool {
	return stubTool{meta: model.ToolMeta{ToolID: id, Idempotent: true}}
}

func TestRegisterAndGet(t *testing.T) {
	r := New()
	tool := newStub("http_request")

	if err := r.Register(tool); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := r.Get("http_request")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Meta().ToolID != "http_request" {
		t.Errorf("ToolID = %q, want %q", got.Meta().ToolID, "http_request")
	}
}

func TestRegisterDuplicateRejected(t *testing.T) {
	r := New()
	if err := r.Register(newStub("delay")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := r.Register(newStub("delay"))
	if err == nil {
		t.Fatal("expected error for duplicate registration")
	}
	if !errors.HasCode(err, errors.CodeToolConflict) {
		t.Errorf("expected CodeToolConflict, got %v", err)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	r := New()
	_, err := r.Get("nope")
	if err == nil {
		t.Fatal("expected error for unregistered tool")
	}
	if !errors.HasCode(err, errors.CodeToolNotFound) {
		t.Errorf("expected CodeToolNotFound, got %v", err)
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	r := New()
	ids := []string{"c", "a", "b"}
	for _, id := range ids {
		if err := r.Register(newStub(id)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	list := r.List()
	if len(list) != len(ids) {
		t.Fatalf("List() len = %d, want %d", len(list), len(ids))
	}
	for i, id := range ids {
		if list[i].ToolID != id {
			t.Errorf("List()[%d].ToolID = %q, want %q", i, list[i].ToolID, id)
		}
	}
}

func TestIsIdempotent(t *testing.T) {
	r := New()
	r.Register(stubTool{meta: model.ToolMeta{ToolID: "payment_stripe", Idempotent: false}})

	idempotent, known := r.IsIdempotent("payment_stripe")
	if !known || idempotent {
		t.Errorf("IsIdempotent(payment_stripe) = (%v, %v), want (false, true)", idempotent, known)
	}

	_, known = r.IsIdempotent("nope")
	if known {
		t.Error("expected known=false for unregistered tool")
	}
}

func TestValidateParameters(t *testing.T) {
	r := New()
	r.Register(stubTool{meta: model.ToolMeta{
		ToolID: "http_request",
		ParamSchema: []model.ParamSpec{
			{Name: "url", Type: model.ParamString, Required: true},
			{Name: "timeout", Type: model.ParamNumber, Required: false},
			{Name: "retry", Type: model.ParamBoolean, Required: false, Default: false},
		},
	}})

	cases := []struct {
		name       string
		params     map[string]any
		wantProblems int
	}{
		{"valid", map[string]any{"url": "https://example.com"}, 0},
		{"missing required", map[string]any{}, 1},
		{"wrong type", map[string]any{"url": 42}, 1},
		{"optional with default omitted", map[string]any{"url": "x", "retry": true}, 0},
		{"wrong optional type", map[string]any{"url": "x", "timeout": "soon"}, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			problems, err := r.ValidateParameters("http_request", tc.params)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(problems) != tc.wantProblems {
				t.Errorf("problems = %v, want %d problem(s)", problems, tc.wantProblems)
			}
		})
	}
}

func TestValidateParametersUnknownTool(t *testing.T) {
	r := New()
	_, err := r.ValidateParameters("nope", map[string]any{})
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
}
