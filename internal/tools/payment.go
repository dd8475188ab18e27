package tools

import (
	"fmt"

	"github.com/meowstack/agentflow/internal/model"
	"github.com/meowstack/agentflow/internal/registry"
)

type paymentTool struct {
	toolID string
	client PaymentClient
}

// NewPaymentTool returns a payment tool bound to toolID (payment_stripe,
// payment_coinbase, or payment_bank) and its provider client. Payment tools
// declare idempotent=false: retrying a charge without an idempotency key at
// the provider boundary risks a double charge, which is exactly the
// heuristic WorkflowEngine.Validate warns about on a RETRY policy.
func NewPaymentTool(toolID string, client PaymentClient) registry.Tool {
	return paymentTool{toolID: toolID, client: client}
}

func (t paymentTool) Meta() model.ToolMeta {
	return model.ToolMeta{
		ToolID:           t.toolID,
		Description:      "Charges a payment through the provider and returns a provider reference.",
		Idempotent:       false,
		SupportsRollback: true,
		ParamSchema: []model.ParamSpec{
			numberParam("amountCents", true),
			{Name: "currency", Type: model.ParamString, Required: false, Default: "usd"},
			stringParam("reference", true),
		},
	}
}

func (t paymentTool) Execute(params map[string]any, runCtx registry.RunContext) (any, error) {
	if t.client == nil {
		return nil, fmt.Errorf("%s: no payment client configured", t.toolID)
	}
	amount, ok := params["amountCents"]
	if !ok {
		return nil, fmt.Errorf("missing required parameter %q", "amountCents")
	}
	amountCents := int64(optionalNumber(params, "amountCents", 0))
	if amountCents == 0 {
		return nil, fmt.Errorf("parameter %q must be a non-zero number, got %v", "amountCents", amount)
	}
	reference, err := requireString(params, "reference")
	if err != nil {
		return nil, err
	}
	currency := optionalString(params, "currency", "usd")

	providerRef, err := t.client.Charge(runCtx.Context, amountCents, currency, reference)
	if err != nil {
		return nil, fmt.Errorf("%s: charge failed: %w", t.toolID, err)
	}
	return map[string]any{"paymentId": providerRef}, nil
}

func (t paymentTool) Rollback(params map[string]any, result any, runCtx registry.RunContext) error {
	if t.client == nil {
		return fmt.Errorf("%s: no payment client configured", t.toolID)
	}
	output, ok := result.(map[string]any)
	if !ok {
		return fmt.Errorf("%s: rollback requires the prior charge output", t.toolID)
	}
	paymentID, ok := output["paymentId"].(string)
	if !ok || paymentID == "" {
		return fmt.Errorf("%s: rollback output missing paymentId", t.toolID)
	}
	return t.client.Refund(runCtx.Context, paymentID)
}

var _ registry.RollbackTool = paymentTool{}

type refundTool struct {
	client PaymentClient
}

// NewRefund returns the refund tool: an explicit, standalone refund step
// (as opposed to a payment tool's compensating Rollback, which fires only
// on workflow failure).
func NewRefund(client PaymentClient) registry.Tool {
	return refundTool{client: client}
}

func (t refundTool) Meta() model.ToolMeta {
	return model.ToolMeta{
		ToolID:      "refund",
		Description: "Refunds a previously captured payment by its provider reference.",
		Idempotent:  true,
		ParamSchema: []model.ParamSpec{
			stringParam("paymentId", true),
		},
	}
}

func (t refundTool) Execute(params map[string]any, runCtx registry.RunContext) (any, error) {
	if t.client == nil {
		return nil, fmt.Errorf("refund: no payment client configured")
	}
	paymentID, err := requireString(params, "paymentId")
	if err != nil {
		return nil, err
	}
	if err := t.client.Refund(runCtx.Context, paymentID); err != nil {
		return nil, fmt.Errorf("refund: %w", err)
	}
	return map[string]any{"refunded": true, "paymentId": paymentID}, nil
}
