// Package tools provides the built-in tool taxonomy the registry must
// support out of the box: triggers, HTTP/database access, payment rails,
// email, approval gates, and flow-control primitives.
package tools

import (
	"fmt"

	"github.com/meowstack/agentflow/internal/model"
	"github.com/meowstack/agentflow/internal/registry"
)

// RegisterBuiltins registers every built-in tool into r, wiring each one
// against its concrete dependency (http.Client, *pgxpool.Pool, smtp dialer,
// payment client). A nil dependency is accepted for tools whose behavior
// doesn't need one in a given deployment (e.g. tests) and the tool falls
// back to its zero-value behavior at call time.
func RegisterBuiltins(r *registry.Registry, deps Dependencies) error {
	all := []registry.Tool{
		NewManualTrigger(),
		NewWebhookTrigger(),
		NewScheduleTrigger(),
		NewHTTPRequest(deps.HTTPClient),
		NewDatabaseQuery(deps.DB),
		NewPaymentTool("payment_stripe", deps.Stripe),
		NewPaymentTool("payment_coinbase", deps.Coinbase),
		NewPaymentTool("payment_bank", deps.Bank),
		NewRefund(deps.Stripe),
		NewEmailSend(deps.Mailer),
		NewApprovalHuman(),
		NewApprovalBudget(),
		NewConditionCompare(),
		NewDelay(),
		NewLoopCounter(),
	}
	for _, tool := range all {
		if err := r.Register(tool); err != nil {
			return fmt.Errorf("registering builtin tool %s: %w", tool.Meta().ToolID, err)
		}
	}
	return nil
}

func requireString(params map[string]any, name string) (string, error) {
	val, ok := params[name]
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", name)
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string, got %T", name, val)
	}
	return s, nil
}

func optionalString(params map[string]any, name, fallback string) string {
	val, ok := params[name]
	if !ok {
		return fallback
	}
	s, ok := val.(string)
	if !ok {
		return fallback
	}
	return s
}

func optionalNumber(params map[string]any, name string, fallback float64) float64 {
	val, ok := params[name]
	if !ok {
		return fallback
	}
	switch v := val.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

func stringParam(name string, required bool) model.ParamSpec {
	return model.ParamSpec{Name: name, Type: model.ParamString, Required: required}
}

func numberParam(name string, required bool) model.ParamSpec {
	return model.ParamSpec{Name: name, Type: model.ParamNumber, Required: required}
}
