package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/meowstack/agentflow/internal/mandate"
	"github.com/meowstack/agentflow/internal/model"
	"github.com/meowstack/agentflow/internal/signer"
)

// isPaymentTool reports whether toolID names one of the payment rails
// (payment_stripe, payment_coinbase, payment_bank, ...). Per spec.md §2,
// "payment-class actions" are the ones that drive mandate creation.
func isPaymentTool(toolID string) bool {
	return strings.HasPrefix(toolID, "payment_")
}

// mandateHook tracks, for a single Execute call, which PAYMENT mandate
// backs which step, so a later ROLLBACK can compensate it with a
// CANCELLATION. It's deliberately not part of model.Execution: the mandate
// back-reference from an execution is one-way (spec.md §9), so this
// bookkeeping lives only as long as the Execute call that needs it.
type mandateHook struct {
	manager *mandate.Manager
	signer  signer.Signer

	chainID        string
	paymentByStep  map[string]string // stepID -> mandateID
}

func newMandateHook(m *mandate.Manager, s signer.Signer) *mandateHook {
	return &mandateHook{manager: m, signer: s, paymentByStep: make(map[string]string)}
}

// enabled reports whether mandate handling is wired for this orchestrator.
func (h *mandateHook) enabled() bool {
	return h != nil && h.manager != nil && h.signer != nil
}

// beforePayment ensures the chain carries INTENT and CART mandates ahead of
// a PAYMENT mandate for stepID's charge, then creates and returns the
// PAYMENT mandate itself. The caller executes the tool only after this
// succeeds, so a mandate is never recorded for a charge that never ran...
// except that spec.md's ordering rule requires INTENT/CART/PAYMENT to exist
// before the provider is called, so the PAYMENT mandate here precedes
// Execute and is only transitioned to EXECUTED after the tool succeeds.
func (h *mandateHook) beforePayment(ctx context.Context, tenantID, stepID string, params map[string]any) (*model.Mandate, error) {
	if !h.enabled() {
		return nil, nil
	}

	if h.chainID == "" {
		intent, err := h.manager.Create(ctx, tenantID, "", model.MandateIntent, map[string]any{"stepId": stepID}, h.signer)
		if err != nil {
			return nil, fmt.Errorf("creating intent mandate: %w", err)
		}
		h.chainID = intent.ChainID

		if _, err := h.manager.Create(ctx, tenantID, h.chainID, model.MandateCart, params, h.signer); err != nil {
			return nil, fmt.Errorf("creating cart mandate: %w", err)
		}
	}

	payment, err := h.manager.Create(ctx, tenantID, h.chainID, model.MandatePayment, params, h.signer)
	if err != nil {
		return nil, fmt.Errorf("creating payment mandate: %w", err)
	}
	h.paymentByStep[stepID] = payment.MandateID
	return payment, nil
}

// afterPaymentSuccess transitions the PAYMENT mandate backing stepID to
// EXECUTED once the charge tool has actually succeeded.
func (h *mandateHook) afterPaymentSuccess(ctx context.Context, stepID string) error {
	if !h.enabled() {
		return nil
	}
	mandateID, ok := h.paymentByStep[stepID]
	if !ok {
		return nil
	}
	_, err := h.manager.Execute(ctx, h.chainID, mandateID, "orchestrator")
	return err
}

// cancel compensates the PAYMENT mandate backing stepID with a CANCELLATION
// record, invoked when a later step's ROLLBACK policy unwinds this charge.
func (h *mandateHook) cancel(ctx context.Context, tenantID, stepID, reason string) error {
	if !h.enabled() {
		return nil
	}
	mandateID, ok := h.paymentByStep[stepID]
	if !ok {
		return nil
	}
	_, err := h.manager.CreateCancellation(ctx, tenantID, h.chainID, mandateID, map[string]any{"reason": reason}, h.signer)
	return err
}
