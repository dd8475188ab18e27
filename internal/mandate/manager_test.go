package mandate

import (
	"context"
	"testing"
	"time"

	"github.com/meowstack/agentflow/internal/clock"
	"github.com/meowstack/agentflow/internal/config"
	"github.com/meowstack/agentflow/internal/errors"
	"github.com/meowstack/agentflow/internal/logging"
	"github.com/meowstack/agentflow/internal/model"
	"github.com/meowstack/agentflow/internal/signer"
	"github.com/meowstack/agentflow/internal/store"
)

func testManager(t *testing.T) (*Manager, *signer.Ed25519Signer, *clock.Fake) {
	t.Helper()
	s, err := signer.NewEd25519Signer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m := New(store.NewInMemory(), fc, config.Default().Mandate, logging.NewForTest())
	return m, s, fc
}

func TestCreateStartsNewChain(t *testing.T) {
	m, s, _ := testManager(t)
	ctx := context.Background()

	mandate, err := m.Create(ctx, "tenant-1", "", model.MandateIntent, map[string]any{"amount": 100}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mandate.Sequence != 0 {
		t.Errorf("Sequence = %d, want 0", mandate.Sequence)
	}
	if mandate.PrevHash != "" {
		t.Errorf("PrevHash = %q, want empty for first mandate", mandate.PrevHash)
	}
	if mandate.Hash == "" {
		t.Error("expected a non-empty hash")
	}
	if mandate.Status != model.MandateSigned {
		t.Errorf("Status = %v, want SIGNED", mandate.Status)
	}
}

func TestCreateChainsHashes(t *testing.T) {
	m, s, _ := testManager(t)
	ctx := context.Background()

	intent, err := m.Create(ctx, "tenant-1", "", model.MandateIntent, map[string]any{"amount": 100}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cart, err := m.Create(ctx, "tenant-1", intent.ChainID, model.MandateCart, map[string]any{"items": 3}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.Sequence != 1 {
		t.Errorf("Sequence = %d, want 1", cart.Sequence)
	}
	if cart.PrevHash != intent.Hash {
		t.Errorf("PrevHash = %q, want %q", cart.PrevHash, intent.Hash)
	}
}

func TestCreateEnforcesKindOrdering(t *testing.T) {
	m, s, _ := testManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, "tenant-1", "", model.MandateCart, map[string]any{}, s)
	if err == nil {
		t.Fatal("expected error creating CART before INTENT")
	}
	if !errors.HasCode(err, errors.CodeValidation) {
		t.Errorf("err = %v, want CodeValidation", err)
	}
}

func TestCreateRequiresSigner(t *testing.T) {
	m, _, _ := testManager(t)
	_, err := m.Create(context.Background(), "tenant-1", "", model.MandateIntent, map[string]any{}, nil)
	if err == nil {
		t.Fatal("expected error for nil signer")
	}
}

func TestVerifyDetectsIntactChain(t *testing.T) {
	m, s, _ := testManager(t)
	ctx := context.Background()

	intent, err := m.Create(ctx, "tenant-1", "", model.MandateIntent, map[string]any{"amount": 100}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Create(ctx, "tenant-1", intent.ChainID, model.MandateCart, map[string]any{"items": 3}, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := m.Verify(ctx, intent.ChainID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Errorf("expected chain to verify intact, failures: %v", result.Failures)
	}
}

func TestVerifyDetectsTamperedContent(t *testing.T) {
	m, s, _ := testManager(t)
	ctx := context.Background()

	intent, err := m.Create(ctx, "tenant-1", "", model.MandateIntent, map[string]any{"amount": 100}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = m.store.MutateMandate(ctx, intent.ChainID, intent.MandateID, func(mm *model.Mandate) error {
		mm.Content["amount"] = 999
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := m.Verify(ctx, intent.ChainID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Error("expected tampered content to fail verification")
	}
}

func TestApproveRejectsFromWrongStatus(t *testing.T) {
	m, s, _ := testManager(t)
	ctx := context.Background()

	intent, err := m.Create(ctx, "tenant-1", "", model.MandateIntent, map[string]any{}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Reject(ctx, intent.ChainID, intent.MandateID, "actor-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Approve(ctx, intent.ChainID, intent.MandateID, "actor-1"); err == nil {
		t.Fatal("expected error approving an already-terminal mandate")
	}
}

func TestCancelTransitionsStatus(t *testing.T) {
	m, s, _ := testManager(t)
	ctx := context.Background()

	intent, err := m.Create(ctx, "tenant-1", "", model.MandateIntent, map[string]any{}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancelled, err := m.Cancel(ctx, intent.ChainID, intent.MandateID, "actor-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != model.MandateCancelled {
		t.Errorf("Status = %v, want CANCELLED", cancelled.Status)
	}
}

func TestCreateCancellationRequiresExistingMandate(t *testing.T) {
	m, s, _ := testManager(t)
	ctx := context.Background()

	intent, err := m.Create(ctx, "tenant-1", "", model.MandateIntent, map[string]any{}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = m.CreateCancellation(ctx, "tenant-1", intent.ChainID, "unknown-id", map[string]any{}, s)
	if err == nil {
		t.Fatal("expected error compensating an unknown mandate")
	}
}

func TestCreateCancellationLinksCompensates(t *testing.T) {
	m, s, _ := testManager(t)
	ctx := context.Background()

	payment, err := m.Create(ctx, "tenant-1", "", model.MandateIntent, map[string]any{}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancellation, err := m.CreateCancellation(ctx, "tenant-1", payment.ChainID, payment.MandateID, map[string]any{"reason": "refund"}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancellation.Compensates != payment.MandateID {
		t.Errorf("Compensates = %q, want %q", cancellation.Compensates, payment.MandateID)
	}
	if cancellation.Sequence <= payment.Sequence {
		t.Errorf("cancellation sequence %d must follow compensated sequence %d", cancellation.Sequence, payment.Sequence)
	}
}

func TestSweepExpiredMarksExpiredMandates(t *testing.T) {
	m, s, fc := testManager(t)
	ctx := context.Background()

	intent, err := m.Create(ctx, "tenant-1", "", model.MandateIntent, map[string]any{}, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fc.Advance(25 * time.Hour) // past the default 24h INTENT TTL

	count, err := m.SweepExpired(ctx, intent.ChainID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("swept %d mandates, want 1", count)
	}

	chain, err := m.store.LoadChain(ctx, intent.ChainID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chain.Mandates[0].Status != model.MandateExpired {
		t.Errorf("Status = %v, want EXPIRED", chain.Mandates[0].Status)
	}
}
