// Package store implements the Store external interface (spec.md §6) and
// a pair of backends: an in-memory reference store for tests and a
// Redis-backed store for production.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/meowstack/agentflow/internal/model"
)

// ErrNotFound is returned by any load operation that finds nothing under
// the requested id.
var ErrNotFound = fmt.Errorf("store: not found")

// ExecutionPatch carries a partial update to an Execution. Only non-nil
// fields are applied; this mirrors the Orchestrator's "status + output +
// event" single logical write described in spec.md §5.
type ExecutionPatch struct {
	Status         *model.ExecutionStatus
	EndedAt        *time.Time
	Variables      map[string]any
	StepResult     *model.StepResult
	MandateChainID *string
	FailureReason  *model.FailureReason
	Metrics        *model.ExecutionMetrics
}

// Store is the persistence seam the Orchestrator and MandateChainManager
// depend on. Every method is safe for concurrent use across executions;
// per-chain and per-execution serialization is the implementation's
// responsibility (see spec.md §5).
type Store interface {
	LoadAgent(ctx context.Context, agentID string) (*model.Agent, error)
	SaveAgent(ctx context.Context, agent *model.Agent) error

	SaveExecution(ctx context.Context, exec *model.Execution) error
	LoadExecution(ctx context.Context, executionID string) (*model.Execution, error)
	UpdateExecution(ctx context.Context, executionID string, patch ExecutionPatch) error

	AppendMandate(ctx context.Context, mandate *model.Mandate) error
	LoadChain(ctx context.Context, chainID string) (*model.MandateChain, error)

	// MutateMandate applies mutate to the mandate identified by
	// (chainID, mandateID) and persists the result. It exists alongside
	// the append-only AppendMandate because status transitions
	// (sign/approve/reject/cancel/expire, per spec.md §4.4) act on an
	// already-committed record rather than appending a new one; the hash
	// and sequence a mutate func is handed are never touched by the
	// MandateChainManager, only Status and Signatures.
	MutateMandate(ctx context.Context, chainID, mandateID string, mutate func(*model.Mandate) error) error
}
