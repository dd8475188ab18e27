// Package mandate implements the MandateChainManager described in
// spec.md §4.4: a cryptographically linked chain of authorization
// records (INTENT -> CART -> PAYMENT -> optional APPROVAL/CANCELLATION)
// attached to payment-producing executions.
package mandate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meowstack/agentflow/internal/clock"
	"github.com/meowstack/agentflow/internal/config"
	"github.com/meowstack/agentflow/internal/errors"
	"github.com/meowstack/agentflow/internal/logging"
	"github.com/meowstack/agentflow/internal/model"
	"github.com/meowstack/agentflow/internal/signer"
	"github.com/meowstack/agentflow/internal/store"
)

// Manager builds, signs, and verifies mandate chains. Appends and
// mutations to a single chain are serialized through a per-chain lock
// so sequence numbers and hash linkage can never race; verification of
// unrelated chains proceeds concurrently (spec.md §5).
type Manager struct {
	store store.Store
	clock clock.Clock
	ttl   config.MandateTTLConfig
	log   *slog.Logger

	mu        sync.Mutex
	chainLock map[string]*sync.Mutex

	verifierMu sync.RWMutex
	verifiers  map[string]signer.Signer // keyID -> signer that can verify it
}

// New constructs a Manager. log may be nil, in which case a default
// logger is used.
func New(s store.Store, c clock.Clock, ttl config.MandateTTLConfig, log *slog.Logger) *Manager {
	if log == nil {
		log = logging.NewDefault()
	}
	return &Manager{
		store:     s,
		clock:     c,
		ttl:       ttl,
		log:       log,
		chainLock: make(map[string]*sync.Mutex),
		verifiers: make(map[string]signer.Signer),
	}
}

func (m *Manager) lockFor(chainID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.chainLock[chainID]
	if !ok {
		lock = &sync.Mutex{}
		m.chainLock[chainID] = lock
	}
	return lock
}

func (m *Manager) registerVerifier(keyID string, s signer.Signer) {
	m.verifierMu.Lock()
	defer m.verifierMu.Unlock()
	m.verifiers[keyID] = s
}

// RegisterVerifier makes s available to Verify for signatures under keyID
// without going through Create first. It exists for callers that load a
// Manager fresh in a process that didn't create the mandates it verifies
// (a CLI invocation, a verification-only service) but hold the same
// signing key s was constructed from.
func (m *Manager) RegisterVerifier(keyID string, s signer.Signer) {
	m.registerVerifier(keyID, s)
}

func (m *Manager) verifierFor(keyID string) (signer.Signer, bool) {
	m.verifierMu.RLock()
	defer m.verifierMu.RUnlock()
	s, ok := m.verifiers[keyID]
	return s, ok
}

// Create appends a new mandate to chainID, or starts a new chain when
// chainID is empty. sign must not be nil: every mandate is signed at
// creation per spec.md §4.4.
func (m *Manager) Create(ctx context.Context, tenantID, chainID string, kind model.MandateKind, content map[string]any, sign signer.Signer) (*model.Mandate, error) {
	if !kind.Valid() {
		return nil, errors.Newf(errors.CodeValidation, "unknown mandate kind: %s", kind)
	}
	if sign == nil {
		return nil, errors.New(errors.CodeValidation, "mandate creation requires a signer")
	}
	if chainID == "" {
		chainID = uuid.NewString()
	}

	lock := m.lockFor(chainID)
	lock.Lock()
	defer lock.Unlock()

	chain, err := m.loadOrNewChain(ctx, chainID, tenantID)
	if err != nil {
		return nil, err
	}

	if pred, ok := model.RequiredPredecessor(kind); ok && !chain.KindPresent(pred) {
		return nil, errors.Newf(errors.CodeValidation,
			"mandate chain %s: %s requires a prior %s in the chain", chainID, kind, pred)
	}

	sequence := len(chain.Mandates)
	prevHash := ""
	if head := chain.Head(); head != nil {
		prevHash = head.Hash
	}

	now := m.clock.Now()
	hash, err := canonicalHash(content, prevHash, sequence)
	if err != nil {
		return nil, err
	}

	sig, keyID, algorithm, err := sign.Sign([]byte(hash))
	if err != nil {
		return nil, errors.Wrapf(errors.CodeSignatureInvalid, err, "signing mandate for chain %s", chainID)
	}
	m.registerVerifier(keyID, sign)

	mandate := &model.Mandate{
		MandateID: uuid.NewString(),
		ChainID:   chainID,
		Sequence:  sequence,
		Kind:      kind,
		Status:    model.MandateSigned,
		Content:   content,
		PrevHash:  prevHash,
		Hash:      hash,
		CreatedAt: now,
		Signatures: []model.Signature{
			{KeyID: keyID, Signature: sig, Algorithm: algorithm, SignedAt: now},
		},
	}
	if ttl := m.ttlFor(kind); ttl > 0 {
		mandate.ExpiresAt = now.Add(ttl)
	}

	if err := m.store.AppendMandate(ctx, mandate); err != nil {
		return nil, errors.StoreUnavailable("append_mandate", err)
	}

	logging.WithChain(m.log, chainID, tenantID).Info("mandate created",
		"mandate_id", mandate.MandateID, "kind", kind, "sequence", sequence)
	return mandate, nil
}

// CreateCancellation appends a CANCELLATION mandate compensating an
// existing mandate in the same chain. The compensated mandate must
// already exist and precede the new record in sequence.
func (m *Manager) CreateCancellation(ctx context.Context, tenantID, chainID, compensatesMandateID string, content map[string]any, sign signer.Signer) (*model.Mandate, error) {
	chain, err := m.store.LoadChain(ctx, chainID)
	if err != nil {
		return nil, errors.StoreUnavailable("load_chain", err)
	}
	var compensated *model.Mandate
	for _, cand := range chain.Mandates {
		if cand.MandateID == compensatesMandateID {
			compensated = cand
			break
		}
	}
	if compensated == nil {
		return nil, errors.Newf(errors.CodeValidation,
			"mandate chain %s: cannot compensate unknown mandate %s", chainID, compensatesMandateID)
	}

	mandate, err := m.Create(ctx, tenantID, chainID, model.MandateCancellation, content, sign)
	if err != nil {
		return nil, err
	}
	if mandate.Sequence <= compensated.Sequence {
		return nil, errors.Newf(errors.CodeValidation,
			"mandate chain %s: cancellation sequence %d must follow compensated sequence %d",
			chainID, mandate.Sequence, compensated.Sequence)
	}

	err = m.store.MutateMandate(ctx, chainID, mandate.MandateID, func(mm *model.Mandate) error {
		mm.Compensates = compensatesMandateID
		return nil
	})
	if err != nil {
		return nil, errors.StoreUnavailable("mutate_mandate", err)
	}
	mandate.Compensates = compensatesMandateID
	return mandate, nil
}

// Sign attaches an additional signature to an existing mandate, for
// multi-party co-signing flows. It does not change Hash or Sequence.
func (m *Manager) Sign(ctx context.Context, chainID, mandateID string, sign signer.Signer) (*model.Mandate, error) {
	var result *model.Mandate
	err := m.store.MutateMandate(ctx, chainID, mandateID, func(mm *model.Mandate) error {
		sig, keyID, algorithm, err := sign.Sign([]byte(mm.Hash))
		if err != nil {
			return errors.Wrapf(errors.CodeSignatureInvalid, err, "signing mandate %s", mandateID)
		}
		m.registerVerifier(keyID, sign)
		mm.Signatures = append(mm.Signatures, model.Signature{
			KeyID: keyID, Signature: sig, Algorithm: algorithm, SignedAt: m.clock.Now(),
		})
		if mm.Status == model.MandatePending {
			mm.Status = model.MandateSigned
		}
		result = mm
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Approve transitions a mandate from SIGNED to APPROVED.
func (m *Manager) Approve(ctx context.Context, chainID, mandateID, actor string) (*model.Mandate, error) {
	return m.transition(ctx, chainID, mandateID, actor, model.MandateApproved, model.MandateSigned)
}

// Reject transitions a mandate to REJECTED from any non-terminal status.
func (m *Manager) Reject(ctx context.Context, chainID, mandateID, actor string) (*model.Mandate, error) {
	return m.transition(ctx, chainID, mandateID, actor, model.MandateRejected)
}

// Cancel transitions a mandate to CANCELLED from any non-terminal status.
func (m *Manager) Cancel(ctx context.Context, chainID, mandateID, actor string) (*model.Mandate, error) {
	return m.transition(ctx, chainID, mandateID, actor, model.MandateCancelled)
}

// Execute transitions a mandate from APPROVED (or SIGNED, when no
// approval step is used) to EXECUTED, marking it as having produced its
// real-world effect.
func (m *Manager) Execute(ctx context.Context, chainID, mandateID, actor string) (*model.Mandate, error) {
	return m.transition(ctx, chainID, mandateID, actor, model.MandateExecuted, model.MandateSigned, model.MandateApproved)
}

// transition moves a mandate to target, failing if its current status is
// terminal or (when from is non-empty) not one of the allowed sources.
func (m *Manager) transition(ctx context.Context, chainID, mandateID, actor string, target model.MandateStatus, from ...model.MandateStatus) (*model.Mandate, error) {
	var result *model.Mandate
	err := m.store.MutateMandate(ctx, chainID, mandateID, func(mm *model.Mandate) error {
		if mm.Status.IsTerminal() {
			return errors.Newf(errors.CodeValidation, "mandate %s: cannot transition from terminal status %s", mandateID, mm.Status)
		}
		if len(from) > 0 && !containsStatus(from, mm.Status) {
			return errors.Newf(errors.CodeValidation, "mandate %s: cannot transition to %s from %s", mandateID, target, mm.Status)
		}
		mm.Status = target
		result = mm
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.WithChain(m.log, chainID, "").Info("mandate transitioned",
		"mandate_id", mandateID, "status", target, "actor", actor)
	return result, nil
}

func containsStatus(statuses []model.MandateStatus, s model.MandateStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// SweepExpired marks every non-terminal mandate in chainID whose TTL has
// elapsed as EXPIRED, returning how many were changed.
func (m *Manager) SweepExpired(ctx context.Context, chainID string) (int, error) {
	chain, err := m.store.LoadChain(ctx, chainID)
	if err != nil {
		return 0, errors.StoreUnavailable("load_chain", err)
	}

	now := m.clock.Now()
	count := 0
	for _, mm := range chain.Mandates {
		if mm.Status.IsTerminal() || !mm.IsExpired(now) {
			continue
		}
		err := m.store.MutateMandate(ctx, chainID, mm.MandateID, func(inner *model.Mandate) error {
			inner.Status = model.MandateExpired
			return nil
		})
		if err != nil {
			return count, errors.StoreUnavailable("mutate_mandate", err)
		}
		count++
	}
	return count, nil
}

// VerifyResult is the outcome of Verify: whether the chain is fully
// intact, and a human-readable reason for every integrity failure found.
type VerifyResult struct {
	OK       bool
	Failures []string
}

// Verify recomputes every mandate's hash, checks sequence contiguity and
// prevHash linkage, and checks signatures against known verifiers.
// Verification of one chain never blocks verification of another.
func (m *Manager) Verify(ctx context.Context, chainID string) (VerifyResult, error) {
	chain, err := m.store.LoadChain(ctx, chainID)
	if err != nil {
		return VerifyResult{}, errors.StoreUnavailable("load_chain", err)
	}

	var failures []string
	prevHash := ""
	for i, mm := range chain.Mandates {
		if mm.Sequence != i {
			failures = append(failures, errors.SequenceGap(chainID, i, mm.Sequence).Error())
		}
		if mm.PrevHash != prevHash {
			failures = append(failures, errors.ChainMismatch(chainID, mm.Sequence).Error())
		}

		recomputed, err := canonicalHash(mm.Content, mm.PrevHash, mm.Sequence)
		if err != nil {
			failures = append(failures, fmt.Sprintf("mandate %s: %v", mm.MandateID, err))
		} else if recomputed != mm.Hash {
			failures = append(failures, errors.ChainMismatch(chainID, mm.Sequence).Error())
		}

		if !mm.HasAnySignature() {
			failures = append(failures, errors.SignatureInvalid(mm.MandateID, "").Error())
		}
		for _, sig := range mm.Signatures {
			verifier, ok := m.verifierFor(sig.KeyID)
			if !ok {
				failures = append(failures, errors.SignatureInvalid(mm.MandateID, sig.KeyID).Error())
				continue
			}
			ok, err := verifier.Verify([]byte(mm.Hash), sig.Signature, sig.KeyID, sig.Algorithm)
			if err != nil || !ok {
				failures = append(failures, errors.SignatureInvalid(mm.MandateID, sig.KeyID).Error())
			}
		}

		prevHash = mm.Hash
	}

	return VerifyResult{OK: len(failures) == 0, Failures: failures}, nil
}

func (m *Manager) loadOrNewChain(ctx context.Context, chainID, tenantID string) (*model.MandateChain, error) {
	chain, err := m.store.LoadChain(ctx, chainID)
	if err == store.ErrNotFound {
		return &model.MandateChain{ChainID: chainID, TenantID: tenantID}, nil
	}
	if err != nil {
		return nil, errors.StoreUnavailable("load_chain", err)
	}
	return chain, nil
}

func (m *Manager) ttlFor(kind model.MandateKind) time.Duration {
	switch kind {
	case model.MandateIntent:
		return m.ttl.Intent
	case model.MandateCart:
		return m.ttl.Cart
	case model.MandatePayment:
		return m.ttl.Payment
	case model.MandateApproval:
		return m.ttl.Approval
	default:
		// CANCELLATION records compensate an already-bounded mandate and
		// carry no TTL of their own.
		return 0
	}
}

// canonicalHash hashes content (sorted-key JSON, which encoding/json
// already produces for map[string]any) concatenated with prevHash and
// sequence, per spec.md §4.4.
func canonicalHash(content map[string]any, prevHash string, sequence int) (string, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("canonicalizing mandate content: %w", err)
	}
	h := sha256.New()
	h.Write(data)
	h.Write([]byte(prevHash))
	fmt.Fprintf(h, "%d", sequence)
	return hex.EncodeToString(h.Sum(nil)), nil
}
