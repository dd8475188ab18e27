package model

import "time"

// MandateKind is the type of authorization record in a chain.
type MandateKind string

const (
	MandateIntent       MandateKind = "INTENT"
	MandateCart         MandateKind = "CART"
	MandatePayment      MandateKind = "PAYMENT"
	MandateApproval     MandateKind = "APPROVAL"
	MandateCancellation MandateKind = "CANCELLATION"
)

// Valid reports whether k is a recognized mandate kind.
func (k MandateKind) Valid() bool {
	switch k {
	case MandateIntent, MandateCart, MandatePayment, MandateApproval, MandateCancellation:
		return true
	}
	return false
}

// requiredPredecessor maps each mandate kind to the kind that must appear
// somewhere earlier in the chain before it, per spec.md's ordering rule
// INTENT -> CART -> PAYMENT. APPROVAL is optional and, per spec.md's Open
// Questions resolution, may precede or follow PAYMENT, so it carries no
// fixed predecessor here; CANCELLATION's ordering is checked against the
// specific mandate it compensates (see Mandate.Compensates), not by kind.
var requiredPredecessor = map[MandateKind]MandateKind{
	MandateCart:    MandateIntent,
	MandatePayment: MandateCart,
}

// RequiredPredecessor returns the mandate kind that must precede k in a
// chain, and whether one is required at all (INTENT, APPROVAL, and
// CANCELLATION have no kind-based predecessor).
func RequiredPredecessor(k MandateKind) (MandateKind, bool) {
	pred, ok := requiredPredecessor[k]
	return pred, ok
}

// MandateStatus is the lifecycle state of a Mandate.
type MandateStatus string

const (
	MandatePending   MandateStatus = "PENDING"
	MandateSigned    MandateStatus = "SIGNED"
	MandateApproved  MandateStatus = "APPROVED"
	MandateExecuted  MandateStatus = "EXECUTED"
	MandateRejected  MandateStatus = "REJECTED"
	MandateCancelled MandateStatus = "CANCELLED"
	MandateExpired   MandateStatus = "EXPIRED"
)

// IsTerminal reports whether the status is final.
func (s MandateStatus) IsTerminal() bool {
	switch s {
	case MandateExecuted, MandateRejected, MandateCancelled, MandateExpired:
		return true
	}
	return false
}

// Signature is a single named-algorithm signature over a mandate's
// canonical content hash.
type Signature struct {
	KeyID     string    `json:"keyId"`
	Signature []byte    `json:"signature"`
	Algorithm string    `json:"algorithm"` // e.g. "ed25519"
	SignedAt  time.Time `json:"signedAt"`
}

// Mandate is a single cryptographically linked record in a tenant's
// authorization chain.
type Mandate struct {
	MandateID string          `json:"mandateId"`
	ChainID   string          `json:"chainId"`
	Sequence  int             `json:"sequence"`
	Kind      MandateKind     `json:"kind"`
	Status    MandateStatus   `json:"status"`
	Content   map[string]any  `json:"content"`
	PrevHash  string          `json:"prevHash,omitempty"` // empty only for sequence 0
	Hash      string          `json:"hash"`
	Signatures []Signature    `json:"signatures,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`

	// Compensates holds the mandateId a CANCELLATION record reverses. The
	// chain manager requires Sequence to be greater than the compensated
	// mandate's sequence.
	Compensates string `json:"compensates,omitempty"`
}

// HasAnySignature reports whether at least one signature has been attached,
// the precondition for advancing past PENDING.
func (m *Mandate) HasAnySignature() bool {
	return len(m.Signatures) > 0
}

// IsExpired reports whether now is past the mandate's TTL.
func (m *Mandate) IsExpired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && now.After(m.ExpiresAt)
}

// MandateChain is the full ordered sequence of records for one tenant
// transaction.
type MandateChain struct {
	ChainID  string     `json:"chainId"`
	TenantID string     `json:"tenantId"`
	Mandates []*Mandate `json:"mandates"`
}

// Head returns the last mandate appended to the chain, or nil if empty.
func (c *MandateChain) Head() *Mandate {
	if len(c.Mandates) == 0 {
		return nil
	}
	return c.Mandates[len(c.Mandates)-1]
}

// KindPresent reports whether a mandate of the given kind already exists
// anywhere in the chain.
func (c *MandateChain) KindPresent(k MandateKind) bool {
	for _, m := range c.Mandates {
		if m.Kind == k {
			return true
		}
	}
	return false
}
