package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

const AlgorithmEd25519 = "ed25519"

// Ed25519Signer is the reference Signer implementation: a single Ed25519
// keypair identified by a generated key id. Production deployments that
// need rotation hold one Ed25519Signer per active key and select among
// them; Verify here only recognizes its own keyID, which is sufficient for
// a single-key deployment and the pattern a multi-key registry would wrap.
type Ed25519Signer struct {
	keyID      string
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// NewEd25519Signer generates a fresh Ed25519 keypair with a random key id.
func NewEd25519Signer() (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ed25519 keypair: %w", err)
	}
	return &Ed25519Signer{keyID: uuid.NewString(), publicKey: pub, privateKey: priv}, nil
}

// NewEd25519SignerFromKey wraps an existing keypair under keyID, for
// loading a persisted key rather than generating a fresh one.
func NewEd25519SignerFromKey(keyID string, priv ed25519.PrivateKey) *Ed25519Signer {
	return &Ed25519Signer{keyID: keyID, publicKey: priv.Public().(ed25519.PublicKey), privateKey: priv}
}

// KeyID returns the signer's key id.
func (s *Ed25519Signer) KeyID() string { return s.keyID }

// PublicKey returns the signer's public key, for distributing to verifiers
// that aren't this same Signer instance.
func (s *Ed25519Signer) PublicKey() ed25519.PublicKey { return s.publicKey }

// PrivateKeyBytes returns the raw private key, for callers that persist a
// signer's key material across process restarts (e.g. a CLI that must
// sign consistently across separate invocations).
func (s *Ed25519Signer) PrivateKeyBytes() ed25519.PrivateKey { return s.privateKey }

func (s *Ed25519Signer) Sign(data []byte) ([]byte, string, string, error) {
	sig := ed25519.Sign(s.privateKey, data)
	return sig, s.keyID, AlgorithmEd25519, nil
}

func (s *Ed25519Signer) Verify(data, signature []byte, keyID, algorithm string) (bool, error) {
	if algorithm != AlgorithmEd25519 {
		return false, fmt.Errorf("ed25519 signer cannot verify algorithm %q", algorithm)
	}
	if keyID != s.keyID {
		return false, fmt.Errorf("ed25519 signer does not recognize key id %q", keyID)
	}
	return ed25519.Verify(s.publicKey, data, signature), nil
}
