// Package signer provides the Signer abstraction MandateChainManager uses
// to sign and verify mandate hashes, plus an Ed25519 reference
// implementation.
package signer

// Signer signs and verifies byte payloads (in practice, a mandate's
// content hash) on behalf of a named key.
type Signer interface {
	// Sign returns a signature over data, the key id that produced it, and
	// the algorithm name (recorded on the Mandate's Signature so a future
	// key rotation can tell which verifier to use).
	Sign(data []byte) (signature []byte, keyID string, algorithm string, err error)

	// Verify checks that signature over data was produced by keyID under
	// algorithm.
	Verify(data, signature []byte, keyID, algorithm string) (bool, error)
}
