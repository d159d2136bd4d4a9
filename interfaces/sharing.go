package interfaces

import (
	"context"
	"math/big"
)

// Share is one point of a split secret: the polynomial evaluated at Index,
// reduced modulo the configured prime, together with a signature over the
// sign-magnitude bytes of Value.
//
// Shares are immutable once created. Nothing in a Share records which split
// produced it beyond the signature's binding to the signing key.
type Share struct {
	// Index is the evaluation point, in [0, n) for a split of n shares.
	Index int

	// Value is the polynomial evaluated at Index, in [0, p).
	Value *big.Int

	// Signature is produced by the configured Signer over the value bytes.
	Signature []byte
}

// Signer produces and checks signatures over share values.
// Implementations must be safe for concurrent use.
type Signer interface {
	// Sign returns a signature over data.
	Sign(data []byte) ([]byte, error)

	// Verify reports whether signature is valid for data. A mismatch is
	// reported as (false, nil); an error means the key material itself is unusable.
	Verify(data, signature []byte) (bool, error)

	// Algorithm returns the signature algorithm name, e.g. "SHA256withRSA".
	Algorithm() string
}

// SecretSharing is the core split/recover API exposed to transports.
type SecretSharing interface {
	// SplitSecret splits secret into n signed shares, any k of which recover it.
	SplitSecret(ctx context.Context, k, n int, secret string) ([]Share, error)

	// RecoverSecret verifies every share and interpolates the secret back.
	RecoverSecret(ctx context.Context, shares []Share) (string, error)
}
