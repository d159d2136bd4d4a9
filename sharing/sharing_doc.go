// Package sharing implements k-of-n Shamir secret sharing over a large prime field,
// with every share signed so that tampering is detected before reconstruction.
//
// A secret is encoded as the big-endian integer of its UTF-8 bytes and placed in the
// constant term of a random polynomial of degree k-1. Share i is the polynomial
// evaluated at x=i for i in 0..n-1, together with a signature over the sign-magnitude
// bytes of the value (see ValueBytes).
//
// Recovery verifies every signature first and fails with *interfaces.IntegrityError on
// the first invalid share, then interpolates P(0) with Lagrange's formula.
//
// Field arithmetic uses saferith moduli; the modulus is fixed for the lifetime of a
// SecretSharing instance so that shares remain recoverable.
//
//	s, err := sharing.New(sharing.Params{Prime: p, BitSize: 2048}, signer)
//	shares, err := s.SplitSecret(ctx, 2, 4, "Super Secret")
//	secret, err := s.RecoverSecret(ctx, shares[1:3])
package sharing
