package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter is returned when k or n are out of bounds or the secret is blank.
	ErrInvalidParameter = errors.New("invalid parameter(s) provided")

	// ErrInvalidEncoding is returned when the secret is not valid UTF-8 or cannot be
	// represented by the integer encoding.
	ErrInvalidEncoding = errors.New("invalid character(s) in secret")

	// ErrSecretTooLarge is returned when the encoded secret does not fit the configured bit size.
	ErrSecretTooLarge = errors.New("secret byte size overflow for current bit size")

	// ErrEmptyShareSet is returned when recovery is attempted without shares.
	ErrEmptyShareSet = errors.New("empty shares provided")

	// ErrIntegrityViolation is returned when a share fails signature verification.
	// The concrete error is an *IntegrityError naming the share index.
	ErrIntegrityViolation = errors.New("invalid signature for share")

	// ErrSigningFailure is returned when the key material fails to produce a signature.
	ErrSigningFailure = errors.New("failed to sign share")

	// ErrCryptoConfiguration is returned when key material, algorithm names or the
	// modulus are unusable.
	ErrCryptoConfiguration = errors.New("invalid cryptographic configuration")

	// ErrNonInvertible is returned by interpolation when a denominator is zero modulo
	// the prime, which only happens for repeated share indices.
	ErrNonInvertible = errors.New("denominator has no modular inverse")
)

// IntegrityError reports the share whose signature did not verify.
type IntegrityError struct {
	// Index is the index of the offending share.
	Index int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("invalid signature for share at index: %d", e.Index)
}

// Unwrap allows errors.Is(err, ErrIntegrityViolation).
func (e *IntegrityError) Unwrap() error {
	return ErrIntegrityViolation
}
