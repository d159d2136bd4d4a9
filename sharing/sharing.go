package sharing

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/ruteri/secret-sharing-service/interfaces"
)

// Bounds on the modulus bit length.
const (
	MinBitSize       = 512
	MaxBitSize       = 4096
	DefaultBitSize   = 2048
	DefaultMaxShares = 300
)

// CoefficientMode selects how the non-constant polynomial coefficients are drawn.
type CoefficientMode string

const (
	// CoefficientPrime draws each coefficient as a probable prime of the modulus bit length.
	CoefficientPrime CoefficientMode = "prime"
	// CoefficientUniform draws each coefficient uniformly from [1, p).
	CoefficientUniform CoefficientMode = "uniform"
)

// ParseCoefficientMode maps a configuration value to a CoefficientMode. Empty means prime.
func ParseCoefficientMode(s string) (CoefficientMode, error) {
	switch CoefficientMode(s) {
	case "", CoefficientPrime:
		return CoefficientPrime, nil
	case CoefficientUniform:
		return CoefficientUniform, nil
	default:
		return "", fmt.Errorf("%w: unknown coefficient mode %q", interfaces.ErrCryptoConfiguration, s)
	}
}

// MaxByteSize returns the byte capacity of a modulus of the given bit length,
// including the byte reserved for the sign.
func MaxByteSize(bitSize int) int {
	return (bitSize - 1) / 8
}

// Params holds the immutable, process-wide inputs of a SecretSharing instance.
type Params struct {
	// Prime is the field modulus; its bit length must equal BitSize.
	Prime *big.Int
	// BitSize is the modulus bit length, between MinBitSize and MaxBitSize.
	BitSize int
	// MaxShares bounds n. Zero means DefaultMaxShares.
	MaxShares int
	// Coefficients selects the coefficient distribution. Empty means CoefficientPrime.
	Coefficients CoefficientMode
	// Rand is the randomness source. Nil means crypto/rand.Reader.
	Rand io.Reader
}

// SecretSharing splits secrets into signed Shamir shares over a prime field and
// recovers them. It holds only read-only state and is safe for concurrent use.
type SecretSharing struct {
	field        *Field
	signer       interfaces.Signer
	validator    Validator
	bitSize      int
	coefficients CoefficientMode
	rand         io.Reader
}

var _ interfaces.SecretSharing = (*SecretSharing)(nil)

// New creates a SecretSharing instance from validated parameters and a signer.
func New(params Params, signer interfaces.Signer) (*SecretSharing, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: no signer configured", interfaces.ErrCryptoConfiguration)
	}

	if params.BitSize < MinBitSize || params.BitSize > MaxBitSize {
		return nil, fmt.Errorf("%w: bit size value must be between %d and %d", interfaces.ErrCryptoConfiguration, MinBitSize, MaxBitSize)
	}

	if params.Prime == nil || params.Prime.BitLen() != params.BitSize {
		return nil, fmt.Errorf("%w: modulus must be a %d-bit prime", interfaces.ErrCryptoConfiguration, params.BitSize)
	}

	field, err := NewField(params.Prime)
	if err != nil {
		return nil, err
	}

	mode, err := ParseCoefficientMode(string(params.Coefficients))
	if err != nil {
		return nil, err
	}

	maxShares := params.MaxShares
	if maxShares == 0 {
		maxShares = DefaultMaxShares
	}
	if maxShares < 0 {
		return nil, fmt.Errorf("%w: negative max shares", interfaces.ErrCryptoConfiguration)
	}

	random := params.Rand
	if random == nil {
		random = rand.Reader
	}

	return &SecretSharing{
		field:  field,
		signer: signer,
		validator: Validator{
			MaxShares:   maxShares,
			MaxByteSize: MaxByteSize(params.BitSize),
		},
		bitSize:      params.BitSize,
		coefficients: mode,
		rand:         random,
	}, nil
}

// Prime returns the field modulus.
func (s *SecretSharing) Prime() *big.Int {
	return s.field.Prime()
}

// MaxShares returns the upper bound on n.
func (s *SecretSharing) MaxShares() int {
	return s.validator.MaxShares
}

// SplitSecret builds a random polynomial of degree k-1 whose constant term encodes
// secret, evaluates it at 0..n-1 and signs every value. Validation errors are returned
// before any randomness is consumed.
//
// Cancellation is best effort: ctx is checked between coefficient draws only.
func (s *SecretSharing) SplitSecret(ctx context.Context, k, n int, secret string) ([]interfaces.Share, error) {
	if err := s.validator.Validate(k, n, secret); err != nil {
		return nil, err
	}

	coefficients := make([]*big.Int, k)
	coefficients[0] = EncodeSecret(secret)

	for i := 1; i < k; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c, err := s.randomCoefficient()
		if err != nil {
			return nil, fmt.Errorf("failed to draw coefficient: %w", err)
		}
		coefficients[i] = c
	}

	shares := make([]interfaces.Share, 0, n)
	for i := 0; i < n; i++ {
		y := s.field.EvaluatePolynomial(coefficients, i)

		signature, err := s.signer.Sign(ValueBytes(y))
		if err != nil {
			return nil, fmt.Errorf("share %d: %w", i, err)
		}

		shares = append(shares, interfaces.Share{Index: i, Value: y, Signature: signature})
	}

	return shares, nil
}

// RecoverSecret verifies every share, aborting on the first invalid signature with
// an *interfaces.IntegrityError, and then interpolates the constant term.
//
// The number of shares supplied is the threshold used. Supplying fewer shares than
// the k of the split yields a wrong secret, not an error: shares do not record k.
func (s *SecretSharing) RecoverSecret(ctx context.Context, shares []interfaces.Share) (string, error) {
	if len(shares) == 0 {
		return "", interfaces.ErrEmptyShareSet
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	xs := make([]int, len(shares))
	ys := make([]*big.Int, len(shares))

	for i, share := range shares {
		if share.Index < 0 {
			return "", fmt.Errorf("%w: negative share index %d", interfaces.ErrInvalidParameter, share.Index)
		}

		// Split never emits negative values, so such a share cannot carry a valid signature.
		if share.Value == nil || share.Value.Sign() < 0 {
			return "", &interfaces.IntegrityError{Index: share.Index}
		}

		valid, err := s.signer.Verify(ValueBytes(share.Value), share.Signature)
		if err != nil {
			return "", err
		}
		if !valid {
			return "", &interfaces.IntegrityError{Index: share.Index}
		}

		xs[i] = share.Index
		ys[i] = share.Value
	}

	secretValue, err := s.field.InterpolateAtZero(xs, ys)
	if err != nil {
		return "", err
	}

	return DecodeSecret(secretValue), nil
}

func (s *SecretSharing) randomCoefficient() (*big.Int, error) {
	switch s.coefficients {
	case CoefficientUniform:
		// [1, p)
		c, err := rand.Int(s.rand, new(big.Int).Sub(s.field.prime, big.NewInt(1)))
		if err != nil {
			return nil, err
		}
		return c.Add(c, big.NewInt(1)), nil
	default:
		return rand.Prime(s.rand, s.bitSize)
	}
}
