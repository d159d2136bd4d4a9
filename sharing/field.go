package sharing

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/cronokirby/saferith"
	"github.com/ruteri/secret-sharing-service/interfaces"
)

// Field performs arithmetic modulo a fixed prime p.
// A Field is immutable and safe for concurrent use.
type Field struct {
	prime   *big.Int
	modulus *saferith.Modulus
}

// NewField creates a prime field. The prime must be odd and at least 3;
// primality itself is checked when the modulus is loaded (see cryptoutils).
func NewField(prime *big.Int) (*Field, error) {
	if prime == nil || prime.Cmp(big.NewInt(3)) < 0 || prime.Bit(0) == 0 {
		return nil, fmt.Errorf("%w: modulus must be an odd prime", interfaces.ErrCryptoConfiguration)
	}
	p := new(big.Int).Set(prime)
	return &Field{
		prime:   p,
		modulus: saferith.ModulusFromNat(new(saferith.Nat).SetBig(p, p.BitLen())),
	}, nil
}

// Prime returns a copy of the field modulus.
func (f *Field) Prime() *big.Int {
	return new(big.Int).Set(f.prime)
}

// element reduces a non-negative integer into the field.
func (f *Field) element(x *big.Int) *saferith.Nat {
	size := x.BitLen()
	if size == 0 {
		size = 1
	}
	return new(saferith.Nat).Mod(new(saferith.Nat).SetBig(x, size), f.modulus)
}

func (f *Field) elementFromInt(x int) *saferith.Nat {
	return new(saferith.Nat).Mod(new(saferith.Nat).SetUint64(uint64(x)), f.modulus)
}

// EvaluatePolynomial computes Σ cᵢ·xⁱ mod p with Horner's rule, reducing at every step.
// coefficients[0] is the constant term.
func (f *Field) EvaluatePolynomial(coefficients []*big.Int, x int) *big.Int {
	xx := f.elementFromInt(x)
	result := new(saferith.Nat).SetUint64(0)
	result = result.Mod(result, f.modulus)

	for i := len(coefficients) - 1; i >= 0; i-- {
		result.ModMul(result, xx, f.modulus)
		result.ModAdd(result, f.element(coefficients[i]), f.modulus)
	}

	return result.Big()
}

// InterpolateAtZero recovers P(0) from the samples (xs[i], ys[i]) with Lagrange interpolation:
//
//	P(0) = Σᵢ yᵢ · Πⱼ≠ᵢ (0 - xⱼ) · (Πⱼ≠ᵢ (xᵢ - xⱼ))⁻¹  mod p
//
// The result is in [0, p). It fails with ErrNonInvertible when two xs collide modulo p.
func (f *Field) InterpolateAtZero(xs []int, ys []*big.Int) (*big.Int, error) {
	if len(xs) != len(ys) {
		return nil, errors.New("interpolation needs the same number of xs and ys")
	}

	points := make([]*saferith.Nat, len(xs))
	for i, x := range xs {
		points[i] = f.elementFromInt(x)
	}

	result := new(saferith.Nat).Mod(new(saferith.Nat).SetUint64(0), f.modulus)

	for i := range points {
		numerator := new(saferith.Nat).Mod(new(saferith.Nat).SetUint64(1), f.modulus)
		denominator := new(saferith.Nat).Mod(new(saferith.Nat).SetUint64(1), f.modulus)

		for j := range points {
			if i == j {
				continue
			}
			numerator.ModMul(numerator, new(saferith.Nat).ModNeg(points[j], f.modulus), f.modulus)
			denominator.ModMul(denominator, new(saferith.Nat).ModSub(points[i], points[j], f.modulus), f.modulus)
		}

		if denominator.EqZero() == 1 {
			return nil, fmt.Errorf("%w: repeated share index %d", interfaces.ErrNonInvertible, xs[i])
		}

		term := new(saferith.Nat).ModInverse(denominator, f.modulus)
		term.ModMul(term, numerator, f.modulus)
		term.ModMul(term, f.element(ys[i]), f.modulus)
		result.ModAdd(result, term, f.modulus)
	}

	return result.Big(), nil
}
