package cryptoutils

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/ruteri/secret-sharing-service/interfaces"
)

// primalityRounds is the number of Miller-Rabin rounds applied to loaded moduli.
const primalityRounds = 20

// GenerateModulus draws a random probable prime of exactly bits bits.
func GenerateModulus(random io.Reader, bits int) (*big.Int, error) {
	if random == nil {
		random = rand.Reader
	}
	p, err := rand.Prime(random, bits)
	if err != nil {
		return nil, fmt.Errorf("%w: could not generate %d-bit modulus: %v", interfaces.ErrCryptoConfiguration, bits, err)
	}
	return p, nil
}

// ParseModulus reads a decimal prime, as written by MarshalModulus, and checks that it
// is a probable prime of the expected bit length.
func ParseModulus(data []byte, bits int) (*big.Int, error) {
	p, ok := new(big.Int).SetString(string(bytes.TrimSpace(data)), 10)
	if !ok {
		return nil, fmt.Errorf("%w: modulus is not a decimal integer", interfaces.ErrCryptoConfiguration)
	}
	if p.BitLen() != bits {
		return nil, fmt.Errorf("%w: modulus has %d bits, expected %d", interfaces.ErrCryptoConfiguration, p.BitLen(), bits)
	}
	if !p.ProbablyPrime(primalityRounds) {
		return nil, fmt.Errorf("%w: modulus is not prime", interfaces.ErrCryptoConfiguration)
	}
	return p, nil
}

// MarshalModulus writes p in decimal followed by a newline.
func MarshalModulus(p *big.Int) []byte {
	return []byte(p.String() + "\n")
}
