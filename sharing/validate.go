package sharing

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ruteri/secret-sharing-service/interfaces"
)

// Validator enforces split parameters and secret size before any randomness is consumed.
type Validator struct {
	// MaxShares bounds n.
	MaxShares int
	// MaxByteSize is (bitSize - 1) / 8; one byte of it is reserved for the sign.
	MaxByteSize int
}

// Validate checks, in order: 1 ≤ k ≤ n ≤ MaxShares, a non-blank secret, valid UTF-8
// and finally the size of the trimmed and of the encoded secret.
func (v Validator) Validate(k, n int, secret string) error {
	if k <= 0 || n <= 0 || k > n || n > v.MaxShares {
		return fmt.Errorf("%w: k=%d n=%d (max shares %d)", interfaces.ErrInvalidParameter, k, n, v.MaxShares)
	}

	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return fmt.Errorf("%w: secret is blank", interfaces.ErrInvalidParameter)
	}

	if !utf8.ValidString(secret) {
		return interfaces.ErrInvalidEncoding
	}

	// A leading NUL would vanish in the integer encoding.
	if secret[0] == 0 {
		return fmt.Errorf("%w: leading NUL character", interfaces.ErrInvalidEncoding)
	}

	// +1 byte for the sign. Surrounding whitespace does not count toward the limit.
	if len(trimmed)+1 > v.MaxByteSize {
		return fmt.Errorf("%w: %d bytes, at most %d allowed", interfaces.ErrSecretTooLarge, len(trimmed), v.MaxByteSize-1)
	}

	// The untrimmed secret is what gets encoded; MaxByteSize bytes stay below 2^(bitSize-1).
	if len(secret) > v.MaxByteSize {
		return fmt.Errorf("%w: %d bytes with surrounding whitespace, at most %d allowed", interfaces.ErrSecretTooLarge, len(secret), v.MaxByteSize)
	}

	return nil
}
