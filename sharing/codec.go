package sharing

import "math/big"

// EncodeSecret interprets the UTF-8 bytes of text as a non-negative big-endian integer.
func EncodeSecret(text string) *big.Int {
	return new(big.Int).SetBytes([]byte(text))
}

// DecodeSecret is the inverse of EncodeSecret: the minimal big-endian bytes of v as text.
// Arbitrary integers need not decode to valid UTF-8.
func DecodeSecret(v *big.Int) string {
	return string(v.Bytes())
}

// ValueBytes returns the sign-magnitude encoding of a non-negative integer: its minimal
// big-endian bytes, prefixed with 0x00 when the top bit of the first byte is set.
// Zero encodes as a single 0x00 byte. These are the bytes covered by share signatures.
func ValueBytes(v *big.Int) []byte {
	b := v.Bytes()
	if len(b) == 0 || b[0]&0x80 != 0 {
		return append([]byte{0}, b...)
	}
	return b
}
