package cryptoutils

import (
	"math/big"
	"testing"

	"github.com/ruteri/secret-sharing-service/interfaces"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyAllAlgorithms(t *testing.T) {
	testCases := []struct {
		name      string
		asym      string
		signature string
		bits      int
	}{
		{"RSA PKCS1v15 SHA256", "RSA", "SHA256withRSA", 1024},
		{"RSA PKCS1v15 SHA384", "RSA", "SHA384withRSA", 1024},
		{"RSA PKCS1v15 SHA512", "RSA", "SHA512withRSA", 1024},
		{"RSA PSS", "RSA", "SHA256withRSA/PSS", 1024},
		{"ECDSA P-256", "EC", "SHA256withECDSA", 256},
		{"ECDSA P-384", "EC", "SHA384withECDSA", 384},
		{"ECDSA P-521", "EC", "SHA512withECDSA", 521},
		{"ECDSA SHA3", "EC", "SHA3-256withECDSA", 256},
		{"secp256k1", "secp256k1", "SHA256withECDSA", 0},
		{"secp256k1 SHA3", "secp256k1", "SHA3-256withECDSA", 0},
		{"Ed25519", "Ed25519", "Ed25519", 0},
	}

	data := []byte("share value bytes")

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			km, err := GenerateKeyMaterial(tc.asym, tc.signature, tc.bits)
			require.NoError(t, err)
			require.Equal(t, tc.signature, km.Algorithm())

			sig, err := km.Sign(data)
			require.NoError(t, err)

			ok, err := km.Verify(data, sig)
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = km.Verify([]byte("other bytes"), sig)
			require.NoError(t, err)
			require.False(t, ok)

			tampered := append([]byte{}, sig...)
			tampered[0] ^= 0xff
			ok, err = km.Verify(data, tampered)
			require.NoError(t, err)
			require.False(t, ok)

			ok, err = km.Verify(data, nil)
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestMismatchedAlgorithms(t *testing.T) {
	_, err := GenerateKeyMaterial("EC", "SHA256withRSA", 256)
	require.ErrorIs(t, err, interfaces.ErrCryptoConfiguration)

	_, err = GenerateKeyMaterial("Ed25519", "SHA256withECDSA", 0)
	require.ErrorIs(t, err, interfaces.ErrCryptoConfiguration)

	_, err = GenerateKeyMaterial("RSA", "MD5withRSA", 1024)
	require.ErrorIs(t, err, interfaces.ErrCryptoConfiguration)

	_, err = GenerateKeyMaterial("DSA", "SHA256withRSA", 1024)
	require.ErrorIs(t, err, interfaces.ErrCryptoConfiguration)

	_, err = GenerateKeyMaterial("EC", "SHA256withECDSA", 255)
	require.ErrorIs(t, err, interfaces.ErrCryptoConfiguration)
}

func TestNormalizeAsymmetricAlgorithm(t *testing.T) {
	for in, want := range map[string]string{
		"rsa":       AlgorithmRSA,
		"ECDSA":     AlgorithmEC,
		"Secp256k1": AlgorithmSecp256k1,
		"EdDSA":     AlgorithmEd25519,
	} {
		got, err := NormalizeAsymmetricAlgorithm(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestSignatureAlgorithmsSorted(t *testing.T) {
	names := SignatureAlgorithms()
	require.Len(t, names, 9)
	require.IsIncreasing(t, names)
}

func TestVerifierCannotSign(t *testing.T) {
	km, err := GenerateKeyMaterial("Ed25519", "Ed25519", 0)
	require.NoError(t, err)

	verifier, err := NewVerifier(km.PublicKey(), "Ed25519")
	require.NoError(t, err)

	sig, err := km.Sign([]byte("x"))
	require.NoError(t, err)

	ok, err := verifier.Verify([]byte("x"), sig)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = verifier.Sign([]byte("x"))
	require.ErrorIs(t, err, interfaces.ErrSigningFailure)
}

func TestPEMRoundTrip(t *testing.T) {
	testCases := []struct {
		name       string
		asym       string
		signature  string
		bits       int
		passphrase []byte
	}{
		{"RSA plain", "RSA", "SHA256withRSA", 1024, nil},
		{"RSA encrypted", "RSA", "SHA256withRSA", 1024, []byte("hunter2")},
		{"EC encrypted", "EC", "SHA256withECDSA", 256, []byte("hunter2")},
		{"Ed25519 plain", "Ed25519", "Ed25519", 0, nil},
		{"secp256k1 plain", "secp256k1", "SHA256withECDSA", 0, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			km, err := GenerateKeyMaterial(tc.asym, tc.signature, tc.bits)
			require.NoError(t, err)

			privPEM, err := MarshalPrivateKeyPEM(km.PrivateKey(), tc.passphrase)
			require.NoError(t, err)

			loaded, err := LoadKeyMaterial(privPEM, tc.passphrase, tc.signature)
			require.NoError(t, err)

			pubPEM, err := km.PublicKeyPEM()
			require.NoError(t, err)
			verifier, err := LoadVerifier(pubPEM, tc.signature)
			require.NoError(t, err)

			sig, err := loaded.Sign([]byte("payload"))
			require.NoError(t, err)

			ok, err := verifier.Verify([]byte("payload"), sig)
			require.NoError(t, err)
			require.True(t, ok)
		})
	}
}

func TestEncryptedKeyRequiresPassphrase(t *testing.T) {
	km, err := GenerateKeyMaterial("EC", "SHA256withECDSA", 256)
	require.NoError(t, err)

	privPEM, err := MarshalPrivateKeyPEM(km.PrivateKey(), []byte("correct"))
	require.NoError(t, err)

	_, err = ParsePrivateKeyPEM(privPEM, nil)
	require.ErrorIs(t, err, ErrPassphraseMissing)

	_, err = LoadKeyMaterial(privPEM, []byte("wrong"), "SHA256withECDSA")
	require.ErrorIs(t, err, interfaces.ErrCryptoConfiguration)
}

func TestParseGarbage(t *testing.T) {
	_, err := ParsePrivateKeyPEM([]byte("not a pem"), nil)
	require.ErrorIs(t, err, ErrNoPEMBlock)

	_, err = ParsePublicKeyPEM([]byte("not a pem"))
	require.ErrorIs(t, err, ErrNoPEMBlock)
}

func TestModulus(t *testing.T) {
	p, err := GenerateModulus(nil, 512)
	require.NoError(t, err)
	require.Equal(t, 512, p.BitLen())

	parsed, err := ParseModulus(MarshalModulus(p), 512)
	require.NoError(t, err)
	require.Equal(t, 0, p.Cmp(parsed))

	_, err = ParseModulus(MarshalModulus(p), 1024)
	require.ErrorIs(t, err, interfaces.ErrCryptoConfiguration)

	composite := new(big.Int).Mul(p, big.NewInt(3))
	_, err = ParseModulus(MarshalModulus(composite), composite.BitLen())
	require.ErrorIs(t, err, interfaces.ErrCryptoConfiguration)

	_, err = ParseModulus([]byte("0xdeadbeef"), 32)
	require.ErrorIs(t, err, interfaces.ErrCryptoConfiguration)
}
