// Package cryptoutils holds the signing key material and field modulus handling used
// by the secret sharing service.
//
// # Signature algorithms
//
// KeyMaterial couples a key pair with one named signature algorithm and implements
// interfaces.Signer. The supported names are:
//
//	SHA256withRSA, SHA384withRSA, SHA512withRSA   RSA PKCS#1 v1.5
//	SHA256withRSA/PSS                             RSA PSS, salt length equal to the hash
//	SHA256withECDSA, SHA384withECDSA,
//	SHA512withECDSA, SHA3-256withECDSA            ECDSA (NIST curves or secp256k1), ASN.1 DER signatures
//	Ed25519                                       pure Ed25519
//
// Pairing a key with an algorithm of a different family fails with
// interfaces.ErrCryptoConfiguration.
//
// # Key files
//
// Private keys are read from PEM: PKCS#8 (plain or "ENCRYPTED PRIVATE KEY"), PKCS#1,
// SEC 1 and "SECP256K1 PRIVATE KEY" raw scalars. Public keys are published as PKIX
// "PUBLIC KEY" blocks, or "SECP256K1 PUBLIC KEY" compressed points.
//
// # Modulus files
//
// The field modulus is stored as a decimal integer. ParseModulus checks bit length and
// primality before the value is used.
//
// # Usage Example
//
//	km, err := cryptoutils.GenerateKeyMaterial("RSA", "SHA256withRSA", 2048)
//	if err != nil {
//	    log.Fatalf("Failed to generate key: %v", err)
//	}
//	sig, _ := km.Sign(data)
//	ok, _ := km.Verify(data, sig)
package cryptoutils
