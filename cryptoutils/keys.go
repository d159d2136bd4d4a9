package cryptoutils

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ruteri/secret-sharing-service/interfaces"
	"golang.org/x/crypto/sha3"
)

// Asymmetric algorithm names accepted by GenerateKeyMaterial.
const (
	AlgorithmRSA       = "RSA"
	AlgorithmEC        = "EC"
	AlgorithmSecp256k1 = "secp256k1"
	AlgorithmEd25519   = "Ed25519"
)

type signatureScheme int

const (
	schemePKCS1v15 signatureScheme = iota
	schemePSS
	schemeECDSA
	schemeEd25519
)

// SignatureAlgorithm describes one supported signature algorithm.
type SignatureAlgorithm struct {
	// Name is the configuration name, e.g. "SHA256withRSA".
	Name string

	// KeyFamilies lists the asymmetric algorithms whose keys can produce this signature.
	KeyFamilies []string

	scheme signatureScheme
	hash   crypto.Hash
	digest func([]byte) []byte
}

func sum256(data []byte) []byte     { h := sha256.Sum256(data); return h[:] }
func sum384(data []byte) []byte     { h := sha512.Sum384(data); return h[:] }
func sum512(data []byte) []byte     { h := sha512.Sum512(data); return h[:] }
func sumSHA3256(data []byte) []byte { h := sha3.Sum256(data); return h[:] }

var ecdsaFamilies = []string{AlgorithmEC, AlgorithmSecp256k1}

var signatureAlgorithms = map[string]SignatureAlgorithm{
	"SHA256withRSA":     {Name: "SHA256withRSA", KeyFamilies: []string{AlgorithmRSA}, scheme: schemePKCS1v15, hash: crypto.SHA256, digest: sum256},
	"SHA384withRSA":     {Name: "SHA384withRSA", KeyFamilies: []string{AlgorithmRSA}, scheme: schemePKCS1v15, hash: crypto.SHA384, digest: sum384},
	"SHA512withRSA":     {Name: "SHA512withRSA", KeyFamilies: []string{AlgorithmRSA}, scheme: schemePKCS1v15, hash: crypto.SHA512, digest: sum512},
	"SHA256withRSA/PSS": {Name: "SHA256withRSA/PSS", KeyFamilies: []string{AlgorithmRSA}, scheme: schemePSS, hash: crypto.SHA256, digest: sum256},
	"SHA256withECDSA":   {Name: "SHA256withECDSA", KeyFamilies: ecdsaFamilies, scheme: schemeECDSA, hash: crypto.SHA256, digest: sum256},
	"SHA384withECDSA":   {Name: "SHA384withECDSA", KeyFamilies: ecdsaFamilies, scheme: schemeECDSA, hash: crypto.SHA384, digest: sum384},
	"SHA512withECDSA":   {Name: "SHA512withECDSA", KeyFamilies: ecdsaFamilies, scheme: schemeECDSA, hash: crypto.SHA512, digest: sum512},
	"SHA3-256withECDSA": {Name: "SHA3-256withECDSA", KeyFamilies: ecdsaFamilies, scheme: schemeECDSA, hash: crypto.SHA3_256, digest: sumSHA3256},
	"Ed25519":           {Name: "Ed25519", KeyFamilies: []string{AlgorithmEd25519}, scheme: schemeEd25519},
}

// LookupSignatureAlgorithm returns the algorithm registered under name.
func LookupSignatureAlgorithm(name string) (SignatureAlgorithm, error) {
	alg, ok := signatureAlgorithms[name]
	if !ok {
		return SignatureAlgorithm{}, fmt.Errorf("%w: unsupported signature algorithm %q", interfaces.ErrCryptoConfiguration, name)
	}
	return alg, nil
}

// SignatureAlgorithms returns the sorted names of all supported signature algorithms.
func SignatureAlgorithms() []string {
	names := make([]string, 0, len(signatureAlgorithms))
	for name := range signatureAlgorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizeAsymmetricAlgorithm maps accepted spellings to the canonical family name.
func NormalizeAsymmetricAlgorithm(name string) (string, error) {
	switch strings.ToLower(name) {
	case "rsa":
		return AlgorithmRSA, nil
	case "ec", "ecdsa":
		return AlgorithmEC, nil
	case "secp256k1":
		return AlgorithmSecp256k1, nil
	case "ed25519", "eddsa":
		return AlgorithmEd25519, nil
	default:
		return "", fmt.Errorf("%w: unsupported asymmetric algorithm %q", interfaces.ErrCryptoConfiguration, name)
	}
}

// KeyMaterial couples an asymmetric key pair with a signature algorithm.
// It implements interfaces.Signer and is read-only after construction, so it can be
// shared by concurrent split and recover operations.
//
// A KeyMaterial built from a public key only (see NewVerifier) verifies but cannot sign.
type KeyMaterial struct {
	algorithm SignatureAlgorithm
	family    string
	private   crypto.PrivateKey
	public    crypto.PublicKey
}

var _ interfaces.Signer = (*KeyMaterial)(nil)

// GenerateKeyMaterial creates a fresh key pair for the asymmetric algorithm.
//
// Parameters:
//   - asymmetricAlgorithm: "RSA", "EC", "secp256k1" or "Ed25519"
//   - signatureAlgorithm: one of SignatureAlgorithms(), compatible with the key family
//   - bits: RSA modulus length, or EC curve size (224, 256, 384, 521); ignored otherwise
func GenerateKeyMaterial(asymmetricAlgorithm, signatureAlgorithm string, bits int) (*KeyMaterial, error) {
	family, err := NormalizeAsymmetricAlgorithm(asymmetricAlgorithm)
	if err != nil {
		return nil, err
	}

	var private crypto.PrivateKey
	switch family {
	case AlgorithmRSA:
		private, err = rsa.GenerateKey(rand.Reader, bits)
	case AlgorithmEC:
		var curve elliptic.Curve
		curve, err = curveForBits(bits)
		if err == nil {
			private, err = ecdsa.GenerateKey(curve, rand.Reader)
		}
	case AlgorithmSecp256k1:
		private, err = secp256k1.GeneratePrivateKey()
	case AlgorithmEd25519:
		_, private, err = ed25519.GenerateKey(rand.Reader)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: could not generate %s key: %v", interfaces.ErrCryptoConfiguration, family, err)
	}

	return NewKeyMaterial(private, signatureAlgorithm)
}

func curveForBits(bits int) (elliptic.Curve, error) {
	switch bits {
	case 224:
		return elliptic.P224(), nil
	case 0, 256:
		return elliptic.P256(), nil
	case 384:
		return elliptic.P384(), nil
	case 521:
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("no NIST curve of %d bits", bits)
	}
}

// NewKeyMaterial wraps an existing private key. The key type must belong to one of the
// signature algorithm's key families.
func NewKeyMaterial(private crypto.PrivateKey, signatureAlgorithm string) (*KeyMaterial, error) {
	alg, err := LookupSignatureAlgorithm(signatureAlgorithm)
	if err != nil {
		return nil, err
	}

	var family string
	var public crypto.PublicKey
	switch key := private.(type) {
	case *rsa.PrivateKey:
		family, public = AlgorithmRSA, &key.PublicKey
	case *ecdsa.PrivateKey:
		family, public = AlgorithmEC, &key.PublicKey
	case *secp256k1.PrivateKey:
		family, public = AlgorithmSecp256k1, key.PubKey()
	case ed25519.PrivateKey:
		family, public = AlgorithmEd25519, key.Public()
	default:
		return nil, fmt.Errorf("%w: unsupported private key type %T", interfaces.ErrCryptoConfiguration, private)
	}

	if err := checkFamily(alg, family); err != nil {
		return nil, err
	}

	return &KeyMaterial{algorithm: alg, family: family, private: private, public: public}, nil
}

// NewVerifier wraps a public key for verification only.
func NewVerifier(public crypto.PublicKey, signatureAlgorithm string) (*KeyMaterial, error) {
	alg, err := LookupSignatureAlgorithm(signatureAlgorithm)
	if err != nil {
		return nil, err
	}

	var family string
	switch public.(type) {
	case *rsa.PublicKey:
		family = AlgorithmRSA
	case *ecdsa.PublicKey:
		family = AlgorithmEC
	case *secp256k1.PublicKey:
		family = AlgorithmSecp256k1
	case ed25519.PublicKey:
		family = AlgorithmEd25519
	default:
		return nil, fmt.Errorf("%w: unsupported public key type %T", interfaces.ErrCryptoConfiguration, public)
	}

	if err := checkFamily(alg, family); err != nil {
		return nil, err
	}

	return &KeyMaterial{algorithm: alg, family: family, public: public}, nil
}

func checkFamily(alg SignatureAlgorithm, family string) error {
	for _, f := range alg.KeyFamilies {
		if f == family {
			return nil
		}
	}
	return fmt.Errorf("%w: %s keys cannot produce %s signatures", interfaces.ErrCryptoConfiguration, family, alg.Name)
}

// Algorithm returns the signature algorithm name.
func (km *KeyMaterial) Algorithm() string {
	return km.algorithm.Name
}

// KeyFamily returns the canonical asymmetric algorithm name of the key.
func (km *KeyMaterial) KeyFamily() string {
	return km.family
}

// PublicKey returns the public half of the key pair.
func (km *KeyMaterial) PublicKey() crypto.PublicKey {
	return km.public
}

// PrivateKey returns the private key, or nil for a verify-only KeyMaterial.
func (km *KeyMaterial) PrivateKey() crypto.PrivateKey {
	return km.private
}

// Sign signs data with the private key.
func (km *KeyMaterial) Sign(data []byte) ([]byte, error) {
	if km.private == nil {
		return nil, fmt.Errorf("%w: no private key available", interfaces.ErrSigningFailure)
	}

	var signature []byte
	var err error

	switch km.algorithm.scheme {
	case schemePKCS1v15:
		signature, err = rsa.SignPKCS1v15(rand.Reader, km.private.(*rsa.PrivateKey), km.algorithm.hash, km.algorithm.digest(data))
	case schemePSS:
		signature, err = rsa.SignPSS(rand.Reader, km.private.(*rsa.PrivateKey), km.algorithm.hash, km.algorithm.digest(data), pssOptions)
	case schemeECDSA:
		digest := km.algorithm.digest(data)
		switch key := km.private.(type) {
		case *ecdsa.PrivateKey:
			signature, err = ecdsa.SignASN1(rand.Reader, key, digest)
		case *secp256k1.PrivateKey:
			signature = secpecdsa.Sign(key, digest).Serialize()
		}
	case schemeEd25519:
		signature = ed25519.Sign(km.private.(ed25519.PrivateKey), data)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrSigningFailure, err)
	}
	if signature == nil {
		return nil, fmt.Errorf("%w: %s cannot sign with %s", interfaces.ErrSigningFailure, km.family, km.algorithm.Name)
	}
	return signature, nil
}

var pssOptions = &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash}

// Verify checks signature over data with the public key. A mismatching or malformed
// signature yields (false, nil).
func (km *KeyMaterial) Verify(data, signature []byte) (bool, error) {
	switch km.algorithm.scheme {
	case schemePKCS1v15:
		return rsa.VerifyPKCS1v15(km.public.(*rsa.PublicKey), km.algorithm.hash, km.algorithm.digest(data), signature) == nil, nil
	case schemePSS:
		return rsa.VerifyPSS(km.public.(*rsa.PublicKey), km.algorithm.hash, km.algorithm.digest(data), signature, pssOptions) == nil, nil
	case schemeECDSA:
		digest := km.algorithm.digest(data)
		switch key := km.public.(type) {
		case *ecdsa.PublicKey:
			return ecdsa.VerifyASN1(key, digest, signature), nil
		case *secp256k1.PublicKey:
			sig, err := secpecdsa.ParseDERSignature(signature)
			if err != nil {
				return false, nil
			}
			return sig.Verify(digest, key), nil
		}
	case schemeEd25519:
		return ed25519.Verify(km.public.(ed25519.PublicKey), data, signature), nil
	}
	return false, errors.Join(interfaces.ErrCryptoConfiguration, fmt.Errorf("%s cannot verify %s", km.family, km.algorithm.Name))
}
