package cryptoutils

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ruteri/secret-sharing-service/interfaces"
	"github.com/youmark/pkcs8"
)

// PEM block types.
const (
	pemPrivateKey          = "PRIVATE KEY"
	pemEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
	pemRSAPrivateKey       = "RSA PRIVATE KEY"
	pemECPrivateKey        = "EC PRIVATE KEY"
	pemSecp256k1PrivateKey = "SECP256K1 PRIVATE KEY"
	pemPublicKey           = "PUBLIC KEY"
	pemSecp256k1PublicKey  = "SECP256K1 PUBLIC KEY"
)

var (
	ErrNoPEMBlock        = errors.New("failed to decode PEM block")
	ErrPassphraseMissing = errors.New("private key is encrypted but no passphrase was given")
)

// LoadKeyMaterial parses a PEM private key and binds it to signatureAlgorithm.
func LoadKeyMaterial(pemData []byte, passphrase []byte, signatureAlgorithm string) (*KeyMaterial, error) {
	private, err := ParsePrivateKeyPEM(pemData, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrCryptoConfiguration, err)
	}
	return NewKeyMaterial(private, signatureAlgorithm)
}

// LoadVerifier parses a PEM public key and binds it to signatureAlgorithm.
func LoadVerifier(pemData []byte, signatureAlgorithm string) (*KeyMaterial, error) {
	public, err := ParsePublicKeyPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrCryptoConfiguration, err)
	}
	return NewVerifier(public, signatureAlgorithm)
}

// ParsePrivateKeyPEM decodes PKCS#8 (optionally encrypted), PKCS#1, SEC 1
// and raw secp256k1 private keys.
func ParsePrivateKeyPEM(pemData []byte, passphrase []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, ErrNoPEMBlock
	}

	switch block.Type {
	case pemEncryptedPrivateKey:
		if len(passphrase) == 0 {
			return nil, ErrPassphraseMissing
		}
		key, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt private key: %w", err)
		}
		return key, nil
	case pemPrivateKey:
		return x509.ParsePKCS8PrivateKey(block.Bytes)
	case pemRSAPrivateKey:
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case pemECPrivateKey:
		return x509.ParseECPrivateKey(block.Bytes)
	case pemSecp256k1PrivateKey:
		if len(block.Bytes) != secp256k1.PrivKeyBytesLen {
			return nil, fmt.Errorf("secp256k1 private key must be %d bytes", secp256k1.PrivKeyBytesLen)
		}
		return secp256k1.PrivKeyFromBytes(block.Bytes), nil
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
}

// MarshalPrivateKeyPEM encodes a private key as PKCS#8, encrypted when passphrase is
// non-empty. secp256k1 keys have no PKCS#8 form and are written unencrypted as raw scalars.
func MarshalPrivateKeyPEM(private crypto.PrivateKey, passphrase []byte) ([]byte, error) {
	if key, ok := private.(*secp256k1.PrivateKey); ok {
		if len(passphrase) > 0 {
			return nil, errors.New("encrypted secp256k1 keys are not supported")
		}
		return pem.EncodeToMemory(&pem.Block{Type: pemSecp256k1PrivateKey, Bytes: key.Serialize()}), nil
	}

	if len(passphrase) == 0 {
		der, err := x509.MarshalPKCS8PrivateKey(private)
		if err != nil {
			return nil, err
		}
		return pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: der}), nil
	}

	der, err := pkcs8.MarshalPrivateKey(private, passphrase, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PKCS#8: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemEncryptedPrivateKey, Bytes: der}), nil
}

// MarshalPublicKeyPEM encodes a public key as PKIX, or as a compressed point for secp256k1.
func MarshalPublicKeyPEM(public crypto.PublicKey) ([]byte, error) {
	switch key := public.(type) {
	case *secp256k1.PublicKey:
		return pem.EncodeToMemory(&pem.Block{Type: pemSecp256k1PublicKey, Bytes: key.SerializeCompressed()}), nil
	case *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey:
		der, err := x509.MarshalPKIXPublicKey(key)
		if err != nil {
			return nil, err
		}
		return pem.EncodeToMemory(&pem.Block{Type: pemPublicKey, Bytes: der}), nil
	default:
		return nil, fmt.Errorf("unsupported public key type %T", public)
	}
}

// ParsePublicKeyPEM is the inverse of MarshalPublicKeyPEM.
func ParsePublicKeyPEM(pemData []byte) (crypto.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, ErrNoPEMBlock
	}

	switch block.Type {
	case pemPublicKey:
		return x509.ParsePKIXPublicKey(block.Bytes)
	case pemSecp256k1PublicKey:
		return secp256k1.ParsePubKey(block.Bytes)
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
}

// PublicKeyPEM returns the PEM encoding of the key material's public key.
func (km *KeyMaterial) PublicKeyPEM() ([]byte, error) {
	return MarshalPublicKeyPEM(km.public)
}
