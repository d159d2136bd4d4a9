// Package config loads the service configuration and builds the long-lived
// sharing instance and key material from it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"runtime"

	"github.com/ruteri/secret-sharing-service/cryptoutils"
	"github.com/ruteri/secret-sharing-service/interfaces"
	"github.com/ruteri/secret-sharing-service/sharing"
	"gopkg.in/yaml.v3"
)

const (
	DefaultKeyPairBitSize      = 2048
	DefaultSignatureAlgorithm  = "SHA256withRSA"
	DefaultAsymmetricAlgorithm = "RSA"
)

// Config is the service configuration. Zero values are replaced by defaults on Load.
type Config struct {
	BitSize             int    `yaml:"bit_size"`
	KeyPairBitSize      int    `yaml:"key_pair_bit_size"`
	SignatureAlgorithm  string `yaml:"signature_algorithm"`
	AsymmetricAlgorithm string `yaml:"asymmetric_algorithm"`
	MaxShares           int    `yaml:"max_shares"`
	CoefficientMode     string `yaml:"coefficient_mode"`

	// ModulusFile holds the decimal field prime. Generated on start when empty.
	ModulusFile string `yaml:"modulus_file"`
	// PrivateKeyFile holds a PEM signing key. Generated on start when empty.
	PrivateKeyFile       string `yaml:"private_key_file"`
	PrivateKeyPassphrase string `yaml:"private_key_passphrase"`

	// Storage lists backend URIs for persisted share sets. Empty disables persistence.
	Storage []string `yaml:"storage"`

	MaxConcurrentOperations int `yaml:"max_concurrent_operations"`
}

// Default returns the configuration of a service started without a config file.
func Default() *Config {
	return &Config{
		BitSize:                 sharing.DefaultBitSize,
		KeyPairBitSize:          DefaultKeyPairBitSize,
		SignatureAlgorithm:      DefaultSignatureAlgorithm,
		AsymmetricAlgorithm:     DefaultAsymmetricAlgorithm,
		MaxShares:               sharing.DefaultMaxShares,
		CoefficientMode:         string(sharing.CoefficientPrime),
		MaxConcurrentOperations: runtime.NumCPU(),
	}
}

// Load decodes YAML on top of Default. Unknown keys are rejected.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// LoadFile reads the configuration from path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Load(bytes.NewReader(data))
}

// Validate checks every setting without generating or loading key material.
func (c *Config) Validate() error {
	if c.BitSize < sharing.MinBitSize || c.BitSize > sharing.MaxBitSize {
		return fmt.Errorf("%w: bit size value must be between %d and %d", interfaces.ErrCryptoConfiguration, sharing.MinBitSize, sharing.MaxBitSize)
	}

	if c.MaxShares <= 0 {
		return fmt.Errorf("%w: max shares must be positive", interfaces.ErrCryptoConfiguration)
	}

	if _, err := sharing.ParseCoefficientMode(c.CoefficientMode); err != nil {
		return err
	}

	family, err := cryptoutils.NormalizeAsymmetricAlgorithm(c.AsymmetricAlgorithm)
	if err != nil {
		return err
	}

	alg, err := cryptoutils.LookupSignatureAlgorithm(c.SignatureAlgorithm)
	if err != nil {
		return err
	}

	compatible := false
	for _, f := range alg.KeyFamilies {
		compatible = compatible || f == family
	}
	if !compatible {
		return fmt.Errorf("%w: %s keys cannot produce %s signatures", interfaces.ErrCryptoConfiguration, family, alg.Name)
	}

	if c.MaxConcurrentOperations <= 0 {
		return errors.New("max concurrent operations must be positive")
	}

	if _, err := c.StorageLocations(); err != nil {
		return err
	}

	return nil
}

// StorageLocations parses the configured storage URIs.
func (c *Config) StorageLocations() ([]interfaces.StorageBackendLocation, error) {
	locations := make([]interfaces.StorageBackendLocation, 0, len(c.Storage))
	for _, uri := range c.Storage {
		location, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}
	return locations, nil
}

// LoadModulus reads ModulusFile, or generates a fresh prime when it is not set.
func (c *Config) LoadModulus() (*big.Int, error) {
	if c.ModulusFile == "" {
		return cryptoutils.GenerateModulus(nil, c.BitSize)
	}

	data, err := os.ReadFile(c.ModulusFile)
	if err != nil {
		return nil, fmt.Errorf("%w: could not read modulus file: %v", interfaces.ErrCryptoConfiguration, err)
	}
	return cryptoutils.ParseModulus(data, c.BitSize)
}

// LoadKeyMaterial reads PrivateKeyFile, or generates a key pair when it is not set.
func (c *Config) LoadKeyMaterial() (*cryptoutils.KeyMaterial, error) {
	if c.PrivateKeyFile == "" {
		return cryptoutils.GenerateKeyMaterial(c.AsymmetricAlgorithm, c.SignatureAlgorithm, c.KeyPairBitSize)
	}

	data, err := os.ReadFile(c.PrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: could not read private key file: %v", interfaces.ErrCryptoConfiguration, err)
	}

	km, err := cryptoutils.LoadKeyMaterial(data, []byte(c.PrivateKeyPassphrase), c.SignatureAlgorithm)
	if err != nil {
		return nil, err
	}

	family, err := cryptoutils.NormalizeAsymmetricAlgorithm(c.AsymmetricAlgorithm)
	if err != nil {
		return nil, err
	}
	if km.KeyFamily() != family {
		return nil, fmt.Errorf("%w: private key file holds a %s key, configured %s", interfaces.ErrCryptoConfiguration, km.KeyFamily(), family)
	}

	return km, nil
}

// Build validates the configuration and produces the modulus and key material once.
// The returned instance is shared by every request for the lifetime of the process.
func (c *Config) Build() (*sharing.SecretSharing, *cryptoutils.KeyMaterial, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	prime, err := c.LoadModulus()
	if err != nil {
		return nil, nil, err
	}

	km, err := c.LoadKeyMaterial()
	if err != nil {
		return nil, nil, err
	}

	s, err := sharing.New(sharing.Params{
		Prime:        prime,
		BitSize:      c.BitSize,
		MaxShares:    c.MaxShares,
		Coefficients: sharing.CoefficientMode(c.CoefficientMode),
	}, km)
	if err != nil {
		return nil, nil, err
	}

	return s, km, nil
}
