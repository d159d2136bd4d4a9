// Package interfaces defines the core interfaces and types for the secret sharing service.
//
// This package provides the contracts between different components of the system
// without including implementation details, so that the arithmetic core, the
// signing layer, the transport and the storage backends can be developed and
// tested in isolation.
//
// # Sharing Interfaces
//
//   - SecretSharing: splits a secret into signed shares and recovers it
//   - Signer: signs and verifies the byte representation of share values
//
// # Storage Interfaces
//
//   - StorageBackend: Represents any system that can store and retrieve content-addressed data
//   - StorageBackendFactory: Creates storage backends from URI strings
//   - ShareRepository: Persists and looks up share sets
//
// # Type Definitions
//
//   - Share: one (index, value, signature) triple
//   - ContentID: A 32-byte hash that uniquely identifies stored content
//   - ContentType: Enum indicating what kind of content (ShareType, ShareSetType)
//
// # Error Types
//
// Errors returned by the sharing core, one per failure kind:
//
//   - ErrInvalidParameter: k/n out of bounds, or blank secret
//   - ErrInvalidEncoding: secret is not representable as UTF-8 integer encoding
//   - ErrSecretTooLarge: encoded secret exceeds the modulus capacity
//   - ErrEmptyShareSet: recovery called without shares
//   - ErrIntegrityViolation: share signature mismatch (see IntegrityError)
//   - ErrSigningFailure, ErrCryptoConfiguration: unusable key material or algorithm
//   - ErrNonInvertible: interpolation over repeated indices
//
// Standard errors returned by storage operations:
//
//   - ErrContentNotFound: Content not found in the storage system
//   - ErrBackendUnavailable: Storage backend is not accessible
//   - ErrInvalidLocationURI: Storage location URI is malformed
package interfaces
