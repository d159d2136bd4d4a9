// Package storage persists share sets on content-addressed backends.
//
// Every stored object is identified by the SHA-256 hash of its bytes. Objects
// live in one namespace per content type: individual shares and the share set
// manifests that link them.
//
// # Backends
//
// Backends are selected by URI:
//
//	file:///var/lib/secret-sharing/
//	s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=eu-west-1&endpoint=http://minio:9000&path_style=true
//	vault://[:TOKEN@]vault.internal:8200/kv/shares?tls=false
//
// S3 objects are written private and encrypted at rest. The Vault backend uses a
// KV version 2 engine and reads VAULT_TOKEN when the URI carries no token.
//
// Several URIs are combined with StorageBackendFactory.CreateMultiBackend. The
// multi backend writes to every reachable backend and reads from the first one
// holding the content.
//
// # Share sets
//
// ShareStore encodes shares and manifests as deterministic CBOR, so saving the
// same set twice yields the same set ID:
//
//	factory := storage.NewStorageBackendFactory(logger)
//	backend, err := factory.CreateMultiBackend(locations)
//	if err != nil {
//	    return err
//	}
//	store, err := storage.NewShareStore(backend, logger)
//	if err != nil {
//	    return err
//	}
//	setID, err := store.SaveShares(ctx, shares)
package storage
