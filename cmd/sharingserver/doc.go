// Package main (cmd/sharingserver) runs the secret sharing HTTP API.
//
// The field prime and signing key are produced once at start-up: loaded from
// --modulus-file and --private-key-file when given, generated otherwise. Shares
// split by a server with a generated key can only be recovered by that same
// process, so long-lived deployments run keygen once and point serve at its output:
//
//	sharingserver keygen --out-dir /etc/sharing --bit-size 2048
//	sharingserver serve \
//	    --modulus-file /etc/sharing/modulus.txt \
//	    --private-key-file /etc/sharing/signing-key.pem \
//	    --storage file:///var/lib/sharing
//
// Every sharing flag can also be set with a SHARING_* environment variable or in a
// YAML file passed with --config. The server drains on /drain and shuts down
// gracefully on SIGINT or SIGTERM.
package main
