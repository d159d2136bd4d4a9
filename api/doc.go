/*
Package api defines the wire types of the secret sharing HTTP API and the
configuration of the server that serves it.

# Endpoints

	GET  /api/v1/splitSecret?k=&n=&secret=   split, shares as JSON
	POST /api/v1/splitSecret                 split, SplitRequest body
	POST /api/v1/recoverSecret               recover, secret as text/plain
	GET  /api/v1/publicKey                   PEM verification key
	POST /api/v1/shares                      persist a share set
	GET  /api/v1/shares/{id}                 fetch a share set
	GET  /api/v1/shares/{id}/{index}         fetch one share

# Shares on the wire

A share is encoded as

	{"index": 1, "value": "1234567890", "signature": "base64..."}

Values are decimal strings so no JSON decoder loses precision. Incoming shares may
also carry the value as a bare JSON number, or under the older "share" key.

Failures return ErrorResponse. An integrity violation (422) names the share index
whose signature did not verify.

The clients subpackage wraps these endpoints.
*/
package api
