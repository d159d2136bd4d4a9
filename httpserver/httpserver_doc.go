/*
Package httpserver implements the HTTP API of the secret sharing service.

Split and recover are CPU-bound (prime generation, signing, verification), so the
handler bounds how many run at once with a weighted semaphore and gives up when the
client goes away while waiting for a slot.

# Endpoints

  - GET /api/v1/splitSecret?k=&n=&secret= - Split a secret into signed shares
  - POST /api/v1/splitSecret - Same, with {"k","n","secret"} as JSON body
  - POST /api/v1/recoverSecret - Recover a secret from a JSON array of shares (text/plain response)
  - GET /api/v1/publicKey - PEM public key, algorithm in X-Signature-Algorithm
  - POST /api/v1/shares - Persist a share set, returns {"id"}
  - GET /api/v1/shares/{id} - Fetch a persisted share set
  - GET /api/v1/shares/{id}/{index} - Fetch one share of a persisted set
  - GET /livez - Liveness check
  - GET /readyz - Readiness check
  - GET /drain - Gracefully mark server as not ready
  - GET /undrain - Mark server as ready

# Errors

Failures are returned as {"error": "...", "index": n} where index is only present
for integrity violations. Status codes:

  - 400: invalid parameters, encoding, size, empty share set, repeated indices
  - 404: unknown share set
  - 422: a share failed signature verification
  - 500: signing or key configuration failure
  - 501: share storage not configured
  - 503: storage backend unavailable, or request abandoned while queued
*/
package httpserver
