package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/secret-sharing-service/api"
	"github.com/ruteri/secret-sharing-service/interfaces"
	"github.com/ruteri/secret-sharing-service/metrics"
	"golang.org/x/sync/semaphore"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// PublicKeyProvider exposes the verification half of the signing key.
type PublicKeyProvider interface {
	PublicKeyPEM() ([]byte, error)
	Algorithm() string
}

// Handler serves the secret sharing API. Split and recover run on the calling
// goroutine after acquiring a slot of a weighted semaphore, so at most
// maxConcurrent CPU-bound operations run at once.
type Handler struct {
	sharing    interfaces.SecretSharing
	publicKey  PublicKeyProvider
	repository interfaces.ShareRepository
	sem        *semaphore.Weighted
	log        *slog.Logger
}

// NewHandler creates a new HTTP request handler.
//
// Parameters:
//   - sharing: the split/recover implementation
//   - publicKey: source of the published verification key
//   - repository: share persistence, or nil to disable the /shares routes
//   - maxConcurrent: bound on concurrent split/recover operations (values < 1 mean 1)
//   - log: structured logger
func NewHandler(sharing interfaces.SecretSharing, publicKey PublicKeyProvider, repository interfaces.ShareRepository, maxConcurrent int64, log *slog.Logger) *Handler {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Handler{
		sharing:    sharing,
		publicKey:  publicKey,
		repository: repository,
		sem:        semaphore.NewWeighted(maxConcurrent),
		log:        log,
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.StatusCode
	case errors.Is(err, interfaces.ErrInvalidParameter),
		errors.Is(err, interfaces.ErrInvalidEncoding),
		errors.Is(err, interfaces.ErrSecretTooLarge),
		errors.Is(err, interfaces.ErrEmptyShareSet),
		errors.Is(err, interfaces.ErrNonInvertible):
		return http.StatusBadRequest
	case errors.Is(err, interfaces.ErrIntegrityViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, interfaces.ErrContentNotFound):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrBackendUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	response := api.ErrorResponse{Error: err.Error()}

	var integrityErr *interfaces.IntegrityError
	if errors.As(err, &integrityErr) {
		index := integrityErr.Index
		response.Index = &index
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "err", err, "status", status)
	} else {
		h.log.Debug("Request rejected", "err", err, "status", status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) acquire(ctx context.Context) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return &RequestError{StatusCode: http.StatusServiceUnavailable, Err: fmt.Errorf("request abandoned while waiting: %w", err)}
	}
	return nil
}

// HandleSplit splits a secret into signed shares.
//
// URL format:
//   - GET /api/v1/splitSecret?k=2&n=4&secret=...
//   - POST /api/v1/splitSecret with api.SplitRequest as JSON
//
// Response: JSON array of api.ShareDTO ordered by index.
func (h *Handler) HandleSplit(w http.ResponseWriter, r *http.Request) {
	req, err := parseSplitRequest(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	shares, err := h.splitSecret(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, api.NewShareDTOs(shares))
}

func parseSplitRequest(w http.ResponseWriter, r *http.Request) (api.SplitRequest, error) {
	if r.Method == http.MethodPost {
		var body struct {
			K      int             `json:"k"`
			N      int             `json:"n"`
			Secret json.RawMessage `json:"secret"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&body); err != nil {
			return api.SplitRequest{}, fmt.Errorf("%w: malformed split request: %v", interfaces.ErrInvalidParameter, err)
		}

		req := api.SplitRequest{K: body.K, N: body.N}
		if len(body.Secret) > 0 {
			// encoding/json substitutes U+FFFD for invalid text instead of failing.
			if err := checkJSONText(body.Secret); err != nil {
				return api.SplitRequest{}, err
			}
			if err := json.Unmarshal(body.Secret, &req.Secret); err != nil {
				return api.SplitRequest{}, fmt.Errorf("%w: secret must be a string: %v", interfaces.ErrInvalidParameter, err)
			}
		}
		return req, nil
	}

	query := r.URL.Query()
	k, err := strconv.Atoi(query.Get("k"))
	if err != nil {
		return api.SplitRequest{}, fmt.Errorf("%w: k must be an integer", interfaces.ErrInvalidParameter)
	}
	n, err := strconv.Atoi(query.Get("n"))
	if err != nil {
		return api.SplitRequest{}, fmt.Errorf("%w: n must be an integer", interfaces.ErrInvalidParameter)
	}

	return api.SplitRequest{K: k, N: n, Secret: query.Get("secret")}, nil
}

// checkJSONText rejects a raw JSON value holding invalid UTF-8 or an unpaired
// \uD800-\uDFFF escape.
func checkJSONText(raw []byte) error {
	if !utf8.Valid(raw) {
		return fmt.Errorf("%w: secret is not valid UTF-8", interfaces.ErrInvalidEncoding)
	}

	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			continue
		}
		if raw[i+1] != 'u' {
			i++
			continue
		}

		r, ok := unicodeEscape(raw, i)
		if !ok {
			// Malformed escapes are left to json.Unmarshal.
			i++
			continue
		}
		i += 5

		switch {
		case utf16.IsSurrogate(r) && r < 0xDC00:
			low, ok := unicodeEscape(raw, i+1)
			if !ok || low < 0xDC00 || low > 0xDFFF {
				return fmt.Errorf("%w: unpaired surrogate \\u%04X", interfaces.ErrInvalidEncoding, r)
			}
			i += 6
		case utf16.IsSurrogate(r):
			return fmt.Errorf("%w: unpaired surrogate \\u%04X", interfaces.ErrInvalidEncoding, r)
		}
	}
	return nil
}

// unicodeEscape decodes the \uXXXX escape starting at raw[i].
func unicodeEscape(raw []byte, i int) (rune, bool) {
	if i+6 > len(raw) || raw[i] != '\\' || raw[i+1] != 'u' {
		return 0, false
	}
	v, err := strconv.ParseUint(string(raw[i+2:i+6]), 16, 16)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}

func (h *Handler) splitSecret(ctx context.Context, req api.SplitRequest) (shares []interfaces.Share, err error) {
	if err := h.acquire(ctx); err != nil {
		return nil, err
	}
	defer h.sem.Release(1)

	start := time.Now()
	defer func() {
		metrics.RecordOperation(metrics.OpSplit, err, time.Since(start).Seconds())
	}()

	shares, err = h.sharing.SplitSecret(ctx, req.K, req.N, req.Secret)
	if err != nil {
		return nil, err
	}

	metrics.SharesProduced.Add(float64(len(shares)))
	h.log.Debug("Secret split", "k", req.K, "n", req.N)
	return shares, nil
}

// HandleRecover reconstructs a secret from a JSON array of shares.
//
// URL format: POST /api/v1/recoverSecret
//
// Response: the secret as text/plain. An invalid share yields 422 with the
// offending index in the JSON error body.
func (h *Handler) HandleRecover(w http.ResponseWriter, r *http.Request) {
	var dtos []api.ShareDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&dtos); err != nil {
		h.writeError(w, fmt.Errorf("%w: malformed share list: %v", interfaces.ErrInvalidParameter, err))
		return
	}

	shares, err := api.SharesFromDTOs(dtos)
	if err != nil {
		h.writeError(w, err)
		return
	}

	secret, err := h.recoverSecret(r.Context(), shares)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(secret))
}

func (h *Handler) recoverSecret(ctx context.Context, shares []interfaces.Share) (secret string, err error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	start := time.Now()
	defer func() {
		metrics.RecordOperation(metrics.OpRecover, err, time.Since(start).Seconds())
	}()

	metrics.SharesConsumed.Add(float64(len(shares)))

	secret, err = h.sharing.RecoverSecret(ctx, shares)
	if errors.Is(err, interfaces.ErrIntegrityViolation) {
		metrics.IntegrityViolations.Inc()
		h.log.Warn("Share failed verification", "err", err)
	}
	return secret, err
}

// HandlePublicKey returns the PEM public key shares are verified with.
//
// URL format: GET /api/v1/publicKey
//
// The signature algorithm name is returned in the X-Signature-Algorithm header.
func (h *Handler) HandlePublicKey(w http.ResponseWriter, r *http.Request) {
	pemBytes, err := h.publicKey.PublicKeyPEM()
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", interfaces.ErrCryptoConfiguration, err))
		return
	}

	w.Header().Set("Content-Type", "application/x-pem-file")
	w.Header().Set(api.SignatureAlgorithmHeader, h.publicKey.Algorithm())
	_, _ = w.Write(pemBytes)
}

var errStorageDisabled = &RequestError{
	StatusCode: http.StatusNotImplemented,
	Err:        errors.New("share storage is not configured"),
}

// HandleStoreShares persists a share set and returns its ID.
//
// URL format: POST /api/v1/shares with a JSON array of api.ShareDTO
//
// Response: api.StoreResponse. Shares are stored as given; their signatures are
// checked when the set is recovered, not here.
func (h *Handler) HandleStoreShares(w http.ResponseWriter, r *http.Request) {
	if h.repository == nil {
		h.writeError(w, errStorageDisabled)
		return
	}

	var dtos []api.ShareDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&dtos); err != nil {
		h.writeError(w, fmt.Errorf("%w: malformed share list: %v", interfaces.ErrInvalidParameter, err))
		return
	}
	if len(dtos) == 0 {
		h.writeError(w, interfaces.ErrEmptyShareSet)
		return
	}

	shares, err := api.SharesFromDTOs(dtos)
	if err != nil {
		h.writeError(w, err)
		return
	}

	start := time.Now()
	id, err := h.repository.SaveShares(r.Context(), shares)
	metrics.RecordOperation(metrics.OpStoreShares, err, time.Since(start).Seconds())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info("Share set stored", "id", id.String(), "shares", len(shares))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(api.StoreResponse{ID: id.String()})
}

// HandleFetchShares returns every share of a stored set.
//
// URL format: GET /api/v1/shares/{id}
func (h *Handler) HandleFetchShares(w http.ResponseWriter, r *http.Request) {
	if h.repository == nil {
		h.writeError(w, errStorageDisabled)
		return
	}

	id, err := interfaces.NewContentIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", interfaces.ErrInvalidParameter, err))
		return
	}

	start := time.Now()
	shares, err := h.repository.FindShares(r.Context(), id)
	metrics.RecordOperation(metrics.OpFetchShares, err, time.Since(start).Seconds())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, api.NewShareDTOs(shares))
}

// HandleFetchShare returns a single share of a stored set.
//
// URL format: GET /api/v1/shares/{id}/{index}
func (h *Handler) HandleFetchShare(w http.ResponseWriter, r *http.Request) {
	if h.repository == nil {
		h.writeError(w, errStorageDisabled)
		return
	}

	id, err := interfaces.NewContentIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", interfaces.ErrInvalidParameter, err))
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		h.writeError(w, fmt.Errorf("%w: share index must be a non-negative integer", interfaces.ErrInvalidParameter))
		return
	}

	share, err := h.repository.FindShareByIndex(r.Context(), id, index)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, api.NewShareDTO(share))
}
