package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/ruteri/secret-sharing-service/api"
	"github.com/ruteri/secret-sharing-service/cryptoutils"
	"github.com/ruteri/secret-sharing-service/interfaces"
	"github.com/ruteri/secret-sharing-service/sharing"
	"github.com/ruteri/secret-sharing-service/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	handler *Handler
	router  http.Handler
	keys    *cryptoutils.KeyMaterial
}

// newTestEnv builds a server over a 512-bit field and an Ed25519 key. When
// withStorage is set, shares persist to a file backend in a temp directory.
func newTestEnv(t *testing.T, withStorage bool) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	prime, err := cryptoutils.GenerateModulus(nil, 512)
	require.NoError(t, err)
	keys, err := cryptoutils.GenerateKeyMaterial("Ed25519", "Ed25519", 0)
	require.NoError(t, err)

	s, err := sharing.New(sharing.Params{
		Prime:        prime,
		BitSize:      512,
		MaxShares:    10,
		Coefficients: sharing.CoefficientUniform,
	}, keys)
	require.NoError(t, err)

	var repository interfaces.ShareRepository
	if withStorage {
		backend, err := storage.NewFileBackend(t.TempDir(), logger)
		require.NoError(t, err)
		store, err := storage.NewShareStore(backend, logger)
		require.NoError(t, err)
		repository = store
	}

	handler := NewHandler(s, keys, repository, 2, logger)
	srv, err := New(&api.HTTPServerConfig{Log: logger}, handler)
	require.NoError(t, err)

	return &testEnv{handler: handler, router: srv.srv.Handler, keys: keys}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) split(t *testing.T, k, n int, secret string) []api.ShareDTO {
	t.Helper()

	query := url.Values{}
	query.Set("k", strconv.Itoa(k))
	query.Set("n", strconv.Itoa(n))
	query.Set("secret", secret)

	w := e.do(t, http.MethodGet, "/api/v1/splitSecret?"+query.Encode(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var dtos []api.ShareDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dtos))
	return dtos
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var response api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}

func TestSplitAndRecover(t *testing.T) {
	env := newTestEnv(t, false)

	dtos := env.split(t, 2, 4, "Super Secret")
	require.Len(t, dtos, 4)
	for i, dto := range dtos {
		assert.Equal(t, i, dto.Index)
		assert.NotEmpty(t, dto.Signature)
	}

	w := env.do(t, http.MethodPost, "/api/v1/recoverSecret", dtos[2:])
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Super Secret", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestSplitPOST(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/v1/splitSecret", api.SplitRequest{K: 3, N: 5, Secret: "posted secret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var dtos []api.ShareDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dtos))
	require.Len(t, dtos, 5)

	w = env.do(t, http.MethodPost, "/api/v1/recoverSecret", []api.ShareDTO{dtos[4], dtos[0], dtos[2]})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "posted secret", w.Body.String())
}

func TestSplitRejectsBadParameters(t *testing.T) {
	env := newTestEnv(t, false)

	testCases := []struct {
		name   string
		target string
	}{
		{"k not a number", "/api/v1/splitSecret?k=two&n=3&secret=s"},
		{"n missing", "/api/v1/splitSecret?k=2&secret=s"},
		{"k zero", "/api/v1/splitSecret?k=0&n=3&secret=s"},
		{"k above n", "/api/v1/splitSecret?k=4&n=3&secret=s"},
		{"n above max shares", "/api/v1/splitSecret?k=2&n=11&secret=s"},
		{"empty secret", "/api/v1/splitSecret?k=2&n=3&secret="},
		{"secret too large", "/api/v1/splitSecret?k=2&n=3&secret=" + string(bytes.Repeat([]byte("a"), 100))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tc.target, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.NotEmpty(t, decodeError(t, w).Error)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/splitSecret", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSplitPOSTRejectsUnpairedSurrogates(t *testing.T) {
	env := newTestEnv(t, false)

	testCases := []struct {
		name   string
		body   string
		status int
	}{
		{"lone high surrogate", `{"k":2,"n":3,"secret":"Hello\uD800World!"}`, http.StatusBadRequest},
		{"high surrogate at end", `{"k":2,"n":3,"secret":"Hello\ud83d"}`, http.StatusBadRequest},
		{"lone low surrogate", `{"k":2,"n":3,"secret":"Hello\uDC00World!"}`, http.StatusBadRequest},
		{"reversed pair", `{"k":2,"n":3,"secret":"\uDE00\uD83D"}`, http.StatusBadRequest},
		{"invalid raw bytes", "{\"k\":2,\"n\":3,\"secret\":\"Hello\xed\xa0\x80World!\"}", http.StatusBadRequest},
		{"surrogate pair", `{"k":2,"n":3,"secret":"Hello\uD83D\uDE00"}`, http.StatusOK},
		{"escaped backslash", `{"k":2,"n":3,"secret":"Hello\\uD800"}`, http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/splitSecret", bytes.NewBufferString(tc.body))
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)
			require.Equal(t, tc.status, w.Code, w.Body.String())
			if tc.status != http.StatusOK {
				assert.NotEmpty(t, decodeError(t, w).Error)
			}
		})
	}

	// A valid pair survives the round trip unchanged.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/splitSecret", bytes.NewBufferString(`{"k":2,"n":3,"secret":"Hello\uD83D\uDE00"}`))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var dtos []api.ShareDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dtos))
	w = env.do(t, http.MethodPost, "/api/v1/recoverSecret", dtos[:2])
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Hello\U0001F600", w.Body.String())
}

func TestRecoverReportsTamperedShare(t *testing.T) {
	env := newTestEnv(t, false)
	dtos := env.split(t, 2, 3, "Super Secret")

	// Swap the signatures of shares 1 and 2: both are genuine, neither matches.
	tampered := []api.ShareDTO{dtos[0], dtos[1]}
	tampered[1].Signature = dtos[2].Signature

	w := env.do(t, http.MethodPost, "/api/v1/recoverSecret", tampered)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	response := decodeError(t, w)
	require.NotNil(t, response.Index)
	assert.Equal(t, 1, *response.Index)

	// A changed value fails the same way.
	tampered = []api.ShareDTO{dtos[0], dtos[2]}
	tampered[0].Value = "12345"
	w = env.do(t, http.MethodPost, "/api/v1/recoverSecret", tampered)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, decodeError(t, w).Index)
	assert.Equal(t, 0, *decodeError(t, w).Index)
}

func TestRecoverRejectsMalformedInput(t *testing.T) {
	env := newTestEnv(t, false)
	dtos := env.split(t, 2, 3, "Super Secret")

	w := env.do(t, http.MethodPost, "/api/v1/recoverSecret", []api.ShareDTO{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/recoverSecret", []map[string]any{{"index": 0, "value": "1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing signature")

	negative := []api.ShareDTO{dtos[0], dtos[1]}
	negative[0].Value = "-5"
	w = env.do(t, http.MethodPost, "/api/v1/recoverSecret", negative)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	duplicate := []api.ShareDTO{dtos[1], dtos[1]}
	w = env.do(t, http.MethodPost, "/api/v1/recoverSecret", duplicate)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecoverAcceptsLegacyShareField(t *testing.T) {
	env := newTestEnv(t, false)
	dtos := env.split(t, 2, 3, "legacy")

	legacy := make([]map[string]any, 0, 2)
	for _, dto := range dtos[:2] {
		legacy = append(legacy, map[string]any{
			"index":     dto.Index,
			"share":     json.Number(dto.Value),
			"signature": dto.Signature,
		})
	}

	w := env.do(t, http.MethodPost, "/api/v1/recoverSecret", legacy)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "legacy", w.Body.String())
}

func TestPublicKeyVerifiesShares(t *testing.T) {
	env := newTestEnv(t, false)
	dtos := env.split(t, 1, 1, "verify me")

	w := env.do(t, http.MethodGet, "/api/v1/publicKey", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-pem-file", w.Header().Get("Content-Type"))

	algorithm := w.Header().Get(api.SignatureAlgorithmHeader)
	require.Equal(t, "Ed25519", algorithm)

	verifier, err := cryptoutils.LoadVerifier(w.Body.Bytes(), algorithm)
	require.NoError(t, err)

	share, err := dtos[0].ToShare()
	require.NoError(t, err)
	ok, err := verifier.Verify(sharing.ValueBytes(share.Value), share.Signature)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShareStorageRoutes(t *testing.T) {
	env := newTestEnv(t, true)
	dtos := env.split(t, 2, 3, "stored secret")

	w := env.do(t, http.MethodPost, "/api/v1/shares", dtos)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var stored api.StoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	require.Len(t, stored.ID, 64)

	w = env.do(t, http.MethodGet, "/api/v1/shares/"+stored.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var fetched []api.ShareDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, dtos, fetched)

	w = env.do(t, http.MethodGet, "/api/v1/shares/"+stored.ID+"/2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var single api.ShareDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &single))
	assert.Equal(t, dtos[2], single)

	// Fetched shares still recover the secret.
	w = env.do(t, http.MethodPost, "/api/v1/recoverSecret", fetched[1:])
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stored secret", w.Body.String())

	w = env.do(t, http.MethodGet, "/api/v1/shares/"+stored.ID+"/9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/shares/"+stored.ID+"/-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/shares/abcd", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	unknown := interfaces.ComputeID([]byte("nothing")).String()
	w = env.do(t, http.MethodGet, "/api/v1/shares/"+unknown, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/shares", []api.ShareDTO{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShareStorageDisabled(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/v1/shares", []api.ShareDTO{})
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/shares/"+interfaces.ComputeID(nil).String(), nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestAbandonedRequestWhileSaturated(t *testing.T) {
	env := newTestEnv(t, false)

	// Occupy every slot.
	require.NoError(t, env.handler.sem.Acquire(context.Background(), 2))
	defer env.handler.sem.Release(2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/splitSecret?k=1&n=1&secret=s", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		err    error
		status int
	}{
		{interfaces.ErrInvalidParameter, http.StatusBadRequest},
		{interfaces.ErrInvalidEncoding, http.StatusBadRequest},
		{interfaces.ErrSecretTooLarge, http.StatusBadRequest},
		{interfaces.ErrEmptyShareSet, http.StatusBadRequest},
		{interfaces.ErrNonInvertible, http.StatusBadRequest},
		{&interfaces.IntegrityError{Index: 3}, http.StatusUnprocessableEntity},
		{interfaces.ErrContentNotFound, http.StatusNotFound},
		{interfaces.ErrBackendUnavailable, http.StatusServiceUnavailable},
		{context.Canceled, http.StatusServiceUnavailable},
		{&RequestError{StatusCode: http.StatusTeapot, Err: io.EOF}, http.StatusTeapot},
		{interfaces.ErrSigningFailure, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.status, statusFor(tc.err), tc.err.Error())
	}
}
