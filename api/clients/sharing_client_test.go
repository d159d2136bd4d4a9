package clients

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ruteri/secret-sharing-service/api"
	"github.com/ruteri/secret-sharing-service/cryptoutils"
	"github.com/ruteri/secret-sharing-service/httpserver"
	"github.com/ruteri/secret-sharing-service/interfaces"
	"github.com/ruteri/secret-sharing-service/sharing"
	"github.com/ruteri/secret-sharing-service/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	prime, err := cryptoutils.GenerateModulus(nil, 512)
	require.NoError(t, err)
	keys, err := cryptoutils.GenerateKeyMaterial("EC", "SHA256withECDSA", 256)
	require.NoError(t, err)
	s, err := sharing.New(sharing.Params{Prime: prime, BitSize: 512, MaxShares: 8, Coefficients: sharing.CoefficientUniform}, keys)
	require.NoError(t, err)

	backend, err := storage.NewFileBackend(t.TempDir(), logger)
	require.NoError(t, err)
	store, err := storage.NewShareStore(backend, logger)
	require.NoError(t, err)

	srv, err := httpserver.New(&api.HTTPServerConfig{Log: logger}, httpserver.NewHandler(s, keys, store, 4, logger))
	require.NoError(t, err)

	server := httptest.NewServer(srv.Handler())
	t.Cleanup(server.Close)
	return server
}

func TestSharingClientRoundTrip(t *testing.T) {
	server := newTestServer(t)
	client := NewSharingClient(server.URL + "/")
	ctx := context.Background()

	shares, err := client.Split(ctx, 2, 3, "Super Secret")
	require.NoError(t, err)
	require.Len(t, shares, 3)

	secret, err := client.Recover(ctx, shares[:2])
	require.NoError(t, err)
	assert.Equal(t, "Super Secret", secret)

	posted, err := client.SplitPOST(ctx, 3, 3, "via body")
	require.NoError(t, err)
	secret, err = client.Recover(ctx, posted)
	require.NoError(t, err)
	assert.Equal(t, "via body", secret)

	pemBytes, algorithm, err := client.PublicKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SHA256withECDSA", algorithm)
	_, err = cryptoutils.LoadVerifier(pemBytes, algorithm)
	require.NoError(t, err)

	id, err := client.StoreShares(ctx, shares)
	require.NoError(t, err)

	fetched, err := client.FetchShares(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, shares, fetched)

	one, err := client.FetchShare(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, shares[1], one)
}

func TestSharingClientErrors(t *testing.T) {
	server := newTestServer(t)
	client := NewSharingClient(server.URL)
	ctx := context.Background()

	_, err := client.Split(ctx, 4, 3, "secret")
	require.ErrorIs(t, err, interfaces.ErrInvalidParameter)

	shares, err := client.Split(ctx, 2, 2, "secret")
	require.NoError(t, err)
	shares[1].Signature = shares[0].Signature

	_, err = client.Recover(ctx, shares)
	require.ErrorIs(t, err, interfaces.ErrIntegrityViolation)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	require.NotNil(t, apiErr.Index)
	assert.Equal(t, 1, *apiErr.Index)

	_, err = client.FetchShares(ctx, interfaces.ComputeID([]byte("missing")).String())
	require.ErrorIs(t, err, interfaces.ErrContentNotFound)
}
