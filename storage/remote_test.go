package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ruteri/secret-sharing-service/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// objectServer is an in-memory stand-in for the S3 object API in path-style mode.
type objectServer struct {
	mu      sync.Mutex
	objects map[string][]byte
	headers map[string]http.Header
}

func newObjectServer() *objectServer {
	return &objectServer{objects: map[string][]byte{}, headers: map[string]http.Header{}}
}

func (s *objectServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		s.objects[r.URL.Path] = body
		s.headers[r.URL.Path] = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := s.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Backend(t *testing.T) {
	objects := newObjectServer()
	server := httptest.NewServer(objects)
	defer server.Close()

	backend, err := NewS3Backend(S3Options{
		Bucket:    "shares",
		Prefix:    "prod",
		Endpoint:  server.URL,
		AccessKey: "AKID",
		SecretKey: "SECRET",
		PathStyle: true,
	}, discardLogger())
	require.NoError(t, err)
	require.True(t, backend.Available(context.Background()))

	data := []byte{0xa1, 0x01, 0x02}
	id, err := backend.Store(context.Background(), data, interfaces.ShareType)
	require.NoError(t, err)

	key := "/shares/prod/share/" + id.String()
	objects.mu.Lock()
	assert.Equal(t, data, objects.objects[key])
	assert.Equal(t, "private", objects.headers[key].Get("X-Amz-Acl"))
	assert.Equal(t, "AES256", objects.headers[key].Get("X-Amz-Server-Side-Encryption"))
	objects.mu.Unlock()

	fetched, err := backend.Fetch(context.Background(), id, interfaces.ShareType)
	require.NoError(t, err)
	assert.Equal(t, data, fetched)

	_, err = backend.Fetch(context.Background(), id, interfaces.ShareSetType)
	require.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

// kvServer is an in-memory stand-in for a Vault KV v2 engine.
type kvServer struct {
	mu      sync.Mutex
	secrets map[string]json.RawMessage
	sealed  bool
}

func (s *kvServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/v1/sys/health" {
		// Health requests ask for 299 on sealed nodes.
		if s.sealed {
			w.WriteHeader(299)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"initialized": true, "sealed": s.sealed, "standby": false})
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/")
	switch r.Method {
	case http.MethodPut, http.MethodPost:
		var body struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.secrets[path] = body.Data
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"version": 1}})
	case http.MethodGet:
		data, ok := s.secrets[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"errors":[]}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"data": data, "metadata": map[string]any{"version": 1}}})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestVaultBackend(t *testing.T) {
	kv := &kvServer{secrets: map[string]json.RawMessage{}}
	server := httptest.NewServer(kv)
	defer server.Close()

	backend, err := NewVaultBackend(server.URL, "kv", "shares", "s.token", discardLogger())
	require.NoError(t, err)
	require.True(t, backend.Available(context.Background()))

	data := []byte{0x00, 0xff, 0x10}
	id, err := backend.Store(context.Background(), data, interfaces.ShareSetType)
	require.NoError(t, err)

	kv.mu.Lock()
	_, stored := kv.secrets["kv/data/shares/shareset/"+id.String()]
	kv.mu.Unlock()
	require.True(t, stored)

	fetched, err := backend.Fetch(context.Background(), id, interfaces.ShareSetType)
	require.NoError(t, err)
	assert.Equal(t, data, fetched)

	_, err = backend.Fetch(context.Background(), id, interfaces.ShareType)
	require.ErrorIs(t, err, interfaces.ErrContentNotFound)

	kv.mu.Lock()
	kv.sealed = true
	kv.mu.Unlock()
	assert.False(t, backend.Available(context.Background()))
}
