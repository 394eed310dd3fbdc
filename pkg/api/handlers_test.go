package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/assetreg/pkg/catalog"
	"github.com/ssargent/assetreg/pkg/codec"
	"github.com/ssargent/assetreg/pkg/registry"
)

const testKey = "test-key"

type testEnv struct {
	server  *Server
	handler http.Handler
	catalog *catalog.Catalog
	sample  []byte
}

func setupTestServer(t *testing.T, mutate ...func(*ServerConfig)) *testEnv {
	t.Helper()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	config := ServerConfig{APIKey: testKey}
	for _, m := range mutate {
		m(&config)
	}
	reg := prometheus.NewRegistry()
	server := NewServer(cat, config, NewMetrics(reg))

	sample, err := registry.Sample()
	require.NoError(t, err)
	raw, err := sample.EncodeBytes()
	require.NoError(t, err)

	return &testEnv{server: server, handler: server.Routes(reg), catalog: cat, sample: raw}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("X-API-Key", testKey)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()
	var raw struct {
		APIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.APIResponse
}

func (e *testEnv) store(t *testing.T) catalog.Entry {
	t.Helper()
	w := e.do(t, "POST", "/api/v1/registries?name=arena.bin", e.sample)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created RegistryCreated
	decodeResponse(t, w, &created)
	return created.Entry
}

func TestServer_handleHealth(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "GET", "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var health HealthStatus
	resp := decodeResponse(t, w, &health)
	assert.True(t, resp.Success)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "AddedHeader", health.Version)
	assert.Zero(t, health.Catalogs)
}

func TestServer_handleInspect(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/v1/inspect", env.sample)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result InspectResult
	decodeResponse(t, w, &result)
	assert.True(t, result.Valid)
	assert.Equal(t, 11, result.Summary.Names)
	assert.Equal(t, "717F9EE7-E9B0493A-88B39132-1B388107", result.Summary.GUID)

	n, err := env.catalog.Count()
	require.NoError(t, err)
	assert.Zero(t, n, "inspect must not store")
}

func TestServer_handleInspect_DecodeErrors(t *testing.T) {
	env := setupTestServer(t)

	badMagic := bytes.Clone(env.sample)
	badMagic[0] ^= 0xFF

	tests := []struct {
		name string
		body []byte
		kind string
	}{
		{"truncated", env.sample[:len(env.sample)-5], "truncated"},
		{"bad guid", badMagic, "malformed_magic"},
		{"empty body", []byte{}, "truncated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/api/v1/inspect", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			resp := decodeResponse(t, w, nil)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.kind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestServer_handleInspect_BodyLimit(t *testing.T) {
	env := setupTestServer(t, func(c *ServerConfig) { c.MaxBodyBytes = 16 })

	w := env.do(t, "POST", "/api/v1/inspect", env.sample)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestServer_handleInspect_Limits(t *testing.T) {
	env := setupTestServer(t, func(c *ServerConfig) { c.Limits = codec.Limits{MaxArrayCount: 3} })

	w := env.do(t, "POST", "/api/v1/inspect", env.sample)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeResponse(t, w, nil)
	assert.Equal(t, "oversized_field", resp.Kind)
}

func TestServer_RegistryLifecycle(t *testing.T) {
	env := setupTestServer(t)
	entry := env.store(t)
	assert.Equal(t, "arena.bin", entry.Name)

	t.Run("duplicate upload returns existing entry", func(t *testing.T) {
		w := env.do(t, "POST", "/api/v1/registries?name=copy.bin", env.sample)
		require.Equal(t, http.StatusOK, w.Code)
		var created RegistryCreated
		decodeResponse(t, w, &created)
		assert.False(t, created.Created)
		assert.Equal(t, entry.ID, created.Entry.ID)
	})

	t.Run("list", func(t *testing.T) {
		w := env.do(t, "GET", "/api/v1/registries", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var entries []catalog.Entry
		decodeResponse(t, w, &entries)
		require.Len(t, entries, 1)
		assert.Equal(t, entry.ID, entries[0].ID)
	})

	t.Run("get", func(t *testing.T) {
		w := env.do(t, "GET", "/api/v1/registries/"+entry.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got catalog.Entry
		decodeResponse(t, w, &got)
		assert.Equal(t, entry.Digest, got.Digest)
	})

	t.Run("names", func(t *testing.T) {
		w := env.do(t, "GET", "/api/v1/registries/"+entry.ID+"/names", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var rows []struct {
			Index uint32 `json:"index"`
			Name  string `json:"name"`
			Wide  bool   `json:"wide"`
		}
		decodeResponse(t, w, &rows)
		require.Len(t, rows, 11)
		assert.Equal(t, "None", rows[0].Name)
		assert.Equal(t, "Größe", rows[7].Name)
		assert.True(t, rows[7].Wide)
	})

	t.Run("pairs", func(t *testing.T) {
		w := env.do(t, "GET", "/api/v1/registries/"+entry.ID+"/pairs", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var pairs []registry.ResolvedPair
		decodeResponse(t, w, &pairs)
		require.Len(t, pairs, 3)
		assert.Equal(t, registry.ResolvedPair{Key: "PrimaryAssetType", Kind: "name", Value: "Map"}, pairs[0])
		assert.Equal(t, "World'/Game/Maps.Arena'", pairs[1].Value)
		assert.Equal(t, "StaticMesh_1", pairs[2].Key)
	})

	t.Run("raw", func(t *testing.T) {
		w := env.do(t, "GET", "/api/v1/registries/"+entry.ID+"/raw", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
		assert.Equal(t, env.sample, w.Body.Bytes())
	})

	t.Run("delete", func(t *testing.T) {
		w := env.do(t, "DELETE", "/api/v1/registries/"+entry.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = env.do(t, "GET", "/api/v1/registries/"+entry.ID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		w = env.do(t, "DELETE", "/api/v1/registries/"+entry.ID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServer_handleCreateRegistry_Rejects(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/v1/registries", env.sample[:20])
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	reg, err := registry.Sample()
	require.NoError(t, err)
	reg.Tags.Pairs[0].Key.Index = 500
	dangling, err := reg.EncodeBytes()
	require.NoError(t, err)

	w = env.do(t, "POST", "/api/v1/registries?name=dangling", dangling)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeResponse(t, w, nil)
	assert.Equal(t, "validation", resp.Kind)
	assert.True(t, strings.Contains(resp.Error, "dangling"))
}

func TestServer_InvalidID(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "GET", "/api/v1/registries/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "GET", "/api/v1/registries/0ujtsYcgvSTl8PAuAdqWYSMnLOv/pairs", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	env := setupTestServer(t)
	env.store(t)
	env.do(t, "POST", "/api/v1/inspect", []byte{1, 2, 3})

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `assetreg_catalog_entries 1`)
	assert.Contains(t, body, `assetreg_decode_errors_total{kind="truncated"} 1`)
	assert.Contains(t, body, `assetreg_catalog_operations_total{operation="put",status="success"} 1`)
	assert.Contains(t, body, `assetreg_http_requests_total{endpoint="/api/v1/inspect",method="POST",status_code="422"} 1`)
}
