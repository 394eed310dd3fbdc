package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/assetreg/pkg/catalog"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestStartServer(t *testing.T) {
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog"))
	require.NoError(t, err)
	defer cat.Close()

	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewServerFactory().CreateServerStarter().StartServer(ctx, cat, ServerConfig{
			Bind:   "127.0.0.1",
			Port:   port,
			APIKey: testKey,
		})
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/v1/health", port)
	require.Eventually(t, func() bool {
		req, err := http.NewRequest("GET", url, nil)
		if err != nil {
			return false
		}
		req.Header.Set("X-API-Key", testKey)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStartServer_PortInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog"))
	require.NoError(t, err)
	defer cat.Close()

	err = StartServer(context.Background(), cat, ServerConfig{
		Bind: "127.0.0.1",
		Port: l.Addr().(*net.TCPAddr).Port,
	})
	assert.Error(t, err)
}

func TestNewServerDefaults(t *testing.T) {
	s := NewServer(nil, ServerConfig{}, nil)
	assert.Equal(t, int64(DefaultMaxBodyBytes), s.config.MaxBodyBytes)
	assert.NotNil(t, s.logger)
}
