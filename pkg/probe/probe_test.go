package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPChecker_ReadyOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(Target{Type: "http", URL: srv.URL})
	require.NoError(t, err)

	res := c.Check(context.Background())
	require.Equal(t, StatusReady, res.Status)
	require.True(t, res.Ready())
}

func TestHTTPChecker_NotReadyOn503(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := New(Target{Type: "http", URL: srv.URL})
	require.NoError(t, err)

	res := c.Check(context.Background())
	require.Equal(t, StatusNotReady, res.Status)
	require.Contains(t, res.Reason, "503")
}

func TestHTTPChecker_TransportErrorIsNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Target{Type: "http", URL: url})
	require.NoError(t, err)

	res := c.Check(context.Background())
	require.Equal(t, StatusNotReady, res.Status)
	require.NotEmpty(t, res.Reason)
}

func TestHTTPChecker_SlowResponseIsNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := New(Target{Type: "http", URL: srv.URL, TimeoutMs: 50})
	require.NoError(t, err)

	start := time.Now()
	res := c.Check(context.Background())
	require.Equal(t, StatusNotReady, res.Status)
	require.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestTCPChecker_ReadyWhenListening(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	c, err := New(Target{Type: "tcp", Address: ln.Addr().String()})
	require.NoError(t, err)

	res := c.Check(context.Background())
	require.Equal(t, StatusReady, res.Status)
}

func TestTCPChecker_NotReadyOnClosedPort(t *testing.T) {
	// Reserve a free port, then close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c, err := New(Target{Type: "tcp", Address: addr})
	require.NoError(t, err)

	res := c.Check(context.Background())
	require.Equal(t, StatusNotReady, res.Status)
	require.NotEmpty(t, res.Reason)
}

func TestFileChecker(t *testing.T) {
	dir, err := os.MkdirTemp("", "bootgate-probe-test-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "ready")

	c, err := New(Target{Type: "file", Path: path})
	require.NoError(t, err)

	res := c.Check(context.Background())
	require.Equal(t, StatusNotReady, res.Status)

	require.NoError(t, os.WriteFile(path, []byte("ok"), 0o600))

	res = c.Check(context.Background())
	require.Equal(t, StatusReady, res.Status)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Target{Type: "http"})
	require.Error(t, err)

	_, err = New(Target{Type: "tcp"})
	require.Error(t, err)

	_, err = New(Target{Type: "file"})
	require.Error(t, err)

	_, err = New(Target{Type: "carrier-pigeon"})
	require.Error(t, err)
}

func TestNew_DefaultsToHTTP(t *testing.T) {
	c, err := New(Target{URL: "http://127.0.0.1:1/health"})
	require.NoError(t, err)
	require.Equal(t, "http http://127.0.0.1:1/health", c.Describe())
}
