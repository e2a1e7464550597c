package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hryang/cachegate/pkg/config"
	"github.com/hryang/cachegate/pkg/datastore"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) error {
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	envFile := filepath.Join(t.TempDir(), ".env")
	cmd.SetArgs(append([]string{"--env-file", envFile}, args...))
	return cmd.Execute()
}

func TestStartupFailsFast(t *testing.T) {
	t.Run("Test missing redis url", func(t *testing.T) {
		t.Setenv("REDIS_CONNECTION_URL", "")
		t.Setenv("CACHEGATE_STORE_URL", "")

		err := run(t, "--store-type", "redis")
		require.ErrorContains(t, err, "redis store requires a connection url")
	})

	t.Run("Test unreachable redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		url := "redis://" + mr.Addr()
		mr.Close()

		err := run(t, "--store-type", "redis", "--store-url", url)
		require.ErrorContains(t, err, "ping redis datastore")
	})

	t.Run("Test invalid capacity", func(t *testing.T) {
		err := run(t, "--store-type", "memory", "--capacity", "0")
		require.Error(t, err)
	})
}

// closeTrackingStore records whether the server closed its store.
type closeTrackingStore struct {
	*datastore.MemoryStore
	closed chan struct{}
}

func (s *closeTrackingStore) Close() error {
	close(s.closed)
	return s.MemoryStore.Close()
}

func freeAddr(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestServeShutdown(t *testing.T) {
	store := &closeTrackingStore{MemoryStore: datastore.NewMemoryStore(), closed: make(chan struct{})}
	orig := openStore
	openStore = func(*datastore.Config) (datastore.Store, error) { return store, nil }
	defer func() { openStore = orig }()

	c := &config.Config{
		Addr:     freeAddr(t),
		Capacity: 10,
		Store:    datastore.Config{Type: datastore.Memory},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() {
		errc <- serve(ctx, c)
	}()

	// Wait until the server answers.
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + c.Addr + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	select {
	case <-store.closed:
	default:
		t.Fatal("store was not closed")
	}

	_, err := http.Get("http://" + c.Addr + "/")
	require.Error(t, err)
}
