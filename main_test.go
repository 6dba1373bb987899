package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dealmungchi/freegameworker/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServeFixture(t *testing.T) (*httptest.Server, *httptest.Server) {
	t.Helper()
	epic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, epicPromotions(time.Now()))
	}))
	t.Cleanup(epic.Close)

	discord := httptest.NewServer(&discordRecorder{})
	t.Cleanup(discord.Close)
	return epic, discord
}

func TestServeReturnsWhenListenFails(t *testing.T) {
	epic, discord := newServeFixture(t)

	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := integrationConfig(t, epic.URL, discord.URL)
	cfg.DedupBackend = config.DedupBackendMemory
	cfg.ListenAddr = taken.Addr().String()

	w, deps, err := initializeWorker(context.Background(), cfg)
	require.NoError(t, err)
	defer deps.Cleanup()

	done := make(chan error, 1)
	go func() {
		done <- serve(context.Background(), cfg, w)
	}()

	select {
	case err := <-done:
		assert.Error(t, err, "a listener that cannot bind must be reported")
	case <-time.After(5 * time.Second):
		t.Fatal("serve kept running after the command server failed")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	epic, discord := newServeFixture(t)

	cfg := integrationConfig(t, epic.URL, discord.URL)
	cfg.DedupBackend = config.DedupBackendMemory
	cfg.ListenAddr = "127.0.0.1:0"

	w, deps, err := initializeWorker(context.Background(), cfg)
	require.NoError(t, err)
	defer deps.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, w)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FREEGAMES_LOAD_ENV_TEST=loaded\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("FREEGAMES_LOAD_ENV_TEST") })
	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("FREEGAMES_LOAD_ENV_TEST"))

	// A directory exists but cannot be read as a file
	assert.Error(t, loadEnvFile(dir))
}
