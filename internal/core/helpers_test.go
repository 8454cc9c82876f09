package core

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"fleetcare/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(&config.Config{Server: config.ServerConfig{Port: "0"}}, testLogger())
	require.NoError(t, err)
	return s
}
