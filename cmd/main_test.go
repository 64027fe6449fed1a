package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/campus-events/internal/config"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, version, strings.TrimSpace(out.String()))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"service":"campus-events"`)

	buf.Reset()
	log = newLogger(config.Config{LogLevel: "nonsense"}, &buf)
	log.Info().Msg("defaults to info")
	assert.Contains(t, buf.String(), "defaults to info")
}

func TestMigrateSQLite(t *testing.T) {
	t.Setenv("AUTH_SECRET", "0123456789abcdef")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", t.TempDir()+"/events.db")

	root := rootCmd()
	root.SetArgs([]string{"migrate"})
	require.NoError(t, root.Execute())

	root = rootCmd()
	root.SetArgs([]string{"sweep"})
	require.NoError(t, root.Execute())
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Setenv("AUTH_SECRET", "0123456789abcdef")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", t.TempDir()+"/events.db")
	t.Setenv("PORT", "0")
	t.Setenv("SWEEP_INTERVAL", "5ms")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	root := rootCmd()
	root.SetArgs([]string{"serve"})

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}
