package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cteview/internal/cli"
	"cteview/internal/config"
	"cteview/internal/logging"
	"cteview/internal/server"
)

// failDeps returns deps whose every seam fails the test when called.
func failDeps(t *testing.T) appDeps {
	return appDeps{
		loadConfig: func(string, io.Writer) (config.Config, error) {
			t.Fatalf("loadConfig must not be called")
			return config.Config{}, nil
		},
		newLogger: func(config.LogConfig, string) (logging.Logger, error) {
			t.Fatalf("newLogger must not be called")
			return nil, nil
		},
		initMetrics: func(context.Context, config.MetricsConfig) (func(), error) {
			t.Fatalf("initMetrics must not be called")
			return func() {}, nil
		},
		serve: func(context.Context, *server.Server, string) error {
			t.Fatalf("serve must not be called")
			return nil
		},
	}
}

func TestRunMainUsageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		args      []string
		wantInErr string
	}{
		{name: "unknown_flag", args: []string{"-nope"}, wantInErr: "flag provided but not defined"},
		{name: "positional_arg", args: []string{"extra"}, wantInErr: "usage: cteview"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			code := runMain(context.Background(), tc.args, &stdout, &stderr, failDeps(t))
			assert.Equal(t, 2, code)
			assert.Contains(t, stderr.String(), tc.wantInErr)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRunMainConfigError(t *testing.T) {
	t.Parallel()

	deps := failDeps(t)
	deps.loadConfig = func(string, io.Writer) (config.Config, error) {
		return config.Config{}, cli.ErrInvalidConfig
	}
	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(), []string{"-config", "x.json"}, &stdout, &stderr, deps)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "config: configuration is invalid")
}

func TestRunMainValidateOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"bottom_n": 3}`), 0o644))

	deps := failDeps(t)
	deps.loadConfig = cli.LoadConfig
	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(), []string{"-config", path, "-validate"}, &stdout, &stderr, deps)
	assert.Equal(t, 0, code)
	assert.Equal(t, "configuration is valid\n", stdout.String())
}

func TestRunMainServesUntilDone(t *testing.T) {
	t.Parallel()

	var (
		gotAddr     string
		cleanedUp   bool
		healthBody  string
		metricsWarn = errors.New("unknown metrics backend")
	)
	deps := appDeps{
		loadConfig: func(string, io.Writer) (config.Config, error) { return config.Default(), nil },
		newLogger: func(config.LogConfig, string) (logging.Logger, error) {
			return logging.NewNop(), nil
		},
		initMetrics: func(context.Context, config.MetricsConfig) (func(), error) {
			return func() { cleanedUp = true }, metricsWarn
		},
		serve: func(_ context.Context, s *server.Server, addr string) error {
			gotAddr = addr
			rec := httptest.NewRecorder()
			s.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			healthBody = rec.Body.String()
			s.Sessions.Close()
			return nil
		},
	}

	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(), []string{"-addr", "127.0.0.1:0"}, &stdout, &stderr, deps)
	assert.Equal(t, 0, code)
	assert.Equal(t, "127.0.0.1:0", gotAddr)
	assert.True(t, cleanedUp)
	assert.Contains(t, healthBody, `"views":["analysis","home"]`)
}

func TestRunMainServeFailure(t *testing.T) {
	t.Parallel()

	deps := appDeps{
		loadConfig:  func(string, io.Writer) (config.Config, error) { return config.Default(), nil },
		newLogger:   func(config.LogConfig, string) (logging.Logger, error) { return logging.NewNop(), nil },
		initMetrics: func(context.Context, config.MetricsConfig) (func(), error) { return func() {}, nil },
		serve: func(context.Context, *server.Server, string) error {
			return errors.New("address already in use")
		},
	}
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, runMain(context.Background(), nil, &stdout, &stderr, deps))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	s := server.New(server.Options{SessionTTL: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serve(ctx, s, "127.0.0.1:0") }()

	// Give the listener a moment, then stop.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
