package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/usersapi/internal/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv("SERVER_ADDRESS", "localhost:0")
	t.Setenv("LOG_LEVEL", "debug")

	app, err := New(config.WithDisableFlagsParsing(true))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = app.Close()
	})

	return app
}

func TestAppHandler(t *testing.T) {
	app := newTestApp(t)
	server := httptest.NewServer(app.Handler())
	defer server.Close()

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"name":"New User","email":"new@example.com"}`).
		Post(server.URL + "/api/users")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode())

	resp, err = resty.New().R().Get(server.URL + "/ping")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","users":1}`, string(resp.Body()))

	resp, err = resty.New().R().Get(server.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
}

func TestAppRateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "0.001")
	t.Setenv("RATE_LIMIT_BURST", "1")
	app := newTestApp(t)
	server := httptest.NewServer(app.Handler())
	defer server.Close()

	resp, err := resty.New().R().Get(server.URL + "/users")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	resp, err = resty.New().R().Get(server.URL + "/users")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode())
}

func TestAppServeStopsOnCancel(t *testing.T) {
	t.Setenv("GRPC_HEALTH_ADDR", "localhost:0")
	app := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Serve(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
