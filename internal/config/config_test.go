package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	values := Config{}

	applyDefaults(&values, defaultConfig)

	assert.Equal(t, ":3000", values.RunAddr)
	assert.Equal(t, "info", values.LogLevel)
	assert.Equal(t, "X-Request-ID", values.RequestIDHeader)
	assert.Equal(t, 20, values.RateLimitBurst)
	assert.Equal(t, 10*time.Second, values.ShutdownTimeout)
	assert.Zero(t, values.RateLimitRPS)
	assert.Empty(t, values.TrustedSubnet)
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.True(t, cfg.EnableGzip)
	assert.Empty(t, cfg.GRPCHealthAddr)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
}

const testJSON = `{
	"server_address": ":3500",
	"log_level": "debug",
	"trusted_subnet": "10.0.0.0/8",
	"enable_gzip": false,
	"rate_limit_rps": 5,
	"shutdown_timeout": "3s"
}`

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()
	file, err := os.CreateTemp("", "config*.json")
	require.NoError(t, err)
	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	t.Cleanup(func() {
		err := os.Remove(file.Name())
		require.NoError(t, err)
	})
	return file.Name()
}

func TestConfigPriorityJSONOnly(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3500", cfg.RunAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedSubnet)
	assert.False(t, cfg.EnableGzip)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 20, cfg.RateLimitBurst) // default
}

func TestConfigPriorityJSONPlusEnv(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("ENABLE_GZIP", "true")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.RunAddr) // env overrides json
	assert.True(t, cfg.EnableGzip)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedSubnet) // from JSON
}

func TestConfigPriorityAllSources(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := New(WithArgs([]string{
		"-a", ":6000",
		"-z=true",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.RunAddr) // CLI > ENV > JSON
	assert.True(t, cfg.EnableGzip)
	assert.Equal(t, "warn", cfg.LogLevel)            // from env
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedSubnet) // from JSON
}

func TestConfigFromOSArgs(t *testing.T) {
	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })

	os.Args = []string{
		"testbin",
		"-l", "error",
		"-rps", "2.5",
		"-g", "localhost:3001",
	}

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, "localhost:3001", cfg.GRPCHealthAddr)
}

func TestConfigPortFallback(t *testing.T) {
	t.Setenv("PORT", "8081")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.RunAddr)

	t.Setenv("SERVER_ADDRESS", "localhost:9000")

	cfg, err = New(WithDisableFlagsParsing(true))
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", cfg.RunAddr)
}

func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown log level", key: "LOG_LEVEL", value: "verbose"},
		{name: "bad subnet", key: "TRUSTED_SUBNET", value: "10.0.0.0"},
		{name: "bad address", key: "SERVER_ADDRESS", value: "no-port"},
		{name: "unknown environment", key: "APP_ENV", value: "staging"},
		{name: "negative rate", key: "RATE_LIMIT_RPS", value: "-1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			_, err := New(WithDisableFlagsParsing(true))
			assert.Error(t, err)
		})
	}
}

func TestConfigBrokenJSON(t *testing.T) {
	t.Setenv("CONFIG", writeTempJSON(t, `{"server_address":`))

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestConfigLogFileIsDirectory(t *testing.T) {
	t.Setenv("LOG_FILE", t.TempDir())

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}
