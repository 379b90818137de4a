package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/productgw/internal/config"
	"github.com/vyrodovalexey/productgw/internal/middleware"
	"github.com/vyrodovalexey/productgw/internal/observability"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("PRODUCTGW_TEST_SET", "value")

	assert.Equal(t, "value", getEnvOrDefault("PRODUCTGW_TEST_SET", "default"))
	assert.Equal(t, "default", getEnvOrDefault("PRODUCTGW_TEST_UNSET", "default"))
}

func TestLoadEnvFile(t *testing.T) {
	const key = "PRODUCTGW_TEST_DOTENV"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o600))

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv(key))

	assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	assert.NoError(t, loadEnvFile(""))
}

func TestLoggerConfig(t *testing.T) {
	t.Parallel()

	logging := &config.LoggingConfig{Level: "warn", Format: "console", Output: "stderr"}

	tests := []struct {
		name    string
		flags   cliFlags
		logging *config.LoggingConfig
		want    observability.LogConfig
		wantErr bool
	}{
		{name: "defaults", want: observability.DefaultLogConfig()},
		{name: "from config", logging: logging, want: observability.LogConfig{Level: "warn", Format: "console", Output: "stderr"}},
		{
			name:    "flags override config",
			flags:   cliFlags{logLevel: "debug", logFormat: "json"},
			logging: logging,
			want:    observability.LogConfig{Level: "debug", Format: "json", Output: "stderr"},
		},
		{name: "unknown format", flags: cliFlags{logFormat: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := loggerConfig(tt.flags, tt.logging)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewUpstreamClient(t *testing.T) {
	t.Parallel()

	logger := observability.NopLogger()

	cfg := config.DefaultConfig().Upstream
	client, err := newUpstreamClient(cfg, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultUpstreamBaseURL, client.BaseURL())
	assert.Nil(t, client.Breaker())

	cfg.CircuitBreaker.Enabled = true
	breaker := newCircuitBreaker(cfg.CircuitBreaker, logger)
	require.NotNil(t, breaker)
	client, err = newUpstreamClient(cfg, breaker, logger)
	require.NoError(t, err)
	assert.Same(t, breaker, client.Breaker())

	bad := config.DefaultConfig().Upstream
	bad.Shape = "xml"
	_, err = newUpstreamClient(bad, nil, logger)
	assert.Error(t, err)

	bad = config.DefaultConfig().Upstream
	bad.Policy = "optimistic"
	_, err = newUpstreamClient(bad, nil, logger)
	assert.Error(t, err)

	assert.Nil(t, newCircuitBreaker(config.DefaultConfig().Upstream.CircuitBreaker, logger))
}

func TestInitApplication(t *testing.T) {
	t.Parallel()

	upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","name":"Pen","price":1.25,"createAt":"2024-01-02"}`)
	}))
	t.Cleanup(upstreamServer.Close)

	cfg := config.DefaultConfig()
	cfg.Upstream.BaseURL = upstreamServer.URL + "/products"
	cfg.Upstream.CircuitBreaker.Enabled = true

	app, err := initApplication(cfg, observability.NopLogger())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	app.server.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, config.DefaultBasePath+"/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"id":"1","name":"Pen","price":1.25,"createAt":"2024-01-02","image":null,"category":null}`,
		w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = httptest.NewRecorder()
	app.server.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, config.DefaultBasePath+"/2", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	ops := newOpsHandler("/metrics", app)

	w = httptest.NewRecorder()
	ops.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `productgw_requests_total{method="GET",route="/api/v1/client-app/:id",status="200"} 1`)
	assert.Contains(t, w.Body.String(), "productgw_build_info")

	w = httptest.NewRecorder()
	ops.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"circuit_breaker"`)

	w = httptest.NewRecorder()
	ops.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestApplyConfigChange(t *testing.T) {
	t.Parallel()

	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	oldCfg := config.DefaultConfig()
	app := &application{config: oldCfg, logger: logger}

	newCfg := config.DefaultConfig()
	newCfg.Observability.Logging.Level = "debug"
	newCfg.Upstream.Policy = "lenient"

	applyConfigChange(app, newCfg, logger)

	assert.Equal(t, "debug", logger.Level())
	assert.Same(t, newCfg, app.currentConfig())
}
