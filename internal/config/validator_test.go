package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig_Default(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateConfig(DefaultConfig()))
}

func TestValidateConfig_Nil(t *testing.T) {
	t.Parallel()

	err := ValidateConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is nil")
}

func TestValidateConfig_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{name: "port zero", mutate: func(c *Config) { c.Server.Port = 0 }, path: "server.port"},
		{name: "negative read timeout", mutate: func(c *Config) { c.Server.ReadTimeout = -1 }, path: "server.readTimeout"},
		{name: "empty base path", mutate: func(c *Config) { c.BasePath = "" }, path: "basePath"},
		{name: "relative base path", mutate: func(c *Config) { c.BasePath = "api" }, path: "basePath"},
		{name: "trailing slash", mutate: func(c *Config) { c.BasePath = "/api/" }, path: "basePath"},
		{name: "parameter in base path", mutate: func(c *Config) { c.BasePath = "/api/:tenant" }, path: "basePath"},
		{name: "missing base URL", mutate: func(c *Config) { c.Upstream.BaseURL = "" }, path: "upstream.baseURL"},
		{name: "relative base URL", mutate: func(c *Config) { c.Upstream.BaseURL = "/api/v2/products" }, path: "upstream.baseURL"},
		{name: "ftp base URL", mutate: func(c *Config) { c.Upstream.BaseURL = "ftp://host/products" }, path: "upstream.baseURL"},
		{name: "base URL with query", mutate: func(c *Config) { c.Upstream.BaseURL = "http://host/p?x=1" }, path: "upstream.baseURL"},
		{name: "unknown shape", mutate: func(c *Config) { c.Upstream.Shape = "xml" }, path: "upstream.shape"},
		{name: "unknown policy", mutate: func(c *Config) { c.Upstream.Policy = "optimistic" }, path: "upstream.policy"},
		{name: "negative pool", mutate: func(c *Config) { c.Upstream.Pool.MaxConnsPerHost = -1 }, path: "upstream.pool"},
		{
			name: "breaker without threshold",
			mutate: func(c *Config) {
				c.Upstream.CircuitBreaker.Enabled = true
				c.Upstream.CircuitBreaker.FailureThreshold = 0
			},
			path: "upstream.circuitBreaker.failureThreshold",
		},
		{name: "bad log level", mutate: func(c *Config) { c.Observability.Logging.Level = "trace" }, path: "observability.logging.level"},
		{name: "bad log format", mutate: func(c *Config) { c.Observability.Logging.Format = "xml" }, path: "observability.logging.format"},
		{name: "metrics port clash", mutate: func(c *Config) { c.Observability.Metrics.Port = c.Server.Port }, path: "observability.metrics.port"},
		{name: "metrics path", mutate: func(c *Config) { c.Observability.Metrics.Path = "metrics" }, path: "observability.metrics.path"},
		{name: "sampling rate", mutate: func(c *Config) { c.Observability.Tracing.SamplingRate = 1.5 }, path: "observability.tracing.samplingRate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			require.Error(t, err)

			var errs ValidationErrors
			require.ErrorAs(t, err, &errs)
			found := false
			for _, e := range errs {
				if e.Path == tt.path {
					found = true
				}
			}
			assert.True(t, found, "expected error at %s, got %v", tt.path, errs)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())

	one := ValidationErrors{{Path: "a", Message: "bad"}}
	assert.Equal(t, "a: bad", one.Error())

	two := ValidationErrors{{Path: "a", Message: "bad"}, {Message: "worse"}}
	assert.Contains(t, two.Error(), "2 validation errors")
	assert.Contains(t, two.Error(), "2. worse")
}

func TestRestartRequired(t *testing.T) {
	t.Parallel()

	oldCfg := DefaultConfig()
	newCfg := DefaultConfig()
	newCfg.Observability.Logging.Level = "debug"
	assert.Empty(t, RestartRequired(oldCfg, newCfg), "log level is applied live")

	newCfg.Upstream.Policy = "lenient"
	newCfg.BasePath = "/v2"
	assert.Equal(t, []string{"basePath", "upstream"}, RestartRequired(oldCfg, newCfg))

	assert.Nil(t, RestartRequired(nil, newCfg))
}
