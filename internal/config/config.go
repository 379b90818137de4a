// Package config provides configuration types, loading, validation and
// hot reload for the product forwarding service.
package config

import "time"

// Default values.
const (
	DefaultBasePath        = "/api/v1/client-app"
	DefaultUpstreamBaseURL = "http://service-product-api-rest/api/v2/products"
	DefaultServiceName     = "productgw"
)

// Config is the root configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	BasePath      string              `yaml:"basePath" json:"basePath"`
	Upstream      UpstreamConfig      `yaml:"upstream" json:"upstream"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ServerConfig configures the inbound HTTP server.
type ServerConfig struct {
	Address        string   `yaml:"address" json:"address"`
	Port           int      `yaml:"port" json:"port"`
	ReadTimeout    Duration `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout   Duration `yaml:"writeTimeout" json:"writeTimeout"`
	IdleTimeout    Duration `yaml:"idleTimeout" json:"idleTimeout"`
	MaxHeaderBytes int      `yaml:"maxHeaderBytes" json:"maxHeaderBytes"`
	MaxBodySize    int64    `yaml:"maxBodySize" json:"maxBodySize"`
}

// UpstreamConfig configures the upstream product service client.
type UpstreamConfig struct {
	BaseURL string `yaml:"baseURL" json:"baseURL"`

	// Shape is the product wire shape: plain or dto.
	Shape string `yaml:"shape" json:"shape"`

	// Policy is the status classification policy: strict or lenient.
	Policy string `yaml:"policy" json:"policy"`

	// Timeout bounds a whole exchange. Zero means no client timeout.
	Timeout Duration `yaml:"timeout" json:"timeout"`

	Pool           PoolConfig           `yaml:"pool" json:"pool"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker" json:"circuitBreaker"`
}

// PoolConfig configures the upstream connection pool.
type PoolConfig struct {
	MaxIdleConns          int      `yaml:"maxIdleConns" json:"maxIdleConns"`
	MaxIdleConnsPerHost   int      `yaml:"maxIdleConnsPerHost" json:"maxIdleConnsPerHost"`
	MaxConnsPerHost       int      `yaml:"maxConnsPerHost" json:"maxConnsPerHost"`
	IdleConnTimeout       Duration `yaml:"idleConnTimeout" json:"idleConnTimeout"`
	ResponseHeaderTimeout Duration `yaml:"responseHeaderTimeout" json:"responseHeaderTimeout"`
	DialTimeout           Duration `yaml:"dialTimeout" json:"dialTimeout"`
}

// CircuitBreakerConfig configures the optional upstream circuit breaker.
type CircuitBreakerConfig struct {
	Enabled          bool     `yaml:"enabled" json:"enabled"`
	MaxRequests      int      `yaml:"maxRequests" json:"maxRequests"`
	Interval         Duration `yaml:"interval" json:"interval"`
	Timeout          Duration `yaml:"timeout" json:"timeout"`
	FailureThreshold int      `yaml:"failureThreshold" json:"failureThreshold"`
}

// ObservabilityConfig groups logging, metrics and tracing.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// MetricsConfig configures the metrics and health server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"serviceName" json:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" json:"otlpEndpoint"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    Duration(30 * time.Second),
			WriteTimeout:   Duration(0),
			IdleTimeout:    Duration(120 * time.Second),
			MaxHeaderBytes: 1 << 20,
			MaxBodySize:    10 << 20,
		},
		BasePath: DefaultBasePath,
		Upstream: UpstreamConfig{
			BaseURL: DefaultUpstreamBaseURL,
			Shape:   "plain",
			Policy:  "strict",
			Pool: PoolConfig{
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   32,
				MaxConnsPerHost:       0,
				IdleConnTimeout:       Duration(90 * time.Second),
				ResponseHeaderTimeout: Duration(30 * time.Second),
				DialTimeout:           Duration(10 * time.Second),
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          false,
				MaxRequests:      5,
				Interval:         Duration(60 * time.Second),
				Timeout:          Duration(30 * time.Second),
				FailureThreshold: 10,
			},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
			Metrics: MetricsConfig{Enabled: true, Port: 9090, Path: "/metrics"},
			Tracing: TracingConfig{ServiceName: DefaultServiceName, SamplingRate: 1.0},
		},
	}
}
