package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e[i].Error())
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

var (
	validShapes     = map[string]bool{"plain": true, "dto": true}
	validPolicies   = map[string]bool{"strict": true, "lenient": true}
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "console": true}
	validLogOutputs = map[string]bool{"stdout": true, "stderr": true}
)

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateConfig validates a configuration.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration and returns all errors found.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = nil

	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&cfg.Server)
	v.validateBasePath(cfg.BasePath)
	v.validateUpstream(&cfg.Upstream)
	v.validateObservability(&cfg.Observability, cfg.Server.Port)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateServer(s *ServerConfig) {
	v.validatePort("server.port", s.Port)
	if s.ReadTimeout < 0 {
		v.addError("server.readTimeout", "must not be negative")
	}
	if s.WriteTimeout < 0 {
		v.addError("server.writeTimeout", "must not be negative")
	}
	if s.IdleTimeout < 0 {
		v.addError("server.idleTimeout", "must not be negative")
	}
	if s.MaxBodySize < 0 {
		v.addError("server.maxBodySize", "must not be negative")
	}
}

func (v *Validator) validateBasePath(p string) {
	switch {
	case p == "":
		v.addError("basePath", "basePath is required")
	case !strings.HasPrefix(p, "/"):
		v.addError("basePath", "must start with '/'")
	case len(p) > 1 && strings.HasSuffix(p, "/"):
		v.addError("basePath", "must not end with '/'")
	case strings.ContainsAny(p, ":*"):
		v.addError("basePath", "must not contain path parameters")
	}
}

func (v *Validator) validateUpstream(u *UpstreamConfig) {
	if u.BaseURL == "" {
		v.addError("upstream.baseURL", "baseURL is required")
	} else if parsed, err := url.Parse(u.BaseURL); err != nil {
		v.addError("upstream.baseURL", fmt.Sprintf("invalid URL: %v", err))
	} else if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		v.addError("upstream.baseURL", "must be an absolute http or https URL")
	} else if parsed.RawQuery != "" || parsed.Fragment != "" {
		v.addError("upstream.baseURL", "must not contain a query or fragment")
	}

	if !validShapes[u.Shape] {
		v.addError("upstream.shape", "must be one of: plain, dto")
	}
	if !validPolicies[u.Policy] {
		v.addError("upstream.policy", "must be one of: strict, lenient")
	}
	if u.Timeout < 0 {
		v.addError("upstream.timeout", "must not be negative")
	}

	if u.Pool.MaxIdleConns < 0 || u.Pool.MaxIdleConnsPerHost < 0 || u.Pool.MaxConnsPerHost < 0 {
		v.addError("upstream.pool", "connection limits must not be negative")
	}

	cb := &u.CircuitBreaker
	if cb.Enabled {
		if cb.MaxRequests <= 0 {
			v.addError("upstream.circuitBreaker.maxRequests", "must be positive")
		}
		if cb.FailureThreshold <= 0 {
			v.addError("upstream.circuitBreaker.failureThreshold", "must be positive")
		}
		if cb.Timeout <= 0 {
			v.addError("upstream.circuitBreaker.timeout", "must be positive")
		}
		if cb.Interval < 0 {
			v.addError("upstream.circuitBreaker.interval", "must not be negative")
		}
	}
}

func (v *Validator) validateObservability(o *ObservabilityConfig, serverPort int) {
	if !validLogLevels[o.Logging.Level] {
		v.addError("observability.logging.level", "must be one of: debug, info, warn, error")
	}
	if !validLogFormats[o.Logging.Format] {
		v.addError("observability.logging.format", "must be one of: json, console")
	}
	if !validLogOutputs[o.Logging.Output] {
		v.addError("observability.logging.output", "must be one of: stdout, stderr")
	}

	if o.Metrics.Enabled {
		v.validatePort("observability.metrics.port", o.Metrics.Port)
		if o.Metrics.Port == serverPort {
			v.addError("observability.metrics.port", "must differ from server.port")
		}
		if !strings.HasPrefix(o.Metrics.Path, "/") {
			v.addError("observability.metrics.path", "must start with '/'")
		}
	}

	if o.Tracing.SamplingRate < 0 || o.Tracing.SamplingRate > 1 {
		v.addError("observability.tracing.samplingRate", "must be between 0 and 1")
	}
	if o.Tracing.Enabled && o.Tracing.ServiceName == "" {
		v.addError("observability.tracing.serviceName", "serviceName is required when tracing is enabled")
	}
}

func (v *Validator) validatePort(path string, port int) {
	if port < 1 || port > 65535 {
		v.addError(path, "port must be between 1 and 65535")
	}
}

// addError adds a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}
