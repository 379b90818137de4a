package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/productgw/internal/observability"
)

// LoggingConfig holds configuration for the logging middleware.
type LoggingConfig struct {
	Logger    observability.Logger
	SkipPaths []string
}

// Logging returns a middleware that writes one access log entry per
// request.
func Logging(logger observability.Logger) gin.HandlerFunc {
	return LoggingWithConfig(LoggingConfig{Logger: logger})
}

// LoggingWithConfig returns a logging middleware with custom configuration.
func LoggingWithConfig(config LoggingConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = observability.NopLogger()
	}

	skipPaths := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skipPaths[path] {
			c.Next()
			return
		}

		start := time.Now()
		completed := false
		defer func() {
			logRequest(config.Logger, c, path, start, !completed)
		}()
		c.Next()
		completed = true
	}
}

// logRequest writes the access log entry. An aborted request is one whose
// handler chain unwound with a panic, such as a stream cut off after its
// head was written.
func logRequest(base observability.Logger, c *gin.Context, path string, start time.Time, aborted bool) {
	status := c.Writer.Status()
	fields := []observability.Field{
		observability.String("method", c.Request.Method),
		observability.String("path", path),
		observability.String("route", c.FullPath()),
		observability.String("query", c.Request.URL.RawQuery),
		observability.Int("status", status),
		observability.Duration("latency", time.Since(start)),
		observability.String("clientIP", c.ClientIP()),
		observability.String("userAgent", c.Request.UserAgent()),
		observability.Int("bodySize", c.Writer.Size()),
	}
	if len(c.Errors) > 0 {
		fields = append(fields, observability.String("errors", c.Errors.String()))
	}

	logger := base.WithContext(c.Request.Context())
	switch {
	case aborted:
		logger.Error("request aborted", fields...)
	case status >= 500:
		logger.Error("request completed", fields...)
	case status >= 400:
		logger.Warn("request completed", fields...)
	default:
		logger.Info("request completed", fields...)
	}
}
