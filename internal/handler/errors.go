package handler

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/productgw/internal/observability"
	"github.com/vyrodovalexey/productgw/internal/upstream"
)

// Error codes used in error response bodies.
const (
	CodeInvalidBody         = "invalid_body"
	CodeBodyTooLarge        = "body_too_large"
	CodeInvalidMultipart    = "invalid_multipart"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeUpstreamTimeout     = "upstream_timeout"
	CodeUpstreamUnreachable = "upstream_unreachable"
	CodeUpstreamInvalid     = "upstream_invalid_response"
	CodeUpstreamError       = "upstream_error"
	CodeInternal            = "internal_error"
)

// ErrorResponse is the body of every error the handler produces itself.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}

// classify maps an upstream failure to a response status and error code.
func classify(err error) (status int, code string) {
	var (
		transportErr *upstream.TransportError
		decodeErr    *upstream.DecodeError
		statusErr    *upstream.StatusError
		netErr       net.Error
	)

	switch {
	case errors.Is(err, upstream.ErrCircuitOpen):
		return http.StatusServiceUnavailable, CodeUpstreamUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return http.StatusGatewayTimeout, CodeUpstreamTimeout
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, CodeUpstreamUnreachable
	case errors.As(err, &decodeErr):
		return http.StatusBadGateway, CodeUpstreamInvalid
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, CodeUpstreamError
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// fail writes the response for a fatal upstream failure. When the inbound
// client has gone away nothing is written.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	ctx := c.Request.Context()
	logger := h.logger.WithContext(ctx)
	_ = c.Error(err)

	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		logger.Debug("client canceled request",
			observability.String("op", op),
			observability.Error(err),
		)
		c.Abort()
		return
	}

	status, code := classify(err)
	logger.Error("upstream operation failed",
		observability.String("op", op),
		observability.Int("status", status),
		observability.String("code", code),
		observability.Error(err),
	)
	abortWithError(c, status, code, http.StatusText(status))
}

// badRequest rejects malformed inbound input.
func (h *Handler) badRequest(c *gin.Context, code string, err error) {
	_ = c.Error(err)

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		abortWithError(c, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, err.Error())
		return
	}

	h.logger.WithContext(c.Request.Context()).Debug("rejected inbound request",
		observability.String("code", code),
		observability.Error(err),
	)
	abortWithError(c, http.StatusBadRequest, code, err.Error())
}
