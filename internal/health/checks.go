package health

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/productgw/internal/circuitbreaker"
)

// CircuitBreakerCheck reports an open breaker as unhealthy and a
// half-open one as degraded. A nil breaker is always healthy.
func CircuitBreakerCheck(breaker *circuitbreaker.Breaker) CheckFunc {
	return func(context.Context) Check {
		if breaker == nil {
			return Check{Status: StatusHealthy, Message: "disabled"}
		}

		switch state := breaker.State(); state {
		case gobreaker.StateOpen:
			return Check{Status: StatusUnhealthy, Message: "circuit " + state.String()}
		case gobreaker.StateHalfOpen:
			return Check{Status: StatusDegraded, Message: "circuit " + state.String()}
		default:
			return Check{Status: StatusHealthy}
		}
	}
}

// UpstreamDialCheck reports whether a TCP connection to the host of
// baseURL can be opened. Failure is reported as degraded: the gateway
// keeps serving and maps each failed call to a gateway error.
func UpstreamDialCheck(baseURL string) (CheckFunc, error) {
	address, err := dialAddress(baseURL)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) Check {
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return Check{Status: StatusDegraded, Message: fmt.Sprintf("dial %s: %v", address, err)}
		}
		_ = conn.Close()
		return Check{Status: StatusHealthy}
	}, nil
}

// dialAddress returns host:port for baseURL, defaulting the port from
// the scheme.
func dialAddress(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid upstream URL: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("upstream URL has no host: %q", baseURL)
	}

	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		default:
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
