package upstream

import (
	"cmp"
	"net"
	"net/http"
	"time"
)

// PoolConfig sizes the connection pool shared by all upstream calls.
// Zero limits mean unlimited, as in http.Transport.
type PoolConfig struct {
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	MaxConnsPerHost       int
	IdleConnTimeout       time.Duration
	ResponseHeaderTimeout time.Duration
	DialTimeout           time.Duration
}

// DefaultPoolConfig returns the pool used when none is configured. All
// traffic goes to one host, so the per-host limits matter most.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		MaxConnsPerHost:       0,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		DialTimeout:           10 * time.Second,
	}
}

// NewTransport returns a copy of http.DefaultTransport sized by cfg.
// ResponseHeaderTimeout bounds only the wait for headers; a list body
// may take as long as upstream needs to stream it.
func NewTransport(cfg PoolConfig) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()

	dialer := &net.Dialer{
		Timeout:   cmp.Or(cfg.DialTimeout, 30*time.Second),
		KeepAlive: 30 * time.Second,
	}
	t.DialContext = dialer.DialContext
	t.MaxIdleConns = cfg.MaxIdleConns
	t.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	t.MaxConnsPerHost = cfg.MaxConnsPerHost
	t.IdleConnTimeout = cfg.IdleConnTimeout
	t.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout
	return t
}
