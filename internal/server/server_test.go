package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	s := New(nil, nil)
	require.NotNil(t, s.Engine())
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.Addr())
	assert.Equal(t, time.Duration(0), s.config.WriteTimeout)
}

func TestServer_NoRouteAndNoMethod(t *testing.T) {
	t.Parallel()

	s := New(DefaultConfig(), nil)
	s.Group("/api").GET("/items", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not_found","message":"No route matched the request"}`, w.Body.String())

	w = httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/items", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_MaxRequestBodySize(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MaxRequestBodySize = 8
	s := New(cfg, nil)
	s.Engine().POST("/echo", func(c *gin.Context) {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.String(http.StatusOK, string(data))
	})

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "small", w.Body.String())

	w = httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("far too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestServer_ServeAndStop(t *testing.T) {
	t.Parallel()

	s := New(DefaultConfig(), nil)
	s.Engine().GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(listener) }()

	require.Eventually(t, s.IsRunning, time.Second, 10*time.Millisecond)
	require.NotNil(t, s.Addr())

	resp, err := http.Get("http://" + s.Addr().String() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	other, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Error(t, s.Serve(other))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	require.NoError(t, <-errCh)

	assert.NoError(t, s.Stop(ctx))
}

func TestServer_StartInvalidAddress(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Address = "256.256.256.256"
	cfg.Port = 1

	err := New(cfg, nil).Start(context.Background())
	assert.Error(t, err)
}
