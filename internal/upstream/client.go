package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vyrodovalexey/productgw/internal/circuitbreaker"
	"github.com/vyrodovalexey/productgw/internal/observability"
	"github.com/vyrodovalexey/productgw/internal/product"
)

const (
	contentTypeJSON = "application/json"

	// maxErrorBodySize bounds how much of a rejected response is kept.
	maxErrorBodySize = 1 << 20

	// maxDrainSize bounds how much of an unread body is discarded so the
	// connection can be reused.
	maxDrainSize = 64 << 10
)

// Policy selects how read operations classify upstream statuses.
type Policy string

const (
	// PolicyStrict decodes only the expected success status and treats
	// everything else as absence.
	PolicyStrict Policy = "strict"

	// PolicyLenient decodes any response that has a body and treats an
	// empty body as absence.
	PolicyLenient Policy = "lenient"
)

// ParsePolicy parses a policy name. An empty name selects PolicyStrict.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyLenient:
		return PolicyLenient, nil
	default:
		return "", fmt.Errorf("unknown upstream policy %q", s)
	}
}

// errServerStatus marks a 5xx response as a breaker failure. It never
// leaves this package.
var errServerStatus = errors.New("upstream server error status")

// Client issues one outbound HTTP call per product operation against a
// fixed base URL. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	codec      product.Codec
	policy     Policy
	breaker    *circuitbreaker.Breaker
	logger     observability.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. The client owns its transport.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithShape sets the product wire shape used with upstream.
func WithShape(shape product.Shape) Option {
	return func(c *Client) {
		c.codec = product.NewCodec(shape)
	}
}

// WithPolicy sets the status classification policy of read operations.
func WithPolicy(policy Policy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithCircuitBreaker guards every call with breaker.
func WithCircuitBreaker(breaker *circuitbreaker.Breaker) Option {
	return func(c *Client) {
		c.breaker = breaker
	}
}

// NewHTTPClient returns an HTTP client over a pooled, trace-propagating
// transport. A zero timeout leaves the exchange bounded only by the
// request context.
func NewHTTPClient(pool PoolConfig, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(NewTransport(pool),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "upstream " + r.Method
			}),
		),
		Timeout: timeout,
	}
}

// New creates a client for the given absolute base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("upstream base URL must be absolute: %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		codec:   product.NewCodec(product.ShapePlain),
		policy:  PolicyStrict,
		logger:  observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(DefaultPoolConfig(), 0)
	}

	return c, nil
}

// BaseURL returns the upstream base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Breaker returns the circuit breaker, or nil when none is configured.
func (c *Client) Breaker() *circuitbreaker.Breaker {
	return c.breaker
}

// Get fetches one product. Any status other than the policy's success
// status yields ErrNotFound.
func (c *Client) Get(ctx context.Context, id string) (*product.Product, error) {
	const op = "get"

	req, err := c.newRequest(ctx, http.MethodGet, nil, url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", contentTypeJSON)

	resp, err := c.do(req, op)
	if err != nil {
		return nil, err
	}
	return c.readProduct(ctx, op, resp, http.StatusOK)
}

// Create posts p and returns the product as stored by upstream. Any
// non-2xx status is returned as a *StatusError.
func (c *Client) Create(ctx context.Context, p *product.Product) (*product.Product, error) {
	const op = "create"

	resp, err := c.sendProduct(ctx, op, http.MethodPost, p)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(op, resp)
	}
	return c.decodeRequired(ctx, op, resp)
}

// CreateWithValidation posts p to the validating endpoint. Only 201 is
// decoded; any other status is returned as a *StatusError carrying the
// raw upstream body.
func (c *Client) CreateWithValidation(ctx context.Context, p *product.Product) (*product.Product, error) {
	const op = "create_with_validation"

	resp, err := c.sendProduct(ctx, op, http.MethodPost, p, "create-product-with-validation")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, c.statusError(op, resp)
	}
	return c.decodeRequired(ctx, op, resp)
}

// Update replaces the product id with p. Classification follows Get.
func (c *Client) Update(ctx context.Context, id string, p *product.Product) (*product.Product, error) {
	const op = "update"

	resp, err := c.sendProduct(ctx, op, http.MethodPut, p, url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return c.readProduct(ctx, op, resp, http.StatusOK)
}

// Delete removes the product id. It reports true only for 204; the
// response body is ignored.
func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	const op = "delete"

	req, err := c.newRequest(ctx, http.MethodDelete, nil, url.PathEscape(id))
	if err != nil {
		return false, err
	}

	resp, err := c.do(req, op)
	if err != nil {
		return false, err
	}
	drainAndClose(resp.Body)

	return resp.StatusCode == http.StatusNoContent, nil
}

// endpoint joins already escaped path segments onto the base URL.
func (c *Client) endpoint(segments ...string) string {
	if len(segments) == 0 {
		return c.baseURL
	}
	return c.baseURL + "/" + strings.Join(segments, "/")
}

func (c *Client) newRequest(ctx context.Context, method string, body io.Reader, segments ...string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(segments...), body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	return req, nil
}

// sendProduct issues a request with p encoded in the configured shape.
func (c *Client) sendProduct(
	ctx context.Context,
	op, method string,
	p *product.Product,
	segments ...string,
) (*http.Response, error) {
	body, err := c.codec.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("upstream %s: encode request: %w", op, err)
	}

	req, err := c.newRequest(ctx, method, bytes.NewReader(body), segments...)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)

	return c.do(req, op)
}

// do sends req through the breaker and records metrics. The returned
// response has not been classified; the caller owns its body.
func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	m := getClientMetrics()
	start := time.Now()

	send := func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	}

	var (
		result interface{}
		err    error
	)
	if c.breaker != nil {
		result, err = c.breaker.Execute(send)
	} else {
		result, err = send()
	}

	if errors.Is(err, circuitbreaker.ErrOpen) {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		m.errorsTotal.WithLabelValues(op, "circuit_open").Inc()
		return nil, fmt.Errorf("upstream %s: %w: %w", op, ErrCircuitOpen, err)
	}
	if err != nil && !errors.Is(err, errServerStatus) {
		errType := transportErrorType(err)
		m.errorsTotal.WithLabelValues(op, errType).Inc()
		c.logger.WithContext(req.Context()).Debug("upstream call failed",
			observability.String("op", op),
			observability.String("error_type", errType),
			observability.Error(err),
		)
		return nil, &TransportError{Op: op, Err: err}
	}

	resp, _ := result.(*http.Response)
	duration := time.Since(start)
	m.requestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	m.requestDuration.WithLabelValues(op).Observe(duration.Seconds())

	c.logger.WithContext(req.Context()).Debug("upstream call completed",
		observability.String("op", op),
		observability.String("method", req.Method),
		observability.String("url", req.URL.Redacted()),
		observability.Int("status", resp.StatusCode),
		observability.Duration("duration", duration),
	)

	return resp, nil
}

// readProduct applies the read policy to resp and closes its body.
func (c *Client) readProduct(ctx context.Context, op string, resp *http.Response, want int) (*product.Product, error) {
	if c.policy != PolicyLenient && resp.StatusCode != want {
		drainAndClose(resp.Body)
		return nil, notFound(op, resp.StatusCode)
	}

	p, err := c.decode(ctx, op, resp)
	if errors.Is(err, io.EOF) {
		if c.policy == PolicyLenient {
			return nil, notFound(op, resp.StatusCode)
		}
		return nil, &DecodeError{Op: op, Err: io.ErrUnexpectedEOF}
	}
	return p, err
}

// decodeRequired decodes resp and treats an empty body as a decode failure.
func (c *Client) decodeRequired(ctx context.Context, op string, resp *http.Response) (*product.Product, error) {
	p, err := c.decode(ctx, op, resp)
	if errors.Is(err, io.EOF) {
		return nil, &DecodeError{Op: op, Err: io.ErrUnexpectedEOF}
	}
	return p, err
}

// decode reads exactly one product from resp and closes its body. An
// empty body is reported as io.EOF.
func (c *Client) decode(ctx context.Context, op string, resp *http.Response) (*product.Product, error) {
	defer drainAndClose(resp.Body)

	var p product.Product
	err := c.codec.Decode(json.NewDecoder(resp.Body), &p)
	switch {
	case err == nil:
		return &p, nil
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	case ctx.Err() != nil:
		return nil, &TransportError{Op: op, Err: ctx.Err()}
	default:
		getClientMetrics().errorsTotal.WithLabelValues(op, "decode").Inc()
		return nil, &DecodeError{Op: op, Err: err}
	}
}

// statusError captures resp as a *StatusError and closes its body.
func (c *Client) statusError(op string, resp *http.Response) error {
	defer drainAndClose(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read error response: %w", err)}
	}
	getClientMetrics().errorsTotal.WithLabelValues(op, "status").Inc()

	return &StatusError{
		Op:          op,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
}

// drainAndClose discards a bounded amount of body so the connection can
// return to the pool, then closes it.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrainSize))
	_ = body.Close()
}

// transportErrorType returns a bounded label for a transport failure.
func transportErrorType(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	default:
		return "connection"
	}
}
