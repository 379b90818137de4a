package upstream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vyrodovalexey/productgw/internal/product"
)

// List opens a lazy stream over all products. The response body is read
// incrementally: each call to Next decodes at most one more product, so
// the first element is available before upstream finished sending.
//
// Upstream may answer with a JSON array or with a sequence of JSON
// values (newline delimited or concatenated). An empty body is an empty
// stream. Under PolicyStrict a non-2xx status is returned as a
// *StatusError before any element is read.
func (c *Client) List(ctx context.Context) (*ProductStream, error) {
	const op = "list"

	req, err := c.newRequest(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/x-ndjson")

	resp, err := c.do(req, op)
	if err != nil {
		return nil, err
	}
	if c.policy != PolicyLenient && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return nil, c.statusError(op, resp)
	}

	return newProductStream(ctx, op, resp.Body, c.codec), nil
}

// ProductStream is a lazy, finite, ordered sequence of products. It is
// not safe for concurrent use.
//
//	stream, err := client.List(ctx)
//	if err != nil { ... }
//	defer stream.Close()
//	for stream.Next() {
//		p := stream.Product()
//	}
//	if err := stream.Err(); err != nil { ... }
type ProductStream struct {
	ctx    context.Context
	op     string
	body   io.ReadCloser
	src    *trackingReader
	reader *bufio.Reader
	dec    *json.Decoder
	codec  product.Codec

	started bool
	array   bool
	done    bool
	closed  bool

	current *product.Product
	err     error
}

func newProductStream(ctx context.Context, op string, body io.ReadCloser, codec product.Codec) *ProductStream {
	src := &trackingReader{r: body}
	return &ProductStream{
		ctx:    ctx,
		op:     op,
		body:   body,
		src:    src,
		reader: bufio.NewReader(src),
		codec:  codec,
	}
}

// Next advances to the next product. It returns false at the end of the
// sequence or on failure; Err distinguishes the two.
func (s *ProductStream) Next() bool {
	if s.done {
		return false
	}
	if !s.started && !s.start() {
		return false
	}

	if s.array && !s.dec.More() {
		if _, err := s.dec.Token(); err != nil {
			s.fail(err)
			return false
		}
		s.finish()
		return false
	}

	var p product.Product
	if err := s.codec.Decode(s.dec, &p); err != nil {
		if !s.array && errors.Is(err, io.EOF) {
			s.finish()
			return false
		}
		s.fail(err)
		return false
	}

	s.current = &p
	getClientMetrics().streamedItems.Inc()
	return true
}

// Product returns the product read by the last successful call to Next.
func (s *ProductStream) Product() *product.Product {
	return s.current
}

// Err returns the failure that ended the stream, or nil if it completed.
func (s *ProductStream) Err() error {
	return s.err
}

// Close releases the upstream response. Closing before the end aborts
// the transfer. It is safe to call more than once.
func (s *ProductStream) Close() error {
	s.done = true
	s.current = nil
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

// start inspects the first significant byte to pick the framing.
func (s *ProductStream) start() bool {
	s.started = true

	for {
		b, err := s.reader.ReadByte()
		if errors.Is(err, io.EOF) {
			s.finish()
			return false
		}
		if err != nil {
			s.fail(err)
			return false
		}
		if isJSONSpace(b) {
			continue
		}
		_ = s.reader.UnreadByte()
		s.array = b == '['
		break
	}

	s.dec = json.NewDecoder(s.reader)
	if s.array {
		if _, err := s.dec.Token(); err != nil {
			s.fail(err)
			return false
		}
	}
	return true
}

func (s *ProductStream) finish() {
	s.current = nil
	s.done = true
	if !s.closed {
		s.closed = true
		drainAndClose(s.body)
	}
}

// fail ends the stream. Failures to read the body are transport errors;
// everything else is a decode error.
func (s *ProductStream) fail(err error) {
	switch {
	case s.ctx.Err() != nil:
		s.err = &TransportError{Op: s.op, Err: s.ctx.Err()}
	case s.src.err != nil:
		s.err = &TransportError{Op: s.op, Err: s.src.err}
	default:
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		getClientMetrics().errorsTotal.WithLabelValues(s.op, "decode").Inc()
		s.err = &DecodeError{Op: s.op, Err: err}
	}

	s.current = nil
	s.done = true
	if !s.closed {
		s.closed = true
		_ = s.body.Close()
	}
}

// trackingReader remembers the first read error other than io.EOF.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && t.err == nil {
		t.err = err
	}
	return n, err
}

func isJSONSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
