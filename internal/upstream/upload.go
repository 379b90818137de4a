package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sync"

	"github.com/vyrodovalexey/productgw/internal/product"
)

// ImageFieldName is the multipart field carrying the image file.
const ImageFieldName = "imageFile"

// defaultImageFilename is sent when the caller has no filename.
const defaultImageFilename = "image"

// FilePart is a file to forward. Content is read once, while the request
// is being sent.
type FilePart struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// UploadImage attaches an image to the product id. The multipart body is
// produced while it is sent, so the file is never held in memory.
// Classification follows Get. A failure to read file.Content is
// returned as a *ContentError in place of whatever the aborted exchange
// reported.
func (c *Client) UploadImage(ctx context.Context, id string, file FilePart) (*product.Product, error) {
	const op = "upload_image"

	if file.Content == nil {
		return nil, fmt.Errorf("upstream %s: missing file content", op)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	req, err := c.newRequest(ctx, http.MethodPost, pr, "upload", url.PathEscape(id))
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", contentTypeJSON)

	src := &contentReader{r: file.Content}
	file.Content = src
	go func() {
		pw.CloseWithError(writeFilePart(mw, file))
	}()

	resp, err := c.do(req, op)
	if readErr := src.Err(); readErr != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		_ = pr.CloseWithError(readErr)
		return nil, &ContentError{Op: op, Err: readErr}
	}
	if err != nil {
		_ = pr.CloseWithError(err)
		return nil, err
	}
	return c.readProduct(ctx, op, resp, http.StatusOK)
}

// contentReader remembers the first read error other than io.EOF. It is
// read by the sending goroutine and inspected by the caller.
type contentReader struct {
	r io.Reader

	mu  sync.Mutex
	err error
}

func (r *contentReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		r.mu.Lock()
		if r.err == nil {
			r.err = err
		}
		r.mu.Unlock()
	}
	return n, err
}

// Err returns the recorded read error.
func (r *contentReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// writeFilePart writes file as the only part of mw and closes mw.
func writeFilePart(mw *multipart.Writer, file FilePart) error {
	filename := file.Filename
	if filename == "" {
		filename = defaultImageFilename
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     ImageFieldName,
		"filename": filename,
	}))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return fmt.Errorf("copy file content: %w", err)
	}
	return mw.Close()
}
