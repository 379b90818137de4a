// Package handler exposes the product REST surface and forwards every
// request to the upstream product service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/productgw/internal/observability"
	"github.com/vyrodovalexey/productgw/internal/product"
	"github.com/vyrodovalexey/productgw/internal/upstream"
)

// ValidationPath is the route that relays upstream validation failures.
const ValidationPath = "/create-product-with-validation"

// ProductClient is the upstream surface the handler forwards to.
// *upstream.Client implements it.
type ProductClient interface {
	List(ctx context.Context) (*upstream.ProductStream, error)
	Get(ctx context.Context, id string) (*product.Product, error)
	Create(ctx context.Context, p *product.Product) (*product.Product, error)
	CreateWithValidation(ctx context.Context, p *product.Product) (*product.Product, error)
	Update(ctx context.Context, id string, p *product.Product) (*product.Product, error)
	Delete(ctx context.Context, id string) (bool, error)
	UploadImage(ctx context.Context, id string, file upstream.FilePart) (*product.Product, error)
}

// Handler serves the product routes.
type Handler struct {
	client ProductClient
	codec  product.Codec
	logger observability.Logger
}

// Option is a functional option for configuring the handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// New creates a handler forwarding to client.
func New(client ProductClient, opts ...Option) *Handler {
	h := &Handler{
		client: client,
		codec:  product.NewCodec(product.ShapePlain),
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers the product routes on group.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.POST("", h.Create)
	group.POST(ValidationPath, h.CreateWithValidation)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
	group.POST("/upload/:id", h.UploadImage)
}

// List streams all products as a JSON array, flushing after every
// element. The first element is fetched before the status is written.
func (h *Handler) List(c *gin.Context) {
	stream, err := h.client.List(c.Request.Context())
	if err != nil {
		h.fail(c, "list", err)
		return
	}
	defer func() { _ = stream.Close() }()

	if !stream.Next() {
		if err := stream.Err(); err != nil {
			h.fail(c, "list", err)
			return
		}
		c.Data(http.StatusOK, gin.MIMEJSON, []byte("[]"))
		return
	}

	c.Header("Content-Type", gin.MIMEJSON)
	c.Status(http.StatusOK)
	w := c.Writer

	if _, err := io.WriteString(w, "["); err != nil {
		h.streamWriteFailed(c, err)
		return
	}
	for first := true; ; first = false {
		if !first {
			if _, err := io.WriteString(w, ","); err != nil {
				h.streamWriteFailed(c, err)
				return
			}
		}
		if err := h.codec.Encode(w, stream.Product()); err != nil {
			h.streamWriteFailed(c, err)
			return
		}
		w.Flush()

		if !stream.Next() {
			break
		}
	}

	if err := stream.Err(); err != nil {
		_ = c.Error(err)
		h.logger.WithContext(c.Request.Context()).Error("product stream failed after response started",
			observability.Error(err),
		)
		panic(http.ErrAbortHandler)
	}

	if _, err := io.WriteString(w, "]"); err != nil {
		h.streamWriteFailed(c, err)
		return
	}
	w.Flush()
}

func (h *Handler) streamWriteFailed(c *gin.Context, err error) {
	_ = c.Error(err)
	h.logger.WithContext(c.Request.Context()).Debug("product stream write failed",
		observability.Error(err),
	)
	c.Abort()
}

// Get returns one product or 404 with an empty body.
func (h *Handler) Get(c *gin.Context) {
	p, err := h.client.Get(c.Request.Context(), c.Param("id"))
	h.respondProduct(c, "get", http.StatusOK, p, err)
}

// Create forwards a new product and answers 201 with its Location.
func (h *Handler) Create(c *gin.Context) {
	p, ok := h.bindProduct(c)
	if !ok {
		return
	}

	created, err := h.client.Create(c.Request.Context(), p)
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	h.respondCreated(c, created)
}

// CreateWithValidation is Create against the validating endpoint. An
// upstream 400 is relayed with its body unchanged.
func (h *Handler) CreateWithValidation(c *gin.Context) {
	p, ok := h.bindProduct(c)
	if !ok {
		return
	}

	created, err := h.client.CreateWithValidation(c.Request.Context(), p)
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest {
			_ = c.Error(err)
			c.Data(http.StatusBadRequest, gin.MIMEJSON, statusErr.Body)
			return
		}
		h.fail(c, "create_with_validation", err)
		return
	}
	h.respondCreated(c, created)
}

// Update replaces a product or answers 404.
func (h *Handler) Update(c *gin.Context) {
	p, ok := h.bindProduct(c)
	if !ok {
		return
	}

	updated, err := h.client.Update(c.Request.Context(), c.Param("id"), p)
	h.respondProduct(c, "update", http.StatusOK, updated, err)
}

// Delete answers 204 when upstream deleted the product and 404 otherwise.
func (h *Handler) Delete(c *gin.Context) {
	deleted, err := h.client.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "delete", err)
		return
	}
	if !deleted {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadImage forwards the imageFile part of a multipart request. The
// part is streamed to upstream as it is read.
func (h *Handler) UploadImage(c *gin.Context) {
	reader, err := c.Request.MultipartReader()
	if err != nil {
		h.badRequest(c, CodeInvalidMultipart, err)
		return
	}

	var file *upstream.FilePart
	for file == nil {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			h.badRequest(c, CodeInvalidMultipart,
				fmt.Errorf("missing multipart part %q", upstream.ImageFieldName))
			return
		}
		if err != nil {
			h.badRequest(c, CodeInvalidMultipart, err)
			return
		}
		if part.FormName() != upstream.ImageFieldName {
			_ = part.Close()
			continue
		}
		if part.FileName() == "" {
			h.badRequest(c, CodeInvalidMultipart,
				fmt.Errorf("multipart part %q is not a file", upstream.ImageFieldName))
			return
		}
		file = &upstream.FilePart{
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Content:     part,
		}
	}

	p, err := h.client.UploadImage(c.Request.Context(), c.Param("id"), *file)
	var contentErr *upstream.ContentError
	if errors.As(err, &contentErr) {
		h.badRequest(c, CodeInvalidMultipart, contentErr.Err)
		return
	}
	h.respondProduct(c, "upload_image", http.StatusOK, p, err)
}

// bindProduct decodes the inbound body. It writes the 400 itself.
func (h *Handler) bindProduct(c *gin.Context) (*product.Product, bool) {
	var p product.Product
	if err := h.codec.Decode(json.NewDecoder(c.Request.Body), &p); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		h.badRequest(c, CodeInvalidBody, err)
		return nil, false
	}
	return &p, true
}

func (h *Handler) respondProduct(c *gin.Context, op string, status int, p *product.Product, err error) {
	switch {
	case errors.Is(err, upstream.ErrNotFound):
		h.logger.WithContext(c.Request.Context()).Debug("product not found upstream",
			observability.String("op", op),
			observability.Error(err),
		)
		c.Status(http.StatusNotFound)
	case err != nil:
		h.fail(c, op, err)
	default:
		c.JSON(status, p)
	}
}

func (h *Handler) respondCreated(c *gin.Context, p *product.Product) {
	c.Header("Location", location(c.Request.URL.Path, p.ID))
	c.JSON(http.StatusCreated, p)
}

// location appends id to the request path.
func location(requestPath, id string) string {
	return strings.TrimSuffix(requestPath, "/") + "/" + url.PathEscape(id)
}
