package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// receivedPart is what the test upstream saw of the uploaded file.
type receivedPart struct {
	path        string
	contentType string
	formName    string
	filename    string
	partType    string
	content     string
	parts       int
}

// uploadUpstream records the multipart request and answers with status and body.
func uploadUpstream(got *receivedPart, status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.contentType = r.Header.Get("Content-Type")

		reader, err := r.MultipartReader()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for {
			part, err := reader.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(part)
			got.parts++
			got.formName = part.FormName()
			got.filename = part.FileName()
			got.partType = part.Header.Get("Content-Type")
			got.content = string(data)
		}
		respond(status, body)(w, r)
	}
}

func TestClient_UploadImage(t *testing.T) {
	t.Parallel()

	var got receivedPart
	client := newTestClient(t, uploadUpstream(&got, http.StatusOK, penJSON))

	p, err := client.UploadImage(context.Background(), "1", FilePart{
		Filename:    "pen.png",
		ContentType: "image/png",
		Content:     strings.NewReader("PNGDATA"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Pen", p.Name)

	assert.Equal(t, "/products/upload/1", got.path)
	assert.True(t, strings.HasPrefix(got.contentType, "multipart/form-data; boundary="))
	assert.Equal(t, 1, got.parts)
	assert.Equal(t, ImageFieldName, got.formName)
	assert.Equal(t, "pen.png", got.filename)
	assert.Equal(t, "image/png", got.partType)
	assert.Equal(t, "PNGDATA", got.content)
}

func TestClient_UploadImage_PartDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		filename     string
		contentType  string
		wantFilename string
		wantType     string
	}{
		{name: "defaults", wantFilename: defaultImageFilename, wantType: "application/octet-stream"},
		{name: "decomposed filename unchanged", filename: "cafe\u0301.png", contentType: "image/png",
			wantFilename: "cafe\u0301.png", wantType: "image/png"},
		{name: "precomposed filename unchanged", filename: "caf\u00e9.png", contentType: "image/png",
			wantFilename: "caf\u00e9.png", wantType: "image/png"},
		{name: "quoted filename", filename: `my "best" pen.jpg`, contentType: "image/jpeg",
			wantFilename: `my "best" pen.jpg`, wantType: "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got receivedPart
			client := newTestClient(t, uploadUpstream(&got, http.StatusOK, penJSON))

			_, err := client.UploadImage(context.Background(), "1", FilePart{
				Filename:    tt.filename,
				ContentType: tt.contentType,
				Content:     strings.NewReader("x"),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantFilename, got.filename)
			assert.Equal(t, tt.wantType, got.partType)
		})
	}
}

func TestClient_UploadImage_Classification(t *testing.T) {
	t.Parallel()

	t.Run("strict non-200 is absence", func(t *testing.T) {
		t.Parallel()
		var got receivedPart
		client := newTestClient(t, uploadUpstream(&got, http.StatusNotFound, `{"error":"missing"}`))

		p, err := client.UploadImage(context.Background(), "9", FilePart{Content: strings.NewReader("x")})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, p)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		var got receivedPart
		client := newTestClient(t, uploadUpstream(&got, http.StatusOK, "{"))

		_, err := client.UploadImage(context.Background(), "9", FilePart{Content: strings.NewReader("x")})
		var decodeErr *DecodeError
		assert.ErrorAs(t, err, &decodeErr)
	})

	t.Run("missing content", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusOK)
		})

		_, err := client.UploadImage(context.Background(), "9", FilePart{Filename: "a.png"})
		assert.Error(t, err)
		assert.Zero(t, calls.Load())
	})
}

var errDiskOnFire = errors.New("disk on fire")

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errDiskOnFire
}

func TestClient_UploadImage_ContentFailure(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		respond(http.StatusOK, penJSON)(w, r)
	})

	p, err := client.UploadImage(context.Background(), "1", FilePart{Content: failingReader{}})
	assert.Nil(t, p)

	var contentErr *ContentError
	require.ErrorAs(t, err, &contentErr)
	assert.Equal(t, "upload_image", contentErr.Op)
	assert.ErrorIs(t, err, errDiskOnFire)

	var transportErr *TransportError
	assert.False(t, errors.As(err, &transportErr))
}

func TestClient_UploadImage_ContentFailureAfterData(t *testing.T) {
	t.Parallel()

	limited := http.MaxBytesReader(nil, io.NopCloser(strings.NewReader(strings.Repeat("x", 64<<10))), 1<<10)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		respond(http.StatusOK, penJSON)(w, r)
	})

	_, err := client.UploadImage(context.Background(), "1", FilePart{Content: limited})

	var maxBytesErr *http.MaxBytesError
	require.ErrorAs(t, err, &maxBytesErr)
	assert.Equal(t, int64(1<<10), maxBytesErr.Limit)
}
