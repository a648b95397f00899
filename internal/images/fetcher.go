package images

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxBytes caps how much of a remote image is read.
const DefaultMaxBytes = 10 * 1024 * 1024

// Fetcher turns image references into raw bytes and a media type
type Fetcher struct {
	HTTPClient *http.Client
	MaxBytes   int64

	group singleflight.Group
}

type fetched struct {
	data      []byte
	mediaType string
}

// NewFetcher creates a new image fetcher
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		MaxBytes: DefaultMaxBytes,
	}
}

// Resolve returns the bytes and media type behind ref. Inline references are
// returned as-is; remote references are downloaded.
func (f *Fetcher) Resolve(ctx context.Context, ref Ref) ([]byte, string, error) {
	switch ref.Kind() {
	case KindInline:
		return ref.Data(), ref.MediaType(), nil
	case KindRemote:
		return f.fetchRemote(ctx, ref.URI())
	default:
		return nil, "", fmt.Errorf("cannot resolve empty image reference")
	}
}

// fetchRemote collapses concurrent downloads of the same URI into one request.
// The shared download is detached from any one caller's cancellation and is
// bounded by the client timeout; each caller still returns on its own ctx.
func (f *Fetcher) fetchRemote(ctx context.Context, uri string) ([]byte, string, error) {
	ch := f.group.DoChan(uri, func() (interface{}, error) {
		return f.download(context.WithoutCancel(ctx), uri)
	})

	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("failed to fetch image: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, "", res.Err
		}
		if res.Shared {
			slog.Debug("Shared in-flight image download", "url", uri)
		}
		img := res.Val.(*fetched)
		return bytes.Clone(img.data), img.mediaType, nil
	}
}

func (f *Fetcher) download(ctx context.Context, uri string) (*fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image too large (max %d bytes)", limit)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image URL returned an empty body")
	}

	mediaType := DetectMediaType(resp.Header.Get("Content-Type"), data)
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, fmt.Errorf("URL did not return an image (got %s)", mediaType)
	}

	slog.Debug("Fetched remote image", "url", uri, "bytes", len(data), "media_type", mediaType)
	return &fetched{data: data, mediaType: mediaType}, nil
}

// DetectMediaType prefers a declared image Content-Type and otherwise sniffs
// the payload.
func DetectMediaType(contentType string, data []byte) string {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(mt, "image/") {
			return mt
		}
	}
	mt := mimetype.Detect(data).String()
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	return mt
}
