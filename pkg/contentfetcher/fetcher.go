// Package contentfetcher streams HTTP content into attachments.
//
// Capability agents hand it a URL from a directive payload; the fetcher
// registers an attachment for that URL, downloads the body on a background
// goroutine, and returns the attachment ID so the media pipeline can attach
// a reader, before, during or after the download.
package contentfetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/alexa/avs-device-sdk-go/pkg/attachment"
)

// fetchContextID namespaces fetcher-created attachment IDs.
const fetchContextID = "urlFetch"

// Fetcher downloads URLs into attachment streams.
type Fetcher struct {
	cfg      Config
	registry attachment.Registry
	logger   *slog.Logger
}

// New creates a Fetcher writing into the given registry.
func New(registry attachment.Registry, opts ...Option) (*Fetcher, error) {
	if registry == nil {
		return nil, ErrNoRegistry
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "contentfetcher")
	}

	return &Fetcher{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
	}, nil
}

// AttachmentID returns the ID the fetcher will use for a URL.
func (f *Fetcher) AttachmentID(url string) string {
	return f.registry.GenerateAttachmentID(fetchContextID, url)
}

// Fetch starts downloading url into an attachment and returns the
// attachment ID. The request and headers are validated synchronously, so a
// dead URL fails here rather than surfacing as a silent empty stream; the
// body transfer then proceeds in the background until EOF, ctx cancellation
// or release of the attachment.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	id := f.AttachmentID(url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("contentfetcher: build request: %w", err)
	}

	resp, err := f.cfg.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("contentfetcher: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return "", &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}

	w, err := f.registry.CreateWriter(id, attachment.WriterBlocking)
	if err != nil {
		resp.Body.Close()
		return "", err
	}

	go f.transfer(id, w, resp.Body)
	return id, nil
}

// transfer pumps the response body into the attachment writer.
func (f *Fetcher) transfer(id string, w *attachment.Writer, body io.ReadCloser) {
	defer body.Close()
	defer w.Close()

	buf := make([]byte, f.cfg.ChunkSize)
	var total int64
	for {
		n, err := body.Read(buf)
		if n > 0 {
			for off := 0; off < n; {
				written, status := w.Write(buf[off:n], 0)
				if status != attachment.WriteOK {
					f.logger.Debug("transfer ended by stream",
						"id", id, "status", status.String(), "bytes", total)
					return
				}
				off += written
				total += int64(written)
			}
		}
		if err == io.EOF {
			f.logger.Debug("transfer complete", "id", id, "bytes", total)
			return
		}
		if err != nil {
			f.logger.Warn("transfer aborted", "id", id, "error", err, "bytes", total)
			return
		}
	}
}
