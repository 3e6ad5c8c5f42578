package contentfetcher

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexa/avs-device-sdk-go/pkg/attachment"
)

func contentPattern(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i % 253)
	}
	return p
}

func TestFetcher_StreamsBodyIntoAttachment(t *testing.T) {
	payload := contentPattern(50000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	mgr := attachment.New()
	f, err := New(mgr, WithClient(srv.Client()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	id, err := f.Fetch(context.Background(), srv.URL+"/track.mp3")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if id != f.AttachmentID(srv.URL+"/track.mp3") {
		t.Errorf("Fetch returned unexpected attachment ID %q", id)
	}

	r, err := mgr.CreateReader(id, attachment.ReaderBlocking).Await(time.Second)
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	defer r.Close()

	var got bytes.Buffer
	buf := make([]byte, 4096)
	for {
		n, status := r.Read(buf, time.Second)
		if status == attachment.ReadClosed {
			break
		}
		if status != attachment.ReadOK {
			t.Fatalf("Read failed with status %v", status)
		}
		got.Write(buf[:n])
	}
	if !bytes.Equal(got.Bytes(), payload) {
		t.Fatalf("Downloaded %d bytes, expected %d matching bytes", got.Len(), len(payload))
	}
}

func TestFetcher_NonOKStatusFailsSynchronously(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	mgr := attachment.New()
	f, err := New(mgr, WithClient(srv.Client()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected HTTPError, got %v", err)
	}
	if !httpErr.IsNotFound() {
		t.Errorf("Expected a not-found error, got status %d", httpErr.StatusCode)
	}
}

func TestFetcher_ReleaseStopsTransfer(t *testing.T) {
	// Serve more data than the attachment buffer holds so the transfer
	// has to park on the full stream.
	payload := contentPattern(64 * 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	mgr := attachment.New(attachment.WithBufferSize(1024))
	f, err := New(mgr, WithClient(srv.Client()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	id, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// Give the transfer a moment to fill the buffer and block, then
	// release; the producer goroutine must observe the closed stream and
	// exit instead of hanging (no assertion beyond not deadlocking the
	// registry).
	time.Sleep(30 * time.Millisecond)
	mgr.Release(id)

	if _, err := mgr.CreateReader(id, attachment.ReaderBlocking).Await(50 * time.Millisecond); !errors.Is(err, attachment.ErrTimedOut) {
		t.Fatalf("Expected released content to be gone, got %v", err)
	}
}

func TestFetcher_RequiresRegistry(t *testing.T) {
	if _, err := New(nil); err != ErrNoRegistry {
		t.Fatalf("Expected ErrNoRegistry, got %v", err)
	}
}
