package mediaplayer

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
)

// WriterSink streams audio bytes to an io.Writer. It backs file output
// and pipes to external players; hardware playback implements Sink
// directly against the device API.
type WriterSink struct {
	w    io.Writer
	name string

	mu      sync.Mutex
	running bool

	chunks atomic.Int64
	bytes  atomic.Int64
}

// NewWriterSink wraps w as a Sink. The name shows up in stats and logs.
func NewWriterSink(w io.Writer, name string) *WriterSink {
	return &WriterSink{w: w, name: name}
}

// Start marks the sink running.
func (s *WriterSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	return nil
}

// Stop marks the sink stopped. The underlying writer stays open.
func (s *WriterSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// Write forwards p to the underlying writer.
func (s *WriterSink) Write(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := s.w.Write(p)
	s.chunks.Add(1)
	s.bytes.Add(int64(n))
	return err
}

// Flush syncs the writer when it supports it.
func (s *WriterSink) Flush(ctx context.Context) error {
	if f, ok := s.w.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}

// Clear is a no-op; bytes already written cannot be recalled.
func (s *WriterSink) Clear() error {
	return nil
}

// Name returns the sink name.
func (s *WriterSink) Name() string {
	return s.name
}

// Close closes the underlying writer when it is closeable.
func (s *WriterSink) Close() error {
	s.Stop()
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Stats returns sink counters.
func (s *WriterSink) Stats() SinkStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	return SinkStats{
		ChunksWritten: s.chunks.Load(),
		BytesWritten:  s.bytes.Load(),
		Running:       running,
		Backend:       s.name,
	}
}

var _ SinkWithStats = (*WriterSink)(nil)
