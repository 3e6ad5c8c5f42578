package mediaplayer

import (
	"bytes"
	"context"
	"sync"
)

// MockSink is a mock audio sink for testing.
// It records everything written to it.
type MockSink struct {
	// WriteFunc, if set, replaces the default recording behavior.
	WriteFunc func(ctx context.Context, p []byte) error

	mu      sync.Mutex
	buf     bytes.Buffer
	running bool
	closed  bool
	writes  int64
	flushes int64
	clears  int64
}

// NewMockSink creates a new mock sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// Start begins playback.
func (m *MockSink) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrNoSink
	}
	m.running = true
	return nil
}

// Stop halts playback.
func (m *MockSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

// Write records the audio bytes.
func (m *MockSink) Write(ctx context.Context, p []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.Write(p)
	m.writes++
	return nil
}

// Flush is a no-op that counts invocations.
func (m *MockSink) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

// Clear discards the recorded audio.
func (m *MockSink) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.Reset()
	m.clears++
	return nil
}

// Name returns the backend name.
func (m *MockSink) Name() string {
	return "mock"
}

// Close releases the sink.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.closed = true
	return nil
}

// Bytes returns a copy of everything written since the last Clear.
func (m *MockSink) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, m.buf.Len())
	copy(out, m.buf.Bytes())
	return out
}

// Stats returns sink statistics.
func (m *MockSink) Stats() SinkStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return SinkStats{
		ChunksWritten: m.writes,
		BytesWritten:  int64(m.buf.Len()),
		Running:       m.running,
		Backend:       "mock",
	}
}

var _ SinkWithStats = (*MockSink)(nil)
