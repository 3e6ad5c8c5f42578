package attachment

import (
	"io"
	"sync"
	"time"
)

// MockRegistry implements Registry for testing.
// All methods can be customized via function fields; by default calls are
// delegated to a real in-memory Manager.
type MockRegistry struct {
	// CreateAttachmentFunc is called when CreateAttachment is invoked.
	CreateAttachmentFunc func(id string, src io.Reader) error

	// CreateReaderFunc is called when CreateReader is invoked.
	CreateReaderFunc func(id string, policy ReaderPolicy) *ReaderFuture

	// CreateWriterFunc is called when CreateWriter is invoked.
	CreateWriterFunc func(id string, policy WriterPolicy) (*Writer, error)

	// ReleaseFunc is called when Release is invoked.
	ReleaseFunc func(id string)

	// SetTimeoutFunc is called when SetAttachmentTimeout is invoked.
	SetTimeoutFunc func(timeout time.Duration) bool

	backing     *Manager
	backingOnce sync.Once

	// Tracking
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method       string
	AttachmentID string
	Time         time.Time
}

// NewMockRegistry creates a mock backed by a real Manager with defaults.
func NewMockRegistry() *MockRegistry {
	return &MockRegistry{}
}

func (m *MockRegistry) manager() *Manager {
	m.backingOnce.Do(func() {
		m.backing = New()
	})
	return m.backing
}

func (m *MockRegistry) recordCall(method, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, AttachmentID: id, Time: time.Now()})
}

// Calls returns a copy of all recorded calls.
func (m *MockRegistry) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// GenerateAttachmentID delegates to the canonical derivation.
func (m *MockRegistry) GenerateAttachmentID(contextID, contentID string) string {
	return GenerateID(contextID, contentID)
}

// CreateAttachment calls CreateAttachmentFunc and records the call.
func (m *MockRegistry) CreateAttachment(id string, src io.Reader) error {
	m.recordCall("CreateAttachment", id)
	if m.CreateAttachmentFunc != nil {
		return m.CreateAttachmentFunc(id, src)
	}
	return m.manager().CreateAttachment(id, src)
}

// CreateReader calls CreateReaderFunc and records the call.
func (m *MockRegistry) CreateReader(id string, policy ReaderPolicy) *ReaderFuture {
	m.recordCall("CreateReader", id)
	if m.CreateReaderFunc != nil {
		return m.CreateReaderFunc(id, policy)
	}
	return m.manager().CreateReader(id, policy)
}

// CreateWriter calls CreateWriterFunc and records the call.
func (m *MockRegistry) CreateWriter(id string, policy WriterPolicy) (*Writer, error) {
	m.recordCall("CreateWriter", id)
	if m.CreateWriterFunc != nil {
		return m.CreateWriterFunc(id, policy)
	}
	return m.manager().CreateWriter(id, policy)
}

// Release calls ReleaseFunc and records the call.
func (m *MockRegistry) Release(id string) {
	m.recordCall("Release", id)
	if m.ReleaseFunc != nil {
		m.ReleaseFunc(id)
		return
	}
	m.manager().Release(id)
}

// SetAttachmentTimeout calls SetTimeoutFunc and records the call.
func (m *MockRegistry) SetAttachmentTimeout(timeout time.Duration) bool {
	m.recordCall("SetAttachmentTimeout", "")
	if m.SetTimeoutFunc != nil {
		return m.SetTimeoutFunc(timeout)
	}
	return m.manager().SetAttachmentTimeout(timeout)
}

var _ Registry = (*MockRegistry)(nil)
