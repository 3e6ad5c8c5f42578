package attachment

import (
	"io"
	"time"
)

// Registry is the public contract consumed by capability agents, content
// fetchers and media players. Collaborators program against this interface
// and never see registry internals.
type Registry interface {
	// GenerateAttachmentID derives the canonical ID for a context/content
	// pair without touching the registry.
	GenerateAttachmentID(contextID, contentID string) string

	// CreateAttachment registers id fed by src. Idempotent per id.
	CreateAttachment(id string, src io.Reader) error

	// CreateReader returns a future for the consumer-side handle.
	CreateReader(id string, policy ReaderPolicy) *ReaderFuture

	// CreateWriter returns the producer-side handle, creating the
	// attachment when needed.
	CreateWriter(id string, policy WriterPolicy) (*Writer, error)

	// Release removes id and its storage. No-op on unknown IDs.
	Release(id string)

	// SetAttachmentTimeout reconfigures the eviction horizon. Returns
	// false for values below MinTimeout.
	SetAttachmentTimeout(timeout time.Duration) bool
}

var _ Registry = (*Manager)(nil)
