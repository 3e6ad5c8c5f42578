package attachment

import (
	"sync"
	"time"
)

// WriterPolicy specifies how Write behaves when the buffer is short on space.
type WriterPolicy int

const (
	// WriterAllOrNothing rejects any write that does not entirely fit in
	// the remaining buffer space.
	WriterAllOrNothing WriterPolicy = iota

	// WriterNonblockable never blocks: the write always succeeds in full,
	// overwriting unconsumed data if the reader has fallen behind.
	WriterNonblockable

	// WriterBlocking suspends the caller until space is available or the
	// write timeout expires. Short writes are possible.
	WriterBlocking
)

// String returns the policy name.
func (p WriterPolicy) String() string {
	switch p {
	case WriterAllOrNothing:
		return "ALL_OR_NOTHING"
	case WriterNonblockable:
		return "NONBLOCKABLE"
	case WriterBlocking:
		return "BLOCKING"
	default:
		return "UNKNOWN"
	}
}

// WriteStatus is the outcome of a Write call.
type WriteStatus int

const (
	// WriteOK means data was appended.
	WriteOK WriteStatus = iota

	// WriteWouldBlock means the policy is ALL_OR_NOTHING and the write
	// would overwrite unconsumed data.
	WriteWouldBlock

	// WriteTimedOut means the policy is BLOCKING and no space became
	// available before the timeout.
	WriteTimedOut

	// WriteClosed means this writer closed, or the peer reader is gone.
	WriteClosed

	// WriteInvalid means a Write parameter was invalid.
	WriteInvalid
)

// String returns the status name.
func (s WriteStatus) String() string {
	switch s {
	case WriteOK:
		return "OK"
	case WriteWouldBlock:
		return "WOULDBLOCK"
	case WriteTimedOut:
		return "TIMEDOUT"
	case WriteClosed:
		return "CLOSED"
	case WriteInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// Err maps the status to a package sentinel error, or nil for WriteOK.
func (s WriteStatus) Err() error {
	switch s {
	case WriteOK:
		return nil
	case WriteWouldBlock:
		return ErrWouldBlock
	case WriteTimedOut:
		return ErrTimedOut
	case WriteClosed:
		return ErrClosed
	default:
		return ErrInvalid
	}
}

// Writer is the producer-side handle of an attachment. At most one Writer
// exists per attachment.
//
// A Writer is intended for use from a single producer goroutine; Close may
// be called from any goroutine.
type Writer struct {
	id     string
	policy WriterPolicy
	stream *Stream

	mu     sync.Mutex
	closed bool
}

// AttachmentID returns the ID of the attachment this writer feeds.
func (w *Writer) AttachmentID() string {
	return w.id
}

// Policy returns the writer's policy.
func (w *Writer) Policy() WriterPolicy {
	return w.policy
}

// Write appends p to the stream.
//
// With WriterBlocking the call waits up to timeout for space; a non-positive
// timeout waits until space opens or the stream closes. Other policies
// ignore the timeout. The count is only meaningful when the status is
// WriteOK and may be short under WriterBlocking.
func (w *Writer) Write(p []byte, timeout time.Duration) (int, WriteStatus) {
	return w.stream.write(p, w.policy, timeout)
}

// Close signals end-of-stream. The reader drains any buffered data and then
// observes ReadClosed. It is safe to call Close multiple times.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	w.stream.closeWriter()
	return nil
}
