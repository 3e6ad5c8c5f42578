package attachment

import (
	"sync"
	"time"
)

// ReaderPolicy specifies how Read behaves when no data is available.
type ReaderPolicy int

const (
	// ReaderNonblocking returns immediately with whatever is available,
	// including nothing.
	ReaderNonblocking ReaderPolicy = iota

	// ReaderBlocking waits for data up to the read timeout.
	ReaderBlocking
)

// String returns the policy name.
func (p ReaderPolicy) String() string {
	switch p {
	case ReaderNonblocking:
		return "NONBLOCKING"
	case ReaderBlocking:
		return "BLOCKING"
	default:
		return "UNKNOWN"
	}
}

// ReadStatus is the outcome of a Read call. Expected conditions (timeout,
// overrun, closed peer) are statuses, not errors: the audio pipeline runs on
// latency-sensitive threads that branch on these directly.
type ReadStatus int

const (
	// ReadOK means data was consumed.
	ReadOK ReadStatus = iota

	// ReadWouldBlock means the policy is NONBLOCKING and no data is
	// available yet.
	ReadWouldBlock

	// ReadTimedOut means the policy is BLOCKING and no data arrived
	// before the timeout.
	ReadTimedOut

	// ReadOverrun means the writer overwrote unread data. The reader has
	// been advanced to the oldest valid byte; Lost reports how many bytes
	// were dropped.
	ReadOverrun

	// ReadClosed means the stream is closed: either this reader closed,
	// or the writer closed and all buffered data has been consumed.
	ReadClosed

	// ReadInvalid means a Read parameter was invalid.
	ReadInvalid
)

// String returns the status name.
func (s ReadStatus) String() string {
	switch s {
	case ReadOK:
		return "OK"
	case ReadWouldBlock:
		return "WOULDBLOCK"
	case ReadTimedOut:
		return "TIMEDOUT"
	case ReadOverrun:
		return "OVERRUN"
	case ReadClosed:
		return "CLOSED"
	case ReadInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// Err maps the status to a package sentinel error, or nil for ReadOK.
func (s ReadStatus) Err() error {
	switch s {
	case ReadOK:
		return nil
	case ReadWouldBlock:
		return ErrWouldBlock
	case ReadTimedOut:
		return ErrTimedOut
	case ReadOverrun:
		return ErrOverrun
	case ReadClosed:
		return ErrClosed
	default:
		return ErrInvalid
	}
}

// Reader is the consumer-side handle of an attachment. At most one Reader
// exists per attachment.
//
// A Reader is intended for use from a single consumer goroutine; Close may
// be called from any goroutine.
type Reader struct {
	id     string
	policy ReaderPolicy
	stream *Stream

	mu     sync.Mutex
	lost   uint64
	closed bool
}

// AttachmentID returns the ID of the attachment this reader consumes.
func (r *Reader) AttachmentID() string {
	return r.id
}

// Policy returns the reader's policy.
func (r *Reader) Policy() ReaderPolicy {
	return r.policy
}

// Read consumes up to len(p) bytes into p.
//
// With ReaderBlocking the call waits up to timeout for data; a non-positive
// timeout waits until data arrives or the stream closes. With
// ReaderNonblocking the timeout is ignored.
//
// The count is only meaningful when the status is ReadOK. Bytes are returned
// in the exact order the writer appended them.
func (r *Reader) Read(p []byte, timeout time.Duration) (int, ReadStatus) {
	n, status, lost := r.stream.read(p, r.policy, timeout)
	if status == ReadOverrun {
		r.mu.Lock()
		r.lost += lost
		r.mu.Unlock()
	}
	return n, status
}

// Lost returns the total number of bytes dropped across all overruns.
func (r *Reader) Lost() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lost
}

// Close signals that the consumer is done with the attachment.
// It is safe to call Close multiple times.
func (r *Reader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()
	r.stream.closeReader()
	return nil
}
