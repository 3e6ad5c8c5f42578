package attachment

import (
	"sync"
	"time"
)

// Stream is the byte transport between one producer and one consumer.
//
// It is a fixed-capacity ring buffer with absolute byte cursors: the ring
// position of a cursor is cursor modulo capacity. The writer may lap the
// reader under WriterNonblockable, in which case the reader observes an
// overrun on its next read and is advanced to the oldest valid byte.
//
// Blocking callers wait on a broadcast channel that is closed and replaced
// whenever a cursor or close flag changes.
type Stream struct {
	mu      sync.Mutex
	changed chan struct{}

	buf []byte

	writeCursor uint64
	readCursor  uint64

	writerClosed bool
	readerClosed bool
}

// NewStream creates a stream with the given capacity in bytes.
// Non-positive capacities fall back to DefaultBufferSize.
func NewStream(capacity int) *Stream {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &Stream{
		buf:     make([]byte, capacity),
		changed: make(chan struct{}),
	}
}

// Capacity returns the stream capacity in bytes.
func (s *Stream) Capacity() int {
	return len(s.buf)
}

// BytesWritten returns the total number of bytes appended by the writer.
func (s *Stream) BytesWritten() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCursor
}

// BytesRead returns the total number of bytes consumed by the reader.
func (s *Stream) BytesRead() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readCursor
}

// closed reports whether both sides have closed.
func (s *Stream) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writerClosed && s.readerClosed
}

// closeWriter signals end-of-stream. The reader drains remaining data and
// then observes ReadClosed.
func (s *Stream) closeWriter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writerClosed {
		return
	}
	s.writerClosed = true
	s.broadcastLocked()
}

// closeReader signals that the consumer is done. Subsequent writes observe
// WriteClosed.
func (s *Stream) closeReader() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readerClosed {
		return
	}
	s.readerClosed = true
	s.broadcastLocked()
}

// forceClose closes both sides, waking any blocked reader or writer.
// The registry uses this when evicting or releasing an attachment.
func (s *Stream) forceClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writerClosed && s.readerClosed {
		return
	}
	s.writerClosed = true
	s.readerClosed = true
	s.broadcastLocked()
}

// broadcastLocked wakes all waiters. Callers must hold s.mu.
func (s *Stream) broadcastLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// unreadLocked returns the number of bytes written but not yet consumed.
// This exceeds the capacity when the writer has lapped the reader.
func (s *Stream) unreadLocked() uint64 {
	return s.writeCursor - s.readCursor
}

// spaceLocked returns the number of bytes writable without overwriting
// unconsumed data.
func (s *Stream) spaceLocked() uint64 {
	unread := s.unreadLocked()
	capacity := uint64(len(s.buf))
	if unread >= capacity {
		return 0
	}
	return capacity - unread
}

// copyInLocked appends p at the write cursor, wrapping as needed.
func (s *Stream) copyInLocked(p []byte) {
	for off := 0; off < len(p); {
		pos := int((s.writeCursor + uint64(off)) % uint64(len(s.buf)))
		off += copy(s.buf[pos:], p[off:])
	}
	s.writeCursor += uint64(len(p))
}

// copyOutLocked copies n bytes at the read cursor into p.
func (s *Stream) copyOutLocked(p []byte, n int) {
	for off := 0; off < n; {
		pos := int((s.readCursor + uint64(off)) % uint64(len(s.buf)))
		off += copy(p[off:n], s.buf[pos:])
	}
	s.readCursor += uint64(n)
}

// wait releases the lock until the stream state changes or the timeout
// expires. It returns false on timeout. The caller must hold s.mu on entry
// and holds it again on return. A non-positive timeout means no deadline.
func (s *Stream) wait(deadline *time.Timer) bool {
	ch := s.changed
	s.mu.Unlock()
	if deadline == nil {
		<-ch
		s.mu.Lock()
		return true
	}
	select {
	case <-ch:
		s.mu.Lock()
		return true
	case <-deadline.C:
		s.mu.Lock()
		return false
	}
}

// newDeadline returns a timer for the timeout, or nil when the caller
// should wait without a deadline.
func newDeadline(timeout time.Duration) *time.Timer {
	if timeout <= 0 {
		return nil
	}
	return time.NewTimer(timeout)
}

// write appends bytes under the given policy. See Writer.Write.
func (s *Stream) write(p []byte, policy WriterPolicy, timeout time.Duration) (int, WriteStatus) {
	if len(p) == 0 {
		return 0, WriteInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writerClosed || s.readerClosed {
		return 0, WriteClosed
	}

	switch policy {
	case WriterAllOrNothing:
		if uint64(len(p)) > s.spaceLocked() {
			return 0, WriteWouldBlock
		}
		s.copyInLocked(p)
		s.broadcastLocked()
		return len(p), WriteOK

	case WriterNonblockable:
		// May lap the reader; the overrun surfaces on the next read.
		s.copyInLocked(p)
		s.broadcastLocked()
		return len(p), WriteOK

	case WriterBlocking:
		deadline := newDeadline(timeout)
		if deadline != nil {
			defer deadline.Stop()
		}
		for s.spaceLocked() == 0 {
			if !s.wait(deadline) {
				return 0, WriteTimedOut
			}
			if s.writerClosed || s.readerClosed {
				return 0, WriteClosed
			}
		}
		n := len(p)
		if space := s.spaceLocked(); uint64(n) > space {
			n = int(space)
		}
		s.copyInLocked(p[:n])
		s.broadcastLocked()
		return n, WriteOK

	default:
		return 0, WriteInvalid
	}
}

// read consumes bytes under the given policy. The third return value is the
// number of bytes lost when the status is ReadOverrun. See Reader.Read.
func (s *Stream) read(p []byte, policy ReaderPolicy, timeout time.Duration) (int, ReadStatus, uint64) {
	if len(p) == 0 {
		return 0, ReadInvalid, 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := newDeadline(timeout)
	if deadline != nil {
		defer deadline.Stop()
	}

	for {
		if s.readerClosed {
			return 0, ReadClosed, 0
		}

		unread := s.unreadLocked()
		capacity := uint64(len(s.buf))

		if unread > capacity {
			// Writer lapped us. Report the loss and jump to the
			// oldest byte still present so the next read succeeds.
			lost := unread - capacity
			s.readCursor = s.writeCursor - capacity
			s.broadcastLocked()
			return 0, ReadOverrun, lost
		}

		if unread > 0 {
			n := len(p)
			if uint64(n) > unread {
				n = int(unread)
			}
			s.copyOutLocked(p, n)
			s.broadcastLocked()
			return n, ReadOK, 0
		}

		if s.writerClosed {
			return 0, ReadClosed, 0
		}
		if policy == ReaderNonblocking {
			return 0, ReadWouldBlock, 0
		}
		if !s.wait(deadline) {
			return 0, ReadTimedOut, 0
		}
	}
}
