package attachment

import "sync"

// Attachment is a single logical binary stream identified by an ID, with one
// producer and one consumer. Handles are created on demand and the
// underlying stream lives until both sides close or the registry evicts it.
type Attachment struct {
	id     string
	stream *Stream

	mu     sync.Mutex
	reader *Reader
	writer *Writer
}

// NewAttachment creates a detached attachment with the given stream
// capacity. Most callers obtain attachments through a Manager instead.
func NewAttachment(id string, bufferSize int) *Attachment {
	return &Attachment{
		id:     id,
		stream: NewStream(bufferSize),
	}
}

// ID returns the attachment ID.
func (a *Attachment) ID() string {
	return a.id
}

// NewReader claims the consumer side. It returns ErrReaderClaimed if a
// reader already exists for this attachment.
func (a *Attachment) NewReader(policy ReaderPolicy) (*Reader, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reader != nil {
		return nil, ErrReaderClaimed
	}
	a.reader = &Reader{id: a.id, policy: policy, stream: a.stream}
	return a.reader, nil
}

// NewWriter claims the producer side. It returns ErrWriterClaimed if a
// writer already exists for this attachment.
func (a *Attachment) NewWriter(policy WriterPolicy) (*Writer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.writer != nil {
		return nil, ErrWriterClaimed
	}
	a.writer = &Writer{id: a.id, policy: policy, stream: a.stream}
	return a.writer, nil
}

// claimed reports which sides have been claimed.
func (a *Attachment) claimed() (reader, writer bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reader != nil, a.writer != nil
}

// consumed reports whether both sides have closed the stream.
func (a *Attachment) consumed() bool {
	return a.stream.closed()
}

// release force-closes the stream, waking any blocked reader or writer.
func (a *Attachment) release() {
	a.stream.forceClose()
}
