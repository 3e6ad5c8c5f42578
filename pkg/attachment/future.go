package attachment

import (
	"context"
	"sync"
	"time"
)

// ReaderFuture is a one-shot handle to a Reader that may not exist yet.
//
// CreateReader returns a future so that a consumer can ask for an attachment
// before the producer has registered it. The future resolves exactly once:
// either with a claimed Reader, or with an error when the attachment was
// already claimed or was released before the consumer could attach.
type ReaderFuture struct {
	policy ReaderPolicy
	ready  chan struct{}

	once   sync.Once
	reader *Reader
	err    error
}

func newReaderFuture(policy ReaderPolicy) *ReaderFuture {
	return &ReaderFuture{
		policy: policy,
		ready:  make(chan struct{}),
	}
}

// resolve fulfils the future. Subsequent calls are no-ops.
func (f *ReaderFuture) resolve(r *Reader, err error) {
	f.once.Do(func() {
		f.reader = r
		f.err = err
		close(f.ready)
	})
}

// Ready reports whether the future has resolved.
func (f *ReaderFuture) Ready() bool {
	select {
	case <-f.ready:
		return true
	default:
		return false
	}
}

// Await blocks until the future resolves or the timeout expires, returning
// ErrTimedOut on expiry. A non-positive timeout waits indefinitely.
func (f *ReaderFuture) Await(timeout time.Duration) (*Reader, error) {
	if timeout <= 0 {
		<-f.ready
		return f.reader, f.err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-f.ready:
		return f.reader, f.err
	case <-timer.C:
		return nil, ErrTimedOut
	}
}

// AwaitContext blocks until the future resolves or the context is done.
func (f *ReaderFuture) AwaitContext(ctx context.Context) (*Reader, error) {
	select {
	case <-f.ready:
		return f.reader, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
