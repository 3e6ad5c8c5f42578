package attachment

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// pumpChunkSize is the copy granularity when pumping an io.Reader source
// into an attachment.
const pumpChunkSize = 4096

// managementDetails is the per-attachment bookkeeping record.
type managementDetails struct {
	createdAt  time.Time
	attachment *Attachment
}

// Manager is the registry mapping attachment IDs to their streams.
//
// It guarantees at most one reader and one writer per ID, synchronizes
// consumers that attach before the producer exists, and reclaims storage for
// attachments nobody collects within the configured horizon. All registry
// mutations happen under a single lock held only for bookkeeping, never
// across stream I/O.
type Manager struct {
	cfg    Config
	logger *slog.Logger

	mu           sync.Mutex
	timeout      time.Duration
	attachments  map[string]*managementDetails
	order        []string // IDs in creation order; monotonic clock makes this time order
	pending      map[string]*pendingReaders
	pendingOrder []string // pending IDs in creation order, swept like order
	evicted      int64
	released     int64
}

// pendingReaders holds the futures waiting for a producer that has not
// arrived yet. Entries past the eviction horizon are expired by the sweep
// so consumers probing unknown IDs cannot grow the registry unboundedly.
type pendingReaders struct {
	createdAt time.Time
	futures   []*ReaderFuture
}

// New creates a Manager. Invalid options fall back to defaults.
func New(opts ...Option) *Manager {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		cfg = DefaultConfig()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "attachment.manager")
	}

	return &Manager{
		cfg:         cfg,
		logger:      logger,
		timeout:     cfg.Timeout,
		attachments: make(map[string]*managementDetails),
		pending:     make(map[string]*pendingReaders),
	}
}

// GenerateAttachmentID derives the canonical attachment ID from a context ID
// and a content ID. When one component is empty the other is returned as-is;
// two empty components yield an empty ID. The function is pure and does not
// touch the registry.
func (m *Manager) GenerateAttachmentID(contextID, contentID string) string {
	return GenerateID(contextID, contentID)
}

// GenerateID is the package-level form of GenerateAttachmentID.
func GenerateID(contextID, contentID string) string {
	if contextID == "" {
		return contentID
	}
	if contentID == "" {
		return contextID
	}
	return contextID + ":" + contentID
}

// CreateAttachment registers an attachment under id fed by src. The call is
// idempotent: if an entry already exists for id (whether or not a reader has
// claimed it) the call is a no-op and the existing entry is untouched.
//
// When src is non-nil a background goroutine copies it into the attachment
// and closes the writer side at EOF. The copy uses a blocking writer, so a
// producer that outruns the consumer parks until space opens or the registry
// releases the attachment.
func (m *Manager) CreateAttachment(id string, src io.Reader) error {
	if id == "" {
		return ErrInvalid
	}

	m.mu.Lock()
	m.sweepLocked()
	if _, exists := m.attachments[id]; exists {
		m.mu.Unlock()
		return nil
	}
	att := NewAttachment(id, m.cfg.BufferSize)
	m.insertLocked(id, att)
	futures := m.takePendingLocked(id)
	m.mu.Unlock()

	m.resolveFutures(att, futures)

	if src != nil {
		w, err := att.NewWriter(WriterBlocking)
		if err != nil {
			return err
		}
		go m.pump(id, w, src)
	}
	return nil
}

// CreateReader returns a future for the consumer-side handle of id.
//
// The call never blocks. If the attachment exists the future is resolved
// before return; otherwise it resolves when CreateAttachment or CreateWriter
// later registers the id. A second reader for the same id resolves to
// ErrReaderClaimed.
func (m *Manager) CreateReader(id string, policy ReaderPolicy) *ReaderFuture {
	f := newReaderFuture(policy)

	m.mu.Lock()
	m.sweepLocked()
	if d, ok := m.attachments[id]; ok {
		att := d.attachment
		m.mu.Unlock()
		r, err := att.NewReader(policy)
		f.resolve(r, err)
		return f
	}
	if d, ok := m.pending[id]; ok {
		d.futures = append(d.futures, f)
	} else {
		m.pending[id] = &pendingReaders{
			createdAt: m.cfg.Clock(),
			futures:   []*ReaderFuture{f},
		}
		m.pendingOrder = append(m.pendingOrder, id)
	}
	m.mu.Unlock()
	return f
}

// CreateWriter returns the producer-side handle for id, lazily creating the
// attachment when none exists yet. Registering the writer side resolves any
// reader futures pending for the same id. A second writer for the same id
// returns ErrWriterClaimed.
func (m *Manager) CreateWriter(id string, policy WriterPolicy) (*Writer, error) {
	if id == "" {
		return nil, ErrInvalid
	}

	m.mu.Lock()
	m.sweepLocked()
	var att *Attachment
	var futures []*ReaderFuture
	if d, ok := m.attachments[id]; ok {
		att = d.attachment
	} else {
		att = NewAttachment(id, m.cfg.BufferSize)
		m.insertLocked(id, att)
		futures = m.takePendingLocked(id)
	}
	m.mu.Unlock()

	w, err := att.NewWriter(policy)
	m.resolveFutures(att, futures)
	return w, err
}

// Release removes the registry entry for id and force-closes its stream,
// waking any blocked reader or writer. Reader futures still pending for id
// resolve with ErrNotAvailable. Releasing an unknown id is a no-op.
func (m *Manager) Release(id string) {
	m.mu.Lock()
	m.sweepLocked()
	d, ok := m.attachments[id]
	if ok {
		delete(m.attachments, id)
		m.released++
	}
	futures := m.takePendingLocked(id)
	m.mu.Unlock()

	for _, f := range futures {
		f.resolve(nil, ErrNotAvailable)
	}
	if ok {
		d.attachment.release()
		m.logger.Debug("released attachment", "id", id)
	}
}

// SetAttachmentTimeout reconfigures the eviction horizon at runtime. It
// returns false, leaving the horizon unchanged, when timeout is below
// MinTimeout.
func (m *Manager) SetAttachmentTimeout(timeout time.Duration) bool {
	if timeout < MinTimeout {
		return false
	}
	m.mu.Lock()
	m.timeout = timeout
	m.sweepLocked()
	m.mu.Unlock()
	return true
}

// ManagerStats is a point-in-time snapshot of registry state.
type ManagerStats struct {
	// Attachments is the number of live registry entries.
	Attachments int `json:"attachments"`

	// PendingReaders is the number of unresolved reader futures.
	PendingReaders int `json:"pending_readers"`

	// Evicted is the total number of entries removed by the timeout sweep.
	Evicted int64 `json:"evicted"`

	// Released is the total number of entries removed by Release.
	Released int64 `json:"released"`

	// Timeout is the current eviction horizon.
	Timeout time.Duration `json:"timeout"`
}

// Stats returns a snapshot of registry state.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := 0
	for _, d := range m.pending {
		pending += len(d.futures)
	}
	return ManagerStats{
		Attachments:    len(m.attachments),
		PendingReaders: pending,
		Evicted:        m.evicted,
		Released:       m.released,
		Timeout:        m.timeout,
	}
}

// insertLocked registers a new entry. Callers must hold m.mu.
func (m *Manager) insertLocked(id string, att *Attachment) {
	m.attachments[id] = &managementDetails{
		createdAt:  m.cfg.Clock(),
		attachment: att,
	}
	m.order = append(m.order, id)
}

// takePendingLocked removes and returns the futures pending for id. The
// pendingOrder index keeps a stale slot that the next sweep drops.
// Callers must hold m.mu.
func (m *Manager) takePendingLocked(id string) []*ReaderFuture {
	d, ok := m.pending[id]
	if !ok {
		return nil
	}
	delete(m.pending, id)
	return d.futures
}

// resolveFutures claims a reader per future, in arrival order, outside the
// registry lock. The first future wins the reader; later ones observe
// ErrReaderClaimed.
func (m *Manager) resolveFutures(att *Attachment, futures []*ReaderFuture) {
	for _, f := range futures {
		r, err := att.NewReader(f.policy)
		f.resolve(r, err)
	}
}

// sweepLocked evicts stale entries. It walks IDs oldest-first and stops at
// the first entry inside the horizon, so the cost is proportional to the
// number of expired entries rather than the registry size. An expired entry
// is removed when it was never claimed by both sides, or when both sides
// have already closed; an expired entry with a live reader and writer is
// left alone. Callers must hold m.mu.
func (m *Manager) sweepLocked() {
	if len(m.order) == 0 && len(m.pendingOrder) == 0 {
		return
	}
	now := m.cfg.Clock()
	m.sweepPendingLocked(now)
	if len(m.order) == 0 {
		return
	}
	keep := m.order[:0]
	i := 0
	for ; i < len(m.order); i++ {
		id := m.order[i]
		d, ok := m.attachments[id]
		if !ok {
			// Entry released out of band; drop the stale index slot.
			continue
		}
		if now.Sub(d.createdAt) <= m.timeout {
			break
		}
		readerClaimed, writerClaimed := d.attachment.claimed()
		if readerClaimed && writerClaimed && !d.attachment.consumed() {
			keep = append(keep, id)
			continue
		}
		delete(m.attachments, id)
		d.attachment.release()
		m.evicted++
		m.logger.Debug("evicted attachment", "id", id, "age", now.Sub(d.createdAt))
	}
	m.order = append(keep, m.order[i:]...)
}

// sweepPendingLocked expires reader futures whose producer never arrived
// within the horizon, resolving them with ErrNotAvailable. Like the entry
// sweep it walks oldest-first and stops at the first entry inside the
// horizon. Callers must hold m.mu.
func (m *Manager) sweepPendingLocked(now time.Time) {
	if len(m.pendingOrder) == 0 {
		return
	}
	i := 0
	for ; i < len(m.pendingOrder); i++ {
		id := m.pendingOrder[i]
		d, ok := m.pending[id]
		if !ok {
			// Futures already claimed by an arriving producer.
			continue
		}
		if now.Sub(d.createdAt) <= m.timeout {
			break
		}
		delete(m.pending, id)
		for _, f := range d.futures {
			f.resolve(nil, ErrNotAvailable)
		}
		m.logger.Debug("expired pending readers", "id", id, "count", len(d.futures))
	}
	m.pendingOrder = append(m.pendingOrder[:0], m.pendingOrder[i:]...)
}

// pump copies src into w until EOF or the stream closes, then closes the
// writer so the reader observes end-of-stream.
func (m *Manager) pump(id string, w *Writer, src io.Reader) {
	defer w.Close()
	buf := make([]byte, pumpChunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			for off := 0; off < n; {
				written, status := w.Write(buf[off:n], 0)
				if status != WriteOK {
					m.logger.Debug("attachment write ended", "id", id, "status", status.String())
					return
				}
				off += written
			}
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			m.logger.Warn("attachment source read failed", "id", id, "error", err)
			return
		}
	}
}
