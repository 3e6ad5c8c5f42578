// Package mediaplayer drains attachment streams into an audio sink.
//
// The player is the consumer half of the attachment pipeline: given an
// attachment ID it claims the reader, pulls bytes as they arrive and pushes
// them to a Sink until end-of-stream. The producer may still be mid-download
// when playback starts; the blocking reader policy absorbs the gap.
package mediaplayer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alexa/avs-device-sdk-go/pkg/attachment"
)

// State describes the player lifecycle.
type State int

const (
	// StateIdle means no playback is in progress.
	StateIdle State = iota
	// StatePlaying means a stream is being drained into the sink.
	StatePlaying
	// StateStopped means playback was interrupted by Stop.
	StateStopped
	// StateFinished means the stream played to end-of-stream.
	StateFinished
	// StateError means playback aborted on a sink or stream error.
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePlaying:
		return "PLAYING"
	case StateStopped:
		return "STOPPED"
	case StateFinished:
		return "FINISHED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Stats contains playback statistics.
type Stats struct {
	// ChunksPlayed is the total number of chunks delivered to the sink.
	ChunksPlayed int64 `json:"chunks_played"`

	// BytesPlayed is the total number of bytes delivered to the sink.
	BytesPlayed int64 `json:"bytes_played"`

	// Overruns is the number of reader overruns observed.
	Overruns int64 `json:"overruns"`

	// State is the current player state.
	State string `json:"state"`
}

// Player drains one attachment at a time into a Sink.
type Player struct {
	cfg      Config
	registry attachment.Registry
	sink     Sink
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	current  string
	starting bool
	stop     chan struct{}
	done     chan struct{}

	chunksPlayed atomic.Int64
	bytesPlayed  atomic.Int64
	overruns     atomic.Int64

	// OnFinished is called when a stream plays to completion.
	OnFinished func(attachmentID string)

	// OnError is called when playback aborts.
	OnError func(attachmentID string, err error)
}

// New creates a Player consuming from the given registry.
func New(registry attachment.Registry, sink Sink, opts ...Option) (*Player, error) {
	if registry == nil {
		return nil, ErrNoRegistry
	}
	if sink == nil {
		return nil, ErrNoSink
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "mediaplayer")
	}

	return &Player{
		cfg:      cfg,
		registry: registry,
		sink:     sink,
		logger:   logger,
		state:    StateIdle,
	}, nil
}

// State returns the current player state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Stats returns playback statistics.
func (p *Player) Stats() Stats {
	return Stats{
		ChunksPlayed: p.chunksPlayed.Load(),
		BytesPlayed:  p.bytesPlayed.Load(),
		Overruns:     p.overruns.Load(),
		State:        p.State().String(),
	}
}

// Play starts draining the attachment into the sink.
//
// The call waits up to the attach timeout for the attachment to exist; if
// the producer never registered it the error is ErrContentUnavailable, a
// recoverable condition the caller can surface as "content not available".
// Playback itself runs on a background goroutine until end-of-stream, Stop,
// or a sink failure.
func (p *Player) Play(ctx context.Context, attachmentID string) error {
	// Claim the playback slot before awaiting the attachment so a second
	// Play arriving mid-setup is rejected instead of starting a second
	// drain over the same stop/done channels.
	p.mu.Lock()
	if p.state == StatePlaying || p.starting {
		p.mu.Unlock()
		return ErrAlreadyPlaying
	}
	p.starting = true
	p.mu.Unlock()

	r, err := p.registry.CreateReader(attachmentID, attachment.ReaderBlocking).Await(p.cfg.AttachTimeout)
	if err != nil {
		p.abortStart()
		if err == attachment.ErrTimedOut {
			return ErrContentUnavailable
		}
		return err
	}

	if err := p.sink.Start(ctx); err != nil {
		r.Close()
		p.abortStart()
		return err
	}

	p.mu.Lock()
	p.starting = false
	p.state = StatePlaying
	p.current = attachmentID
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	stop, done := p.stop, p.done
	p.mu.Unlock()

	p.logger.Info("playback started", "id", attachmentID)
	go p.drain(ctx, attachmentID, r, stop, done)
	return nil
}

// Stop interrupts playback and clears any buffered audio.
// It is safe to call Stop when nothing is playing, and safe to call from
// multiple goroutines; concurrent calls all wait for the drain to end.
func (p *Player) Stop() error {
	p.mu.Lock()
	if p.state != StatePlaying || p.stop == nil {
		p.mu.Unlock()
		return nil
	}
	select {
	case <-p.stop:
		// A concurrent Stop already signalled the drain.
	default:
		close(p.stop)
	}
	done := p.done
	p.mu.Unlock()

	<-done
	return p.sink.Clear()
}

// abortStart releases the playback slot claimed by Play when setup fails.
func (p *Player) abortStart() {
	p.mu.Lock()
	p.starting = false
	p.mu.Unlock()
}

// Wait blocks until the current playback ends, for callers that want
// synchronous completion.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *Player) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// drain pulls bytes from the reader into the sink until the stream ends.
func (p *Player) drain(ctx context.Context, id string, r *attachment.Reader, stop, done chan struct{}) {
	defer close(done)
	defer r.Close()

	buf := make([]byte, p.cfg.ChunkSize)
	for {
		select {
		case <-stop:
			p.setState(StateStopped)
			p.logger.Info("playback stopped", "id", id)
			return
		case <-ctx.Done():
			p.setState(StateStopped)
			return
		default:
		}

		n, status := r.Read(buf, p.cfg.ReadTimeout)
		switch status {
		case attachment.ReadOK:
			if err := p.sink.Write(ctx, buf[:n]); err != nil {
				p.setState(StateError)
				p.logger.Error("sink write failed", "id", id, "error", err)
				if p.OnError != nil {
					p.OnError(id, err)
				}
				return
			}
			p.chunksPlayed.Add(1)
			p.bytesPlayed.Add(int64(n))

		case attachment.ReadTimedOut:
			// Producer is slow; keep polling so Stop stays responsive.

		case attachment.ReadOverrun:
			p.overruns.Add(1)
			p.logger.Warn("reader overrun", "id", id, "lost", r.Lost())

		case attachment.ReadClosed:
			if err := p.sink.Flush(ctx); err != nil {
				p.logger.Warn("sink flush failed", "id", id, "error", err)
			}
			p.setState(StateFinished)
			p.logger.Info("playback finished", "id", id, "bytes", p.bytesPlayed.Load())
			if p.OnFinished != nil {
				p.OnFinished(id)
			}
			return

		default:
			p.setState(StateError)
			p.logger.Error("read failed", "id", id, "status", status.String())
			if p.OnError != nil {
				p.OnError(id, status.Err())
			}
			return
		}
	}
}
