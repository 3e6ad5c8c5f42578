package mediaplayer

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexa/avs-device-sdk-go/pkg/attachment"
)

func audioPattern(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i % 199)
	}
	return p
}

func TestPlayer_PlaysAttachmentToCompletion(t *testing.T) {
	mgr := attachment.New()
	sink := NewMockSink()
	p, err := New(mgr, sink)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	payload := audioPattern(20000)
	if err := mgr.CreateAttachment("speak-0", bytes.NewReader(payload)); err != nil {
		t.Fatalf("CreateAttachment failed: %v", err)
	}

	finished := make(chan string, 1)
	p.OnFinished = func(id string) {
		finished <- id
	}

	if err := p.Play(context.Background(), "speak-0"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if st := p.State(); st != StatePlaying {
		t.Errorf("Expected PLAYING, got %v", st)
	}

	select {
	case id := <-finished:
		if id != "speak-0" {
			t.Errorf("Finished callback got id %q", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Playback did not finish")
	}

	if st := p.State(); st != StateFinished {
		t.Errorf("Expected FINISHED, got %v", st)
	}
	if !bytes.Equal(sink.Bytes(), payload) {
		t.Fatalf("Sink received %d bytes, expected %d matching bytes", len(sink.Bytes()), len(payload))
	}

	stats := p.Stats()
	if stats.BytesPlayed != int64(len(payload)) {
		t.Errorf("Expected %d bytes played, got %d", len(payload), stats.BytesPlayed)
	}
	if stats.Overruns != 0 {
		t.Errorf("Expected no overruns, got %d", stats.Overruns)
	}
}

func TestPlayer_ContentUnavailable(t *testing.T) {
	mgr := attachment.New()
	p, err := New(mgr, NewMockSink(), WithAttachTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = p.Play(context.Background(), "never-created")
	if !errors.Is(err, ErrContentUnavailable) {
		t.Fatalf("Expected ErrContentUnavailable, got %v", err)
	}
	if st := p.State(); st != StateIdle {
		t.Errorf("Expected IDLE after unavailable content, got %v", st)
	}
}

func TestPlayer_StopInterruptsPlayback(t *testing.T) {
	mgr := attachment.New()
	sink := NewMockSink()
	p, err := New(mgr, sink)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// A writer with no data keeps the stream open so playback idles in
	// its polling loop.
	w, err := mgr.CreateWriter("live-stream", attachment.WriterBlocking)
	if err != nil {
		t.Fatalf("CreateWriter failed: %v", err)
	}
	defer w.Close()

	if err := p.Play(context.Background(), "live-stream"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if st := p.State(); st != StateStopped {
		t.Errorf("Expected STOPPED, got %v", st)
	}

	// Stop on an idle player is a no-op.
	if err := p.Stop(); err != nil {
		t.Fatalf("Idle Stop failed: %v", err)
	}
}

func TestPlayer_ProducerAfterConsumer(t *testing.T) {
	mgr := attachment.New()
	sink := NewMockSink()
	p, err := New(mgr, sink, WithAttachTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	payload := audioPattern(5000)
	go func() {
		time.Sleep(30 * time.Millisecond)
		mgr.CreateAttachment("late-content", bytes.NewReader(payload))
	}()

	// Play blocks in Await until the producer registers the attachment.
	if err := p.Play(context.Background(), "late-content"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	p.Wait()

	if !bytes.Equal(sink.Bytes(), payload) {
		t.Fatal("Late-producer playback lost or reordered bytes")
	}
}

func TestPlayer_RejectsConcurrentPlay(t *testing.T) {
	mgr := attachment.New()
	p, err := New(mgr, NewMockSink())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	w, err := mgr.CreateWriter("busy", attachment.WriterBlocking)
	if err != nil {
		t.Fatalf("CreateWriter failed: %v", err)
	}
	defer w.Close()

	if err := p.Play(context.Background(), "busy"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	defer p.Stop()

	if err := p.Play(context.Background(), "busy"); !errors.Is(err, ErrAlreadyPlaying) {
		t.Fatalf("Expected ErrAlreadyPlaying, got %v", err)
	}
}

func TestPlayer_ConcurrentStopsAreSafe(t *testing.T) {
	mgr := attachment.New()
	sink := NewMockSink()
	p, err := New(mgr, sink)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Keep the stream open so the drain sits in its polling loop while
	// both Stop calls race.
	w, err := mgr.CreateWriter("live-stream", attachment.WriterBlocking)
	if err != nil {
		t.Fatalf("CreateWriter failed: %v", err)
	}
	defer w.Close()

	if err := p.Play(context.Background(), "live-stream"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			errs <- p.Stop()
		}()
	}

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if err != nil {
				t.Errorf("Stop failed: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Concurrent Stop never returned")
		}
	}
	if st := p.State(); st != StateStopped {
		t.Errorf("Expected STOPPED, got %v", st)
	}
}

func TestPlayer_RejectsSecondPlayDuringAttach(t *testing.T) {
	mgr := attachment.New()
	p, err := New(mgr, NewMockSink(), WithAttachTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// First Play blocks awaiting a producer that arrives later; a second
	// Play in that window must be rejected, not start a parallel drain.
	first := make(chan error, 1)
	go func() {
		first <- p.Play(context.Background(), "pending-a")
	}()
	time.Sleep(30 * time.Millisecond)

	if err := p.Play(context.Background(), "pending-b"); !errors.Is(err, ErrAlreadyPlaying) {
		t.Fatalf("Expected ErrAlreadyPlaying during attach, got %v", err)
	}

	payload := audioPattern(1000)
	if err := mgr.CreateAttachment("pending-a", bytes.NewReader(payload)); err != nil {
		t.Fatalf("CreateAttachment failed: %v", err)
	}
	select {
	case err := <-first:
		if err != nil {
			t.Fatalf("First Play failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("First Play never returned")
	}
	p.Wait()
}

func TestPlayer_RequiresCollaborators(t *testing.T) {
	if _, err := New(nil, NewMockSink()); err != ErrNoRegistry {
		t.Fatalf("Expected ErrNoRegistry, got %v", err)
	}
	if _, err := New(attachment.New(), nil); err != ErrNoSink {
		t.Fatalf("Expected ErrNoSink, got %v", err)
	}
}
