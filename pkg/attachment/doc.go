// Package attachment provides the producer/consumer binary stream mechanism
// that decouples transport components writing streamed bytes from media
// components reading them, multiplexed by string attachment IDs.
//
// # Overview
//
// A content fetcher asks the Manager for a writer under an attachment ID and
// streams bytes into it; a media player asks for a reader under the same ID
// and streams bytes out. The two sides may attach in either order: a reader
// requested before the producer exists is delivered as a ReaderFuture that
// resolves once the writer side registers the ID.
//
// Each attachment has at most one reader and one writer. Entries that nobody
// claims on both sides within the configured horizon, and entries that both
// sides have fully consumed, are evicted on the next registry mutation, so
// producers that create attachments faster than consumers claim them cannot
// grow the registry without bound.
//
// # Usage
//
// Producer side:
//
//	mgr := attachment.New()
//	id := mgr.GenerateAttachmentID("dialogRequest42", "contentId_7")
//
//	w, err := mgr.CreateWriter(id, attachment.WriterBlocking)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	for chunk := range chunks {
//	    if n, status := w.Write(chunk, time.Second); status != attachment.WriteOK {
//	        return status.Err()
//	    } else {
//	        _ = n
//	    }
//	}
//
// Consumer side, possibly on another goroutine and possibly first:
//
//	r, err := mgr.CreateReader(id, attachment.ReaderBlocking).Await(5 * time.Second)
//	if err != nil {
//	    return err // content not available; recoverable
//	}
//	defer r.Close()
//	buf := make([]byte, 4096)
//	for {
//	    n, status := r.Read(buf, 100*time.Millisecond)
//	    switch status {
//	    case attachment.ReadOK:
//	        play(buf[:n])
//	    case attachment.ReadTimedOut:
//	        continue
//	    default:
//	        return status.Err()
//	    }
//	}
//
// # Error model
//
// Expected conditions (timeout, overrun, closed peer, would-block) are
// returned as ReadStatus/WriteStatus values rather than errors, mirroring
// how the audio pipeline consumes them on latency-sensitive threads. The
// Err() accessors map statuses onto package sentinel errors for callers
// that thread error values instead.
package attachment
