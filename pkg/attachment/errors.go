package attachment

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrReaderClaimed is returned when an attachment already has a reader.
	ErrReaderClaimed = errors.New("attachment: reader already claimed")

	// ErrWriterClaimed is returned when an attachment already has a writer.
	ErrWriterClaimed = errors.New("attachment: writer already claimed")

	// ErrTimedOut is returned when a blocking operation exceeds its timeout.
	ErrTimedOut = errors.New("attachment: timed out")

	// ErrWouldBlock is returned for non-blocking operations that found no
	// data or space.
	ErrWouldBlock = errors.New("attachment: would block")

	// ErrOverrun is returned when the reader fell behind and unread data
	// was overwritten.
	ErrOverrun = errors.New("attachment: reader overrun")

	// ErrClosed is returned when the stream, or its peer, is gone.
	ErrClosed = errors.New("attachment: closed")

	// ErrInvalid is returned when an operation parameter is invalid.
	ErrInvalid = errors.New("attachment: invalid argument")

	// ErrNotAvailable is returned when an attachment was released or
	// evicted before a pending reader could claim it.
	ErrNotAvailable = errors.New("attachment: not available")
)
