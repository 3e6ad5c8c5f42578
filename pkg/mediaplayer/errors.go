package mediaplayer

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrNoRegistry is returned when no attachment registry is supplied.
	ErrNoRegistry = errors.New("mediaplayer: attachment registry required")

	// ErrNoSink is returned when no audio sink is supplied.
	ErrNoSink = errors.New("mediaplayer: audio sink required")

	// ErrContentUnavailable is returned when the attachment never arrived
	// within the attach timeout. This is recoverable: the caller should
	// treat the content as not available rather than failing hard.
	ErrContentUnavailable = errors.New("mediaplayer: content not available")

	// ErrAlreadyPlaying is returned when Play is called during playback.
	ErrAlreadyPlaying = errors.New("mediaplayer: playback already in progress")
)
